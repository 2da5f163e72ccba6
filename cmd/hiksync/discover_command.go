package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hiksync/internal/cameras"
)

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "List the cameras a sync run would process",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			list, err := cameras.Resolve(cfg)
			if err != nil {
				return fmt.Errorf("resolve cameras: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintf(out, "No cameras found under %s\n", cfg.Paths.InputDir)
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, cam := range list {
				rows = append(rows, []string{cam.Name, cam.Tag, cam.SourcePath, cam.DestinationPath})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Camera", "Tag", "Source", "Destination"}, rows, nil))
			return nil
		},
	}
}
