package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"hiksync/internal/config"
)

type globalFlags struct {
	config    string
	envFile   string
	logLevel  string
	logFormat string
}

// flagOverride applies a flag value on top of file and environment
// configuration, but only when the flag was set on the invoked command.
type flagOverride struct {
	changed func(*cobra.Command) bool
	apply   config.Override
}

type commandContext struct {
	flags     *globalFlags
	overrides []flagOverride
	invoked   *cobra.Command

	configOnce  sync.Once
	config      *config.Config
	configPath  string
	configFound bool
	configErr   error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) addOverride(changed func(*cobra.Command) bool, apply config.Override) {
	c.overrides = append(c.overrides, flagOverride{changed: changed, apply: apply})
}

// bind records the command being executed so flag overrides can consult it.
func (c *commandContext) bind(cmd *cobra.Command) {
	c.invoked = cmd
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		envFile := strings.TrimSpace(c.flags.envFile)
		if envFile != "" {
			if err := config.LoadEnvFile(envFile, true); err != nil {
				c.configErr = fmt.Errorf("load env file: %w", err)
				return
			}
		} else if err := config.LoadEnvFile(".env", false); err != nil {
			c.configErr = fmt.Errorf("load env file: %w", err)
			return
		}

		var overrides []config.Override
		for _, o := range c.overrides {
			if c.invoked != nil && o.changed(c.invoked) {
				overrides = append(overrides, o.apply)
			}
		}
		cfg, path, found, err := config.Load(strings.TrimSpace(c.flags.config), overrides...)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configFound = found
	})
	return c.config, c.configErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
