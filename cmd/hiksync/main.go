package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// exitError carries a non-zero process exit code whose cause has already
// been reported through logs or command output.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	os.Exit(execute(newRootCommand()))
}

func execute(cmd interface{ Execute() error }) int {
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	return 1
}
