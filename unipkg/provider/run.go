package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cm "github.com/unipkg/unipkg/unipkg/commandmanager"
)

// runInteractive executes a command wired to the operator's terminal.
// The child streams its own progress; cancellation surfaces as
// commandmanager.ErrCancelled.
func runInteractive(ctx context.Context, runner cm.CommandManager, config cm.CommandConfig) error {
	config.Interactive = true
	_, err := runner.Run(ctx, config)
	if errors.Is(err, cm.ErrCancelled) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%s: %w", config.Command, err)
	}
	return nil
}

// runCaptured executes a command with captured output.
func runCaptured(ctx context.Context, runner cm.CommandManager, config cm.CommandConfig) (cm.CommandResult, error) {
	config.Interactive = false
	return runner.Run(ctx, config)
}

// nonEmptyLines splits captured output into trimmed, non-empty lines.
func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
