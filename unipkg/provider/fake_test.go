package provider

import (
	"context"
	"strings"

	cm "github.com/unipkg/unipkg/unipkg/commandmanager"
)

type fakeResponse struct {
	stdout string
	exit   int
	err    error
}

// fakeCommandManager scripts responses by full command line and records
// every invocation for order assertions.
type fakeCommandManager struct {
	Responses map[string]fakeResponse
	Missing   map[string]bool
	Calls     []cm.CommandConfig
}

func commandLine(config cm.CommandConfig) string {
	if len(config.Args) == 0 {
		return config.Command
	}
	return config.Command + " " + strings.Join(config.Args, " ")
}

func (f *fakeCommandManager) Run(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	f.Calls = append(f.Calls, config)

	resp, ok := f.Responses[commandLine(config)]
	if !ok {
		return cm.CommandResult{Command: config.Command}, nil
	}
	return cm.CommandResult{
		Command:  config.Command,
		STDOUT:   resp.stdout,
		ExitCode: resp.exit,
	}, resp.err
}

func (f *fakeCommandManager) RunLocal(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	return f.Run(ctx, config)
}

func (f *fakeCommandManager) RunRemote(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	return f.Run(ctx, config)
}

func (f *fakeCommandManager) HasCommand(ctx context.Context, name string) bool {
	return !f.Missing[name]
}

func (f *fakeCommandManager) commandLines() []string {
	lines := make([]string, 0, len(f.Calls))
	for _, call := range f.Calls {
		lines = append(lines, commandLine(call))
	}
	return lines
}

// recordingReporter captures progress output for assertions.
type recordingReporter struct {
	progress []string
	warnings int
}

func (r *recordingReporter) Progress(pkg string, index, total int) {
	r.progress = append(r.progress, pkg)
}

func (r *recordingReporter) Infof(format string, args ...interface{}) {}

func (r *recordingReporter) Warnf(format string, args ...interface{}) {
	r.warnings++
}
