package provider

import "fmt"

// ToolMissingError reports an absent external tool together with the
// command that would install it. The hint is part of the operator-facing
// contract, not just a log line.
type ToolMissingError struct {
	Tool        string
	InstallHint string
}

func (e *ToolMissingError) Error() string {
	if e.InstallHint == "" {
		return fmt.Sprintf("required tool %q not found", e.Tool)
	}
	return fmt.Sprintf("required tool %q not found; install it first: %s", e.Tool, e.InstallHint)
}

// UnsupportedError reports a capability the active provider does not have.
type UnsupportedError struct {
	Provider string
	Feature  string
	Hint     string
}

func (e *UnsupportedError) Error() string {
	msg := fmt.Sprintf("%s packages are not supported by the %s provider", e.Feature, e.Provider)
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	return msg
}
