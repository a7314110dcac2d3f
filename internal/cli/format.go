package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/unipkg/unipkg/unipkg/provider"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// styledReporter renders provider progress for the operator. The
// provider package stays free of presentation; this is the injected
// formatter.
type styledReporter struct {
	w io.Writer
}

func newStyledReporter() provider.Reporter {
	return styledReporter{w: os.Stdout}
}

func (r styledReporter) Progress(pkg string, index, total int) {
	fmt.Fprintln(r.w, headerStyle.Render(fmt.Sprintf("--- Installing %s (%d/%d) ---", pkg, index, total)))
}

func (r styledReporter) Infof(format string, args ...interface{}) {
	fmt.Fprintln(r.w, fmt.Sprintf(format, args...))
}

func (r styledReporter) Warnf(format string, args ...interface{}) {
	fmt.Fprintln(r.w, warnStyle.Render("Warning: "+fmt.Sprintf(format, args...)))
}
