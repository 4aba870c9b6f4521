package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/muesli/termenv"
)

func init() {
	// Same detection as the UI: NO_COLOR, CLICOLOR_FORCE and non-terminals.
	color.NoColor = termenv.NewOutput(os.Stdout).EnvColorProfile() == termenv.Ascii
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

func success(w io.Writer, format string, a ...any) {
	green.Fprintf(w, "✓ "+format+"\n", a...)
}

func warn(w io.Writer, format string, a ...any) {
	yellow.Fprintf(w, "! "+format+"\n", a...)
}

func printError(w io.Writer, err error) {
	red.Fprintf(w, "Error: ")
	fmt.Fprintln(w, err)
}

// field prints one aligned "label value" line.
func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%-12s %s\n", label, cyan.Sprint(value))
}
