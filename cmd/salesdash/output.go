package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	headerColor  = color.New(color.FgWhite, color.Bold)
	dimColor     = color.New(color.Faint)
	valueColor   = color.New(color.FgCyan, color.Bold)
)

func disableColor() {
	color.NoColor = true
}

func printHeader(w io.Writer, format string, args ...any) {
	headerColor.Fprintf(w, format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...any) {
	warningColor.Fprintf(w, "warning: "+format+"\n", args...)
}

// printField writes an aligned "label: value" line.
func printField(w io.Writer, label string, value string) {
	fmt.Fprintf(w, "  %-16s %s\n", dimColor.Sprint(label+":"), valueColor.Sprint(value))
}
