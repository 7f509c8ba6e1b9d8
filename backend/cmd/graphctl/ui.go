package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Output colors
var (
	Brand  = color.New(color.FgHiMagenta, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Info   = color.New(color.FgCyan)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

// printTable prints a simple aligned table
func printTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		Subtle.Fprintln(w, "  (empty)")
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	headerLine := "  "
	sepLine := "  "
	for i, h := range headers {
		headerLine += fmt.Sprintf("%-*s  ", widths[i], h)
		sepLine += strings.Repeat("─", widths[i]) + "  "
	}
	Subtle.Fprintln(w, headerLine)
	Subtle.Fprintln(w, sepLine)

	for _, row := range rows {
		line := "  "
		for i, cell := range row {
			if i < len(widths) {
				line += fmt.Sprintf("%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(w, line)
	}
}

func heading(w io.Writer, title, subtitle string) {
	fmt.Fprintf(w, "%s %s\n\n", Brand.Sprint(title), Subtle.Sprint(subtitle))
}

func field(w io.Writer, name string, value interface{}) {
	fmt.Fprintf(w, "  %s  %v\n", Info.Sprintf("%-14s", name), value)
}
