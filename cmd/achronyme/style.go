package main

import (
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	criticalMark = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
)

// printer writes styled output, dropping the styling when the destination
// is not a terminal.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, color: isTerminal(w)}
}

func (p *printer) render(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *printer) Printf(format string, args ...any) {
	out := fmt.Sprintf(format, args...)
	if !p.color {
		out = ansi.Strip(out)
	}
	_, _ = io.WriteString(p.w, out)
}

func (p *printer) Title(text string) {
	p.Printf("%s\n", p.render(titleStyle, text))
}

// Field prints an aligned "label: value" line.
func (p *printer) Field(label string, value any) {
	p.Printf("  %s %v\n", p.render(labelStyle, pad(label+":", 14)), value)
}

// Table prints rows in aligned columns. Widths are measured without
// escape sequences so styled cells line up.
func (p *printer) Table(header []string, rows [][]string) {
	widths := make([]int, len(header))
	for k, h := range header {
		widths[k] = ansi.StringWidth(h)
	}
	for _, row := range rows {
		for k, cell := range row {
			widths[k] = max(widths[k], ansi.StringWidth(cell))
		}
	}
	line := func(cells []string) {
		parts := make([]string, len(cells))
		for k, cell := range cells {
			parts[k] = pad(cell, widths[k])
		}
		p.Printf("%s\n", strings.TrimRight(strings.Join(parts, "  "), " "))
	}
	styled := make([]string, len(header))
	for k, h := range header {
		styled[k] = p.render(labelStyle, h)
	}
	line(styled)
	for _, row := range rows {
		line(row)
	}
}

func pad(s string, width int) string {
	if n := ansi.StringWidth(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
