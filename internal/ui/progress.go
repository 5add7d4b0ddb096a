package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ProgressBar shows a simple progress bar
type ProgressBar struct {
	total   int
	current int
	width   int
	writer  io.Writer
	label   string
	tty     bool
}

// NewProgressBar creates a new progress bar on stdout
func NewProgressBar(total int, label string) *ProgressBar {
	return &ProgressBar{
		total:  total,
		width:  40,
		writer: os.Stdout,
		label:  label,
		tty:    IsTerminal(),
	}
}

// SetWriter redirects the bar; output is then rendered line by line.
func (p *ProgressBar) SetWriter(w io.Writer) {
	p.writer = w
	p.tty = false
}

// Update updates the progress bar
func (p *ProgressBar) Update(current int) {
	p.current = current
	if p.current > p.total {
		p.current = p.total
	}
	p.render()
}

func (p *ProgressBar) render() {
	if p.total <= 0 {
		return
	}
	percent := float64(p.current) / float64(p.total) * 100

	if !p.tty {
		// Non-terminal: only the completed line
		if p.current >= p.total {
			fmt.Fprintf(p.writer, "%s: %d/%d (%.1f%%)\n", p.label, p.current, p.total, percent)
		}
		return
	}

	filled := int(float64(p.width) * float64(p.current) / float64(p.total))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)
	fmt.Fprintf(p.writer, "\r%s [%s] %d/%d (%.1f%%)", p.label, bar, p.current, p.total, percent)

	if p.current >= p.total {
		fmt.Fprintln(p.writer)
	}
}
