package cmd

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// fingerprintProgress shows a progress bar while files are fingerprinted.
// The bar is created on the first update, once the total is known.
type fingerprintProgress struct {
	writer      io.Writer
	description string
	bar         *progressbar.ProgressBar
	shown       int
}

func newFingerprintProgress(description string, writer io.Writer) *fingerprintProgress {
	return &fingerprintProgress{writer: writer, description: description}
}

// isInteractive reports whether f is a terminal.
func isInteractive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Update moves the bar to done out of total.
func (p *fingerprintProgress) Update(done, total int) {
	if total <= 0 {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionSetDescription(p.description),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
		)
	}
	if done > total {
		done = total
	}
	if delta := done - p.shown; delta > 0 {
		p.bar.Add(delta)
		p.shown = done
	}
}

// Finish completes the bar and moves to a new line.
func (p *fingerprintProgress) Finish() {
	if p.bar == nil {
		return
	}
	p.bar.Finish()
	io.WriteString(p.writer, "\n")
}
