package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// progressObserver renders walk progress as a progress bar.
type progressObserver struct {
	out     io.Writer
	quiet   bool
	bar     *progressbar.ProgressBar
	scanned int
	failed  int
}

func newProgressObserver(out io.Writer, quiet bool) *progressObserver {
	return &progressObserver{out: out, quiet: quiet}
}

func (p *progressObserver) OnDiscovered(total int) {
	if p.quiet {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription("Scanning units"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.out)
		}),
	)
}

func (p *progressObserver) OnScanned(_ string, err error) {
	p.scanned++
	if err != nil {
		p.failed++
	}
	if p.bar != nil {
		p.bar.Add(1)
	}
}

// finish closes the bar if the walk stopped early.
func (p *progressObserver) finish() {
	if p.bar != nil && !p.bar.IsFinished() {
		p.bar.Finish()
	}
}
