package main

import (
	"io"
	"sync"

	"github.com/cheggaaa/pb/v3"
)

// progressBars draws one bar per runner as iterations complete.
type progressBars struct {
	w        io.Writer
	mu       sync.Mutex
	bars     map[string]*pb.ProgressBar
	finished map[string]bool
}

func newProgressBars(w io.Writer) *progressBars {
	return &progressBars{
		w:        w,
		bars:     make(map[string]*pb.ProgressBar),
		finished: make(map[string]bool),
	}
}

// IterationDone advances the runner's bar, starting it on first use.
func (p *progressBars) IterationDone(runner string, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bar, ok := p.bars[runner]
	if !ok {
		bar = pb.New(total).
			SetWriter(p.w).
			Set("prefix", runner+" ")
		bar.Start()
		p.bars[runner] = bar
	}

	bar.SetCurrent(int64(done))

	if done >= total && !p.finished[runner] {
		bar.Finish()
		p.finished[runner] = true
	}
}

// Finish stops any bar left running by an aborted runner.
func (p *progressBars) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for runner, bar := range p.bars {
		if !p.finished[runner] {
			bar.Finish()
			p.finished[runner] = true
		}
	}
}
