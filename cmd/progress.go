package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/eslsoft/vocsync/internal/usecase/backup"
)

// cliProgress prints backup progress. Upload chunks report concurrently.
type cliProgress struct {
	mu          sync.Mutex
	out         io.Writer
	totals      map[backup.Phase]int
	counts      map[backup.Phase]int
	lastPrinted map[backup.Phase]int
	steps       map[backup.Phase]int
}

func newCLIProgress(out io.Writer) *cliProgress {
	return &cliProgress{
		out:         out,
		totals:      make(map[backup.Phase]int),
		counts:      make(map[backup.Phase]int),
		lastPrinted: make(map[backup.Phase]int),
		steps:       make(map[backup.Phase]int),
	}
}

func (p *cliProgress) StartPhase(phase backup.Phase, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if total < 0 {
		total = 0
	}
	p.totals[phase] = total
	p.counts[phase] = 0
	p.lastPrinted[phase] = 0
	p.steps[phase] = progressStep(total)
	if total > 0 {
		fmt.Fprintf(p.out, "start %s (%d entries)\n", phase, total)
	} else {
		fmt.Fprintf(p.out, "start %s\n", phase)
	}
}

func (p *cliProgress) Increment(phase backup.Phase, delta int) {
	if delta <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	current := p.counts[phase] + delta
	p.counts[phase] = current
	total := p.totals[phase]
	step := p.steps[phase]
	if step <= 0 {
		step = 1
	}
	last := p.lastPrinted[phase]
	if current == total || last == 0 || current-last >= step {
		p.printProgress(phase, current, total)
		p.lastPrinted[phase] = current
	}
}

func (p *cliProgress) FinishPhase(phase backup.Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	current := p.counts[phase]
	total := p.totals[phase]
	if current != p.lastPrinted[phase] {
		p.printProgress(phase, current, total)
	}
	if total > 0 {
		fmt.Fprintf(p.out, "done %s: %d/%d\n", phase, current, total)
	} else {
		fmt.Fprintf(p.out, "done %s: %d\n", phase, current)
	}
	delete(p.counts, phase)
	delete(p.totals, phase)
	delete(p.lastPrinted, phase)
	delete(p.steps, phase)
}

func (p *cliProgress) printProgress(phase backup.Phase, current, total int) {
	if total > 0 {
		fmt.Fprintf(p.out, "%s: %d/%d\n", phase, current, total)
	} else {
		fmt.Fprintf(p.out, "%s: %d processed\n", phase, current)
	}
}

func progressStep(total int) int {
	if total <= 0 {
		return 1000
	}
	step := total / 20
	if step < 1 {
		step = 1
	}
	if step > 1000 {
		step = 1000
	}
	return step
}
