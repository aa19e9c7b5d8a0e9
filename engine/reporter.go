package engine

import (
	"github.com/rs/zerolog"
)

// Reporter receives user-facing progress of a pass. Progress increments
// are percentage points; the increments of one pass sum to at most 100.
type Reporter interface {
	Progress(message string, increment int)
	Status(message string)
	Done(message string)
	Fail(err error)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Progress(string, int) {}
func (NopReporter) Status(string)        {}
func (NopReporter) Done(string)          {}
func (NopReporter) Fail(error)           {}

// LogReporter writes pass progress to a zerolog logger. It is the
// reporter of background passes started by save events.
type LogReporter struct {
	Log zerolog.Logger
}

func (r LogReporter) Progress(message string, increment int) {
	r.Log.Debug().Int("increment", increment).Msg(message)
}

func (r LogReporter) Status(message string) {
	r.Log.Info().Msg(message)
}

func (r LogReporter) Done(message string) {
	r.Log.Info().Msg(message)
}

func (r LogReporter) Fail(err error) {
	r.Log.Error().Err(err).Msg("translation pass failed")
}

// percent turns item counts into monotonic percentage increments.
type percent struct {
	total, done, reported int
}

// add records n finished items and returns the increment to report, which
// may be zero.
func (p *percent) add(n int) int {
	if p.total <= 0 {
		return 0
	}
	p.done += n
	if p.done > p.total {
		p.done = p.total
	}
	pct := p.done * 100 / p.total
	inc := pct - p.reported
	if inc < 0 {
		return 0
	}
	p.reported = pct
	return inc
}
