// Package progress provides the simulated progress indicator shown while a
// strategy is generated. It is a cosmetic timer that runs independently of the
// remote call.
package progress

import (
	"context"
	"time"
)

const (
	// DefaultInterval is the time between two updates
	DefaultInterval = 100 * time.Millisecond
	// DefaultIncrement is the percentage added on each update
	DefaultIncrement = 2
)

// DefaultSteps are the labels shown as the percentage advances.
var DefaultSteps = []string{
	"Analyzing brand strategy patterns",
	"Processing business context",
	"Generating marketing framework",
	"Creating actionable recommendations",
	"Finalizing strategy document",
}

// Update is one tick of the indicator.
type Update struct {
	Percent int    `json:"percent"`
	Step    int    `json:"step"`
	Label   string `json:"label"`
	Done    bool   `json:"done"`
}

// Simulator advances a percentage on a fixed interval.
type Simulator struct {
	Interval  time.Duration
	Increment int
	Steps     []string
}

// New returns a simulator with the default interval, increment and steps.
func New() *Simulator {
	return &Simulator{
		Interval:  DefaultInterval,
		Increment: DefaultIncrement,
		Steps:     DefaultSteps,
	}
}

// StepFor returns the step index shown at percent.
func (s *Simulator) StepFor(percent int) int {
	n := len(s.steps())
	step := percent * n / 100
	if step > n-1 {
		step = n - 1
	}
	if step < 0 {
		step = 0
	}
	return step
}

func (s *Simulator) steps() []string {
	if len(s.Steps) == 0 {
		return DefaultSteps
	}
	return s.Steps
}

func (s *Simulator) update(percent int) Update {
	step := s.StepFor(percent)
	return Update{
		Percent: percent,
		Step:    step,
		Label:   s.steps()[step],
		Done:    percent >= 100,
	}
}

// Complete returns the final 100% update, used when the work finishes
// before the simulated run does.
func (s *Simulator) Complete() Update {
	return s.update(100)
}

// Start emits an update at 0% and then one per interval until 100% is
// reached or ctx is cancelled. The channel is closed when the run ends.
func (s *Simulator) Start(ctx context.Context) <-chan Update {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	increment := s.Increment
	if increment <= 0 {
		increment = DefaultIncrement
	}

	updates := make(chan Update)
	go func() {
		defer close(updates)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		percent := 0
		for {
			select {
			case updates <- s.update(percent):
			case <-ctx.Done():
				return
			}
			if percent >= 100 {
				return
			}

			select {
			case <-ticker.C:
				percent = min(percent+increment, 100)
			case <-ctx.Done():
				return
			}
		}
	}()
	return updates
}
