package timer

import (
	"context"
	"iter"
	"time"

	"github.com/sandeepkv93/focusd/internal/model"
)

type Sample struct {
	MinutesLeft int
	SecondsLeft int
	Remaining   time.Duration
	Done        bool
}

// Remaining is clamped at zero.
func Remaining(s model.TimerState, now time.Time) time.Duration {
	if s.StartTime.IsZero() {
		return s.Duration()
	}
	left := s.EndTime().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Elapsed is the time spent in the countdown, capped at its duration.
func Elapsed(s model.TimerState, now time.Time) time.Duration {
	return s.Duration() - Remaining(s, now)
}

// Progress is the elapsed fraction of the countdown in [0, 1].
func Progress(s model.TimerState, now time.Time) float64 {
	total := s.Duration()
	if total <= 0 {
		return 0
	}
	return float64(Elapsed(s, now)) / float64(total)
}

func SampleAt(s model.TimerState, now time.Time) Sample {
	left := Remaining(s, now)
	secs := int(left.Round(time.Second) / time.Second)
	return Sample{
		MinutesLeft: secs / 60,
		SecondsLeft: secs % 60,
		Remaining:   left,
		Done:        left == 0,
	}
}

// Countdown yields a sample immediately and then once per interval until
// the timer reaches zero, ctx ends, or the consumer stops. Every range over
// the returned sequence starts its own ticker.
func Countdown(ctx context.Context, s model.TimerState, now func() time.Time, interval time.Duration) iter.Seq[Sample] {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = time.Second
	}
	return func(yield func(Sample) bool) {
		if s.Phase != model.PhaseActive {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for ctx.Err() == nil {
			sample := SampleAt(s, now())
			if !yield(sample) || sample.Done {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}
