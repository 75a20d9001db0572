package history

import (
	"time"
)

type StageTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// StageClock collects stage durations in the order stages finish.
type StageClock struct {
	now    func() time.Time
	stages []StageTiming
}

func NewStageClock(now func() time.Time) *StageClock {
	if now == nil {
		now = time.Now
	}
	return &StageClock{now: now}
}

// Track starts timing name and returns the function that stops it.
func (c *StageClock) Track(name string) func(err error) {
	start := c.now()
	return func(err error) {
		timing := StageTiming{Name: name, Duration: c.now().Sub(start)}
		if err != nil {
			timing.Error = err.Error()
		}
		c.stages = append(c.stages, timing)
	}
}

func (c *StageClock) Stages() []StageTiming {
	if len(c.stages) == 0 {
		return nil
	}
	out := make([]StageTiming, len(c.stages))
	copy(out, c.stages)
	return out
}

// Slowest returns the longest stage, or false when nothing was tracked.
func Slowest(stages []StageTiming) (StageTiming, bool) {
	if len(stages) == 0 {
		return StageTiming{}, false
	}
	best := stages[0]
	for _, st := range stages[1:] {
		if st.Duration > best.Duration {
			best = st
		}
	}
	return best, true
}
