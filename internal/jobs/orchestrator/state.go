package orchestrator

import "time"

func (o *Orchestrator) remember(res JobResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = append(o.history, res)
	if over := len(o.history) - o.cfg.HistoryCapacity; over > 0 {
		o.history = append(o.history[:0:0], o.history[over:]...)
	}
}

// History returns the retained runs, oldest first.
func (o *Orchestrator) History() []JobResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]JobResult, len(o.history))
	copy(out, o.history)
	return out
}

type JobStats struct {
	Runs          int        `json:"runs"`
	Successes     int        `json:"successes"`
	Failures      int        `json:"failures"`
	Processed     int        `json:"processed"`
	Errors        int        `json:"errors"`
	AvgDurationMs float64    `json:"avg_duration_ms"`
	LastRun       *time.Time `json:"last_run,omitempty"`
	LastSuccess   bool       `json:"last_success"`
}

type Summary struct {
	TotalRuns     int                 `json:"total_runs"`
	SuccessRate   float64             `json:"success_rate"`
	AvgDurationMs float64             `json:"avg_duration_ms"`
	Jobs          map[string]JobStats `json:"jobs"`
}

// Summary aggregates the retained history. SuccessRate is a percentage.
func (o *Orchestrator) Summary() Summary {
	hist := o.History()
	s := Summary{TotalRuns: len(hist), Jobs: map[string]JobStats{}}
	if len(hist) == 0 {
		return s
	}
	var successes int
	var total int64
	for _, r := range hist {
		js := s.Jobs[r.Name]
		js.AvgDurationMs = (js.AvgDurationMs*float64(js.Runs) + float64(r.DurationMs)) / float64(js.Runs+1)
		js.Runs++
		if r.Success {
			js.Successes++
			successes++
		} else {
			js.Failures++
		}
		js.Processed += r.Processed
		js.Errors += r.Errors
		ts := r.Timestamp
		js.LastRun = &ts
		js.LastSuccess = r.Success
		s.Jobs[r.Name] = js
		total += r.DurationMs
	}
	s.SuccessRate = float64(successes) * 100 / float64(len(hist))
	s.AvgDurationMs = float64(total) / float64(len(hist))
	return s
}
