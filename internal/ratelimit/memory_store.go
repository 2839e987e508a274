package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"
)

type slidingLog struct {
	mu    sync.Mutex
	times []time.Time
}

// prune drops entries that have left the window.
func (s *slidingLog) prune(now time.Time, period time.Duration) {
	cutoff := now.Add(-period)
	i := 0
	for i < len(s.times) && !s.times[i].After(cutoff) {
		i++
	}
	s.times = s.times[i:]
}

// record appends now and keeps at most limit entries.
func (s *slidingLog) record(now time.Time, limit int) {
	s.times = append(s.times, now)
	if extra := len(s.times) - limit; extra > 0 {
		s.times = s.times[extra:]
	}
}

// MemoryStore keeps windows in process. Each key has its own lock; a request
// locks only the keys it touches, in sorted order.
type MemoryStore struct {
	logs sync.Map // key -> *slidingLog
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Admit implements Store.
func (m *MemoryStore) Admit(_ context.Context, now time.Time, checks []Check) (Decision, error) {
	ordered := make([]Check, len(checks))
	copy(ordered, checks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Key < ordered[j].Key })

	logs := make([]*slidingLog, len(ordered))
	for i, c := range ordered {
		logs[i] = m.log(c.Key)
		logs[i].mu.Lock()
	}
	defer func() {
		for i := len(logs) - 1; i >= 0; i-- {
			logs[i].mu.Unlock()
		}
	}()

	violated := make([]bool, len(ordered))
	allowed := true
	for i, c := range ordered {
		logs[i].prune(now, c.Window.Period)
		if len(logs[i].times) >= c.Window.Limit {
			violated[i] = true
			allowed = false
		}
	}

	d := Decision{Allowed: allowed}
	for i, c := range ordered {
		if allowed || c.Window.CountDenied {
			logs[i].record(now, c.Window.Limit)
		}
		if !violated[i] {
			continue
		}
		// measured after recording so waiting RetryAfter frees a slot
		wait := logs[i].times[0].Add(c.Window.Period).Sub(now)
		if len(d.Violated) == 0 || wait < d.RetryAfter {
			d.RetryAfter = wait
		}
		d.Violated = append(d.Violated, c.Window.Name)
	}
	sort.Strings(d.Violated)
	return d, nil
}

func (m *MemoryStore) log(key string) *slidingLog {
	if v, ok := m.logs.Load(key); ok {
		return v.(*slidingLog)
	}
	v, _ := m.logs.LoadOrStore(key, &slidingLog{})
	return v.(*slidingLog)
}
