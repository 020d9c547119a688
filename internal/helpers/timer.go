package helpers

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/modresolve/modresolve/internal/logger"
)

// Timer measures named phases. A nil timer does nothing, so callers don't
// need to check whether timing is enabled. Each goroutine records into its
// own forked timer, which is joined back when that goroutine is done.
type Timer struct {
	mutex   sync.Mutex
	open    map[string]time.Time
	phases  map[string]*phaseStats
	ordered []string
}

type phaseStats struct {
	count   int
	total   time.Duration
	slowest time.Duration
	detail  string
}

func (t *Timer) Begin(name string) {
	if t != nil {
		if t.open == nil {
			t.open = make(map[string]time.Time)
		}
		t.open[name] = time.Now()
	}
}

// End closes the phase opened by the matching Begin. The detail, such as the
// specifier being resolved, is reported for the slowest run of the phase.
func (t *Timer) End(name string, detail string) {
	if t == nil {
		return
	}
	start, ok := t.open[name]
	if !ok {
		panic("Internal error")
	}
	delete(t.open, name)
	t.record(name, phaseStats{count: 1, total: time.Since(start), detail: detail})
}

func (t *Timer) record(name string, stats phaseStats) {
	if t.phases == nil {
		t.phases = make(map[string]*phaseStats)
	}
	phase := t.phases[name]
	if phase == nil {
		phase = &phaseStats{}
		t.phases[name] = phase
		t.ordered = append(t.ordered, name)
	}
	phase.count += stats.count
	phase.total += stats.total
	slowest := stats.slowest
	if stats.count == 1 {
		slowest = stats.total
	}
	if slowest >= phase.slowest {
		phase.slowest = slowest
		phase.detail = stats.detail
	}
}

func (t *Timer) Fork() *Timer {
	if t != nil {
		return &Timer{}
	}
	return nil
}

func (t *Timer) Join(other *Timer) {
	if t == nil || other == nil {
		return
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for _, name := range other.ordered {
		phase := other.phases[name]
		t.record(name, phaseStats{
			count:   phase.count,
			total:   phase.total,
			slowest: phase.slowest,
			detail:  phase.detail,
		})
	}
}

func (t *Timer) Log(log logger.Log) {
	if t == nil {
		return
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()

	names := append([]string(nil), t.ordered...)
	sort.SliceStable(names, func(i, j int) bool {
		return t.phases[names[i]].total > t.phases[names[j]].total
	})

	notes := make([]logger.MsgData, 0, len(names))
	for _, name := range names {
		phase := t.phases[name]
		text := fmt.Sprintf("%s: %dus total over %d calls", name, phase.total.Microseconds(), phase.count)
		if phase.count > 1 {
			text += fmt.Sprintf(", slowest %dus", phase.slowest.Microseconds())
			if phase.detail != "" {
				text += fmt.Sprintf(" (%s)", phase.detail)
			}
		}
		notes = append(notes, logger.MsgData{Text: text})
	}

	log.AddIDWithNotes(logger.MsgID_None, logger.Info, logger.MsgData{},
		"Timing information (calls may overlap when resolving in parallel)", notes)
}
