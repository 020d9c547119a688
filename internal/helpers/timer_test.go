package helpers

import (
	"strings"
	"testing"

	"github.com/modresolve/modresolve/internal/logger"
	"github.com/modresolve/modresolve/internal/test"
)

func TestTimerJoinAggregates(t *testing.T) {
	var main Timer
	main.Begin("Create resolver")
	main.End("Create resolver", "")

	for _, specifier := range []string{"a", "b", "c"} {
		fork := main.Fork()
		fork.Begin("Resolve")
		fork.End("Resolve", specifier)
		main.Join(fork)
	}

	log := logger.NewDeferLog(logger.LevelInfo, nil)
	main.Log(log)
	msgs := log.Done()
	test.AssertEqual(t, len(msgs), 1)
	test.AssertEqual(t, len(msgs[0].Notes), 2)

	var resolve string
	for _, note := range msgs[0].Notes {
		if strings.HasPrefix(note.Text, "Resolve:") {
			resolve = note.Text
		}
	}
	if !strings.Contains(resolve, "over 3 calls, slowest") {
		t.Fatalf("Unexpected timing note: %q", resolve)
	}
}

func TestNilTimer(t *testing.T) {
	var timer *Timer
	timer.Begin("Resolve")
	timer.End("Resolve", "x")
	timer.Join(timer.Fork())
	timer.Log(logger.NewDeferLog(logger.LevelInfo, nil))
}
