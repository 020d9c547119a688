package exitcode_test

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"

	"github.com/modresolve/modresolve/internal/exitcode"
	"github.com/modresolve/modresolve/internal/test"
)

type notFound struct{}

func (notFound) Error() string { return "not found" }
func (notFound) ExitCode() int { return 2 }

func TestGet(t *testing.T) {
	expect := func(err error, code int) {
		t.Helper()
		test.AssertEqual(t, exitcode.Get(err), code)
		test.AssertEqual(t, exitcode.HasCode(err), err != nil && code != exitcode.Software)
	}

	expect(nil, 0)
	expect(errors.New("plain"), exitcode.Software)
	expect(exitcode.Set(errors.New(""), 3), 3)
	expect(exitcode.AsUsage(errors.New("")), exitcode.Usage)

	// A failure that knows its own code keeps it through wrapping
	expect(notFound{}, 2)
	expect(pkgerrors.Wrap(notFound{}, "resolving \"pkg\""), 2)

	// The outermost code wins
	expect(exitcode.Set(pkgerrors.Wrap(notFound{}, "wrapping"), 5), 5)
	expect(exitcode.AsUsage(exitcode.Set(errors.New(""), 4)), exitcode.Usage)
}

func TestSet(t *testing.T) {
	err := errors.New("hello")
	coded := exitcode.Set(err, 3)
	test.AssertEqual(t, coded.Error(), "hello")
	if !errors.Is(coded, err) {
		t.Errorf("broken chain: %v is not %v", coded, err)
	}
	if exitcode.Set(nil, 3) != nil {
		t.Error("expected nil")
	}
}
