package helpers_test

import (
	"testing"

	"github.com/modresolve/modresolve/internal/helpers"
	"github.com/modresolve/modresolve/internal/test"
)

func TestTypoDetector(t *testing.T) {
	detector := helpers.MakeTypoDetector([]string{"./feature", "./utils", "./a"})

	expect := func(typo string, corrected string, ok bool) {
		t.Helper()
		gotCorrected, gotOK := detector.MaybeCorrectTypo(typo)
		test.AssertEqual(t, gotOK, ok)
		test.AssertEqual(t, gotCorrected, corrected)
	}

	expect("./featur", "./feature", true)
	expect("./featuure", "./feature", true)
	expect("./featore", "./feature", true)
	expect("./Feature", "./feature", true)
	expect("./utlis", "./utils", true)
	expect("./utils", "./utils", false)
	expect("./b", "", false)
	expect("./other", "", false)
}
