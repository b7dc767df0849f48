package model

// ResultKind is the classified outcome of a single test case.
type ResultKind string

const (
	ResultPassed          ResultKind = "passed"
	ResultFailed          ResultKind = "failed"
	ResultSkipped         ResultKind = "skipped"
	ResultBroken          ResultKind = "broken"
	ResultExpectedFailure ResultKind = "expected_failure"
)

// ValidResultKind reports whether s names one of the known outcome kinds.
func ValidResultKind(s string) bool {
	switch ResultKind(s) {
	case ResultPassed, ResultFailed, ResultSkipped, ResultBroken, ResultExpectedFailure:
		return true
	}
	return false
}

// Result is the outcome of one test case. Every kind except passed carries
// a one-line reason; passed never does. Results are plain values and
// compare with ==.
type Result struct {
	Kind   ResultKind
	Reason string
}

func Passed() Result {
	return Result{Kind: ResultPassed}
}

func Failed(reason string) Result {
	return Result{Kind: ResultFailed, Reason: reason}
}

func Skipped(reason string) Result {
	return Result{Kind: ResultSkipped, Reason: reason}
}

func Broken(reason string) Result {
	return Result{Kind: ResultBroken, Reason: reason}
}

func ExpectedFailure(reason string) Result {
	return Result{Kind: ResultExpectedFailure, Reason: reason}
}

// Good reports whether the result does not count against the run: passed,
// skipped and expected_failure outcomes keep the exit status at zero.
func (r Result) Good() bool {
	switch r.Kind {
	case ResultPassed, ResultSkipped, ResultExpectedFailure:
		return true
	}
	return false
}

func (r Result) String() string {
	if r.Reason == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + ": " + r.Reason
}
