package model

import (
	"fmt"

	"github.com/YuriyGuts/hammurabi/pkg/statuses"
)

// Result is the final tagged outcome of a test run. Status selects the
// variant; the remaining fields carry the variant's payload.
type Result struct {
	Status statuses.Status
	Detail string
	Score  int

	// ExitCode and Signal are set for RE results.
	ExitCode int
	Signal   int
}

func (r Result) String() string {
	return fmt.Sprintf("[%s] %s, Score: %d", r.Status, r.Status.Human(), r.Score)
}

// CompilationError carries the captured compiler output.
func CompilationError(compilerOutput string) Result {
	return Result{Status: statuses.CompilationError, Detail: compilerOutput}
}

// RuntimeExit is a runtime error from a non-zero exit code.
func RuntimeExit(code int) Result {
	return Result{
		Status:   statuses.RuntimeError,
		Detail:   fmt.Sprintf("process exited with code %d", code),
		ExitCode: code,
	}
}

// RuntimeSignal is a runtime error from a signal-based termination.
func RuntimeSignal(sig int) Result {
	return Result{
		Status: statuses.RuntimeError,
		Detail: fmt.Sprintf("process killed by signal %d", sig),
		Signal: sig,
	}
}

// Timeout reports that the run exceeded its effective time limit.
func Timeout(limitSeconds float64) Result {
	return Result{
		Status: statuses.TimeLimitExceeded,
		Detail: fmt.Sprintf("execution time exceeded the limit of %.2g seconds", limitSeconds),
	}
}

// WrongAnswer carries the verifier's mismatch detail.
func WrongAnswer(detail string) Result {
	return Result{Status: statuses.WrongAnswer, Detail: detail}
}

// FormatError reports unparseable or missing output.
func FormatError(detail string) Result {
	return Result{Status: statuses.OutputFormatError, Detail: detail}
}

// InternalError reports a judge-side failure scoped to one pair.
func InternalError(detail string) Result {
	return Result{Status: statuses.InternalError, Detail: detail}
}

// Correct awards the testcase score.
func Correct(score int) Result {
	return Result{Status: statuses.CorrectAnswer, Score: score}
}

// SkippedResult marks a pair excluded from grading.
func SkippedResult(reason string) Result {
	return Result{Status: statuses.Skipped, Detail: reason}
}

// MissingAnswerResult marks a testcase without an expected answer file.
func MissingAnswerResult() Result {
	return Result{Status: statuses.MissingAnswer, Detail: "expected answer file not found"}
}

// UnverifiedResult marks reference runs whose output defines the answers.
func UnverifiedResult() Result {
	return Result{Status: statuses.Unverified, Detail: "verification ignored - running the reference solution"}
}
