// Package judge composes compiler, runner and verifier into one typed
// TestRun per (solution, testcase) pair. Everything below the dispatcher is
// contained at pair granularity: a failing pair never aborts the run.
package judge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/YuriyGuts/hammurabi/internal/compiler"
	"github.com/YuriyGuts/hammurabi/internal/language"
	"github.com/YuriyGuts/hammurabi/internal/model"
	"github.com/YuriyGuts/hammurabi/internal/runner"
	"github.com/YuriyGuts/hammurabi/internal/scratch"
	"github.com/YuriyGuts/hammurabi/internal/verifier"
)

// Judge grades single (solution, testcase) pairs.
type Judge struct {
	registry  *language.Registry
	compiler  *compiler.Compiler
	runner    runner.Runner
	verifiers *verifier.Registry
	scratch   *scratch.Dir
	log       *slog.Logger
}

func New(
	registry *language.Registry,
	comp *compiler.Compiler,
	run runner.Runner,
	verifiers *verifier.Registry,
	scratchDir *scratch.Dir,
	log *slog.Logger,
) *Judge {
	return &Judge{
		registry:  registry,
		compiler:  comp,
		runner:    run,
		verifiers: verifiers,
		scratch:   scratchDir,
		log:       log,
	}
}

// Run grades one pair. The returned TestRun's result is derived
// deterministically from build status, run outcome and verdict, first
// match wins.
func (j *Judge) Run(ctx context.Context, solution *model.Solution, testcase *model.Testcase) *model.TestRun {
	tr := &model.TestRun{Solution: solution, Testcase: testcase, JudgeStart: time.Now()}
	defer func() { tr.JudgeEnd = time.Now() }()

	if skipped, reason := skipReason(solution); skipped {
		tr.Result = model.SkippedResult(reason)
		return tr
	}
	if testcase.MissingAnswer {
		tr.Result = model.MissingAnswerResult()
		return tr
	}

	if done := j.buildAndRun(ctx, tr); done {
		return tr
	}

	j.verify(tr)
	return tr
}

// RunReference executes the reference solution and copies its output into
// the problem's answers directory. Reference output is never verified.
func (j *Judge) RunReference(ctx context.Context, solution *model.Solution, testcase *model.Testcase) *model.TestRun {
	tr := &model.TestRun{Solution: solution, Testcase: testcase, JudgeStart: time.Now()}
	defer func() { tr.JudgeEnd = time.Now() }()

	if skipped, reason := skipReason(solution); skipped {
		tr.Result = model.SkippedResult(reason)
		return tr
	}

	if done := j.buildAndRun(ctx, tr); done {
		return tr
	}

	answerPath := testcase.AnswerPath
	if filepath.Ext(answerPath) == ".zst" {
		answerPath = answerPath[:len(answerPath)-len(".zst")]
	}
	if err := copyAnswer(tr.Run.OutputPath, answerPath); err != nil {
		tr.Result = model.InternalError(fmt.Sprintf("failed to store reference answer: %v", err))
		return tr
	}

	j.log.Info("stored reference answer", "problem", testcase.Problem.Name, "testcase", testcase.Name)
	tr.Result = model.UnverifiedResult()
	return tr
}

// buildAndRun performs the compile and execute stages, setting a terminal
// result and returning true when the pipeline must stop early.
func (j *Judge) buildAndRun(ctx context.Context, tr *model.TestRun) bool {
	solution, testcase := tr.Solution, tr.Testcase

	tr.Build = j.compiler.Build(ctx, solution)
	switch tr.Build.Status {
	case model.BuildFailed:
		tr.Result = model.CompilationError(tr.Build.CompilerOutput)
		return true
	case model.BuildSkipped:
		tr.Result = model.SkippedResult("no entry point file found")
		return true
	}

	limits := j.limitsFor(solution)
	tr.Run = j.runner.Run(ctx, tr.Build, testcase, limits)

	switch tr.Run.Kind {
	case model.ExitLaunchError:
		tr.Result = model.InternalError("failed to launch solution: " + tr.Run.LaunchError)
		return true
	case model.ExitTimeout:
		tr.Result = model.Timeout(limits.TimeLimit.Seconds())
		return true
	case model.ExitSignaled:
		tr.Result = model.RuntimeSignal(tr.Run.Signal)
		return true
	case model.ExitNormal:
		if tr.Run.ExitCode != 0 {
			tr.Result = model.RuntimeExit(tr.Run.ExitCode)
			return true
		}
	}

	if info, err := os.Stat(tr.Run.OutputPath); err != nil || info.IsDir() {
		tr.Result = model.FormatError("no output")
		return true
	}
	return false
}

func (j *Judge) verify(tr *model.TestRun) {
	problem := tr.Testcase.Problem
	opts := verifier.Options{
		AbsTol: problem.Config.VerifierOptions.AbsTol,
		RelTol: problem.Config.VerifierOptions.RelTol,
	}

	v, err := j.verifiers.Get(problem.VerifierName, opts)
	if err != nil {
		tr.Result = model.InternalError(err.Error())
		return
	}

	expectedPath, err := j.scratch.Materialize(tr.Testcase.AnswerPath)
	if err != nil {
		tr.Result = model.InternalError(err.Error())
		return
	}

	verdict, err := safeVerify(v, expectedPath, tr.Run.OutputPath)
	if err != nil {
		tr.Result = model.InternalError(err.Error())
		return
	}
	tr.Verdict = &verdict

	switch {
	case verdict.Correct:
		tr.Result = model.Correct(tr.Testcase.Score)
	case verdict.FormatIssue:
		tr.Result = model.FormatError(verdict.Detail)
	default:
		tr.Result = model.WrongAnswer(verdict.Detail)
	}
}

// safeVerify contains panics from custom verifier implementations so a
// broken verifier poisons one pair, not the whole run.
func safeVerify(v verifier.Verifier, expectedPath, actualPath string) (verdict model.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("verifier panicked: %v", r)
		}
	}()
	return v.Verify(expectedPath, actualPath)
}

func (j *Judge) limitsFor(solution *model.Solution) runner.Limits {
	pcfg := solution.Problem.Config

	var langDefault float64
	if lang := j.registry.ByID(solution.LanguageID); lang != nil {
		langDefault = lang.DefaultTimeLimitSeconds
	}

	seconds := pcfg.TimeLimitSeconds(solution.LanguageID, langDefault)
	return runner.Limits{
		TimeLimit: time.Duration(seconds * float64(time.Second)),
		MemoryMB:  pcfg.Limits.MemoryMB,
	}
}

func skipReason(solution *model.Solution) (bool, string) {
	switch {
	case solution.Ambiguous:
		return true, "solution mixes several languages"
	case solution.LanguageID == "":
		return true, "no supported language detected"
	case len(solution.Files) == 0:
		return true, "no source files found"
	}
	return false, ""
}

func copyAnswer(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
