// Package model holds the entities that flow through the grading pipeline:
// problems, testcases, solutions, build artifacts, run outcomes and the
// final per-pair test runs.
package model

import (
	"fmt"
	"time"

	"github.com/YuriyGuts/hammurabi/internal/config"
)

// Problem is one directory under the problem root that carries a
// solutions/ and testcases/ subtree. Immutable after discovery.
type Problem struct {
	Name    string
	RootDir string

	// InputFilename / OutputFilename are set when the problem expects
	// file-based I/O instead of stdin/stdout.
	InputFilename  string
	OutputFilename string

	VerifierName string

	// Config is the effective per-problem configuration merged during
	// discovery.
	Config *config.ProblemConfig

	Testcases []*Testcase
	Solutions []*Solution

	// Reference is the special `_reference` author, split out of
	// Solutions during discovery.
	Reference *Solution
}

// Testcase is one (input, expected answer) pair of a problem.
type Testcase struct {
	Problem    *Problem
	Name       string
	InputPath  string
	AnswerPath string
	Score      int

	// MissingAnswer marks a testcase whose expected answer file was not
	// found during discovery. Such pairs grade as MA without running.
	MissingAnswer bool
}

// Solution is one author's submission directory for a problem.
type Solution struct {
	Problem *Problem
	Author  string
	RootDir string

	// LanguageID is empty when no supported language was detected.
	LanguageID string
	// Ambiguous is set when the author directory mixes several languages.
	Ambiguous bool

	Files     []string
	EntryFile string
}

// ID identifies a solution within one grading run. It keys the build cache.
func (s *Solution) ID() string {
	return s.Problem.Name + "/" + s.Author
}

func (s *Solution) String() string {
	return fmt.Sprintf("problem %s, author %s, language %s", s.Problem.Name, s.Author, s.LanguageID)
}

// BuildStatus is the outcome of a compilation attempt.
type BuildStatus int

const (
	BuildOK BuildStatus = iota
	BuildFailed
	BuildSkipped
)

// BuildArtifact is the result of compiling one solution. One per solution
// per grading run, cached by solution identity.
type BuildArtifact struct {
	Solution *Solution
	Status   BuildStatus

	// ArtifactPath is the compiled binary, or the entry source file for
	// interpreted languages.
	ArtifactPath string
	// ArtifactDir is the directory run commands execute in.
	ArtifactDir string
	// MainClass is resolved from the entry file for JVM languages.
	MainClass string

	CompilerOutput string
	CompileElapsed time.Duration
}

// ExitKind classifies how a subprocess ended.
type ExitKind int

const (
	ExitNormal ExitKind = iota
	ExitTimeout
	ExitSignaled
	ExitLaunchError
)

// RunOutcome is the raw record of one subprocess execution. The judge
// derives the result from it; the runner never interprets correctness.
type RunOutcome struct {
	Kind     ExitKind
	ExitCode int
	Signal   int

	// LaunchError holds the spawn failure detail for ExitLaunchError.
	LaunchError string

	StdoutPath string
	StderrPath string
	// OutputPath is the file the verifier should compare against the
	// expected answer. Usually equal to StdoutPath.
	OutputPath string

	WallElapsed time.Duration
	// LeanElapsed excludes harness-side setup around the subprocess.
	LeanElapsed time.Duration

	// MemoryLimitMB records the advisory limit of the run, whether or not
	// the run recipe passes it on to the runtime.
	MemoryLimitMB int
}

// Verdict is the verifier-level correctness decision.
type Verdict struct {
	Correct bool
	Detail  string

	// FormatIssue tags the detail as a format-class failure, which the
	// judge maps to OF instead of WA.
	FormatIssue bool
}

// TestRun is the fully judged record of one (solution, testcase) pair.
type TestRun struct {
	Solution *Solution
	Testcase *Testcase

	JudgeStart time.Time
	JudgeEnd   time.Time

	Build   *BuildArtifact
	Run     *RunOutcome
	Verdict *Verdict

	Result Result

	// Cancelled marks pairs that the interrupted run either never executed
	// or cancelled while they were executing.
	Cancelled bool
}

// JudgeElapsed is the wall time of the whole pipeline for this pair,
// including build on a cache miss.
func (tr *TestRun) JudgeElapsed() time.Duration {
	if tr.JudgeEnd.IsZero() || tr.JudgeStart.IsZero() {
		return 0
	}
	return tr.JudgeEnd.Sub(tr.JudgeStart)
}

// LeanElapsed is the subprocess-only time of the run, zero when the pair
// never ran.
func (tr *TestRun) LeanElapsed() time.Duration {
	if tr.Run == nil {
		return 0
	}
	return tr.Run.LeanElapsed
}
