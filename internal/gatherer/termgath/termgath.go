// Package termgath prints grading progress to the terminal.
package termgath

import (
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/YuriyGuts/hammurabi/internal/gatherer"
	"github.com/YuriyGuts/hammurabi/internal/model"
	"github.com/YuriyGuts/hammurabi/pkg/statuses"
)

type TerminalGatherer struct {
	mu        sync.Mutex
	startedAt time.Time

	lastProblem string
	lastAuthor  string
}

var _ gatherer.ResultGatherer = (*TerminalGatherer)(nil)

func New() *TerminalGatherer {
	return &TerminalGatherer{startedAt: time.Now()}
}

func (t *TerminalGatherer) StartRun(problemRoot string, totalPairs int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Printf("Grading %d test runs from %s\n", totalPairs, problemRoot)
}

func (t *TerminalGatherer) StartPair(*model.Solution, *model.Testcase) {}

func (t *TerminalGatherer) FinishPair(tr *model.TestRun) {
	t.mu.Lock()
	defer t.mu.Unlock()

	problem := tr.Solution.Problem.Name
	if problem != t.lastProblem {
		fmt.Println()
		color.New(color.Bold).Printf("Judging problem: %s\n", problem)
		fmt.Println("===========================================================================")
		t.lastProblem = problem
		t.lastAuthor = ""
	}
	if tr.Solution.Author != t.lastAuthor {
		fmt.Println()
		fmt.Printf("Author: %s   Language: %s\n", tr.Solution.Author, tr.Solution.LanguageID)
		fmt.Println("---------------------------------------------------------------------------")
		t.lastAuthor = tr.Solution.Author
	}

	lean := tr.LeanElapsed().Milliseconds()
	judge := tr.JudgeElapsed().Milliseconds()
	fmt.Printf("Test case: %s (score: %d) -> %s, Time: %d ms, Overall: %d (+%d) ms\n",
		tr.Testcase.Name, tr.Testcase.Score,
		statusColor(tr.Result.Status).Sprintf("[%s] %s", tr.Result.Status, tr.Result.Status.Human()),
		lean, judge, judge-lean)

	if tr.Result.Status == statuses.InternalError && tr.Result.Detail != "" {
		color.Red("  %s", tr.Result.Detail)
	}
}

func (t *TerminalGatherer) FinishRun(testRuns []*model.TestRun, cancelled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, tr := range testRuns {
		total += tr.Result.Score
	}

	fmt.Println()
	if cancelled {
		color.Yellow("Grading interrupted; results below are partial.")
	}
	fmt.Printf("Finished %d test runs in %s, total score %d\n",
		len(testRuns), time.Since(t.startedAt).Round(time.Millisecond), total)
}

func statusColor(s statuses.Status) *color.Color {
	switch s {
	case statuses.CorrectAnswer:
		return color.New(color.FgGreen)
	case statuses.InternalError:
		return color.New(color.FgRed, color.Bold)
	case statuses.Skipped, statuses.MissingAnswer, statuses.Unverified:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
