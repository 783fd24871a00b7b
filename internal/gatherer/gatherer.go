// Package gatherer defines how grading progress leaves the dispatcher:
// each transport (terminal, NATS) implements ResultGatherer.
package gatherer

import "github.com/YuriyGuts/hammurabi/internal/model"

// ResultGatherer receives progress callbacks from the dispatcher. Calls
// arrive from worker goroutines; implementations must be safe for
// concurrent use.
type ResultGatherer interface {
	StartRun(problemRoot string, totalPairs int)
	StartPair(solution *model.Solution, testcase *model.Testcase)
	FinishPair(testRun *model.TestRun)
	FinishRun(testRuns []*model.TestRun, cancelled bool)
}

// Multi fans callbacks out to several gatherers.
type Multi []ResultGatherer

func (m Multi) StartRun(problemRoot string, totalPairs int) {
	for _, g := range m {
		g.StartRun(problemRoot, totalPairs)
	}
}

func (m Multi) StartPair(solution *model.Solution, testcase *model.Testcase) {
	for _, g := range m {
		g.StartPair(solution, testcase)
	}
}

func (m Multi) FinishPair(testRun *model.TestRun) {
	for _, g := range m {
		g.FinishPair(testRun)
	}
}

func (m Multi) FinishRun(testRuns []*model.TestRun, cancelled bool) {
	for _, g := range m {
		g.FinishRun(testRuns, cancelled)
	}
}
