// Package dispatch fans discovered (solution, testcase) pairs out to a
// fixed pool of judge workers and aggregates the results in a stable
// enumeration order, independent of completion order.
package dispatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/YuriyGuts/hammurabi/internal/discovery"
	"github.com/YuriyGuts/hammurabi/internal/gatherer"
	"github.com/YuriyGuts/hammurabi/internal/judge"
	"github.com/YuriyGuts/hammurabi/internal/model"
)

// Filter selects which (problem, author, testcase) triples to grade.
type Filter func(problem, author, testcase string) bool

// All matches every pair.
func All(string, string, string) bool { return true }

// Mode selects between grading and reference-answer generation.
type Mode int

const (
	// ModeGrade judges every non-reference solution.
	ModeGrade Mode = iota
	// ModeReference runs only `_reference` solutions and stores their
	// output as the expected answers.
	ModeReference
)

// Dispatcher owns the worker pool for one grading run.
type Dispatcher struct {
	judge       *judge.Judge
	gath        gatherer.ResultGatherer
	parallelism int
	log         *slog.Logger
}

func New(j *judge.Judge, gath gatherer.ResultGatherer, parallelism int, log *slog.Logger) *Dispatcher {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Dispatcher{judge: j, gath: gath, parallelism: parallelism, log: log}
}

type pair struct {
	index    int
	solution *model.Solution
	testcase *model.Testcase
}

// Run grades every pair matched by the filter and returns one TestRun per
// pair in enumeration order. Cancelling the context stops new pairs from
// being dispatched, terminates in-flight subprocesses, and returns the
// partial results with unexecuted pairs tagged as cancelled.
func (d *Dispatcher) Run(ctx context.Context, inv *discovery.Inventory, filter Filter, mode Mode) []*model.TestRun {
	pairs := d.enumerate(inv, filter, mode)
	results := make([]*model.TestRun, len(pairs))

	d.gath.StartRun(rootOf(inv), len(pairs))

	queue := make(chan pair, d.parallelism*4)
	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		for _, p := range pairs {
			select {
			case queue <- p:
			case <-runCtx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < d.parallelism; w++ {
		g.Go(func() error {
			for p := range queue {
				if runCtx.Err() != nil {
					results[p.index] = d.cancelledRun(p)
					continue
				}
				d.gath.StartPair(p.solution, p.testcase)

				var tr *model.TestRun
				if mode == ModeReference {
					tr = d.judge.RunReference(runCtx, p.solution, p.testcase)
				} else {
					tr = d.judge.Run(runCtx, p.solution, p.testcase)
				}
				if runCtx.Err() != nil {
					tr.Cancelled = true
				}

				results[p.index] = tr
				d.gath.FinishPair(tr)
			}
			return nil
		})
	}

	_ = g.Wait()

	for i, p := range pairs {
		if results[i] == nil {
			results[i] = d.cancelledRun(p)
		}
	}

	cancelled := ctx.Err() != nil
	if mode == ModeGrade && !cancelled {
		results = fillMissingSolutions(results)
	}

	d.gath.FinishRun(results, cancelled)
	return results
}

// enumerate walks the inventory in lexicographic (problem, author,
// testcase) order; discovery already sorts each level.
func (d *Dispatcher) enumerate(inv *discovery.Inventory, filter Filter, mode Mode) []pair {
	var pairs []pair
	for _, problem := range inv.Problems {
		solutions := problem.Solutions
		if mode == ModeReference {
			if problem.Reference == nil {
				d.log.Warn("problem has no reference solution", "problem", problem.Name)
				continue
			}
			solutions = []*model.Solution{problem.Reference}
		}

		for _, solution := range solutions {
			for _, testcase := range problem.Testcases {
				if !filter(problem.Name, solution.Author, testcase.Name) {
					continue
				}
				pairs = append(pairs, pair{index: len(pairs), solution: solution, testcase: testcase})
			}
		}
	}
	return pairs
}

func (d *Dispatcher) cancelledRun(p pair) *model.TestRun {
	return &model.TestRun{
		Solution:  p.solution,
		Testcase:  p.testcase,
		Result:    model.SkippedResult("grading cancelled"),
		Cancelled: true,
	}
}

// fillMissingSolutions pads the result list so every author who graded at
// least one problem has a (skipped) entry for every graded problem. Report
// matrices stay rectangular that way.
func fillMissingSolutions(testRuns []*model.TestRun) []*model.TestRun {
	authors := map[string]bool{}
	problems := map[string]*model.Problem{}
	attempted := map[string]bool{}

	for _, tr := range testRuns {
		if tr.Solution.Author == discovery.ReferenceAuthor {
			continue
		}
		authors[tr.Solution.Author] = true
		problems[tr.Solution.Problem.Name] = tr.Solution.Problem
		attempted[tr.Solution.Problem.Name+"/"+tr.Solution.Author] = true
	}

	authorNames := make([]string, 0, len(authors))
	for author := range authors {
		authorNames = append(authorNames, author)
	}
	sort.Strings(authorNames)

	problemNames := make([]string, 0, len(problems))
	for name := range problems {
		problemNames = append(problemNames, name)
	}
	sort.Strings(problemNames)

	padded := testRuns
	for _, problemName := range problemNames {
		problem := problems[problemName]
		for _, author := range authorNames {
			if attempted[problemName+"/"+author] {
				continue
			}
			solution := &model.Solution{Problem: problem, Author: author}
			for _, testcase := range problem.Testcases {
				padded = append(padded, &model.TestRun{
					Solution: solution,
					Testcase: testcase,
					Result:   model.SkippedResult("no solution submitted"),
				})
			}
		}
	}
	return padded
}

func rootOf(inv *discovery.Inventory) string {
	if len(inv.Problems) == 0 {
		return ""
	}
	return filepath.Dir(inv.Problems[0].RootDir)
}
