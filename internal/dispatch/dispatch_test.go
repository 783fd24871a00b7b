package dispatch_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuriyGuts/hammurabi/internal/compiler"
	"github.com/YuriyGuts/hammurabi/internal/config"
	"github.com/YuriyGuts/hammurabi/internal/discovery"
	"github.com/YuriyGuts/hammurabi/internal/dispatch"
	"github.com/YuriyGuts/hammurabi/internal/gatherer"
	"github.com/YuriyGuts/hammurabi/internal/judge"
	"github.com/YuriyGuts/hammurabi/internal/language"
	"github.com/YuriyGuts/hammurabi/internal/model"
	"github.com/YuriyGuts/hammurabi/internal/runner"
	"github.com/YuriyGuts/hammurabi/internal/scratch"
	"github.com/YuriyGuts/hammurabi/internal/verifier"
	"github.com/YuriyGuts/hammurabi/pkg/statuses"
)

var testRegistry = language.NewRegistry(
	&language.Language{
		ID:         "script",
		Extensions: []string{".x"},
		RunTpl:     "sh {source}",

		DefaultTimeLimitSeconds: 5,
	},
	&language.Language{
		ID:         "countcc",
		Extensions: []string{".src"},
		CompileTpl: `sh -c "echo x >> {source_dir}/compile.count && cp {source} {artifact}"`,
		RunTpl:     "sh {artifact}",

		DefaultTimeLimitSeconds: 5,
	},
)

type nopGatherer struct{}

func (nopGatherer) StartRun(string, int)                        {}
func (nopGatherer) StartPair(*model.Solution, *model.Testcase)  {}
func (nopGatherer) FinishPair(*model.TestRun)                   {}
func (nopGatherer) FinishRun([]*model.TestRun, bool)            {}

var _ gatherer.ResultGatherer = nopGatherer{}

func newDispatcher(t *testing.T, parallelism int) *dispatch.Dispatcher {
	t.Helper()
	scratchDir, err := scratch.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = scratchDir.Cleanup() })

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	comp := compiler.New(testRegistry, scratchDir, 512, log)
	run, err := runner.New("subprocess", runner.Deps{Registry: testRegistry, Scratch: scratchDir, Log: log})
	require.NoError(t, err)

	j := judge.New(testRegistry, comp, run, verifier.NewRegistry(), scratchDir, log)
	return dispatch.New(j, nopGatherer{}, parallelism, log)
}

func newProblem(t *testing.T, name string, authors []string, testcases int) *model.Problem {
	t.Helper()
	pcfg, err := config.Default().MergeProblem(t.TempDir())
	require.NoError(t, err)

	problem := &model.Problem{
		Name:         name,
		RootDir:      t.TempDir(),
		VerifierName: "ExactBytes",
		Config:       pcfg,
	}

	dataDir := t.TempDir()
	for i := 0; i < testcases; i++ {
		tcName := string(rune('1' + i))
		inputPath := filepath.Join(dataDir, name+tcName+".in")
		require.NoError(t, os.WriteFile(inputPath, []byte("ping\n"), 0o644))
		answerPath := filepath.Join(dataDir, name+tcName+".out")
		require.NoError(t, os.WriteFile(answerPath, []byte("ping\n"), 0o644))

		problem.Testcases = append(problem.Testcases, &model.Testcase{
			Problem:    problem,
			Name:       tcName,
			InputPath:  inputPath,
			AnswerPath: answerPath,
			Score:      1,
		})
	}

	for _, author := range authors {
		dir := t.TempDir()
		entry := filepath.Join(dir, "sol.x")
		require.NoError(t, os.WriteFile(entry, []byte("cat\n"), 0o755))

		solution := &model.Solution{
			Problem:    problem,
			Author:     author,
			RootDir:    dir,
			LanguageID: "script",
			Files:      []string{entry},
			EntryFile:  entry,
		}
		if author == discovery.ReferenceAuthor {
			problem.Reference = solution
			continue
		}
		problem.Solutions = append(problem.Solutions, solution)
	}
	return problem
}

func pairKey(tr *model.TestRun) string {
	return tr.Solution.Problem.Name + "/" + tr.Solution.Author + "/" + tr.Testcase.Name
}

func TestRunAggregationOrder(t *testing.T) {
	inv := &discovery.Inventory{Problems: []*model.Problem{
		newProblem(t, "alpha", []string{"alice", "bob"}, 2),
		newProblem(t, "beta", []string{"alice", "bob"}, 2),
	}}

	d := newDispatcher(t, 4)
	results := d.Run(context.Background(), inv, dispatch.All, dispatch.ModeGrade)

	require.Len(t, results, 8)

	want := []string{
		"alpha/alice/1", "alpha/alice/2",
		"alpha/bob/1", "alpha/bob/2",
		"beta/alice/1", "beta/alice/2",
		"beta/bob/1", "beta/bob/2",
	}
	got := make([]string, len(results))
	for i, tr := range results {
		got[i] = pairKey(tr)
		assert.Equal(t, statuses.CorrectAnswer, tr.Result.Status)
	}
	assert.Equal(t, want, got)
}

func TestRunRegradeIsDeterministic(t *testing.T) {
	inv := &discovery.Inventory{Problems: []*model.Problem{
		newProblem(t, "alpha", []string{"alice", "bob"}, 2),
	}}

	d := newDispatcher(t, 2)
	first := d.Run(context.Background(), inv, dispatch.All, dispatch.ModeGrade)
	second := d.Run(context.Background(), inv, dispatch.All, dispatch.ModeGrade)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, pairKey(first[i]), pairKey(second[i]))
		assert.Equal(t, first[i].Result.Status, second[i].Result.Status)
		assert.Equal(t, first[i].Result.Detail, second[i].Result.Detail)
	}
}

func TestRunFilter(t *testing.T) {
	inv := &discovery.Inventory{Problems: []*model.Problem{
		newProblem(t, "alpha", []string{"alice", "bob"}, 2),
	}}

	d := newDispatcher(t, 1)
	results := d.Run(context.Background(), inv, func(problem, author, testcase string) bool {
		return author == "alice" && testcase == "1"
	}, dispatch.ModeGrade)

	require.Len(t, results, 1)
	assert.Equal(t, "alpha/alice/1", pairKey(results[0]))
}

func TestRunCompilesOncePerSolution(t *testing.T) {
	problem := newProblem(t, "alpha", nil, 3)

	dir := t.TempDir()
	entry := filepath.Join(dir, "sol.src")
	require.NoError(t, os.WriteFile(entry, []byte("cat\n"), 0o755))
	problem.Solutions = []*model.Solution{{
		Problem:    problem,
		Author:     "carol",
		RootDir:    dir,
		LanguageID: "countcc",
		Files:      []string{entry},
		EntryFile:  entry,
	}}

	inv := &discovery.Inventory{Problems: []*model.Problem{problem}}

	d := newDispatcher(t, 4)
	results := d.Run(context.Background(), inv, dispatch.All, dispatch.ModeGrade)
	require.Len(t, results, 3)

	data, err := os.ReadFile(filepath.Join(dir, "compile.count"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "x"))
}

func TestRunEmptyInventory(t *testing.T) {
	d := newDispatcher(t, 1)
	results := d.Run(context.Background(), &discovery.Inventory{}, dispatch.All, dispatch.ModeGrade)
	assert.Empty(t, results)
}

func TestRunPadsMissingSolutions(t *testing.T) {
	inv := &discovery.Inventory{Problems: []*model.Problem{
		newProblem(t, "alpha", []string{"alice", "bob"}, 1),
		newProblem(t, "beta", []string{"alice"}, 2),
	}}

	d := newDispatcher(t, 1)
	results := d.Run(context.Background(), inv, dispatch.All, dispatch.ModeGrade)

	// 4 graded pairs + 2 padded SKIP pairs for bob on beta.
	require.Len(t, results, 6)

	var padded []*model.TestRun
	for _, tr := range results {
		if tr.Result.Status == statuses.Skipped {
			padded = append(padded, tr)
		}
	}
	require.Len(t, padded, 2)
	for _, tr := range padded {
		assert.Equal(t, "bob", tr.Solution.Author)
		assert.Equal(t, "beta", tr.Solution.Problem.Name)
		assert.Zero(t, tr.Result.Score)
	}
}

func TestRunReferenceMode(t *testing.T) {
	problem := newProblem(t, "alpha", []string{"alice", discovery.ReferenceAuthor}, 1)
	// Point the answer at a path the reference run should create.
	answerPath := filepath.Join(t.TempDir(), "answers", "1.out")
	problem.Testcases[0].AnswerPath = answerPath
	problem.Testcases[0].MissingAnswer = true

	inv := &discovery.Inventory{Problems: []*model.Problem{problem}}

	d := newDispatcher(t, 1)
	results := d.Run(context.Background(), inv, dispatch.All, dispatch.ModeReference)

	// Only the reference solution runs; no other author is graded.
	require.Len(t, results, 1)
	assert.Equal(t, discovery.ReferenceAuthor, results[0].Solution.Author)
	assert.Equal(t, statuses.Unverified, results[0].Result.Status)
	assert.FileExists(t, answerPath)
}

func TestRunCancellation(t *testing.T) {
	problem := newProblem(t, "alpha", []string{"alice"}, 3)
	for _, solution := range problem.Solutions {
		require.NoError(t, os.WriteFile(solution.EntryFile, []byte("sleep 30\n"), 0o755))
	}
	problem.Config.Limits.Time["script"] = 60.0

	inv := &discovery.Inventory{Problems: []*model.Problem{problem}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Let the first pair start, then interrupt the run.
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	d := newDispatcher(t, 1)
	results := d.Run(ctx, inv, dispatch.All, dispatch.ModeGrade)

	require.Len(t, results, 3)
	cancelled := 0
	for _, tr := range results {
		require.NotNil(t, tr)
		if tr.Cancelled {
			cancelled++
		}
	}
	assert.Greater(t, cancelled, 0)
}
