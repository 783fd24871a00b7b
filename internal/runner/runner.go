// Package runner executes one compiled solution against one test case as a
// subprocess with enforced wall-clock limits and captured streams. The
// runner reports what happened and never retries; interpreting the outcome
// is the judge's job.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/YuriyGuts/hammurabi/internal/language"
	"github.com/YuriyGuts/hammurabi/internal/model"
	"github.com/YuriyGuts/hammurabi/internal/scratch"
)

// GracePeriod is the interval between the graceful termination signal and
// the forced kill after a timeout.
const GracePeriod = 500 * time.Millisecond

// Limits are the effective per-run resource constraints.
type Limits struct {
	TimeLimit time.Duration
	// MemoryMB is advisory; it is passed to runtimes whose command line
	// supports it and recorded otherwise.
	MemoryMB int
}

// Runner executes a build against a testcase under limits.
type Runner interface {
	Run(ctx context.Context, build *model.BuildArtifact, testcase *model.Testcase, limits Limits) *model.RunOutcome
}

// Deps are the collaborators a runner implementation needs.
type Deps struct {
	Registry *language.Registry
	Scratch  *scratch.Dir
	Log      *slog.Logger
}

// Factory builds a named runner implementation.
type Factory func(deps Deps) Runner

var factories = map[string]Factory{
	"subprocess": func(deps Deps) Runner { return NewSubprocessRunner(deps) },
}

// New resolves the runner implementation selected by the configuration.
func New(name string, deps Deps) (Runner, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown runner %q", name)
	}
	return factory(deps), nil
}
