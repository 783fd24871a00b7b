// Package verifier compares a solution's output against the expected
// answer. Verifiers are registered by name; problem configs select one.
package verifier

import (
	"fmt"
	"sort"

	"github.com/YuriyGuts/hammurabi/internal/model"
)

// Verifier decides whether an actual output file matches the expected one.
// Implementations read both files in a single pass and never mutate them.
type Verifier interface {
	Verify(expectedPath, actualPath string) (model.Verdict, error)
}

// Options tunes tolerance-based verifiers.
type Options struct {
	AbsTol float64
	RelTol float64
}

// Factory builds a verifier instance for one problem.
type Factory func(opts Options) Verifier

// Registry holds named verifier factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry preloaded with the builtin verifiers.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("ExactBytes", func(Options) Verifier { return ExactBytes{} })
	r.Register("IntegerSequence", func(Options) Verifier { return IntegerSequence{} })
	r.Register("FloatSequence", func(opts Options) Verifier {
		return FloatSequence{AbsTol: opts.AbsTol, RelTol: opts.RelTol}
	})
	r.Register("WordSequence", func(Options) Verifier { return WordSequence{} })
	return r
}

// Register binds a verifier factory to a name, replacing any previous one.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Get builds the named verifier. Unknown names are an error the judge
// surfaces as an internal-error result for the problem's runs.
func (r *Registry) Get(name string, opts Options) (Verifier, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown verifier %q", name)
	}
	return factory(opts), nil
}

// Names lists the registered verifier names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
