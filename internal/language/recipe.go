package language

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// RecipeVars are the substitution values for a compile or run template.
type RecipeVars struct {
	Source      string
	SourceDir   string
	Artifact    string
	ArtifactDir string
	InputFile   string
	OutputFile  string
	MemoryMB    int
	MainClass   string
}

// Expand substitutes the template variables into a recipe.
func (v RecipeVars) Expand(template string) string {
	replacer := strings.NewReplacer(
		"{source}", v.Source,
		"{source_dir}", v.SourceDir,
		"{artifact}", v.Artifact,
		"{artifact_dir}", v.ArtifactDir,
		"{input_file}", v.InputFile,
		"{output_file}", v.OutputFile,
		"{memory_mb}", fmt.Sprintf("%d", v.MemoryMB),
		"{main_class}", v.MainClass,
	)
	return replacer.Replace(template)
}

// ExpandArgv expands the template and splits it into an argv, respecting
// shell-style quoting for paths with spaces.
func (v RecipeVars) ExpandArgv(template string) ([]string, error) {
	argv, err := shlex.Split(v.Expand(template))
	if err != nil {
		return nil, fmt.Errorf("malformed recipe %q: %w", template, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty recipe %q", template)
	}
	return argv, nil
}
