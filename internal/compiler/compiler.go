// Package compiler turns discovered solutions into runnable artifacts.
// Builds are cached by solution identity for the lifetime of one grading
// run; concurrent callers of the same solution trigger exactly one compile.
package compiler

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/YuriyGuts/hammurabi/internal/language"
	"github.com/YuriyGuts/hammurabi/internal/model"
	"github.com/YuriyGuts/hammurabi/internal/scratch"
)

// CompileTimeout bounds a single compiler invocation.
const CompileTimeout = 60 * time.Second

type cacheEntry struct {
	once     sync.Once
	artifact *model.BuildArtifact
}

// Compiler builds solutions into the scratch directory.
type Compiler struct {
	registry *language.Registry
	scratch  *scratch.Dir
	memoryMB int
	log      *slog.Logger

	cache *xsync.MapOf[string, *cacheEntry]
}

func New(registry *language.Registry, scratchDir *scratch.Dir, memoryMB int, log *slog.Logger) *Compiler {
	return &Compiler{
		registry: registry,
		scratch:  scratchDir,
		memoryMB: memoryMB,
		log:      log,
		cache:    xsync.NewMapOf[string, *cacheEntry](),
	}
}

// Build compiles the solution, or returns the cached artifact. Peers asking
// for an in-flight build block until it completes and observe the same
// result.
func (c *Compiler) Build(ctx context.Context, solution *model.Solution) *model.BuildArtifact {
	entry, _ := c.cache.LoadOrStore(solution.ID(), &cacheEntry{})
	entry.once.Do(func() {
		entry.artifact = c.build(ctx, solution)
	})
	return entry.artifact
}

func (c *Compiler) build(ctx context.Context, solution *model.Solution) *model.BuildArtifact {
	artifact := &model.BuildArtifact{Solution: solution}

	lang := c.registry.ByID(solution.LanguageID)
	if lang == nil || solution.EntryFile == "" {
		artifact.Status = model.BuildSkipped
		return artifact
	}

	if !lang.Compiled() {
		artifact.Status = model.BuildOK
		artifact.ArtifactPath = solution.EntryFile
		artifact.ArtifactDir = solution.RootDir
		return artifact
	}

	dir, err := c.scratch.SolutionDir(solution.ID())
	if err != nil {
		artifact.Status = model.BuildFailed
		artifact.CompilerOutput = err.Error()
		return artifact
	}

	vars := language.RecipeVars{
		Source:      solution.EntryFile,
		SourceDir:   solution.RootDir,
		Artifact:    filepath.Join(dir, solution.Problem.Name),
		ArtifactDir: dir,
		MemoryMB:    c.memoryMB,
	}
	switch lang.ID {
	case "java":
		vars.MainClass = javaMainClass(solution.EntryFile)
	case "csharp":
		if err := writeCSharpProject(solution); err != nil {
			artifact.Status = model.BuildFailed
			artifact.CompilerOutput = err.Error()
			return artifact
		}
		vars.Artifact += ".dll"
	}

	argv, err := vars.ExpandArgv(lang.CompileTpl)
	if err != nil {
		artifact.Status = model.BuildFailed
		artifact.CompilerOutput = err.Error()
		return artifact
	}

	compileCtx, cancel := context.WithTimeout(ctx, CompileTimeout)
	defer cancel()

	c.log.Debug("compiling solution", "solution", solution.ID(), "cmd", argv)
	cmd := exec.CommandContext(compileCtx, argv[0], argv[1:]...)
	cmd.Dir = solution.RootDir
	// LC_ALL=C keeps compiler diagnostics ASCII so reports render cleanly.
	cmd.Env = append(os.Environ(), "LC_ALL=C", "LANG=C")

	started := time.Now()
	output, err := cmd.CombinedOutput()
	artifact.CompileElapsed = time.Since(started)
	artifact.CompilerOutput = string(output)
	artifact.ArtifactPath = vars.Artifact
	artifact.ArtifactDir = dir
	artifact.MainClass = vars.MainClass

	if compileCtx.Err() != nil {
		artifact.Status = model.BuildFailed
		artifact.CompilerOutput += "\ncompiler timed out"
		return artifact
	}
	if err != nil {
		artifact.Status = model.BuildFailed
		return artifact
	}

	artifact.Status = model.BuildOK
	return artifact
}

var (
	javaPackageRe = regexp.MustCompile(`(?m)^\s*package\s+([\w.]+)\s*;`)
	javaClassRe   = regexp.MustCompile(`(?m)\bclass\s+(\w+)`)
)

// javaMainClass resolves the fully qualified class name to launch from the
// entry file's package and class declarations.
func javaMainClass(entryFile string) string {
	data, err := os.ReadFile(entryFile)
	if err != nil {
		return ""
	}

	var class string
	if m := javaClassRe.FindSubmatch(data); m != nil {
		class = string(m[1])
	}
	if class == "" {
		return ""
	}
	if m := javaPackageRe.FindSubmatch(data); m != nil {
		return string(m[1]) + "." + class
	}
	return class
}
