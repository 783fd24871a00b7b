// Package discovery walks the problem root and builds the inventory of
// problems, solutions and testcases.
//
// Expected layout:
//
//	<problem_root>/<problem>/
//	  solutions/<author>/...source files...
//	  testcases/NN.in         (or NN.in.zst)
//	  answers/NN.out          (or NN.out.zst)
//	  problem.toml            (optional overrides)
package discovery

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/YuriyGuts/hammurabi/internal/config"
	"github.com/YuriyGuts/hammurabi/internal/language"
	"github.com/YuriyGuts/hammurabi/internal/model"
)

// ReferenceAuthor is the directory name of the special author whose output
// defines the expected answers. Other authors starting with `_` are
// reserved and skipped.
const ReferenceAuthor = "_reference"

// Inventory is the discovered problem tree in lexicographic order.
type Inventory struct {
	Problems []*model.Problem
}

// Discoverer walks a problem root using a language registry for source
// classification.
type Discoverer struct {
	registry *language.Registry
	cfg      *config.EffectiveConfig
	log      *slog.Logger
}

func New(registry *language.Registry, cfg *config.EffectiveConfig, log *slog.Logger) *Discoverer {
	return &Discoverer{registry: registry, cfg: cfg, log: log}
}

// Discover builds the inventory for every valid problem directory under
// root. Malformed problem directories are skipped with a warning; missing
// answer files are recorded on the testcase but do not abort discovery.
func (d *Discoverer) Discover(root string) (*Inventory, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("problem root %s is not accessible: %w", root, err)
	}

	dirs, err := immediateSubdirs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list problem root: %w", err)
	}

	inv := &Inventory{}
	for _, dir := range dirs {
		name := filepath.Base(dir)
		if !hasSubdir(dir, "solutions") || !hasSubdir(dir, "testcases") {
			d.log.Warn("skipping directory without solutions/ and testcases/", "problem", name)
			continue
		}

		problem, err := d.discoverProblem(name, dir)
		if err != nil {
			d.log.Warn("skipping malformed problem directory", "problem", name, "error", err)
			continue
		}
		inv.Problems = append(inv.Problems, problem)
	}
	return inv, nil
}

func (d *Discoverer) discoverProblem(name, dir string) (*model.Problem, error) {
	pcfg, err := d.cfg.MergeProblem(dir)
	if err != nil {
		return nil, err
	}

	problem := &model.Problem{
		Name:           name,
		RootDir:        dir,
		InputFilename:  pcfg.ProblemInputFile,
		OutputFilename: pcfg.ProblemOutputFile,
		VerifierName:   pcfg.Verifier,
		Config:         pcfg,
	}

	if err := d.discoverTestcases(problem); err != nil {
		return nil, err
	}
	if err := d.discoverSolutions(problem); err != nil {
		return nil, err
	}
	return problem, nil
}

func (d *Discoverer) discoverTestcases(problem *model.Problem) error {
	testcaseDir := filepath.Join(problem.RootDir, "testcases")
	entries, err := os.ReadDir(testcaseDir)
	if err != nil {
		return fmt.Errorf("failed to list testcases: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base, ok := testcaseName(entry.Name())
		if !ok {
			continue
		}

		answerPath, found := findAnswerFile(problem.RootDir, base)
		if !found {
			d.log.Warn("testcase has no matching answer file", "problem", problem.Name, "testcase", base)
		}

		problem.Testcases = append(problem.Testcases, &model.Testcase{
			Problem:       problem,
			Name:          base,
			InputPath:     filepath.Join(testcaseDir, entry.Name()),
			AnswerPath:    answerPath,
			Score:         problem.Config.ScoreFor(base),
			MissingAnswer: !found,
		})
	}

	sort.Slice(problem.Testcases, func(i, j int) bool {
		return problem.Testcases[i].Name < problem.Testcases[j].Name
	})
	return nil
}

func (d *Discoverer) discoverSolutions(problem *model.Problem) error {
	solutionsDir := filepath.Join(problem.RootDir, "solutions")
	authorDirs, err := immediateSubdirs(solutionsDir)
	if err != nil {
		return fmt.Errorf("failed to list solutions: %w", err)
	}

	for _, authorDir := range authorDirs {
		author := filepath.Base(authorDir)
		if strings.HasPrefix(author, "_") && author != ReferenceAuthor {
			d.log.Warn("skipping reserved author directory", "problem", problem.Name, "author", author)
			continue
		}

		solution := d.buildSolution(problem, author, authorDir)
		if author == ReferenceAuthor {
			problem.Reference = solution
			continue
		}
		problem.Solutions = append(problem.Solutions, solution)
	}

	sort.Slice(problem.Solutions, func(i, j int) bool {
		return problem.Solutions[i].Author < problem.Solutions[j].Author
	})
	return nil
}

func (d *Discoverer) buildSolution(problem *model.Problem, author, dir string) *model.Solution {
	solution := &model.Solution{
		Problem: problem,
		Author:  author,
		RootDir: dir,
	}

	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		if d.registry.IsSourceFile(path) {
			solution.Files = append(solution.Files, path)
		}
		return nil
	})
	sort.Strings(solution.Files)

	lang, class := d.registry.Classify(solution.Files)
	switch class {
	case language.ClassUnique:
		solution.LanguageID = lang.ID
		solution.EntryFile = entryPointFile(solution, lang)
	case language.ClassAmbiguous:
		solution.Ambiguous = true
		d.log.Warn("solution mixes several languages", "problem", problem.Name, "author", author)
	case language.ClassUnknown:
		d.log.Warn("no supported language detected", "problem", problem.Name, "author", author)
	}
	return solution
}

// entryPointFile picks the main source file: a single file wins, then a
// file named like the problem, then main/program.
func entryPointFile(solution *model.Solution, lang *language.Language) string {
	candidates := make([]string, 0, len(solution.Files))
	for _, file := range solution.Files {
		if hasLanguageExtension(lang, file) {
			candidates = append(candidates, file)
		}
	}

	if len(candidates) == 1 {
		return candidates[0]
	}
	for _, file := range candidates {
		if strings.EqualFold(stem(file), solution.Problem.Name) {
			return file
		}
	}
	for _, file := range candidates {
		name := strings.ToLower(stem(file))
		if name == "main" || name == "program" {
			return file
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

func hasLanguageExtension(lang *language.Language, file string) bool {
	ext := strings.ToLower(filepath.Ext(file))
	for _, e := range lang.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// testcaseName strips the .in / .in.zst suffix, reporting whether the file
// is a testcase input at all.
func testcaseName(filename string) (string, bool) {
	switch {
	case strings.HasSuffix(filename, ".in.zst"):
		return strings.TrimSuffix(filename, ".in.zst"), true
	case strings.HasSuffix(filename, ".in"):
		return strings.TrimSuffix(filename, ".in"), true
	default:
		return "", false
	}
}

// findAnswerFile resolves answers/NN.out, accepting a zstd-compressed
// variant. When absent it still returns the canonical plain path so that
// reference mode knows where to write generated answers.
func findAnswerFile(problemRoot, testcaseName string) (string, bool) {
	plain := filepath.Join(problemRoot, "answers", testcaseName+".out")
	if _, err := os.Stat(plain); err == nil {
		return plain, true
	}
	compressed := plain + ".zst"
	if _, err := os.Stat(compressed); err == nil {
		return compressed, true
	}
	return plain, false
}

func immediateSubdirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(root, entry.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

func hasSubdir(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && info.IsDir()
}
