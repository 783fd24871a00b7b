// Package language is the static catalog of supported languages with their
// compile and run recipes. Recipes are declarative command templates over
// the variables {source}, {source_dir}, {artifact}, {artifact_dir},
// {input_file}, {output_file}, {memory_mb} and {main_class}; adding a
// language means registering one more descriptor.
package language

import (
	"path/filepath"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Language describes how solutions in one language are compiled and run.
type Language struct {
	ID         string
	Name       string
	Extensions []string

	// CompileTpl is empty for interpreted languages.
	CompileTpl string
	RunTpl     string

	// VersionCmd probes the toolchain for the `languages` command.
	VersionCmd string

	DefaultTimeLimitSeconds float64
}

// Compiled reports whether the language has a compile step.
func (l *Language) Compiled() bool {
	return l.CompileTpl != ""
}

// Registry maps file extensions to language descriptors.
type Registry struct {
	languages   []*Language
	byExtension map[string]*Language
	excluded    mapset.Set[string]
}

// NewRegistry builds a registry from the given descriptors.
func NewRegistry(languages ...*Language) *Registry {
	r := &Registry{
		languages:   languages,
		byExtension: make(map[string]*Language),
		// Extensions that never count as source files.
		excluded: mapset.NewSet(".sh", ".in", ".out", ".txt", ".md", ""),
	}
	for _, lang := range languages {
		for _, ext := range lang.Extensions {
			r.byExtension[ext] = lang
		}
	}
	return r
}

// Default returns the registry of languages the grader ships with.
func Default() *Registry {
	return NewRegistry(
		&Language{
			ID:         "c",
			Name:       "C",
			Extensions: []string{".c"},
			CompileTpl: "gcc --std=c99 -O2 {source} -o {artifact}",
			RunTpl:     "{artifact}",
			VersionCmd: "gcc --version",

			DefaultTimeLimitSeconds: 4,
		},
		&Language{
			ID:         "cpp",
			Name:       "C++",
			Extensions: []string{".cpp", ".cc", ".cxx"},
			CompileTpl: "g++ -std=c++11 -O3 {source} -o {artifact}",
			RunTpl:     "{artifact}",
			VersionCmd: "g++ --version",

			DefaultTimeLimitSeconds: 4,
		},
		&Language{
			ID:         "csharp",
			Name:       "C#",
			Extensions: []string{".cs"},
			// The compiler synthesizes a .csproj in {source_dir} before
			// this runs; AssemblyName is the problem name, so the build
			// drops {artifact} (a .dll) into {artifact_dir}.
			CompileTpl: "dotnet build {source_dir} -c Release -o {artifact_dir}",
			RunTpl:     "dotnet {artifact}",
			VersionCmd: "dotnet --version",

			DefaultTimeLimitSeconds: 6,
		},
		&Language{
			ID:         "java",
			Name:       "Java",
			Extensions: []string{".java"},
			CompileTpl: "javac -d {artifact_dir} {source}",
			RunTpl:     "java -XX:+UseSerialGC -Xmx{memory_mb}m -cp {artifact_dir} {main_class}",
			VersionCmd: "javac -version",

			DefaultTimeLimitSeconds: 8,
		},
		&Language{
			ID:         "javascript",
			Name:       "JavaScript",
			Extensions: []string{".js"},
			RunTpl:     "node {source}",
			VersionCmd: "node --version",

			DefaultTimeLimitSeconds: 20,
		},
		&Language{
			ID:         "python",
			Name:       "Python",
			Extensions: []string{".py"},
			RunTpl:     "python3 {source}",
			VersionCmd: "python3 --version",

			DefaultTimeLimitSeconds: 20,
		},
		&Language{
			ID:         "ruby",
			Name:       "Ruby",
			Extensions: []string{".rb"},
			RunTpl:     "ruby {source}",
			VersionCmd: "ruby --version",

			DefaultTimeLimitSeconds: 20,
		},
	)
}

// Languages returns the registered descriptors sorted by ID.
func (r *Registry) Languages() []*Language {
	result := make([]*Language, len(r.languages))
	copy(result, r.languages)
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// ByID looks a language up by its short tag.
func (r *Registry) ByID(id string) *Language {
	for _, lang := range r.languages {
		if lang.ID == id {
			return lang
		}
	}
	return nil
}

// Detect maps a file path to a language by extension, nil when unknown.
func (r *Registry) Detect(path string) *Language {
	ext := strings.ToLower(filepath.Ext(path))
	if r.excluded.Contains(ext) {
		return nil
	}
	return r.byExtension[ext]
}

// IsSourceFile reports whether the path counts as a source file at all.
func (r *Registry) IsSourceFile(path string) bool {
	return !r.excluded.Contains(strings.ToLower(filepath.Ext(path)))
}

// Classification is the result of classifying a set of source files.
type Classification int

const (
	ClassUnknown Classification = iota
	ClassUnique
	ClassAmbiguous
)

// Classify returns the unique language shared by all files, or reports the
// set as ambiguous (several languages) or unknown (none detected).
func (r *Registry) Classify(files []string) (*Language, Classification) {
	seen := mapset.NewSet[string]()
	var last *Language
	for _, file := range files {
		if lang := r.Detect(file); lang != nil {
			seen.Add(lang.ID)
			last = lang
		}
	}
	switch seen.Cardinality() {
	case 0:
		return nil, ClassUnknown
	case 1:
		return last, ClassUnique
	default:
		return nil, ClassAmbiguous
	}
}
