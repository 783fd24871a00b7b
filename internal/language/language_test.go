package language_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuriyGuts/hammurabi/internal/language"
)

func TestDetect(t *testing.T) {
	r := language.Default()

	cases := map[string]string{
		"hworld.c":        "c",
		"hworld.cpp":      "cpp",
		"Hworld.java":     "java",
		"hworld.py":       "python",
		"hworld.rb":       "ruby",
		"hworld.js":       "javascript",
		"solution/Aux.cs": "csharp",
		"HWORLD.PY":       "python",
	}
	for path, want := range cases {
		lang := r.Detect(path)
		require.NotNil(t, lang, "expected %s to be detected", path)
		assert.Equal(t, want, lang.ID)
	}

	assert.Nil(t, r.Detect("notes.txt"))
	assert.Nil(t, r.Detect("run.sh"))
	assert.Nil(t, r.Detect("01.in"))
	assert.Nil(t, r.Detect("Makefile"))
}

func TestClassify(t *testing.T) {
	r := language.Default()

	lang, class := r.Classify([]string{"a.py", "b.py", "readme.txt"})
	require.Equal(t, language.ClassUnique, class)
	assert.Equal(t, "python", lang.ID)

	_, class = r.Classify([]string{"a.py", "b.rb"})
	assert.Equal(t, language.ClassAmbiguous, class)

	_, class = r.Classify([]string{"readme.txt", "data.in"})
	assert.Equal(t, language.ClassUnknown, class)

	_, class = r.Classify(nil)
	assert.Equal(t, language.ClassUnknown, class)
}

func TestDefaultRegistryRecipes(t *testing.T) {
	r := language.Default()

	for _, lang := range r.Languages() {
		assert.NotEmpty(t, lang.RunTpl, "language %s has no run recipe", lang.ID)
		assert.NotEmpty(t, lang.VersionCmd, "language %s has no version probe", lang.ID)
		assert.Greater(t, lang.DefaultTimeLimitSeconds, 0.0)
	}

	assert.True(t, r.ByID("cpp").Compiled())
	assert.False(t, r.ByID("python").Compiled())
}

func TestRecipeExpansion(t *testing.T) {
	vars := language.RecipeVars{
		Source:      "/src/hworld.cpp",
		Artifact:    "/tmp/scratch/hworld",
		ArtifactDir: "/tmp/scratch",
		MemoryMB:    512,
		MainClass:   "Hworld",
	}

	argv, err := vars.ExpandArgv("g++ -std=c++11 -O3 {source} -o {artifact}")
	require.NoError(t, err)
	assert.Equal(t, []string{"g++", "-std=c++11", "-O3", "/src/hworld.cpp", "-o", "/tmp/scratch/hworld"}, argv)

	argv, err = vars.ExpandArgv("java -Xmx{memory_mb}m -cp {artifact_dir} {main_class}")
	require.NoError(t, err)
	assert.Equal(t, []string{"java", "-Xmx512m", "-cp", "/tmp/scratch", "Hworld"}, argv)
}

func TestRecipeExpansionQuotedPaths(t *testing.T) {
	vars := language.RecipeVars{Source: "/src/my solution/a.py"}

	argv, err := vars.ExpandArgv(`python3 "{source}"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "/src/my solution/a.py"}, argv)
}
