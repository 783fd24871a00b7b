package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultTimeLimitSeconds applies to languages without a configured limit.
const DefaultTimeLimitSeconds = 20.0

// VerifierOptions tunes tolerance-based verifiers per problem.
type VerifierOptions struct {
	AbsTol float64 `toml:"abs_tol"`
	RelTol float64 `toml:"rel_tol"`
}

// problemOverrides is the raw shape of an optional problem.toml.
type problemOverrides struct {
	Verifier          string          `toml:"verifier"`
	VerifierOptions   VerifierOptions `toml:"verifier_options"`
	ProblemInputFile  string          `toml:"problem_input_file"`
	ProblemOutputFile string          `toml:"problem_output_file"`
	TimeFactor        float64         `toml:"time_factor"`
	TestcaseScore     map[string]int  `toml:"testcase_score"`
	Limits            struct {
		Time map[string]float64 `toml:"time"`
	} `toml:"limits"`
}

// ProblemConfig is the effective configuration for one problem: the
// grader-level settings with per-problem overrides merged in.
type ProblemConfig struct {
	Verifier          string
	VerifierOptions   VerifierOptions
	ProblemInputFile  string
	ProblemOutputFile string
	TimeFactor        float64
	TestcaseScore     map[string]int

	Limits    LimitsConfig
	Security  SecurityConfig
	RunnerCfg RunnerConfig
}

// ProblemConfigFilename is looked up in each problem directory.
const ProblemConfigFilename = "problem.toml"

// MergeProblem builds the effective configuration for the problem rooted at
// problemDir. A missing problem.toml yields the plain grader configuration.
func (c *EffectiveConfig) MergeProblem(problemDir string) (*ProblemConfig, error) {
	merged := &ProblemConfig{
		Verifier:      "ExactBytes",
		VerifierOptions: VerifierOptions{AbsTol: 1e-6, RelTol: 1e-6},
		TimeFactor:    1.0,
		TestcaseScore: map[string]int{},
		Limits:        c.copyLimits(),
		Security:      c.Security,
		RunnerCfg:     c.Runner,
	}

	path := filepath.Join(problemDir, ProblemConfigFilename)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return merged, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var overrides problemOverrides
	if err := toml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if overrides.Verifier != "" {
		merged.Verifier = overrides.Verifier
	}
	if overrides.VerifierOptions.AbsTol > 0 {
		merged.VerifierOptions.AbsTol = overrides.VerifierOptions.AbsTol
	}
	if overrides.VerifierOptions.RelTol > 0 {
		merged.VerifierOptions.RelTol = overrides.VerifierOptions.RelTol
	}
	merged.ProblemInputFile = overrides.ProblemInputFile
	merged.ProblemOutputFile = overrides.ProblemOutputFile
	if overrides.TimeFactor > 0 {
		merged.TimeFactor = overrides.TimeFactor
	}
	for name, score := range overrides.TestcaseScore {
		merged.TestcaseScore[name] = score
	}
	for lang, secs := range overrides.Limits.Time {
		merged.Limits.Time[lang] = secs
	}

	return merged, nil
}

func (c *EffectiveConfig) copyLimits() LimitsConfig {
	limits := c.Limits
	limits.Time = make(map[string]float64, len(c.Limits.Time))
	for lang, secs := range c.Limits.Time {
		limits.Time[lang] = secs
	}
	return limits
}

// TimeLimitSeconds computes the effective limit for one language:
// base[language] x time_limit_multiplier x problem time factor.
func (pc *ProblemConfig) TimeLimitSeconds(languageID string, languageDefault float64) float64 {
	base, ok := pc.Limits.Time[languageID]
	if !ok {
		base = languageDefault
		if base <= 0 {
			base = DefaultTimeLimitSeconds
		}
	}
	return base * pc.Limits.TimeLimitMultiplier * pc.TimeFactor
}

// ScoreFor returns the configured score for a testcase, defaulting to 1.
func (pc *ProblemConfig) ScoreFor(testcaseName string) int {
	if score, ok := pc.TestcaseScore[testcaseName]; ok {
		return score
	}
	return 1
}
