// Package report owns the per-run report directory and the machine-readable
// run log. HTML rendering is a separate collaborator behind the Reporter
// interface.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/YuriyGuts/hammurabi/internal/config"
	"github.com/YuriyGuts/hammurabi/internal/model"
)

// Reporter renders the aggregated result list into report files.
type Reporter interface {
	Generate(testRuns []*model.TestRun, outputDir string) error
}

// ResolveRunDir expands the report folder template ({dt}, {hostname}) and
// creates the directory, replacing a leftover one with the same name.
func ResolveRunDir(cfg *config.EffectiveConfig) (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	name := cfg.Locations.ReportFolderTemplate
	name = strings.ReplaceAll(name, "{dt}", time.Now().Format("20060102-150405"))
	name = strings.ReplaceAll(name, "{hostname}", hostname)

	dir := filepath.Join(cfg.Locations.ReportRoot, name)
	if _, err := os.Stat(dir); err == nil {
		_ = os.RemoveAll(dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	return dir, nil
}

// WriteCSVLog writes one row per test run in aggregation order.
func WriteCSVLog(testRuns []*model.TestRun, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"problem", "author", "language", "testcase", "status", "score", "lean_ms", "judge_ms", "detail"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, tr := range testRuns {
		row := []string{
			tr.Solution.Problem.Name,
			tr.Solution.Author,
			tr.Solution.LanguageID,
			tr.Testcase.Name,
			string(tr.Result.Status),
			strconv.Itoa(tr.Result.Score),
			strconv.FormatInt(tr.LeanElapsed().Milliseconds(), 10),
			strconv.FormatInt(tr.JudgeElapsed().Milliseconds(), 10),
			tr.Result.Detail,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}
