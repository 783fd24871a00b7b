// Package natsgath streams grading events to a NATS subject so live
// consumers (scoreboards, dashboards) can follow a run in progress.
package natsgath

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/YuriyGuts/hammurabi/api"
	"github.com/YuriyGuts/hammurabi/internal/gatherer"
	"github.com/YuriyGuts/hammurabi/internal/model"
)

type natsGatherer struct {
	nc      *nats.Conn
	subject string
	runUuid string

	reportStdout bool
	reportStderr bool

	log *slog.Logger
}

var _ gatherer.ResultGatherer = (*natsGatherer)(nil)

// New creates a NATS gatherer publishing to the given subject. The
// reportStdout/reportStderr switches mirror the security configuration:
// when off, captured streams never leave the machine.
func New(nc *nats.Conn, runUuid, subject string, reportStdout, reportStderr bool, log *slog.Logger) gatherer.ResultGatherer {
	return &natsGatherer{
		nc:           nc,
		subject:      subject,
		runUuid:      runUuid,
		reportStdout: reportStdout,
		reportStderr: reportStderr,
		log:          log,
	}
}

func (s *natsGatherer) send(msg interface{}) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn("failed to marshal event", "error", err)
		return
	}
	if err := s.nc.Publish(s.subject, b); err != nil {
		s.log.Warn("failed to publish event to NATS", "error", err)
	}
}

func (s *natsGatherer) StartRun(problemRoot string, totalPairs int) {
	s.send(api.NewStartRun(s.runUuid, problemRoot, totalPairs))
}

func (s *natsGatherer) StartPair(solution *model.Solution, testcase *model.Testcase) {
	s.send(api.NewStartPair(s.runUuid, solution.Problem.Name, solution.Author, testcase.Name))
}

func (s *natsGatherer) FinishPair(tr *model.TestRun) {
	msg := api.FinishPair{
		Header:   api.NewHeader(s.runUuid, api.FinishPairMsg),
		Problem:  tr.Solution.Problem.Name,
		Author:   tr.Solution.Author,
		Language: tr.Solution.LanguageID,
		Testcase: tr.Testcase.Name,
		Status:   string(tr.Result.Status),
		Score:    tr.Result.Score,
		Detail:   truncateBlock(tr.Result.Detail),
		Stats:    s.runStats(tr),
	}
	s.send(msg)
}

func (s *natsGatherer) FinishRun(testRuns []*model.TestRun, cancelled bool) {
	total := 0
	for _, tr := range testRuns {
		total += tr.Result.Score
	}
	s.send(api.NewFinishRun(s.runUuid, len(testRuns), total, cancelled))
}

func (s *natsGatherer) runStats(tr *model.TestRun) *api.RunStats {
	if tr.Run == nil {
		return nil
	}
	stats := &api.RunStats{
		ExitCode:   tr.Run.ExitCode,
		WallMillis: tr.Run.WallElapsed.Milliseconds(),
		LeanMillis: tr.Run.LeanElapsed.Milliseconds(),
	}
	if tr.Run.Kind == model.ExitSignaled {
		sig := tr.Run.Signal
		stats.ExitSignal = &sig
	}
	if s.reportStdout {
		stats.Stdout = truncateBlock(readCapped(tr.Run.StdoutPath))
	}
	if s.reportStderr {
		stats.Stderr = truncateBlock(readCapped(tr.Run.StderrPath))
	}
	return stats
}

// truncateBlock bounds captured text to the api stream rectangle
// (MaxStreamHeight lines of MaxStreamWidth bytes) before it is embedded in
// an event payload, so one chatty solution cannot flood the subject.
func truncateBlock(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(s))
	for lines := 0; scanner.Scan(); lines++ {
		if lines == api.MaxStreamHeight {
			b.WriteString("\n[...]")
			break
		}
		if lines > 0 {
			b.WriteByte('\n')
		}
		line := scanner.Text()
		if len(line) > api.MaxStreamWidth {
			line = line[:api.MaxStreamWidth] + "[...]"
		}
		b.WriteString(line)
	}
	return b.String()
}

const maxCapturedBytes = 64 * 1024

func readCapped(path string) string {
	if path == "" {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, maxCapturedBytes)
	n, _ := f.Read(buf)
	return string(buf[:n])
}
