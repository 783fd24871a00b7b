package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"

	"github.com/YuriyGuts/hammurabi/internal/compiler"
	"github.com/YuriyGuts/hammurabi/internal/config"
	"github.com/YuriyGuts/hammurabi/internal/discovery"
	"github.com/YuriyGuts/hammurabi/internal/dispatch"
	"github.com/YuriyGuts/hammurabi/internal/gatherer"
	"github.com/YuriyGuts/hammurabi/internal/gatherer/natsgath"
	"github.com/YuriyGuts/hammurabi/internal/gatherer/termgath"
	"github.com/YuriyGuts/hammurabi/internal/judge"
	"github.com/YuriyGuts/hammurabi/internal/language"
	"github.com/YuriyGuts/hammurabi/internal/report"
	"github.com/YuriyGuts/hammurabi/internal/runner"
	"github.com/YuriyGuts/hammurabi/internal/scratch"
	"github.com/YuriyGuts/hammurabi/internal/verifier"
)

func main() {
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(log)

	cmd := &cli.Command{
		Name:  "hammurabi",
		Usage: "automated judge for algorithmic programming contests",
		Commands: []*cli.Command{
			gradeCommand(log),
			languagesCommand(log),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Error("grading failed", "error", err)
		os.Exit(1)
	}
}

func gradeCommand(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "grade",
		Usage: "check one or more solutions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "conf", Usage: "use an alternative config file"},
			&cli.StringSliceFlag{Name: "problem", Usage: "grade only these problems"},
			&cli.StringSliceFlag{Name: "author", Usage: "grade only these authors' solutions"},
			&cli.StringSliceFlag{Name: "testcase", Usage: "run only these test cases (by name, no extensions)"},
			&cli.BoolFlag{Name: "reference", Usage: "run only the reference solutions to produce the correct answers"},
			&cli.IntFlag{Name: "parallelism", Value: 1, Usage: "number of concurrent judge workers"},
			&cli.StringFlag{Name: "nats", Usage: "NATS server URL to stream live results to"},
			&cli.StringFlag{Name: "nats-subject", Value: "hammurabi.results", Usage: "NATS subject for live results"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			printBanner()
			return runGrade(ctx, cmd, log)
		},
	}
}

func runGrade(ctx context.Context, cmd *cli.Command, log *slog.Logger) error {
	cfg, err := config.Load(cmd.String("conf"))
	if err != nil {
		return err
	}

	registry := language.Default()
	disc := discovery.New(registry, cfg, log)
	inv, err := disc.Discover(cfg.Locations.ProblemRoot)
	if err != nil {
		return err
	}

	scratchDir, err := scratch.New()
	if err != nil {
		return err
	}
	defer func() {
		if err := scratchDir.Cleanup(); err != nil {
			log.Warn("failed to clean scratch directory", "error", err)
		}
	}()

	comp := compiler.New(registry, scratchDir, cfg.Limits.MemoryMB, log)
	run, err := runner.New(cfg.Runner.Name, runner.Deps{
		Registry: registry,
		Scratch:  scratchDir,
		Log:      log,
	})
	if err != nil {
		return err
	}

	j := judge.New(registry, comp, run, verifier.NewRegistry(), scratchDir, log)

	runUuid := uuid.NewString()
	gatherers := gatherer.Multi{termgath.New()}
	if url := cmd.String("nats"); url != "" {
		nc, err := nats.Connect(url)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
		}
		defer nc.Drain()
		gatherers = append(gatherers, natsgath.New(
			nc, runUuid, cmd.String("nats-subject"),
			cfg.Security.ReportStdout, cfg.Security.ReportStderr, log))
	}

	mode := dispatch.ModeGrade
	if cmd.Bool("reference") {
		mode = dispatch.ModeReference
	}

	dispatcher := dispatch.New(j, gatherers, int(cmd.Int("parallelism")), log)
	results := dispatcher.Run(ctx, inv, buildFilter(cmd), mode)

	runDir, err := report.ResolveRunDir(cfg)
	if err != nil {
		return err
	}
	csvPath := filepath.Join(runDir, "testruns.csv")
	if err := report.WriteCSVLog(results, csvPath); err != nil {
		return err
	}

	log.Info("run log written", "path", csvPath, "run", runUuid)
	return nil
}

// buildFilter turns the --problem/--author/--testcase selectors into the
// predicate the dispatcher enumerates with. Empty selectors match all.
func buildFilter(cmd *cli.Command) dispatch.Filter {
	problems := mapset.NewSet(cmd.StringSlice("problem")...)
	authors := mapset.NewSet(cmd.StringSlice("author")...)
	testcases := mapset.NewSet(cmd.StringSlice("testcase")...)

	return func(problem, author, testcase string) bool {
		if problems.Cardinality() > 0 && !problems.Contains(problem) {
			return false
		}
		if authors.Cardinality() > 0 && !authors.Contains(author) {
			return false
		}
		if testcases.Cardinality() > 0 && !testcases.Contains(testcase) {
			return false
		}
		return true
	}
}

func languagesCommand(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "languages",
		Usage: "describe the configured language compilers/interpreters",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			printBanner()
			for _, info := range language.Default().Available(ctx) {
				fmt.Println()
				color.New(color.Bold).Printf("--- %s [%s] ---\n", info.Language.Name, info.Language.ID)
				if info.OK {
					fmt.Printf("path: %s\n", info.CompilerPath)
					fmt.Printf("version: %s\n", info.Version)
				} else {
					color.Red("unavailable: %s", info.Error)
				}
			}
			return nil
		},
	}
}

func printBanner() {
	color.New(color.Bold).Println("Hammurabi: because code is law")
}
