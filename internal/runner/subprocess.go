package runner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/YuriyGuts/hammurabi/internal/language"
	"github.com/YuriyGuts/hammurabi/internal/model"
	"github.com/YuriyGuts/hammurabi/internal/scratch"
)

// SubprocessRunner runs solutions as plain subprocesses in their own
// process group. The wall clock is authoritative for the time limit.
type SubprocessRunner struct {
	registry *language.Registry
	scratch  *scratch.Dir
	grace    time.Duration
	log      *slog.Logger
}

func NewSubprocessRunner(deps Deps) *SubprocessRunner {
	return &SubprocessRunner{
		registry: deps.Registry,
		scratch:  deps.Scratch,
		grace:    GracePeriod,
		log:      deps.Log,
	}
}

func (r *SubprocessRunner) Run(ctx context.Context, build *model.BuildArtifact, testcase *model.Testcase, limits Limits) *model.RunOutcome {
	wallStart := time.Now()
	outcome := &model.RunOutcome{MemoryLimitMB: limits.MemoryMB}

	launchFailed := func(err error) *model.RunOutcome {
		outcome.Kind = model.ExitLaunchError
		outcome.LaunchError = err.Error()
		outcome.WallElapsed = time.Since(wallStart)
		return outcome
	}

	lang := r.registry.ByID(build.Solution.LanguageID)
	if lang == nil {
		return launchFailed(errUnknownLanguage(build.Solution.LanguageID))
	}

	runDir, err := r.scratch.SolutionDir(build.Solution.ID())
	if err != nil {
		return launchFailed(err)
	}

	inputPath, err := r.scratch.Materialize(testcase.InputPath)
	if err != nil {
		return launchFailed(err)
	}

	outcome.StdoutPath = filepath.Join(runDir, testcase.Name+".stdout")
	outcome.StderrPath = filepath.Join(runDir, testcase.Name+".stderr")
	outputFile := filepath.Join(runDir, testcase.Name+".out")

	vars := language.RecipeVars{
		Source:      build.Solution.EntryFile,
		SourceDir:   build.Solution.RootDir,
		Artifact:    build.ArtifactPath,
		ArtifactDir: build.ArtifactDir,
		InputFile:   inputPath,
		OutputFile:  outputFile,
		MemoryMB:    limits.MemoryMB,
		MainClass:   build.MainClass,
	}
	argv, err := vars.ExpandArgv(lang.RunTpl)
	if err != nil {
		return launchFailed(err)
	}

	workDir := build.ArtifactDir
	problem := testcase.Problem

	// File-based I/O: the program expects its input under a well-known
	// name in the working directory and writes its output next to it.
	if problem.InputFilename != "" {
		if err := copyFile(inputPath, filepath.Join(workDir, problem.InputFilename)); err != nil {
			return launchFailed(err)
		}
		defer os.Remove(filepath.Join(workDir, problem.InputFilename))
	}

	stdout, err := os.Create(outcome.StdoutPath)
	if err != nil {
		return launchFailed(err)
	}
	defer stdout.Close()
	stderr, err := os.Create(outcome.StderrPath)
	if err != nil {
		return launchFailed(err)
	}
	defer stderr.Close()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = workDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Own process group so a timeout can take down the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdin *os.File
	if !strings.Contains(lang.RunTpl, "{input_file}") && problem.InputFilename == "" {
		stdin, err = os.Open(inputPath)
		if err != nil {
			return launchFailed(err)
		}
		defer stdin.Close()
		cmd.Stdin = stdin
	}

	r.log.Debug("spawning solution process", "solution", build.Solution.ID(), "testcase", testcase.Name, "cmd", argv)

	leanStart := time.Now()
	if err := cmd.Start(); err != nil {
		return launchFailed(err)
	}

	var timedOut atomic.Bool
	timer := time.AfterFunc(limits.TimeLimit, func() {
		timedOut.Store(true)
		r.terminateGroup(cmd.Process.Pid)
	})

	waitDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.terminateGroup(cmd.Process.Pid)
		case <-waitDone:
		}
	}()

	waitErr := cmd.Wait()
	outcome.LeanElapsed = time.Since(leanStart)
	close(waitDone)
	timer.Stop()

	switch {
	case timedOut.Load():
		outcome.Kind = model.ExitTimeout
	case waitErr == nil:
		outcome.Kind = model.ExitNormal
	default:
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			status := exitErr.Sys().(syscall.WaitStatus)
			if status.Signaled() {
				outcome.Kind = model.ExitSignaled
				outcome.Signal = int(status.Signal())
			} else {
				outcome.Kind = model.ExitNormal
				outcome.ExitCode = status.ExitStatus()
			}
		} else {
			outcome.Kind = model.ExitLaunchError
			outcome.LaunchError = waitErr.Error()
		}
	}

	outcome.OutputPath = r.resolveOutputPath(lang, problem, workDir, outputFile, outcome.StdoutPath)
	outcome.WallElapsed = time.Since(wallStart)
	return outcome
}

// terminateGroup signals the process group gracefully, waits out the grace
// period, then kills whatever is left.
func (r *SubprocessRunner) terminateGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	time.Sleep(r.grace)
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// resolveOutputPath picks the file the verifier should read: an explicit
// {output_file}, then the problem's named output file, then stdout.
func (r *SubprocessRunner) resolveOutputPath(lang *language.Language, problem *model.Problem, workDir, outputFile, stdoutPath string) string {
	if strings.Contains(lang.RunTpl, "{output_file}") {
		return outputFile
	}
	if problem.OutputFilename != "" {
		return filepath.Join(workDir, problem.OutputFilename)
	}
	return stdoutPath
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

type errUnknownLanguage string

func (e errUnknownLanguage) Error() string {
	return "no registered language with id " + string(e)
}
