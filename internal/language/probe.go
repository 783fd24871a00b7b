package language

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

const probeTimeout = 5 * time.Second

// ToolchainInfo is the probe result for one language.
type ToolchainInfo struct {
	Language     *Language
	CompilerPath string
	Version      string
	OK           bool
	Error        string
}

// Available probes each registered language's toolchain by running its
// version command with a short timeout.
func (r *Registry) Available(ctx context.Context) []ToolchainInfo {
	result := make([]ToolchainInfo, 0, len(r.languages))
	for _, lang := range r.Languages() {
		result = append(result, probe(ctx, lang))
	}
	return result
}

func probe(ctx context.Context, lang *Language) ToolchainInfo {
	info := ToolchainInfo{Language: lang}

	argv, err := shlex.Split(lang.VersionCmd)
	if err != nil || len(argv) == 0 {
		info.Error = "malformed version command"
		return info
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.CompilerPath = path

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	// Some toolchains (javac, ruby) print the version to stderr.
	out, err := exec.CommandContext(probeCtx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		info.Error = err.Error()
		return info
	}

	info.Version = firstLine(string(out))
	info.OK = true
	return info
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
