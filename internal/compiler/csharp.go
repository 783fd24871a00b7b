package compiler

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/YuriyGuts/hammurabi/internal/model"
)

// dotnet build refuses bare .cs sources, so the compiler synthesizes a
// minimal project file next to them before invoking the compile recipe.
// AssemblyName is the problem name; the build output is <problem>.dll.
const csprojTemplate = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <OutputType>Exe</OutputType>
    <TargetFramework>%s</TargetFramework>
    <EnableDefaultItems>false</EnableDefaultItems>
    <AssemblyName>%s</AssemblyName>
  </PropertyGroup>
  <ItemGroup>
%s  </ItemGroup>
</Project>
`

func writeCSharpProject(solution *model.Solution) error {
	var includes strings.Builder
	for _, file := range solution.Files {
		if strings.EqualFold(filepath.Ext(file), ".cs") {
			fmt.Fprintf(&includes, "    <Compile Include=%q />\n", filepath.Base(file))
		}
	}

	content := fmt.Sprintf(csprojTemplate,
		dotnetTargetFramework(), solution.Problem.Name, includes.String())
	path := filepath.Join(solution.RootDir, solution.Problem.Name+".csproj")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	return nil
}

var (
	dotnetOnce sync.Once
	dotnetTF   string
)

// dotnetTargetFramework maps the first installed SDK ("10.0.101 [/path]")
// to its target framework, probing once per grading run. Detection
// failures fall back to net8.0.
func dotnetTargetFramework() string {
	dotnetOnce.Do(func() {
		dotnetTF = "net8.0"

		out, err := exec.Command("dotnet", "--list-sdks").Output()
		if err != nil {
			return
		}
		first := strings.TrimSpace(string(out))
		if idx := strings.IndexByte(first, '\n'); idx >= 0 {
			first = first[:idx]
		}
		version, _, _ := strings.Cut(first, " ")
		if major, _, found := strings.Cut(version, "."); found && major != "" {
			dotnetTF = "net" + major + ".0"
		}
	})
	return dotnetTF
}
