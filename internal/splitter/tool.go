package splitter

import (
	"fmt"
	"os/exec"
	"strings"
)

// ToolSpec describes how to locate and sanity-check an external tool.
type ToolSpec struct {
	Program   string
	CheckArgs []string
	CheckText string
}

// Tool is a located external tool.
type Tool struct {
	Path string
}

// ZipTool is the external splitter dependency. `zip -v` prints a banner
// containing "Zip" on every supported platform.
var ZipTool = ToolSpec{
	Program:   "zip",
	CheckArgs: []string{"-v"},
	CheckText: "Zip",
}

// LookTool locates an external tool and verifies it answers its check
// invocation. A missing or broken tool is an invocation-level failure: it is
// detected once at startup, before any archive is touched.
func LookTool(s ToolSpec) (*Tool, error) {
	path, err := exec.LookPath(s.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to find `%s`: %w", s.Program, err)
	}

	out, err := exec.Command(path, s.CheckArgs...).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute `%s %s`: %w", path, strings.Join(s.CheckArgs, " "), err)
	}
	if !strings.Contains(string(out), s.CheckText) {
		return nil, fmt.Errorf("`%s %s` did not print %q", s.Program, strings.Join(s.CheckArgs, " "), s.CheckText)
	}

	return &Tool{Path: path}, nil
}
