package runconfig

import (
	"fmt"
	"sort"
	"strings"
)

// Violation is a single problem found in a run configuration.
type Violation struct {
	Path    string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// SortViolations orders violations by path, then message.
func SortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Path != vs[j].Path {
			return vs[i].Path < vs[j].Path
		}
		return vs[i].Message < vs[j].Message
	})
}

// InvalidConfigError reports every violation found in a run configuration.
type InvalidConfigError struct {
	Pipeline   string
	Violations []Violation
}

func (e *InvalidConfigError) Error() string {
	noun := "errors"
	if len(e.Violations) == 1 {
		noun = "error"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Invalid run config for pipeline %s (%d %s):", e.Pipeline, len(e.Violations), noun)
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v.String())
	}
	return b.String()
}

// ClassName is the classification tag carried across the worker boundary.
func (e *InvalidConfigError) ClassName() string { return "InvalidConfigError" }
