// internal/nodeid/address.go
package nodeid

import (
	"reflect"
	"strconv"
	"strings"
)

// String serializes the Address into its canonical path string representation.
func (a *Address) String() string {
	if a == nil {
		return ""
	}

	var sb strings.Builder
	for i, segment := range a.Path {
		if i > 0 {
			sb.WriteRune('.')
		}
		sb.WriteString(segment.Name)
		if segment.HasIndex() {
			sb.WriteRune('[')
			sb.WriteString(strconv.Itoa(segment.Index))
			sb.WriteRune(']')
		}
	}

	return sb.String()
}

// Equal checks for deep equality between two Address pointers.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return reflect.DeepEqual(a.Path, other.Path)
}

// Head returns the first segment of the address.
func (a *Address) Head() (PathSegment, bool) {
	if a == nil || len(a.Path) == 0 {
		return PathSegment{}, false
	}
	return a.Path[0], true
}

// Tail returns the last segment of the address.
func (a *Address) Tail() (PathSegment, bool) {
	if a == nil || len(a.Path) == 0 {
		return PathSegment{}, false
	}
	return a.Path[len(a.Path)-1], true
}
