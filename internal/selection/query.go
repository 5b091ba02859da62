package selection

import (
	"fmt"
	"strings"
)

// query is a parsed solid selection item. up and down count how many levels
// of ancestors and descendants to add; -1 means all of them.
type query struct {
	name string
	up   int
	down int
}

// parseQuery understands `name`, `*name`, `name*`, and any number of leading
// or trailing `+`, one per level.
func parseQuery(raw string) (query, error) {
	s := strings.TrimSpace(raw)
	q := query{}

	switch {
	case strings.HasPrefix(s, "*"):
		q.up = -1
		s = s[1:]
	default:
		for strings.HasPrefix(s, "+") {
			q.up++
			s = s[1:]
		}
	}

	switch {
	case strings.HasSuffix(s, "*"):
		q.down = -1
		s = s[:len(s)-1]
	default:
		for strings.HasSuffix(s, "+") {
			q.down++
			s = s[:len(s)-1]
		}
	}

	if s == "" || strings.ContainsAny(s, "*+ ") {
		return query{}, fmt.Errorf("invalid query %q", raw)
	}
	q.name = s
	return q, nil
}
