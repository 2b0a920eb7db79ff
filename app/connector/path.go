package connector

import (
	"strconv"
	"strings"
)

// Lookup walks a dot path through decoded JSON. Numeric segments index into
// arrays. Any missing segment yields (nil, false); an empty path returns root.
func Lookup(root any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return root, root != nil
	}

	current := root
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
		if current == nil {
			return nil, false
		}
	}
	return current, true
}
