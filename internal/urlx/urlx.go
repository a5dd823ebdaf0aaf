// Package urlx joins admin-API base URLs with request paths.
package urlx

import "strings"

// Join concatenates a base URL and a path with exactly one slash at the
// seam, regardless of how many either side carries.
func Join(base string, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
