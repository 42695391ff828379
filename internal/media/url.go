// Package media builds absolute URLs for uploaded files.
package media

import "strings"

// ImageURL joins base and path with exactly one slash. Empty paths give "" and
// absolute http(s) URLs are returned unchanged.
func ImageURL(base, path string) string {
	if path == "" {
		return ""
	}
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(path, "//") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
