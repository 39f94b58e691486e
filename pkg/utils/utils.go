// Package utils holds small helpers shared across the engine, mostly cloud
// path string handling. Cloud paths are absolute, slash-separated, with one
// leading slash and no trailing slash; "/" denotes the root.
package utils

import (
	"path"
	"strings"
)

// NormalizePath returns p in canonical form: exactly one leading slash,
// no trailing slash, no duplicate or relative segments. An empty or blank
// input normalizes to "/".
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// NormalizeSegment strips surrounding whitespace and slashes from a single
// path segment. Blank segments normalize to the empty string and are
// treated as absent by callers.
func NormalizeSegment(s string) string {
	return strings.Trim(strings.TrimSpace(s), "/")
}

// JoinPath joins base and elem and normalizes the result.
func JoinPath(base string, elem ...string) string {
	parts := append([]string{base}, elem...)
	return NormalizePath(path.Join(parts...))
}

// SplitHead splits a normalized absolute path into its first segment and
// the absolute remainder. "/A/b/c" yields ("A", "/b/c"); "/A" yields
// ("A", "/"); the root yields ("", "/").
func SplitHead(p string) (string, string) {
	p = NormalizePath(p)
	if p == "/" {
		return "", "/"
	}
	trimmed := strings.TrimPrefix(p, "/")
	i := strings.Index(trimmed, "/")
	if i < 0 {
		return trimmed, "/"
	}
	return trimmed[:i], "/" + trimmed[i+1:]
}

// BaseName returns the last segment of a normalized path, or "" for the root.
func BaseName(p string) string {
	p = NormalizePath(p)
	if p == "/" {
		return ""
	}
	return path.Base(p)
}
