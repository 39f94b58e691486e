// Package detector scans archive directories for report artifacts.
package detector

import (
	"context"
	"regexp"

	"github.com/leaseworks/lade/pkg/archive"
	"github.com/leaseworks/lade/pkg/cloud"
)

// Detect lists dir and returns the filenames matching pattern. It is a pure
// query: no database writes, transient listing errors propagate so the
// caller's prior detection state stays intact.
func Detect(ctx context.Context, port cloud.Port, dir string, pattern *regexp.Regexp) (*archive.DetectionResult, error) {
	entries, err := port.ListFiles(ctx, dir)
	if err != nil {
		return nil, err
	}
	matches := []string{}
	for _, e := range entries {
		if pattern.MatchString(e.Name) {
			matches = append(matches, e.Name)
		}
	}
	return &archive.DetectionResult{
		Found:         len(matches) > 0,
		MatchingFiles: matches,
		DirectoryPath: dir,
	}, nil
}
