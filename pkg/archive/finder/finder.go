// Package finder locates existing lease archive directories.
package finder

import (
	"context"

	"github.com/leaseworks/lade/pkg/appctx"
	"github.com/leaseworks/lade/pkg/archive"
	"github.com/leaseworks/lade/pkg/cloud"
	"github.com/leaseworks/lade/pkg/config"
	"github.com/leaseworks/lade/pkg/utils"
)

// Finder searches for the canonical archive directory of a lease. It never
// creates directories and writes nothing when the search comes up empty.
type Finder struct {
	provider  string
	locations archive.LocationStore
}

// New returns a Finder persisting locations under the given provider name.
func New(provider string, locations archive.LocationStore) *Finder {
	return &Finder{provider: provider, locations: locations}
}

// Find checks whether {base_path}/{lease_number} exists and, if so, ensures
// a share link and upserts the location record. Provider errors propagate
// untouched so the job runner can apply its retry policy.
func (f *Finder) Find(ctx context.Context, lease *archive.Lease, port cloud.Port, cfg *config.AgencyStorageConfig) (*archive.SearchResult, error) {
	dir := cfg.ArchivePath(lease.LeaseNumber)
	log := appctx.GetLogger(ctx)

	entries, err := port.ListFiles(ctx, dir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		// Empty and non-existent look the same in a listing; both mean
		// there is no archive worth linking yet.
		log.Debug().Str("path", dir).Msg("archive not found")
		return &archive.SearchResult{Found: false, Path: dir}, nil
	}

	link, err := port.CreateShareLink(ctx, dir, true)
	if err != nil {
		return nil, err
	}

	loc := &archive.CloudLocation{
		Provider:    f.provider,
		Path:        dir,
		Name:        utils.BaseName(dir),
		IsDirectory: true,
	}
	if link != nil {
		loc.ShareURL = link.URL
		loc.ShareExpiresAt = link.ExpiresAt
		loc.IsPublic = link.IsPublic
	}
	loc, err = f.locations.UpsertLocation(ctx, loc)
	if err != nil {
		return nil, err
	}

	log.Info().Str("path", dir).Str("lease", lease.ID).Msg("archive found")
	return &archive.SearchResult{
		Found:    true,
		Path:     dir,
		ShareURL: loc.ShareURL,
		Location: loc,
	}, nil
}
