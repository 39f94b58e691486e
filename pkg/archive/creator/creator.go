// Package creator materializes lease archive directories.
package creator

import (
	"context"

	"github.com/leaseworks/lade/pkg/appctx"
	"github.com/leaseworks/lade/pkg/archive"
	"github.com/leaseworks/lade/pkg/cloud"
	"github.com/leaseworks/lade/pkg/config"
	"github.com/leaseworks/lade/pkg/errtypes"
	"github.com/leaseworks/lade/pkg/utils"
)

// Creator builds the canonical archive directory plus the agency's
// configured subfolders and records the result.
type Creator struct {
	provider  string
	locations archive.LocationStore
}

// New returns a Creator persisting locations under the given provider name.
func New(provider string, locations archive.LocationStore) *Creator {
	return &Creator{provider: provider, locations: locations}
}

// Create materializes {base_path}/{lease_number} and its subfolders.
//
// A missing base path is a terminal errtypes.BasePathMissing: the operator
// must fix the agency config or mount, retrying cannot help. An empty
// subfolder list is a soft failure (Success=false, no error) so the
// workflow can report it without tripping the retry policy.
func (c *Creator) Create(ctx context.Context, lease *archive.Lease, port cloud.Port, cfg *config.AgencyStorageConfig) (*archive.CreationResult, error) {
	log := appctx.GetLogger(ctx)
	dir := cfg.ArchivePath(lease.LeaseNumber)

	base, err := port.Metadata(ctx, cfg.RunsheetArchiveBasePath)
	if err != nil {
		if _, ok := err.(errtypes.IsNotFound); ok {
			return nil, errtypes.BasePathMissing(cfg.RunsheetArchiveBasePath)
		}
		return nil, err
	}
	if !base.IsDir() {
		return nil, errtypes.BasePathMissing(cfg.RunsheetArchiveBasePath + " is not a directory")
	}

	if len(cfg.Subfolders) == 0 {
		log.Warn().Str("agency", string(cfg.Agency)).Msg("no subfolders configured, declining archive creation")
		return &archive.CreationResult{Success: false, Path: dir}, nil
	}

	entry, err := port.CreateDirectory(ctx, dir, true)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errtypes.DirectoryCreationFailed(dir)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if appctx.SoftDeadlineExceeded(ctx) {
		return nil, context.DeadlineExceeded
	}
	if _, err := port.CreateDirectoryTree(ctx, dir, cfg.Subfolders, true); err != nil {
		return nil, err
	}

	// A missing share link is tolerated; the next discovery pass fills it in.
	var shareURL string
	var loc *archive.CloudLocation
	link, err := port.CreateShareLink(ctx, dir, true)
	if err != nil {
		return nil, err
	}

	loc = &archive.CloudLocation{
		Provider:    c.provider,
		Path:        dir,
		Name:        utils.BaseName(dir),
		IsDirectory: true,
	}
	if link != nil {
		shareURL = link.URL
		loc.ShareURL = link.URL
		loc.ShareExpiresAt = link.ExpiresAt
		loc.IsPublic = link.IsPublic
	}
	loc, err = c.locations.UpsertLocation(ctx, loc)
	if err != nil {
		return nil, err
	}

	log.Info().Str("path", dir).Str("lease", lease.ID).Int("subfolders", len(cfg.Subfolders)).Msg("archive created")
	return &archive.CreationResult{
		Success:  true,
		Path:     dir,
		ShareURL: shareURL,
		Location: loc,
	}, nil
}
