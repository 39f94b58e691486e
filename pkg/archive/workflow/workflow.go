// Package workflow orchestrates archive discovery for a lease: search,
// optional creation, persistence and report detection. The workflow is
// strictly sequential within a job; cancellation and the advisory soft
// deadline are observed between phases.
package workflow

import (
	"context"

	"github.com/leaseworks/lade/pkg/appctx"
	"github.com/leaseworks/lade/pkg/archive"
	"github.com/leaseworks/lade/pkg/archive/creator"
	"github.com/leaseworks/lade/pkg/archive/detector"
	"github.com/leaseworks/lade/pkg/archive/finder"
	"github.com/leaseworks/lade/pkg/cloud"
	"github.com/leaseworks/lade/pkg/config"
	"github.com/leaseworks/lade/pkg/errtypes"
)

// Options tune a workflow instance.
type Options struct {
	// Strict controls how a missing base path surfaces. The runsheet job
	// runs strict so the runner's retry policy sees the terminal error;
	// best-effort callers get a shaped not-found result instead.
	Strict bool
}

// Result is the outcome of a discovery run.
type Result struct {
	Search    *archive.SearchResult
	Detection *archive.DetectionResult
}

// Workflow wires the domain services to their stores.
type Workflow struct {
	provider string
	clouds   cloud.Provider
	configs  config.Store
	leases   archive.LeaseStore

	finder  *finder.Finder
	creator *creator.Creator
	opts    Options
}

// New returns a workflow persisting through the given stores.
func New(provider string, clouds cloud.Provider, configs config.Store, leases archive.LeaseStore, locations archive.LocationStore, opts Options) *Workflow {
	return &Workflow{
		provider: provider,
		clouds:   clouds,
		configs:  configs,
		leases:   leases,
		finder:   finder.New(provider, locations),
		creator:  creator.New(provider, locations),
		opts:     opts,
	}
}

// Discover runs search-or-create and persists the archive reference on the
// lease. A not-found result with auto-create disabled is a success with
// Found=false; no lease fields are touched in that case.
func (w *Workflow) Discover(ctx context.Context, leaseID, userID string) (*archive.SearchResult, error) {
	log := appctx.GetLogger(ctx)

	lease, err := w.leases.GetLease(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	cfg, err := w.configs.Get(ctx, lease.Agency)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, errtypes.ConfigDisabled(string(lease.Agency))
	}

	port, err := w.clouds.PortForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	res, err := w.finder.Find(ctx, lease, port, cfg)
	if err != nil {
		return nil, err
	}
	if res.Found {
		if err := w.persistArchive(ctx, lease.ID, res.Location, res.ShareURL); err != nil {
			return nil, err
		}
		return res, nil
	}

	if !cfg.AutoCreateRunsheetArchives {
		log.Info().Str("lease", leaseID).Str("path", res.Path).Msg("archive absent and auto-create disabled")
		return res, nil
	}

	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	created, err := w.creator.Create(ctx, lease, port, cfg)
	if err != nil {
		if _, ok := err.(errtypes.IsBasePathMissing); ok && !w.opts.Strict {
			log.Warn().Str("lease", leaseID).Err(err).Msg("base path missing, best-effort mode returns not found")
			return &archive.SearchResult{Found: false, Path: res.Path}, nil
		}
		return nil, err
	}
	if !created.Success {
		return &archive.SearchResult{Found: false, Path: created.Path}, nil
	}

	if err := w.persistArchive(ctx, lease.ID, created.Location, created.ShareURL); err != nil {
		return nil, err
	}
	return &archive.SearchResult{
		Found:    true,
		Path:     created.Path,
		ShareURL: created.ShareURL,
		Location: created.Location,
	}, nil
}

// DiscoverFull runs Discover and, when an archive exists, scans it for
// report artifacts and persists the detection flag. When no archive exists
// detection is skipped and the prior flag stays untouched.
func (w *Workflow) DiscoverFull(ctx context.Context, leaseID, userID string) (*Result, error) {
	search, err := w.Discover(ctx, leaseID, userID)
	if err != nil {
		return nil, err
	}
	if !search.Found {
		return &Result{Search: search}, nil
	}

	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	lease, err := w.leases.GetLease(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	cfg, err := w.configs.Get(ctx, lease.Agency)
	if err != nil {
		return nil, err
	}
	port, err := w.clouds.PortForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	detection, err := detector.Detect(ctx, port, search.Path, cfg.ReportRegexp())
	if err != nil {
		return nil, err
	}
	if err := w.leases.SetRunsheetReportFound(ctx, leaseID, detection.Found); err != nil {
		return nil, err
	}

	appctx.GetLogger(ctx).Info().
		Str("lease", leaseID).
		Bool("report_found", detection.Found).
		Int("matches", len(detection.MatchingFiles)).
		Msg("report detection persisted")
	return &Result{Search: search, Detection: detection}, nil
}

func (w *Workflow) persistArchive(ctx context.Context, leaseID string, loc *archive.CloudLocation, link string) error {
	if loc == nil {
		return errtypes.InternalError("workflow: found archive without location record")
	}
	return w.leases.SetRunsheetArchive(ctx, leaseID, loc.ID, link)
}

// checkpoint gates the next phase: it honors cancellation and the advisory
// soft deadline, leaving in-flight work to the hard deadline.
func checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if appctx.SoftDeadlineExceeded(ctx) {
		return context.DeadlineExceeded
	}
	return nil
}
