// Package archive holds the lease-archive domain model: leases, cloud
// locations and the persistence interfaces the workflow writes through.
package archive

import (
	"context"
	"time"

	"github.com/leaseworks/lade/pkg/config"
)

// Lease is the unit of archival: a mineral/title record identified by
// (agency, lease number). Created and mutated by upstream ingestion; this
// engine only ever touches the three task-managed fields.
type Lease struct {
	ID          string
	Agency      config.Agency
	LeaseNumber string

	// Task-managed fields. Only the discovery workflow writes these.
	RunsheetArchiveID   int64
	RunsheetLink        string
	RunsheetReportFound bool
}

// TaskManagedFields are the lease fields owned by the discovery workflow.
// Writes touching only these fields must not re-trigger discovery.
var TaskManagedFields = []string{"runsheet_archive", "runsheet_link", "runsheet_report_found"}

// CloudLocation is a durable record of a provider path, identified by
// (provider, path). Leases reference locations by id; no graph walks.
type CloudLocation struct {
	ID             int64
	Provider       string
	Path           string
	Name           string
	IsDirectory    bool
	ShareURL       string
	ShareExpiresAt *time.Time
	IsPublic       bool
}

// SearchResult is the outcome of an archive search.
type SearchResult struct {
	Found    bool
	Path     string
	ShareURL string
	Location *CloudLocation
}

// CreationResult is the outcome of archive materialization.
type CreationResult struct {
	Success  bool
	Path     string
	ShareURL string
	Location *CloudLocation
}

// DetectionResult is the outcome of a report scan.
type DetectionResult struct {
	Found         bool
	MatchingFiles []string
	DirectoryPath string
}

// LeaseStore reads leases and performs the two atomic, bounded field
// updates the workflow needs. Each update is a single statement; no
// transaction spans a cloud call.
type LeaseStore interface {
	GetLease(ctx context.Context, id string) (*Lease, error)

	// SetRunsheetArchive atomically sets runsheet_archive and runsheet_link.
	SetRunsheetArchive(ctx context.Context, leaseID string, locationID int64, link string) error

	// SetRunsheetReportFound atomically sets runsheet_report_found.
	SetRunsheetReportFound(ctx context.Context, leaseID string, found bool) error
}

// LocationStore upserts cloud locations by (provider, path). Upserting an
// unchanged location is a no-op that returns the existing row.
type LocationStore interface {
	UpsertLocation(ctx context.Context, loc *CloudLocation) (*CloudLocation, error)
}
