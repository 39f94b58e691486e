// Package memory implements the archive stores in memory for tests and
// single-process setups.
package memory

import (
	"context"
	"sync"

	"github.com/leaseworks/lade/pkg/archive"
	"github.com/leaseworks/lade/pkg/errtypes"
)

// Stores bundles a LeaseStore and LocationStore over shared maps.
type Stores struct {
	mu        sync.Mutex
	leases    map[string]*archive.Lease
	locations map[string]*archive.CloudLocation
	nextID    int64

	// LeaseUpdates counts bounded-field writes per lease, for tests
	// asserting that no persistence happened.
	LeaseUpdates map[string]int
}

// New returns empty stores.
func New() *Stores {
	return &Stores{
		leases:       map[string]*archive.Lease{},
		locations:    map[string]*archive.CloudLocation{},
		LeaseUpdates: map[string]int{},
	}
}

// AddLease seeds a lease.
func (s *Stores) AddLease(l *archive.Lease) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.leases[l.ID] = &cp
}

// GetLease implements the archive.LeaseStore interface.
func (s *Stores) GetLease(_ context.Context, id string) (*archive.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leases[id]
	if !ok {
		return nil, errtypes.NotFound("lease " + id)
	}
	cp := *l
	return &cp, nil
}

// SetRunsheetArchive implements the archive.LeaseStore interface.
func (s *Stores) SetRunsheetArchive(_ context.Context, leaseID string, locationID int64, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leases[leaseID]
	if !ok {
		return errtypes.NotFound("lease " + leaseID)
	}
	l.RunsheetArchiveID = locationID
	l.RunsheetLink = link
	s.LeaseUpdates[leaseID]++
	return nil
}

// SetRunsheetReportFound implements the archive.LeaseStore interface.
func (s *Stores) SetRunsheetReportFound(_ context.Context, leaseID string, found bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leases[leaseID]
	if !ok {
		return errtypes.NotFound("lease " + leaseID)
	}
	l.RunsheetReportFound = found
	s.LeaseUpdates[leaseID]++
	return nil
}

// UpsertLocation implements the archive.LocationStore interface.
func (s *Stores) UpsertLocation(_ context.Context, loc *archive.CloudLocation) (*archive.CloudLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := loc.Provider + ":" + loc.Path
	if existing, ok := s.locations[key]; ok {
		existing.Name = loc.Name
		existing.IsDirectory = loc.IsDirectory
		existing.ShareURL = loc.ShareURL
		existing.ShareExpiresAt = loc.ShareExpiresAt
		existing.IsPublic = loc.IsPublic
		cp := *existing
		return &cp, nil
	}
	s.nextID++
	cp := *loc
	cp.ID = s.nextID
	s.locations[key] = &cp
	out := cp
	return &out, nil
}

// LocationCount reports how many distinct locations exist, for duplicate
// checks in tests.
func (s *Stores) LocationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locations)
}
