// Package memory implements a config.Store held in memory.
package memory

import (
	"context"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/leaseworks/lade/pkg/config"
	"github.com/leaseworks/lade/pkg/config/registry"
	"github.com/leaseworks/lade/pkg/errtypes"
)

func init() {
	registry.Register("memory", New)
}

type driverConfig struct {
	Agencies []map[string]interface{} `mapstructure:"agencies"`
}

// New returns a memory config store seeded from the driver config map.
func New(_ context.Context, m map[string]interface{}) (config.Store, error) {
	c := &driverConfig{}
	if err := mapstructure.Decode(m, c); err != nil {
		return nil, errors.Wrap(err, "config memory: error decoding config")
	}
	s := NewEmpty()
	for _, raw := range c.Agencies {
		asc, err := decodeAgency(raw)
		if err != nil {
			return nil, err
		}
		if err := s.Set(asc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewEmpty returns an empty store to be filled via Set.
func NewEmpty() *Store {
	return &Store{agencies: map[config.Agency]*config.AgencyStorageConfig{}}
}

// Store is the exported memory implementation so tests can seed it directly.
type Store struct {
	mu       sync.RWMutex
	agencies map[config.Agency]*config.AgencyStorageConfig
}

// Set normalizes and stores cfg, replacing any previous config for the agency.
func (s *Store) Set(cfg *config.AgencyStorageConfig) error {
	if err := cfg.Normalize(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agencies[cfg.Agency] = cfg
	return nil
}

// Get implements the config.Store interface.
func (s *Store) Get(_ context.Context, agency config.Agency) (*config.AgencyStorageConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.agencies[agency]
	if !ok {
		return nil, errtypes.ConfigMissing(string(agency))
	}
	cp := *cfg
	return &cp, nil
}

// decodeAgency decodes one agency map. Absent auto_create and enabled flags
// default to true, which plain bool decoding cannot express.
func decodeAgency(raw map[string]interface{}) (*config.AgencyStorageConfig, error) {
	aux := struct {
		Agency                     string   `mapstructure:"agency"`
		RunsheetArchiveBasePath    string   `mapstructure:"runsheet_archive_base_path"`
		Subfolders                 []string `mapstructure:"subfolders"`
		AutoCreateRunsheetArchives *bool    `mapstructure:"auto_create_runsheet_archives"`
		Enabled                    *bool    `mapstructure:"enabled"`
		ReportDetectionPattern     string   `mapstructure:"report_detection_pattern"`
	}{}
	if err := mapstructure.Decode(raw, &aux); err != nil {
		return nil, errors.Wrap(err, "config memory: error decoding agency")
	}
	asc := &config.AgencyStorageConfig{
		Agency:                     config.Agency(aux.Agency),
		RunsheetArchiveBasePath:    aux.RunsheetArchiveBasePath,
		Subfolders:                 aux.Subfolders,
		AutoCreateRunsheetArchives: aux.AutoCreateRunsheetArchives == nil || *aux.AutoCreateRunsheetArchives,
		Enabled:                    aux.Enabled == nil || *aux.Enabled,
		ReportDetectionPattern:     aux.ReportDetectionPattern,
	}
	return asc, nil
}
