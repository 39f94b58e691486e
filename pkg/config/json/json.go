// Package json implements a config.Store backed by a json file. The file is
// re-read when its mtime changes, so agency config edits take effect without
// a restart.
package json

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/leaseworks/lade/pkg/config"
	"github.com/leaseworks/lade/pkg/config/registry"
	"github.com/leaseworks/lade/pkg/errtypes"
)

func init() {
	registry.Register("json", New)
}

type driverConfig struct {
	File string `mapstructure:"file"`
}

type fileSchema struct {
	Agencies []agencySchema `json:"agencies"`
}

type agencySchema struct {
	Agency                     string   `json:"agency"`
	RunsheetArchiveBasePath    string   `json:"runsheet_archive_base_path"`
	Subfolders                 []string `json:"subfolders"`
	AutoCreateRunsheetArchives *bool    `json:"auto_create_runsheet_archives"`
	Enabled                    *bool    `json:"enabled"`
	ReportDetectionPattern     string   `json:"report_detection_pattern"`
}

type store struct {
	file string

	mu       sync.Mutex
	loadedAt time.Time
	agencies map[config.Agency]*config.AgencyStorageConfig
}

// New returns a json-file-backed config store.
func New(_ context.Context, m map[string]interface{}) (config.Store, error) {
	c := &driverConfig{}
	if err := mapstructure.Decode(m, c); err != nil {
		return nil, errors.Wrap(err, "config json: error decoding config")
	}
	if c.File == "" {
		return nil, errors.New("config json: missing file in config")
	}
	s := &store{file: c.File}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get implements the config.Store interface.
func (s *store) Get(_ context.Context, agency config.Agency) (*config.AgencyStorageConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.maybeReloadLocked(); err != nil {
		return nil, err
	}
	cfg, ok := s.agencies[agency]
	if !ok {
		return nil, errtypes.ConfigMissing(string(agency))
	}
	cp := *cfg
	return &cp, nil
}

func (s *store) maybeReloadLocked() error {
	fi, err := os.Stat(s.file)
	if err != nil {
		return errors.Wrapf(err, "config json: stating %s", s.file)
	}
	if !fi.ModTime().After(s.loadedAt) {
		return nil
	}
	return s.reloadLocked(fi.ModTime())
}

func (s *store) reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fi, err := os.Stat(s.file)
	if err != nil {
		return errors.Wrapf(err, "config json: stating %s", s.file)
	}
	return s.reloadLocked(fi.ModTime())
}

func (s *store) reloadLocked(mtime time.Time) error {
	raw, err := os.ReadFile(s.file)
	if err != nil {
		return errors.Wrapf(err, "config json: reading %s", s.file)
	}
	var fs fileSchema
	if err := json.Unmarshal(raw, &fs); err != nil {
		return errors.Wrapf(err, "config json: parsing %s", s.file)
	}

	agencies := make(map[config.Agency]*config.AgencyStorageConfig, len(fs.Agencies))
	for _, a := range fs.Agencies {
		cfg := &config.AgencyStorageConfig{
			Agency:                     config.Agency(a.Agency),
			RunsheetArchiveBasePath:    a.RunsheetArchiveBasePath,
			Subfolders:                 a.Subfolders,
			AutoCreateRunsheetArchives: a.AutoCreateRunsheetArchives == nil || *a.AutoCreateRunsheetArchives,
			Enabled:                    a.Enabled == nil || *a.Enabled,
			ReportDetectionPattern:     a.ReportDetectionPattern,
		}
		if err := cfg.Normalize(); err != nil {
			return err
		}
		agencies[cfg.Agency] = cfg
	}

	s.agencies = agencies
	s.loadedAt = mtime
	return nil
}
