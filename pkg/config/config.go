// Package config defines per-agency storage configuration and the store
// interface that serves it.
package config

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/leaseworks/lade/pkg/utils"
)

// Agency is a regulatory authority determining base path and layout.
type Agency string

// The agencies with known archive layouts.
const (
	AgencyBLM   Agency = "BLM"
	AgencyNMSLO Agency = "NMSLO"
)

// DefaultReportPattern matches the standard runsheet report artifact names.
const DefaultReportPattern = `(?i).*master documents.*`

// AgencyStorageConfig describes where an agency's lease archives live and
// how they are materialized.
type AgencyStorageConfig struct {
	Agency                     Agency   `mapstructure:"agency" json:"agency"`
	RunsheetArchiveBasePath    string   `mapstructure:"runsheet_archive_base_path" json:"runsheet_archive_base_path"`
	Subfolders                 []string `mapstructure:"subfolders" json:"subfolders"`
	AutoCreateRunsheetArchives bool     `mapstructure:"auto_create_runsheet_archives" json:"auto_create_runsheet_archives"`
	Enabled                    bool     `mapstructure:"enabled" json:"enabled"`
	ReportDetectionPattern     string   `mapstructure:"report_detection_pattern" json:"report_detection_pattern"`

	reportRegexp *regexp.Regexp
}

// Normalize canonicalizes paths and subfolder names, applies defaults and
// compiles the detection pattern. Must be called by every store before a
// config is handed out.
func (c *AgencyStorageConfig) Normalize() error {
	if c.Agency == "" {
		return errors.New("config: agency is required")
	}
	if c.RunsheetArchiveBasePath == "" {
		return errors.Errorf("config: %s: runsheet_archive_base_path is required", c.Agency)
	}
	c.RunsheetArchiveBasePath = utils.NormalizePath(c.RunsheetArchiveBasePath)

	subs := make([]string, 0, len(c.Subfolders))
	for _, s := range c.Subfolders {
		if s = utils.NormalizeSegment(s); s != "" {
			subs = append(subs, s)
		}
	}
	c.Subfolders = subs

	if c.ReportDetectionPattern == "" {
		c.ReportDetectionPattern = DefaultReportPattern
	}
	// report matching is case-insensitive however the operator wrote the
	// pattern; explicit flag groups are left alone
	pattern := c.ReportDetectionPattern
	if !strings.HasPrefix(pattern, "(?") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errors.Wrapf(err, "config: %s: invalid report_detection_pattern", c.Agency)
	}
	c.reportRegexp = re
	return nil
}

// ReportRegexp returns the compiled detection pattern.
func (c *AgencyStorageConfig) ReportRegexp() *regexp.Regexp {
	return c.reportRegexp
}

// ArchivePath computes the canonical archive directory for a lease number.
func (c *AgencyStorageConfig) ArchivePath(leaseNumber string) string {
	return utils.JoinPath(c.RunsheetArchiveBasePath, leaseNumber)
}

// Store serves agency storage configs. Implementations must return
// errtypes.ConfigMissing for unknown agencies and only hand out
// normalized configs.
type Store interface {
	Get(ctx context.Context, agency Agency) (*AgencyStorageConfig, error)
}
