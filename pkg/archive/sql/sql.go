// Package sql implements the archive stores on mysql.
//
// Expected schema:
//
//	CREATE TABLE cloud_locations (
//	  id BIGINT AUTO_INCREMENT PRIMARY KEY,
//	  provider VARCHAR(32) NOT NULL,
//	  path VARCHAR(768) NOT NULL,
//	  name VARCHAR(255) NOT NULL,
//	  is_directory TINYINT(1) NOT NULL,
//	  share_url TEXT,
//	  share_expires_at DATETIME NULL,
//	  is_public TINYINT(1) NOT NULL,
//	  UNIQUE KEY uk_provider_path (provider, path)
//	);
//
//	CREATE TABLE leases (
//	  id VARCHAR(64) PRIMARY KEY,
//	  agency VARCHAR(16) NOT NULL,
//	  lease_number VARCHAR(64) NOT NULL,
//	  runsheet_archive_id BIGINT NULL,
//	  runsheet_link TEXT,
//	  runsheet_report_found TINYINT(1) NOT NULL DEFAULT 0
//	);
package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	// Provides mysql drivers.
	_ "github.com/go-sql-driver/mysql"

	"github.com/leaseworks/lade/pkg/archive"
	"github.com/leaseworks/lade/pkg/config"
	"github.com/leaseworks/lade/pkg/errtypes"
)

type dbConfig struct {
	DBUsername string `mapstructure:"db_username"`
	DBPassword string `mapstructure:"db_password"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     int    `mapstructure:"db_port"`
	DBName     string `mapstructure:"db_name"`
}

// Stores implements archive.LeaseStore and archive.LocationStore on mysql.
type Stores struct {
	db *sql.DB
}

// NewMysql returns archive stores connected to a mysql database.
func NewMysql(_ context.Context, m map[string]interface{}) (*Stores, error) {
	c := &dbConfig{}
	if err := mapstructure.Decode(m, c); err != nil {
		return nil, errors.Wrap(err, "archive sql: error decoding config")
	}

	db, err := sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", c.DBUsername, c.DBPassword, c.DBHost, c.DBPort, c.DBName))
	if err != nil {
		return nil, errors.Wrap(err, "archive sql: error opening db")
	}
	return New(db), nil
}

// New returns archive stores over an existing handle.
func New(db *sql.DB) *Stores {
	return &Stores{db: db}
}

// GetLease implements the archive.LeaseStore interface.
func (s *Stores) GetLease(ctx context.Context, id string) (*archive.Lease, error) {
	l := &archive.Lease{}
	var agency string
	var archiveID sql.NullInt64
	var link sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, agency, lease_number, runsheet_archive_id, runsheet_link, runsheet_report_found FROM leases WHERE id = ?", id,
	).Scan(&l.ID, &agency, &l.LeaseNumber, &archiveID, &link, &l.RunsheetReportFound)
	if err == sql.ErrNoRows {
		return nil, errtypes.NotFound("lease " + id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "archive sql: selecting lease %s", id)
	}
	l.Agency = config.Agency(agency)
	l.RunsheetArchiveID = archiveID.Int64
	l.RunsheetLink = link.String
	return l, nil
}

// SetRunsheetArchive implements the archive.LeaseStore interface. The two
// fields are written in one statement so concurrent workflows never persist
// a half-updated pair.
func (s *Stores) SetRunsheetArchive(ctx context.Context, leaseID string, locationID int64, link string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE leases SET runsheet_archive_id = ?, runsheet_link = ? WHERE id = ?",
		locationID, link, leaseID)
	if err != nil {
		return errors.Wrapf(err, "archive sql: updating lease %s archive", leaseID)
	}
	return nil
}

// SetRunsheetReportFound implements the archive.LeaseStore interface.
func (s *Stores) SetRunsheetReportFound(ctx context.Context, leaseID string, found bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE leases SET runsheet_report_found = ? WHERE id = ?",
		found, leaseID)
	if err != nil {
		return errors.Wrapf(err, "archive sql: updating lease %s report flag", leaseID)
	}
	return nil
}

// UpsertLocation implements the archive.LocationStore interface. The
// LAST_INSERT_ID(id) clause makes LastInsertId return the existing row's id
// on the update path, so one round trip covers both cases.
func (s *Stores) UpsertLocation(ctx context.Context, loc *archive.CloudLocation) (*archive.CloudLocation, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cloud_locations (provider, path, name, is_directory, share_url, share_expires_at, is_public)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   id = LAST_INSERT_ID(id),
		   name = VALUES(name),
		   is_directory = VALUES(is_directory),
		   share_url = VALUES(share_url),
		   share_expires_at = VALUES(share_expires_at),
		   is_public = VALUES(is_public)`,
		loc.Provider, loc.Path, loc.Name, loc.IsDirectory, loc.ShareURL, loc.ShareExpiresAt, loc.IsPublic)
	if err != nil {
		return nil, errors.Wrapf(err, "archive sql: upserting location %s:%s", loc.Provider, loc.Path)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "archive sql: reading upserted location id")
	}
	cp := *loc
	cp.ID = id
	return &cp, nil
}
