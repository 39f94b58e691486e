// Package cloud defines the capability interface over the hierarchical
// storage provider. The rest of the engine works in absolute paths; drivers
// hide provider details such as workspace namespacing.
package cloud

import (
	"context"
	"time"
)

// EntryKind discriminates files from folders.
type EntryKind string

const (
	// KindFile marks a regular file entry.
	KindFile EntryKind = "file"
	// KindFolder marks a directory entry.
	KindFolder EntryKind = "folder"
)

// Entry is a single item at the provider. PathDisplay is always the
// original absolute form, even when the driver internally addressed the
// item relative to a workspace namespace.
type Entry struct {
	ID          string
	Name        string
	PathDisplay string
	Kind        EntryKind
}

// IsDir returns whether the entry is a folder.
func (e *Entry) IsDir() bool { return e.Kind == KindFolder }

// ShareLink is a durable, shareable URL for a path.
type ShareLink struct {
	URL       string
	ExpiresAt *time.Time
	IsPublic  bool
}

// Port is the interface cloud drivers must implement.
//
// All operations return typed errors from pkg/errtypes: NotFound for absent
// paths (Metadata), CloudTransient for network/rate-limit/5xx failures,
// CloudAuth for credential rejection.
type Port interface {
	// Metadata looks up a single path. Absent paths yield errtypes.NotFound.
	Metadata(ctx context.Context, path string) (*Entry, error)

	// ListFiles lists the direct children of path. An empty slice means
	// empty or non-existent; callers that need the distinction use Metadata.
	ListFiles(ctx context.Context, path string) ([]*Entry, error)

	// CreateDirectory creates the leaf directory. With parents it ensures
	// ancestors as well. Idempotent when the directory already exists.
	CreateDirectory(ctx context.Context, path string, parents bool) (*Entry, error)

	// CreateDirectoryTree creates root/sub for each subfolder. With existsOK
	// already-existing children are tolerated.
	CreateDirectoryTree(ctx context.Context, root string, subfolders []string, existsOK bool) ([]*Entry, error)

	// CreateShareLink returns an existing share link for the path if the
	// provider has one, otherwise creates a new one.
	CreateShareLink(ctx context.Context, path string, isPublic bool) (*ShareLink, error)
}

// Provider hands out an authenticated Port for a user. Credential storage
// and OAuth flows live behind this interface.
type Provider interface {
	PortForUser(ctx context.Context, userID string) (Port, error)
}

// Static is a Provider that returns the same Port for every user. Used in
// single-account deployments and tests.
type Static struct {
	Port Port
}

// PortForUser implements the Provider interface.
func (s Static) PortForUser(_ context.Context, _ string) (Port, error) {
	return s.Port, nil
}
