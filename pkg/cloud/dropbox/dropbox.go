// Package dropbox implements the cloud.Port interface against the Dropbox
// v2 API, including its team-workspace namespace model. Paths whose first
// segment names a known workspace are submitted relative to that workspace's
// namespace id; results are always reported under the original absolute path.
package dropbox

import (
	"context"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/leaseworks/lade/pkg/cloud"
	"github.com/leaseworks/lade/pkg/cloud/registry"
	"github.com/leaseworks/lade/pkg/errtypes"
	"github.com/leaseworks/lade/pkg/utils"
)

func init() {
	registry.Register("dropbox", New)
}

type config struct {
	Endpoint              string `mapstructure:"endpoint"`
	Token                 string `mapstructure:"token"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
	WorkspaceCacheSeconds int    `mapstructure:"workspace_cache_seconds"`
}

func (c *config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "https://api.dropboxapi.com"
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 10
	}
	if c.WorkspaceCacheSeconds <= 0 {
		c.WorkspaceCacheSeconds = 3600
	}
}

// Dropbox is the workspace-aware driver.
type Dropbox struct {
	client  *apiClient
	wsCache *ttlcache.Cache
}

// New returns a cloud.Port backed by Dropbox, configured with a static
// access token. Multi-user deployments construct per-user ports through
// NewWithTokenSource instead.
func New(_ context.Context, m map[string]interface{}) (cloud.Port, error) {
	c := &config{}
	if err := mapstructure.Decode(m, c); err != nil {
		return nil, errors.Wrap(err, "dropbox: error decoding config")
	}
	c.ApplyDefaults()
	if c.Token == "" {
		return nil, errors.New("dropbox: missing token in config")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.Token})
	return newDriver(c, ts), nil
}

// NewWithTokenSource returns a cloud.Port authenticated by the given token
// source. The source is consulted lazily and its result cached copy-on-refresh.
func NewWithTokenSource(m map[string]interface{}, ts oauth2.TokenSource) (cloud.Port, error) {
	c := &config{}
	if err := mapstructure.Decode(m, c); err != nil {
		return nil, errors.Wrap(err, "dropbox: error decoding config")
	}
	c.ApplyDefaults()
	return newDriver(c, ts), nil
}

func newDriver(c *config, ts oauth2.TokenSource) *Dropbox {
	hc := &http.Client{Timeout: time.Duration(c.RequestTimeoutSeconds) * time.Second}
	wc := ttlcache.NewCache()
	_ = wc.SetTTL(time.Duration(c.WorkspaceCacheSeconds) * time.Second)
	wc.SkipTTLExtensionOnHit(true)
	return &Dropbox{
		client:  newAPIClient(c.Endpoint, hc, ts),
		wsCache: wc,
	}
}

// Metadata implements the cloud.Port interface.
func (d *Dropbox) Metadata(ctx context.Context, p string) (*cloud.Entry, error) {
	p = utils.NormalizePath(p)
	nsID, rel, err := d.route(ctx, p)
	if err != nil {
		return nil, err
	}
	if nsID != "" && rel == "/" {
		// The workspace itself. get_metadata rejects the namespace root, but
		// being listed in the workspace map is proof enough of existence.
		return &cloud.Entry{ID: "ns:" + nsID, Name: utils.BaseName(p), PathDisplay: p, Kind: cloud.KindFolder}, nil
	}

	var res metadataResult
	if err := d.client.call(ctx, "files/get_metadata", nsID, getMetadataArg{Path: apiPath(rel)}, &res); err != nil {
		return nil, err
	}
	return d.toEntry(&res, p), nil
}

// ListFiles implements the cloud.Port interface. Listing a non-existent
// folder yields an empty slice, not an error.
func (d *Dropbox) ListFiles(ctx context.Context, p string) ([]*cloud.Entry, error) {
	p = utils.NormalizePath(p)
	nsID, rel, err := d.route(ctx, p)
	if err != nil {
		return nil, err
	}

	entries := []*cloud.Entry{}
	var res listFolderResult
	err = d.client.call(ctx, "files/list_folder", nsID, listFolderArg{Path: apiPath(rel), Limit: 500}, &res)
	if err != nil {
		if _, ok := err.(errtypes.IsNotFound); ok {
			return entries, nil
		}
		return nil, err
	}
	for {
		for i := range res.Entries {
			e := res.Entries[i]
			entries = append(entries, d.toEntry(&e, utils.JoinPath(p, e.Name)))
		}
		if !res.HasMore {
			return entries, nil
		}
		next := listFolderResult{}
		if err := d.client.call(ctx, "files/list_folder/continue", nsID, listFolderContinueArg{Cursor: res.Cursor}, &next); err != nil {
			return nil, err
		}
		res = next
	}
}

// CreateDirectory implements the cloud.Port interface. Dropbox materializes
// missing ancestors on its own, so with parents=false the parent is checked
// first to honor the contract.
func (d *Dropbox) CreateDirectory(ctx context.Context, p string, parents bool) (*cloud.Entry, error) {
	p = utils.NormalizePath(p)
	if !parents {
		parent := utils.JoinPath(p, "..")
		if _, err := d.Metadata(ctx, parent); err != nil {
			return nil, err
		}
	}

	nsID, rel, err := d.route(ctx, p)
	if err != nil {
		return nil, err
	}

	var res createFolderResult
	err = d.client.call(ctx, "files/create_folder_v2", nsID, createFolderArg{Path: apiPath(rel), Autorename: false}, &res)
	if err != nil {
		if ce, ok := asConflict(err); ok && ce.is("conflict") {
			// already exists: idempotent success
			return d.Metadata(ctx, p)
		}
		return nil, err
	}
	return d.toEntry(&res.Metadata, p), nil
}

// CreateDirectoryTree implements the cloud.Port interface.
func (d *Dropbox) CreateDirectoryTree(ctx context.Context, root string, subfolders []string, existsOK bool) ([]*cloud.Entry, error) {
	root = utils.NormalizePath(root)
	created := make([]*cloud.Entry, 0, len(subfolders))
	for _, sub := range subfolders {
		sub = utils.NormalizeSegment(sub)
		if sub == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return created, err
		}
		child := utils.JoinPath(root, sub)
		if !existsOK {
			if _, err := d.Metadata(ctx, child); err == nil {
				return created, errors.Errorf("dropbox: %s already exists", child)
			} else if _, ok := err.(errtypes.IsNotFound); !ok {
				return created, err
			}
		}
		// CreateDirectory treats an existing folder as success, which is
		// exactly the exists_ok semantics.
		e, err := d.CreateDirectory(ctx, child, true)
		if err != nil {
			return created, err
		}
		created = append(created, e)
	}
	return created, nil
}

// CreateShareLink implements the cloud.Port interface. For workspace paths
// the sharing API only accepts the file identifier, so the path is resolved
// to its id first; personal paths are shared by path directly. The workspace
// root itself has no file identifier and cannot be shared.
func (d *Dropbox) CreateShareLink(ctx context.Context, p string, isPublic bool) (*cloud.ShareLink, error) {
	p = utils.NormalizePath(p)
	nsID, rel, err := d.route(ctx, p)
	if err != nil {
		return nil, err
	}
	if nsID != "" && rel == "/" {
		return nil, errors.Errorf("dropbox: cannot create a share link for workspace root %s", p)
	}

	target := apiPath(rel)
	if nsID != "" {
		md, err := d.Metadata(ctx, p)
		if err != nil {
			return nil, err
		}
		target = md.ID
	}

	settings := sharedLinkSettings{}
	if isPublic {
		allow := true
		settings.RequestedVisibility = "public"
		settings.Audience = "public"
		settings.AllowDownload = &allow
	}

	var link sharedLinkMetadata
	err = d.client.call(ctx, "sharing/create_shared_link_with_settings", nsID, createSharedLinkArg{Path: target, Settings: settings}, &link)
	if err != nil {
		ce, ok := asConflict(err)
		if !ok || !ce.is("shared_link_already_exists") {
			return nil, err
		}
		var existing listSharedLinksResult
		if err := d.client.call(ctx, "sharing/list_shared_links", nsID, listSharedLinksArg{Path: target, DirectOnly: true}, &existing); err != nil {
			return nil, err
		}
		if len(existing.Links) == 0 {
			return nil, errtypes.CloudTransient("dropbox: share link reported existing but lookup returned none for " + p)
		}
		link = existing.Links[0]
	}
	return toShareLink(&link), nil
}

func (d *Dropbox) toEntry(m *metadataResult, display string) *cloud.Entry {
	kind := cloud.KindFile
	if m.Tag == "folder" {
		kind = cloud.KindFolder
	}
	return &cloud.Entry{
		ID:          m.ID,
		Name:        m.Name,
		PathDisplay: display,
		Kind:        kind,
	}
}

func toShareLink(m *sharedLinkMetadata) *cloud.ShareLink {
	l := &cloud.ShareLink{
		URL:      m.URL,
		IsPublic: m.LinkPermissions.ResolvedVisibility.Tag == "public",
	}
	if m.Expires != "" {
		if t, err := time.Parse(time.RFC3339, m.Expires); err == nil {
			l.ExpiresAt = &t
		}
	}
	return l
}
