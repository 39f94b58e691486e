// Package memory implements cloud.Port on an in-memory tree. It backs the
// test suite and single-process dev setups, like the memory drivers the
// production managers ship beside.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/leaseworks/lade/pkg/cloud"
	"github.com/leaseworks/lade/pkg/cloud/registry"
	"github.com/leaseworks/lade/pkg/errtypes"
	"github.com/leaseworks/lade/pkg/utils"
)

func init() {
	registry.Register("memory", New)
}

type config struct {
	Folders []string `mapstructure:"folders"`
	Files   []string `mapstructure:"files"`
}

// Cloud is the in-memory driver. ErrHook, when set, is consulted before
// every operation and lets tests inject failures; Counts records how often
// each operation ran.
type Cloud struct {
	mu      sync.Mutex
	entries map[string]*cloud.Entry
	links   map[string]*cloud.ShareLink
	nextID  int

	ErrHook func(op, path string) error
	Counts  map[string]int

	// NoShareLinks makes CreateShareLink succeed without returning a link,
	// like providers that defer link issuance.
	NoShareLinks bool
}

// New returns a memory-backed cloud.Port pre-seeded from config.
func New(_ context.Context, m map[string]interface{}) (cloud.Port, error) {
	c := &config{}
	if err := mapstructure.Decode(m, c); err != nil {
		return nil, errors.Wrap(err, "memory: error decoding config")
	}
	mc := NewEmpty()
	for _, f := range c.Folders {
		mc.MustMkdirAll(f)
	}
	for _, f := range c.Files {
		mc.MustAddFile(f)
	}
	return mc, nil
}

// NewEmpty returns a driver with only the root folder.
func NewEmpty() *Cloud {
	return &Cloud{
		entries: map[string]*cloud.Entry{
			"/": {ID: "id:0", Name: "", PathDisplay: "/", Kind: cloud.KindFolder},
		},
		links:  map[string]*cloud.ShareLink{},
		Counts: map[string]int{},
	}
}

// MustMkdirAll seeds a folder and its ancestors.
func (c *Cloud) MustMkdirAll(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mkdirAllLocked(utils.NormalizePath(p))
}

// MustAddFile seeds a file, creating parent folders.
func (c *Cloud) MustAddFile(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p = utils.NormalizePath(p)
	c.mkdirAllLocked(utils.JoinPath(p, ".."))
	c.entries[key(p)] = c.newEntryLocked(p, cloud.KindFile)
}

func (c *Cloud) mkdirAllLocked(p string) {
	if p == "/" {
		return
	}
	c.mkdirAllLocked(utils.JoinPath(p, ".."))
	if _, ok := c.entries[key(p)]; !ok {
		c.entries[key(p)] = c.newEntryLocked(p, cloud.KindFolder)
	}
}

func (c *Cloud) newEntryLocked(p string, kind cloud.EntryKind) *cloud.Entry {
	c.nextID++
	return &cloud.Entry{
		ID:          fmt.Sprintf("id:%d", c.nextID),
		Name:        utils.BaseName(p),
		PathDisplay: p,
		Kind:        kind,
	}
}

func (c *Cloud) hook(op, p string) error {
	if c.ErrHook != nil {
		if err := c.ErrHook(op, p); err != nil {
			return err
		}
	}
	c.Counts[op]++
	return nil
}

// key lowercases the path: the reference provider is case-insensitive,
// case-preserving.
func key(p string) string { return strings.ToLower(p) }

// Metadata implements the cloud.Port interface.
func (c *Cloud) Metadata(ctx context.Context, p string) (*cloud.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p = utils.NormalizePath(p)
	if err := c.hook("metadata", p); err != nil {
		return nil, err
	}
	e, ok := c.entries[key(p)]
	if !ok {
		return nil, errtypes.NotFound(p)
	}
	cp := *e
	cp.PathDisplay = p
	return &cp, nil
}

// ListFiles implements the cloud.Port interface.
func (c *Cloud) ListFiles(ctx context.Context, p string) ([]*cloud.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p = utils.NormalizePath(p)
	if err := c.hook("list_files", p); err != nil {
		return nil, err
	}

	prefix := key(p)
	if prefix != "/" {
		prefix += "/"
	}
	children := []*cloud.Entry{}
	for k, e := range c.entries {
		if k == "/" || !strings.HasPrefix(k, prefix) {
			continue
		}
		if strings.Contains(strings.TrimPrefix(k, prefix), "/") {
			continue
		}
		cp := *e
		children = append(children, &cp)
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}

// CreateDirectory implements the cloud.Port interface.
func (c *Cloud) CreateDirectory(ctx context.Context, p string, parents bool) (*cloud.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p = utils.NormalizePath(p)
	if err := c.hook("create_directory", p); err != nil {
		return nil, err
	}

	if e, ok := c.entries[key(p)]; ok {
		cp := *e
		return &cp, nil
	}
	parent := utils.JoinPath(p, "..")
	if _, ok := c.entries[key(parent)]; !ok {
		if !parents {
			return nil, errtypes.NotFound(parent)
		}
		c.mkdirAllLocked(parent)
	}
	e := c.newEntryLocked(p, cloud.KindFolder)
	c.entries[key(p)] = e
	cp := *e
	return &cp, nil
}

// CreateDirectoryTree implements the cloud.Port interface.
func (c *Cloud) CreateDirectoryTree(ctx context.Context, root string, subfolders []string, existsOK bool) ([]*cloud.Entry, error) {
	created := make([]*cloud.Entry, 0, len(subfolders))
	for _, sub := range subfolders {
		sub = utils.NormalizeSegment(sub)
		if sub == "" {
			continue
		}
		child := utils.JoinPath(root, sub)
		if !existsOK {
			if _, err := c.Metadata(ctx, child); err == nil {
				return created, errors.Errorf("memory: %s already exists", child)
			}
		}
		e, err := c.CreateDirectory(ctx, child, true)
		if err != nil {
			return created, err
		}
		created = append(created, e)
	}
	return created, nil
}

// CreateShareLink implements the cloud.Port interface.
func (c *Cloud) CreateShareLink(ctx context.Context, p string, isPublic bool) (*cloud.ShareLink, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p = utils.NormalizePath(p)
	if err := c.hook("create_share_link", p); err != nil {
		return nil, err
	}

	if _, ok := c.entries[key(p)]; !ok {
		return nil, errtypes.NotFound(p)
	}
	if c.NoShareLinks {
		return nil, nil
	}
	if l, ok := c.links[key(p)]; ok {
		cp := *l
		return &cp, nil
	}
	l := &cloud.ShareLink{
		URL:      "https://cloud.example/s/" + strings.ReplaceAll(strings.TrimPrefix(p, "/"), "/", "-"),
		IsPublic: isPublic,
	}
	c.links[key(p)] = l
	cp := *l
	return &cp, nil
}
