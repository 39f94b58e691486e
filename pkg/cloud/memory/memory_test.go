package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaseworks/lade/pkg/errtypes"
)

func TestCaseInsensitiveLookup(t *testing.T) {
	ctx := context.Background()
	c := NewEmpty()
	c.MustMkdirAll("/Fed Workspace/Archive/B-1")

	e, err := c.Metadata(ctx, "/fed workspace/ARCHIVE/b-1")
	require.NoError(t, err, "lookups are case-insensitive")
	assert.Equal(t, "/fed workspace/ARCHIVE/b-1", e.PathDisplay)
}

func TestListFilesDirectChildrenOnly(t *testing.T) {
	ctx := context.Background()
	c := NewEmpty()
	c.MustAddFile("/Archive/B-1/a.pdf")
	c.MustAddFile("/Archive/B-1/sub/deep.pdf")
	c.MustMkdirAll("/Archive/B-2")

	entries, err := c.ListFiles(ctx, "/Archive/B-1")
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a.pdf", "sub"}, names)
}

func TestCreateDirectoryNeedsParent(t *testing.T) {
	ctx := context.Background()
	c := NewEmpty()

	_, err := c.CreateDirectory(ctx, "/a/b/c", false)
	require.Error(t, err)
	_, ok := err.(errtypes.IsNotFound)
	assert.True(t, ok)

	e, err := c.CreateDirectory(ctx, "/a/b/c", true)
	require.NoError(t, err)
	assert.Equal(t, "/a/b/c", e.PathDisplay)
}

func TestShareLinkIsStable(t *testing.T) {
	ctx := context.Background()
	c := NewEmpty()
	c.MustMkdirAll("/Archive/B-1")

	l1, err := c.CreateShareLink(ctx, "/Archive/B-1", true)
	require.NoError(t, err)
	l2, err := c.CreateShareLink(ctx, "/Archive/B-1", true)
	require.NoError(t, err)
	assert.Equal(t, l1.URL, l2.URL, "re-sharing returns the existing link")

	_, err = c.CreateShareLink(ctx, "/nope", true)
	require.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	port, err := New(context.Background(), map[string]interface{}{
		"folders": []string{"/Fed Workspace/Archive"},
		"files":   []string{"/Fed Workspace/Archive/B-1/r.pdf"},
	})
	require.NoError(t, err)

	e, err := port.Metadata(context.Background(), "/Fed Workspace/Archive/B-1/r.pdf")
	require.NoError(t, err)
	assert.False(t, e.IsDir())
}
