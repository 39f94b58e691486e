package dropbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/leaseworks/lade/pkg/errtypes"
)

func newTestDriver(t *testing.T, url string) *Dropbox {
	t.Helper()
	port, err := New(context.Background(), map[string]interface{}{
		"endpoint": url,
		"token":    "test-token",
	})
	require.NoError(t, err)
	return port.(*Dropbox)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func writeConflict(w http.ResponseWriter, summary string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_ = json.NewEncoder(w).Encode(apiErrorBody{ErrorSummary: summary})
}

func serveWorkspaces(t *testing.T, w http.ResponseWriter) {
	writeJSON(t, w, listSharedFoldersResult{Entries: []sharedFolderMetadata{
		{Name: "Fed Workspace", SharedFolderID: "123", IsTeamFolder: true},
		{Name: "State Workspace", SharedFolderID: "456", IsTeamFolder: true},
	}})
}

func decodeBody(t *testing.T, r *http.Request, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r.Body).Decode(v))
}

func pathRoot(t *testing.T, r *http.Request) string {
	t.Helper()
	h := r.Header.Get("Dropbox-API-Path-Root")
	if h == "" {
		return ""
	}
	var root pathRootArg
	require.NoError(t, json.Unmarshal([]byte(h), &root))
	require.Equal(t, "namespace_id", root.Tag)
	return root.NamespaceID
}

func TestMetadataRoutesWorkspacePaths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/list_folders":
			serveWorkspaces(t, w)
		case "/2/files/get_metadata":
			assert.Equal(t, "123", pathRoot(t, r), "workspace calls carry the namespace header")
			var arg getMetadataArg
			decodeBody(t, r, &arg)
			assert.Equal(t, "/Archive/B-1234", arg.Path, "the path is relative to the workspace")
			writeJSON(t, w, metadataResult{Tag: "folder", ID: "id:a1", Name: "B-1234"})
		default:
			t.Errorf("unexpected call %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	d := newTestDriver(t, srv.URL)
	e, err := d.Metadata(context.Background(), "/Fed Workspace/Archive/B-1234")
	require.NoError(t, err)

	assert.Equal(t, "id:a1", e.ID)
	assert.Equal(t, "/Fed Workspace/Archive/B-1234", e.PathDisplay, "results keep the absolute path")
	assert.True(t, e.IsDir())
}

func TestMetadataPersonalPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/list_folders":
			serveWorkspaces(t, w)
		case "/2/files/get_metadata":
			assert.Empty(t, r.Header.Get("Dropbox-API-Path-Root"), "personal paths use the member root")
			var arg getMetadataArg
			decodeBody(t, r, &arg)
			assert.Equal(t, "/Personal/doc.txt", arg.Path)
			writeJSON(t, w, metadataResult{Tag: "file", ID: "id:f1", Name: "doc.txt"})
		default:
			t.Errorf("unexpected call %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	d := newTestDriver(t, srv.URL)
	e, err := d.Metadata(context.Background(), "/Personal/doc.txt")
	require.NoError(t, err)
	assert.False(t, e.IsDir())
}

func TestMetadataWorkspaceRoot(t *testing.T) {
	metadataCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/list_folders":
			serveWorkspaces(t, w)
		case "/2/files/get_metadata":
			metadataCalls++
			writeConflict(w, "path/not_found/")
		}
	}))
	defer srv.Close()

	d := newTestDriver(t, srv.URL)
	e, err := d.Metadata(context.Background(), "/Fed Workspace")
	require.NoError(t, err, "the workspace root exists by virtue of being listed")

	assert.Equal(t, "ns:123", e.ID)
	assert.True(t, e.IsDir())
	assert.Equal(t, 0, metadataCalls, "the namespace root is never submitted to get_metadata")
}

func TestMetadataNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/list_folders":
			serveWorkspaces(t, w)
		case "/2/files/get_metadata":
			writeConflict(w, "path/not_found/")
		}
	}))
	defer srv.Close()

	d := newTestDriver(t, srv.URL)
	_, err := d.Metadata(context.Background(), "/Fed Workspace/nope")
	require.Error(t, err)
	_, ok := err.(errtypes.IsNotFound)
	assert.True(t, ok)
}

func TestListFilesPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/list_folders":
			serveWorkspaces(t, w)
		case "/2/files/list_folder":
			writeJSON(t, w, listFolderResult{
				Entries: []metadataResult{{Tag: "folder", ID: "id:1", Name: "Runsheets"}},
				Cursor:  "c1",
				HasMore: true,
			})
		case "/2/files/list_folder/continue":
			var arg listFolderContinueArg
			decodeBody(t, r, &arg)
			assert.Equal(t, "c1", arg.Cursor)
			writeJSON(t, w, listFolderResult{
				Entries: []metadataResult{{Tag: "file", ID: "id:2", Name: "report.pdf"}},
			})
		}
	}))
	defer srv.Close()

	d := newTestDriver(t, srv.URL)
	entries, err := d.ListFiles(context.Background(), "/Fed Workspace/Archive/B-1")
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "/Fed Workspace/Archive/B-1/Runsheets", entries[0].PathDisplay)
	assert.Equal(t, "/Fed Workspace/Archive/B-1/report.pdf", entries[1].PathDisplay)
}

func TestListFilesMissingFolderIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/list_folders":
			serveWorkspaces(t, w)
		case "/2/files/list_folder":
			writeConflict(w, "path/not_found/")
		}
	}))
	defer srv.Close()

	d := newTestDriver(t, srv.URL)
	entries, err := d.ListFiles(context.Background(), "/Fed Workspace/Archive/B-1")
	require.NoError(t, err, "a missing folder lists as empty")
	assert.Empty(t, entries)
}

func TestCreateDirectoryConflictIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/list_folders":
			serveWorkspaces(t, w)
		case "/2/files/create_folder_v2":
			writeConflict(w, "path/conflict/folder/")
		case "/2/files/get_metadata":
			writeJSON(t, w, metadataResult{Tag: "folder", ID: "id:a1", Name: "B-1"})
		}
	}))
	defer srv.Close()

	d := newTestDriver(t, srv.URL)
	e, err := d.CreateDirectory(context.Background(), "/Fed Workspace/Archive/B-1", true)
	require.NoError(t, err, "creating an existing folder succeeds")
	assert.Equal(t, "id:a1", e.ID)
}

func TestCreateShareLinkWorkspaceUsesFileID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/list_folders":
			serveWorkspaces(t, w)
		case "/2/files/get_metadata":
			writeJSON(t, w, metadataResult{Tag: "folder", ID: "id:a1", Name: "B-1"})
		case "/2/sharing/create_shared_link_with_settings":
			var arg createSharedLinkArg
			decodeBody(t, r, &arg)
			assert.Equal(t, "id:a1", arg.Path, "workspace shares go by file id")
			assert.Equal(t, "public", arg.Settings.RequestedVisibility)
			var link sharedLinkMetadata
			link.URL = "https://www.dropbox.com/scl/fo/abc"
			link.LinkPermissions.ResolvedVisibility.Tag = "public"
			writeJSON(t, w, link)
		}
	}))
	defer srv.Close()

	d := newTestDriver(t, srv.URL)
	link, err := d.CreateShareLink(context.Background(), "/Fed Workspace/Archive/B-1", true)
	require.NoError(t, err)
	assert.Equal(t, "https://www.dropbox.com/scl/fo/abc", link.URL)
	assert.True(t, link.IsPublic)
}

func TestCreateShareLinkReusesExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/list_folders":
			serveWorkspaces(t, w)
		case "/2/files/get_metadata":
			writeJSON(t, w, metadataResult{Tag: "folder", ID: "id:a1", Name: "B-1"})
		case "/2/sharing/create_shared_link_with_settings":
			writeConflict(w, "shared_link_already_exists/metadata/")
		case "/2/sharing/list_shared_links":
			var link sharedLinkMetadata
			link.URL = "https://www.dropbox.com/scl/fo/existing"
			link.LinkPermissions.ResolvedVisibility.Tag = "public"
			writeJSON(t, w, listSharedLinksResult{Links: []sharedLinkMetadata{link}})
		}
	}))
	defer srv.Close()

	d := newTestDriver(t, srv.URL)
	link, err := d.CreateShareLink(context.Background(), "/Fed Workspace/Archive/B-1", true)
	require.NoError(t, err, "an existing link is reused, not an error")
	assert.Equal(t, "https://www.dropbox.com/scl/fo/existing", link.URL)
}

func TestCreateShareLinkRejectsWorkspaceRoot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/list_folders":
			serveWorkspaces(t, w)
		default:
			t.Errorf("workspace root must never reach the sharing API, got %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	d := newTestDriver(t, srv.URL)
	_, err := d.CreateShareLink(context.Background(), "/Fed Workspace", true)
	require.Error(t, err, "the namespace root has no file identifier to share")
}

func TestTransientStatusMapsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2/sharing/list_folders" {
			serveWorkspaces(t, w)
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := newTestDriver(t, srv.URL)
	_, err := d.Metadata(context.Background(), "/Fed Workspace/Archive")
	require.Error(t, err)
	assert.True(t, errtypes.Retryable(err))
}

type countingTokenSource struct {
	mu sync.Mutex
	n  int
}

func (s *countingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return &oauth2.Token{AccessToken: fmt.Sprintf("tok-%d", s.n)}, nil
}

func TestAuthFailureRefreshesAndReplaysOnce(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/list_folders":
			serveWorkspaces(t, w)
		case "/2/files/get_metadata":
			seen = append(seen, r.Header.Get("Authorization"))
			if len(seen) == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(t, w, metadataResult{Tag: "folder", ID: "id:a1", Name: "B-1"})
		}
	}))
	defer srv.Close()

	ts := &countingTokenSource{}
	port, err := NewWithTokenSource(map[string]interface{}{"endpoint": srv.URL}, ts)
	require.NoError(t, err)

	e, err := port.Metadata(context.Background(), "/Fed Workspace/Archive/B-1")
	require.NoError(t, err, "one 401 triggers a refresh and replay")
	assert.Equal(t, "id:a1", e.ID)
	require.Len(t, seen, 2)
	assert.Equal(t, "Bearer tok-1", seen[0])
	assert.Equal(t, "Bearer tok-2", seen[1], "the replay carries the refreshed token")
}

func TestAuthFailureIsTerminalAfterReplay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2/sharing/list_folders" {
			serveWorkspaces(t, w)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := newTestDriver(t, srv.URL)
	_, err := d.Metadata(context.Background(), "/Fed Workspace/Archive")
	require.Error(t, err)
	_, ok := err.(errtypes.IsCloudAuth)
	assert.True(t, ok)
	assert.False(t, errtypes.Retryable(err), "persistent auth failures must not be retried")
}

func TestWorkspaceCache(t *testing.T) {
	listCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/list_folders":
			listCalls++
			serveWorkspaces(t, w)
		case "/2/files/get_metadata":
			writeJSON(t, w, metadataResult{Tag: "folder", ID: "id:a1", Name: "x"})
		}
	}))
	defer srv.Close()

	d := newTestDriver(t, srv.URL)
	ctx := context.Background()
	_, err := d.Metadata(ctx, "/Fed Workspace/x")
	require.NoError(t, err)
	_, err = d.Metadata(ctx, "/State Workspace/x")
	require.NoError(t, err)
	assert.Equal(t, 1, listCalls, "the workspace map is cached")

	d.PurgeWorkspaceCache()
	_, err = d.Metadata(ctx, "/Fed Workspace/x")
	require.NoError(t, err)
	assert.Equal(t, 2, listCalls, "purging forces a refresh")
}

func TestAPIPath(t *testing.T) {
	assert.Equal(t, "", apiPath("/"))
	assert.Equal(t, "/Archive/B-1", apiPath("/Archive/B-1"))
}
