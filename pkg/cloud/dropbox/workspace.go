package dropbox

import (
	"context"

	"github.com/leaseworks/lade/pkg/appctx"
	"github.com/leaseworks/lade/pkg/utils"
)

const workspaceCacheKey = "workspaces"

// workspaces returns the map of workspace name to namespace id. The listing
// is paged through sharing/list_folders once and cached; a stale mapping
// only delays visibility of newly mounted workspaces by the cache TTL.
func (d *Dropbox) workspaces(ctx context.Context) (map[string]string, error) {
	if v, err := d.wsCache.Get(workspaceCacheKey); err == nil {
		return v.(map[string]string), nil
	}

	ws := map[string]string{}
	var res listSharedFoldersResult
	if err := d.client.call(ctx, "sharing/list_folders", "", listSharedFoldersArg{Limit: 100}, &res); err != nil {
		return nil, err
	}
	for {
		for _, e := range res.Entries {
			ws[e.Name] = e.SharedFolderID
		}
		if res.Cursor == "" {
			break
		}
		next := listSharedFoldersResult{}
		if err := d.client.call(ctx, "sharing/list_folders/continue", "", listSharedFoldersContinueArg{Cursor: res.Cursor}, &next); err != nil {
			return nil, err
		}
		res = next
	}

	_ = d.wsCache.Set(workspaceCacheKey, ws)
	appctx.GetLogger(ctx).Debug().Int("workspaces", len(ws)).Msg("dropbox: refreshed workspace map")
	return ws, nil
}

// route decides how to address an absolute path. When the first segment
// names a known workspace the call must be made against that namespace with
// the relative remainder; otherwise the personal root handles the full path.
func (d *Dropbox) route(ctx context.Context, p string) (nsID, rel string, err error) {
	p = utils.NormalizePath(p)
	head, rest := utils.SplitHead(p)
	if head == "" {
		return "", p, nil
	}
	ws, err := d.workspaces(ctx)
	if err != nil {
		return "", "", err
	}
	if id, ok := ws[head]; ok {
		return id, rest, nil
	}
	return "", p, nil
}

// apiPath converts a normalized path into the form the API expects: the
// root is the empty string, everything else keeps its leading slash.
func apiPath(p string) string {
	if p == "/" {
		return ""
	}
	return p
}

// PurgeWorkspaceCache drops the cached workspace map. Exposed for operator
// tooling after a workspace is mounted or renamed.
func (d *Dropbox) PurgeWorkspaceCache() {
	_ = d.wsCache.Remove(workspaceCacheKey)
}
