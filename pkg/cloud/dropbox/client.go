package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/leaseworks/lade/pkg/errtypes"
)

// apiClient is the low-level RPC transport. It owns the access token cache:
// reads are non-blocking under an RLock, refreshes swap in a copy so callers
// never observe a half-written token.
type apiClient struct {
	endpoint string
	http     *http.Client
	source   oauth2.TokenSource

	mu  sync.RWMutex
	tok *oauth2.Token
}

func newAPIClient(endpoint string, hc *http.Client, ts oauth2.TokenSource) *apiClient {
	return &apiClient{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		http:     hc,
		source:   ts,
	}
}

func (c *apiClient) token() (string, error) {
	c.mu.RLock()
	tok := c.tok
	c.mu.RUnlock()
	if tok.Valid() {
		return tok.AccessToken, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tok.Valid() {
		return c.tok.AccessToken, nil
	}
	tok, err := c.source.Token()
	if err != nil {
		return "", errtypes.CloudAuth("dropbox: obtaining access token: " + err.Error())
	}
	c.tok = tok
	return tok.AccessToken, nil
}

func (c *apiClient) invalidateToken() {
	c.mu.Lock()
	c.tok = nil
	c.mu.Unlock()
}

// call performs one RPC-style POST against /2/<endpoint>. A non-empty nsID
// is sent as the Dropbox-API-Path-Root header so path arguments are resolved
// relative to that workspace namespace. A 401 triggers one token refresh and
// replay; the second auth failure is terminal.
func (c *apiClient) call(ctx context.Context, endpoint, nsID string, args, reply interface{}) error {
	err := c.do(ctx, endpoint, nsID, args, reply)
	if err == nil {
		return nil
	}
	if _, ok := err.(errtypes.IsCloudAuth); ok {
		c.invalidateToken()
		return c.do(ctx, endpoint, nsID, args, reply)
	}
	return err
}

func (c *apiClient) do(ctx context.Context, endpoint, nsID string, args, reply interface{}) error {
	tok, err := c.token()
	if err != nil {
		return err
	}

	body, err := json.Marshal(args)
	if err != nil {
		return errtypes.InternalError("dropbox: marshaling " + endpoint + " args: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/2/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return errtypes.InternalError("dropbox: building request: " + err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	if nsID != "" {
		root, err := json.Marshal(pathRootArg{Tag: "namespace_id", NamespaceID: nsID})
		if err != nil {
			return errtypes.InternalError("dropbox: marshaling path root: " + err.Error())
		}
		req.Header.Set("Dropbox-API-Path-Root", string(root))
	}

	res, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errtypes.CloudTransient("dropbox: " + endpoint + ": " + err.Error())
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		if reply == nil {
			return nil
		}
		if err := json.NewDecoder(res.Body).Decode(reply); err != nil {
			return errors.Wrapf(err, "dropbox: decoding %s response", endpoint)
		}
		return nil
	case res.StatusCode == http.StatusUnauthorized:
		return errtypes.CloudAuth("dropbox: " + endpoint + ": unauthorized")
	case res.StatusCode == http.StatusForbidden:
		return errtypes.CloudAuth("dropbox: " + endpoint + ": forbidden")
	case res.StatusCode == http.StatusConflict:
		return parseConflict(endpoint, res.Body)
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
		return errtypes.CloudTransient(fmt.Sprintf("dropbox: %s: status %d", endpoint, res.StatusCode))
	default:
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return errors.Errorf("dropbox: %s: unexpected status %d: %s", endpoint, res.StatusCode, raw)
	}
}

// conflictError carries the raw error_summary of a 409 so operations can map
// endpoint-specific conditions (folder conflicts, existing share links).
type conflictError struct {
	endpoint string
	summary  string
}

func (e *conflictError) Error() string {
	return "dropbox: " + e.endpoint + ": " + e.summary
}

func (e *conflictError) is(token string) bool {
	return strings.Contains(e.summary, token)
}

func parseConflict(endpoint string, r io.Reader) error {
	var body apiErrorBody
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return errtypes.CloudTransient("dropbox: " + endpoint + ": undecodable 409")
	}
	ce := &conflictError{endpoint: endpoint, summary: body.ErrorSummary}
	if ce.is("not_found") {
		return errtypes.NotFound("dropbox: " + endpoint + ": " + body.ErrorSummary)
	}
	return ce
}

func asConflict(err error) (*conflictError, bool) {
	ce, ok := err.(*conflictError)
	return ce, ok
}
