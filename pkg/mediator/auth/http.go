package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPAuthenticator forwards BasicAuth credentials to the external
// auth service named in pkg/config/mediator.Config.AuthEndpoint and
// decodes its yes/no + role + access-tags verdict (spec.md §1).
// Built directly on net/http rather than a client library: none of the
// example repos import one for outbound calls, and this boundary is a
// single GET with BasicAuth, not worth a dependency on its own.
type HTTPAuthenticator struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPAuthenticator(endpoint string) *HTTPAuthenticator {
	return &HTTPAuthenticator{Endpoint: endpoint, Client: http.DefaultClient}
}

type authResponse struct {
	Valid      bool     `json:"valid"`
	Username   string   `json:"username"`
	Sudo       bool     `json:"sudo"`
	AccessTags []string `json:"access_tags"`
}

func (a *HTTPAuthenticator) Authenticate(ctx context.Context, username, password string) (Identity, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.Endpoint, nil)
	if err != nil {
		return Identity{}, false, err
	}
	req.SetBasicAuth(username, password)

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Identity{}, false, fmt.Errorf("calling auth endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Identity{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, false, fmt.Errorf("auth endpoint returned status %d", resp.StatusCode)
	}

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Identity{}, false, fmt.Errorf("decoding auth response: %w", err)
	}
	if !out.Valid {
		return Identity{}, false, nil
	}
	return Identity{Username: out.Username, Sudo: out.Sudo, AccessTags: out.AccessTags}, true, nil
}
