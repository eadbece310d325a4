package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clinic/backoffice/internal/core/domain"
)

const defaultTimeout = 5 * time.Second

// Client fetches identities from the user service's full-data endpoint.
// That endpoint returns password hashes and must only be reachable on the
// internal network.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// fullData mirrors the user service's full-data response body.
type fullData struct {
	Email                 string   `json:"email"`
	FullName              string   `json:"fullName"`
	Password              string   `json:"password"`
	Roles                 []string `json:"roles"`
	Enabled               bool     `json:"enabled"`
	AccountNonExpired     bool     `json:"accountNonExpired"`
	AccountNonLocked      bool     `json:"accountNonLocked"`
	CredentialsNonExpired bool     `json:"credentialsNonExpired"`
}

// FullData returns the identity for email. Any non-200 answer is reported as
// "User not found"; transport failures become Upstream errors and timeouts
// UpstreamTimeout errors.
func (c *Client) FullData(ctx context.Context, email string) (*domain.Identity, error) {
	endpoint := c.baseURL + "/users/full-data/" + url.PathEscape(email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, domain.UpstreamTimeout("directory lookup timed out", err)
		}
		return nil, domain.Upstream("directory lookup failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, domain.NotFound(domain.MsgUserNotFound)
	}

	var body fullData
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if isTimeout(err) {
			return nil, domain.UpstreamTimeout("directory lookup timed out", err)
		}
		return nil, domain.Upstream("invalid directory response", err)
	}

	roles := make([]domain.RoleName, 0, len(body.Roles))
	for _, r := range body.Roles {
		roles = append(roles, domain.RoleName(r))
	}
	return &domain.Identity{
		Email:                 body.Email,
		FullName:              body.FullName,
		PasswordHash:          body.Password,
		Roles:                 roles,
		Enabled:               body.Enabled,
		AccountNonExpired:     body.AccountNonExpired,
		AccountNonLocked:      body.AccountNonLocked,
		CredentialsNonExpired: body.CredentialsNonExpired,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
