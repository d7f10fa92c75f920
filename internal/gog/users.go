package gog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/udisondev/galaxyd/internal/model"
)

// refreshTimeout bounds the token refresh round trip; the sync engine
// treats a timeout here as going offline.
const refreshTimeout = 10 * time.Second

// RefreshToken mints a token for clientID from a refresh token. scope is
// forwarded when non-empty (openid propagation from the bootstrap
// credentials). A 403 means the user does not own the game.
func (c *Client) RefreshToken(ctx context.Context, clientID, clientSecret, refreshToken, scope string) (model.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("client_secret", clientSecret)
	q.Set("refresh_token", refreshToken)
	if scope != "" {
		q.Set("scope", scope)
	}
	u := c.endpoints.Auth + "/token?grant_type=refresh_token&without_new_session=1&" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.Token{}, fmt.Errorf("building request: %w", err)
	}

	var t model.Token
	if err := c.do(req, &t); err != nil {
		return model.Token{}, fmt.Errorf("refreshing token for %s: %w", clientID, err)
	}
	t.ObtainedAt = time.Now()
	return t, nil
}

// UserInfo fetches the authenticated user's identity from the embed
// service.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (model.UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.Embed+"/userData.json", nil)
	if err != nil {
		return model.UserInfo{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var info model.UserInfo
	if err := c.do(req, &info); err != nil {
		return model.UserInfo{}, fmt.Errorf("fetching user info: %w", err)
	}
	return info, nil
}

// ProductDetails proxies a store product lookup for the overlay.
// Returns the raw JSON document.
func (c *Client) ProductDetails(ctx context.Context, productID uint64) ([]byte, error) {
	u := fmt.Sprintf("%s/products/%d?expand=description", c.endpoints.API, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading product details: %w", err)
	}
	return data, nil
}
