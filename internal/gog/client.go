// Package gog is the typed HTTPS client for the vendor's auth, embed and
// gameplay services.
package gog

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/udisondev/galaxyd/internal/config"
	"github.com/udisondev/galaxyd/internal/token"
)

// Client issues requests against the vendor services. It is safe for
// concurrent use; tokens are cloned out of the store before any request.
type Client struct {
	http      *http.Client
	store     *token.Store
	endpoints config.Endpoints
	locale    string
	userAgent string
}

// NewClient builds the shared HTTPS client. rootCA, when non-nil, is a
// PEM bundle appended to the system trust store (the embedding
// application ships the vendor root). version goes into the User-Agent
// next to the desktop-client-compatible string.
func NewClient(store *token.Store, endpoints config.Endpoints, locale string, rootCA []byte, version string) (*Client, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if len(rootCA) > 0 {
		if !pool.AppendCertsFromPEM(rootCA) {
			return nil, fmt.Errorf("parsing bundled root certificate")
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{RootCAs: pool}

	return &Client{
		http:      &http.Client{Transport: transport},
		store:     store,
		endpoints: endpoints,
		locale:    locale,
		userAgent: fmt.Sprintf("GOGGalaxyCommunicationService/2.0.75 galaxyd/%s", version),
	}, nil
}

// accessToken clones the token for clientID out of the store. The store
// lock is never held across a request.
func (c *Client) accessToken(clientID string) (string, error) {
	t, ok := c.store.Get(clientID)
	if !ok {
		return "", fmt.Errorf("no token for client %s: %w", clientID, ErrUnauthorized)
	}
	return t.AccessToken, nil
}

// do sends the request and enforces a 2xx status. On success the body is
// decoded into out when out is non-nil.
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return statusError(resp.StatusCode)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// get issues an authenticated GET with the gameplay locale header.
func (c *Client) get(ctx context.Context, clientID, url string, out any) error {
	accessToken, err := c.accessToken(clientID)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Gog-Lc", c.locale)
	return c.do(req, out)
}

// postJSON issues an authenticated POST with a JSON body.
func (c *Client) postJSON(ctx context.Context, clientID, url string, body, out any) error {
	accessToken, err := c.accessToken(clientID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gog-Lc", c.locale)
	return c.do(req, out)
}

// delete issues an authenticated DELETE.
func (c *Client) delete(ctx context.Context, clientID, url string) error {
	accessToken, err := c.accessToken(clientID)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return c.do(req, nil)
}
