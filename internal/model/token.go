package model

import (
	"strings"
	"time"
)

// Token is an OAuth credential pair for one client id as returned by the
// auth service.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope,omitempty"`

	// ObtainedAt is set locally when the token is stored.
	ObtainedAt time.Time `json:"-"`
}

// MaxTokenAge is how long an access token is trusted before a refresh is
// forced. The service issues tokens valid for 3600 s; refreshing at 3500
// keeps a margin for in-flight requests.
const MaxTokenAge = 3500 * time.Second

// Stale reports whether the token is due for a refresh.
func (t Token) Stale(now time.Time) bool {
	return now.Sub(t.ObtainedAt) >= MaxTokenAge
}

// OpenIDScope returns "openid" when this token carries it, so the scope
// propagates into every game-token refresh minted from it.
func (t Token) OpenIDScope() string {
	if strings.Contains(t.Scope, "openid") {
		return "openid"
	}
	return ""
}

// UserInfo describes the authenticated user as served by userData.json.
type UserInfo struct {
	Username     string `json:"username"`
	GalaxyUserID string `json:"galaxyUserId"`
}
