package gog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/udisondev/galaxyd/internal/model"
)

type leaderboardJSON struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	SortMethod  string `json:"sort_method"`
	DisplayType string `json:"display_type"`
}

type leaderboardsResponse struct {
	Items []leaderboardJSON `json:"items"`
}

// Leaderboards lists the game's leaderboard definitions, optionally
// restricted to the given keys.
func (c *Client) Leaderboards(ctx context.Context, clientID string, keys []string) ([]model.Leaderboard, error) {
	u := fmt.Sprintf("%s/clients/%s/leaderboards", c.endpoints.Gameplay, clientID)
	if len(keys) > 0 {
		u += "?keys=" + url.QueryEscape(strings.Join(keys, ","))
	}

	var resp leaderboardsResponse
	if err := c.get(ctx, clientID, u, &resp); err != nil {
		return nil, fmt.Errorf("fetching leaderboards: %w", err)
	}

	out := make([]model.Leaderboard, 0, len(resp.Items))
	for _, item := range resp.Items {
		id, err := strconv.ParseInt(item.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing leaderboard id %q: %w", item.ID, err)
		}
		out = append(out, model.Leaderboard{
			ID:          id,
			Key:         item.Key,
			Name:        item.Name,
			SortMethod:  item.SortMethod,
			DisplayType: item.DisplayType,
		})
	}
	return out, nil
}

// LeaderboardEntry is one ranked entry from the remote service.
type LeaderboardEntry struct {
	UserID  string  `json:"user_id"`
	Rank    uint32  `json:"rank"`
	Score   int32   `json:"score"`
	Details *string `json:"details"`
}

// LeaderboardEntries is a page of ranked entries.
type LeaderboardEntries struct {
	Items           []LeaderboardEntry `json:"items"`
	EntryTotalCount uint32             `json:"leaderboard_entry_total_count"`
}

// Entries fetches leaderboard entries. params carries one of the three
// selection shapes: range_start/range_end, count_before/count_after&user,
// or users=csv.
func (c *Client) Entries(ctx context.Context, clientID string, leaderboardID int64, params url.Values) (*LeaderboardEntries, error) {
	u := fmt.Sprintf("%s/clients/%s/leaderboards/%d/entries", c.endpoints.Gameplay, clientID, leaderboardID)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var resp LeaderboardEntries
	if err := c.get(ctx, clientID, u, &resp); err != nil {
		return nil, fmt.Errorf("fetching leaderboard %d entries: %w", leaderboardID, err)
	}
	return &resp, nil
}

type scoreUpdateRequest struct {
	Score   int32   `json:"score"`
	Force   bool    `json:"force"`
	Details *string `json:"details,omitempty"`
}

// ScoreUpdate is the remote service's answer to a posted score.
type ScoreUpdate struct {
	OldRank         uint32 `json:"old_rank"`
	NewRank         uint32 `json:"new_rank"`
	EntryTotalCount uint32 `json:"leaderboard_entry_total_count"`
}

// PostScore submits the user's score. details, when non-empty, is the
// url-safe base64 blob from the cache. A 409 means the remote holds a
// better score and force was not set.
func (c *Client) PostScore(ctx context.Context, clientID, userID string, leaderboardID int64, score int32, force bool, details string) (*ScoreUpdate, error) {
	u := fmt.Sprintf("%s/clients/%s/users/%s/leaderboards/%d", c.endpoints.Gameplay, clientID, userID, leaderboardID)

	body := scoreUpdateRequest{Score: score, Force: force}
	if details != "" {
		body.Details = &details
	}

	var resp ScoreUpdate
	if err := c.postJSON(ctx, clientID, u, body, &resp); err != nil {
		return nil, fmt.Errorf("posting score to leaderboard %d: %w", leaderboardID, err)
	}
	return &resp, nil
}

type createLeaderboardRequest struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	SortMethod  string `json:"sort_method"`
	DisplayType string `json:"display_type"`
}

// CreateLeaderboard registers a new leaderboard and returns its id.
func (c *Client) CreateLeaderboard(ctx context.Context, clientID, key, name, sortMethod, displayType string) (int64, error) {
	u := fmt.Sprintf("%s/clients/%s/leaderboards", c.endpoints.Gameplay, clientID)

	body := createLeaderboardRequest{Key: key, Name: name, SortMethod: sortMethod, DisplayType: displayType}
	var resp leaderboardJSON
	if err := c.postJSON(ctx, clientID, u, body, &resp); err != nil {
		return 0, fmt.Errorf("creating leaderboard %q: %w", key, err)
	}

	id, err := strconv.ParseInt(resp.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing created leaderboard id %q: %w", resp.ID, err)
	}
	return id, nil
}
