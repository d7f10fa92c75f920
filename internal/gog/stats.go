package gog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/udisondev/galaxyd/internal/model"
)

type statJSON struct {
	StatID        string   `json:"stat_id"`
	StatKey       string   `json:"stat_key"`
	Type          string   `json:"type"`
	Window        *float64 `json:"window"`
	IncrementOnly bool     `json:"increment_only"`
	Value         *float64 `json:"value"`
	DefaultValue  *float64 `json:"default_value"`
	MinValue      *float64 `json:"min_value"`
	MaxValue      *float64 `json:"max_value"`
	MaxChange     *float64 `json:"max_change"`
}

type statsResponse struct {
	TotalCount uint32     `json:"total_count"`
	Items      []statJSON `json:"items"`
}

// Stats lists the user's statistics for one game.
func (c *Client) Stats(ctx context.Context, clientID, userID string) ([]model.Stat, error) {
	u := fmt.Sprintf("%s/clients/%s/users/%s/stats", c.endpoints.Gameplay, clientID, userID)

	var resp statsResponse
	if err := c.get(ctx, clientID, u, &resp); err != nil {
		return nil, fmt.Errorf("fetching stats: %w", err)
	}

	out := make([]model.Stat, 0, len(resp.Items))
	for _, item := range resp.Items {
		id, err := strconv.ParseInt(item.StatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing stat id %q: %w", item.StatID, err)
		}
		s := model.Stat{
			ID:            id,
			Key:           item.StatKey,
			IncrementOnly: item.IncrementOnly,
			Window:        item.Window,
		}
		switch strings.ToLower(item.Type) {
		case "int":
			s.Type = model.StatInt
			s.IValue = floatToInt(item.Value)
			s.IDefault = floatToInt(item.DefaultValue)
			s.IMin = floatToIntPtr(item.MinValue)
			s.IMax = floatToIntPtr(item.MaxValue)
			s.IMaxChange = floatToIntPtr(item.MaxChange)
		case "float":
			s.Type = model.StatFloat
			fillFloat(&s, item)
		case "avgrate":
			s.Type = model.StatAvgRate
			fillFloat(&s, item)
		default:
			return nil, fmt.Errorf("stat %d has unknown type %q", id, item.Type)
		}
		out = append(out, s)
	}
	return out, nil
}

func fillFloat(s *model.Stat, item statJSON) {
	if item.Value != nil {
		s.FValue = *item.Value
	}
	if item.DefaultValue != nil {
		s.FDefault = *item.DefaultValue
	}
	s.FMin = item.MinValue
	s.FMax = item.MaxValue
	s.FMaxChange = item.MaxChange
}

func floatToInt(v *float64) int64 {
	if v == nil {
		return 0
	}
	return int64(*v)
}

func floatToIntPtr(v *float64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

type updateStatRequest struct {
	Value any `json:"value"`
}

// UpdateStat posts a statistic's current value; ints go as ints, float
// and avgrate as floats.
func (c *Client) UpdateStat(ctx context.Context, clientID, userID string, stat model.Stat) error {
	u := fmt.Sprintf("%s/clients/%s/users/%s/stats/%d", c.endpoints.Gameplay, clientID, userID, stat.ID)

	var body updateStatRequest
	if stat.Type == model.StatInt {
		body.Value = stat.IValue
	} else {
		body.Value = stat.FValue
	}
	if err := c.postJSON(ctx, clientID, u, body, nil); err != nil {
		return fmt.Errorf("posting stat %d: %w", stat.ID, err)
	}
	return nil
}

// DeleteStats removes all the user's statistics for one game.
func (c *Client) DeleteStats(ctx context.Context, clientID, userID string) error {
	u := fmt.Sprintf("%s/clients/%s/users/%s/stats", c.endpoints.Gameplay, clientID, userID)
	if err := c.delete(ctx, clientID, u); err != nil {
		return fmt.Errorf("deleting stats: %w", err)
	}
	return nil
}
