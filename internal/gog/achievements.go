package gog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/udisondev/galaxyd/internal/model"
)

type achievementJSON struct {
	AchievementID          string  `json:"achievement_id"`
	AchievementKey         string  `json:"achievement_key"`
	Name                   string  `json:"name"`
	Description            string  `json:"description"`
	ImageURLLocked         string  `json:"image_url_locked"`
	ImageURLUnlocked       string  `json:"image_url_unlocked"`
	Visible                bool    `json:"visible"`
	DateUnlocked           *string `json:"date_unlocked"`
	Rarity                 float32 `json:"rarity"`
	RarityLevelDescription string  `json:"rarity_level_description"`
	RarityLevelSlug        string  `json:"rarity_level_slug"`
}

type achievementsResponse struct {
	TotalCount       uint32            `json:"total_count"`
	Items            []achievementJSON `json:"items"`
	AchievementsMode string            `json:"achievements_mode"`
}

// Achievements lists the user's achievements for one game. The second
// return value is the game's achievements mode.
func (c *Client) Achievements(ctx context.Context, clientID, userID string) ([]model.Achievement, string, error) {
	u := fmt.Sprintf("%s/clients/%s/users/%s/achievements", c.endpoints.Gameplay, clientID, userID)

	var resp achievementsResponse
	if err := c.get(ctx, clientID, u, &resp); err != nil {
		return nil, "", fmt.Errorf("fetching achievements: %w", err)
	}

	out := make([]model.Achievement, 0, len(resp.Items))
	for _, item := range resp.Items {
		id, err := strconv.ParseInt(item.AchievementID, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("parsing achievement id %q: %w", item.AchievementID, err)
		}
		a := model.Achievement{
			ID:                 id,
			Key:                item.AchievementKey,
			Name:               item.Name,
			Description:        item.Description,
			ImageURLLocked:     item.ImageURLLocked,
			ImageURLUnlocked:   item.ImageURLUnlocked,
			VisibleWhileLocked: item.Visible,
			Rarity:             item.Rarity,
			RarityDescription:  item.RarityLevelDescription,
			RaritySlug:         item.RarityLevelSlug,
		}
		if item.DateUnlocked != nil {
			a.UnlockTime = *item.DateUnlocked
		}
		out = append(out, a)
	}
	return out, resp.AchievementsMode, nil
}

type setAchievementRequest struct {
	DateUnlocked *string `json:"date_unlocked"`
}

// SetAchievement posts an unlock (or a clear when dateUnlocked is empty)
// to the gameplay service.
func (c *Client) SetAchievement(ctx context.Context, clientID, userID string, achievementID int64, dateUnlocked string) error {
	u := fmt.Sprintf("%s/clients/%s/users/%s/achievements/%d", c.endpoints.Gameplay, clientID, userID, achievementID)

	var body setAchievementRequest
	if dateUnlocked != "" {
		body.DateUnlocked = &dateUnlocked
	}
	if err := c.postJSON(ctx, clientID, u, body, nil); err != nil {
		return fmt.Errorf("posting achievement %d: %w", achievementID, err)
	}
	return nil
}

// DeleteAchievements removes all the user's achievements for one game.
func (c *Client) DeleteAchievements(ctx context.Context, clientID, userID string) error {
	u := fmt.Sprintf("%s/clients/%s/users/%s/achievements", c.endpoints.Gameplay, clientID, userID)
	if err := c.delete(ctx, clientID, u); err != nil {
		return fmt.Errorf("deleting achievements: %w", err)
	}
	return nil
}
