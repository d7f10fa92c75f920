package handler

import (
	"context"
	"net/url"

	"github.com/udisondev/galaxyd/internal/gog"
	"github.com/udisondev/galaxyd/internal/model"
)

// mockAPI — мок RemoteAPI для unit тестов.
type mockAPI struct {
	RefreshTokenFunc       func(ctx context.Context, clientID, clientSecret, refreshToken, scope string) (model.Token, error)
	UserInfoFunc           func(ctx context.Context, accessToken string) (model.UserInfo, error)
	AchievementsFunc       func(ctx context.Context, clientID, userID string) ([]model.Achievement, string, error)
	SetAchievementFunc     func(ctx context.Context, clientID, userID string, achievementID int64, dateUnlocked string) error
	DeleteAchievementsFunc func(ctx context.Context, clientID, userID string) error
	StatsFunc              func(ctx context.Context, clientID, userID string) ([]model.Stat, error)
	UpdateStatFunc         func(ctx context.Context, clientID, userID string, stat model.Stat) error
	DeleteStatsFunc        func(ctx context.Context, clientID, userID string) error
	LeaderboardsFunc       func(ctx context.Context, clientID string, keys []string) ([]model.Leaderboard, error)
	EntriesFunc            func(ctx context.Context, clientID string, leaderboardID int64, params url.Values) (*gog.LeaderboardEntries, error)
	PostScoreFunc          func(ctx context.Context, clientID, userID string, leaderboardID int64, score int32, force bool, details string) (*gog.ScoreUpdate, error)
	CreateLeaderboardFunc  func(ctx context.Context, clientID, key, name, sortMethod, displayType string) (int64, error)
	ProductDetailsFunc     func(ctx context.Context, productID uint64) ([]byte, error)
}

func (m *mockAPI) RefreshToken(ctx context.Context, clientID, clientSecret, refreshToken, scope string) (model.Token, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, clientID, clientSecret, refreshToken, scope)
	}
	return model.Token{AccessToken: "game-access", RefreshToken: "game-refresh"}, nil
}

func (m *mockAPI) UserInfo(ctx context.Context, accessToken string) (model.UserInfo, error) {
	if m.UserInfoFunc != nil {
		return m.UserInfoFunc(ctx, accessToken)
	}
	return model.UserInfo{}, nil
}

func (m *mockAPI) Achievements(ctx context.Context, clientID, userID string) ([]model.Achievement, string, error) {
	if m.AchievementsFunc != nil {
		return m.AchievementsFunc(ctx, clientID, userID)
	}
	return nil, "", nil
}

func (m *mockAPI) SetAchievement(ctx context.Context, clientID, userID string, achievementID int64, dateUnlocked string) error {
	if m.SetAchievementFunc != nil {
		return m.SetAchievementFunc(ctx, clientID, userID, achievementID, dateUnlocked)
	}
	return nil
}

func (m *mockAPI) DeleteAchievements(ctx context.Context, clientID, userID string) error {
	if m.DeleteAchievementsFunc != nil {
		return m.DeleteAchievementsFunc(ctx, clientID, userID)
	}
	return nil
}

func (m *mockAPI) Stats(ctx context.Context, clientID, userID string) ([]model.Stat, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, clientID, userID)
	}
	return nil, nil
}

func (m *mockAPI) UpdateStat(ctx context.Context, clientID, userID string, stat model.Stat) error {
	if m.UpdateStatFunc != nil {
		return m.UpdateStatFunc(ctx, clientID, userID, stat)
	}
	return nil
}

func (m *mockAPI) DeleteStats(ctx context.Context, clientID, userID string) error {
	if m.DeleteStatsFunc != nil {
		return m.DeleteStatsFunc(ctx, clientID, userID)
	}
	return nil
}

func (m *mockAPI) Leaderboards(ctx context.Context, clientID string, keys []string) ([]model.Leaderboard, error) {
	if m.LeaderboardsFunc != nil {
		return m.LeaderboardsFunc(ctx, clientID, keys)
	}
	return nil, nil
}

func (m *mockAPI) Entries(ctx context.Context, clientID string, leaderboardID int64, params url.Values) (*gog.LeaderboardEntries, error) {
	if m.EntriesFunc != nil {
		return m.EntriesFunc(ctx, clientID, leaderboardID, params)
	}
	return &gog.LeaderboardEntries{}, nil
}

func (m *mockAPI) PostScore(ctx context.Context, clientID, userID string, leaderboardID int64, score int32, force bool, details string) (*gog.ScoreUpdate, error) {
	if m.PostScoreFunc != nil {
		return m.PostScoreFunc(ctx, clientID, userID, leaderboardID, score, force, details)
	}
	return &gog.ScoreUpdate{}, nil
}

func (m *mockAPI) CreateLeaderboard(ctx context.Context, clientID, key, name, sortMethod, displayType string) (int64, error) {
	if m.CreateLeaderboardFunc != nil {
		return m.CreateLeaderboardFunc(ctx, clientID, key, name, sortMethod, displayType)
	}
	return 0, nil
}

func (m *mockAPI) ProductDetails(ctx context.Context, productID uint64) ([]byte, error) {
	if m.ProductDetailsFunc != nil {
		return m.ProductDetailsFunc(ctx, productID)
	}
	return []byte(`{}`), nil
}
