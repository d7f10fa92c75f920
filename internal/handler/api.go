package handler

import (
	"context"
	"net/url"

	"github.com/udisondev/galaxyd/internal/gameplay"
	"github.com/udisondev/galaxyd/internal/gog"
	"github.com/udisondev/galaxyd/internal/model"
)

// RemoteAPI is the slice of the gameplay/auth services the handler talks
// to. *gog.Client implements it; tests substitute a mock.
type RemoteAPI interface {
	RefreshToken(ctx context.Context, clientID, clientSecret, refreshToken, scope string) (model.Token, error)
	UserInfo(ctx context.Context, accessToken string) (model.UserInfo, error)

	Achievements(ctx context.Context, clientID, userID string) ([]model.Achievement, string, error)
	SetAchievement(ctx context.Context, clientID, userID string, achievementID int64, dateUnlocked string) error
	DeleteAchievements(ctx context.Context, clientID, userID string) error

	Stats(ctx context.Context, clientID, userID string) ([]model.Stat, error)
	UpdateStat(ctx context.Context, clientID, userID string, stat model.Stat) error
	DeleteStats(ctx context.Context, clientID, userID string) error

	Leaderboards(ctx context.Context, clientID string, keys []string) ([]model.Leaderboard, error)
	Entries(ctx context.Context, clientID string, leaderboardID int64, params url.Values) (*gog.LeaderboardEntries, error)
	PostScore(ctx context.Context, clientID, userID string, leaderboardID int64, score int32, force bool, details string) (*gog.ScoreUpdate, error)
	CreateLeaderboard(ctx context.Context, clientID, key, name, sortMethod, displayType string) (int64, error)

	ProductDetails(ctx context.Context, productID uint64) ([]byte, error)
}

// CacheOpener lazily opens the gameplay cache for a (client, user) pair
// on the first auth_info_request.
type CacheOpener func(ctx context.Context, clientID, userID string) (*gameplay.Database, error)
