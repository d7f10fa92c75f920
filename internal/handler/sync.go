package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/udisondev/galaxyd/internal/gog"
	"github.com/udisondev/galaxyd/internal/model"
)

// syncCycle reconciles dirty cache rows with the remote service. It runs
// every tick and once at shutdown. A refresh failure halts the whole
// cycle; a per-row failure leaves that row dirty for the next tick. The
// cycle never aborts the handler.
func (h *Handler) syncCycle(ctx context.Context) {
	if !h.hctx.Online() || !h.hctx.Identified() {
		return
	}

	if !h.refreshTokenIfStale(ctx) {
		return
	}

	if h.hctx.Dirty(SyncAchievements) {
		h.syncAchievements(ctx)
	}
	if h.hctx.Dirty(SyncStats) {
		h.syncStats(ctx)
	}
	if h.hctx.Dirty(SyncLeaderboards) {
		h.syncLeaderboards(ctx)
	}
}

// refreshTokenIfStale refreshes the game token once it is 3500 s old.
// Returns false when the cycle must stop.
func (h *Handler) refreshTokenIfStale(ctx context.Context) bool {
	clientID, clientSecret := h.hctx.Credentials()
	t, ok := h.store.Get(clientID)
	if !ok {
		return false
	}
	if !t.Stale(time.Now()) {
		return true
	}

	newToken, err := h.api.RefreshToken(ctx, clientID, clientSecret, t.RefreshToken, t.Scope)
	if err != nil {
		if isOffline(err) {
			h.hctx.SetOnline(false)
		}
		slog.Warn("token refresh failed, halting sync cycle", "client_id", clientID, "err", err)
		return false
	}
	h.store.Replace(clientID, newToken)
	slog.Debug("game token refreshed", "client_id", clientID)
	return true
}

func (h *Handler) syncAchievements(ctx context.Context) {
	db := h.hctx.DB()
	if db == nil {
		return
	}
	clientID := h.hctx.ClientID()

	rows, err := db.Achievements(ctx, true)
	if err != nil {
		slog.Error("listing dirty achievements", "err", err)
		return
	}

	var cleared []int64
	failed := false
	for _, a := range rows {
		err := h.api.SetAchievement(ctx, clientID, h.userID(), a.ID, a.UnlockTime)
		if err != nil {
			failed = true
			if isOffline(err) {
				h.hctx.SetOnline(false)
				break
			}
			slog.Warn("achievement push failed, will retry", "achievement_id", a.ID, "err", err)
			continue
		}
		cleared = append(cleared, a.ID)
	}

	if err := db.ClearAchievementsChanged(ctx, cleared...); err != nil {
		slog.Error("clearing pushed achievements", "err", err)
		return
	}
	if !failed {
		h.hctx.ClearDirty(SyncAchievements)
	}
}

func (h *Handler) syncStats(ctx context.Context) {
	db := h.hctx.DB()
	if db == nil {
		return
	}
	clientID := h.hctx.ClientID()

	rows, err := db.Statistics(ctx, true)
	if err != nil {
		slog.Error("listing dirty stats", "err", err)
		return
	}

	var cleared []int64
	failed := false
	for _, s := range rows {
		err := h.api.UpdateStat(ctx, clientID, h.userID(), s)
		if err != nil {
			failed = true
			if isOffline(err) {
				h.hctx.SetOnline(false)
				break
			}
			slog.Warn("stat push failed, will retry", "stat_id", s.ID, "err", err)
			continue
		}
		cleared = append(cleared, s.ID)
	}

	if err := db.ClearStatsChanged(ctx, cleared...); err != nil {
		slog.Error("clearing pushed stats", "err", err)
		return
	}
	if !failed {
		h.hctx.ClearDirty(SyncStats)
	}
}

func (h *Handler) syncLeaderboards(ctx context.Context) {
	db := h.hctx.DB()
	if db == nil {
		return
	}
	clientID := h.hctx.ClientID()

	rows, err := db.Leaderboards(ctx, true)
	if err != nil {
		slog.Error("listing dirty leaderboards", "err", err)
		return
	}

	failed := false
	for _, l := range rows {
		update, err := h.api.PostScore(ctx, clientID, h.userID(), l.ID, l.Score, l.ForceUpdate, l.Details)
		switch {
		case err == nil:
			if err := db.ApplyServerScore(ctx, l.ID, l.Score, update.NewRank, update.EntryTotalCount); err != nil {
				slog.Error("recording synced score", "leaderboard_id", l.ID, "err", err)
			}

		case gog.HTTPStatus(err) == 409:
			// The remote holds a better score; adopt it.
			if err := h.syncScoreConflict(ctx, clientID, l); err != nil {
				failed = true
				slog.Warn("score conflict resolution failed", "leaderboard_id", l.ID, "err", err)
			}

		case isOffline(err):
			h.hctx.SetOnline(false)
			return

		default:
			failed = true
			slog.Warn("score push failed, will retry", "leaderboard_id", l.ID, "err", err)
		}
	}

	if !failed {
		h.hctx.ClearDirty(SyncLeaderboards)
	}
}

func (h *Handler) syncScoreConflict(ctx context.Context, clientID string, l model.Leaderboard) error {
	params := url.Values{}
	params.Set("users", h.userID())
	entries, err := h.api.Entries(ctx, clientID, l.ID, params)
	if err != nil {
		return err
	}
	if len(entries.Items) == 0 {
		return fmt.Errorf("no remote entry for leaderboard %d", l.ID)
	}
	e := entries.Items[0]
	return h.hctx.DB().ApplyServerScore(ctx, l.ID, e.Score, e.Rank, entries.EntryTotalCount)
}
