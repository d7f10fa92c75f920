package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/udisondev/galaxyd/internal/gog"
	"github.com/udisondev/galaxyd/internal/model"
	"github.com/udisondev/galaxyd/internal/protocol"
	"github.com/udisondev/galaxyd/internal/token"
)

// handleComm dispatches sort 1 (communication service) messages.
func (h *Handler) handleComm(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	switch f.Header.Type {
	case protocol.MsgAuthInfoRequest:
		return h.authInfo(ctx, f)
	case protocol.MsgGetUserStatsRequest:
		return h.getUserStats(ctx, f)
	case protocol.MsgUpdateUserStatRequest:
		return h.updateUserStat(ctx, f)
	case protocol.MsgGetUserAchievementsRequest:
		return h.getUserAchievements(ctx, f)
	case protocol.MsgUnlockUserAchievementRequest:
		return h.unlockUserAchievement(ctx, f)
	case protocol.MsgClearUserAchievementRequest:
		return h.clearUserAchievement(ctx, f)
	case protocol.MsgGetLeaderboardsRequest:
		return h.getLeaderboards(ctx, f, nil)
	case protocol.MsgGetLeaderboardsByKeyRequest:
		var req protocol.GetLeaderboardsByKeyRequest
		if err := req.Unmarshal(f.Payload); err != nil {
			return nil, nil, protoDrop("get_leaderboards_by_key", err)
		}
		return h.getLeaderboards(ctx, f, req.Keys)
	case protocol.MsgGetLeaderboardEntriesGlobalRequest,
		protocol.MsgGetLeaderboardEntriesAroundUserRequest,
		protocol.MsgGetLeaderboardEntriesForUsersRequest:
		return h.getLeaderboardEntries(ctx, f)
	case protocol.MsgSetLeaderboardScoreRequest:
		return h.setLeaderboardScore(ctx, f)
	case protocol.MsgCreateLeaderboardRequest:
		return h.createLeaderboard(ctx, f)
	case protocol.MsgDeleteUserStatsRequest:
		return h.deleteUserStats(ctx, f)
	case protocol.MsgDeleteUserAchievementsRequest:
		return h.deleteUserAchievements(ctx, f)
	case protocol.MsgStartGameSessionRequest:
		return h.startGameSession(ctx, f)
	case protocol.MsgAuthStateChangeNotification:
		slog.Debug("auth state change notification received")
		return nil, nil, ErrIgnored
	default:
		return nil, nil, ErrNotImplemented
	}
}

// protoDrop logs a payload parse failure; the frame is dropped and the
// connection lives on.
func protoDrop(what string, err error) error {
	slog.Warn("dropping malformed payload", "message", what, "err", err)
	return ErrIgnored
}

func commHeader(msgType uint32) *protocol.Header {
	return &protocol.Header{Sort: protocol.SortCommunicationService, Type: msgType}
}

// userID returns the bootstrap user id as the decimal string the
// gameplay endpoints expect.
func (h *Handler) userID() string {
	return h.user.GalaxyUserID
}

// taggedUserID returns the user id in wire form (top byte = user tag).
func (h *Handler) taggedUserID() uint64 {
	inner, err := strconv.ParseUint(h.user.GalaxyUserID, 10, 64)
	if err != nil {
		slog.Error("malformed galaxy user id", "user_id", h.user.GalaxyUserID)
		return 0
	}
	return model.UserID(inner).Uint64()
}

// authInfo handles auth_info_request: captures credentials, mints the
// game token from the bootstrap refresh token and opens the cache.
// Repeats with the same client id converge without reopening anything.
func (h *Handler) authInfo(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	var req protocol.AuthInfoRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		return nil, nil, protoDrop("auth_info_request", err)
	}

	slog.Info("client identified", "client_id", req.ClientID, "game_pid", req.GamePID)
	h.hctx.Identify(req.ClientID, req.ClientSecret)
	if req.GamePID != 0 {
		h.hctx.SetGamePID(req.GamePID)
	}

	if h.hctx.DB() == nil {
		db, err := h.openDB(ctx, req.ClientID, h.userID())
		if err != nil {
			return nil, nil, fmt.Errorf("opening gameplay cache: %w", err)
		}
		h.hctx.SetDB(db)
	}

	bootstrap, ok := h.store.Get(token.GalaxyClientID)
	if !ok {
		return nil, nil, ErrUnauthorized
	}

	refreshToken := bootstrap.RefreshToken
	newToken, err := h.api.RefreshToken(ctx, req.ClientID, req.ClientSecret, bootstrap.RefreshToken, bootstrap.OpenIDScope())
	switch {
	case err == nil:
		h.store.Insert(req.ClientID, newToken)
		h.hctx.SetOnline(true)
		refreshToken = newToken.RefreshToken

	case isOffline(err):
		// Serve from cache — unless there is nothing cached to serve.
		db := h.hctx.DB()
		hasAch, achErr := db.HasAchievements(ctx)
		hasStats, statErr := db.HasStatistics(ctx)
		if achErr != nil || statErr != nil || (!hasAch && !hasStats) {
			slog.Error("cannot continue offline: cache is empty", "client_id", req.ClientID)
			return nil, nil, ErrUnauthorized
		}
		h.hctx.SetOnline(false)
		slog.Warn("token refresh unreachable, continuing offline", "client_id", req.ClientID)

	case gog.HTTPStatus(err) == 403:
		return nil, nil, ErrUnauthorized

	default:
		return nil, nil, fmt.Errorf("refreshing game token: %w", err)
	}

	resp := &protocol.AuthInfoResponse{
		RefreshToken:    refreshToken,
		Region:          protocol.RegionWorldWide,
		EnvironmentType: protocol.EnvironmentProduction,
		UserID:          h.taggedUserID(),
		UserName:        h.user.Username,
	}
	return commHeader(protocol.MsgAuthInfoResponse), resp.Marshal(), nil
}

func isOffline(err error) bool {
	return errors.Is(err, gog.ErrOffline)
}

// getUserAchievements prefers the remote snapshot, upserting it into the
// cache; any network failure falls back to cached rows.
func (h *Handler) getUserAchievements(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	db := h.hctx.DB()
	if db == nil {
		return nil, nil, ErrUnauthorized
	}
	clientID := h.hctx.ClientID()

	if h.hctx.Online() {
		items, mode, err := h.api.Achievements(ctx, clientID, h.userID())
		if err == nil {
			if err := db.SetAchievements(ctx, items, mode); err != nil {
				slog.Error("caching achievements", "err", err)
			}
		} else {
			slog.Warn("achievement fetch failed, serving cache", "err", err)
			if isOffline(err) {
				h.hctx.SetOnline(false)
			}
		}
	}

	rows, err := db.Achievements(ctx, false)
	if err != nil {
		return nil, nil, fmt.Errorf("reading cached achievements: %w", err)
	}
	lang, err := db.Language(ctx)
	if err != nil {
		slog.Error("reading cache language", "err", err)
	}
	mode, err := db.AchievementsMode(ctx)
	if err != nil {
		slog.Error("reading achievements mode", "err", err)
	}

	resp := &protocol.GetUserAchievementsResponse{Language: lang, Mode: mode}
	for _, a := range rows {
		resp.Achievements = append(resp.Achievements, wireAchievement(a))
	}
	return commHeader(protocol.MsgGetUserAchievementsResponse), resp.Marshal(), nil
}

func wireAchievement(a model.Achievement) protocol.UserAchievement {
	return protocol.UserAchievement{
		AchievementID:      uint64(a.ID),
		Key:                a.Key,
		Name:               a.Name,
		Description:        a.Description,
		ImageURLLocked:     a.ImageURLLocked,
		ImageURLUnlocked:   a.ImageURLUnlocked,
		VisibleWhileLocked: a.VisibleWhileLocked,
		UnlockTime:         unixFromRFC3339(a.UnlockTime),
		Rarity:             a.Rarity,
		RarityDescription:  a.RarityDescription,
		RaritySlug:         a.RaritySlug,
	}
}

func unixFromRFC3339(s string) uint32 {
	if s == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		slog.Warn("malformed unlock time in cache", "value", s)
		return 0
	}
	return uint32(t.Unix())
}

func rfc3339FromUnix(ts uint32) string {
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02T15:04:05+00:00")
}

// getUserStats mirrors getUserAchievements for statistics.
func (h *Handler) getUserStats(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	db := h.hctx.DB()
	if db == nil {
		return nil, nil, ErrUnauthorized
	}
	clientID := h.hctx.ClientID()

	if h.hctx.Online() {
		items, err := h.api.Stats(ctx, clientID, h.userID())
		if err == nil {
			if err := db.SetStatistics(ctx, items); err != nil {
				slog.Error("caching stats", "err", err)
			}
		} else {
			slog.Warn("stats fetch failed, serving cache", "err", err)
			if isOffline(err) {
				h.hctx.SetOnline(false)
			}
		}
	}

	rows, err := db.Statistics(ctx, false)
	if err != nil {
		return nil, nil, fmt.Errorf("reading cached stats: %w", err)
	}

	var resp protocol.GetUserStatsResponse
	for _, s := range rows {
		resp.Stats = append(resp.Stats, wireStat(s))
	}
	return commHeader(protocol.MsgGetUserStatsResponse), resp.Marshal(), nil
}

func wireStat(s model.Stat) protocol.UserStat {
	w := protocol.UserStat{
		StatID:        uint64(s.ID),
		Key:           s.Key,
		IncrementOnly: s.IncrementOnly,
	}
	if s.Window != nil {
		w.WindowSize = *s.Window
	}
	switch s.Type {
	case model.StatInt:
		w.ValueType = protocol.ValueTypeInt
		w.IntValue = s.IValue
		w.IntDefault = s.IDefault
		if s.IMin != nil {
			w.IntMin = *s.IMin
		}
		if s.IMax != nil {
			w.IntMax = *s.IMax
		}
		if s.IMaxChange != nil {
			w.IntMaxChange = *s.IMaxChange
		}
	case model.StatFloat:
		w.ValueType = protocol.ValueTypeFloat
		fillWireFloat(&w, s)
	case model.StatAvgRate:
		w.ValueType = protocol.ValueTypeAvgRate
		fillWireFloat(&w, s)
	}
	return w
}

func fillWireFloat(w *protocol.UserStat, s model.Stat) {
	w.FloatValue = s.FValue
	w.FloatDefault = s.FDefault
	if s.FMin != nil {
		w.FloatMin = *s.FMin
	}
	if s.FMax != nil {
		w.FloatMax = *s.FMax
	}
	if s.FMaxChange != nil {
		w.FloatMaxChange = *s.FMaxChange
	}
}

// updateUserStat writes through to the cache with changed=1. No response
// is defined for this message.
func (h *Handler) updateUserStat(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	var req protocol.UpdateUserStatRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		return nil, nil, protoDrop("update_user_stat", err)
	}
	db := h.hctx.DB()
	if db == nil {
		return nil, nil, ErrUnauthorized
	}

	stat, err := db.Statistic(ctx, int64(req.StatID))
	if err != nil {
		return nil, nil, fmt.Errorf("reading stat %d: %w", req.StatID, err)
	}
	if stat == nil {
		slog.Warn("update for unknown stat", "stat_id", req.StatID)
		return nil, nil, ErrIgnored
	}

	switch stat.Type {
	case model.StatInt:
		if stat.IncrementOnly && req.IntValue < stat.IValue {
			slog.Warn("rejecting decrement of increment-only stat",
				"stat_id", req.StatID, "current", stat.IValue, "requested", req.IntValue)
			return nil, nil, ErrIgnored
		}
		if err := db.SetStatInt(ctx, stat.ID, req.IntValue); err != nil {
			return nil, nil, err
		}
	default:
		if stat.IncrementOnly && req.FloatValue < stat.FValue {
			slog.Warn("rejecting decrement of increment-only stat",
				"stat_id", req.StatID, "current", stat.FValue, "requested", req.FloatValue)
			return nil, nil, ErrIgnored
		}
		if err := db.SetStatFloat(ctx, stat.ID, req.FloatValue); err != nil {
			return nil, nil, err
		}
	}

	h.hctx.MarkDirty(SyncStats)
	return nil, nil, ErrIgnored
}

// unlockUserAchievement records the unlock locally (queued for sync even
// when offline) and notifies the overlay.
func (h *Handler) unlockUserAchievement(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	var req protocol.UnlockUserAchievementRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		return nil, nil, protoDrop("unlock_user_achievement", err)
	}
	db := h.hctx.DB()
	if db == nil {
		return nil, nil, ErrUnauthorized
	}

	a, err := db.Achievement(ctx, int64(req.AchievementID))
	if err != nil {
		return nil, nil, fmt.Errorf("reading achievement %d: %w", req.AchievementID, err)
	}
	if a == nil {
		slog.Warn("unlock for unknown achievement", "achievement_id", req.AchievementID)
		return nil, nil, ErrIgnored
	}
	if a.Unlocked() {
		// Unlock time is monotonic within a session; keep the first.
		return nil, nil, ErrIgnored
	}

	unlockTime := rfc3339FromUnix(req.Time)
	if err := db.SetAchievement(ctx, a.ID, unlockTime); err != nil {
		return nil, nil, err
	}
	h.hctx.MarkDirty(SyncAchievements)

	a.UnlockTime = unlockTime
	h.notifyOverlayAchievement(*a, uint64(req.Time))
	return nil, nil, ErrIgnored
}

// clearUserAchievement re-locks an achievement; the clear is queued for
// sync like an unlock.
func (h *Handler) clearUserAchievement(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	var req protocol.ClearUserAchievementRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		return nil, nil, protoDrop("clear_user_achievement", err)
	}
	db := h.hctx.DB()
	if db == nil {
		return nil, nil, ErrUnauthorized
	}

	if err := db.SetAchievement(ctx, int64(req.AchievementID), ""); err != nil {
		return nil, nil, err
	}
	h.hctx.MarkDirty(SyncAchievements)
	return nil, nil, ErrIgnored
}

// getLeaderboards serves definitions, remote first with cache fallback.
func (h *Handler) getLeaderboards(ctx context.Context, f *protocol.Frame, keys []string) (*protocol.Header, []byte, error) {
	db := h.hctx.DB()
	if db == nil {
		return nil, nil, ErrUnauthorized
	}
	clientID := h.hctx.ClientID()

	var rows []model.Leaderboard
	if h.hctx.Online() {
		defs, err := h.api.Leaderboards(ctx, clientID, keys)
		if err == nil {
			if err := db.SetLeaderboards(ctx, defs); err != nil {
				slog.Error("caching leaderboards", "err", err)
			}
			rows = defs
		} else {
			slog.Warn("leaderboard fetch failed, serving cache", "err", err)
			if isOffline(err) {
				h.hctx.SetOnline(false)
			}
		}
	}
	if rows == nil {
		cached, err := db.Leaderboards(ctx, false)
		if err != nil {
			return nil, nil, fmt.Errorf("reading cached leaderboards: %w", err)
		}
		rows = cached
	}

	var resp protocol.GetLeaderboardsResponse
	for _, l := range rows {
		resp.Definitions = append(resp.Definitions, protocol.LeaderboardDef{
			LeaderboardID: uint64(l.ID),
			Key:           l.Key,
			Name:          l.Name,
			SortMethod:    wireSortMethod(l.SortMethod),
			DisplayType:   wireDisplayType(l.DisplayType),
		})
	}
	return commHeader(protocol.MsgGetLeaderboardsResponse), resp.Marshal(), nil
}

func wireSortMethod(s string) uint32 {
	if s == model.SortMethodDescending {
		return protocol.WireSortMethodDescending
	}
	return protocol.WireSortMethodAscending
}

func sortMethodFromWire(v uint32) string {
	if v == protocol.WireSortMethodDescending {
		return model.SortMethodDescending
	}
	return model.SortMethodAscending
}

func wireDisplayType(s string) uint32 {
	switch s {
	case model.DisplayTypeTimeSeconds:
		return protocol.WireDisplayTypeTimeSeconds
	case model.DisplayTypeTimeMilliseconds:
		return protocol.WireDisplayTypeTimeMilliseconds
	default:
		return protocol.WireDisplayTypeNumeric
	}
}

func displayTypeFromWire(v uint32) string {
	switch v {
	case protocol.WireDisplayTypeTimeSeconds:
		return model.DisplayTypeTimeSeconds
	case protocol.WireDisplayTypeTimeMilliseconds:
		return model.DisplayTypeTimeMilliseconds
	default:
		return model.DisplayTypeNumeric
	}
}

// getLeaderboardEntries queries the remote service; entry reads have no
// cache, so failures mirror the HTTP status to the game.
func (h *Handler) getLeaderboardEntries(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	var (
		leaderboardID int64
		params        = url.Values{}
	)

	switch f.Header.Type {
	case protocol.MsgGetLeaderboardEntriesGlobalRequest:
		var req protocol.GetLeaderboardEntriesGlobalRequest
		if err := req.Unmarshal(f.Payload); err != nil {
			return nil, nil, protoDrop("get_leaderboard_entries_global", err)
		}
		leaderboardID = int64(req.LeaderboardID)
		params.Set("range_start", strconv.FormatUint(uint64(req.RangeStart), 10))
		params.Set("range_end", strconv.FormatUint(uint64(req.RangeEnd), 10))

	case protocol.MsgGetLeaderboardEntriesAroundUserRequest:
		var req protocol.GetLeaderboardEntriesAroundUserRequest
		if err := req.Unmarshal(f.Payload); err != nil {
			return nil, nil, protoDrop("get_leaderboard_entries_around_user", err)
		}
		leaderboardID = int64(req.LeaderboardID)
		params.Set("count_before", strconv.FormatUint(uint64(req.CountBefore), 10))
		params.Set("count_after", strconv.FormatUint(uint64(req.CountAfter), 10))
		params.Set("user", strconv.FormatUint(model.EntityID(req.UserID).Inner(), 10))

	case protocol.MsgGetLeaderboardEntriesForUsersRequest:
		var req protocol.GetLeaderboardEntriesForUsersRequest
		if err := req.Unmarshal(f.Payload); err != nil {
			return nil, nil, protoDrop("get_leaderboard_entries_for_users", err)
		}
		leaderboardID = int64(req.LeaderboardID)
		users := make([]string, 0, len(req.UserIDs))
		for _, id := range req.UserIDs {
			users = append(users, strconv.FormatUint(model.EntityID(id).Inner(), 10))
		}
		params.Set("users", strings.Join(users, ","))
	}

	entries, err := h.api.Entries(ctx, h.hctx.ClientID(), leaderboardID, params)
	if err != nil {
		if isOffline(err) {
			h.hctx.SetOnline(false)
		}
		if status := gog.HTTPStatus(err); status != 0 {
			hd := commHeader(protocol.MsgGetLeaderboardEntriesResponse)
			hd.Status = uint32(status)
			return hd, nil, nil
		}
		return nil, nil, fmt.Errorf("fetching leaderboard entries: %w", err)
	}

	resp := &protocol.GetLeaderboardEntriesResponse{EntryTotalCount: entries.EntryTotalCount}
	for _, e := range entries.Items {
		inner, err := strconv.ParseUint(e.UserID, 10, 64)
		if err != nil {
			slog.Warn("malformed entry user id", "user_id", e.UserID)
			continue
		}
		var details []byte
		if e.Details != nil {
			details, err = base64.RawURLEncoding.DecodeString(*e.Details)
			if err != nil {
				slog.Warn("malformed entry details", "err", err)
			}
		}
		resp.Entries = append(resp.Entries, protocol.LeaderboardEntry{
			UserID:  model.UserID(inner).Uint64(),
			Rank:    e.Rank,
			Score:   e.Score,
			Details: details,
		})
	}
	return commHeader(protocol.MsgGetLeaderboardEntriesResponse), resp.Marshal(), nil
}

// setLeaderboardScore writes through the cache, short-circuits
// non-improvements with a mirrored 409, and pushes online immediately.
func (h *Handler) setLeaderboardScore(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	var req protocol.SetLeaderboardScoreRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		return nil, nil, protoDrop("set_leaderboard_score", err)
	}
	db := h.hctx.DB()
	if db == nil {
		return nil, nil, ErrUnauthorized
	}
	id := int64(req.LeaderboardID)

	cached, err := db.Leaderboard(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("reading leaderboard %d: %w", id, err)
	}
	if cached == nil {
		hd := commHeader(protocol.MsgSetLeaderboardScoreResponse)
		hd.Status = 404
		return hd, nil, nil
	}

	hasEntry := cached.Score != 0 || cached.Rank != 0
	if !req.ForceUpdate && hasEntry && req.Score <= cached.Score {
		hd := commHeader(protocol.MsgSetLeaderboardScoreResponse)
		hd.Status = 409
		return hd, nil, nil
	}

	details := base64.RawURLEncoding.EncodeToString(req.Details)
	if err := db.SetLeaderboardScore(ctx, id, req.Score, req.ForceUpdate, details); err != nil {
		return nil, nil, err
	}
	h.hctx.MarkDirty(SyncLeaderboards)

	oldRank := cached.Rank
	if !h.hctx.Online() {
		resp := &protocol.SetLeaderboardScoreResponse{
			Score:           req.Score,
			OldRank:         oldRank,
			NewRank:         oldRank,
			EntryTotalCount: cached.EntryTotalCount,
		}
		return commHeader(protocol.MsgSetLeaderboardScoreResponse), resp.Marshal(), nil
	}

	update, err := h.api.PostScore(ctx, h.hctx.ClientID(), h.userID(), id, req.Score, req.ForceUpdate, details)
	switch {
	case err == nil:
		if err := db.ApplyServerScore(ctx, id, req.Score, update.NewRank, update.EntryTotalCount); err != nil {
			slog.Error("recording pushed score", "err", err)
		}
		resp := &protocol.SetLeaderboardScoreResponse{
			Score:           req.Score,
			OldRank:         update.OldRank,
			NewRank:         update.NewRank,
			EntryTotalCount: update.EntryTotalCount,
		}
		return commHeader(protocol.MsgSetLeaderboardScoreResponse), resp.Marshal(), nil

	case gog.HTTPStatus(err) == 409:
		if err := h.resolveScoreConflict(ctx, id); err != nil {
			slog.Error("resolving score conflict", "leaderboard_id", id, "err", err)
		}
		hd := commHeader(protocol.MsgSetLeaderboardScoreResponse)
		hd.Status = 409
		return hd, nil, nil

	default:
		if isOffline(err) {
			h.hctx.SetOnline(false)
		}
		slog.Warn("score push failed, queued for sync", "leaderboard_id", id, "err", err)
		resp := &protocol.SetLeaderboardScoreResponse{
			Score:           req.Score,
			OldRank:         oldRank,
			NewRank:         oldRank,
			EntryTotalCount: cached.EntryTotalCount,
		}
		return commHeader(protocol.MsgSetLeaderboardScoreResponse), resp.Marshal(), nil
	}
}

// resolveScoreConflict fetches the user's authoritative entry after a 409
// and overwrites the cached score.
func (h *Handler) resolveScoreConflict(ctx context.Context, leaderboardID int64) error {
	params := url.Values{}
	params.Set("users", h.userID())
	entries, err := h.api.Entries(ctx, h.hctx.ClientID(), leaderboardID, params)
	if err != nil {
		return fmt.Errorf("fetching conflicting entry: %w", err)
	}
	if len(entries.Items) == 0 {
		return fmt.Errorf("no remote entry for leaderboard %d", leaderboardID)
	}

	e := entries.Items[0]
	db := h.hctx.DB()
	if err := db.ApplyServerScore(ctx, leaderboardID, e.Score, e.Rank, entries.EntryTotalCount); err != nil {
		return fmt.Errorf("applying server score: %w", err)
	}
	return nil
}

// createLeaderboard registers a new board remotely and caches its
// definition.
func (h *Handler) createLeaderboard(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	var req protocol.CreateLeaderboardRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		return nil, nil, protoDrop("create_leaderboard", err)
	}
	db := h.hctx.DB()
	if db == nil {
		return nil, nil, ErrUnauthorized
	}

	sortMethod := sortMethodFromWire(req.SortMethod)
	displayType := displayTypeFromWire(req.DisplayType)
	id, err := h.api.CreateLeaderboard(ctx, h.hctx.ClientID(), req.Key, req.Name, sortMethod, displayType)
	if err != nil {
		if isOffline(err) {
			h.hctx.SetOnline(false)
		}
		if status := gog.HTTPStatus(err); status != 0 {
			hd := commHeader(protocol.MsgCreateLeaderboardResponse)
			hd.Status = uint32(status)
			return hd, nil, nil
		}
		return nil, nil, fmt.Errorf("creating leaderboard: %w", err)
	}

	if err := db.SetLeaderboards(ctx, []model.Leaderboard{{
		ID: id, Key: req.Key, Name: req.Name,
		SortMethod: sortMethod, DisplayType: displayType,
	}}); err != nil {
		slog.Error("caching created leaderboard", "err", err)
	}

	resp := &protocol.CreateLeaderboardResponse{LeaderboardID: uint64(id)}
	return commHeader(protocol.MsgCreateLeaderboardResponse), resp.Marshal(), nil
}

// deleteUserStats clears everything remotely (when reachable) and resets
// the cache to defaults.
func (h *Handler) deleteUserStats(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	db := h.hctx.DB()
	if db == nil {
		return nil, nil, ErrUnauthorized
	}

	if h.hctx.Online() {
		if err := h.api.DeleteStats(ctx, h.hctx.ClientID(), h.userID()); err != nil {
			slog.Warn("remote stats delete failed", "err", err)
			if isOffline(err) {
				h.hctx.SetOnline(false)
			}
		}
	}
	if err := db.ResetStats(ctx); err != nil {
		return nil, nil, err
	}
	h.hctx.ClearDirty(SyncStats)
	return commHeader(protocol.MsgDeleteUserStatsResponse), nil, nil
}

// deleteUserAchievements mirrors deleteUserStats for achievements.
func (h *Handler) deleteUserAchievements(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	db := h.hctx.DB()
	if db == nil {
		return nil, nil, ErrUnauthorized
	}

	if h.hctx.Online() {
		if err := h.api.DeleteAchievements(ctx, h.hctx.ClientID(), h.userID()); err != nil {
			slog.Warn("remote achievements delete failed", "err", err)
			if isOffline(err) {
				h.hctx.SetOnline(false)
			}
		}
	}
	if err := db.ResetAchievements(ctx); err != nil {
		return nil, nil, err
	}
	h.hctx.ClearDirty(SyncAchievements)
	return commHeader(protocol.MsgDeleteUserAchievementsResponse), nil, nil
}

// startGameSession records the game pid and brings up the overlay IPC
// endpoint derived from it.
func (h *Handler) startGameSession(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	var req protocol.StartGameSessionRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		return nil, nil, protoDrop("start_game_session", err)
	}

	if req.GamePID != 0 && h.hctx.GamePID() == 0 {
		h.hctx.SetGamePID(req.GamePID)
	}
	h.startOverlayListener(ctx, h.hctx.GamePID())

	return commHeader(protocol.MsgStartGameSessionResponse), nil, nil
}
