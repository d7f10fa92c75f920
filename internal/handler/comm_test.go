package handler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/udisondev/galaxyd/internal/config"
	"github.com/udisondev/galaxyd/internal/gameplay"
	"github.com/udisondev/galaxyd/internal/gog"
	"github.com/udisondev/galaxyd/internal/model"
	"github.com/udisondev/galaxyd/internal/protocol"
	"github.com/udisondev/galaxyd/internal/pusher"
	"github.com/udisondev/galaxyd/internal/token"
)

const (
	testClientID = "50225266424144145"
	testUserID   = "58912491000987582"
)

// newTestHandler wires a handler around a mock API, a real temp-dir
// cache and one end of a pipe.
func newTestHandler(t *testing.T, api RemoteAPI) (*Handler, net.Conn) {
	t.Helper()

	store := token.NewStore()
	store.Insert(token.GalaxyClientID, model.Token{
		AccessToken:  "bootstrap-access",
		RefreshToken: "bootstrap-refresh",
		Scope:        "openid",
	})

	dataDir := t.TempDir()
	opens := 0
	opener := func(ctx context.Context, clientID, userID string) (*gameplay.Database, error) {
		opens++
		if opens > 1 {
			t.Errorf("cache opened %d times", opens)
		}
		return gameplay.Open(ctx, dataDir, clientID, userID, "en-US")
	}

	local, remote := net.Pipe()
	t.Cleanup(func() {
		local.Close()
		remote.Close()
	})

	cfg := config.Default()
	h := New(local, api, store, opener, pusher.NewBroadcast(),
		make(chan OverlayPeerEvent, 16),
		model.UserInfo{Username: "tester", GalaxyUserID: testUserID}, cfg)
	return h, remote
}

func authFrame(oseq uint64) *protocol.Frame {
	payload := (&protocol.AuthInfoRequest{
		ClientID:     testClientID,
		ClientSecret: "sekret",
		GamePID:      4242,
	}).Marshal()
	return &protocol.Frame{
		Header: protocol.Header{
			Sort: protocol.SortCommunicationService,
			Type: protocol.MsgAuthInfoRequest,
			Size: uint32(len(payload)),
			Oseq: oseq,
		},
		Payload: payload,
	}
}

// authenticate drives auth_info_request and asserts success.
func authenticate(t *testing.T, h *Handler) {
	t.Helper()
	hd, payload, err := h.handleComm(context.Background(), authFrame(1))
	if err != nil {
		t.Fatalf("auth failed: %v", err)
	}
	if hd.Type != protocol.MsgAuthInfoResponse {
		t.Fatalf("unexpected response type %d", hd.Type)
	}
	var resp protocol.AuthInfoResponse
	if err := resp.Unmarshal(payload); err != nil {
		t.Fatalf("unmarshal auth response: %v", err)
	}
}

func TestAuthInfoSuccess(t *testing.T) {
	var gotScope string
	api := &mockAPI{
		RefreshTokenFunc: func(ctx context.Context, clientID, clientSecret, refreshToken, scope string) (model.Token, error) {
			if clientID != testClientID || clientSecret != "sekret" || refreshToken != "bootstrap-refresh" {
				t.Errorf("unexpected refresh args: %s %s %s", clientID, clientSecret, refreshToken)
			}
			gotScope = scope
			return model.Token{AccessToken: "game-access", RefreshToken: "game-refresh"}, nil
		},
	}
	h, _ := newTestHandler(t, api)

	hd, payload, err := h.handleComm(context.Background(), authFrame(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hd.Type != protocol.MsgAuthInfoResponse {
		t.Errorf("unexpected type %d", hd.Type)
	}

	var resp protocol.AuthInfoResponse
	if err := resp.Unmarshal(payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.RefreshToken != "game-refresh" {
		t.Errorf("expected game refresh token, got %q", resp.RefreshToken)
	}
	if resp.UserName != "tester" {
		t.Errorf("unexpected user name %q", resp.UserName)
	}

	// User id crosses the wire tagged as a user entity
	id := model.EntityID(resp.UserID)
	if id.Kind() != model.IDUser {
		t.Errorf("user id not tagged: kind=%v", id.Kind())
	}
	if fmt.Sprintf("%d", id.Inner()) != testUserID {
		t.Errorf("unexpected inner id %d", id.Inner())
	}

	// openid scope propagated from the bootstrap token
	if gotScope != "openid" {
		t.Errorf("scope not propagated: %q", gotScope)
	}

	if tok, ok := h.store.Get(testClientID); !ok || tok.AccessToken != "game-access" {
		t.Error("game token not stored")
	}
	if !h.hctx.Online() {
		t.Error("context not online after successful auth")
	}
}

func TestAuthInfoIsIdempotent(t *testing.T) {
	h, _ := newTestHandler(t, &mockAPI{})
	authenticate(t, h)
	// The opener in newTestHandler fails the test on a second open.
	authenticate(t, h)
	if !h.hctx.Identified() {
		t.Error("context not identified")
	}
}

func TestAuthInfoOfflineEmptyCacheIsFatal(t *testing.T) {
	api := &mockAPI{
		RefreshTokenFunc: func(ctx context.Context, clientID, clientSecret, refreshToken, scope string) (model.Token, error) {
			return model.Token{}, fmt.Errorf("connect: %w", gog.ErrOffline)
		},
	}
	h, _ := newTestHandler(t, api)

	_, _, err := h.handleComm(context.Background(), authFrame(1))
	if err == nil || !isUnauthorized(err) {
		t.Fatalf("expected unauthorized shutdown, got %v", err)
	}
}

func isUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func TestAuthInfoOfflineWithCacheServes(t *testing.T) {
	api := &mockAPI{
		RefreshTokenFunc: func(ctx context.Context, clientID, clientSecret, refreshToken, scope string) (model.Token, error) {
			return model.Token{}, fmt.Errorf("connect: %w", gog.ErrOffline)
		},
	}
	h, _ := newTestHandler(t, api)

	// Preload the cache the way a previous online session would have.
	db, err := h.openDB(context.Background(), testClientID, testUserID)
	if err != nil {
		t.Fatal(err)
	}
	seedCache(t, db)
	h.hctx.SetDB(db)
	h.hctx.Identify(testClientID, "sekret")

	hd, payload, err := h.handleComm(context.Background(), authFrame(1))
	if err != nil {
		t.Fatalf("offline auth should serve from cache: %v", err)
	}
	if hd.Type != protocol.MsgAuthInfoResponse {
		t.Errorf("unexpected type %d", hd.Type)
	}
	var resp protocol.AuthInfoResponse
	if err := resp.Unmarshal(payload); err != nil {
		t.Fatal(err)
	}
	// Without a fresh token the bootstrap refresh token is handed back
	if resp.RefreshToken != "bootstrap-refresh" {
		t.Errorf("expected bootstrap refresh token, got %q", resp.RefreshToken)
	}
	if h.hctx.Online() {
		t.Error("context must be offline")
	}
}

func TestAuthInfoForbiddenClosesSession(t *testing.T) {
	api := &mockAPI{
		RefreshTokenFunc: func(ctx context.Context, clientID, clientSecret, refreshToken, scope string) (model.Token, error) {
			return model.Token{}, gog.ErrUnauthorized
		},
	}
	h, _ := newTestHandler(t, api)

	_, _, err := h.handleComm(context.Background(), authFrame(1))
	if !isUnauthorized(err) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

// seedCache populates achievements, stats and leaderboards the way a
// remote snapshot would.
func seedCache(t *testing.T, db *gameplay.Database) {
	t.Helper()
	ctx := context.Background()
	err := db.SetAchievements(ctx, []model.Achievement{
		{ID: 17, Key: "ach_first_blood", Name: "First Blood", Description: "Win one match",
			VisibleWhileLocked: true, ImageURLLocked: "l.png", ImageURLUnlocked: "u.png",
			Rarity: 32.5, RarityDescription: "Common", RaritySlug: "common"},
	}, "ALL_VISIBLE")
	if err != nil {
		t.Fatal(err)
	}
	err = db.SetStatistics(ctx, []model.Stat{
		{ID: 100, Key: "kills", Type: model.StatInt, IncrementOnly: true, IValue: 10},
		{ID: 101, Key: "accuracy", Type: model.StatFloat, FValue: 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = db.SetLeaderboards(ctx, []model.Leaderboard{
		{ID: 8, Key: "hiscore", Name: "High Score",
			SortMethod: model.SortMethodDescending, DisplayType: model.DisplayTypeNumeric},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func scoreFrame(score int32, force bool, oseq uint64) *protocol.Frame {
	payload := (&protocol.SetLeaderboardScoreRequest{
		LeaderboardID: 8,
		Score:         score,
		ForceUpdate:   force,
	}).Marshal()
	return &protocol.Frame{
		Header: protocol.Header{
			Sort: protocol.SortCommunicationService,
			Type: protocol.MsgSetLeaderboardScoreRequest,
			Size: uint32(len(payload)),
			Oseq: oseq,
		},
		Payload: payload,
	}
}

func TestSetLeaderboardScoreImprovement(t *testing.T) {
	api := &mockAPI{
		PostScoreFunc: func(ctx context.Context, clientID, userID string, leaderboardID int64, score int32, force bool, details string) (*gog.ScoreUpdate, error) {
			if leaderboardID != 8 || score != 200 || force {
				t.Errorf("unexpected post: id=%d score=%d force=%v", leaderboardID, score, force)
			}
			return &gog.ScoreUpdate{OldRank: 10, NewRank: 5, EntryTotalCount: 50}, nil
		},
	}
	h, _ := newTestHandler(t, api)
	authenticate(t, h)
	ctx := context.Background()
	db := h.hctx.DB()
	seedCache(t, db)

	// Current cached state: score=100 rank=10
	if err := db.SetLeaderboardScore(ctx, 8, 100, false, ""); err != nil {
		t.Fatal(err)
	}
	if err := db.ApplyServerScore(ctx, 8, 100, 10, 50); err != nil {
		t.Fatal(err)
	}

	hd, payload, err := h.handleComm(ctx, scoreFrame(200, false, 9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hd.Status != 0 {
		t.Errorf("unexpected status %d", hd.Status)
	}

	var resp protocol.SetLeaderboardScoreResponse
	if err := resp.Unmarshal(payload); err != nil {
		t.Fatal(err)
	}
	if resp.Score != 200 || resp.OldRank != 10 || resp.NewRank != 5 || resp.EntryTotalCount != 50 {
		t.Errorf("unexpected response: %+v", resp)
	}

	l, err := db.Leaderboard(ctx, 8)
	if err != nil {
		t.Fatal(err)
	}
	if l.Score != 200 || l.Rank != 5 || l.Changed {
		t.Errorf("unexpected cache state: %+v", l)
	}
}

func TestSetLeaderboardScoreNonImprovement(t *testing.T) {
	h, _ := newTestHandler(t, &mockAPI{})
	authenticate(t, h)
	ctx := context.Background()
	db := h.hctx.DB()
	seedCache(t, db)
	if err := db.ApplyServerScore(ctx, 8, 200, 5, 50); err != nil {
		t.Fatal(err)
	}

	hd, payload, err := h.handleComm(ctx, scoreFrame(150, false, 9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hd.Status != 409 {
		t.Errorf("expected mirrored 409, got %d", hd.Status)
	}
	if len(payload) != 0 {
		t.Error("expected empty body")
	}

	l, err := db.Leaderboard(ctx, 8)
	if err != nil {
		t.Fatal(err)
	}
	if l.Score != 200 || l.Changed {
		t.Errorf("cache must be unchanged: %+v", l)
	}
}

func TestSetLeaderboardScoreConflictReadBack(t *testing.T) {
	api := &mockAPI{
		PostScoreFunc: func(ctx context.Context, clientID, userID string, leaderboardID int64, score int32, force bool, details string) (*gog.ScoreUpdate, error) {
			return nil, gog.ErrConflict
		},
		EntriesFunc: func(ctx context.Context, clientID string, leaderboardID int64, params url.Values) (*gog.LeaderboardEntries, error) {
			if params.Get("users") != testUserID {
				t.Errorf("expected read-back for the user, got %q", params.Get("users"))
			}
			return &gog.LeaderboardEntries{
				Items:           []gog.LeaderboardEntry{{UserID: testUserID, Rank: 3, Score: 250}},
				EntryTotalCount: 50,
			}, nil
		},
	}
	h, _ := newTestHandler(t, api)
	authenticate(t, h)
	ctx := context.Background()
	db := h.hctx.DB()
	seedCache(t, db)
	if err := db.ApplyServerScore(ctx, 8, 100, 10, 50); err != nil {
		t.Fatal(err)
	}

	hd, _, err := h.handleComm(ctx, scoreFrame(300, false, 9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hd.Status != 409 {
		t.Errorf("expected mirrored 409, got %d", hd.Status)
	}

	l, err := db.Leaderboard(ctx, 8)
	if err != nil {
		t.Fatal(err)
	}
	if l.Score != 250 || l.Rank != 3 || l.Changed {
		t.Errorf("conflict not resolved in cache: %+v", l)
	}
}

func TestUnlockAchievementQueuesAndNotifies(t *testing.T) {
	h, _ := newTestHandler(t, &mockAPI{})
	authenticate(t, h)
	ctx := context.Background()
	db := h.hctx.DB()
	seedCache(t, db)

	payload := (&protocol.UnlockUserAchievementRequest{AchievementID: 17, Time: 1704067200}).Marshal()
	f := &protocol.Frame{Header: protocol.Header{
		Sort: protocol.SortCommunicationService,
		Type: protocol.MsgUnlockUserAchievementRequest,
	}, Payload: payload}

	_, _, err := h.handleComm(ctx, f)
	if err != ErrIgnored {
		t.Fatalf("expected no response, got %v", err)
	}

	a, err := db.Achievement(ctx, 17)
	if err != nil {
		t.Fatal(err)
	}
	if a.UnlockTime != "2024-01-01T00:00:00+00:00" || !a.Changed {
		t.Errorf("unexpected row: %+v", a)
	}
	if !h.hctx.Dirty(SyncAchievements) {
		t.Error("dirty flag not raised")
	}

	// Overlay got the notification frame
	select {
	case frame := <-h.overlayOut:
		decoded, err := protocol.DecodeFrame(frame)
		if err != nil {
			t.Fatal(err)
		}
		if decoded.Header.Type != protocol.MsgNotifyAchievementUnlocked {
			t.Errorf("unexpected overlay frame type %d", decoded.Header.Type)
		}
		var note protocol.NotifyAchievementUnlocked
		if err := note.Unmarshal(decoded.Payload); err != nil {
			t.Fatal(err)
		}
		if note.Key != "ach_first_blood" || note.UnlockTime != 1704067200 {
			t.Errorf("unexpected notification: %+v", note)
		}
	default:
		t.Error("no overlay notification queued")
	}

	// Second unlock keeps the first time (monotonic within session)
	payload = (&protocol.UnlockUserAchievementRequest{AchievementID: 17, Time: 1704153600}).Marshal()
	f.Payload = payload
	if _, _, err := h.handleComm(ctx, f); err != ErrIgnored {
		t.Fatalf("unexpected: %v", err)
	}
	a, _ = db.Achievement(ctx, 17)
	if a.UnlockTime != "2024-01-01T00:00:00+00:00" {
		t.Errorf("unlock time not monotonic: %q", a.UnlockTime)
	}
}

func TestUpdateStatIncrementOnly(t *testing.T) {
	h, _ := newTestHandler(t, &mockAPI{})
	authenticate(t, h)
	ctx := context.Background()
	db := h.hctx.DB()
	seedCache(t, db)

	update := func(value int64) {
		payload := (&protocol.UpdateUserStatRequest{
			StatID: 100, ValueType: protocol.ValueTypeInt, IntValue: value,
		}).Marshal()
		f := &protocol.Frame{Header: protocol.Header{
			Sort: protocol.SortCommunicationService,
			Type: protocol.MsgUpdateUserStatRequest,
		}, Payload: payload}
		if _, _, err := h.handleComm(ctx, f); err != ErrIgnored {
			t.Fatalf("unexpected: %v", err)
		}
	}

	update(25)
	s, _ := db.Statistic(ctx, 100)
	if s.IValue != 25 || !s.Changed {
		t.Errorf("update lost: %+v", s)
	}

	// Decrement of an increment-only stat is refused
	update(5)
	s, _ = db.Statistic(ctx, 100)
	if s.IValue != 25 {
		t.Errorf("increment-only stat decreased: %d", s.IValue)
	}
}

func TestGetUserAchievementsOfflineFallback(t *testing.T) {
	called := false
	api := &mockAPI{
		AchievementsFunc: func(ctx context.Context, clientID, userID string) ([]model.Achievement, string, error) {
			called = true
			return nil, "", gog.ErrOffline
		},
	}
	h, _ := newTestHandler(t, api)
	authenticate(t, h)
	ctx := context.Background()
	seedCache(t, h.hctx.DB())

	f := &protocol.Frame{Header: protocol.Header{
		Sort: protocol.SortCommunicationService,
		Type: protocol.MsgGetUserAchievementsRequest,
	}}
	hd, payload, err := h.handleComm(ctx, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("remote not attempted while online")
	}
	if hd.Type != protocol.MsgGetUserAchievementsResponse {
		t.Errorf("unexpected type %d", hd.Type)
	}

	var resp protocol.GetUserAchievementsResponse
	if err := resp.Unmarshal(payload); err != nil {
		t.Fatal(err)
	}
	if len(resp.Achievements) != 1 || resp.Achievements[0].Key != "ach_first_blood" {
		t.Errorf("cache not served: %+v", resp.Achievements)
	}
	if h.hctx.Online() {
		t.Error("offline error must flip the online flag")
	}
}

func TestDeleteUserStatsResets(t *testing.T) {
	h, _ := newTestHandler(t, &mockAPI{})
	authenticate(t, h)
	ctx := context.Background()
	db := h.hctx.DB()
	seedCache(t, db)
	if err := db.SetStatInt(ctx, 100, 99); err != nil {
		t.Fatal(err)
	}
	h.hctx.MarkDirty(SyncStats)

	f := &protocol.Frame{Header: protocol.Header{
		Sort: protocol.SortCommunicationService,
		Type: protocol.MsgDeleteUserStatsRequest,
	}}
	hd, _, err := h.handleComm(ctx, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hd.Type != protocol.MsgDeleteUserStatsResponse {
		t.Errorf("unexpected type %d", hd.Type)
	}

	s, _ := db.Statistic(ctx, 100)
	if s.IValue != 0 || s.Changed {
		t.Errorf("stats not reset: %+v", s)
	}
	if h.hctx.Dirty(SyncStats) {
		t.Error("dirty flag survived reset")
	}
}

func TestDispatchMirrorsOseqAndNotImplemented(t *testing.T) {
	h, remote := newTestHandler(t, &mockAPI{})

	read := make(chan *protocol.Frame, 1)
	go func() {
		f, err := protocol.ReadFrame(remote)
		if err == nil {
			read <- f
		}
	}()

	// Unknown sort 9 → minimal header response with mirrored oseq
	ok := h.dispatch(context.Background(), &protocol.Frame{
		Header: protocol.Header{Sort: 9, Type: 1, Oseq: 55},
	})
	if !ok {
		t.Fatal("unknown sort must not close the session")
	}

	select {
	case f := <-read:
		if f.Header.Oseq != 55 {
			t.Errorf("oseq not mirrored: %d", f.Header.Oseq)
		}
		if len(f.Payload) != 0 {
			t.Error("expected header-only response")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no response written")
	}
}

func TestTopicForwardingIsPerConnection(t *testing.T) {
	h, remote := newTestHandler(t, &mockAPI{})

	raw, err := protocol.EncodeFrame(&protocol.Header{
		Sort: protocol.SortWebbroker,
		Type: protocol.MsgMessageFromTopic,
	}, (&protocol.MessageFromTopic{Topic: "presence", Data: []byte("x")}).Marshal())
	if err != nil {
		t.Fatal(err)
	}

	// Not subscribed: nothing may be written to the socket.
	h.handlePusherEvent(pusher.Event{Kind: pusher.EventTopic, Topic: "presence", Raw: raw})

	// Subscribe via the webbroker message, then forward again.
	subPayload := (&protocol.SubscribeTopicRequest{Topic: "presence"}).Marshal()
	hd, _, err := h.handleWebbroker(&protocol.Frame{Header: protocol.Header{
		Sort: protocol.SortWebbroker,
		Type: protocol.MsgSubscribeTopicRequest,
	}, Payload: subPayload})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if hd.Type != protocol.MsgSubscribeTopicResponse {
		t.Errorf("unexpected type %d", hd.Type)
	}

	read := make(chan *protocol.Frame, 1)
	go func() {
		f, err := protocol.ReadFrame(remote)
		if err == nil {
			read <- f
		}
	}()
	go h.handlePusherEvent(pusher.Event{Kind: pusher.EventTopic, Topic: "presence", Raw: raw})

	select {
	case f := <-read:
		if f.Header.Type != protocol.MsgMessageFromTopic {
			t.Errorf("unexpected forwarded type %d", f.Header.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscribed topic message not forwarded")
	}
}
