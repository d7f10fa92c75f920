package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/udisondev/galaxyd/internal/gog"
	"github.com/udisondev/galaxyd/internal/protocol"
)

// handleOverlayClient dispatches sort 7 (overlay <-> client) messages:
// the overlay frontend bootstraps itself with an init-data blob and
// proxies store product lookups through the daemon.
func (h *Handler) handleOverlayClient(ctx context.Context, f *protocol.Frame) (*protocol.Header, []byte, error) {
	switch f.Header.Type {
	case protocol.MsgOverlayFrontendInitDataRequest:
		data, err := h.overlayInitData()
		if err != nil {
			return nil, nil, fmt.Errorf("building overlay init data: %w", err)
		}
		resp := &protocol.OverlayFrontendInitDataResponse{Data: data}
		hd := &protocol.Header{Sort: protocol.SortOverlayForClient, Type: protocol.MsgOverlayFrontendInitDataResponse}
		return hd, resp.Marshal(), nil

	case protocol.MsgGetProductDetailsRequest:
		var req protocol.GetProductDetailsRequest
		if err := req.Unmarshal(f.Payload); err != nil {
			return nil, nil, protoDrop("get_product_details", err)
		}
		details, err := h.api.ProductDetails(ctx, req.ProductID)
		if err != nil {
			if isOffline(err) {
				h.hctx.SetOnline(false)
			}
			if status := gog.HTTPStatus(err); status != 0 {
				hd := &protocol.Header{Sort: protocol.SortOverlayForClient, Type: protocol.MsgGetProductDetailsResponse, Status: uint32(status)}
				return hd, nil, nil
			}
			return nil, nil, fmt.Errorf("fetching product details: %w", err)
		}
		resp := &protocol.GetProductDetailsResponse{Data: string(details)}
		hd := &protocol.Header{Sort: protocol.SortOverlayForClient, Type: protocol.MsgGetProductDetailsResponse}
		return hd, resp.Marshal(), nil

	case protocol.MsgOverlayStateChangeNotification:
		slog.Debug("overlay state change notification")
		return nil, nil, ErrIgnored

	default:
		return nil, nil, ErrNotImplemented
	}
}

// overlayInitData assembles the JSON document the overlay frontend
// expects: languages, notification settings, service endpoints and the
// current user.
func (h *Handler) overlayInitData() (string, error) {
	type language struct {
		Code        string
		EnglishName string
		NativeName  string
	}

	notifications := map[string]any{
		"languageCode":       h.cfg.Locale,
		"notifSoundVolume":   h.cfg.Overlay.NotificationVolume,
		"showFriendsSidebar": true,
		"store":              map[string]any{},
	}
	for kind, pref := range h.cfg.Overlay.Notifications {
		switch kind {
		case "chat":
			notifications["notifChatMessage"] = pref.Enabled
			notifications["notifSoundChatMessage"] = pref.Sound
		case "friend_online":
			notifications["notifFriendOnline"] = pref.Enabled
			notifications["notifSoundFriendOnline"] = pref.Sound
		case "friend_invite":
			notifications["notifFriendInvite"] = pref.Enabled
			notifications["notifSoundFriendInvite"] = pref.Sound
		case "friend_game_start":
			notifications["notifFriendStartsGame"] = pref.Enabled
			notifications["notifSoundFriendStartsGame"] = pref.Sound
		case "game_invite":
			notifications["notifGameInvite"] = pref.Enabled
			notifications["notifSoundGameInvite"] = pref.Sound
		}
	}

	doc := map[string]any{
		"Languages": []language{
			{"en", "English", "English"},
			{"de", "German", "Deutsch"},
			{"fr", "French", "Français"},
			{"ru", "Russian", "Русский"},
			{"pl", "Polish", "Polski"},
			{"es", "Spanish", "Español"},
			{"it", "Italian", "Italiano"},
			{"jp", "Japanese", "日本語"},
			{"ko", "Korean", "한국어"},
			{"pt", "Portuguese", "Português"},
			{"cn", "Chinese", "中文"},
			{"cz", "Czech", "Čeština"},
		},
		"SettingsData": notifications,
		"Config": map[string]any{
			"Endpoints": map[string]string{
				"api":      h.cfg.Endpoints.API,
				"gameplay": h.cfg.Endpoints.Gameplay,
				"gog":      h.cfg.Endpoints.Embed,
				"pusher":   h.cfg.Endpoints.Pusher,
			},
			"GalaxyClientId": "46899977096215655",
			"LoggingLevel":   5,
			"ClientVersions": map[string]int{"Major": 2, "Minor": 0, "Build": 75, "Compilation": 1},
		},
		"User": map[string]string{
			"UserId": h.user.GalaxyUserID,
		},
		"Game": map[string]any{
			"ProductId": "",
			"ProductDetails": map[string]any{
				"id":    "",
				"title": "galaxyd",
			},
		},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
