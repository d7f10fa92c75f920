package handler

import (
	"log/slog"

	"github.com/udisondev/galaxyd/internal/model"
	"github.com/udisondev/galaxyd/internal/protocol"
	"github.com/udisondev/galaxyd/internal/token"
)

// handleOverlayService dispatches sort 3 (overlay <-> service) messages.
func (h *Handler) handleOverlayService(f *protocol.Frame) (*protocol.Header, []byte, error) {
	switch f.Header.Type {
	case protocol.MsgAccessTokenRequest:
		var access string
		if t, ok := h.store.Get(token.GalaxyClientID); ok {
			access = t.AccessToken
		}
		resp := &protocol.AccessTokenResponse{AccessToken: access}
		hd := &protocol.Header{Sort: protocol.SortOverlayForService, Type: protocol.MsgAccessTokenResponse}
		return hd, resp.Marshal(), nil

	case protocol.MsgOverlayInitializationNotification:
		var note protocol.OverlayInitializationNotification
		if err := note.Unmarshal(f.Payload); err != nil {
			return nil, nil, protoDrop("overlay_initialization_notification", err)
		}
		slog.Info("overlay initialization reported", "success", note.InitializedSuccessfully)
		return nil, nil, ErrIgnored

	default:
		return nil, nil, ErrNotImplemented
	}
}

// notifyOverlayAchievement queues an achievement-unlocked frame for the
// overlay peer.
func (h *Handler) notifyOverlayAchievement(a model.Achievement, unlockTime uint64) {
	note := &protocol.NotifyAchievementUnlocked{
		AchievementID:      uint64(a.ID),
		Key:                a.Key,
		Name:               a.Name,
		Description:        a.Description,
		UnlockTime:         unlockTime,
		ImageURLLocked:     a.ImageURLLocked,
		ImageURLUnlocked:   a.ImageURLUnlocked,
		VisibleWhileLocked: a.VisibleWhileLocked,
		Rarity:             a.Rarity,
		RarityDescription:  a.RarityDescription,
		RaritySlug:         a.RaritySlug,
	}

	frame, err := protocol.EncodeFrame(&protocol.Header{
		Sort: protocol.SortOverlayForService,
		Type: protocol.MsgNotifyAchievementUnlocked,
	}, note.Marshal())
	if err != nil {
		slog.Error("encoding achievement notification", "err", err)
		return
	}

	select {
	case h.overlayOut <- frame:
	default:
		slog.Warn("overlay queue full, dropping achievement notification", "achievement", a.Key)
	}
}
