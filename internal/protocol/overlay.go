package protocol

// Overlay-for-service (sort 3) message types.
const (
	MsgAccessTokenRequest                = 1
	MsgAccessTokenResponse               = 2
	MsgOverlayInitializationNotification = 3
	MsgNotifyAchievementUnlocked         = 4
)

// Overlay-for-client (sort 7) message types.
const (
	MsgOverlayFrontendInitDataRequest  = 1
	MsgOverlayFrontendInitDataResponse = 2
	MsgOverlayStateChangeNotification  = 3
	MsgGetProductDetailsRequest        = 4
	MsgGetProductDetailsResponse       = 5
)

// Overlay-for-peer message types, framed on the per-game IPC endpoint.
const (
	MsgShowWebPage                    = 1
	MsgVisibilityChangeNotification   = 2
	MsgShowInvitationDialog           = 3
	MsgGameJoinRequestNotification    = 4
	MsgOverlayInitializedNotification = 5
)

type AccessTokenRequest struct{}

func (m *AccessTokenRequest) Marshal() []byte { return nil }
func (m *AccessTokenRequest) Unmarshal(data []byte) error { return nil }

type AccessTokenResponse struct {
	AccessToken string
}

func (m *AccessTokenResponse) Marshal() []byte {
	return appendStringField(nil, 1, m.AccessToken)
}

func (m *AccessTokenResponse) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.AccessToken = d.string_()
		} else {
			d.skip()
		}
	}
	return d.err
}

type OverlayInitializationNotification struct {
	InitializedSuccessfully bool
}

func (m *OverlayInitializationNotification) Marshal() []byte {
	return appendBoolField(nil, 1, m.InitializedSuccessfully)
}

func (m *OverlayInitializationNotification) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.InitializedSuccessfully = d.bool_()
		} else {
			d.skip()
		}
	}
	return d.err
}

// NotifyAchievementUnlocked is pushed to the overlay when the game unlocks
// an achievement. UnlockTime is unix seconds.
type NotifyAchievementUnlocked struct {
	AchievementID      uint64
	Key                string
	Name               string
	Description        string
	UnlockTime         uint64
	ImageURLLocked     string
	ImageURLUnlocked   string
	VisibleWhileLocked bool
	Rarity             float32
	RarityDescription  string
	RaritySlug         string
}

func (m *NotifyAchievementUnlocked) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.AchievementID)
	b = appendStringField(b, 2, m.Key)
	b = appendStringField(b, 3, m.Name)
	b = appendStringField(b, 4, m.Description)
	b = appendVarintField(b, 5, m.UnlockTime)
	b = appendStringField(b, 6, m.ImageURLLocked)
	b = appendStringField(b, 7, m.ImageURLUnlocked)
	b = appendBoolField(b, 8, m.VisibleWhileLocked)
	b = appendFloatField(b, 9, m.Rarity)
	b = appendStringField(b, 10, m.RarityDescription)
	b = appendStringField(b, 11, m.RaritySlug)
	return b
}

func (m *NotifyAchievementUnlocked) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.AchievementID = d.varint()
		case 2:
			m.Key = d.string_()
		case 3:
			m.Name = d.string_()
		case 4:
			m.Description = d.string_()
		case 5:
			m.UnlockTime = d.varint()
		case 6:
			m.ImageURLLocked = d.string_()
		case 7:
			m.ImageURLUnlocked = d.string_()
		case 8:
			m.VisibleWhileLocked = d.bool_()
		case 9:
			m.Rarity = d.float()
		case 10:
			m.RarityDescription = d.string_()
		case 11:
			m.RaritySlug = d.string_()
		default:
			d.skip()
		}
	}
	return d.err
}

type OverlayFrontendInitDataRequest struct{}

func (m *OverlayFrontendInitDataRequest) Marshal() []byte { return nil }
func (m *OverlayFrontendInitDataRequest) Unmarshal(data []byte) error { return nil }

type OverlayFrontendInitDataResponse struct {
	Data string
}

func (m *OverlayFrontendInitDataResponse) Marshal() []byte {
	return appendStringField(nil, 1, m.Data)
}

func (m *OverlayFrontendInitDataResponse) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.Data = d.string_()
		} else {
			d.skip()
		}
	}
	return d.err
}

type GetProductDetailsRequest struct {
	ProductID uint64
}

func (m *GetProductDetailsRequest) Marshal() []byte {
	return appendVarintField(nil, 1, m.ProductID)
}

func (m *GetProductDetailsRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.ProductID = d.varint()
		} else {
			d.skip()
		}
	}
	return d.err
}

type GetProductDetailsResponse struct {
	Data string
}

func (m *GetProductDetailsResponse) Marshal() []byte {
	return appendStringField(nil, 1, m.Data)
}

func (m *GetProductDetailsResponse) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.Data = d.string_()
		} else {
			d.skip()
		}
	}
	return d.err
}

type ShowWebPage struct {
	URL string
}

func (m *ShowWebPage) Marshal() []byte {
	return appendStringField(nil, 1, m.URL)
}

func (m *ShowWebPage) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.URL = d.string_()
		} else {
			d.skip()
		}
	}
	return d.err
}

type VisibilityChangeNotification struct {
	Visible bool
}

func (m *VisibilityChangeNotification) Marshal() []byte {
	return appendBoolField(nil, 1, m.Visible)
}

func (m *VisibilityChangeNotification) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.Visible = d.bool_()
		} else {
			d.skip()
		}
	}
	return d.err
}

type ShowInvitationDialog struct {
	ConnectionString string
}

func (m *ShowInvitationDialog) Marshal() []byte {
	return appendStringField(nil, 1, m.ConnectionString)
}

func (m *ShowInvitationDialog) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.ConnectionString = d.string_()
		} else {
			d.skip()
		}
	}
	return d.err
}

type GameJoinRequestNotification struct {
	InviterID        uint64
	ClientID         string
	ConnectionString string
}

func (m *GameJoinRequestNotification) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.InviterID)
	b = appendStringField(b, 2, m.ClientID)
	b = appendStringField(b, 3, m.ConnectionString)
	return b
}

func (m *GameJoinRequestNotification) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.InviterID = d.varint()
		case 2:
			m.ClientID = d.string_()
		case 3:
			m.ConnectionString = d.string_()
		default:
			d.skip()
		}
	}
	return d.err
}
