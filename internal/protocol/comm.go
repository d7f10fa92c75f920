package protocol

// Communication service (sort 1) message types.
const (
	MsgAuthInfoRequest                        = 1
	MsgAuthInfoResponse                       = 2
	MsgGetUserStatsRequest                    = 3
	MsgGetUserStatsResponse                   = 4
	MsgUpdateUserStatRequest                  = 5
	MsgGetUserAchievementsRequest             = 7
	MsgGetUserAchievementsResponse            = 8
	MsgUnlockUserAchievementRequest           = 9
	MsgClearUserAchievementRequest            = 10
	MsgGetLeaderboardsRequest                 = 11
	MsgGetLeaderboardsResponse                = 12
	MsgGetLeaderboardEntriesGlobalRequest     = 13
	MsgGetLeaderboardEntriesAroundUserRequest = 14
	MsgGetLeaderboardEntriesForUsersRequest   = 15
	MsgGetLeaderboardEntriesResponse          = 16
	MsgSetLeaderboardScoreRequest             = 17
	MsgSetLeaderboardScoreResponse            = 18
	MsgAuthStateChangeNotification            = 19
	MsgGetLeaderboardsByKeyRequest            = 20
	MsgCreateLeaderboardRequest               = 21
	MsgCreateLeaderboardResponse              = 22
	MsgGetGlobalStatsRequest                  = 23
	MsgGetGlobalStatsResponse                 = 24
	MsgDeleteUserStatsRequest                 = 25
	MsgDeleteUserStatsResponse                = 26
	MsgDeleteUserAchievementsRequest          = 27
	MsgDeleteUserAchievementsResponse         = 28
	MsgStartGameSessionRequest                = 30
	MsgStartGameSessionResponse               = 31
)

// Region / environment enums for AuthInfoResponse.
const (
	RegionWorldWide       = 0
	EnvironmentProduction = 0
)

// Stat value type enum shared by stat messages.
const (
	ValueTypeInt     = 1
	ValueTypeFloat   = 2
	ValueTypeAvgRate = 3
)

// Leaderboard enum values on the wire.
const (
	WireSortMethodAscending  = 1
	WireSortMethodDescending = 2

	WireDisplayTypeNumeric          = 1
	WireDisplayTypeTimeSeconds      = 2
	WireDisplayTypeTimeMilliseconds = 3
)

type AuthInfoRequest struct {
	ClientID     string
	ClientSecret string
	GamePID      uint32
}

func (m *AuthInfoRequest) Marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, m.ClientID)
	b = appendStringField(b, 2, m.ClientSecret)
	b = appendVarintField(b, 3, uint64(m.GamePID))
	return b
}

func (m *AuthInfoRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.ClientID = d.string_()
		case 2:
			m.ClientSecret = d.string_()
		case 3:
			m.GamePID = uint32(d.varint())
		default:
			d.skip()
		}
	}
	return d.err
}

type AuthInfoResponse struct {
	RefreshToken    string
	Region          uint32
	EnvironmentType uint32
	UserID          uint64
	UserName        string
}

func (m *AuthInfoResponse) Marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, m.RefreshToken)
	b = appendVarintField(b, 2, uint64(m.Region))
	b = appendVarintField(b, 3, uint64(m.EnvironmentType))
	b = appendVarintField(b, 4, m.UserID)
	b = appendStringField(b, 5, m.UserName)
	return b
}

func (m *AuthInfoResponse) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.RefreshToken = d.string_()
		case 2:
			m.Region = uint32(d.varint())
		case 3:
			m.EnvironmentType = uint32(d.varint())
		case 4:
			m.UserID = d.varint()
		case 5:
			m.UserName = d.string_()
		default:
			d.skip()
		}
	}
	return d.err
}

type GetUserStatsRequest struct {
	UserID uint64
}

func (m *GetUserStatsRequest) Marshal() []byte {
	return appendVarintField(nil, 1, m.UserID)
}

func (m *GetUserStatsRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.UserID = d.varint()
		} else {
			d.skip()
		}
	}
	return d.err
}

// UserStat carries one statistic definition with its current value.
type UserStat struct {
	StatID         uint64
	Key            string
	ValueType      uint32
	IntValue       int64
	FloatValue     float64
	IntDefault     int64
	FloatDefault   float64
	IncrementOnly  bool
	IntMin         int64
	IntMax         int64
	IntMaxChange   int64
	FloatMin       float64
	FloatMax       float64
	FloatMaxChange float64
	WindowSize     float64
}

func (m *UserStat) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.StatID)
	b = appendStringField(b, 2, m.Key)
	b = appendVarintField(b, 3, uint64(m.ValueType))
	b = appendVarintField(b, 4, uint64(m.IntValue))
	b = appendDoubleField(b, 5, m.FloatValue)
	b = appendVarintField(b, 6, uint64(m.IntDefault))
	b = appendDoubleField(b, 7, m.FloatDefault)
	b = appendBoolField(b, 8, m.IncrementOnly)
	b = appendVarintField(b, 9, uint64(m.IntMin))
	b = appendVarintField(b, 10, uint64(m.IntMax))
	b = appendVarintField(b, 11, uint64(m.IntMaxChange))
	b = appendDoubleField(b, 12, m.FloatMin)
	b = appendDoubleField(b, 13, m.FloatMax)
	b = appendDoubleField(b, 14, m.FloatMaxChange)
	b = appendDoubleField(b, 15, m.WindowSize)
	return b
}

func (m *UserStat) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.StatID = d.varint()
		case 2:
			m.Key = d.string_()
		case 3:
			m.ValueType = uint32(d.varint())
		case 4:
			m.IntValue = int64(d.varint())
		case 5:
			m.FloatValue = d.double()
		case 6:
			m.IntDefault = int64(d.varint())
		case 7:
			m.FloatDefault = d.double()
		case 8:
			m.IncrementOnly = d.bool_()
		case 9:
			m.IntMin = int64(d.varint())
		case 10:
			m.IntMax = int64(d.varint())
		case 11:
			m.IntMaxChange = int64(d.varint())
		case 12:
			m.FloatMin = d.double()
		case 13:
			m.FloatMax = d.double()
		case 14:
			m.FloatMaxChange = d.double()
		case 15:
			m.WindowSize = d.double()
		default:
			d.skip()
		}
	}
	return d.err
}

type GetUserStatsResponse struct {
	Stats []UserStat
}

func (m *GetUserStatsResponse) Marshal() []byte {
	var b []byte
	for i := range m.Stats {
		b = appendBytesField(b, 1, m.Stats[i].Marshal())
	}
	return b
}

func (m *GetUserStatsResponse) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			var s UserStat
			if err := s.Unmarshal(d.bytes()); err != nil {
				return err
			}
			m.Stats = append(m.Stats, s)
		} else {
			d.skip()
		}
	}
	return d.err
}

type UpdateUserStatRequest struct {
	StatID     uint64
	ValueType  uint32
	IntValue   int64
	FloatValue float64
}

func (m *UpdateUserStatRequest) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.StatID)
	b = appendVarintField(b, 2, uint64(m.ValueType))
	b = appendVarintField(b, 3, uint64(m.IntValue))
	b = appendDoubleField(b, 4, m.FloatValue)
	return b
}

func (m *UpdateUserStatRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.StatID = d.varint()
		case 2:
			m.ValueType = uint32(d.varint())
		case 3:
			m.IntValue = int64(d.varint())
		case 4:
			m.FloatValue = d.double()
		default:
			d.skip()
		}
	}
	return d.err
}

type GetUserAchievementsRequest struct {
	UserID uint64
}

func (m *GetUserAchievementsRequest) Marshal() []byte {
	return appendVarintField(nil, 1, m.UserID)
}

func (m *GetUserAchievementsRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.UserID = d.varint()
		} else {
			d.skip()
		}
	}
	return d.err
}

// UserAchievement is one achievement definition plus unlock state.
// UnlockTime is unix seconds, 0 while locked.
type UserAchievement struct {
	AchievementID      uint64
	Key                string
	Name               string
	Description        string
	ImageURLLocked     string
	ImageURLUnlocked   string
	VisibleWhileLocked bool
	UnlockTime         uint32
	Rarity             float32
	RarityDescription  string
	RaritySlug         string
}

func (m *UserAchievement) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.AchievementID)
	b = appendStringField(b, 2, m.Key)
	b = appendStringField(b, 3, m.Name)
	b = appendStringField(b, 4, m.Description)
	b = appendStringField(b, 5, m.ImageURLLocked)
	b = appendStringField(b, 6, m.ImageURLUnlocked)
	b = appendBoolField(b, 7, m.VisibleWhileLocked)
	b = appendVarintField(b, 8, uint64(m.UnlockTime))
	b = appendFloatField(b, 9, m.Rarity)
	b = appendStringField(b, 10, m.RarityDescription)
	b = appendStringField(b, 11, m.RaritySlug)
	return b
}

func (m *UserAchievement) Unmarshal(data []byte) error {
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
			m.ImageURLLocked = d.string_()
		case 6:
			m.ImageURLUnlocked = d.string_()
		case 7:
			m.VisibleWhileLocked = d.bool_()
		case 8:
			m.UnlockTime = uint32(d.varint())
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

type GetUserAchievementsResponse struct {
	Achievements []UserAchievement
	Language     string
	Mode         string
}

func (m *GetUserAchievementsResponse) Marshal() []byte {
	var b []byte
	for i := range m.Achievements {
		b = appendBytesField(b, 1, m.Achievements[i].Marshal())
	}
	b = appendStringField(b, 2, m.Language)
	b = appendStringField(b, 3, m.Mode)
	return b
}

func (m *GetUserAchievementsResponse) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			var a UserAchievement
			if err := a.Unmarshal(d.bytes()); err != nil {
				return err
			}
			m.Achievements = append(m.Achievements, a)
		case 2:
			m.Language = d.string_()
		case 3:
			m.Mode = d.string_()
		default:
			d.skip()
		}
	}
	return d.err
}

type UnlockUserAchievementRequest struct {
	AchievementID uint64
	Time          uint32
}

func (m *UnlockUserAchievementRequest) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.AchievementID)
	b = appendVarintField(b, 2, uint64(m.Time))
	return b
}

func (m *UnlockUserAchievementRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.AchievementID = d.varint()
		case 2:
			m.Time = uint32(d.varint())
		default:
			d.skip()
		}
	}
	return d.err
}

type ClearUserAchievementRequest struct {
	AchievementID uint64
}

func (m *ClearUserAchievementRequest) Marshal() []byte {
	return appendVarintField(nil, 1, m.AchievementID)
}

func (m *ClearUserAchievementRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.AchievementID = d.varint()
		} else {
			d.skip()
		}
	}
	return d.err
}

// LeaderboardDef is the wire form of a leaderboard definition.
type LeaderboardDef struct {
	LeaderboardID uint64
	Key           string
	Name          string
	SortMethod    uint32
	DisplayType   uint32
}

func (m *LeaderboardDef) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.LeaderboardID)
	b = appendStringField(b, 2, m.Key)
	b = appendStringField(b, 3, m.Name)
	b = appendVarintField(b, 4, uint64(m.SortMethod))
	b = appendVarintField(b, 5, uint64(m.DisplayType))
	return b
}

func (m *LeaderboardDef) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.LeaderboardID = d.varint()
		case 2:
			m.Key = d.string_()
		case 3:
			m.Name = d.string_()
		case 4:
			m.SortMethod = uint32(d.varint())
		case 5:
			m.DisplayType = uint32(d.varint())
		default:
			d.skip()
		}
	}
	return d.err
}

type GetLeaderboardsRequest struct{}

func (m *GetLeaderboardsRequest) Marshal() []byte { return nil }
func (m *GetLeaderboardsRequest) Unmarshal(data []byte) error { return nil }

type GetLeaderboardsByKeyRequest struct {
	Keys []string
}

func (m *GetLeaderboardsByKeyRequest) Marshal() []byte {
	var b []byte
	for _, k := range m.Keys {
		b = appendStringField(b, 1, k)
	}
	return b
}

func (m *GetLeaderboardsByKeyRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.Keys = append(m.Keys, d.string_())
		} else {
			d.skip()
		}
	}
	return d.err
}

type GetLeaderboardsResponse struct {
	Definitions []LeaderboardDef
}

func (m *GetLeaderboardsResponse) Marshal() []byte {
	var b []byte
	for i := range m.Definitions {
		b = appendBytesField(b, 1, m.Definitions[i].Marshal())
	}
	return b
}

func (m *GetLeaderboardsResponse) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			var def LeaderboardDef
			if err := def.Unmarshal(d.bytes()); err != nil {
				return err
			}
			m.Definitions = append(m.Definitions, def)
		} else {
			d.skip()
		}
	}
	return d.err
}

type GetLeaderboardEntriesGlobalRequest struct {
	LeaderboardID uint64
	RangeStart    uint32
	RangeEnd      uint32
}

func (m *GetLeaderboardEntriesGlobalRequest) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.LeaderboardID)
	b = appendVarintField(b, 2, uint64(m.RangeStart))
	b = appendVarintField(b, 3, uint64(m.RangeEnd))
	return b
}

func (m *GetLeaderboardEntriesGlobalRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.LeaderboardID = d.varint()
		case 2:
			m.RangeStart = uint32(d.varint())
		case 3:
			m.RangeEnd = uint32(d.varint())
		default:
			d.skip()
		}
	}
	return d.err
}

type GetLeaderboardEntriesAroundUserRequest struct {
	LeaderboardID uint64
	CountBefore   uint32
	CountAfter    uint32
	UserID        uint64
}

func (m *GetLeaderboardEntriesAroundUserRequest) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.LeaderboardID)
	b = appendVarintField(b, 2, uint64(m.CountBefore))
	b = appendVarintField(b, 3, uint64(m.CountAfter))
	b = appendVarintField(b, 4, m.UserID)
	return b
}

func (m *GetLeaderboardEntriesAroundUserRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.LeaderboardID = d.varint()
		case 2:
			m.CountBefore = uint32(d.varint())
		case 3:
			m.CountAfter = uint32(d.varint())
		case 4:
			m.UserID = d.varint()
		default:
			d.skip()
		}
	}
	return d.err
}

type GetLeaderboardEntriesForUsersRequest struct {
	LeaderboardID uint64
	UserIDs       []uint64
}

func (m *GetLeaderboardEntriesForUsersRequest) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.LeaderboardID)
	for _, id := range m.UserIDs {
		b = appendVarintField(b, 2, id)
	}
	return b
}

func (m *GetLeaderboardEntriesForUsersRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.LeaderboardID = d.varint()
		case 2:
			m.UserIDs = append(m.UserIDs, d.varint())
		default:
			d.skip()
		}
	}
	return d.err
}

// LeaderboardEntry is one ranked row. Details carries the raw
// game-defined blob.
type LeaderboardEntry struct {
	UserID  uint64
	Rank    uint32
	Score   int32
	Details []byte
}

func (m *LeaderboardEntry) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.UserID)
	b = appendVarintField(b, 2, uint64(m.Rank))
	b = appendVarintField(b, 3, uint64(m.Score))
	b = appendBytesField(b, 4, m.Details)
	return b
}

func (m *LeaderboardEntry) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.UserID = d.varint()
		case 2:
			m.Rank = uint32(d.varint())
		case 3:
			m.Score = int32(d.varint())
		case 4:
			m.Details = d.bytes()
		default:
			d.skip()
		}
	}
	return d.err
}

type GetLeaderboardEntriesResponse struct {
	EntryTotalCount uint32
	Entries         []LeaderboardEntry
}

func (m *GetLeaderboardEntriesResponse) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(m.EntryTotalCount))
	for i := range m.Entries {
		b = appendBytesField(b, 2, m.Entries[i].Marshal())
	}
	return b
}

func (m *GetLeaderboardEntriesResponse) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.EntryTotalCount = uint32(d.varint())
		case 2:
			var e LeaderboardEntry
			if err := e.Unmarshal(d.bytes()); err != nil {
				return err
			}
			m.Entries = append(m.Entries, e)
		default:
			d.skip()
		}
	}
	return d.err
}

type SetLeaderboardScoreRequest struct {
	LeaderboardID uint64
	Score         int32
	ForceUpdate   bool
	Details       []byte
}

func (m *SetLeaderboardScoreRequest) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.LeaderboardID)
	b = appendVarintField(b, 2, uint64(m.Score))
	b = appendBoolField(b, 3, m.ForceUpdate)
	b = appendBytesField(b, 4, m.Details)
	return b
}

func (m *SetLeaderboardScoreRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.LeaderboardID = d.varint()
		case 2:
			m.Score = int32(d.varint())
		case 3:
			m.ForceUpdate = d.bool_()
		case 4:
			m.Details = d.bytes()
		default:
			d.skip()
		}
	}
	return d.err
}

type SetLeaderboardScoreResponse struct {
	Score           int32
	OldRank         uint32
	NewRank         uint32
	EntryTotalCount uint32
}

func (m *SetLeaderboardScoreResponse) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(m.Score))
	b = appendVarintField(b, 2, uint64(m.OldRank))
	b = appendVarintField(b, 3, uint64(m.NewRank))
	b = appendVarintField(b, 4, uint64(m.EntryTotalCount))
	return b
}

func (m *SetLeaderboardScoreResponse) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.Score = int32(d.varint())
		case 2:
			m.OldRank = uint32(d.varint())
		case 3:
			m.NewRank = uint32(d.varint())
		case 4:
			m.EntryTotalCount = uint32(d.varint())
		default:
			d.skip()
		}
	}
	return d.err
}

type CreateLeaderboardRequest struct {
	Key         string
	Name        string
	SortMethod  uint32
	DisplayType uint32
}

func (m *CreateLeaderboardRequest) Marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, m.Key)
	b = appendStringField(b, 2, m.Name)
	b = appendVarintField(b, 3, uint64(m.SortMethod))
	b = appendVarintField(b, 4, uint64(m.DisplayType))
	return b
}

func (m *CreateLeaderboardRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.Key = d.string_()
		case 2:
			m.Name = d.string_()
		case 3:
			m.SortMethod = uint32(d.varint())
		case 4:
			m.DisplayType = uint32(d.varint())
		default:
			d.skip()
		}
	}
	return d.err
}

type CreateLeaderboardResponse struct {
	LeaderboardID uint64
}

func (m *CreateLeaderboardResponse) Marshal() []byte {
	return appendVarintField(nil, 1, m.LeaderboardID)
}

func (m *CreateLeaderboardResponse) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.LeaderboardID = d.varint()
		} else {
			d.skip()
		}
	}
	return d.err
}

type DeleteUserStatsRequest struct{}

func (m *DeleteUserStatsRequest) Marshal() []byte { return nil }
func (m *DeleteUserStatsRequest) Unmarshal(data []byte) error { return nil }

type DeleteUserAchievementsRequest struct{}

func (m *DeleteUserAchievementsRequest) Marshal() []byte { return nil }
func (m *DeleteUserAchievementsRequest) Unmarshal(data []byte) error { return nil }

type StartGameSessionRequest struct {
	GamePID uint32
}

func (m *StartGameSessionRequest) Marshal() []byte {
	return appendVarintField(nil, 1, uint64(m.GamePID))
}

func (m *StartGameSessionRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.GamePID = uint32(d.varint())
		} else {
			d.skip()
		}
	}
	return d.err
}
