package model

// Achievement is one row of the per-game achievement cache. UnlockTime is
// an RFC3339 string, empty while the achievement is locked. Changed marks
// a local mutation that has not been confirmed by the remote service yet.
type Achievement struct {
	ID                 int64
	Key                string
	Name               string
	Description        string
	ImageURLLocked     string
	ImageURLUnlocked   string
	VisibleWhileLocked bool
	UnlockTime         string
	Rarity             float32
	RarityDescription  string
	RaritySlug         string
	Changed            bool
}

// Unlocked reports whether the achievement has an unlock time.
func (a Achievement) Unlocked() bool {
	return a.UnlockTime != ""
}

// StatType discriminates the statistic value variants. The values match
// the remote service's type strings and the cache CHECK constraint.
type StatType string

const (
	StatInt     StatType = "INT"
	StatFloat   StatType = "FLOAT"
	StatAvgRate StatType = "AVGRATE"
)

// Stat is one statistic with its typed value. Int values live in the
// I-prefixed fields, float and avgrate values in the F-prefixed ones.
type Stat struct {
	ID            int64
	Key           string
	Type          StatType
	IncrementOnly bool
	Window        *float64
	Changed       bool

	IValue     int64
	IDefault   int64
	IMin       *int64
	IMax       *int64
	IMaxChange *int64

	FValue     float64
	FDefault   float64
	FMin       *float64
	FMax       *float64
	FMaxChange *float64
}

// Leaderboard sort and display methods as the remote service names them.
const (
	SortMethodAscending  = "SORT_METHOD_ASCENDING"
	SortMethodDescending = "SORT_METHOD_DESCENDING"

	DisplayTypeNumeric          = "DISPLAY_TYPE_NUMERIC"
	DisplayTypeTimeSeconds      = "DISPLAY_TYPE_TIME_SECONDS"
	DisplayTypeTimeMilliseconds = "DISPLAY_TYPE_TIME_MILLISECONDS"
)

// Leaderboard is one row of the leaderboard cache: the definition plus the
// local user's score state. Details holds the game-supplied blob in
// url-safe unpadded base64. At most one row exists per leaderboard id.
type Leaderboard struct {
	ID              int64
	Key             string
	Name            string
	SortMethod      string
	DisplayType     string
	Score           int32
	Rank            uint32
	ForceUpdate     bool
	EntryTotalCount uint32
	Details         string
	Changed         bool
}
