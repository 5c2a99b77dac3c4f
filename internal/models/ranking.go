package models

// RankingKind discriminates the two row shapes rendered in the leaderboard.
// The original client sniffed field presence; here the variant is explicit.
type RankingKind int

const (
	RankStudent RankingKind = iota
	RankFaculty
)

// RankingRow is a tagged variant: exactly one of Student/Faculty is set,
// matching Kind.
type RankingRow struct {
	Kind    RankingKind
	Student *StudentRank
	Faculty *FacultyRank
}

// StudentRank is one student leaderboard entry.
type StudentRank struct {
	UserID        int64
	Name          string // formatted student id
	Email         string
	Score         int
	Streak        int
	IsCurrentUser bool
}

// FacultyRank aggregates students sharing a faculty code prefix.
type FacultyRank struct {
	Name         string
	TotalScore   int
	StudentCount int
	AverageScore int
}

func StudentRow(s *StudentRank) RankingRow {
	return RankingRow{Kind: RankStudent, Student: s}
}

func FacultyRow(f *FacultyRank) RankingRow {
	return RankingRow{Kind: RankFaculty, Faculty: f}
}

// UserState is the bot conversation state persisted between updates.
type UserState struct {
	UserID int64                  `json:"user_id"`
	Step   string                 `json:"step"`
	Data   map[string]interface{} `json:"data"`
}

func (s *UserState) GetString(key string) string {
	if s == nil || s.Data == nil {
		return ""
	}
	if v, ok := s.Data[key].(string); ok {
		return v
	}
	return ""
}

func (s *UserState) GetInt(key string) int {
	if s == nil || s.Data == nil {
		return 0
	}
	switch v := s.Data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		// JSON round-trips numbers as float64.
		return int(v)
	default:
		return 0
	}
}
