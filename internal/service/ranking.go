package service

import (
	"context"
	"errors"
	"regexp"
	"sort"

	"libseat/internal/domain"
	"libseat/internal/models"

	"github.com/rs/zerolog"
)

// SortBy selects the student leaderboard ordering.
type SortBy string

const (
	SortByScore  SortBy = "score"
	SortByStreak SortBy = "streak"
)

var facultyCodePattern = regexp.MustCompile(`^[A-Z]+`)

// facultyNames maps the letter prefix of a student id to the faculty it
// belongs to. Ids without a letter prefix land in "Other".
var facultyNames = map[string]string{
	"CS": "Computer Engineering",
	"EE": "Electrical-Electronics",
	"ME": "Mechanical Engineering",
	"IE": "Industrial Engineering",
	"AR": "Architecture",
	"CE": "Civil Engineering",
	"CH": "Chemical Engineering",
}

const facultyOther = "Other"

// Leaderboard is a computed ranking snapshot for one viewer.
type Leaderboard struct {
	Students        []models.RankingRow
	Faculties       []models.RankingRow
	CurrentUserRank int // 1-based, 0 when the viewer is not ranked
}

// RankingService builds the leaderboard from the full user list. The
// backend has no ranking endpoint, so ordering and faculty aggregation
// happen client side.
type RankingService struct {
	backend domain.Backend
	auth    *AuthService
	logger  *zerolog.Logger
}

func NewRankingService(backend domain.Backend, auth *AuthService, logger *zerolog.Logger) *RankingService {
	return &RankingService{
		backend: backend,
		auth:    auth,
		logger:  logger,
	}
}

// Build fetches all users and computes both ranking tabs. The viewer's
// own row is flagged and their 1-based rank reported.
func (s *RankingService) Build(ctx context.Context, chatID int64, sortBy SortBy) (*Leaderboard, error) {
	viewerID, err := s.auth.CurrentUserID(ctx, chatID)
	if err != nil && !errors.Is(err, ErrNotLoggedIn) {
		return nil, err
	}

	users, err := s.backend.AllUsers(ctx)
	if err != nil {
		return nil, err
	}

	students := make([]*models.StudentRank, 0, len(users))
	for _, u := range users {
		students = append(students, &models.StudentRank{
			UserID:        u.ID,
			Name:          u.StudentID,
			Email:         u.Email,
			Score:         u.LibraryScore,
			Streak:        u.SuccessfulCompletionsStreak,
			IsCurrentUser: viewerID != 0 && u.ID == viewerID,
		})
	}

	sort.SliceStable(students, func(i, j int) bool {
		if sortBy == SortByStreak {
			return students[i].Streak > students[j].Streak
		}
		return students[i].Score > students[j].Score
	})

	board := &Leaderboard{}
	for rank, st := range students {
		if st.IsCurrentUser {
			board.CurrentUserRank = rank + 1
		}
		board.Students = append(board.Students, models.StudentRow(st))
	}
	board.Faculties = facultyRows(students)

	return board, nil
}

// facultyRows groups students by the letter prefix of their id and ranks
// faculties by average score.
func facultyRows(students []*models.StudentRank) []models.RankingRow {
	type bucket struct {
		total int
		count int
	}
	buckets := make(map[string]*bucket)

	for _, st := range students {
		name := facultyOther
		if code := facultyCodePattern.FindString(st.Name); code != "" {
			if mapped, ok := facultyNames[code]; ok {
				name = mapped
			}
		}
		b := buckets[name]
		if b == nil {
			b = &bucket{}
			buckets[name] = b
		}
		b.total += st.Score
		b.count++
	}

	faculties := make([]*models.FacultyRank, 0, len(buckets))
	for name, b := range buckets {
		avg := 0
		if b.count > 0 {
			avg = int(float64(b.total)/float64(b.count) + 0.5)
		}
		faculties = append(faculties, &models.FacultyRank{
			Name:         name,
			TotalScore:   b.total,
			StudentCount: b.count,
			AverageScore: avg,
		})
	}

	sort.Slice(faculties, func(i, j int) bool {
		return faculties[i].AverageScore > faculties[j].AverageScore
	})

	rows := make([]models.RankingRow, 0, len(faculties))
	for _, f := range faculties {
		rows = append(rows, models.FacultyRow(f))
	}
	return rows
}
