package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"libseat/internal/models"
)

func newRankingFixture(t *testing.T, loggedInUserID int64) (*RankingService, *MockBackend) {
	t.Helper()
	backend := new(MockBackend)
	sessions := newFakeSessions()
	bus := &recordingBus{}
	logger := zerolog.Nop()

	if loggedInUserID != 0 {
		require.NoError(t, sessions.Set(context.Background(), testChatID, models.KeyUserID, "2"))
	}

	auth := NewAuthService(backend, sessions, bus, &logger)
	return NewRankingService(backend, auth, &logger), backend
}

func rankingUsers() []models.User {
	return []models.User{
		{ID: 1, StudentID: "CS2021001", Email: "a@example.edu", LibraryScore: 50, SuccessfulCompletionsStreak: 9},
		{ID: 2, StudentID: "CS2021002", Email: "b@example.edu", LibraryScore: 90, SuccessfulCompletionsStreak: 1},
		{ID: 3, StudentID: "EE2021003", Email: "c@example.edu", LibraryScore: 70, SuccessfulCompletionsStreak: 5},
		{ID: 4, StudentID: "202100456", Email: "d@example.edu", LibraryScore: 30, SuccessfulCompletionsStreak: 2},
	}
}

func TestRankingService_Build_SortByScore(t *testing.T) {
	svc, backend := newRankingFixture(t, 2)
	backend.On("AllUsers", mock.Anything).Return(rankingUsers(), nil)

	board, err := svc.Build(context.Background(), testChatID, SortByScore)
	require.NoError(t, err)

	require.Len(t, board.Students, 4)
	order := make([]int64, 0, 4)
	for _, row := range board.Students {
		require.Equal(t, models.RankStudent, row.Kind)
		require.NotNil(t, row.Student)
		order = append(order, row.Student.UserID)
	}
	assert.Equal(t, []int64{2, 3, 1, 4}, order)

	// The viewer (user 2) tops the board.
	assert.Equal(t, 1, board.CurrentUserRank)
	assert.True(t, board.Students[0].Student.IsCurrentUser)
	assert.False(t, board.Students[1].Student.IsCurrentUser)
}

func TestRankingService_Build_SortByStreak(t *testing.T) {
	svc, backend := newRankingFixture(t, 2)
	backend.On("AllUsers", mock.Anything).Return(rankingUsers(), nil)

	board, err := svc.Build(context.Background(), testChatID, SortByStreak)
	require.NoError(t, err)

	order := make([]int64, 0, 4)
	for _, row := range board.Students {
		order = append(order, row.Student.UserID)
	}
	assert.Equal(t, []int64{1, 3, 4, 2}, order)

	// Viewer drops to last place under streak ordering.
	assert.Equal(t, 4, board.CurrentUserRank)
}

func TestRankingService_Build_AnonymousViewer(t *testing.T) {
	svc, backend := newRankingFixture(t, 0)
	backend.On("AllUsers", mock.Anything).Return(rankingUsers(), nil)

	board, err := svc.Build(context.Background(), testChatID, SortByScore)
	require.NoError(t, err)

	assert.Equal(t, 0, board.CurrentUserRank)
	for _, row := range board.Students {
		assert.False(t, row.Student.IsCurrentUser)
	}
}

func TestRankingService_Build_FacultyAggregation(t *testing.T) {
	svc, backend := newRankingFixture(t, 2)
	backend.On("AllUsers", mock.Anything).Return(rankingUsers(), nil)

	board, err := svc.Build(context.Background(), testChatID, SortByScore)
	require.NoError(t, err)

	require.Len(t, board.Faculties, 3)

	byName := make(map[string]*models.FacultyRank)
	for _, row := range board.Faculties {
		require.Equal(t, models.RankFaculty, row.Kind)
		require.NotNil(t, row.Faculty)
		byName[row.Faculty.Name] = row.Faculty
	}

	cs := byName["Computer Engineering"]
	require.NotNil(t, cs)
	assert.Equal(t, 2, cs.StudentCount)
	assert.Equal(t, 140, cs.TotalScore)
	assert.Equal(t, 70, cs.AverageScore)

	ee := byName["Electrical-Electronics"]
	require.NotNil(t, ee)
	assert.Equal(t, 1, ee.StudentCount)
	assert.Equal(t, 70, ee.AverageScore)

	// Purely numeric ids fall into the Other bucket.
	other := byName["Other"]
	require.NotNil(t, other)
	assert.Equal(t, 1, other.StudentCount)
	assert.Equal(t, 30, other.AverageScore)

	// Ordered by average score, ties keep a consistent descending order.
	first := board.Faculties[0].Faculty
	last := board.Faculties[len(board.Faculties)-1].Faculty
	assert.GreaterOrEqual(t, first.AverageScore, last.AverageScore)
	assert.Equal(t, "Other", last.Name)
}

func TestRankingService_Build_RoundsAverage(t *testing.T) {
	svc, backend := newRankingFixture(t, 0)
	backend.On("AllUsers", mock.Anything).Return([]models.User{
		{ID: 1, StudentID: "ME2021001", LibraryScore: 10},
		{ID: 2, StudentID: "ME2021002", LibraryScore: 11},
	}, nil)

	board, err := svc.Build(context.Background(), testChatID, SortByScore)
	require.NoError(t, err)

	require.Len(t, board.Faculties, 1)
	// 21/2 = 10.5 rounds up.
	assert.Equal(t, 11, board.Faculties[0].Faculty.AverageScore)
}

func TestRankingService_Build_BackendError(t *testing.T) {
	svc, backend := newRankingFixture(t, 2)
	backend.On("AllUsers", mock.Anything).Return(nil, assert.AnError)

	_, err := svc.Build(context.Background(), testChatID, SortByScore)
	assert.Error(t, err)
}
