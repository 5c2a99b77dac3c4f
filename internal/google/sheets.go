// Package google publishes the library leaderboard to a staff spreadsheet.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"libseat/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewSheetsService authorizes with a service account credentials file.
func NewSheetsService(credentialsFile, spreadsheetID string) (*SheetsService, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
	}, nil
}

// TestConnection reads the first cell of the leaderboard sheet.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, "Leaderboard!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail returns the service account email, useful when
// sharing the spreadsheet with it.
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

// UpdateLeaderboardSheet rewrites the Leaderboard sheet with all users
// ordered by library score.
func (s *SheetsService) UpdateLeaderboardSheet(ctx context.Context, users []models.User) error {
	ranked := make([]models.User, len(users))
	copy(ranked, users)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].LibraryScore > ranked[j].LibraryScore
	})

	var values [][]interface{}
	values = append(values, []interface{}{
		"Rank", "Student ID", "Email", "Library Score", "Completion Streak", "No-Show Streak", "Break Violations",
	})
	for i, user := range ranked {
		values = append(values, []interface{}{
			i + 1,
			user.StudentID,
			user.Email,
			user.LibraryScore,
			user.SuccessfulCompletionsStreak,
			user.NoShowStreak,
			user.BreakViolationStreak,
		})
	}

	// Clear the sheet before rewriting so stale rows don't survive.
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, "Leaderboard!A:G", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to clear leaderboard sheet: %v", err)
	}

	valueRange := &sheets.ValueRange{Values: values}
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, "Leaderboard!A1", valueRange).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to update leaderboard sheet: %v", err)
	}

	return nil
}
