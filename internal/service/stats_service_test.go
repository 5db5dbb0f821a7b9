package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surveyforge/surveyforge/internal/models"
)

// stubStatsStore returns canned aggregates for one survey
type stubStatsStore struct {
	survey       *models.Survey
	total        int
	unique       int
	anonymous    int
	activeUsers  int
	optionCounts map[uuid.UUID]int
	textCounts   map[uuid.UUID]int
}

func (s *stubStatsStore) GetSurveyWithQuestions(_ context.Context, id uuid.UUID) (*models.Survey, error) {
	if s.survey == nil || s.survey.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.survey, nil
}

func (s *stubStatsStore) CountResponsesBySurvey(context.Context, uuid.UUID) (int, error) {
	return s.total, nil
}

func (s *stubStatsStore) CountUniqueRespondents(context.Context, uuid.UUID) (int, error) {
	return s.unique, nil
}

func (s *stubStatsStore) CountAnonymousResponses(context.Context, uuid.UUID) (int, error) {
	return s.anonymous, nil
}

func (s *stubStatsStore) CountActiveUsers(context.Context) (int, error) {
	return s.activeUsers, nil
}

func (s *stubStatsStore) OptionCounts(context.Context, uuid.UUID) (map[uuid.UUID]int, error) {
	return s.optionCounts, nil
}

func (s *stubStatsStore) TextResponseCounts(context.Context, uuid.UUID) (map[uuid.UUID]int, error) {
	return s.textCounts, nil
}

func (s *stubStatsStore) GetStats(context.Context) (*models.Stats, error) {
	return &models.Stats{SurveyCount: 1, ResponseCount: s.total, UniqueUserCount: s.unique}, nil
}

func statsFixture() (*stubStatsStore, *models.Survey) {
	survey := &models.Survey{
		ID:     uuid.New(),
		Title:  "Team Lunch",
		Status: models.SurveyStatusActive,
	}
	question := models.Question{
		ID:         uuid.New(),
		SurveyID:   survey.ID,
		Text:       "Where should we go?",
		Type:       models.QuestionTypeMultipleChoice,
		OrderIndex: 1,
	}
	question.Options = []models.Option{
		{ID: uuid.New(), QuestionID: question.ID, Text: "Pizza", OrderIndex: 1},
		{ID: uuid.New(), QuestionID: question.ID, Text: "Sushi", OrderIndex: 2},
	}
	survey.Questions = []models.Question{question}

	store := &stubStatsStore{
		survey:      survey,
		total:       10,
		unique:      6,
		anonymous:   2,
		activeUsers: 12,
		optionCounts: map[uuid.UUID]int{
			question.Options[0].ID: 6,
			question.Options[1].ID: 2,
		},
		// Two answers that matched no option and fell back to text
		textCounts: map[uuid.UUID]int{question.ID: 2},
	}
	return store, survey
}

func TestSurveyStatistics(t *testing.T) {
	store, survey := statsFixture()
	svc := NewStatsService(store)

	stats, err := svc.SurveyStatistics(context.Background(), survey.ID)
	require.NoError(t, err)

	assert.Equal(t, survey.ID, stats.SurveyID)
	assert.Equal(t, "Team Lunch", stats.Title)
	assert.Equal(t, 10, stats.TotalResponses)
	assert.Equal(t, 6, stats.UniqueRespondents)
	assert.Equal(t, 2, stats.AnonymousResponses)
	assert.Equal(t, 12, stats.EligibleUsers)
	assert.InDelta(t, 50.0, stats.CompletionRate, 0.001)

	require.Len(t, stats.Questions, 1)
	q := stats.Questions[0]
	assert.Equal(t, 10, q.TotalAnswers)
	assert.Equal(t, 2, q.TextResponses)

	require.Len(t, q.Options, 2)
	assert.Equal(t, "A", q.Options[0].Label)
	assert.Equal(t, 6, q.Options[0].Count)
	assert.InDelta(t, 60.0, q.Options[0].Percentage, 0.001)
	assert.Equal(t, "B", q.Options[1].Label)
	assert.InDelta(t, 20.0, q.Options[1].Percentage, 0.001)
}

func TestSurveyStatisticsNoResponses(t *testing.T) {
	store, survey := statsFixture()
	store.total = 0
	store.unique = 0
	store.anonymous = 0
	store.activeUsers = 0
	store.optionCounts = nil
	store.textCounts = nil
	svc := NewStatsService(store)

	stats, err := svc.SurveyStatistics(context.Background(), survey.ID)
	require.NoError(t, err)

	assert.Zero(t, stats.CompletionRate, "no eligible users must not divide by zero")
	require.Len(t, stats.Questions, 1)
	assert.Zero(t, stats.Questions[0].TotalAnswers)
	for _, opt := range stats.Questions[0].Options {
		assert.Zero(t, opt.Percentage)
	}
}

func TestServiceStats(t *testing.T) {
	store, _ := statsFixture()
	svc := NewStatsService(store)

	stats, err := svc.ServiceStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SurveyCount)
	assert.Equal(t, 10, stats.ResponseCount)
	assert.Equal(t, 6, stats.UniqueUserCount)
}

func TestSurveyStatisticsNotFound(t *testing.T) {
	store, _ := statsFixture()
	svc := NewStatsService(store)

	_, err := svc.SurveyStatistics(context.Background(), uuid.New())
	assert.True(t, IsNotFound(err))
}
