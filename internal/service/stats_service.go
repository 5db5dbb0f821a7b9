package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/surveyforge/surveyforge/internal/models"
)

// StatsStore is the storage surface the statistics service needs
type StatsStore interface {
	GetSurveyWithQuestions(ctx context.Context, id uuid.UUID) (*models.Survey, error)
	CountResponsesBySurvey(ctx context.Context, surveyID uuid.UUID) (int, error)
	CountUniqueRespondents(ctx context.Context, surveyID uuid.UUID) (int, error)
	CountAnonymousResponses(ctx context.Context, surveyID uuid.UUID) (int, error)
	CountActiveUsers(ctx context.Context) (int, error)
	OptionCounts(ctx context.Context, surveyID uuid.UUID) (map[uuid.UUID]int, error)
	TextResponseCounts(ctx context.Context, surveyID uuid.UUID) (map[uuid.UUID]int, error)
	GetStats(ctx context.Context) (*models.Stats, error)
}

// OptionStats is the derived response count for one option
type OptionStats struct {
	OptionID   uuid.UUID `json:"optionId"`
	Label      string    `json:"label"`
	Text       string    `json:"text"`
	Count      int       `json:"count"`
	Percentage float64   `json:"percentage"`
}

// QuestionStats aggregates responses for one question
type QuestionStats struct {
	QuestionID    uuid.UUID     `json:"questionId"`
	Text          string        `json:"text"`
	Type          string        `json:"type"`
	OrderIndex    int           `json:"orderIndex"`
	TotalAnswers  int           `json:"totalAnswers"`
	TextResponses int           `json:"textResponses"`
	Options       []OptionStats `json:"options,omitempty"`
}

// SurveyStatistics aggregates all responses for a survey. Counts are always
// derived from the responses table, never stored. Anonymous responses carry
// no user ID and are excluded from UniqueRespondents; AnonymousResponses
// preserves that information. CompletionRate divides unique authenticated
// respondents by the active registered user count (EligibleUsers), which is
// returned so callers can recompute against a different denominator.
type SurveyStatistics struct {
	SurveyID           uuid.UUID       `json:"surveyId"`
	Title              string          `json:"title"`
	Status             string          `json:"status"`
	TotalResponses     int             `json:"totalResponses"`
	UniqueRespondents  int             `json:"uniqueRespondents"`
	AnonymousResponses int             `json:"anonymousResponses"`
	EligibleUsers      int             `json:"eligibleUsers"`
	CompletionRate     float64         `json:"completionRate"`
	Questions          []QuestionStats `json:"questions"`
}

// StatsService computes per-survey statistics
type StatsService struct {
	store StatsStore
}

// NewStatsService creates a StatsService
func NewStatsService(store StatsStore) *StatsService {
	return &StatsService{store: store}
}

// ServiceStats returns the global service totals
func (s *StatsService) ServiceStats(ctx context.Context) (*models.Stats, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get service stats: %w", err)
	}
	return stats, nil
}

// SurveyStatistics aggregates the response data for one survey
func (s *StatsService) SurveyStatistics(ctx context.Context, surveyID uuid.UUID) (*SurveyStatistics, error) {
	survey, err := s.store.GetSurveyWithQuestions(ctx, surveyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewNotFoundError("survey not found")
		}
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}

	total, err := s.store.CountResponsesBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}

	unique, err := s.store.CountUniqueRespondents(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count respondents: %w", err)
	}

	anonymous, err := s.store.CountAnonymousResponses(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count anonymous responses: %w", err)
	}

	eligible, err := s.store.CountActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	optionCounts, err := s.store.OptionCounts(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load option counts: %w", err)
	}

	textCounts, err := s.store.TextResponseCounts(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load text response counts: %w", err)
	}

	stats := &SurveyStatistics{
		SurveyID:           survey.ID,
		Title:              survey.Title,
		Status:             string(survey.Status),
		TotalResponses:     total,
		UniqueRespondents:  unique,
		AnonymousResponses: anonymous,
		EligibleUsers:      eligible,
		Questions:          make([]QuestionStats, 0, len(survey.Questions)),
	}
	if eligible > 0 {
		stats.CompletionRate = float64(unique) / float64(eligible) * 100
	}

	for _, question := range survey.Questions {
		qs := QuestionStats{
			QuestionID:    question.ID,
			Text:          question.Text,
			Type:          string(question.Type),
			OrderIndex:    question.OrderIndex,
			TextResponses: textCounts[question.ID],
		}

		answered := textCounts[question.ID]
		for _, option := range question.Options {
			answered += optionCounts[option.ID]
		}
		qs.TotalAnswers = answered

		for _, option := range question.Options {
			count := optionCounts[option.ID]
			os := OptionStats{
				OptionID: option.ID,
				Label:    option.Label(),
				Text:     option.Text,
				Count:    count,
			}
			if answered > 0 {
				os.Percentage = float64(count) / float64(answered) * 100
			}
			qs.Options = append(qs.Options, os)
		}

		stats.Questions = append(stats.Questions, qs)
	}

	return stats, nil
}
