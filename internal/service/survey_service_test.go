package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surveyforge/surveyforge/internal/models"
)

// memSurveyStore is an in-memory SurveyStore for tests
type memSurveyStore struct {
	surveys   map[uuid.UUID]*models.Survey
	responses []*models.Response
	order     []uuid.UUID
}

func newMemSurveyStore() *memSurveyStore {
	return &memSurveyStore{surveys: make(map[uuid.UUID]*models.Survey)}
}

func (s *memSurveyStore) CreateSurvey(_ context.Context, survey *models.Survey) error {
	s.surveys[survey.ID] = survey
	s.order = append(s.order, survey.ID)
	return nil
}

func (s *memSurveyStore) get(id uuid.UUID) (*models.Survey, error) {
	survey, ok := s.surveys[id]
	if !ok || !survey.IsActive {
		return nil, sql.ErrNoRows
	}
	return survey, nil
}

func (s *memSurveyStore) GetSurveyByID(_ context.Context, id uuid.UUID) (*models.Survey, error) {
	return s.get(id)
}

func (s *memSurveyStore) GetSurveyWithQuestions(_ context.Context, id uuid.UUID) (*models.Survey, error) {
	return s.get(id)
}

func (s *memSurveyStore) ListSurveys(_ context.Context, limit, offset int) ([]*models.Survey, error) {
	var out []*models.Survey
	// Newest first
	for i := len(s.order) - 1; i >= 0; i-- {
		if survey := s.surveys[s.order[i]]; survey.IsActive {
			out = append(out, survey)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memSurveyStore) UpdateSurveyMetadata(_ context.Context, survey *models.Survey) error {
	s.surveys[survey.ID] = survey
	return nil
}

func (s *memSurveyStore) ReplaceQuestionSet(_ context.Context, surveyID uuid.UUID, questions []models.Question) error {
	kept := s.responses[:0]
	for _, r := range s.responses {
		if r.SurveyID != surveyID {
			kept = append(kept, r)
		}
	}
	s.responses = kept
	s.surveys[surveyID].Questions = questions
	return nil
}

func (s *memSurveyStore) SetSurveyStatus(_ context.Context, id uuid.UUID, status models.SurveyStatus, startsAt, endsAt *time.Time) error {
	survey := s.surveys[id]
	survey.Status = status
	if startsAt != nil {
		survey.StartsAt = startsAt
	}
	if endsAt != nil {
		survey.EndsAt = endsAt
	}
	return nil
}

func (s *memSurveyStore) DeleteSurveyCascade(_ context.Context, id uuid.UUID) error {
	kept := s.responses[:0]
	for _, r := range s.responses {
		if r.SurveyID != id {
			kept = append(kept, r)
		}
	}
	s.responses = kept
	delete(s.surveys, id)
	return nil
}

func (s *memSurveyStore) CreateResponses(_ context.Context, responses []*models.Response) error {
	s.responses = append(s.responses, responses...)
	return nil
}

func (s *memSurveyStore) HasResponded(_ context.Context, surveyID uuid.UUID, userID *uuid.UUID, sessionID *string) (bool, error) {
	for _, r := range s.responses {
		if r.SurveyID != surveyID {
			continue
		}
		if userID != nil && r.UserID != nil && *r.UserID == *userID {
			return true, nil
		}
		if sessionID != nil && r.SessionID != nil && *r.SessionID == *sessionID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memSurveyStore) CompletedSurveyIDs(_ context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	for _, r := range s.responses {
		if r.UserID != nil && *r.UserID == userID {
			out[r.SurveyID] = true
		}
	}
	return out, nil
}

func creatorUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "creator@example.com", Role: models.RoleUser, IsActive: true}
}

func adminUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "admin@example.com", Role: models.RoleAdmin, IsActive: true}
}

func sampleInput() SurveyInput {
	return SurveyInput{
		Title: "Team Lunch",
		Questions: []QuestionInput{
			{
				Text:       "Where should we go?",
				Type:       models.QuestionTypeMultipleChoice,
				IsRequired: true,
				Options:    []string{"Pizza", "Sushi", "Tacos"},
			},
			{
				Text: "Any dietary restrictions?",
				Type: models.QuestionTypeTextInput,
			},
		},
	}
}

func TestCreateSurvey(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)
	creator := creatorUser()

	survey, err := svc.Create(context.Background(), creator, sampleInput())
	require.NoError(t, err)

	assert.Equal(t, models.SurveyStatusDraft, survey.Status, "new surveys start as drafts")
	require.NotNil(t, survey.CreatorID)
	assert.Equal(t, creator.ID, *survey.CreatorID)
	assert.True(t, survey.IsActive)

	require.Len(t, survey.Questions, 2)
	assert.Equal(t, 1, survey.Questions[0].OrderIndex)
	assert.Equal(t, 2, survey.Questions[1].OrderIndex)

	options := survey.Questions[0].Options
	require.Len(t, options, 3)
	for i, opt := range options {
		assert.Equal(t, i+1, opt.OrderIndex)
		assert.Equal(t, survey.Questions[0].ID, opt.QuestionID)
	}
	assert.Equal(t, "A", options[0].Label())
	assert.Equal(t, "C", options[2].Label())
}

func TestCreateSurveyRequiresCreator(t *testing.T) {
	svc := NewSurveyService(newMemSurveyStore())

	_, err := svc.Create(context.Background(), nil, sampleInput())
	assert.True(t, IsUnauthorized(err))
}

func TestCreateSurveyValidation(t *testing.T) {
	svc := NewSurveyService(newMemSurveyStore())
	creator := creatorUser()
	ctx := context.Background()

	t.Run("no questions", func(t *testing.T) {
		input := sampleInput()
		input.Questions = nil
		_, err := svc.Create(ctx, creator, input)
		assert.True(t, IsInvalid(err))
	})

	t.Run("end before start", func(t *testing.T) {
		input := sampleInput()
		start := time.Now()
		end := start.Add(-time.Hour)
		input.StartsAt = &start
		input.EndsAt = &end
		_, err := svc.Create(ctx, creator, input)
		assert.True(t, IsInvalid(err))
	})
}

func TestImportSurveyFromYAML(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)

	doc := []byte(`
title: Favorite Editor
anonymous: true
questions:
  - text: Which editor do you use?
    type: multiple_choice
    required: true
    options:
      - Vim
      - Emacs
`)

	survey, err := svc.Import(context.Background(), creatorUser(), doc)
	require.NoError(t, err)
	assert.Equal(t, "Favorite Editor", survey.Title)
	assert.True(t, survey.IsAnonymous)
	require.Len(t, survey.Questions, 1)
	assert.Len(t, survey.Questions[0].Options, 2)
}

func TestImportSurveyInvalidDocument(t *testing.T) {
	svc := NewSurveyService(newMemSurveyStore())

	_, err := svc.Import(context.Background(), creatorUser(), []byte("title: [unbalanced"))
	assert.True(t, IsInvalid(err))
}

func TestGetSurveyNotFound(t *testing.T) {
	svc := NewSurveyService(newMemSurveyStore())

	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, IsNotFound(err))
}

func TestListSurveysCompletionFlags(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)
	creator := creatorUser()
	ctx := context.Background()

	first, err := svc.Create(ctx, creator, sampleInput())
	require.NoError(t, err)
	second, err := svc.Create(ctx, creator, sampleInput())
	require.NoError(t, err)

	activate(t, svc, creator, first.ID)

	respondent := creatorUser()
	_, err = svc.SubmitResponse(ctx, first.ID, respondent, "", []AnswerInput{
		{QuestionID: first.Questions[0].ID, AnswerText: "Pizza"},
	})
	require.NoError(t, err)

	items, err := svc.List(ctx, 20, 0, respondent)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Newest first
	assert.Equal(t, second.ID, items[0].Survey.ID)
	assert.False(t, items[0].Completed)
	assert.Equal(t, first.ID, items[1].Survey.ID)
	assert.True(t, items[1].Completed)
}

func activate(t *testing.T, svc *SurveyService, actor *models.User, id uuid.UUID) {
	t.Helper()
	_, err := svc.Transition(context.Background(), actor, id, models.SurveyStatusActive)
	require.NoError(t, err)
}

func TestUpdateSurveyReplacesQuestions(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)
	creator := creatorUser()
	ctx := context.Background()

	survey, err := svc.Create(ctx, creator, sampleInput())
	require.NoError(t, err)
	activate(t, svc, creator, survey.ID)

	_, err = svc.SubmitResponse(ctx, survey.ID, creatorUser(), "", []AnswerInput{
		{QuestionID: survey.Questions[0].ID, AnswerText: "Pizza"},
	})
	require.NoError(t, err)
	require.Len(t, store.responses, 1)

	input := SurveyInput{
		Title: "Team Dinner",
		Questions: []QuestionInput{
			{Text: "What time?", Type: models.QuestionTypeMultipleChoice, Options: []string{"6pm", "7pm"}},
		},
	}
	updated, err := svc.Update(ctx, creator, survey.ID, input)
	require.NoError(t, err)

	assert.Equal(t, "Team Dinner", updated.Title)
	require.Len(t, updated.Questions, 1)
	assert.Equal(t, 1, updated.Questions[0].OrderIndex)
	assert.Empty(t, store.responses, "old responses go with the old questions")
}

func TestUpdateSurveyAuthorization(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)
	creator := creatorUser()
	ctx := context.Background()

	survey, err := svc.Create(ctx, creator, sampleInput())
	require.NoError(t, err)

	t.Run("stranger forbidden", func(t *testing.T) {
		_, err := svc.Update(ctx, creatorUser(), survey.ID, sampleInput())
		assert.True(t, IsForbidden(err))
	})

	t.Run("admin allowed", func(t *testing.T) {
		_, err := svc.Update(ctx, adminUser(), survey.ID, sampleInput())
		assert.NoError(t, err)
	})
}

func TestDeleteSurveyCascade(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)
	creator := creatorUser()
	ctx := context.Background()

	survey, err := svc.Create(ctx, creator, sampleInput())
	require.NoError(t, err)
	activate(t, svc, creator, survey.ID)

	_, err = svc.SubmitResponse(ctx, survey.ID, creatorUser(), "", []AnswerInput{
		{QuestionID: survey.Questions[0].ID, AnswerText: "Sushi"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, creator, survey.ID))

	_, err = svc.Get(ctx, survey.ID)
	assert.True(t, IsNotFound(err))
	assert.Empty(t, store.responses)
}

func TestDeleteSurveyForbidden(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)
	ctx := context.Background()

	survey, err := svc.Create(ctx, creatorUser(), sampleInput())
	require.NoError(t, err)

	err = svc.Delete(ctx, creatorUser(), survey.ID)
	assert.True(t, IsForbidden(err))
}

func TestTransition(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)
	creator := creatorUser()
	ctx := context.Background()

	survey, err := svc.Create(ctx, creator, sampleInput())
	require.NoError(t, err)

	activated, err := svc.Transition(ctx, creator, survey.ID, models.SurveyStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.SurveyStatusActive, activated.Status)
	assert.NotNil(t, activated.StartsAt, "activation stamps the start date when unset")

	closed, err := svc.Transition(ctx, creator, survey.ID, models.SurveyStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, models.SurveyStatusClosed, closed.Status)
	assert.NotNil(t, closed.EndsAt, "closing stamps the end date when unset")

	reopened, err := svc.Transition(ctx, creator, survey.ID, models.SurveyStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.SurveyStatusActive, reopened.Status)
}

func TestTransitionRejections(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)
	creator := creatorUser()
	ctx := context.Background()

	survey, err := svc.Create(ctx, creator, sampleInput())
	require.NoError(t, err)

	t.Run("unknown status", func(t *testing.T) {
		_, err := svc.Transition(ctx, creator, survey.ID, models.SurveyStatus("archived"))
		assert.True(t, IsInvalid(err))
	})

	t.Run("self transition conflicts", func(t *testing.T) {
		_, err := svc.Transition(ctx, creator, survey.ID, models.SurveyStatusDraft)
		assert.True(t, IsConflict(err))
	})

	t.Run("back to draft conflicts", func(t *testing.T) {
		activate(t, svc, creator, survey.ID)
		_, err := svc.Transition(ctx, creator, survey.ID, models.SurveyStatusDraft)
		assert.True(t, IsConflict(err))
	})

	t.Run("non-creator forbidden", func(t *testing.T) {
		_, err := svc.Transition(ctx, creatorUser(), survey.ID, models.SurveyStatusClosed)
		assert.True(t, IsForbidden(err))
	})
}

func TestSubmitResponse(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)
	creator := creatorUser()
	ctx := context.Background()

	survey, err := svc.Create(ctx, creator, sampleInput())
	require.NoError(t, err)
	activate(t, svc, creator, survey.ID)

	respondent := creatorUser()
	result, err := svc.SubmitResponse(ctx, survey.ID, respondent, "", []AnswerInput{
		{QuestionID: survey.Questions[0].ID, AnswerText: "Sushi"},
		{QuestionID: survey.Questions[1].ID, AnswerText: "None"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Recorded)
	assert.Equal(t, 1, result.Unmatched, "text answer counts as unmatched")
	require.Len(t, store.responses, 2)

	choice := store.responses[0]
	require.NotNil(t, choice.SelectedOptionID)
	assert.Nil(t, choice.TextResponse)
	require.NotNil(t, choice.UserID)
	assert.Equal(t, respondent.ID, *choice.UserID)

	text := store.responses[1]
	assert.Nil(t, text.SelectedOptionID)
	require.NotNil(t, text.TextResponse)
	assert.Equal(t, "None", *text.TextResponse)
}

func TestSubmitResponseFallback(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)
	creator := creatorUser()
	ctx := context.Background()

	survey, err := svc.Create(ctx, creator, sampleInput())
	require.NoError(t, err)
	activate(t, svc, creator, survey.ID)

	// An answer matching no option is stored as free text, not rejected
	result, err := svc.SubmitResponse(ctx, survey.ID, creatorUser(), "", []AnswerInput{
		{QuestionID: survey.Questions[0].ID, AnswerText: "Thai"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unmatched)

	require.Len(t, store.responses, 1)
	assert.Nil(t, store.responses[0].SelectedOptionID)
	require.NotNil(t, store.responses[0].TextResponse)
	assert.Equal(t, "Thai", *store.responses[0].TextResponse)
}

func TestSubmitResponseRejections(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)
	creator := creatorUser()
	ctx := context.Background()

	survey, err := svc.Create(ctx, creator, sampleInput())
	require.NoError(t, err)

	answers := []AnswerInput{{QuestionID: survey.Questions[0].ID, AnswerText: "Pizza"}}

	t.Run("draft does not accept responses", func(t *testing.T) {
		_, err := svc.SubmitResponse(ctx, survey.ID, creatorUser(), "", answers)
		assert.True(t, IsConflict(err))
	})

	activate(t, svc, creator, survey.ID)

	t.Run("empty answers", func(t *testing.T) {
		_, err := svc.SubmitResponse(ctx, survey.ID, creatorUser(), "", nil)
		assert.True(t, IsInvalid(err))
	})

	t.Run("anonymous without session id", func(t *testing.T) {
		_, err := svc.SubmitResponse(ctx, survey.ID, nil, "", answers)
		assert.True(t, IsInvalid(err))
	})

	t.Run("foreign question", func(t *testing.T) {
		_, err := svc.SubmitResponse(ctx, survey.ID, creatorUser(), "", []AnswerInput{
			{QuestionID: uuid.New(), AnswerText: "Pizza"},
		})
		assert.True(t, IsInvalid(err))
	})

	t.Run("required question unanswered", func(t *testing.T) {
		_, err := svc.SubmitResponse(ctx, survey.ID, creatorUser(), "", []AnswerInput{
			{QuestionID: survey.Questions[1].ID, AnswerText: "None"},
		})
		assert.True(t, IsInvalid(err))
	})

	t.Run("duplicate submission", func(t *testing.T) {
		respondent := creatorUser()
		_, err := svc.SubmitResponse(ctx, survey.ID, respondent, "", answers)
		require.NoError(t, err)
		_, err = svc.SubmitResponse(ctx, survey.ID, respondent, "", answers)
		assert.True(t, IsConflict(err))
	})

	t.Run("duplicate anonymous session", func(t *testing.T) {
		_, err := svc.SubmitResponse(ctx, survey.ID, nil, "session-1", answers)
		require.NoError(t, err)
		_, err = svc.SubmitResponse(ctx, survey.ID, nil, "session-1", answers)
		assert.True(t, IsConflict(err))
	})
}

func TestSubmitResponseMultipleAllowed(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)
	creator := creatorUser()
	ctx := context.Background()

	input := sampleInput()
	input.AllowMultipleResponses = true
	survey, err := svc.Create(ctx, creator, input)
	require.NoError(t, err)
	activate(t, svc, creator, survey.ID)

	respondent := creatorUser()
	answers := []AnswerInput{{QuestionID: survey.Questions[0].ID, AnswerText: "Pizza"}}

	_, err = svc.SubmitResponse(ctx, survey.ID, respondent, "", answers)
	require.NoError(t, err)
	_, err = svc.SubmitResponse(ctx, survey.ID, respondent, "", answers)
	assert.NoError(t, err)
}

func TestSubmitResponseAnonymousSurveyIgnoresUser(t *testing.T) {
	store := newMemSurveyStore()
	svc := NewSurveyService(store)
	creator := creatorUser()
	ctx := context.Background()

	input := sampleInput()
	input.IsAnonymous = true
	survey, err := svc.Create(ctx, creator, input)
	require.NoError(t, err)
	activate(t, svc, creator, survey.ID)

	// Even an authenticated respondent is recorded by session on anonymous surveys
	_, err = svc.SubmitResponse(ctx, survey.ID, creatorUser(), "session-a", []AnswerInput{
		{QuestionID: survey.Questions[0].ID, AnswerText: "Pizza"},
	})
	require.NoError(t, err)

	require.Len(t, store.responses, 1)
	assert.Nil(t, store.responses[0].UserID)
	require.NotNil(t, store.responses[0].SessionID)
	assert.Equal(t, "session-a", *store.responses[0].SessionID)
}
