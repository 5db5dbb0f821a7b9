package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surveyforge/surveyforge/internal/models"
)

// SurveyStore is the storage surface the survey service needs
type SurveyStore interface {
	CreateSurvey(ctx context.Context, s *models.Survey) error
	GetSurveyByID(ctx context.Context, id uuid.UUID) (*models.Survey, error)
	GetSurveyWithQuestions(ctx context.Context, id uuid.UUID) (*models.Survey, error)
	ListSurveys(ctx context.Context, limit, offset int) ([]*models.Survey, error)
	UpdateSurveyMetadata(ctx context.Context, s *models.Survey) error
	ReplaceQuestionSet(ctx context.Context, surveyID uuid.UUID, questions []models.Question) error
	SetSurveyStatus(ctx context.Context, id uuid.UUID, status models.SurveyStatus, startsAt, endsAt *time.Time) error
	DeleteSurveyCascade(ctx context.Context, id uuid.UUID) error
	CreateResponses(ctx context.Context, responses []*models.Response) error
	HasResponded(ctx context.Context, surveyID uuid.UUID, userID *uuid.UUID, sessionID *string) (bool, error)
	CompletedSurveyIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
}

// SurveyService orchestrates survey lifecycle, question management and
// response recording
type SurveyService struct {
	store SurveyStore
	now   func() time.Time
}

// NewSurveyService creates a SurveyService
func NewSurveyService(store SurveyStore) *SurveyService {
	return &SurveyService{
		store: store,
		now:   time.Now,
	}
}

// SurveyInput is the payload for creating or updating a survey
type SurveyInput struct {
	Title                  string
	Description            string
	StartsAt               *time.Time
	EndsAt                 *time.Time
	IsAnonymous            bool
	AllowMultipleResponses bool
	Questions              []QuestionInput
}

// QuestionInput is one question in a survey payload
type QuestionInput struct {
	Text       string
	Type       models.QuestionType
	IsRequired bool
	Options    []string
}

// toDefinition converts the input to the definition form for validation.
// Validation sanitizes text in place; the sanitized values are copied back.
func (in *SurveyInput) validate() error {
	def := models.SurveyDefinition{
		Title:       in.Title,
		Description: in.Description,
		Questions:   make([]models.QuestionDefinition, len(in.Questions)),
	}
	for i, q := range in.Questions {
		def.Questions[i] = models.QuestionDefinition{
			Text:     q.Text,
			Type:     string(q.Type),
			Required: q.IsRequired,
			Options:  append([]string(nil), q.Options...),
		}
	}

	if err := def.Validate(); err != nil {
		return NewInvalidError(err.Error())
	}

	if in.StartsAt != nil && in.EndsAt != nil && in.EndsAt.Before(*in.StartsAt) {
		return NewInvalidError("end date must not precede start date")
	}

	in.Title = def.Title
	for i := range in.Questions {
		in.Questions[i].Text = def.Questions[i].Text
		in.Questions[i].Options = def.Questions[i].Options
	}
	return nil
}

// buildQuestions materializes question and option rows with fresh contiguous
// 1-based ordering
func buildQuestions(surveyID uuid.UUID, inputs []QuestionInput) []models.Question {
	questions := make([]models.Question, len(inputs))
	for i, in := range inputs {
		question := models.Question{
			ID:         uuid.New(),
			SurveyID:   surveyID,
			Text:       in.Text,
			Type:       in.Type,
			IsRequired: in.IsRequired,
		}
		question.Options = make([]models.Option, len(in.Options))
		for j, text := range in.Options {
			question.Options[j] = models.Option{
				ID:         uuid.New(),
				QuestionID: question.ID,
				Text:       text,
			}
		}
		models.ReindexOptions(question.Options)
		questions[i] = question
	}
	models.ReindexQuestions(questions)
	return questions
}

// Create creates a survey in draft state for the given creator
func (s *SurveyService) Create(ctx context.Context, creator *models.User, input SurveyInput) (*models.Survey, error) {
	if creator == nil {
		return nil, NewUnauthorizedError("survey creator is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	creatorID := creator.ID
	survey := &models.Survey{
		ID:                     uuid.New(),
		Title:                  input.Title,
		Status:                 models.SurveyStatusDraft,
		CreatorID:              &creatorID,
		StartsAt:               input.StartsAt,
		EndsAt:                 input.EndsAt,
		IsAnonymous:            input.IsAnonymous,
		AllowMultipleResponses: input.AllowMultipleResponses,
		IsActive:               true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if input.Description != "" {
		desc := models.SanitizeText(input.Description)
		survey.Description = &desc
	}
	survey.Questions = buildQuestions(survey.ID, input.Questions)

	if err := s.store.CreateSurvey(ctx, survey); err != nil {
		return nil, fmt.Errorf("failed to create survey: %w", err)
	}

	return survey, nil
}

// Import creates a survey from a JSON or YAML definition document
func (s *SurveyService) Import(ctx context.Context, creator *models.User, data []byte) (*models.Survey, error) {
	def, err := models.ParseSurveyDefinition(data)
	if err != nil {
		return nil, NewInvalidError(err.Error())
	}

	input := SurveyInput{
		Title:                  def.Title,
		Description:            def.Description,
		IsAnonymous:            def.IsAnonymous,
		AllowMultipleResponses: def.AllowMultipleResponses,
		Questions:              make([]QuestionInput, len(def.Questions)),
	}
	for i, q := range def.Questions {
		input.Questions[i] = QuestionInput{
			Text:       q.Text,
			Type:       models.QuestionType(q.Type),
			IsRequired: q.Required,
			Options:    q.Options,
		}
	}

	return s.Create(ctx, creator, input)
}

// Get retrieves a survey with its ordered questions and options
func (s *SurveyService) Get(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	survey, err := s.store.GetSurveyWithQuestions(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewNotFoundError("survey not found")
		}
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	return survey, nil
}

// SurveyListItem is one entry in a survey listing, with the per-user
// completion flag when the caller is authenticated
type SurveyListItem struct {
	Survey    *models.Survey
	Completed bool
}

// List returns surveys that are not soft-deleted, newest first. When user is
// non-nil each item carries whether that user already responded.
func (s *SurveyService) List(ctx context.Context, limit, offset int, user *models.User) ([]SurveyListItem, error) {
	surveys, err := s.store.ListSurveys(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}

	var completed map[uuid.UUID]bool
	if user != nil {
		completed, err = s.store.CompletedSurveyIDs(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load completion flags: %w", err)
		}
	}

	items := make([]SurveyListItem, len(surveys))
	for i, survey := range surveys {
		items[i] = SurveyListItem{
			Survey:    survey,
			Completed: completed[survey.ID],
		}
	}

	return items, nil
}

// canModify reports whether the actor may mutate the survey: its creator or
// an admin
func canModify(actor *models.User, survey *models.Survey) bool {
	if actor == nil {
		return false
	}
	if actor.Role == models.RoleAdmin {
		return true
	}
	return survey.CreatorID != nil && *survey.CreatorID == actor.ID
}

// Update replaces a survey's metadata and entire question set. Existing
// responses are removed with the old questions; the new set gets fresh
// 1-based ordering.
func (s *SurveyService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input SurveyInput) (*models.Survey, error) {
	survey, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, survey) {
		return nil, NewForbiddenError("only the survey creator may modify it")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	survey.Title = input.Title
	survey.Description = nil
	if input.Description != "" {
		desc := models.SanitizeText(input.Description)
		survey.Description = &desc
	}
	survey.StartsAt = input.StartsAt
	survey.EndsAt = input.EndsAt
	survey.IsAnonymous = input.IsAnonymous
	survey.AllowMultipleResponses = input.AllowMultipleResponses

	if err := s.store.UpdateSurveyMetadata(ctx, survey); err != nil {
		return nil, fmt.Errorf("failed to update survey: %w", err)
	}

	survey.Questions = buildQuestions(survey.ID, input.Questions)
	if err := s.store.ReplaceQuestionSet(ctx, survey.ID, survey.Questions); err != nil {
		return nil, fmt.Errorf("failed to replace question set: %w", err)
	}

	return survey, nil
}

// Delete hard-deletes a survey and everything referencing it in one
// transaction (responses, then options, then questions, then the survey)
func (s *SurveyService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	survey, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(actor, survey) {
		return NewForbiddenError("only the survey creator may delete it")
	}

	if err := s.store.DeleteSurveyCascade(ctx, id); err != nil {
		return fmt.Errorf("failed to delete survey: %w", err)
	}

	return nil
}

// Transition moves a survey to a target lifecycle status. Invalid
// transitions are conflicts. Activating sets the start date to now when
// unset; closing sets the end date to now when unset.
func (s *SurveyService) Transition(ctx context.Context, actor *models.User, id uuid.UUID, target models.SurveyStatus) (*models.Survey, error) {
	if !target.Valid() {
		return nil, NewInvalidError(fmt.Sprintf("unknown survey status '%s'", target))
	}

	survey, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, survey) {
		return nil, NewForbiddenError("only the survey creator may change its status")
	}

	if !survey.Status.CanTransitionTo(target) {
		return nil, NewConflictError(fmt.Sprintf("cannot transition survey from %s to %s", survey.Status, target))
	}

	now := s.now()
	var startsAt, endsAt *time.Time
	if target == models.SurveyStatusActive && survey.StartsAt == nil {
		startsAt = &now
	}
	if target == models.SurveyStatusClosed && survey.EndsAt == nil {
		endsAt = &now
	}

	if err := s.store.SetSurveyStatus(ctx, id, target, startsAt, endsAt); err != nil {
		return nil, fmt.Errorf("failed to set survey status: %w", err)
	}

	survey.Status = target
	if startsAt != nil {
		survey.StartsAt = startsAt
	}
	if endsAt != nil {
		survey.EndsAt = endsAt
	}

	return survey, nil
}

// AnswerInput is one submitted answer: the question it targets and the
// answer text as entered or selected by the respondent
type AnswerInput struct {
	QuestionID uuid.UUID
	AnswerText string
}

// SubmitResult reports the outcome of a response submission
type SubmitResult struct {
	SurveyID  uuid.UUID
	Recorded  int
	Unmatched int // answers stored via the free-text fallback
}

// SubmitResponse records one or more question answers for a survey. The
// survey must currently accept responses. Repeat submissions are rejected
// unless the survey allows multiple responses; authenticated respondents are
// keyed by user ID, anonymous ones by session ID. Answers that match no
// option are stored as free text, not rejected.
func (s *SurveyService) SubmitResponse(ctx context.Context, surveyID uuid.UUID, user *models.User, sessionID string, answers []AnswerInput) (*SubmitResult, error) {
	if len(answers) == 0 {
		return nil, NewInvalidError("at least one answer is required")
	}

	survey, err := s.Get(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !survey.AcceptsResponses(now) {
		return nil, NewConflictError("survey is not accepting responses")
	}

	var userID *uuid.UUID
	var session *string
	if user != nil && !survey.IsAnonymous {
		id := user.ID
		userID = &id
	} else {
		if sessionID == "" {
			return nil, NewInvalidError("session id is required for anonymous responses")
		}
		session = &sessionID
	}

	if !survey.AllowMultipleResponses {
		responded, err := s.store.HasResponded(ctx, surveyID, userID, session)
		if err != nil {
			return nil, fmt.Errorf("failed to check for existing response: %w", err)
		}
		if responded {
			return nil, NewConflictError("a response has already been submitted for this survey")
		}
	}

	questions := make(map[uuid.UUID]*models.Question, len(survey.Questions))
	for i := range survey.Questions {
		questions[survey.Questions[i].ID] = &survey.Questions[i]
	}

	answered := make(map[uuid.UUID]bool, len(answers))
	responses := make([]*models.Response, 0, len(answers))
	unmatched := 0
	for _, answer := range answers {
		question, ok := questions[answer.QuestionID]
		if !ok {
			return nil, NewInvalidError(fmt.Sprintf("question %s does not belong to this survey", answer.QuestionID))
		}
		if len(answer.AnswerText) > models.MaxTextAnswerLength {
			return nil, NewInvalidError(fmt.Sprintf("answer for question %s exceeds maximum length", answer.QuestionID))
		}

		match := models.MatchAnswer(question, answer.AnswerText)
		if !match.Matched() {
			unmatched++
		}
		answered[question.ID] = true
		responses = append(responses, match.ToResponse(surveyID, question.ID, userID, session, now))
	}

	for i := range survey.Questions {
		q := &survey.Questions[i]
		if q.IsRequired && !answered[q.ID] {
			return nil, NewInvalidError(fmt.Sprintf("required question '%s' is not answered", q.Text))
		}
	}

	if err := s.store.CreateResponses(ctx, responses); err != nil {
		return nil, fmt.Errorf("failed to record responses: %w", err)
	}

	return &SubmitResult{
		SurveyID:  surveyID,
		Recorded:  len(responses),
		Unmatched: unmatched,
	}, nil
}
