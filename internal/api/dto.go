package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/surveyforge/surveyforge/internal/models"
	"github.com/surveyforge/surveyforge/internal/service"
)

// RegisterRequest is the request body for user registration
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is a user in API responses; the password hash never leaves
// the server
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResponse carries a token plus the authenticated user's profile
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expiresIn"` // seconds
	User      UserResponse `json:"user"`
}

// CreateSurveyRequest is the request body for creating or updating a survey
// with its nested question/option set
type CreateSurveyRequest struct {
	Title                  string            `json:"title"`
	Description            string            `json:"description,omitempty"`
	StartsAt               *time.Time        `json:"startsAt,omitempty"`
	EndsAt                 *time.Time        `json:"endsAt,omitempty"`
	IsAnonymous            bool              `json:"isAnonymous"`
	AllowMultipleResponses bool              `json:"allowMultipleResponses"`
	Questions              []QuestionRequest `json:"questions"`
}

// QuestionRequest is one question in a survey payload
type QuestionRequest struct {
	Text       string   `json:"text"`
	Type       string   `json:"type"`
	IsRequired bool     `json:"isRequired"`
	Options    []string `json:"options,omitempty"`
}

// ImportSurveyRequest carries a survey definition document (JSON or YAML)
type ImportSurveyRequest struct {
	Definition string `json:"definition"`
}

// TransitionRequest is the request body for a status change
type TransitionRequest struct {
	Status string `json:"status"`
}

// OptionResponse is an option in API responses, with its derived label
type OptionResponse struct {
	ID         uuid.UUID `json:"id"`
	Text       string    `json:"text"`
	Label      string    `json:"label"`
	OrderIndex int       `json:"orderIndex"`
}

// QuestionResponse is a question in API responses
type QuestionResponse struct {
	ID         uuid.UUID        `json:"id"`
	Text       string           `json:"text"`
	Type       string           `json:"type"`
	OrderIndex int              `json:"orderIndex"`
	IsRequired bool             `json:"isRequired"`
	Options    []OptionResponse `json:"options,omitempty"`
}

// SurveyResponse is a survey in API responses
type SurveyResponse struct {
	ID                     uuid.UUID          `json:"id"`
	Title                  string             `json:"title"`
	Description            *string            `json:"description,omitempty"`
	Status                 string             `json:"status"`
	CreatorID              *uuid.UUID         `json:"creatorId,omitempty"`
	StartsAt               *time.Time         `json:"startsAt,omitempty"`
	EndsAt                 *time.Time         `json:"endsAt,omitempty"`
	IsAnonymous            bool               `json:"isAnonymous"`
	AllowMultipleResponses bool               `json:"allowMultipleResponses"`
	Questions              []QuestionResponse `json:"questions,omitempty"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

// SurveyListItemResponse is a survey in list responses (no question set),
// with the per-user completion flag
type SurveyListItemResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      string     `json:"status"`
	StartsAt    *time.Time `json:"startsAt,omitempty"`
	EndsAt      *time.Time `json:"endsAt,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// SubmitResponseRequest is the request body for submitting answers
type SubmitResponseRequest struct {
	SessionID string          `json:"sessionId,omitempty"`
	Answers   []AnswerRequest `json:"answers"`
}

// AnswerRequest is one submitted answer
type AnswerRequest struct {
	QuestionID uuid.UUID `json:"questionId"`
	AnswerText string    `json:"answerText"`
}

// SubmitResponseResponse reports what a submission recorded
type SubmitResponseResponse struct {
	SurveyID  uuid.UUID `json:"surveyId"`
	Recorded  int       `json:"recorded"`
	Unmatched int       `json:"unmatched"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ToUserResponse converts a models.User to a UserResponse
func ToUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

// ToSurveyResponse converts a models.Survey to a SurveyResponse
func ToSurveyResponse(s *models.Survey, includeQuestions bool) *SurveyResponse {
	resp := &SurveyResponse{
		ID:                     s.ID,
		Title:                  s.Title,
		Description:            s.Description,
		Status:                 string(s.Status),
		CreatorID:              s.CreatorID,
		StartsAt:               s.StartsAt,
		EndsAt:                 s.EndsAt,
		IsAnonymous:            s.IsAnonymous,
		AllowMultipleResponses: s.AllowMultipleResponses,
		CreatedAt:              s.CreatedAt,
		UpdatedAt:              s.UpdatedAt,
	}

	if includeQuestions {
		resp.Questions = make([]QuestionResponse, len(s.Questions))
		for i, q := range s.Questions {
			qr := QuestionResponse{
				ID:         q.ID,
				Text:       q.Text,
				Type:       string(q.Type),
				OrderIndex: q.OrderIndex,
				IsRequired: q.IsRequired,
			}
			for _, o := range q.Options {
				qr.Options = append(qr.Options, OptionResponse{
					ID:         o.ID,
					Text:       o.Text,
					Label:      o.Label(),
					OrderIndex: o.OrderIndex,
				})
			}
			resp.Questions[i] = qr
		}
	}

	return resp
}

// ToSurveyListItemResponse converts a listing item to its API shape
func ToSurveyListItemResponse(item service.SurveyListItem) SurveyListItemResponse {
	s := item.Survey
	return SurveyListItemResponse{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Status:      string(s.Status),
		StartsAt:    s.StartsAt,
		EndsAt:      s.EndsAt,
		Completed:   item.Completed,
		CreatedAt:   s.CreatedAt,
	}
}

// toSurveyInput converts the request payload to the service input
func (r CreateSurveyRequest) toSurveyInput() service.SurveyInput {
	input := service.SurveyInput{
		Title:                  r.Title,
		Description:            r.Description,
		StartsAt:               r.StartsAt,
		EndsAt:                 r.EndsAt,
		IsAnonymous:            r.IsAnonymous,
		AllowMultipleResponses: r.AllowMultipleResponses,
		Questions:              make([]service.QuestionInput, len(r.Questions)),
	}
	for i, q := range r.Questions {
		input.Questions[i] = service.QuestionInput{
			Text:       q.Text,
			Type:       models.QuestionType(q.Type),
			IsRequired: q.IsRequired,
			Options:    q.Options,
		}
	}
	return input
}
