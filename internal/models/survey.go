package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SurveyStatus represents the lifecycle state of a survey
type SurveyStatus string

const (
	SurveyStatusDraft  SurveyStatus = "draft"
	SurveyStatusActive SurveyStatus = "active"
	SurveyStatusClosed SurveyStatus = "closed"
)

// allowedTransitions is the full lifecycle table:
// draft may activate or close, active may close, closed may reopen.
var allowedTransitions = map[SurveyStatus][]SurveyStatus{
	SurveyStatusDraft:  {SurveyStatusActive, SurveyStatusClosed},
	SurveyStatusActive: {SurveyStatusClosed},
	SurveyStatusClosed: {SurveyStatusActive},
}

// Valid reports whether the status is one of the known lifecycle states
func (s SurveyStatus) Valid() bool {
	switch s {
	case SurveyStatusDraft, SurveyStatusActive, SurveyStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle table allows moving to target.
// Self-transitions are never allowed.
func (s SurveyStatus) CanTransitionTo(target SurveyStatus) bool {
	for _, t := range allowedTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// QuestionType represents the type of question
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeMultipleSelect QuestionType = "multiple_select"
	QuestionTypeTextInput      QuestionType = "text_input"
	QuestionTypeNumericInput   QuestionType = "numeric_input"
	QuestionTypeRatingScale    QuestionType = "rating_scale"
)

// Valid reports whether the question type is one of the defined types
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeMultipleSelect,
		QuestionTypeTextInput, QuestionTypeNumericInput, QuestionTypeRatingScale:
		return true
	}
	return false
}

// Survey represents a survey stored in the database
type Survey struct {
	ID                     uuid.UUID    `db:"id" json:"id"`
	Title                  string       `db:"title" json:"title"`
	Description            *string      `db:"description" json:"description,omitempty"`
	Status                 SurveyStatus `db:"status" json:"status"`
	CreatorID              *uuid.UUID   `db:"creator_id" json:"creatorId,omitempty"`
	StartsAt               *time.Time   `db:"starts_at" json:"startsAt,omitempty"`
	EndsAt                 *time.Time   `db:"ends_at" json:"endsAt,omitempty"`
	IsAnonymous            bool         `db:"is_anonymous" json:"isAnonymous"`
	AllowMultipleResponses bool         `db:"allow_multiple_responses" json:"allowMultipleResponses"`
	IsActive               bool         `db:"is_active" json:"isActive"`
	Questions              []Question   `json:"questions,omitempty"`
	CreatedAt              time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time    `db:"updated_at" json:"updatedAt"`
}

// AcceptsResponses reports whether the survey takes new responses at the given
// time: status must be active and now must fall within [StartsAt, EndsAt].
// A nil bound is open-ended.
func (s *Survey) AcceptsResponses(now time.Time) bool {
	if s.Status != SurveyStatusActive {
		return false
	}
	if s.StartsAt != nil && now.Before(*s.StartsAt) {
		return false
	}
	if s.EndsAt != nil && now.After(*s.EndsAt) {
		return false
	}
	return true
}

// Question represents one survey item
type Question struct {
	ID         uuid.UUID    `db:"id" json:"id"`
	SurveyID   uuid.UUID    `db:"survey_id" json:"surveyId"`
	Text       string       `db:"text" json:"text"`
	Type       QuestionType `db:"type" json:"type"`
	OrderIndex int          `db:"order_index" json:"orderIndex"`
	IsRequired bool         `db:"is_required" json:"isRequired"`
	Options    []Option     `json:"options,omitempty"`
}

// Option represents one selectable answer for a question
type Option struct {
	ID         uuid.UUID `db:"id" json:"id"`
	QuestionID uuid.UUID `db:"question_id" json:"questionId"`
	Text       string    `db:"text" json:"text"`
	OrderIndex int       `db:"order_index" json:"orderIndex"`
}

// Label returns the derived alphabetic label for the option's order index
func (o Option) Label() string {
	return OptionLabel(o.OrderIndex)
}

// OptionLabel derives the alphabetic label for a 1-based order index:
// 1 => "A", 26 => "Z", 27 => "AA", 28 => "AB", and so on.
func OptionLabel(orderIndex int) string {
	if orderIndex < 1 {
		return ""
	}
	var b []byte
	n := orderIndex
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// ReindexOptions rewrites the order indexes of the given options to a
// contiguous 1..N sequence, preserving the current relative order
func ReindexOptions(options []Option) {
	for i := range options {
		options[i].OrderIndex = i + 1
	}
}

// ReindexQuestions rewrites the order indexes of the given questions to a
// contiguous 1..N sequence, preserving the current relative order
func ReindexQuestions(questions []Question) {
	for i := range questions {
		questions[i].OrderIndex = i + 1
	}
}

// Validation limits for survey content
const (
	MaxDefinitionSize     = 100 * 1024 // 100KB
	MaxQuestions          = 50
	MaxOptionsPerQuestion = 100
	MaxTitleLength        = 200
	MaxQuestionTextLength = 1000
	MaxOptionTextLength   = 500
	MaxTextAnswerLength   = 5000
)

// Matches dangerous HTML tags (script, iframe, object, embed, link, style, img)
var dangerousTagsRegex = regexp.MustCompile(`(?i)<\s*(script|iframe|object|embed|link|style|img)(\s+[^>]*)?>(.*?)</\s*(script|iframe|object|embed|link|style|img)\s*>|<\s*(script|iframe|object|embed|link|style|img)(\s+[^>]*)?>`)

// SanitizeText removes dangerous HTML tags and control characters from user
// input. Newlines, tabs and carriage returns survive; other control characters
// and null bytes do not. Leading/trailing whitespace is trimmed.
func SanitizeText(input string) string {
	sanitized := dangerousTagsRegex.ReplaceAllString(input, "")

	sanitized = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		return -1
	}, sanitized)

	return strings.TrimSpace(sanitized)
}

// SurveyDefinition is the import document format for a survey, accepted as
// JSON or YAML. It mirrors the nested create payload but is meant for
// hand-written documents.
type SurveyDefinition struct {
	Title                  string               `json:"title" yaml:"title"`
	Description            string               `json:"description,omitempty" yaml:"description,omitempty"`
	IsAnonymous            bool                 `json:"anonymous" yaml:"anonymous"`
	AllowMultipleResponses bool                 `json:"allowMultipleResponses" yaml:"allowMultipleResponses"`
	Questions              []QuestionDefinition `json:"questions" yaml:"questions"`
}

// QuestionDefinition is one question in an import document
type QuestionDefinition struct {
	Text     string   `json:"text" yaml:"text"`
	Type     string   `json:"type" yaml:"type"`
	Required bool     `json:"required" yaml:"required"`
	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// ParseSurveyDefinition parses a survey definition from JSON or YAML
func ParseSurveyDefinition(data []byte) (*SurveyDefinition, error) {
	if len(data) > MaxDefinitionSize {
		return nil, fmt.Errorf("survey definition too large: %d bytes exceeds maximum of 100KB", len(data))
	}

	var def SurveyDefinition

	// Try JSON first
	if err := json.Unmarshal(data, &def); err == nil {
		return &def, nil
	}

	// Try YAML with strict unmarshaling
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
	}

	return &def, nil
}

// Validate checks the definition and sanitizes its text fields in place
func (d *SurveyDefinition) Validate() error {
	d.Title = SanitizeText(d.Title)
	if d.Title == "" {
		return errors.New("survey title is required")
	}
	if len(d.Title) > MaxTitleLength {
		return fmt.Errorf("survey title too long: %d characters exceeds maximum of %d", len(d.Title), MaxTitleLength)
	}

	if len(d.Questions) == 0 {
		return errors.New("survey must have at least one question")
	}
	if len(d.Questions) > MaxQuestions {
		return fmt.Errorf("too many questions: %d exceeds maximum of %d", len(d.Questions), MaxQuestions)
	}

	for i, q := range d.Questions {
		d.Questions[i].Text = SanitizeText(q.Text)
		if d.Questions[i].Text == "" {
			return fmt.Errorf("question %d: question text is required", i)
		}
		if len(d.Questions[i].Text) > MaxQuestionTextLength {
			return fmt.Errorf("question %d: question text too long: %d characters exceeds maximum of %d", i, len(d.Questions[i].Text), MaxQuestionTextLength)
		}

		qt := QuestionType(q.Type)
		if !qt.Valid() {
			return fmt.Errorf("question %d: invalid question type '%s'", i, q.Type)
		}

		if qt == QuestionTypeMultipleChoice || qt == QuestionTypeMultipleSelect {
			if len(q.Options) < 2 {
				return fmt.Errorf("question %d: choice questions must have at least 2 options", i)
			}
			if len(q.Options) > MaxOptionsPerQuestion {
				return fmt.Errorf("question %d: too many options: %d exceeds maximum of %d", i, len(q.Options), MaxOptionsPerQuestion)
			}
			seen := make(map[string]bool)
			for j, opt := range q.Options {
				d.Questions[i].Options[j] = SanitizeText(opt)
				text := d.Questions[i].Options[j]
				if text == "" {
					return fmt.Errorf("question %d, option %d: option text is required", i, j)
				}
				if len(text) > MaxOptionTextLength {
					return fmt.Errorf("question %d, option %d: option text too long: %d characters exceeds maximum of %d", i, j, len(text), MaxOptionTextLength)
				}
				if seen[text] {
					return fmt.Errorf("question %d: duplicate option text '%s'", i, text)
				}
				seen[text] = true
			}
		}
	}

	return nil
}
