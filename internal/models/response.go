package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Response represents one answer to one question of one survey.
// A nil UserID means the response is anonymous; SessionID is then the
// dedup key for the respondent.
type Response struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	SurveyID         uuid.UUID  `db:"survey_id" json:"surveyId"`
	QuestionID       uuid.UUID  `db:"question_id" json:"questionId"`
	UserID           *uuid.UUID `db:"user_id" json:"userId,omitempty"`
	SelectedOptionID *uuid.UUID `db:"selected_option_id" json:"selectedOptionId,omitempty"`
	TextResponse     *string    `db:"text_response" json:"textResponse,omitempty"`
	SessionID        *string    `db:"session_id" json:"sessionId,omitempty"`
	RespondedAt      time.Time  `db:"responded_at" json:"respondedAt"`
}

// GenerateSessionID creates a SHA256 hash for anonymous respondent
// identification, salted per survey with the client IP and user agent
func GenerateSessionID(surveyID uuid.UUID, ip string, userAgent string) string {
	data := fmt.Sprintf("%s:%s:%s", surveyID.String(), ip, userAgent)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// AnswerMatch is the tagged result of matching a submitted answer against a
// question's options. Exactly one of Option and Text is meaningful: a matched
// answer carries the option, an unmatched one carries the raw text that will
// be stored as a free-text fallback.
type AnswerMatch struct {
	Option *Option
	Text   string
}

// Matched reports whether the answer matched one of the question's options
func (m AnswerMatch) Matched() bool {
	return m.Option != nil
}

// MatchAnswer resolves a submitted answer text against a question's options.
// For multiple-choice questions the answer matches when its trimmed text
// equals an option's text (case-sensitive, as option texts are unique per
// question). An answer that matches no option degrades to a free-text result
// rather than being rejected. Non-choice question types always produce a
// text result.
func MatchAnswer(question *Question, answerText string) AnswerMatch {
	text := strings.TrimSpace(answerText)

	if question.Type == QuestionTypeMultipleChoice || question.Type == QuestionTypeMultipleSelect {
		for i := range question.Options {
			if question.Options[i].Text == text {
				return AnswerMatch{Option: &question.Options[i]}
			}
		}
	}

	return AnswerMatch{Text: text}
}

// Stats represents global statistics about the service
type Stats struct {
	SurveyCount     int `json:"surveyCount"`
	ResponseCount   int `json:"responseCount"`
	UniqueUserCount int `json:"uniqueUserCount"`
}

// ToResponse builds a Response row from a match result
func (m AnswerMatch) ToResponse(surveyID, questionID uuid.UUID, userID *uuid.UUID, sessionID *string, now time.Time) *Response {
	r := &Response{
		ID:          uuid.New(),
		SurveyID:    surveyID,
		QuestionID:  questionID,
		UserID:      userID,
		SessionID:   sessionID,
		RespondedAt: now,
	}
	if m.Option != nil {
		optionID := m.Option.ID
		r.SelectedOptionID = &optionID
	} else if m.Text != "" {
		text := m.Text
		r.TextResponse = &text
	}
	return r
}
