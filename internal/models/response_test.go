package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func choiceQuestion() *Question {
	q := &Question{
		ID:   uuid.New(),
		Type: QuestionTypeMultipleChoice,
	}
	q.Options = []Option{
		{ID: uuid.New(), QuestionID: q.ID, Text: "Red", OrderIndex: 1},
		{ID: uuid.New(), QuestionID: q.ID, Text: "Blue", OrderIndex: 2},
	}
	return q
}

func TestMatchAnswerExactMatch(t *testing.T) {
	q := choiceQuestion()

	match := MatchAnswer(q, "Blue")
	require.True(t, match.Matched())
	assert.Equal(t, q.Options[1].ID, match.Option.ID)
}

func TestMatchAnswerTrimsWhitespace(t *testing.T) {
	q := choiceQuestion()

	match := MatchAnswer(q, "  Red  ")
	require.True(t, match.Matched())
	assert.Equal(t, q.Options[0].ID, match.Option.ID)
}

func TestMatchAnswerFallsBackToText(t *testing.T) {
	q := choiceQuestion()

	// Unrecognized answers degrade to free text instead of being rejected
	match := MatchAnswer(q, "Turquoise")
	assert.False(t, match.Matched())
	assert.Equal(t, "Turquoise", match.Text)
}

func TestMatchAnswerTextQuestionNeverMatchesOptions(t *testing.T) {
	q := &Question{
		ID:   uuid.New(),
		Type: QuestionTypeTextInput,
		Options: []Option{
			{ID: uuid.New(), Text: "Red", OrderIndex: 1},
		},
	}

	match := MatchAnswer(q, "Red")
	assert.False(t, match.Matched())
	assert.Equal(t, "Red", match.Text)
}

func TestAnswerMatchToResponse(t *testing.T) {
	q := choiceQuestion()
	surveyID := uuid.New()
	userID := uuid.New()
	now := time.Now()

	t.Run("matched answer stores the option", func(t *testing.T) {
		match := MatchAnswer(q, "Red")
		r := match.ToResponse(surveyID, q.ID, &userID, nil, now)

		require.NotNil(t, r.SelectedOptionID)
		assert.Equal(t, q.Options[0].ID, *r.SelectedOptionID)
		assert.Nil(t, r.TextResponse)
		assert.Equal(t, &userID, r.UserID)
		assert.Equal(t, now, r.RespondedAt)
	})

	t.Run("unmatched answer stores the text", func(t *testing.T) {
		session := "abc123"
		match := MatchAnswer(q, "Turquoise")
		r := match.ToResponse(surveyID, q.ID, nil, &session, now)

		assert.Nil(t, r.SelectedOptionID)
		require.NotNil(t, r.TextResponse)
		assert.Equal(t, "Turquoise", *r.TextResponse)
		assert.Nil(t, r.UserID)
		assert.Equal(t, &session, r.SessionID)
	})
}

func TestGenerateSessionID(t *testing.T) {
	surveyID := uuid.New()

	first := GenerateSessionID(surveyID, "203.0.113.9", "curl/8.0")
	second := GenerateSessionID(surveyID, "203.0.113.9", "curl/8.0")
	assert.Equal(t, first, second, "same inputs must be stable")
	assert.Len(t, first, 64)

	otherIP := GenerateSessionID(surveyID, "203.0.113.10", "curl/8.0")
	assert.NotEqual(t, first, otherIP)

	otherSurvey := GenerateSessionID(uuid.New(), "203.0.113.9", "curl/8.0")
	assert.NotEqual(t, first, otherSurvey)
}
