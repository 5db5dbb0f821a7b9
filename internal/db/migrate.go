package db

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order at startup. Statements are idempotent so a
// restart against an existing schema is a no-op.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS surveys (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL DEFAULT 'draft',
		creator_id UUID REFERENCES users(id),
		starts_at TIMESTAMPTZ,
		ends_at TIMESTAMPTZ,
		is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
		allow_multiple_responses BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id UUID PRIMARY KEY,
		survey_id UUID NOT NULL REFERENCES surveys(id),
		text TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'multiple_choice',
		order_index INTEGER NOT NULL,
		is_required BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS options (
		id UUID PRIMARY KEY,
		question_id UUID NOT NULL REFERENCES questions(id),
		text TEXT NOT NULL,
		order_index INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS responses (
		id UUID PRIMARY KEY,
		survey_id UUID NOT NULL REFERENCES surveys(id),
		question_id UUID NOT NULL REFERENCES questions(id),
		user_id UUID REFERENCES users(id),
		selected_option_id UUID REFERENCES options(id),
		text_response TEXT,
		session_id TEXT,
		responded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_surveys_status ON surveys(status)`,
	`CREATE INDEX IF NOT EXISTS idx_surveys_creator ON surveys(creator_id)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_survey ON questions(survey_id)`,
	`CREATE INDEX IF NOT EXISTS idx_options_question ON options(question_id)`,
	`CREATE INDEX IF NOT EXISTS idx_responses_survey ON responses(survey_id)`,
	`CREATE INDEX IF NOT EXISTS idx_responses_question ON responses(question_id)`,
	`CREATE INDEX IF NOT EXISTS idx_responses_option ON responses(selected_option_id)`,
}

// Migrate applies the schema migrations
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
