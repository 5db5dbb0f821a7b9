package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surveyforge/surveyforge/internal/models"
)

// Querier interface represents a database connection or transaction
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// TxBeginner is implemented by *sql.DB but not *sql.Tx
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Queries provides database query methods
type Queries struct {
	db Querier
}

// NewQueries creates a new Queries instance
func NewQueries(db Querier) *Queries {
	return &Queries{db: db}
}

// WithTx runs fn with a Queries bound to a single transaction. The
// transaction is rolled back if fn returns an error or panics, committed
// otherwise. It fails when the underlying Querier cannot begin transactions
// (i.e. it already is one).
func (q *Queries) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	beginner, ok := q.db.(TxBeginner)
	if !ok {
		return errors.New("queries instance cannot begin a transaction")
	}

	tx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(NewQueries(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// User Queries

// CreateUser inserts a new user into the database
func (q *Queries) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, first_name, last_name, email, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := q.db.ExecContext(
		ctx,
		query,
		u.ID,
		u.FirstName,
		u.LastName,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.IsActive,
		u.CreatedAt,
		u.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

const userColumns = `id, first_name, last_name, email, password_hash, role, is_active, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email, including deactivated accounts.
// Callers decide how a deactivated account is treated.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(q.db.QueryRowContext(ctx, query, email))
}

// GetUserByID retrieves a user by ID, including deactivated accounts
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(q.db.QueryRowContext(ctx, query, id))
}

// EmailExists checks whether a user with the given email exists
func (q *Queries) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	err := q.db.QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

// DeactivateUser soft-deletes a user
func (q *Queries) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`

	result, err := q.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// CountActiveUsers counts registered users that are not soft-deleted
func (q *Queries) CountActiveUsers(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE is_active`

	var count int
	err := q.db.QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	return count, nil
}

// Survey Queries

// CreateSurvey inserts a survey row together with its questions and options
// in a single transaction
func (q *Queries) CreateSurvey(ctx context.Context, s *models.Survey) error {
	return q.WithTx(ctx, func(tx *Queries) error {
		if err := tx.insertSurveyRow(ctx, s); err != nil {
			return err
		}
		return tx.insertQuestionSet(ctx, s.ID, s.Questions)
	})
}

func (q *Queries) insertSurveyRow(ctx context.Context, s *models.Survey) error {
	query := `
		INSERT INTO surveys (id, title, description, status, creator_id, starts_at, ends_at, is_anonymous, allow_multiple_responses, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := q.db.ExecContext(
		ctx,
		query,
		s.ID,
		s.Title,
		s.Description,
		s.Status,
		s.CreatorID,
		s.StartsAt,
		s.EndsAt,
		s.IsAnonymous,
		s.AllowMultipleResponses,
		s.IsActive,
		s.CreatedAt,
		s.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert survey: %w", err)
	}

	return nil
}

func (q *Queries) insertQuestionSet(ctx context.Context, surveyID uuid.UUID, questions []models.Question) error {
	for _, question := range questions {
		query := `
			INSERT INTO questions (id, survey_id, text, type, order_index, is_required)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err := q.db.ExecContext(ctx, query, question.ID, surveyID, question.Text, question.Type, question.OrderIndex, question.IsRequired)
		if err != nil {
			return fmt.Errorf("failed to insert question: %w", err)
		}

		for _, option := range question.Options {
			query := `
				INSERT INTO options (id, question_id, text, order_index)
				VALUES ($1, $2, $3, $4)
			`
			_, err := q.db.ExecContext(ctx, query, option.ID, question.ID, option.Text, option.OrderIndex)
			if err != nil {
				return fmt.Errorf("failed to insert option: %w", err)
			}
		}
	}
	return nil
}

const surveyColumns = `id, title, description, status, creator_id, starts_at, ends_at, is_anonymous, allow_multiple_responses, is_active, created_at, updated_at`

func scanSurvey(scan func(dest ...interface{}) error) (*models.Survey, error) {
	survey := &models.Survey{}
	err := scan(
		&survey.ID,
		&survey.Title,
		&survey.Description,
		&survey.Status,
		&survey.CreatorID,
		&survey.StartsAt,
		&survey.EndsAt,
		&survey.IsAnonymous,
		&survey.AllowMultipleResponses,
		&survey.IsActive,
		&survey.CreatedAt,
		&survey.UpdatedAt,
	)
	return survey, err
}

// GetSurveyByID retrieves a survey by ID. Soft-deleted surveys are not
// returned.
func (q *Queries) GetSurveyByID(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	query := `SELECT ` + surveyColumns + ` FROM surveys WHERE id = $1 AND is_active`

	survey, err := scanSurvey(q.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("survey not found: %w", err)
		}
		return nil, fmt.Errorf("failed to query survey: %w", err)
	}

	return survey, nil
}

// GetSurveyWithQuestions retrieves a survey with its questions and options,
// ordered by their 1-based order indexes
func (q *Queries) GetSurveyWithQuestions(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	survey, err := q.GetSurveyByID(ctx, id)
	if err != nil {
		return nil, err
	}

	questions, err := q.GetSurveyQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	survey.Questions = questions

	return survey, nil
}

// GetSurveyQuestions retrieves the ordered question set of a survey,
// each question carrying its ordered options
func (q *Queries) GetSurveyQuestions(ctx context.Context, surveyID uuid.UUID) ([]models.Question, error) {
	query := `
		SELECT id, survey_id, text, type, order_index, is_required
		FROM questions
		WHERE survey_id = $1
		ORDER BY order_index ASC
	`

	rows, err := q.db.QueryContext(ctx, query, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var question models.Question
		if err := rows.Scan(&question.ID, &question.SurveyID, &question.Text, &question.Type, &question.OrderIndex, &question.IsRequired); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	for i := range questions {
		options, err := q.getQuestionOptions(ctx, questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].Options = options
	}

	return questions, nil
}

func (q *Queries) getQuestionOptions(ctx context.Context, questionID uuid.UUID) ([]models.Option, error) {
	query := `
		SELECT id, question_id, text, order_index
		FROM options
		WHERE question_id = $1
		ORDER BY order_index ASC
	`

	rows, err := q.db.QueryContext(ctx, query, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	var options []models.Option
	for rows.Next() {
		var option models.Option
		if err := rows.Scan(&option.ID, &option.QuestionID, &option.Text, &option.OrderIndex); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, option)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}

	return options, nil
}

// ListSurveys retrieves surveys that are not soft-deleted, newest first
func (q *Queries) ListSurveys(ctx context.Context, limit, offset int) ([]*models.Survey, error) {
	query := `
		SELECT ` + surveyColumns + `
		FROM surveys
		WHERE is_active
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := q.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query surveys: %w", err)
	}
	defer rows.Close()

	var surveys []*models.Survey
	for rows.Next() {
		survey, err := scanSurvey(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan survey: %w", err)
		}
		surveys = append(surveys, survey)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating surveys: %w", err)
	}

	return surveys, nil
}

// UpdateSurveyMetadata updates a survey's mutable fields and sets updated_at
func (q *Queries) UpdateSurveyMetadata(ctx context.Context, s *models.Survey) error {
	query := `
		UPDATE surveys
		SET title = $2, description = $3, starts_at = $4, ends_at = $5,
		    is_anonymous = $6, allow_multiple_responses = $7, updated_at = NOW()
		WHERE id = $1 AND is_active
	`

	result, err := q.db.ExecContext(
		ctx,
		query,
		s.ID,
		s.Title,
		s.Description,
		s.StartsAt,
		s.EndsAt,
		s.IsAnonymous,
		s.AllowMultipleResponses,
	)

	if err != nil {
		return fmt.Errorf("failed to update survey: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("survey not found")
	}

	return nil
}

// SetSurveyStatus updates a survey's lifecycle status and, when provided,
// its start/end timestamps
func (q *Queries) SetSurveyStatus(ctx context.Context, id uuid.UUID, status models.SurveyStatus, startsAt, endsAt *time.Time) error {
	query := `
		UPDATE surveys
		SET status = $2,
		    starts_at = COALESCE($3, starts_at),
		    ends_at = COALESCE($4, ends_at),
		    updated_at = NOW()
		WHERE id = $1 AND is_active
	`

	result, err := q.db.ExecContext(ctx, query, id, status, startsAt, endsAt)
	if err != nil {
		return fmt.Errorf("failed to update survey status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("survey not found")
	}

	return nil
}

// DeleteSurveyCascade hard-deletes a survey and everything referencing it
// inside one transaction. Delete order respects the foreign keys:
// responses, then options, then questions, then the survey row.
func (q *Queries) DeleteSurveyCascade(ctx context.Context, id uuid.UUID) error {
	return q.WithTx(ctx, func(tx *Queries) error {
		return tx.deleteSurveyCascadeTx(ctx, id)
	})
}

func (q *Queries) deleteSurveyCascadeTx(ctx context.Context, id uuid.UUID) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM responses WHERE survey_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete responses: %w", err)
	}

	if _, err := q.db.ExecContext(ctx, `DELETE FROM options WHERE question_id IN (SELECT id FROM questions WHERE survey_id = $1)`, id); err != nil {
		return fmt.Errorf("failed to delete options: %w", err)
	}

	if _, err := q.db.ExecContext(ctx, `DELETE FROM questions WHERE survey_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete questions: %w", err)
	}

	result, err := q.db.ExecContext(ctx, `DELETE FROM surveys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete survey: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("survey not found")
	}

	return nil
}

// ReplaceQuestionSet swaps a survey's entire question set in one
// transaction. Existing responses, options and questions are removed in
// foreign-key order and the new set is inserted with its fresh ordering.
func (q *Queries) ReplaceQuestionSet(ctx context.Context, surveyID uuid.UUID, questions []models.Question) error {
	return q.WithTx(ctx, func(tx *Queries) error {
		if _, err := tx.db.ExecContext(ctx, `DELETE FROM responses WHERE survey_id = $1`, surveyID); err != nil {
			return fmt.Errorf("failed to delete responses: %w", err)
		}
		if _, err := tx.db.ExecContext(ctx, `DELETE FROM options WHERE question_id IN (SELECT id FROM questions WHERE survey_id = $1)`, surveyID); err != nil {
			return fmt.Errorf("failed to delete options: %w", err)
		}
		if _, err := tx.db.ExecContext(ctx, `DELETE FROM questions WHERE survey_id = $1`, surveyID); err != nil {
			return fmt.Errorf("failed to delete questions: %w", err)
		}
		return tx.insertQuestionSet(ctx, surveyID, questions)
	})
}

// Response Queries

// CreateResponse inserts a new response into the database
func (q *Queries) CreateResponse(ctx context.Context, r *models.Response) error {
	query := `
		INSERT INTO responses (id, survey_id, question_id, user_id, selected_option_id, text_response, session_id, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := q.db.ExecContext(
		ctx,
		query,
		r.ID,
		r.SurveyID,
		r.QuestionID,
		r.UserID,
		r.SelectedOptionID,
		r.TextResponse,
		r.SessionID,
		r.RespondedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert response: %w", err)
	}

	return nil
}

// CreateResponses inserts a batch of responses atomically. A submission
// covering several questions either records all of its answers or none.
func (q *Queries) CreateResponses(ctx context.Context, responses []*models.Response) error {
	return q.WithTx(ctx, func(tx *Queries) error {
		for _, r := range responses {
			if err := tx.CreateResponse(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// HasResponded checks whether the given respondent already answered the
// survey. Exactly one of userID and sessionID identifies the respondent.
func (q *Queries) HasResponded(ctx context.Context, surveyID uuid.UUID, userID *uuid.UUID, sessionID *string) (bool, error) {
	var query string
	var arg interface{}

	switch {
	case userID != nil:
		query = `SELECT EXISTS(SELECT 1 FROM responses WHERE survey_id = $1 AND user_id = $2)`
		arg = *userID
	case sessionID != nil && *sessionID != "":
		query = `SELECT EXISTS(SELECT 1 FROM responses WHERE survey_id = $1 AND session_id = $2)`
		arg = *sessionID
	default:
		return false, fmt.Errorf("either userID or sessionID must be provided")
	}

	var exists bool
	if err := q.db.QueryRowContext(ctx, query, surveyID, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check for existing response: %w", err)
	}

	return exists, nil
}

// CountResponsesBySurvey counts the number of responses for a survey
func (q *Queries) CountResponsesBySurvey(ctx context.Context, surveyID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM responses WHERE survey_id = $1`

	var count int
	err := q.db.QueryRowContext(ctx, query, surveyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}

	return count, nil
}

// CountUniqueRespondents counts distinct authenticated respondents for a
// survey. Anonymous responses carry no user ID and are not counted here.
func (q *Queries) CountUniqueRespondents(ctx context.Context, surveyID uuid.UUID) (int, error) {
	query := `SELECT COUNT(DISTINCT user_id) FROM responses WHERE survey_id = $1 AND user_id IS NOT NULL`

	var count int
	err := q.db.QueryRowContext(ctx, query, surveyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unique respondents: %w", err)
	}

	return count, nil
}

// CountAnonymousResponses counts responses without an associated user
func (q *Queries) CountAnonymousResponses(ctx context.Context, surveyID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM responses WHERE survey_id = $1 AND user_id IS NULL`

	var count int
	err := q.db.QueryRowContext(ctx, query, surveyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count anonymous responses: %w", err)
	}

	return count, nil
}

// CompletedSurveyIDs returns the IDs of surveys the user has responded to
func (q *Queries) CompletedSurveyIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	query := `SELECT DISTINCT survey_id FROM responses WHERE user_id = $1`

	rows, err := q.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed surveys: %w", err)
	}
	defer rows.Close()

	completed := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan survey id: %w", err)
		}
		completed[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating completed surveys: %w", err)
	}

	return completed, nil
}

// OptionCounts returns the response count per selected option for a survey,
// keyed by option ID. Counts are derived from responses, never stored.
func (q *Queries) OptionCounts(ctx context.Context, surveyID uuid.UUID) (map[uuid.UUID]int, error) {
	query := `
		SELECT selected_option_id, COUNT(*)
		FROM responses
		WHERE survey_id = $1 AND selected_option_id IS NOT NULL
		GROUP BY selected_option_id
	`

	rows, err := q.db.QueryContext(ctx, query, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query option counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var optionID uuid.UUID
		var count int
		if err := rows.Scan(&optionID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan option count: %w", err)
		}
		counts[optionID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating option counts: %w", err)
	}

	return counts, nil
}

// TextResponseCounts returns the free-text response count per question for a
// survey, keyed by question ID. This includes unmatched multiple-choice
// answers stored via the free-text fallback.
func (q *Queries) TextResponseCounts(ctx context.Context, surveyID uuid.UUID) (map[uuid.UUID]int, error) {
	query := `
		SELECT question_id, COUNT(*)
		FROM responses
		WHERE survey_id = $1 AND text_response IS NOT NULL
		GROUP BY question_id
	`

	rows, err := q.db.QueryContext(ctx, query, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query text response counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var questionID uuid.UUID
		var count int
		if err := rows.Scan(&questionID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan text response count: %w", err)
		}
		counts[questionID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating text response counts: %w", err)
	}

	return counts, nil
}

// Cleanup Queries
//
// Each statement is an independent maintenance action; the sweep reports
// per-category counts and does not roll back earlier categories when a later
// one fails.

// HardDeleteOrphanedSurveys removes surveys whose creator reference is gone
// (data corruption), cascading through responses, options and questions in
// one transaction per sweep call. Returns the number of surveys removed.
func (q *Queries) HardDeleteOrphanedSurveys(ctx context.Context) (int, error) {
	var deleted int
	err := q.WithTx(ctx, func(tx *Queries) error {
		if _, err := tx.db.ExecContext(ctx, `DELETE FROM responses WHERE survey_id IN (SELECT id FROM surveys WHERE creator_id IS NULL)`); err != nil {
			return fmt.Errorf("failed to delete orphaned responses: %w", err)
		}
		if _, err := tx.db.ExecContext(ctx, `DELETE FROM options WHERE question_id IN (SELECT q.id FROM questions q JOIN surveys s ON q.survey_id = s.id WHERE s.creator_id IS NULL)`); err != nil {
			return fmt.Errorf("failed to delete orphaned options: %w", err)
		}
		if _, err := tx.db.ExecContext(ctx, `DELETE FROM questions WHERE survey_id IN (SELECT id FROM surveys WHERE creator_id IS NULL)`); err != nil {
			return fmt.Errorf("failed to delete orphaned questions: %w", err)
		}

		result, err := tx.db.ExecContext(ctx, `DELETE FROM surveys WHERE creator_id IS NULL`)
		if err != nil {
			return fmt.Errorf("failed to delete orphaned surveys: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted = int(rows)
		return nil
	})

	return deleted, err
}

// DeactivateSurveysWithInactiveCreators soft-deletes surveys whose creator
// account is soft-deleted. Returns the number of surveys affected.
func (q *Queries) DeactivateSurveysWithInactiveCreators(ctx context.Context) (int, error) {
	query := `
		UPDATE surveys
		SET is_active = FALSE, updated_at = NOW()
		WHERE is_active AND creator_id IN (SELECT id FROM users WHERE NOT is_active)
	`
	return q.execCount(ctx, query)
}

// DeactivateEmptySurveys soft-deletes surveys that have zero questions.
// Returns the number of surveys affected.
func (q *Queries) DeactivateEmptySurveys(ctx context.Context) (int, error) {
	query := `
		UPDATE surveys
		SET is_active = FALSE, updated_at = NOW()
		WHERE is_active AND NOT EXISTS (SELECT 1 FROM questions WHERE questions.survey_id = surveys.id)
	`
	return q.execCount(ctx, query)
}

// DeactivateStaleSurveys soft-deletes surveys older than maxAgeDays with
// zero responses. Returns the number of surveys affected.
func (q *Queries) DeactivateStaleSurveys(ctx context.Context, maxAgeDays int) (int, error) {
	query := `
		UPDATE surveys
		SET is_active = FALSE, updated_at = NOW()
		WHERE is_active
		  AND created_at < NOW() - make_interval(days => $1)
		  AND NOT EXISTS (SELECT 1 FROM responses WHERE responses.survey_id = surveys.id)
	`
	return q.execCount(ctx, query, maxAgeDays)
}

// CloseExpiredSurveys transitions active surveys past their end date to
// closed. Returns the number of surveys affected.
func (q *Queries) CloseExpiredSurveys(ctx context.Context) (int, error) {
	query := `
		UPDATE surveys
		SET status = $1, updated_at = NOW()
		WHERE is_active AND status = $2 AND ends_at IS NOT NULL AND ends_at < NOW()
	`
	return q.execCount(ctx, query, models.SurveyStatusClosed, models.SurveyStatusActive)
}

// ActivateDueSurveys transitions draft surveys whose start date has arrived
// to active. Returns the number of surveys affected.
func (q *Queries) ActivateDueSurveys(ctx context.Context) (int, error) {
	query := `
		UPDATE surveys
		SET status = $1, updated_at = NOW()
		WHERE is_active AND status = $2 AND starts_at IS NOT NULL AND starts_at <= NOW()
	`
	return q.execCount(ctx, query, models.SurveyStatusActive, models.SurveyStatusDraft)
}

func (q *Queries) execCount(ctx context.Context, query string, args ...interface{}) (int, error) {
	result, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute statement: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// Service Stats

// GetStats retrieves global statistics about the service
func (q *Queries) GetStats(ctx context.Context) (*models.Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM surveys WHERE is_active) as survey_count,
			(SELECT COUNT(*) FROM responses) as response_count,
			(SELECT COUNT(DISTINCT user_id) FROM responses WHERE user_id IS NOT NULL) as user_count
	`

	stats := &models.Stats{}
	err := q.db.QueryRowContext(ctx, query).Scan(
		&stats.SurveyCount,
		&stats.ResponseCount,
		&stats.UniqueUserCount,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}
