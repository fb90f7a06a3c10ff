package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
)

// SubmissionRepository defines submission persistence.
type SubmissionRepository interface {
	Create(ctx context.Context, tx db.Transaction, submission *model.Submission) (int64, error)
	GetByID(ctx context.Context, tx db.Transaction, submissionID int64) (*model.Submission, error)
	// MarkJudging moves the submission to judging and clears judged_at.
	MarkJudging(ctx context.Context, tx db.Transaction, submissionID int64) error
	// SaveResult writes every final field in one statement.
	SaveResult(ctx context.Context, tx db.Transaction, submissionID int64, res model.JudgeResult) error
}

// MySQLSubmissionRepository implements SubmissionRepository with MySQL.
// Rows are not cached: the judge is their only writer and always needs the latest state.
type MySQLSubmissionRepository struct {
	db db.Database
}

// NewSubmissionRepository creates a submission repository.
func NewSubmissionRepository(database db.Database) SubmissionRepository {
	return &MySQLSubmissionRepository{db: database}
}

const submissionColumns = "id, user_id, problem_id, language, code, status, score, execution_time, memory_used, judge_message, submitted_at, judged_at"

// Create inserts a pending submission and returns its id.
func (r *MySQLSubmissionRepository) Create(ctx context.Context, tx db.Transaction, submission *model.Submission) (int64, error) {
	if submission == nil {
		return 0, errors.New("submission is nil")
	}
	if submission.ProblemID <= 0 {
		return 0, errors.New("problemID is required")
	}
	if submission.UserID <= 0 {
		return 0, errors.New("userID is required")
	}
	if submission.Language == "" {
		return 0, errors.New("language is required")
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now()
	}
	submission.Status = model.StatusPending

	query := `
		INSERT INTO submissions
		(user_id, problem_id, language, code, status, score, execution_time, memory_used, submitted_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, 0, ?)
	`
	res, err := db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		submission.UserID,
		submission.ProblemID,
		submission.Language,
		submission.Code,
		string(submission.Status),
		submission.SubmittedAt,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	submission.ID = id
	return id, nil
}

// GetByID retrieves a submission by id.
func (r *MySQLSubmissionRepository) GetByID(ctx context.Context, tx db.Transaction, submissionID int64) (*model.Submission, error) {
	if submissionID <= 0 {
		return nil, errors.New("submissionID is required")
	}
	query := "SELECT " + submissionColumns + " FROM submissions WHERE id = ? LIMIT 1"
	row := db.GetQuerier(r.db, tx).QueryRow(ctx, query, submissionID)
	submission := &model.Submission{}
	var (
		status   string
		message  sql.NullString
		judgedAt sql.NullTime
	)
	if err := row.Scan(
		&submission.ID,
		&submission.UserID,
		&submission.ProblemID,
		&submission.Language,
		&submission.Code,
		&status,
		&submission.Score,
		&submission.ExecutionTime,
		&submission.MemoryUsed,
		&message,
		&submission.SubmittedAt,
		&judgedAt,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	submission.Status = model.Status(status)
	submission.JudgeMessage = message.String
	if judgedAt.Valid {
		t := judgedAt.Time
		submission.JudgedAt = &t
	}
	return submission, nil
}

func (r *MySQLSubmissionRepository) MarkJudging(ctx context.Context, tx db.Transaction, submissionID int64) error {
	query := "UPDATE submissions SET status = ?, judged_at = NULL WHERE id = ?"
	_, err := db.GetQuerier(r.db, tx).Exec(ctx, query, string(model.StatusJudging), submissionID)
	return err
}

func (r *MySQLSubmissionRepository) SaveResult(ctx context.Context, tx db.Transaction, submissionID int64, res model.JudgeResult) error {
	if !res.Status.IsTerminal() {
		return errors.New("final status must be terminal")
	}
	if res.JudgedAt.IsZero() {
		return errors.New("judgedAt is required")
	}
	query := `
		UPDATE submissions
		SET status = ?, score = ?, execution_time = ?, memory_used = ?, judge_message = ?, judged_at = ?
		WHERE id = ?
	`
	out, err := db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		string(res.Status),
		res.Score,
		res.ExecutionTime,
		res.MemoryUsed,
		db.NullableString(res.JudgeMessage),
		res.JudgedAt,
		submissionID,
	)
	if err != nil {
		return err
	}
	// judged_at always changes on a final write, so a matched row is never reported unaffected.
	return db.ExpectAffected(out, ErrSubmissionNotFound)
}
