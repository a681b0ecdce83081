package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo/training/core"
	"github.com/trezcool/masomo/training/core/scenario"
	"github.com/trezcool/masomo/training/core/training"
)

type (
	trainingRow struct {
		ID        string    `db:"id"`
		Title     string    `db:"title"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	levelRow struct {
		ID                string         `db:"id"`
		TrainingID        string         `db:"training_id"`
		LevelNumber       int            `db:"level_number"`
		Title             string         `db:"title"`
		ApprovalThreshold null.Float64   `db:"approval_threshold"`
		Scenes            types.JSONText `db:"scenes"`
		CreatedAt         time.Time      `db:"created_at"`
		UpdatedAt         time.Time      `db:"updated_at"`
	}

	attemptRow struct {
		ID              string         `db:"id"`
		LevelID         string         `db:"level_id"`
		UserID          string         `db:"user_id"`
		Responses       types.JSONText `db:"responses"`
		EarnedPoints    int            `db:"earned_points"`
		TotalPoints     int            `db:"total_points"`
		Percentage      float64        `db:"percentage"`
		Approved        bool           `db:"approved"`
		SelectedOptions types.JSONText `db:"selected_options"`
		CreatedAt       time.Time      `db:"created_at"`
	}

	revisionRow struct {
		ID         string         `db:"id"`
		Training   types.JSONText `db:"training"`
		TrainingID string         `db:"training_id"`
		Title      string         `db:"title"`
		Comment    string         `db:"comment"`
		Status     string         `db:"status"`
		CreatedAt  time.Time      `db:"created_at"`
		ReviewedAt null.Time      `db:"reviewed_at"`
	}
)

type trainingRepository struct {
	db *sqlx.DB
}

var _ training.Repository = (*trainingRepository)(nil) // interface compliance check

func NewTrainingRepository(db *sqlx.DB) training.Repository {
	return &trainingRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// validID reports whether id can be looked up in a UUID column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func toJSON(v interface{}) (types.JSONText, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(data), nil
}

func boilLevel(lvl training.Level) (levelRow, error) {
	scenes, err := toJSON(lvl.Scenes)
	if err != nil {
		return levelRow{}, errors.Wrap(err, "encoding scenes")
	}
	return levelRow{
		ID:                lvl.ID,
		TrainingID:        lvl.TrainingID,
		LevelNumber:       lvl.LevelNumber,
		Title:             lvl.Title,
		ApprovalThreshold: lvl.ApprovalThreshold,
		Scenes:            scenes,
		CreatedAt:         lvl.CreatedAt.UTC(),
		UpdatedAt:         lvl.UpdatedAt.UTC(),
	}, nil
}

func unboilLevel(row levelRow) (training.Level, error) {
	lvl := training.Level{
		ID:                row.ID,
		TrainingID:        row.TrainingID,
		LevelNumber:       row.LevelNumber,
		Title:             row.Title,
		ApprovalThreshold: row.ApprovalThreshold,
		CreatedAt:         row.CreatedAt.UTC(),
		UpdatedAt:         row.UpdatedAt.UTC(),
	}
	if err := row.Scenes.Unmarshal(&lvl.Scenes); err != nil {
		return training.Level{}, errors.Wrap(err, "decoding scenes")
	}
	return lvl, nil
}

func boilAttempt(a training.Attempt) (attemptRow, error) {
	responses, err := toJSON(a.Responses)
	if err != nil {
		return attemptRow{}, errors.Wrap(err, "encoding responses")
	}
	selected, err := toJSON(a.Result.SelectedOptions)
	if err != nil {
		return attemptRow{}, errors.Wrap(err, "encoding selected options")
	}
	return attemptRow{
		ID:              a.ID,
		LevelID:         a.LevelID,
		UserID:          a.UserID,
		Responses:       responses,
		EarnedPoints:    a.Result.EarnedPoints,
		TotalPoints:     a.Result.TotalPoints,
		Percentage:      a.Result.Percentage,
		Approved:        a.Result.Approved,
		SelectedOptions: selected,
		CreatedAt:       a.CreatedAt.UTC(),
	}, nil
}

func unboilAttempt(row attemptRow) (training.Attempt, error) {
	a := training.Attempt{
		ID:      row.ID,
		LevelID: row.LevelID,
		UserID:  row.UserID,
		Result: scenario.ApprovalResult{
			EarnedPoints: row.EarnedPoints,
			TotalPoints:  row.TotalPoints,
			Percentage:   row.Percentage,
			Approved:     row.Approved,
		},
		CreatedAt: row.CreatedAt.UTC(),
	}
	if err := row.Responses.Unmarshal(&a.Responses); err != nil {
		return training.Attempt{}, errors.Wrap(err, "decoding responses")
	}
	if err := row.SelectedOptions.Unmarshal(&a.Result.SelectedOptions); err != nil {
		return training.Attempt{}, errors.Wrap(err, "decoding selected options")
	}
	return a, nil
}

func boilRevision(r training.Revision) (revisionRow, error) {
	ref, err := toJSON(r.Training)
	if err != nil {
		return revisionRow{}, errors.Wrap(err, "encoding training reference")
	}
	return revisionRow{
		ID:         r.ID,
		Training:   ref,
		TrainingID: core.NormalizeID(r.Training),
		Title:      r.Title,
		Comment:    r.Comment,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt.UTC(),
		ReviewedAt: r.ReviewedAt,
	}, nil
}

func unboilRevision(row revisionRow) (training.Revision, error) {
	r := training.Revision{
		ID:         row.ID,
		Title:      row.Title,
		Comment:    row.Comment,
		Status:     row.Status,
		CreatedAt:  row.CreatedAt.UTC(),
		ReviewedAt: row.ReviewedAt,
	}
	if err := row.Training.Unmarshal(&r.Training); err != nil {
		return training.Revision{}, errors.Wrap(err, "decoding training reference")
	}
	return r, nil
}

func (repo *trainingRepository) CreateTraining(ctx context.Context, t training.Training) (training.Training, error) {
	row := trainingRow{ID: t.ID, Title: t.Title, CreatedAt: t.CreatedAt.UTC(), UpdatedAt: t.UpdatedAt.UTC()}
	q := `INSERT INTO training (id, title, created_at, updated_at) VALUES (:id, :title, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return training.Training{}, errors.Wrap(err, "inserting training")
	}
	t.Levels = nil
	return t, nil
}

func (repo *trainingRepository) GetTraining(ctx context.Context, id string) (training.Training, error) {
	if !validID(id) {
		return training.Training{}, training.ErrTrainingNotFound
	}
	var row trainingRow
	q := `SELECT id, title, created_at, updated_at FROM training WHERE id = ?`
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(q), id); err != nil {
		return training.Training{}, trapNoRowsErr(err, training.ErrTrainingNotFound, "selecting training")
	}
	return training.Training{
		ID:        row.ID,
		Title:     row.Title,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}, nil
}

func (repo *trainingRepository) UpdateTraining(ctx context.Context, t training.Training) (training.Training, error) {
	q := `UPDATE training SET title = ?, updated_at = ? WHERE id = ?`
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), t.Title, t.UpdatedAt.UTC(), t.ID)
	if err != nil {
		return training.Training{}, errors.Wrap(err, "updating training")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return training.Training{}, training.ErrTrainingNotFound
	}
	return repo.GetTraining(ctx, t.ID)
}

// CreateLevels inserts all levels in one transaction.
func (repo *trainingRepository) CreateLevels(ctx context.Context, levels ...training.Level) ([]training.Level, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := `INSERT INTO level (id, training_id, level_number, title, approval_threshold, scenes, created_at, updated_at)
		VALUES (:id, :training_id, :level_number, :title, :approval_threshold, :scenes, :created_at, :updated_at)`
	for _, lvl := range levels {
		row, err := boilLevel(lvl)
		if err != nil {
			return nil, err
		}
		if _, err = tx.NamedExecContext(ctx, q, row); err != nil {
			return nil, errors.Wrap(err, "inserting level")
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing levels")
	}
	return levels, nil
}

const levelColumns = `id, training_id, level_number, title, approval_threshold, scenes, created_at, updated_at`

func (repo *trainingRepository) QueryLevels(ctx context.Context, trainingID string) ([]training.Level, error) {
	levels := make([]training.Level, 0)
	if !validID(trainingID) {
		return levels, nil
	}
	var rows []levelRow
	q := `SELECT ` + levelColumns + ` FROM level WHERE training_id = ? ORDER BY level_number`
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), trainingID); err != nil {
		return nil, errors.Wrap(err, "selecting levels")
	}
	for _, row := range rows {
		lvl, err := unboilLevel(row)
		if err != nil {
			return nil, err
		}
		levels = append(levels, lvl)
	}
	return levels, nil
}

func (repo *trainingRepository) GetLevel(ctx context.Context, id string) (training.Level, error) {
	if !validID(id) {
		return training.Level{}, training.ErrLevelNotFound
	}
	var row levelRow
	q := `SELECT ` + levelColumns + ` FROM level WHERE id = ?`
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(q), id); err != nil {
		return training.Level{}, trapNoRowsErr(err, training.ErrLevelNotFound, "selecting level")
	}
	return unboilLevel(row)
}

func (repo *trainingRepository) CreateAttempt(ctx context.Context, a training.Attempt) (training.Attempt, error) {
	row, err := boilAttempt(a)
	if err != nil {
		return training.Attempt{}, err
	}
	q := `INSERT INTO attempt (id, level_id, user_id, responses, earned_points, total_points, percentage, approved, selected_options, created_at)
		VALUES (:id, :level_id, :user_id, :responses, :earned_points, :total_points, :percentage, :approved, :selected_options, :created_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return training.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return a, nil
}

func (repo *trainingRepository) QueryAttempts(
	ctx context.Context,
	levelID, userID string,
	ordering ...core.DBOrdering,
) ([]training.Attempt, error) {
	attempts := make([]training.Attempt, 0)
	if !validID(levelID) {
		return attempts, nil
	}

	q := `SELECT id, level_id, user_id, responses, earned_points, total_points, percentage, approved, selected_options, created_at
		FROM attempt WHERE level_id = ?`
	args := []interface{}{levelID}
	if userID != "" {
		q += ` AND user_id = ?`
		args = append(args, userID)
	}
	ords := make([]core.DBOrdering, 0, len(ordering)+1)
	for _, ord := range ordering {
		// ordering fields end up in the query text
		if contains(training.AttemptOrderings, ord.Field) {
			ords = append(ords, ord)
		}
	}
	ords = append(ords, core.DBOrdering{Field: "created_at", Ascending: true})
	q += ` ORDER BY ` + core.OrderBy(ords)

	var rows []attemptRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting attempts")
	}
	for _, row := range rows {
		a, err := unboilAttempt(row)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

func contains(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}

func (repo *trainingRepository) CreateRevision(ctx context.Context, r training.Revision) (training.Revision, error) {
	row, err := boilRevision(r)
	if err != nil {
		return training.Revision{}, err
	}
	q := `INSERT INTO revision (id, training, training_id, title, comment, status, created_at, reviewed_at)
		VALUES (:id, :training, :training_id, :title, :comment, :status, :created_at, :reviewed_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return training.Revision{}, errors.Wrap(err, "inserting revision")
	}
	return r, nil
}

func (repo *trainingRepository) GetRevision(ctx context.Context, id string) (training.Revision, error) {
	if !validID(id) {
		return training.Revision{}, training.ErrRevisionNotFound
	}
	var row revisionRow
	q := `SELECT id, training, training_id, title, comment, status, created_at, reviewed_at FROM revision WHERE id = ?`
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(q), id); err != nil {
		return training.Revision{}, trapNoRowsErr(err, training.ErrRevisionNotFound, "selecting revision")
	}
	return unboilRevision(row)
}

func (repo *trainingRepository) UpdateRevision(ctx context.Context, r training.Revision) (training.Revision, error) {
	q := `UPDATE revision SET status = ?, reviewed_at = ? WHERE id = ?`
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), r.Status, r.ReviewedAt, r.ID)
	if err != nil {
		return training.Revision{}, errors.Wrap(err, "updating revision")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return training.Revision{}, training.ErrRevisionNotFound
	}
	return repo.GetRevision(ctx, r.ID)
}
