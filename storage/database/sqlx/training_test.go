package sqlxrepos_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo/training/core"
	"github.com/trezcool/masomo/training/core/scenario"
	"github.com/trezcool/masomo/training/core/training"
	"github.com/trezcool/masomo/training/storage/database"
	sqlxrepos "github.com/trezcool/masomo/training/storage/database/sqlx"
)

func prepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine: database.EngineSQLite,
		Name:   filepath.Join(t.TempDir(), "masomo.db"),
	}}
	db, err := database.Open(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newTraining(t *testing.T, repo training.Repository) training.Training {
	t.Helper()
	now := time.Now().UTC()
	tr, err := repo.CreateTraining(context.Background(), training.Training{
		ID:        uuid.NewString(),
		Title:     "Physical security",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return tr
}

func TestTrainingRepository_trainings(t *testing.T) {
	repo := sqlxrepos.NewTrainingRepository(prepareDB(t))
	ctx := context.Background()
	tr := newTraining(t, repo)

	got, err := repo.GetTraining(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.Title, got.Title)
	assert.True(t, tr.CreatedAt.Equal(got.CreatedAt))

	tr.Title = "Access control"
	tr.UpdatedAt = time.Now().UTC()
	updated, err := repo.UpdateTraining(ctx, tr)
	require.NoError(t, err)
	assert.Equal(t, "Access control", updated.Title)

	tests := []struct {
		name string
		id   string
	}{
		{name: "not a uuid", id: "missing"},
		{name: "unknown uuid", id: uuid.NewString()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.GetTraining(ctx, tt.id)
			assert.Equal(t, training.ErrTrainingNotFound, errors.Cause(err))
		})
	}

	_, err = repo.UpdateTraining(ctx, training.Training{ID: uuid.NewString(), Title: "x"})
	assert.Equal(t, training.ErrTrainingNotFound, errors.Cause(err))
}

func TestTrainingRepository_levels(t *testing.T) {
	repo := sqlxrepos.NewTrainingRepository(prepareDB(t))
	ctx := context.Background()
	tr := newTraining(t, repo)

	doc, err := scenario.LoadLevelDocument("../../../core/scenario/testdata/access_control.json")
	require.NoError(t, err)

	now := time.Now().UTC()
	lvl2 := training.Level{
		ID: uuid.NewString(), TrainingID: tr.ID, LevelNumber: 2, Title: "Access control",
		ApprovalThreshold: null.Float64From(70), Scenes: doc.Scenes, CreatedAt: now, UpdatedAt: now,
	}
	lvl1 := training.Level{
		ID: uuid.NewString(), TrainingID: tr.ID, LevelNumber: 1, Title: "Intro",
		Scenes: []scenario.Scene{{IDScene: 1, LastOne: true}}, CreatedAt: now, UpdatedAt: now,
	}
	_, err = repo.CreateLevels(ctx, lvl2, lvl1)
	require.NoError(t, err)

	levels, err := repo.QueryLevels(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, 1, levels[0].LevelNumber)
	assert.Equal(t, 2, levels[1].LevelNumber)
	assert.False(t, levels[0].ApprovalThreshold.Valid)

	got, err := repo.GetLevel(ctx, lvl2.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.Threshold(80))
	assert.Equal(t, doc.Scenes, got.Scenes)
	assert.Equal(t, 31, scenario.FindOptimalPath(got.Graph()).TotalMaxScore)

	t.Run("level number taken", func(t *testing.T) {
		dup := lvl1
		dup.ID = uuid.NewString()
		_, err := repo.CreateLevels(ctx, dup)
		assert.Error(t, err)
	})

	_, err = repo.GetLevel(ctx, uuid.NewString())
	assert.Equal(t, training.ErrLevelNotFound, errors.Cause(err))
}

func TestTrainingRepository_attempts(t *testing.T) {
	repo := sqlxrepos.NewTrainingRepository(prepareDB(t))
	ctx := context.Background()
	tr := newTraining(t, repo)

	now := time.Now().UTC()
	lvl := training.Level{
		ID: uuid.NewString(), TrainingID: tr.ID, LevelNumber: 1, Title: "Intro",
		Scenes: []scenario.Scene{{IDScene: 1, LastOne: true}}, CreatedAt: now, UpdatedAt: now,
	}
	_, err := repo.CreateLevels(ctx, lvl)
	require.NoError(t, err)

	add := func(user string, earned int, pct float64, approved bool, at time.Time) training.Attempt {
		a, err := repo.CreateAttempt(ctx, training.Attempt{
			ID:      uuid.NewString(),
			LevelID: lvl.ID,
			UserID:  user,
			Responses: []scenario.Response{
				{IDScene: null.IntFrom(1), SelectedOptionID: "1a", Next: scenario.NextRef(2)},
			},
			Result: scenario.ApprovalResult{
				EarnedPoints: earned, TotalPoints: 10, Percentage: pct, Approved: approved,
				SelectedOptions: []scenario.SelectedOption{{IDScene: 1, OptionID: "1a", Description: "Ask", Points: earned}},
			},
			CreatedAt: at,
		})
		require.NoError(t, err)
		return a
	}
	a1 := add("u1", 5, 50, false, now)
	a2 := add("u1", 9, 90, true, now.Add(time.Second))
	a3 := add("u1", 2, 20, false, now.Add(2*time.Second))
	add("u2", 10, 100, true, now.Add(3*time.Second))

	tests := []struct {
		name     string
		user     string
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "oldest first", user: "u1", want: []string{a1.ID, a2.ID, a3.ID}},
		{name: "best percentage", user: "u1", ordering: core.ParseOrderings("-percentage", training.AttemptOrderings...), want: []string{a2.ID, a1.ID, a3.ID}},
		{name: "unknown field ignored", user: "u1", ordering: []core.DBOrdering{{Field: "user_id; DROP TABLE attempt"}}, want: []string{a1.ID, a2.ID, a3.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts, err := repo.QueryAttempts(ctx, lvl.ID, tt.user, tt.ordering...)
			require.NoError(t, err)
			ids := make([]string, 0, len(attempts))
			for _, a := range attempts {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	all, err := repo.QueryAttempts(ctx, lvl.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 4)

	got := all[1]
	assert.Equal(t, a2.Result.SelectedOptions, got.Result.SelectedOptions)
	assert.True(t, got.Result.Approved)
	if assert.Len(t, got.Responses, 1) {
		assert.Equal(t, "1a", got.Responses[0].SelectedOptionID)
		assert.True(t, got.Responses[0].Next.Matches(null.IntFrom(2)))
	}

	none, err := repo.QueryAttempts(ctx, uuid.NewString(), "u1")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTrainingRepository_revisions(t *testing.T) {
	repo := sqlxrepos.NewTrainingRepository(prepareDB(t))
	ctx := context.Background()
	tr := newTraining(t, repo)

	rev, err := repo.CreateRevision(ctx, training.Revision{
		ID:        uuid.NewString(),
		Training:  map[string]interface{}{"_id": tr.ID},
		Title:     "Access control",
		Status:    training.RevisionPending,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	got, err := repo.GetRevision(ctx, rev.ID)
	require.NoError(t, err)
	assert.True(t, core.SameID(got.Training, tr))
	assert.False(t, got.ReviewedAt.Valid)

	got.Status = training.RevisionApproved
	got.ReviewedAt = null.TimeFrom(time.Now().UTC())
	updated, err := repo.UpdateRevision(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, training.RevisionApproved, updated.Status)
	assert.True(t, updated.ReviewedAt.Valid)

	_, err = repo.GetRevision(ctx, uuid.NewString())
	assert.Equal(t, training.ErrRevisionNotFound, errors.Cause(err))
}
