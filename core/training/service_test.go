package training_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo/training/core"
	"github.com/trezcool/masomo/training/core/scenario"
	"github.com/trezcool/masomo/training/core/training"
	"github.com/trezcool/masomo/training/storage/database/inmem"
)

type logEntry struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

var _ core.Logger = (*recordingLogger)(nil)

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

func (l *recordingLogger) Debug(msg string, _ ...interface{}) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...interface{})  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...interface{})  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...interface{}) { l.record("error", msg) }
func (l *recordingLogger) Fatal(msg string, _ ...interface{}) { l.record("fatal", msg) }

func newService(t *testing.T) (*training.Service, *recordingLogger) {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	logger := &recordingLogger{}
	conf := core.ScoringConfig{ApprovalThreshold: scenario.DefaultThreshold}
	return training.NewService(inmemdb.NewTrainingRepository(db), logger, conf), logger
}

// 1 -> 2 -> 3(lastOne); best run scores 5 + 10 = 15
func basicScenes() []scenario.Scene {
	return []scenario.Scene{
		{IDScene: 1, Options: []scenario.Option{
			{ID: "1a", Description: "Check the badge", Points: 5, Next: null.IntFrom(2)},
			{ID: "1b", Description: "Let them in", Points: 1, Next: null.IntFrom(2)},
		}},
		{IDScene: 2, Options: []scenario.Option{
			{ID: "2a", Description: "Report", Points: 10, Next: null.IntFrom(3)},
			{ID: "2b", Description: "Ignore", Points: 0, Next: null.IntFrom(3)},
		}},
		{IDScene: 3, LastOne: true},
	}
}

func newLevel(number int, scenes []scenario.Scene) training.NewLevel {
	return training.NewLevel{LevelNumber: number, Title: fmt.Sprintf("Level %d", number), Scenes: scenes}
}

func choose(idx ...int) []scenario.Response {
	responses := make([]scenario.Response, 0, len(idx))
	for i, optIdx := range idx {
		responses = append(responses, scenario.Response{
			IDScene:             null.IntFrom(i + 1),
			SelectedOptionIndex: null.IntFrom(optIdx),
		})
	}
	return responses
}

func setup(t *testing.T, svc *training.Service) (training.Training, training.Level) {
	t.Helper()
	ctx := context.Background()
	tr, err := svc.CreateTraining(ctx, training.NewTraining{Title: "  Physical security "})
	require.NoError(t, err)
	levels, err := svc.CreateLevels(ctx, tr.ID, training.NewLevels{Levels: []training.NewLevel{newLevel(1, basicScenes())}})
	require.NoError(t, err)
	require.Len(t, levels, 1)
	return tr, levels[0]
}

func TestService_CreateTraining(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tr, err := svc.CreateTraining(ctx, training.NewTraining{Title: "  Physical security "})
	require.NoError(t, err)
	assert.NotEmpty(t, tr.ID)
	assert.Equal(t, "Physical security", tr.Title)

	_, err = svc.CreateTraining(ctx, training.NewTraining{Title: "   "})
	assert.Error(t, err)

	got, err := svc.GetTraining(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.Title, got.Title)
	assert.Empty(t, got.Levels)

	_, err = svc.GetTraining(ctx, "missing")
	assert.Equal(t, training.ErrTrainingNotFound, errors.Cause(err))
}

func TestService_CreateLevels(t *testing.T) {
	svc, logger := newService(t)
	ctx := context.Background()
	tr, _ := setup(t, svc)

	t.Run("duplicate of existing level", func(t *testing.T) {
		_, err := svc.CreateLevels(ctx, tr.ID, training.NewLevels{Levels: []training.NewLevel{newLevel(1, basicScenes())}})
		require.Error(t, err)
		assert.True(t, core.IsValidationError(err))
		assert.Contains(t, err.Error(), "duplicate level numbers: 1")
	})

	t.Run("duplicate within batch", func(t *testing.T) {
		_, err := svc.CreateLevels(ctx, tr.ID, training.NewLevels{Levels: []training.NewLevel{
			newLevel(2, basicScenes()),
			newLevel(2, basicScenes()),
		}})
		require.Error(t, err)
		assert.True(t, core.IsValidationError(err))
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := svc.CreateLevels(ctx, tr.ID, training.NewLevels{Levels: []training.NewLevel{newLevel(0, nil)}})
		assert.Error(t, err)
	})

	t.Run("unknown training", func(t *testing.T) {
		_, err := svc.CreateLevels(ctx, "missing", training.NewLevels{Levels: []training.NewLevel{newLevel(1, basicScenes())}})
		assert.Equal(t, training.ErrTrainingNotFound, errors.Cause(err))
	})

	t.Run("structural issues are logged", func(t *testing.T) {
		scenes := basicScenes()
		scenes[1].Options[0].Next = null.IntFrom(9)
		before := logger.count("warn")
		levels, err := svc.CreateLevels(ctx, tr.ID, training.NewLevels{Levels: []training.NewLevel{newLevel(3, scenes)}})
		require.NoError(t, err)
		assert.Len(t, levels, 1)
		assert.Equal(t, before+1, logger.count("warn"))
	})

	got, err := svc.GetTraining(ctx, tr.ID)
	require.NoError(t, err)
	if assert.Len(t, got.Levels, 2) {
		assert.Equal(t, 1, got.Levels[0].LevelNumber)
		assert.Equal(t, 3, got.Levels[1].LevelNumber)
	}
}

func TestService_OptimalPath(t *testing.T) {
	svc, logger := newService(t)
	ctx := context.Background()
	tr, lvl := setup(t, svc)

	res, err := svc.OptimalPath(ctx, lvl.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, res.TotalMaxScore)
	assert.Equal(t, scenario.StopTerminal, res.Stop)
	assert.Equal(t, 3, res.VisitedScenes)

	_, err = svc.OptimalPath(ctx, "missing")
	assert.Equal(t, training.ErrLevelNotFound, errors.Cause(err))

	t.Run("dead end is logged once", func(t *testing.T) {
		scenes := basicScenes()
		scenes[0].Options[0].Next = null.IntFrom(42)
		levels, err := svc.CreateLevels(ctx, tr.ID, training.NewLevels{Levels: []training.NewLevel{newLevel(2, scenes)}})
		require.NoError(t, err)

		before := logger.count("warn")
		for i := 0; i < 3; i++ {
			res, err := svc.OptimalPath(ctx, levels[0].ID)
			require.NoError(t, err)
			assert.Equal(t, scenario.StopDeadEnd, res.Stop)
			assert.Equal(t, null.IntFrom(42), res.DeadEnd)
			assert.Equal(t, 5, res.TotalMaxScore)
		}
		assert.Equal(t, before+1, logger.count("warn"))
	})
}

func TestService_SubmitAttempt(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, lvl := setup(t, svc)

	tests := []struct {
		name         string
		responses    []scenario.Response
		wantEarned   int
		wantApproved bool
	}{
		{name: "best run", responses: choose(0, 0), wantEarned: 15, wantApproved: true},
		{name: "worst run", responses: choose(1, 1), wantEarned: 1},
		{name: "good start", responses: choose(0, 1), wantEarned: 5},
		{name: "nothing chosen", responses: []scenario.Response{}, wantEarned: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := svc.SubmitAttempt(ctx, lvl.ID, training.NewAttempt{UserID: " u1 ", Responses: tt.responses})
			require.NoError(t, err)
			assert.Equal(t, "u1", a.UserID)
			assert.Equal(t, lvl.ID, a.LevelID)
			assert.Equal(t, tt.wantEarned, a.Result.EarnedPoints)
			assert.Equal(t, 15, a.Result.TotalPoints)
			assert.Equal(t, tt.wantApproved, a.Result.Approved)
		})
	}

	t.Run("level threshold", func(t *testing.T) {
		tr, err := svc.CreateTraining(ctx, training.NewTraining{Title: "Lenient"})
		require.NoError(t, err)
		nl := newLevel(1, basicScenes())
		threshold := 30.0
		nl.ApprovalThreshold = &threshold
		levels, err := svc.CreateLevels(ctx, tr.ID, training.NewLevels{Levels: []training.NewLevel{nl}})
		require.NoError(t, err)

		a, err := svc.SubmitAttempt(ctx, levels[0].ID, training.NewAttempt{UserID: "u1", Responses: choose(0, 1)})
		require.NoError(t, err)
		assert.InDelta(t, 33.33, a.Result.Percentage, 0.01)
		assert.True(t, a.Result.Approved)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := svc.SubmitAttempt(ctx, lvl.ID, training.NewAttempt{Responses: choose(0)})
		assert.Error(t, err)
	})

	t.Run("unknown level", func(t *testing.T) {
		_, err := svc.SubmitAttempt(ctx, "missing", training.NewAttempt{UserID: "u1", Responses: choose(0)})
		assert.Equal(t, training.ErrLevelNotFound, errors.Cause(err))
	})
}

func TestService_distinctScenes(t *testing.T) {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	conf := core.ScoringConfig{ApprovalThreshold: 80, DistinctScenes: true}
	svc := training.NewService(inmemdb.NewTrainingRepository(db), &recordingLogger{}, conf)
	_, lvl := setup(t, svc)

	// scene 1 replayed: only its first record counts
	responses := append(choose(1), choose(0, 0)...)
	a, err := svc.SubmitAttempt(context.Background(), lvl.ID, training.NewAttempt{UserID: "u1", Responses: responses})
	require.NoError(t, err)
	assert.Equal(t, 11, a.Result.EarnedPoints)
}

func TestService_BestAttempt(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, lvl := setup(t, svc)

	_, err := svc.BestAttempt(ctx, lvl.ID, "u1")
	assert.Equal(t, training.ErrNoAttempts, errors.Cause(err))

	submit := func(user string, idx ...int) training.Attempt {
		a, err := svc.SubmitAttempt(ctx, lvl.ID, training.NewAttempt{UserID: user, Responses: choose(idx...)})
		require.NoError(t, err)
		return a
	}
	submit("u1", 1, 1)
	first := submit("u1", 0, 0)
	submit("u1", 0, 1)
	submit("u1", 0, 0)
	submit("u2", 1, 0)

	best, err := svc.BestAttempt(ctx, lvl.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, best.ID)

	attempts, err := svc.ListAttempts(ctx, lvl.ID, "u1")
	require.NoError(t, err)
	assert.Len(t, attempts, 4)

	ordered, err := svc.ListAttempts(ctx, lvl.ID, "", core.ParseOrderings("-earned_points", training.AttemptOrderings...)...)
	require.NoError(t, err)
	if assert.Len(t, ordered, 5) {
		assert.Equal(t, first.ID, ordered[0].ID)
		assert.Equal(t, 1, ordered[4].Result.EarnedPoints)
	}

	_, err = svc.ListAttempts(ctx, "missing", "u1")
	assert.Equal(t, training.ErrLevelNotFound, errors.Cause(err))
}

func TestService_revisions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	tr, _ := setup(t, svc)
	other, err := svc.CreateTraining(ctx, training.NewTraining{Title: "Other"})
	require.NoError(t, err)

	_, err = svc.SubmitRevision(ctx, training.NewRevision{Training: "missing", Title: "New title"})
	assert.Equal(t, training.ErrTrainingNotFound, errors.Cause(err))

	rev, err := svc.SubmitRevision(ctx, training.NewRevision{
		Training: map[string]interface{}{"_id": tr.ID},
		Title:    " Access control ",
		Comment:  "clearer title",
	})
	require.NoError(t, err)
	assert.Equal(t, training.RevisionPending, rev.Status)
	assert.Equal(t, "Access control", rev.Title)

	t.Run("other training", func(t *testing.T) {
		_, err := svc.ApproveRevision(ctx, other.ID, rev.ID)
		require.Error(t, err)
		assert.True(t, core.IsValidationError(err))
		assert.Equal(t, training.ErrRevisionMismatch.Error(), err.Error())
	})

	t.Run("unknown revision", func(t *testing.T) {
		_, err := svc.ApproveRevision(ctx, tr.ID, "missing")
		assert.Equal(t, training.ErrRevisionNotFound, errors.Cause(err))
	})

	updated, err := svc.ApproveRevision(ctx, tr.ID, rev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Access control", updated.Title)

	got, err := svc.GetTraining(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Access control", got.Title)

	t.Run("already reviewed", func(t *testing.T) {
		_, err := svc.ApproveRevision(ctx, tr.ID, rev.ID)
		require.Error(t, err)
		assert.True(t, core.IsValidationError(err))
		assert.Equal(t, training.ErrRevisionReviewed.Error(), err.Error())
	})
}
