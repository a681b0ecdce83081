package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/masomo/training/core"
	"github.com/trezcool/masomo/training/core/training"
)

type trainingRepository struct {
	db *trainingTables
}

var _ training.Repository = (*trainingRepository)(nil) // interface compliance check

func NewTrainingRepository(db *DB) training.Repository {
	return &trainingRepository{db: db.training}
}

func (repo *trainingRepository) CreateTraining(_ context.Context, t training.Training) (training.Training, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.Levels = nil
	repo.db.trainings[t.ID] = &t
	return t, nil
}

func (repo *trainingRepository) GetTraining(_ context.Context, id string) (training.Training, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.trainings[id]; ok {
		return *t, nil
	}
	return training.Training{}, training.ErrTrainingNotFound
}

func (repo *trainingRepository) UpdateTraining(_ context.Context, t training.Training) (training.Training, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.trainings[t.ID]
	if !ok {
		return training.Training{}, training.ErrTrainingNotFound
	}
	orig.Title = t.Title
	orig.UpdatedAt = t.UpdatedAt
	return *orig, nil
}

func (repo *trainingRepository) CreateLevels(_ context.Context, levels ...training.Level) ([]training.Level, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i := range levels {
		lvl := levels[i]
		repo.db.levels[lvl.ID] = &lvl
	}
	return levels, nil
}

// QueryLevels returns the training's levels by level number.
func (repo *trainingRepository) QueryLevels(_ context.Context, trainingID string) ([]training.Level, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	levels := make([]training.Level, 0)
	for _, lvl := range repo.db.levels {
		if lvl.TrainingID == trainingID {
			levels = append(levels, *lvl)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].LevelNumber < levels[j].LevelNumber })
	return levels, nil
}

func (repo *trainingRepository) GetLevel(_ context.Context, id string) (training.Level, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if lvl, ok := repo.db.levels[id]; ok {
		return *lvl, nil
	}
	return training.Level{}, training.ErrLevelNotFound
}

func (repo *trainingRepository) CreateAttempt(_ context.Context, a training.Attempt) (training.Attempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.seq++
	repo.db.attempts[a.ID] = &a
	repo.db.attemptSeq[a.ID] = repo.db.seq
	return a, nil
}

func (repo *trainingRepository) QueryAttempts(
	_ context.Context,
	levelID, userID string,
	ordering ...core.DBOrdering,
) ([]training.Attempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	attempts := make([]training.Attempt, 0)
	for _, a := range repo.db.attempts {
		if a.LevelID == levelID && (userID == "" || a.UserID == userID) {
			attempts = append(attempts, *a)
		}
	}
	// insertion order first, so equal keys keep it
	sort.Slice(attempts, func(i, j int) bool {
		return repo.db.attemptSeq[attempts[i].ID] < repo.db.attemptSeq[attempts[j].ID]
	})
	if len(ordering) > 0 {
		sort.SliceStable(attempts, func(i, j int) bool { return attemptLess(attempts[i], attempts[j], ordering) })
	}
	return attempts, nil
}

func attemptLess(a, b training.Attempt, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var cmp int
		switch ord.Field {
		case "created_at":
			cmp = compareTimes(a.CreatedAt, b.CreatedAt)
		case "percentage":
			cmp = compareFloats(a.Result.Percentage, b.Result.Percentage)
		case "earned_points":
			cmp = compareInts(a.Result.EarnedPoints, b.Result.EarnedPoints)
		}
		if cmp == 0 {
			continue
		}
		if ord.Ascending {
			return cmp < 0
		}
		return cmp > 0
	}
	return false
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (repo *trainingRepository) CreateRevision(_ context.Context, r training.Revision) (training.Revision, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.revisions[r.ID] = &r
	return r, nil
}

func (repo *trainingRepository) GetRevision(_ context.Context, id string) (training.Revision, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.revisions[id]; ok {
		return *r, nil
	}
	return training.Revision{}, training.ErrRevisionNotFound
}

func (repo *trainingRepository) UpdateRevision(_ context.Context, r training.Revision) (training.Revision, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.revisions[r.ID]
	if !ok {
		return training.Revision{}, training.ErrRevisionNotFound
	}
	orig.Status = r.Status
	orig.ReviewedAt = r.ReviewedAt
	return *orig, nil
}
