package training

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo/training/core"
	"github.com/trezcool/masomo/training/core/scenario"
)

var (
	// errors
	ErrTrainingNotFound = errors.New("training not found")
	ErrLevelNotFound    = errors.New("level not found")
	ErrRevisionNotFound = errors.New("revision not found")
	ErrNoAttempts       = errors.New("no attempts for this level")
	ErrRevisionMismatch = errors.New("revision does not belong to this training")
	ErrRevisionReviewed = errors.New("revision already reviewed")

	// AttemptOrderings are the fields attempts can be ordered by.
	AttemptOrderings = []string{"created_at", "percentage", "earned_points"}
)

type (
	Repository interface {
		CreateTraining(ctx context.Context, t Training) (Training, error)
		GetTraining(ctx context.Context, id string) (Training, error)
		UpdateTraining(ctx context.Context, t Training) (Training, error)
		CreateLevels(ctx context.Context, levels ...Level) ([]Level, error)
		QueryLevels(ctx context.Context, trainingID string) ([]Level, error)
		GetLevel(ctx context.Context, id string) (Level, error)
		CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
		// QueryAttempts lists a user's attempts of a level, oldest first unless ordered otherwise.
		QueryAttempts(ctx context.Context, levelID, userID string, ordering ...core.DBOrdering) ([]Attempt, error)
		CreateRevision(ctx context.Context, r Revision) (Revision, error)
		GetRevision(ctx context.Context, id string) (Revision, error)
		UpdateRevision(ctx context.Context, r Revision) (Revision, error)
	}

	// scored is what the service keeps of a level: its graph never changes once created.
	scored struct {
		graph   *scenario.SceneGraph
		optimal scenario.OptimalPathResult
	}

	Service struct {
		repo Repository
		log  core.Logger
		conf core.ScoringConfig

		mutex sync.RWMutex
		cache map[string]scored // {levelID: scored}
	}
)

func NewService(repo Repository, logger core.Logger, conf core.ScoringConfig) *Service {
	return &Service{
		repo:  repo,
		log:   logger,
		conf:  conf,
		cache: make(map[string]scored),
	}
}

func (svc *Service) CreateTraining(ctx context.Context, nt NewTraining) (Training, error) {
	if err := nt.Validate(); err != nil {
		return Training{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateTraining(ctx, Training{
		ID:        uuid.NewString(),
		Title:     nt.Title,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// GetTraining returns the training with its levels.
func (svc *Service) GetTraining(ctx context.Context, id string) (Training, error) {
	t, err := svc.repo.GetTraining(ctx, id)
	if err != nil {
		return Training{}, err
	}
	if t.Levels, err = svc.repo.QueryLevels(ctx, id); err != nil {
		return Training{}, errors.Wrap(err, "querying levels")
	}
	return t, nil
}

// CreateLevels adds levels to a training. The whole batch is rejected when one of its
// level numbers is already used by the training or repeated in the batch.
func (svc *Service) CreateLevels(ctx context.Context, trainingID string, nls NewLevels) ([]Level, error) {
	if err := nls.Validate(); err != nil {
		return nil, err
	}
	if _, err := svc.repo.GetTraining(ctx, trainingID); err != nil {
		return nil, err
	}
	existing, err := svc.repo.QueryLevels(ctx, trainingID)
	if err != nil {
		return nil, errors.Wrap(err, "querying levels")
	}
	if dups := DuplicateLevelNumbers(existing, nls.Levels); len(dups) > 0 {
		msg := DuplicateLevelNumbersMessage(dups)
		return nil, core.NewValidationError(errors.New(msg), core.FieldError{Field: "levelNumber", Error: msg})
	}

	now := time.Now().UTC()
	levels := make([]Level, 0, len(nls.Levels))
	for _, nl := range nls.Levels {
		lvl := Level{
			ID:          uuid.NewString(),
			TrainingID:  trainingID,
			LevelNumber: nl.LevelNumber,
			Title:       nl.Title,
			Scenes:      nl.Scenes,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if nl.ApprovalThreshold != nil {
			lvl.ApprovalThreshold = null.Float64From(*nl.ApprovalThreshold)
		}
		if issues := lvl.Graph().Check(); len(issues) > 0 {
			svc.log.Warn("level graph has structural issues", map[string]interface{}{
				"training": trainingID,
				"level":    lvl.LevelNumber,
				"issues":   issues,
			})
		}
		levels = append(levels, lvl)
	}
	return svc.repo.CreateLevels(ctx, levels...)
}

func (svc *Service) GetLevel(ctx context.Context, id string) (Level, error) {
	return svc.repo.GetLevel(ctx, id)
}

func (svc *Service) scoredLevel(ctx context.Context, levelID string) (Level, scored, error) {
	lvl, err := svc.repo.GetLevel(ctx, levelID)
	if err != nil {
		return Level{}, scored{}, err
	}

	svc.mutex.RLock()
	sc, ok := svc.cache[levelID]
	svc.mutex.RUnlock()
	if ok {
		return lvl, sc, nil
	}

	g := lvl.Graph()
	sc = scored{graph: g, optimal: scenario.FindOptimalPath(g)}
	switch sc.optimal.Stop {
	case scenario.StopDeadEnd:
		svc.log.Warn("optimal path stopped at an unknown scene", map[string]interface{}{
			"level": levelID,
			"scene": sc.optimal.DeadEnd.Int,
		})
	case scenario.StopCycle:
		svc.log.Warn("optimal path stopped on a cycle", map[string]interface{}{"level": levelID})
	case scenario.StopEmpty:
		svc.log.Warn("level has no scenes", map[string]interface{}{"level": levelID})
	}

	svc.mutex.Lock()
	svc.cache[levelID] = sc
	svc.mutex.Unlock()
	return lvl, sc, nil
}

// OptimalPath returns the greedy best path of a level, computed once per level.
func (svc *Service) OptimalPath(ctx context.Context, levelID string) (scenario.OptimalPathResult, error) {
	_, sc, err := svc.scoredLevel(ctx, levelID)
	if err != nil {
		return scenario.OptimalPathResult{}, err
	}
	return sc.optimal, nil
}

// SubmitAttempt scores a completed run of a level and records it.
func (svc *Service) SubmitAttempt(ctx context.Context, levelID string, na NewAttempt) (Attempt, error) {
	if err := na.Validate(); err != nil {
		return Attempt{}, err
	}
	lvl, sc, err := svc.scoredLevel(ctx, levelID)
	if err != nil {
		return Attempt{}, err
	}

	var opts []scenario.ScoreOption
	if svc.conf.DistinctScenes {
		opts = append(opts, scenario.WithDistinctScenes())
	}
	if svc.conf.SceneBonus {
		opts = append(opts, scenario.WithSceneBonus())
	}
	attempt := scenario.Attempt{Responses: na.Responses}
	threshold := lvl.Threshold(svc.conf.ApprovalThreshold)

	return svc.repo.CreateAttempt(ctx, Attempt{
		ID:        uuid.NewString(),
		LevelID:   levelID,
		UserID:    na.UserID,
		Responses: na.Responses,
		Result:    scenario.Evaluate(sc.graph, sc.optimal.TotalMaxScore, attempt, threshold, opts...),
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) ListAttempts(ctx context.Context, levelID, userID string, ordering ...core.DBOrdering) ([]Attempt, error) {
	if _, err := svc.repo.GetLevel(ctx, levelID); err != nil {
		return nil, err
	}
	return svc.repo.QueryAttempts(ctx, levelID, core.CleanString(userID), ordering...)
}

// BestAttempt returns the user's best attempt of a level: approved first, then by percentage,
// then by earned points; the earliest attempt wins ties.
func (svc *Service) BestAttempt(ctx context.Context, levelID, userID string) (Attempt, error) {
	attempts, err := svc.ListAttempts(ctx, levelID, userID)
	if err != nil {
		return Attempt{}, err
	}
	results := make([]scenario.ApprovalResult, 0, len(attempts))
	for _, a := range attempts {
		results = append(results, a.Result)
	}
	idx, ok := scenario.BestAttempt(results)
	if !ok {
		return Attempt{}, ErrNoAttempts
	}
	return attempts[idx], nil
}

func (svc *Service) SubmitRevision(ctx context.Context, nr NewRevision) (Revision, error) {
	if err := nr.Validate(); err != nil {
		return Revision{}, err
	}
	if _, err := svc.repo.GetTraining(ctx, core.NormalizeID(nr.Training)); err != nil {
		return Revision{}, err
	}
	return svc.repo.CreateRevision(ctx, Revision{
		ID:        uuid.NewString(),
		Training:  nr.Training,
		Title:     nr.Title,
		Comment:   nr.Comment,
		Status:    RevisionPending,
		CreatedAt: time.Now().UTC(),
	})
}

// ApproveRevision applies a pending revision to the training it was proposed for.
func (svc *Service) ApproveRevision(ctx context.Context, trainingID, revisionID string) (Training, error) {
	t, err := svc.repo.GetTraining(ctx, trainingID)
	if err != nil {
		return Training{}, err
	}
	rev, err := svc.repo.GetRevision(ctx, revisionID)
	if err != nil {
		return Training{}, err
	}
	if !core.SameID(rev.Training, t) {
		return Training{}, core.NewValidationError(ErrRevisionMismatch)
	}
	if rev.Status != RevisionPending {
		return Training{}, core.NewValidationError(ErrRevisionReviewed)
	}

	now := time.Now().UTC()
	t.Title = rev.Title
	t.UpdatedAt = now
	if t, err = svc.repo.UpdateTraining(ctx, t); err != nil {
		return Training{}, errors.Wrap(err, "updating training")
	}

	rev.Status = RevisionApproved
	rev.ReviewedAt = null.TimeFrom(now)
	if _, err = svc.repo.UpdateRevision(ctx, rev); err != nil {
		return Training{}, errors.Wrap(err, "updating revision")
	}
	return t, nil
}
