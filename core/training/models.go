package training

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo/training/core"
	"github.com/trezcool/masomo/training/core/scenario"
)

// Revision statuses
const (
	RevisionPending  = "pending"
	RevisionApproved = "approved"
)

type Training struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Levels    []Level   `json:"levels,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

var _ core.Identifiable = Training{}

func (t Training) Identifier() interface{} { return t.ID }

// Level is a course unit holding one scenario graph.
type Level struct {
	ID                string           `json:"id"`
	TrainingID        string           `json:"trainingId"`
	LevelNumber       int              `json:"levelNumber"`
	Title             string           `json:"title"`
	ApprovalThreshold null.Float64     `json:"approvalThreshold"` // null: app default
	Scenes            []scenario.Scene `json:"scenes"`
	CreatedAt         time.Time        `json:"created_at"` // UTC
	UpdatedAt         time.Time        `json:"updated_at"` // UTC
}

func (l Level) Graph() *scenario.SceneGraph {
	return scenario.NewSceneGraph(l.Scenes)
}

// Threshold is the level's own pass mark, or def when it has none.
func (l Level) Threshold(def float64) float64 {
	if l.ApprovalThreshold.Valid {
		return l.ApprovalThreshold.Float64
	}
	return def
}

// Attempt is one scored run of a user through a level.
type Attempt struct {
	ID        string                  `json:"id"`
	LevelID   string                  `json:"levelId"`
	UserID    string                  `json:"userId"`
	Responses []scenario.Response     `json:"responses"`
	Result    scenario.ApprovalResult `json:"result"`
	CreatedAt time.Time               `json:"created_at"` // UTC
}

// Revision is a pending content change of a Training.
// Training is the training reference as sent by the client: a plain id or an `_id` document.
type Revision struct {
	ID         string      `json:"id"`
	Training   interface{} `json:"training"`
	Title      string      `json:"title"`
	Comment    string      `json:"comment"`
	Status     string      `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`  // UTC
	ReviewedAt null.Time   `json:"reviewed_at"` // UTC
}

// NewTraining contains information needed to create a new Training.
type NewTraining struct {
	Title string `json:"title" validate:"notblank"`
}

func (nt *NewTraining) Validate() error {
	nt.Title = core.CleanString(nt.Title)
	return core.Validate.Struct(nt)
}

// NewLevel contains information needed to create a new Level.
type NewLevel struct {
	LevelNumber       int              `json:"levelNumber" validate:"min=1"`
	Title             string           `json:"title" validate:"notblank"`
	ApprovalThreshold *float64         `json:"approvalThreshold" validate:"omitempty,min=0,max=100"`
	Scenes            []scenario.Scene `json:"scenes" validate:"required,min=1"`
}

// NewLevelFromDocument maps an authored level document to a NewLevel.
func NewLevelFromDocument(doc scenario.LevelDocument) NewLevel {
	return NewLevel{
		LevelNumber:       doc.LevelNumber,
		Title:             doc.Title,
		ApprovalThreshold: doc.ApprovalThreshold,
		Scenes:            doc.Scenes,
	}
}

type NewLevels struct {
	Levels []NewLevel `json:"levels" validate:"required,min=1,dive"`
}

func (nls *NewLevels) Validate() error {
	for i := range nls.Levels {
		nls.Levels[i].Title = core.CleanString(nls.Levels[i].Title)
	}
	return core.Validate.Struct(nls)
}

// NewAttempt is an attempt submitted by the student-facing flow.
type NewAttempt struct {
	UserID    string              `json:"userId" validate:"notblank"`
	Responses []scenario.Response `json:"responses" validate:"required"`
}

func (na *NewAttempt) Validate() error {
	na.UserID = core.CleanString(na.UserID)
	return core.Validate.Struct(na)
}

// NewRevision contains information needed to propose a Training change.
type NewRevision struct {
	Training interface{} `json:"training" validate:"required"`
	Title    string      `json:"title" validate:"notblank"`
	Comment  string      `json:"comment"`
}

func (nr *NewRevision) Validate() error {
	nr.Title = core.CleanString(nr.Title)
	nr.Comment = core.CleanString(nr.Comment)
	return core.Validate.Struct(nr)
}
