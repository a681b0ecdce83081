package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo/training/core/training"
)

type (
	DB struct {
		training *trainingTables
	}

	trainingTables struct {
		sync.RWMutex
		trainings map[string]*training.Training
		levels    map[string]*training.Level
		attempts  map[string]*training.Attempt
		revisions map[string]*training.Revision

		attemptSeq map[string]int // {attemptID: insertion order}
		seq        int
	}
)

func Open() (*DB, error) {
	db := &DB{
		training: &trainingTables{
			trainings:  make(map[string]*training.Training),
			levels:     make(map[string]*training.Level),
			attempts:   make(map[string]*training.Attempt),
			revisions:  make(map[string]*training.Revision),
			attemptSeq: make(map[string]int),
		},
	}
	return db, nil
}
