package main

import (
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomo/training/core"
	"github.com/trezcool/masomo/training/storage/database"
)

var (
	openDBFunc        = database.Open          // mockable
	runMigrationsFunc = database.RunMigrations // mockable
)

// dbMigrator runs goose commands, opening the app database on first use.
type dbMigrator struct {
	conf *core.Config
	db   *sqlx.DB
}

func (m *dbMigrator) migrate(command string, args ...string) error {
	if m.db == nil {
		db, err := openDBFunc(m.conf)
		if err != nil {
			return err
		}
		m.db = db
	}
	return runMigrationsFunc(m.db, command, args...)
}

func (m *dbMigrator) createDB() error {
	return database.CreateIfNotExist(m.conf)
}

func (m *dbMigrator) close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}
