package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/masomo/training/apps/api/echo"
	"github.com/trezcool/masomo/training/core"
	"github.com/trezcool/masomo/training/core/training"
	logsvc "github.com/trezcool/masomo/training/services/logger"
	"github.com/trezcool/masomo/training/storage/database"
	inmemdb "github.com/trezcool/masomo/training/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo/training/storage/database/sqlx"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// set up loggers
	logger := logsvc.New(log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	dbLogger := logsvc.New(log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up storage
	repo, closeDB, err := setUpStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
		return
	}
	defer func() {
		if err = closeDB(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	trainingSvc := training.NewService(repo, logger, conf.Scoring)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build), map[string]interface{}{
		"env":               conf.Env,
		"storage":           conf.Database.Engine,
		"approvalThreshold": conf.Scoring.ApprovalThreshold,
		"distinctScenes":    conf.Scoring.DistinctScenes,
	})
	defer logger.Info("Application stopped")

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		TrainingSvc: trainingSvc,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpStorage opens the configured storage engine and returns its training repository.
func setUpStorage(conf *core.Config) (training.Repository, func() error, error) {
	if conf.Database.Engine == database.EngineInMem {
		db, err := inmemdb.Open()
		if err != nil {
			return nil, nil, err
		}
		return inmemdb.NewTrainingRepository(db), func() error { return nil }, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return nil, nil, err
	}
	return sqlxrepos.NewTrainingRepository(db), db.Close, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
