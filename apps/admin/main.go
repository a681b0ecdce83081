package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/masomo/training/core"
	logsvc "github.com/trezcool/masomo/training/services/logger"
)

func main() {
	logger := logsvc.NewConsoleLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), false)

	conf, err := core.NewConfig()
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading config: %v", err), err)
		return
	}

	migrator := &dbMigrator{conf: conf}

	// start CLI
	cli := commandLine{
		conf:     conf,
		out:      os.Stdout,
		migrate:  migrator.migrate,
		createDB: migrator.createDB,
	}
	err = cli.run(os.Args)
	if cErr := migrator.close(); cErr != nil {
		logger.Error("closing database", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}
