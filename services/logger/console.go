package logsvc

import (
	"log"
	"os"

	"github.com/trezcool/masomo/training/core"
)

// ConsoleLogger only prints, for local runs and the admin CLI.
type ConsoleLogger struct {
	std   *log.Logger
	debug bool
	exit  func(code int) // mockable
}

var _ core.Logger = (*ConsoleLogger)(nil)

func NewConsoleLogger(std *log.Logger, debug bool) *ConsoleLogger {
	return &ConsoleLogger{std: std, debug: debug, exit: os.Exit}
}

func printTo(std *log.Logger, level, msg string, args []interface{}) {
	std.Printf("%s: %s\n", level, msg)
	for _, arg := range args {
		if p, ok := arg.(Person); ok {
			std.Printf("  user: %s\n", p.ID)
			continue
		}
		std.Printf("  %+v\n", arg)
	}
}

func (l ConsoleLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		printTo(l.std, "DEBUG", msg, args)
	}
}

func (l ConsoleLogger) Info(msg string, args ...interface{}) {
	printTo(l.std, "INFO", msg, args)
}

func (l ConsoleLogger) Warn(msg string, args ...interface{}) {
	printTo(l.std, "WARN", msg, args)
}

func (l ConsoleLogger) Error(msg string, args ...interface{}) {
	printTo(l.std, "ERROR", msg, args)
}

func (l ConsoleLogger) Fatal(msg string, args ...interface{}) {
	printTo(l.std, "FATAL", msg, args)
	l.exit(1)
}

// New picks the app logger: Rollbar when a token is configured, the console otherwise.
func New(std *log.Logger, conf *core.Config) core.Logger {
	if conf.RollbarToken != "" && !conf.TestMode {
		return NewRollbarLogger(std, conf)
	}
	return NewConsoleLogger(std, conf.Debug)
}
