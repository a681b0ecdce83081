package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/trezcool/masomo/training/core"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp        = errors.New("help provided")
	errCheckFailed = errors.New("level has structural issues")
)

type commandLine struct {
	conf *core.Config
	out  io.Writer

	// run against the app database, opened on demand
	migrate  func(command string, args ...string) error
	createDB func() error
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createdb                        - create the app database user & database")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]          - run a goose command (up, down, status, up-to VERSION, ...)")
	fmt.Fprintln(cli.out, "  check -level FILE               - report structural issues of a level document")
	fmt.Fprintln(cli.out, "  optimalpath -level FILE [-json] - print the optimal path of a level document")
	fmt.Fprintln(cli.out, "  grade -level FILE -attempt FILE - score an attempt (-threshold N, -distinct, -bonus, -json)")
}

// jsonOutput reports whether results should be printed as JSON: when asked, or when stdout is not a terminal.
func (cli *commandLine) jsonOutput(asked bool) bool {
	if asked {
		return true
	}
	f, ok := cli.out.(*os.File)
	return !ok || !isTerminalFunc(int(f.Fd()))
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	checkCmd := flag.NewFlagSet("check", flag.ContinueOnError)
	checkLevel := checkCmd.String("level", "", "The level document (.json, .yaml or .yml).")

	optimalCmd := flag.NewFlagSet("optimalpath", flag.ContinueOnError)
	optimalLevel := optimalCmd.String("level", "", "The level document (.json, .yaml or .yml).")
	optimalJSON := optimalCmd.Bool("json", false, "Print the result as JSON.")

	gradeCmd := flag.NewFlagSet("grade", flag.ContinueOnError)
	gradeLevel := gradeCmd.String("level", "", "The level document (.json, .yaml or .yml).")
	gradeAttempt := gradeCmd.String("attempt", "", "The attempt (JSON).")
	gradeThreshold := gradeCmd.Float64("threshold", -1, "The approval threshold in percent. Defaults to the level's, then to the app's.")
	gradeDistinct := gradeCmd.Bool("distinct", cli.conf.Scoring.DistinctScenes, "Score each scene once.")
	gradeBonus := gradeCmd.Bool("bonus", cli.conf.Scoring.SceneBonus, "Add scene bonuses to the credited scenes.")
	gradeJSON := gradeCmd.Bool("json", false, "Print the result as JSON.")

	for _, fs := range []*flag.FlagSet{checkCmd, optimalCmd, gradeCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "createdb":
		return cli.createDB()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2], args[3:]...)
	case "check":
		if err := checkCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *checkLevel == "" {
			checkCmd.Usage()
			return errHelp
		}
		return cli.check(*checkLevel)
	case "optimalpath":
		if err := optimalCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *optimalLevel == "" {
			optimalCmd.Usage()
			return errHelp
		}
		return cli.optimalPath(*optimalLevel, *optimalJSON)
	case "grade":
		if err := gradeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *gradeLevel == "" || *gradeAttempt == "" {
			gradeCmd.Usage()
			return errHelp
		}
		return cli.grade(gradeParams{
			levelPath:   *gradeLevel,
			attemptPath: *gradeAttempt,
			threshold:   *gradeThreshold,
			distinct:    *gradeDistinct,
			bonus:       *gradeBonus,
			json:        *gradeJSON,
		})
	default:
		cli.printUsage()
		return errHelp
	}
}
