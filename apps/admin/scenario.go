package main

import (
	"fmt"

	"github.com/trezcool/masomo/training/core/scenario"
)

type gradeParams struct {
	levelPath   string
	attemptPath string
	threshold   float64 // < 0: level's or app's
	distinct    bool
	bonus       bool
	json        bool
}

// check prints the structural issues of a level document.
func (cli *commandLine) check(levelPath string) error {
	doc, err := scenario.LoadLevelDocument(levelPath)
	if err != nil {
		return err
	}
	issues := doc.Graph().Check()
	if len(issues) == 0 {
		fmt.Fprintf(cli.out, "level %d: %d scenes, no issues\n", doc.LevelNumber, len(doc.Scenes))
		return nil
	}
	for _, issue := range issues {
		fmt.Fprintf(cli.out, "[%s] %s\n", issue.Kind, issue.Message)
	}
	return errCheckFailed
}

func (cli *commandLine) optimalPath(levelPath string, asJSON bool) error {
	doc, err := scenario.LoadLevelDocument(levelPath)
	if err != nil {
		return err
	}
	res := scenario.FindOptimalPath(doc.Graph())
	if cli.jsonOutput(asJSON) {
		return cli.printJSON(res)
	}

	for _, step := range res.Path {
		if step.BestOption == nil {
			fmt.Fprintf(cli.out, "scene %d: end (%d)\n", step.SceneID, step.TotalPoints)
			continue
		}
		fmt.Fprintf(cli.out, "scene %d: %q %+d (%d)\n", step.SceneID, step.BestOption.Description, step.ScenePoints, step.TotalPoints)
	}
	fmt.Fprintf(cli.out, "max score: %d, visited: %d, unvisited: %d, stop: %s\n",
		res.TotalMaxScore, res.VisitedScenes, res.UnvisitedScenes, res.Stop)
	if res.DeadEnd.Valid {
		fmt.Fprintf(cli.out, "dead end: scene %d does not exist\n", res.DeadEnd.Int)
	}
	return nil
}

func (cli *commandLine) grade(p gradeParams) error {
	doc, err := scenario.LoadLevelDocument(p.levelPath)
	if err != nil {
		return err
	}
	attempt, err := scenario.LoadAttempt(p.attemptPath)
	if err != nil {
		return err
	}

	threshold := p.threshold
	if threshold < 0 {
		threshold = cli.conf.Scoring.ApprovalThreshold
		if doc.ApprovalThreshold != nil {
			threshold = *doc.ApprovalThreshold
		}
	}
	var opts []scenario.ScoreOption
	if p.distinct {
		opts = append(opts, scenario.WithDistinctScenes())
	}
	if p.bonus {
		opts = append(opts, scenario.WithSceneBonus())
	}

	g := doc.Graph()
	res := scenario.Evaluate(g, scenario.FindOptimalPath(g).TotalMaxScore, attempt, threshold, opts...)
	if cli.jsonOutput(p.json) {
		return cli.printJSON(res)
	}

	for _, so := range res.SelectedOptions {
		fmt.Fprintf(cli.out, "scene %d: %q %+d\n", so.IDScene, so.Description, so.Points)
	}
	verdict := "not approved"
	if res.Approved {
		verdict = "approved"
	}
	fmt.Fprintf(cli.out, "%d/%d points, %.2f%%: %s (threshold %.2f%%)\n",
		res.EarnedPoints, res.TotalPoints, res.Percentage, verdict, threshold)
	return nil
}
