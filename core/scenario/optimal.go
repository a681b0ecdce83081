package scenario

import (
	"sort"

	"github.com/volatiletech/null/v8"
)

// StopReason tells why a walk through the graph ended.
type StopReason string

const (
	StopEmpty     StopReason = "empty"      // no scenes defined
	StopTerminal  StopReason = "terminal"   // reached a lastOne scene
	StopNoOptions StopReason = "no_options" // scene without options
	StopNoNext    StopReason = "no_next"    // best option leads nowhere
	StopDeadEnd   StopReason = "dead_end"   // best option leads to an unknown scene
	StopCycle     StopReason = "cycle"      // scene visited twice
)

type (
	PathStep struct {
		SceneID      int      `json:"sceneId"`
		Description  string   `json:"description"`
		Terminal     bool     `json:"terminal"`
		BestOption   *Option  `json:"bestOption,omitempty"`
		Alternatives []Option `json:"alternatives"`
		ScenePoints  int      `json:"scenePoints"`
		TotalPoints  int      `json:"totalPoints"` // running total up to this step
	}

	OptimalPathResult struct {
		Path            []PathStep `json:"path"`
		TotalMaxScore   int        `json:"totalMaxScore"`
		VisitedScenes   int        `json:"visitedScenes"`
		UnvisitedScenes int        `json:"unvisitedScenes"`
		Stop            StopReason `json:"stop"`
		DeadEnd         null.Int   `json:"deadEnd"` // unknown scene id, when Stop is StopDeadEnd
	}
)

// FindOptimalPath walks the graph from its entry scene, always taking the option with the most points.
// It is greedy: the locally best option is taken without looking at what it leads to,
// so TotalMaxScore is the score of that walk, not of the best path through the whole graph.
//
// Each scene adds max(0, bestPoints+bonus); option-less scenes add max(0, bonus) and end the walk;
// lastOne scenes add nothing and end the walk. The walk also ends on an already visited scene,
// on a missing next scene and on a best option without next.
func FindOptimalPath(g *SceneGraph) OptimalPathResult {
	res := OptimalPathResult{Path: make([]PathStep, 0, g.Len())}

	current, ok := g.Entry()
	if !ok {
		res.Stop = StopEmpty
		return res
	}

	visited := make(map[int]bool, g.Len())
	for {
		if visited[current.IDScene] {
			res.Stop = StopCycle
			break
		}
		visited[current.IDScene] = true

		step := PathStep{
			SceneID:      current.IDScene,
			Description:  current.Description,
			Alternatives: []Option{},
		}

		if current.LastOne {
			step.Terminal = true
			step.TotalPoints = res.TotalMaxScore
			res.Path = append(res.Path, step)
			res.Stop = StopTerminal
			break
		}

		if len(current.Options) == 0 {
			step.ScenePoints = floorZero(current.Bonus)
			res.TotalMaxScore += step.ScenePoints
			step.TotalPoints = res.TotalMaxScore
			res.Path = append(res.Path, step)
			res.Stop = StopNoOptions
			break
		}

		bestIdx := bestOption(current.Options)
		best := current.Options[bestIdx]
		step.BestOption = &best
		step.Alternatives = alternatives(current.Options, bestIdx)
		step.ScenePoints = floorZero(best.Points + current.Bonus)
		res.TotalMaxScore += step.ScenePoints
		step.TotalPoints = res.TotalMaxScore
		res.Path = append(res.Path, step)

		if !best.Next.Valid {
			res.Stop = StopNoNext
			break
		}
		next, ok := g.Scene(best.Next.Int)
		if !ok {
			res.Stop = StopDeadEnd
			res.DeadEnd = best.Next
			break
		}
		current = next
	}

	res.VisitedScenes = len(visited)
	res.UnvisitedScenes = g.Len() - len(visited)
	return res
}

// FindOptimalPathFromScenes is FindOptimalPath over a graph built from scenes.
func FindOptimalPathFromScenes(scenes []Scene) OptimalPathResult {
	return FindOptimalPath(NewSceneGraph(scenes))
}

// bestOption returns the index of the option with the most points; the first one wins ties.
func bestOption(opts []Option) int {
	best := 0
	for i := 1; i < len(opts); i++ {
		if opts[i].Points > opts[best].Points {
			best = i
		}
	}
	return best
}

// alternatives returns every option but the best one, by points descending.
func alternatives(opts []Option, bestIdx int) []Option {
	alts := make([]Option, 0, len(opts)-1)
	for i, opt := range opts {
		if i != bestIdx {
			alts = append(alts, opt)
		}
	}
	sort.SliceStable(alts, func(i, j int) bool { return alts[i].Points > alts[j].Points })
	return alts
}

func floorZero(points int) int {
	if points < 0 {
		return 0
	}
	return points
}
