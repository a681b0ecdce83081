package scenario

import (
	"github.com/trezcool/masomo/training/core"
)

type (
	// Match is the choice an Extractor recognised in a record.
	Match struct {
		Points      int
		OptionID    string
		Description string
		Identified  bool // an option (or option object) was recognised, not only points
	}

	// Extractor recognises the chosen option of a record for a scene.
	Extractor func(r Response, sc *Scene) (Match, bool)

	// SelectedOption is one audit entry of a scored attempt.
	SelectedOption struct {
		IDScene     int    `json:"idScene"`
		OptionID    string `json:"optionId,omitempty"`
		Description string `json:"description,omitempty"`
		Points      int    `json:"points"`
	}

	UserScore struct {
		EarnedPoints    int              `json:"earnedPoints"`
		SelectedOptions []SelectedOption `json:"selectedOptions"`
	}

	scoreOptions struct {
		distinctScenes bool
		sceneBonus     bool
		extractors     []Extractor
	}

	ScoreOption func(*scoreOptions)
)

// Extractors are tried in this order; the first match wins.
var Extractors = []Extractor{
	ByPoints,
	ByOptionIndex,
	ByOptionID,
	ByOptionDescription,
	BySelectedOption,
	ByNext,
}

// WithDistinctScenes credits each scene once: later records for an already scored scene are ignored.
func WithDistinctScenes() ScoreOption {
	return func(o *scoreOptions) { o.distinctScenes = true }
}

// WithSceneBonus adds the scene bonus to every credited scene and floors the scene at 0,
// the way FindOptimalPath values a scene.
func WithSceneBonus() ScoreOption {
	return func(o *scoreOptions) { o.sceneBonus = true }
}

// WithExtractors replaces the default extractor chain.
func WithExtractors(extractors ...Extractor) ScoreOption {
	return func(o *scoreOptions) { o.extractors = extractors }
}

// CalculateUserScore adds up the points of every record of the attempt, in submission order.
// Records flagged terminal, records of unknown or lastOne scenes and records without a recognisable
// choice add nothing. A record adds the points of its match as is, negative ones included.
// Records are not de-duplicated unless WithDistinctScenes is given: callers clamp the total.
func CalculateUserScore(g *SceneGraph, a Attempt, opts ...ScoreOption) UserScore {
	o := scoreOptions{extractors: Extractors}
	for _, opt := range opts {
		opt(&o)
	}

	score := UserScore{SelectedOptions: make([]SelectedOption, 0, len(a.Responses))}
	scored := make(map[int]bool)
	for _, r := range a.Responses {
		if r.Terminal() {
			continue
		}
		sc, ok := g.resolveScene(r)
		if !ok || sc.LastOne {
			continue
		}
		if o.distinctScenes && scored[sc.IDScene] {
			continue
		}

		m, ok := extract(o.extractors, r, sc)
		if !ok {
			continue
		}
		scored[sc.IDScene] = true

		points := m.Points
		if o.sceneBonus {
			points = floorZero(points + sc.Bonus)
		}
		score.EarnedPoints += points
		if m.Identified {
			score.SelectedOptions = append(score.SelectedOptions, SelectedOption{
				IDScene:     sc.IDScene,
				OptionID:    m.OptionID,
				Description: m.Description,
				Points:      points,
			})
		}
	}
	return score
}

func extract(extractors []Extractor, r Response, sc *Scene) (Match, bool) {
	for _, ex := range extractors {
		if m, ok := ex(r, sc); ok {
			return m, true
		}
	}
	return Match{}, false
}

func optionMatch(opt Option) Match {
	return Match{
		Points:      opt.Points,
		OptionID:    opt.ID,
		Description: opt.Description,
		Identified:  true,
	}
}

// ByPoints credits an explicit `points` field.
func ByPoints(r Response, _ *Scene) (Match, bool) {
	if !r.Points.Valid {
		return Match{}, false
	}
	return Match{Points: r.Points.Int}, true
}

// ByOptionIndex credits `selectedOptionIndex` in the scene's options.
func ByOptionIndex(r Response, sc *Scene) (Match, bool) {
	if !r.SelectedOptionIndex.Valid {
		return Match{}, false
	}
	idx := r.SelectedOptionIndex.Int
	if idx < 0 || idx >= len(sc.Options) {
		return Match{}, false
	}
	return optionMatch(sc.Options[idx]), true
}

// ByOptionID credits the option whose id is `selectedOptionId`.
func ByOptionID(r Response, sc *Scene) (Match, bool) {
	id := core.NormalizeID(r.SelectedOptionID)
	if id == "" {
		return Match{}, false
	}
	for _, opt := range sc.Options {
		if opt.ID == id {
			return optionMatch(opt), true
		}
	}
	return Match{}, false
}

// ByOptionDescription credits the option whose description is exactly `selectedOptionDescription`.
func ByOptionDescription(r Response, sc *Scene) (Match, bool) {
	if !r.SelectedOptionDescription.Valid {
		return Match{}, false
	}
	for _, opt := range sc.Options {
		if opt.Description == r.SelectedOptionDescription.String {
			return optionMatch(opt), true
		}
	}
	return Match{}, false
}

// BySelectedOption credits the points carried by a `selectedOption` object.
func BySelectedOption(r Response, _ *Scene) (Match, bool) {
	so := r.SelectedOption
	if so == nil || !so.Points.Valid {
		return Match{}, false
	}
	return Match{
		Points:      so.Points.Int,
		OptionID:    core.NormalizeID(so.ID),
		Description: so.Description,
		Identified:  true,
	}, true
}

// ByNext credits the first option leading to the record's `next` scene.
func ByNext(r Response, sc *Scene) (Match, bool) {
	if !r.Next.Set {
		return Match{}, false
	}
	for _, opt := range sc.Options {
		if r.Next.Matches(opt.Next) {
			return optionMatch(opt), true
		}
	}
	return Match{}, false
}
