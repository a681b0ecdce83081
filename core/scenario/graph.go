// Package scenario scores branching video scenarios: the greedy optimal path of a scene graph,
// a user's score for a submitted attempt, approval against a threshold and attempt ranking.
// Everything in this package is pure and safe for concurrent use on a shared SceneGraph.
package scenario

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/volatiletech/null/v8"
)

// EntrySceneID is the scene a walk starts from, when the graph has it.
const EntrySceneID = 1

type (
	// Option is a choice offered by a Scene.
	Option struct {
		ID          string   `json:"_id,omitempty"`
		Description string   `json:"description"`
		Points      int      `json:"points"`
		Next        null.Int `json:"next"` // null: no further scene
	}

	// Scene is one node of a level's decision graph.
	Scene struct {
		IDScene     int             `json:"idScene"`
		Description string          `json:"description"`
		Options     []Option        `json:"options"`
		Bonus       int             `json:"bonus"`
		LastOne     bool            `json:"lastOne"`
		Media       json.RawMessage `json:"media,omitempty"`
	}

	// SceneGraph is the read-only scene/option graph of one level.
	SceneGraph struct {
		scenes []Scene
		index  map[int]*Scene
	}
)

// NewSceneGraph indexes scenes by IDScene. When an id is repeated, the first authored scene wins.
// The scenes are copied: the graph never changes after construction.
func NewSceneGraph(scenes []Scene) *SceneGraph {
	g := &SceneGraph{
		scenes: make([]Scene, len(scenes)),
		index:  make(map[int]*Scene, len(scenes)),
	}
	copy(g.scenes, scenes)
	for i := range g.scenes {
		sc := &g.scenes[i]
		if _, ok := g.index[sc.IDScene]; !ok {
			g.index[sc.IDScene] = sc
		}
	}
	return g
}

// Empty reports whether the graph has no scenes defined.
func (g *SceneGraph) Empty() bool { return g == nil || len(g.scenes) == 0 }

// Len is the number of distinct scene ids.
func (g *SceneGraph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.index)
}

// Scenes returns the scenes in authoring order.
func (g *SceneGraph) Scenes() []Scene {
	if g == nil {
		return nil
	}
	scenes := make([]Scene, len(g.scenes))
	copy(scenes, g.scenes)
	return scenes
}

func (g *SceneGraph) Scene(id int) (*Scene, bool) {
	if g == nil {
		return nil, false
	}
	sc, ok := g.index[id]
	return sc, ok
}

// Entry returns the scene with EntrySceneID or, if absent, the first authored scene.
func (g *SceneGraph) Entry() (*Scene, bool) {
	if g.Empty() {
		return nil, false
	}
	if sc, ok := g.index[EntrySceneID]; ok {
		return sc, true
	}
	return &g.scenes[0], true
}

// IssueKind classifies a structural problem found by SceneGraph.Check.
type IssueKind string

const (
	IssueDuplicateScene IssueKind = "duplicate_scene"
	IssueDanglingNext   IssueKind = "dangling_next"
	IssueUnreachable    IssueKind = "unreachable"
)

type Issue struct {
	SceneID int       `json:"sceneId"`
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
}

// Check reports structural problems of the graph. None of them prevents scoring:
// walks simply stop where the graph is broken.
func (g *SceneGraph) Check() []Issue {
	var issues []Issue
	if g.Empty() {
		return issues
	}

	seen := make(map[int]bool, len(g.scenes))
	for _, sc := range g.scenes {
		if seen[sc.IDScene] {
			issues = append(issues, Issue{
				SceneID: sc.IDScene,
				Kind:    IssueDuplicateScene,
				Message: fmt.Sprintf("scene %d is defined more than once", sc.IDScene),
			})
		}
		seen[sc.IDScene] = true

		for i, opt := range sc.Options {
			if opt.Next.Valid {
				if _, ok := g.index[opt.Next.Int]; !ok {
					issues = append(issues, Issue{
						SceneID: sc.IDScene,
						Kind:    IssueDanglingNext,
						Message: fmt.Sprintf("option %d of scene %d leads to unknown scene %d", i, sc.IDScene, opt.Next.Int),
					})
				}
			}
		}
	}

	reachable := g.reachable()
	unreachable := make([]int, 0)
	for id := range g.index {
		if !reachable[id] {
			unreachable = append(unreachable, id)
		}
	}
	sort.Ints(unreachable)
	for _, id := range unreachable {
		issues = append(issues, Issue{
			SceneID: id,
			Kind:    IssueUnreachable,
			Message: fmt.Sprintf("scene %d cannot be reached from the entry scene", id),
		})
	}
	return issues
}

// reachable walks every option transition breadth-first from the entry scene.
func (g *SceneGraph) reachable() map[int]bool {
	entry, _ := g.Entry()
	visited := map[int]bool{entry.IDScene: true}
	queue := []int{entry.IDScene}
	for len(queue) > 0 {
		sc := g.index[queue[0]]
		queue = queue[1:]
		for _, opt := range sc.Options {
			if !opt.Next.Valid || visited[opt.Next.Int] {
				continue
			}
			if _, ok := g.index[opt.Next.Int]; ok {
				visited[opt.Next.Int] = true
				queue = append(queue, opt.Next.Int)
			}
		}
	}
	return visited
}
