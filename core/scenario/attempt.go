package scenario

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo/training/core"
)

type (
	// SceneRef is a scene reference that remembers whether it was sent at all:
	// `"next": null` is a reference to "no scene", a missing `next` is no reference.
	SceneRef struct {
		Set bool
		Ref null.Int
	}

	// ChosenOption is an option object echoed back by the client, with its own points.
	ChosenOption struct {
		ID          interface{} `json:"_id,omitempty"`
		Description string      `json:"description"`
		Points      null.Int    `json:"points"`
		Next        SceneRef    `json:"next"`
	}

	// Response is the record of one scene of an attempt.
	// Clients encode the choice in different ways; only one of them is expected per record.
	Response struct {
		IDScene null.Int    `json:"idScene"`
		SceneID null.Int    `json:"sceneId"`
		ID      interface{} `json:"id,omitempty"`

		LastOne   bool `json:"lastOne,omitempty"`
		IsLastOne bool `json:"isLastOne,omitempty"`

		Points                    null.Int      `json:"points"`
		SelectedOptionIndex       null.Int      `json:"selectedOptionIndex"`
		SelectedOptionID          interface{}   `json:"selectedOptionId,omitempty"`
		SelectedOptionDescription null.String   `json:"selectedOptionDescription"`
		SelectedOption            *ChosenOption `json:"selectedOption,omitempty"`
		Next                      SceneRef      `json:"next"`
	}

	// Attempt is one user's run through a level, in submission order.
	Attempt struct {
		Responses []Response `json:"responses"`
	}
)

// UnmarshalJSON never fails: a reference that is neither null nor a scene number is no reference.
func (r *SceneRef) UnmarshalJSON(data []byte) error {
	*r = looseRef(data)
	return nil
}

func (r SceneRef) MarshalJSON() ([]byte, error) {
	return r.Ref.MarshalJSON()
}

// Matches reports whether the reference points at the same scene as next (or both at none).
func (r SceneRef) Matches(next null.Int) bool {
	if !r.Set {
		return false
	}
	if !r.Ref.Valid || !next.Valid {
		return r.Ref.Valid == next.Valid
	}
	return r.Ref.Int == next.Int
}

// NextRef is a SceneRef to scene id.
func NextRef(id int) SceneRef { return SceneRef{Set: true, Ref: null.IntFrom(id)} }

// NoNextRef is a SceneRef to "no further scene".
func NoNextRef() SceneRef { return SceneRef{Set: true} }

// UnmarshalJSON decodes the option field by field, like Response.
func (co *ChosenOption) UnmarshalJSON(data []byte) error {
	fields, _ := objectFields(data)
	*co = newChosenOption(fields)
	return nil
}

func newChosenOption(fields map[string]json.RawMessage) ChosenOption {
	return ChosenOption{
		ID:          looseValue(fields["_id"]),
		Description: looseString(fields["description"]).String,
		Points:      looseInt(fields["points"]),
		Next:        looseRef(fields["next"]),
	}
}

// UnmarshalJSON decodes a record field by field. Clients are loose with types: numbers may come
// as numeric strings or integral floats. A field of any other type is left unset and a record
// that is not an object is empty, so a bad record scores nothing instead of failing the attempt.
func (r *Response) UnmarshalJSON(data []byte) error {
	fields, _ := objectFields(data)
	*r = Response{
		IDScene:                   looseInt(fields["idScene"]),
		SceneID:                   looseInt(fields["sceneId"]),
		ID:                        looseValue(fields["id"]),
		LastOne:                   looseBool(fields["lastOne"]),
		IsLastOne:                 looseBool(fields["isLastOne"]),
		Points:                    looseInt(fields["points"]),
		SelectedOptionIndex:       looseInt(fields["selectedOptionIndex"]),
		SelectedOptionID:          looseValue(fields["selectedOptionId"]),
		SelectedOptionDescription: looseString(fields["selectedOptionDescription"]),
		Next:                      looseRef(fields["next"]),
	}
	if sel, ok := objectFields(fields["selectedOption"]); ok {
		co := newChosenOption(sel)
		r.SelectedOption = &co
	}
	return nil
}

// objectFields splits a JSON object into its raw fields; ok is false for anything else.
func objectFields(data json.RawMessage) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func isNull(data json.RawMessage) bool {
	return string(bytes.TrimSpace(data)) == "null"
}

// looseInt reads a JSON number or numeric string holding an integer.
func looseInt(data json.RawMessage) null.Int {
	s := string(bytes.TrimSpace(data))
	if s == "" || s == "null" {
		return null.Int{}
	}
	if unquoted, err := strconv.Unquote(s); err == nil && strings.HasPrefix(s, `"`) {
		s = strings.TrimSpace(unquoted)
	}
	if n, err := strconv.Atoi(s); err == nil {
		return null.IntFrom(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && math.Abs(f) <= math.MaxInt32 {
		return null.IntFrom(int(f))
	}
	return null.Int{}
}

func looseString(data json.RawMessage) null.String {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || isNull(data) {
		return null.String{}
	}
	return null.StringFrom(s)
}

func looseBool(data json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b, _ = strconv.ParseBool(strings.TrimSpace(s))
	}
	return b
}

func looseValue(data json.RawMessage) interface{} {
	var v interface{}
	if len(data) == 0 || json.Unmarshal(data, &v) != nil {
		return nil
	}
	return v
}

// looseRef reads `next`: null is a reference to no scene, a scene number a reference to it.
func looseRef(data json.RawMessage) SceneRef {
	if len(data) == 0 {
		return SceneRef{}
	}
	if isNull(data) {
		return NoNextRef()
	}
	if n := looseInt(data); n.Valid {
		return NextRef(n.Int)
	}
	return SceneRef{}
}

// Terminal reports whether the client flagged this record as the last scene.
func (r Response) Terminal() bool { return r.LastOne || r.IsLastOne }

// ParseAttempt decodes an attempt sent either as {"responses": [...]} or as a bare array of records.
func ParseAttempt(data []byte) (Attempt, error) {
	var a Attempt
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err := json.Unmarshal(trimmed, &a.Responses)
		return a, err
	}
	err := json.Unmarshal(trimmed, &a)
	return a, err
}

// resolveScene finds the scene of a record by idScene, then sceneId, then the record id.
func (g *SceneGraph) resolveScene(r Response) (*Scene, bool) {
	if r.IDScene.Valid {
		if sc, ok := g.Scene(r.IDScene.Int); ok {
			return sc, true
		}
	}
	if r.SceneID.Valid {
		if sc, ok := g.Scene(r.SceneID.Int); ok {
			return sc, true
		}
	}
	if id := core.NormalizeID(r.ID); id != "" {
		if n, err := strconv.Atoi(id); err == nil {
			return g.Scene(n)
		}
	}
	return nil, false
}
