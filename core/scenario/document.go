package scenario

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LevelDocument is the authored document of a level, as stored by the training management.
type LevelDocument struct {
	LevelNumber       int      `json:"levelNumber" yaml:"levelNumber"`
	Title             string   `json:"title" yaml:"title"`
	ApprovalThreshold *float64 `json:"approvalThreshold,omitempty" yaml:"approvalThreshold,omitempty"`
	Scenes            []Scene  `json:"scenes" yaml:"scenes"`
}

func (doc LevelDocument) Graph() *SceneGraph {
	return NewSceneGraph(doc.Scenes)
}

// DecodeLevelDocument decodes a JSON or YAML level document.
// YAML is converted to JSON first, so both formats share the JSON field rules (e.g. null `next`).
func DecodeLevelDocument(data []byte, isYAML bool) (LevelDocument, error) {
	var doc LevelDocument
	if isYAML {
		var raw interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return doc, errors.Wrap(err, "parsing level YAML")
		}
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return doc, errors.Wrap(err, "converting level YAML")
		}
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, errors.Wrap(err, "parsing level JSON")
	}
	return doc, nil
}

// LoadLevelDocument reads a level document; `.yaml` and `.yml` files are read as YAML.
func LoadLevelDocument(path string) (LevelDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LevelDocument{}, errors.Wrap(err, "reading level document")
	}
	ext := strings.ToLower(filepath.Ext(path))
	return DecodeLevelDocument(data, ext == ".yaml" || ext == ".yml")
}

// LoadAttempt reads a JSON attempt: {"responses": [...]} or a bare array of records.
func LoadAttempt(path string) (Attempt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attempt{}, errors.Wrap(err, "reading attempt")
	}
	a, err := ParseAttempt(data)
	if err != nil {
		return Attempt{}, errors.Wrap(err, "parsing attempt")
	}
	return a, nil
}
