// internal/models/scene.go
package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// NotSpecified is rendered in place of an unset optional field.
const NotSpecified = "Not specified"

// DefaultTransition is applied to scenes added after the first one.
const DefaultTransition = "Cut"

// Scene is one user-authored unit of the video breakdown.
// Optional enumerated fields use the empty string as the unset value.
type Scene struct {
	ID            int64  `json:"id" yaml:"id"`
	Description   string `json:"description" yaml:"description"`
	Style         string `json:"style" yaml:"style"`
	ShotSize      string `json:"shot_size" yaml:"shot_size"`
	Angle         string `json:"angle" yaml:"angle"`
	Movement      string `json:"movement" yaml:"movement"`
	ActorMovement string `json:"actor_movement" yaml:"actor_movement"`
	TimeOfDay     string `json:"time_of_day" yaml:"time_of_day"`
	Lighting      string `json:"lighting" yaml:"lighting"`
	Transition    string `json:"transition" yaml:"transition"`
	Dialogue      string `json:"dialogue" yaml:"dialogue"`
}

// Complete reports whether the scene has the fields required for submission.
func (s Scene) Complete() bool {
	return s.Description != "" && s.Style != ""
}

// SceneField names a single editable field of a Scene.
type SceneField string

const (
	FieldDescription   SceneField = "description"
	FieldStyle         SceneField = "style"
	FieldShotSize      SceneField = "shot_size"
	FieldAngle         SceneField = "angle"
	FieldMovement      SceneField = "movement"
	FieldActorMovement SceneField = "actor_movement"
	FieldTimeOfDay     SceneField = "time_of_day"
	FieldLighting      SceneField = "lighting"
	FieldTransition    SceneField = "transition"
	FieldDialogue      SceneField = "dialogue"
)

// SceneFields lists every editable field in form order.
var SceneFields = []SceneField{
	FieldDescription,
	FieldStyle,
	FieldShotSize,
	FieldAngle,
	FieldMovement,
	FieldActorMovement,
	FieldTimeOfDay,
	FieldLighting,
	FieldTransition,
	FieldDialogue,
}

// camelCase spellings used by the browser form
var fieldAliases = map[string]SceneField{
	"shotSize":      FieldShotSize,
	"actorMovement": FieldActorMovement,
	"timeOfDay":     FieldTimeOfDay,
}

// ParseSceneField resolves a field name, accepting snake_case and camelCase.
func ParseSceneField(name string) (SceneField, error) {
	field := SceneField(strings.TrimSpace(name))
	if slices.Contains(SceneFields, field) {
		return field, nil
	}
	if alias, ok := fieldAliases[string(field)]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("unknown scene field %q", name)
}

// FreeText reports whether the field accepts arbitrary text.
func (f SceneField) FreeText() bool {
	return f == FieldDescription || f == FieldDialogue
}

// Options returns the enumerated set for the field, or nil for free-text fields.
func (f SceneField) Options() []string {
	switch f {
	case FieldStyle:
		return Styles
	case FieldShotSize:
		return ShotSizes
	case FieldAngle:
		return Angles
	case FieldMovement:
		return Movements
	case FieldActorMovement:
		return ActorMovements
	case FieldTimeOfDay:
		return TimesOfDay
	case FieldLighting:
		return LightingOptions
	case FieldTransition:
		return Transitions
	default:
		return nil
	}
}

// Set replaces a single field, leaving all others untouched. Enumerated
// fields accept a member of their set or the empty string.
func (s *Scene) Set(field SceneField, value string) error {
	if !field.FreeText() && value != "" && !slices.Contains(field.Options(), value) {
		return fmt.Errorf("invalid value %q for %s", value, field)
	}
	return s.assign(field, value)
}

func (s *Scene) assign(field SceneField, value string) error {
	switch field {
	case FieldDescription:
		s.Description = value
	case FieldStyle:
		s.Style = value
	case FieldShotSize:
		s.ShotSize = value
	case FieldAngle:
		s.Angle = value
	case FieldMovement:
		s.Movement = value
	case FieldActorMovement:
		s.ActorMovement = value
	case FieldTimeOfDay:
		s.TimeOfDay = value
	case FieldLighting:
		s.Lighting = value
	case FieldTransition:
		s.Transition = value
	case FieldDialogue:
		s.Dialogue = value
	default:
		return fmt.Errorf("unknown scene field %q", field)
	}
	return nil
}

// Get returns the current value of a field.
func (s Scene) Get(field SceneField) string {
	switch field {
	case FieldDescription:
		return s.Description
	case FieldStyle:
		return s.Style
	case FieldShotSize:
		return s.ShotSize
	case FieldAngle:
		return s.Angle
	case FieldMovement:
		return s.Movement
	case FieldActorMovement:
		return s.ActorMovement
	case FieldTimeOfDay:
		return s.TimeOfDay
	case FieldLighting:
		return s.Lighting
	case FieldTransition:
		return s.Transition
	case FieldDialogue:
		return s.Dialogue
	default:
		return ""
	}
}

// Validate checks every enumerated field against its set. It does not
// enforce the required fields; see Complete.
func (s Scene) Validate() error {
	for _, field := range SceneFields {
		if field.FreeText() {
			continue
		}
		if v := s.Get(field); v != "" && !slices.Contains(field.Options(), v) {
			return fmt.Errorf("invalid value %q for %s", v, field)
		}
	}
	return nil
}

// UnmarshalJSON accepts the camelCase field names as well and rejects
// unknown keys. Null clears a field. Enumerated values are checked by
// Validate, not here.
func (s *Scene) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	values := make(map[string]*string, len(raw))
	for key, msg := range raw {
		if key == "id" {
			var id int64
			if err := json.Unmarshal(msg, &id); err != nil {
				return fmt.Errorf("scene id: %w", err)
			}
			s.ID = id
			continue
		}
		var v *string
		if err := json.Unmarshal(msg, &v); err != nil {
			return fmt.Errorf("scene field %q must be text", key)
		}
		values[key] = v
	}
	return s.applyFields(values)
}

// UnmarshalYAML mirrors UnmarshalJSON for scene files.
func (s *Scene) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var values map[string]*string
	if err := unmarshal(&values); err != nil {
		return err
	}
	if v, ok := values["id"]; ok {
		delete(values, "id")
		if v != nil {
			id, err := strconv.ParseInt(*v, 10, 64)
			if err != nil {
				return fmt.Errorf("scene id %q is not a number", *v)
			}
			s.ID = id
		}
	}
	return s.applyFields(values)
}

func (s *Scene) applyFields(values map[string]*string) error {
	var unknown []string
	for key, v := range values {
		field, err := ParseSceneField(key)
		if err != nil {
			unknown = append(unknown, key)
			continue
		}
		value := ""
		if v != nil {
			value = *v
		}
		if err := s.assign(field, value); err != nil {
			return err
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown scene field(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}
