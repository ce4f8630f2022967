// internal/prompt/compiler.go

// Package prompt turns a scene list into the instruction sent to the
// generative-text service and formats what comes back.
package prompt

import (
	"fmt"
	"strings"

	apperrors "github.com/allencreed/Sora-Prompt-Tool/internal/errors"
	"github.com/allencreed/Sora-Prompt-Tool/internal/llm"
	"github.com/allencreed/Sora-Prompt-Tool/internal/models"
)

// JSONMIMEType is the response MIME type requested in JSON mode.
const JSONMIMEType = "application/json"

// MsgScenesIncomplete is the validation message shown to the user.
const MsgScenesIncomplete = "Please complete the description and style for all scenes."

// Compiled is a request ready for the API gateway.
type Compiled struct {
	Format           models.OutputFormat `json:"format"`
	Instruction      string              `json:"instruction"`
	Schema           *llm.Schema         `json:"schema,omitempty"`
	ResponseMIMEType string              `json:"response_mime_type,omitempty"`
	SceneCount       int                 `json:"scene_count"`
}

// Request converts the compiled prompt into a completion request for model.
func (c *Compiled) Request(model string) llm.CompletionRequest {
	return llm.CompletionRequest{
		Prompt:           c.Instruction,
		Model:            model,
		ResponseMIMEType: c.ResponseMIMEType,
		ResponseSchema:   c.Schema,
	}
}

// Validate fails when any scene lacks a description or a style.
func Validate(scenes []models.Scene) error {
	if len(scenes) == 0 {
		return apperrors.NewValidationError("At least one scene is required.", nil)
	}
	for i, scene := range scenes {
		if !scene.Complete() {
			return apperrors.NewValidationError(MsgScenesIncomplete,
				fmt.Errorf("scene %d: description and style required for all scenes", i+1))
		}
	}
	return nil
}

// Compile validates scenes and wraps their breakdown in the template for
// format. The result depends only on its inputs.
func Compile(scenes []models.Scene, format models.OutputFormat) (*Compiled, error) {
	if err := Validate(scenes); err != nil {
		return nil, err
	}

	breakdown := Breakdown(scenes)
	switch format {
	case models.FormatJSON:
		return &Compiled{
			Format:           format,
			Instruction:      fmt.Sprintf(jsonTemplate, breakdown),
			Schema:           ResponseSchema(),
			ResponseMIMEType: JSONMIMEType,
			SceneCount:       len(scenes),
		}, nil
	case models.FormatMarkdown, "":
		return &Compiled{
			Format:      models.FormatMarkdown,
			Instruction: fmt.Sprintf(markdownTemplate, breakdown),
			SceneCount:  len(scenes),
		}, nil
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("Unknown output format %q.", format), nil)
	}
}

// Breakdown serialises the scenes into numbered blocks separated by "---".
func Breakdown(scenes []models.Scene) string {
	var b strings.Builder
	for i, scene := range scenes {
		writeBlock(&b, i, scene)
	}
	return b.String()
}

func writeBlock(b *strings.Builder, index int, scene models.Scene) {
	b.WriteString("\n---\n")
	fmt.Fprintf(b, "Scene %d:\n", index+1)

	// the transition line is left blank for the first scene and when unset
	if index > 0 && scene.Transition != "" {
		fmt.Fprintf(b, "- Transition from previous scene: \"%s\"", scene.Transition)
	}
	b.WriteString("\n")

	writeField(b, "Description", scene.Description)
	writeField(b, "Style", scene.Style)
	writeField(b, "Time of Day", orNotSpecified(scene.TimeOfDay))
	writeField(b, "Lighting", orNotSpecified(scene.Lighting))
	writeField(b, "Shot Size", orNotSpecified(scene.ShotSize))
	writeField(b, "Camera Angle", orNotSpecified(scene.Angle))
	writeField(b, "Camera Movement", orNotSpecified(scene.Movement))
	writeField(b, "Actor Movement", orNotSpecified(scene.ActorMovement))

	if scene.Dialogue != "" {
		fmt.Fprintf(b, "- Dialogue: \"%s\"", strings.ReplaceAll(scene.Dialogue, `"`, "'"))
	}
	b.WriteString("\n")
}

// writeField quotes value verbatim; %q would escape non-ASCII text.
func writeField(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "- %s: \"%s\"\n", label, value)
}

func orNotSpecified(v string) string {
	if v == "" {
		return models.NotSpecified
	}
	return v
}
