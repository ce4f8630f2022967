// internal/prompt/schema.go
package prompt

import "github.com/allencreed/Sora-Prompt-Tool/internal/llm"

// ResponseSchema describes the JSON-mode response: an array with one
// object per scene.
func ResponseSchema() *llm.Schema {
	return &llm.Schema{
		Type: llm.TypeArray,
		Items: &llm.Schema{
			Type: llm.TypeObject,
			Properties: map[string]*llm.Schema{
				"scene_number": {Type: llm.TypeInteger},
				"visual_description": {
					Type:        llm.TypeString,
					Description: "Prose description including style, lighting, time of day.",
				},
				"cinematography": {
					Type: llm.TypeObject,
					Properties: map[string]*llm.Schema{
						"camera_shot": {
							Type:        llm.TypeString,
							Description: "Combined shot size, angle, and movement.",
						},
						"mood": {Type: llm.TypeString},
					},
					PropertyOrder: []string{"camera_shot", "mood"},
				},
				"actions": {
					Type:  llm.TypeArray,
					Items: &llm.Schema{Type: llm.TypeString, Description: "List of distinct actions."},
				},
				"dialogue": {
					Type:        llm.TypeString,
					Description: "Dialogue or 'No dialogue specified'.",
				},
			},
			PropertyOrder: []string{"scene_number", "visual_description", "cinematography", "actions", "dialogue"},
			Required:      []string{"scene_number", "visual_description", "cinematography", "actions"},
		},
	}
}
