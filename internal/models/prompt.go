package models

// PromptScene is one item of a JSON-mode response.
type PromptScene struct {
	SceneNumber       int            `json:"scene_number"`
	VisualDescription string         `json:"visual_description"`
	Cinematography    Cinematography `json:"cinematography"`
	Actions           []string       `json:"actions"`
	Dialogue          string         `json:"dialogue,omitempty"`
}

// Cinematography groups the camera shot and mood of a scene.
type Cinematography struct {
	CameraShot string `json:"camera_shot"`
	Mood       string `json:"mood"`
}
