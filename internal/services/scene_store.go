// internal/services/scene_store.go
package services

import (
	"fmt"

	apperrors "github.com/allencreed/Sora-Prompt-Tool/internal/errors"
	"github.com/allencreed/Sora-Prompt-Tool/internal/models"
)

// SceneStore holds the ordered scene list of one workspace. It is not safe
// for concurrent use; SessionService serialises access per session.
type SceneStore struct {
	scenes []models.Scene
	lastID int64
}

// NewSceneStore starts with a single blank scene without a transition.
func NewSceneStore() *SceneStore {
	s := &SceneStore{}
	s.Append("")
	return s
}

// NewSceneStoreFrom loads an existing list, e.g. from a scene file. Scenes
// without an id get a fresh one; enumerated values are checked.
func NewSceneStoreFrom(scenes []models.Scene) (*SceneStore, error) {
	if len(scenes) == 0 {
		return nil, apperrors.NewValidationError("At least one scene is required.", nil)
	}

	s := &SceneStore{scenes: make([]models.Scene, 0, len(scenes))}
	seen := make(map[int64]bool, len(scenes))
	for _, scene := range scenes {
		if scene.ID > s.lastID {
			s.lastID = scene.ID
		}
	}
	for i, scene := range scenes {
		if err := scene.Validate(); err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("Scene %d is invalid.", i+1), err)
		}
		if scene.ID <= 0 || seen[scene.ID] {
			s.lastID++
			scene.ID = s.lastID
		}
		seen[scene.ID] = true
		s.scenes = append(s.scenes, scene)
	}
	return s, nil
}

// Append adds a scene with every field unset except transition.
func (s *SceneStore) Append(transition string) models.Scene {
	s.lastID++
	scene := models.Scene{ID: s.lastID, Transition: transition}
	s.scenes = append(s.scenes, scene)
	return scene
}

// AddScene is the "add scene" action: new scenes cut from the previous one.
func (s *SceneStore) AddScene() models.Scene {
	return s.Append(models.DefaultTransition)
}

// Remove deletes the scene at index. Removing the sole scene is a no-op.
func (s *SceneStore) Remove(index int) error {
	if len(s.scenes) <= 1 {
		return nil
	}
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.scenes = append(s.scenes[:index], s.scenes[index+1:]...)
	return nil
}

// Update replaces one field of the scene at index.
func (s *SceneStore) Update(index int, field models.SceneField, value string) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	if err := s.scenes[index].Set(field, value); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("Cannot update scene %d.", index+1), err)
	}
	return nil
}

// Scenes returns a copy of the list in order.
func (s *SceneStore) Scenes() []models.Scene {
	out := make([]models.Scene, len(s.scenes))
	copy(out, s.scenes)
	return out
}

func (s *SceneStore) Len() int {
	return len(s.scenes)
}

// Complete reports whether every scene can be submitted.
func (s *SceneStore) Complete() bool {
	for _, scene := range s.scenes {
		if !scene.Complete() {
			return false
		}
	}
	return true
}

func (s *SceneStore) checkIndex(index int) error {
	if index < 0 || index >= len(s.scenes) {
		return apperrors.NewValidationError(
			fmt.Sprintf("Scene index %d is out of range.", index),
			fmt.Errorf("index %d not in [0,%d)", index, len(s.scenes)))
	}
	return nil
}
