// Package workflow sequences the upload, generate, regenerate and validate
// operations of an editing session.
package workflow

import (
	"fmt"

	"image4marketing/internal/domain"
)

// Stage is the position of a session in the editing pipeline. It is never
// stored; Derive rebuilds it from persisted state.
type Stage string

const (
	StageUpload   Stage = "upload"
	StageGenerate Stage = "generate"
	StageModify   Stage = "modify"
	StageChat     Stage = "chat"
	StageFinal    Stage = "final"
)

// Action is an externally visible workflow operation.
type Action string

const (
	ActionUpload     Action = "upload"
	ActionGenerate   Action = "generate"
	ActionSelect     Action = "select"
	ActionRegenerate Action = "regenerate"
	ActionValidate   Action = "validate"
	ActionReset      Action = "reset"
)

// Stages lists every stage in pipeline order.
func Stages() []Stage {
	return []Stage{StageUpload, StageGenerate, StageModify, StageChat, StageFinal}
}

// Next returns the stage reached by applying action in stage from. Illegal
// transitions fail with domain.ErrConflict.
func Next(from Stage, action Action) (Stage, error) {
	if action == ActionReset {
		return StageUpload, nil
	}
	switch {
	case from == StageUpload && action == ActionUpload:
		return StageGenerate, nil
	case from == StageGenerate && action == ActionGenerate:
		return StageModify, nil
	case (from == StageModify || from == StageChat) && action == ActionSelect:
		return StageChat, nil
	case (from == StageModify || from == StageChat) && action == ActionRegenerate:
		return from, nil
	case from == StageChat && action == ActionValidate:
		return StageFinal, nil
	}
	return from, domain.Conflict(fmt.Sprintf("cannot %s a session in the %s stage", action, from))
}

// Derive rebuilds the stage of a persisted session. A nil session has not
// been generated yet.
func Derive(s *domain.Session) Stage {
	switch {
	case s == nil:
		return StageUpload
	case len(s.Images) == 0:
		return StageGenerate
	}
	if _, ok := s.FinalImage(); ok {
		return StageFinal
	}
	if s.SelectedImageID != "" {
		return StageChat
	}
	return StageModify
}
