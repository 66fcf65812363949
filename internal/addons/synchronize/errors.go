package synchronize

import "fmt"

// Phases of a synchronization
const (
	PhaseDetect        = "detect"
	PhaseMemoryImport  = "memory_import"
	PhaseRegenerate    = "regenerate"
	PhaseAutoTranslate = "auto_translate"
)

// Error reports the component and phase a synchronization failed in.
type Error struct {
	Component string
	Phase     string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("synchronize %s: %s: %v", e.Component, e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
