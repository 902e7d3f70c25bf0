package home

import "github.com/UnknownOlympus/nimbus/internal/models"

// UiState is the state of the weather home screen. Exactly one variant holds at a time:
// Loading, Success or Error.
type UiState interface {
	isUiState()
}

// Loading is published at the start of every fetch cycle.
type Loading struct{}

// Success holds both results of a fetch cycle.
type Success struct {
	Weather models.Weather
}

// Error means at least one fetch of the cycle failed. The cause is not part of the state.
type Error struct{}

func (Loading) isUiState() {}
func (Success) isUiState() {}
func (Error) isUiState()   {}

// StateName returns a stable lowercase name for a state, used in logs and JSON views.
func StateName(state UiState) string {
	switch state.(type) {
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}
