package usercontext

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an id is unknown to the store.
	ErrNotFound = errors.New("context item not found")

	// ErrInvalidRange is returned when a confidence or priority is out of bounds.
	ErrInvalidRange = errors.New("value out of range")

	// ErrStoreUnavailable wraps transport or persistence failures.
	ErrStoreUnavailable = errors.New("context store unavailable")

	// ErrInvalidInput is returned when a required field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
)

const (
	MinConfidence = 0.0
	MaxConfidence = 1.0
	MinPriority   = 1
	MaxPriority   = 5

	DefaultConfidence = 0.5
	DefaultPriority   = 3
)

// ValidateConfidence rejects scores outside [0.0, 1.0].
func ValidateConfidence(score float64) error {
	if score < MinConfidence || score > MaxConfidence {
		return fmt.Errorf("%w: confidence must be between 0.0 and 1.0, got %g", ErrInvalidRange, score)
	}
	return nil
}

// ValidatePriority rejects priorities outside [1, 5].
func ValidatePriority(priority int) error {
	if priority < MinPriority || priority > MaxPriority {
		return fmt.Errorf("%w: priority must be between 1 and 5, got %d", ErrInvalidRange, priority)
	}
	return nil
}

// ClampConfidence forces a score into [0.0, 1.0].
func ClampConfidence(score float64) float64 {
	if score < MinConfidence {
		return MinConfidence
	}
	if score > MaxConfidence {
		return MaxConfidence
	}
	return score
}

// ClampPriority forces a priority into [1, 5].
func ClampPriority(priority int) int {
	if priority < MinPriority {
		return MinPriority
	}
	if priority > MaxPriority {
		return MaxPriority
	}
	return priority
}

func requireField(value, name string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, name)
	}
	return nil
}
