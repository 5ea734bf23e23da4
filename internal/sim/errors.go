/*
Package sim
File: errors.go
Description:
    Error values returned by the engine. Callers match them with
    errors.Is; the typed errors carry the offending field or level.
*/

package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a turn decision is rejected. State is never mutated.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig is returned by New when a level configuration cannot be simulated.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrGameOver is returned when a decision is submitted after the final turn.
	ErrGameOver = errors.New("game over")
)

// InputError describes a rejected decision field.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func NewInputError(field, message string) *InputError {
	return &InputError{Field: field, Message: message}
}

// ConfigError describes why a level configuration was refused.
type ConfigError struct {
	Level   int
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config for level %d: %s", e.Level, e.Message)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func NewConfigError(level int, message string) *ConfigError {
	return &ConfigError{Level: level, Message: message}
}
