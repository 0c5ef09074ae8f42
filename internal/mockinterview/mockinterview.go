// Package mockinterview describes the practice interview types and validates
// start requests.
package mockinterview

import (
	"errors"
	"fmt"
	"strings"
)

// Type is a mock interview category.
type Type struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

const (
	TypeTechnical  = "technical"
	TypeBehavioral = "behavioral"

	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"

	DefaultDifficulty = DifficultyMedium
)

var (
	ErrTypeRequired      = errors.New("interview type is required")
	ErrUnknownType       = errors.New("unknown interview type")
	ErrUnknownDifficulty = errors.New("unknown difficulty level")
)

var types = []Type{
	{
		ID:          TypeTechnical,
		Name:        "Technical Interview",
		Description: "Practice coding problems, algorithms, and system design questions.",
	},
	{
		ID:          TypeBehavioral,
		Name:        "Behavioral Interview",
		Description: "Work on communication skills, past experiences, and situational questions.",
	},
}

var difficulties = []string{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Types returns the catalogue in display order.
func Types() []Type {
	out := make([]Type, len(types))
	copy(out, types)
	return out
}

// Difficulties returns the selectable difficulty levels, easiest first.
func Difficulties() []string {
	out := make([]string, len(difficulties))
	copy(out, difficulties)
	return out
}

// StartRequest is the body of a "start mock interview" call.
type StartRequest struct {
	Type       string `json:"type"`
	Difficulty string `json:"difficulty"`
}

// Normalize lower-cases and trims the request and fills the default
// difficulty, then validates it.
func (r StartRequest) Normalize() (StartRequest, error) {
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	r.Difficulty = strings.ToLower(strings.TrimSpace(r.Difficulty))

	if r.Type == "" {
		return r, ErrTypeRequired
	}
	if !knownType(r.Type) {
		return r, fmt.Errorf("%w %q", ErrUnknownType, r.Type)
	}
	if r.Difficulty == "" {
		r.Difficulty = DefaultDifficulty
	}
	if !knownDifficulty(r.Difficulty) {
		return r, fmt.Errorf("%w %q", ErrUnknownDifficulty, r.Difficulty)
	}
	return r, nil
}

func knownType(id string) bool {
	for _, t := range types {
		if t.ID == id {
			return true
		}
	}
	return false
}

func knownDifficulty(d string) bool {
	for _, v := range difficulties {
		if v == d {
			return true
		}
	}
	return false
}
