package state

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ActionType enumerates the gameplay action kinds.
type ActionType string

const (
	// ActionMove shifts the acting player's position by a delta.
	ActionMove ActionType = "move"
	// ActionAttack reduces a target player's health.
	ActionAttack ActionType = "attack"
	// ActionHeal restores the acting player's health.
	ActionHeal ActionType = "heal"
)

const (
	// DefaultDamage is applied by an attack that names no damage value.
	DefaultDamage = 10
	// HealAmount is the fixed health restored by a heal.
	HealAmount = 20
	// MaxHealth is the upper health bound.
	MaxHealth = 100
	// MinHealth is the lower health bound. Damage clamps here; it never
	// drives health negative.
	MinHealth = 0
)

// ErrUnknownAction is returned when decoding an action with an unrecognized
// type tag.
var ErrUnknownAction = errors.New("state: unknown action type")

// Action is a closed tagged variant: exactly one of the three kinds, with
// the fields relevant to that kind populated.
type Action struct {
	Type     ActionType
	DX       int
	DY       int
	TargetID string
	Damage   int
}

type actionJSON struct {
	Type     ActionType `json:"type"`
	DX       *int       `json:"dx,omitempty"`
	DY       *int       `json:"dy,omitempty"`
	TargetID string     `json:"targetId,omitempty"`
	Damage   *int       `json:"damage,omitempty"`
}

// UnmarshalJSON decodes an action, rejecting unknown type tags and applying
// the default damage when an attack names none.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw actionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case ActionMove:
		a.Type = ActionMove
		if raw.DX != nil {
			a.DX = *raw.DX
		}
		if raw.DY != nil {
			a.DY = *raw.DY
		}
	case ActionAttack:
		a.Type = ActionAttack
		a.TargetID = raw.TargetID
		a.Damage = DefaultDamage
		if raw.Damage != nil {
			a.Damage = *raw.Damage
		}
	case ActionHeal:
		a.Type = ActionHeal
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, raw.Type)
	}
	return nil
}

// MarshalJSON encodes the action with only the fields of its kind.
func (a Action) MarshalJSON() ([]byte, error) {
	raw := actionJSON{Type: a.Type}
	switch a.Type {
	case ActionMove:
		raw.DX = &a.DX
		raw.DY = &a.DY
	case ActionAttack:
		raw.TargetID = a.TargetID
		raw.Damage = &a.Damage
	case ActionHeal:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
	return json.Marshal(raw)
}
