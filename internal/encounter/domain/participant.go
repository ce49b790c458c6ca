package domain

import (
	"strings"

	"github.com/louisbranch/wildgrid/internal/encounter/grid"
	apperrors "github.com/louisbranch/wildgrid/internal/platform/errors"
)

// ParticipantKind describes what a scene participant is backed by.
type ParticipantKind int

const (
	// ParticipantKindUnspecified represents an invalid participant kind.
	ParticipantKindUnspecified ParticipantKind = iota
	// ParticipantKindTrainer indicates a player trainer.
	ParticipantKindTrainer
	// ParticipantKindCreature indicates a creature, wild or owned.
	ParticipantKindCreature
	// ParticipantKindNPC indicates a non-player character.
	ParticipantKindNPC
)

func (k ParticipantKind) String() string {
	switch k {
	case ParticipantKindTrainer:
		return "trainer"
	case ParticipantKindCreature:
		return "creature"
	case ParticipantKindNPC:
		return "npc"
	default:
		return "unspecified"
	}
}

// ParseParticipantKind resolves a wire value to a ParticipantKind.
func ParseParticipantKind(value string) ParticipantKind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trainer":
		return ParticipantKindTrainer
	case "creature":
		return ParticipantKindCreature
	case "npc":
		return ParticipantKindNPC
	default:
		return ParticipantKindUnspecified
	}
}

// Alignment refines creature and NPC participants. Trainers are always friendly.
type Alignment int

const (
	// AlignmentUnspecified represents an invalid alignment value.
	AlignmentUnspecified Alignment = iota
	// AlignmentFriendly indicates an ally of the trainers.
	AlignmentFriendly
	// AlignmentEnemy indicates a hostile participant.
	AlignmentEnemy
	// AlignmentNeutral indicates a bystander.
	AlignmentNeutral
)

func (a Alignment) String() string {
	switch a {
	case AlignmentFriendly:
		return "friendly"
	case AlignmentEnemy:
		return "enemy"
	case AlignmentNeutral:
		return "neutral"
	default:
		return "unspecified"
	}
}

// ParseAlignment resolves a wire value to an Alignment.
func ParseAlignment(value string) Alignment {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "friendly":
		return AlignmentFriendly
	case "enemy":
		return AlignmentEnemy
	case "neutral":
		return AlignmentNeutral
	default:
		return AlignmentUnspecified
	}
}

// Participant is one trainer, creature, or NPC placed on a scene grid.
//
// The ID is the underlying trainer/creature/NPC record ID, never generated
// independently: a participant is a placement of an existing record, not an
// entity of its own.
type Participant struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Kind        ParticipantKind `json:"kind"`
	Alignment   Alignment       `json:"alignment"`
	CurrentHP   int             `json:"current_hp"`
	Speed       int             `json:"speed"`
	Position    grid.Position   `json:"position"`
}

// NormalizeParticipant trims and validates a participant placement.
func NormalizeParticipant(p Participant) (Participant, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return Participant{}, apperrors.New(apperrors.CodeParticipantEmptyID, "participant id is required")
	}
	if p.Kind == ParticipantKindUnspecified {
		return Participant{}, apperrors.New(apperrors.CodeParticipantKindInvalid, "participant kind is required")
	}
	if p.Kind == ParticipantKindTrainer {
		p.Alignment = AlignmentFriendly
	} else if p.Alignment == AlignmentUnspecified {
		return Participant{}, apperrors.New(apperrors.CodeParticipantKindInvalid, "participant alignment is required")
	}
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	return p, nil
}
