// Package capture implements capture-chance resolution for wild creatures.
//
// Every ball maps to one declarative rule. A rule either applies a fixed
// modifier or checks a single situational condition (species types, scene
// environment, weight class, dex history, or status) and applies a bonus
// when it holds, a neutral penalty otherwise. Lower modifiers make capture
// easier: the final check is a d100 roll plus the modifier, and the attempt
// succeeds when the check lands under the species catch rate.
package capture

// Status describes a creature's persistent condition as far as capture cares.
type Status string

// StatusAsleep is the sleep-like condition the dream ball rewards.
const StatusAsleep Status = "asleep"

// MinHeavyWeightClass is the lowest weight class the heavy ball rewards.
const MinHeavyWeightClass = 5

const (
	// ModifierGuaranteed makes the check land under any catch rate of 1 or more.
	ModifierGuaranteed = -255
	// ModifierImpossible pushes the check past any legal catch rate.
	ModifierImpossible = 1000

	neutralPenalty = 5
)

// Target carries the creature fields the capture engine reads.
type Target struct {
	SpeciesTypes []string
	WeightClass  int
	CurrentHP    int
	Status       Status
	DexNumber    int
}

// RuleKind selects which condition a ball rule checks.
type RuleKind int

const (
	// RuleFixed applies Value unconditionally.
	RuleFixed RuleKind = iota
	// RuleTypes applies Value when the target's types intersect Types.
	RuleTypes
	// RuleEnvironment applies Value when the scene has the Environment tag.
	RuleEnvironment
	// RuleWeight applies Value when the target's weight class is at least MinWeightClass.
	RuleWeight
	// RuleCaughtBefore applies Value when the thrower has caught the species before.
	RuleCaughtBefore
	// RuleStatus applies Value when the target has the Status condition.
	RuleStatus
)

// Rule is one declarative capture-modifier rule.
type Rule struct {
	Kind           RuleKind
	Value          int    // modifier when the condition holds (or always, for RuleFixed)
	Default        int    // modifier when the condition does not hold
	Types          []string
	Environment    string
	MinWeightClass int
	Status         Status
	AllowDowned    bool // permit attempts against targets with no HP left
}

// rules maps each known ball to its modifier rule.
var rules = map[Ball]Rule{
	BallBasic:  {Kind: RuleFixed, Value: 0},
	BallGreat:  {Kind: RuleFixed, Value: -5},
	BallUltra:  {Kind: RuleFixed, Value: -10},
	BallMaster: {Kind: RuleFixed, Value: ModifierGuaranteed},
	BallPark:   {Kind: RuleFixed, Value: -20, AllowDowned: true},

	BallNet:    {Kind: RuleTypes, Value: -12, Default: neutralPenalty, Types: []string{"water", "bug"}},
	BallDive:   {Kind: RuleEnvironment, Value: -15, Default: neutralPenalty, Environment: "underwater"},
	BallDusk:   {Kind: RuleEnvironment, Value: -12, Default: neutralPenalty, Environment: "cave"},
	BallHeavy:  {Kind: RuleWeight, Value: -15, Default: neutralPenalty, MinWeightClass: MinHeavyWeightClass},
	BallRepeat: {Kind: RuleCaughtBefore, Value: -10, Default: neutralPenalty},
	BallDream:  {Kind: RuleStatus, Value: -15, Default: neutralPenalty, Status: StatusAsleep},
}

// ComputeModifier returns the capture-check modifier for one attempt.
//
// caughtBefore is the thrower's dex history for the target species, resolved
// by the caller so the computation stays a pure lookup. Attempts against a
// downed target are only legal with the park ball; anything else returns
// ModifierImpossible, as does an unknown ball.
func ComputeModifier(target Target, ball Ball, environmentTags []string, caughtBefore bool) int {
	rule, ok := rules[ball]
	if !ok {
		return ModifierImpossible
	}
	if target.CurrentHP < 1 && !rule.AllowDowned {
		return ModifierImpossible
	}

	switch rule.Kind {
	case RuleFixed:
		return rule.Value
	case RuleTypes:
		for _, have := range target.SpeciesTypes {
			for _, want := range rule.Types {
				if have == want {
					return rule.Value
				}
			}
		}
		return rule.Default
	case RuleEnvironment:
		for _, tag := range environmentTags {
			if tag == rule.Environment {
				return rule.Value
			}
		}
		return rule.Default
	case RuleWeight:
		if target.WeightClass >= rule.MinWeightClass {
			return rule.Value
		}
		return rule.Default
	case RuleCaughtBefore:
		if caughtBefore {
			return rule.Value
		}
		return rule.Default
	case RuleStatus:
		if target.Status == rule.Status {
			return rule.Value
		}
		return rule.Default
	default:
		return ModifierImpossible
	}
}
