package capture

import "strings"

// Ball identifies the kind of ball thrown in a capture attempt.
type Ball int

const (
	// BallUnspecified represents an invalid ball value.
	BallUnspecified Ball = iota
	// BallBasic is the baseline ball with no modifier.
	BallBasic
	// BallGreat is a mid-tier ball.
	BallGreat
	// BallUltra is a high-tier ball.
	BallUltra
	// BallMaster always succeeds.
	BallMaster
	// BallNet excels against water and bug types.
	BallNet
	// BallDive excels underwater.
	BallDive
	// BallDusk excels in caves.
	BallDusk
	// BallHeavy excels against the heaviest weight classes.
	BallHeavy
	// BallRepeat excels against species the thrower caught before.
	BallRepeat
	// BallDream excels against sleeping targets.
	BallDream
	// BallPark is the only ball allowed against a downed target.
	BallPark
)

func (b Ball) String() string {
	switch b {
	case BallBasic:
		return "basic"
	case BallGreat:
		return "great"
	case BallUltra:
		return "ultra"
	case BallMaster:
		return "master"
	case BallNet:
		return "net"
	case BallDive:
		return "dive"
	case BallDusk:
		return "dusk"
	case BallHeavy:
		return "heavy"
	case BallRepeat:
		return "repeat"
	case BallDream:
		return "dream"
	case BallPark:
		return "park"
	default:
		return "unspecified"
	}
}

// ParseBall resolves a wire value to a Ball.
func ParseBall(value string) Ball {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "basic":
		return BallBasic
	case "great":
		return BallGreat
	case "ultra":
		return BallUltra
	case "master":
		return BallMaster
	case "net":
		return BallNet
	case "dive":
		return BallDive
	case "dusk":
		return BallDusk
	case "heavy":
		return BallHeavy
	case "repeat":
		return BallRepeat
	case "dream":
		return BallDream
	case "park":
		return BallPark
	default:
		return BallUnspecified
	}
}
