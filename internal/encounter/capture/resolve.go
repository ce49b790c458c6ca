package capture

import "math/rand"

// Attempt describes one capture attempt to resolve.
type Attempt struct {
	Target          Target
	Ball            Ball
	EnvironmentTags []string
	CaughtBefore    bool
	CatchRate       int // 0-255, validated upstream
	Seed            int64
}

// Result captures the resolved outcome of an attempt.
type Result struct {
	Modifier int
	Roll     int
	Check    int
	Success  bool
}

// Resolve reports whether a capture check lands under the catch rate.
func Resolve(check int, catchRate int) bool {
	return check < catchRate
}

// ResolveAttempt rolls a d100 for the attempt and resolves the check.
//
// ResolveAttempt is deterministic with respect to Seed: the same attempt
// with the same seed always produces the same result.
func ResolveAttempt(attempt Attempt) Result {
	modifier := ComputeModifier(attempt.Target, attempt.Ball, attempt.EnvironmentTags, attempt.CaughtBefore)
	rng := rand.New(rand.NewSource(attempt.Seed))
	roll := rng.Intn(100) + 1
	check := roll + modifier
	return Result{
		Modifier: modifier,
		Roll:     roll,
		Check:    check,
		Success:  Resolve(check, attempt.CatchRate),
	}
}
