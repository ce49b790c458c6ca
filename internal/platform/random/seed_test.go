package random

import "testing"

func TestNewSeedVaries(t *testing.T) {
	first, err := NewSeed()
	if err != nil {
		t.Fatalf("new seed: %v", err)
	}

	// Collisions are astronomically unlikely across a few draws.
	same := 0
	for i := 0; i < 8; i++ {
		seed, err := NewSeed()
		if err != nil {
			t.Fatalf("new seed: %v", err)
		}
		if seed == first {
			same++
		}
	}
	if same == 8 {
		t.Fatal("expected varying seeds")
	}
}
