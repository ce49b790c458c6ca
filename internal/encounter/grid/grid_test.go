package grid

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a    Position
		b    Position
		want float64
	}{
		{"same cell", Position{0, 0}, Position{0, 0}, 0},
		{"horizontal", Position{0, 0}, Position{3, 0}, 3},
		{"vertical", Position{0, 0}, Position{0, 4}, 4},
		{"diagonal", Position{0, 0}, Position{3, 4}, 5},
		{"short diagonal", Position{0, 0}, Position{2, 2}, math.Sqrt(8)},
		{"negative coordinates", Position{-1, -1}, Position{2, 3}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Distance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	a := Position{1, 7}
	b := Position{-4, 2}
	if Distance(a, b) != Distance(b, a) {
		t.Fatal("expected symmetric distance")
	}
}

func TestIsOccupied(t *testing.T) {
	occupied := []Position{{0, 0}, {2, 2}}

	if !IsOccupied(occupied, Position{2, 2}) {
		t.Fatal("expected (2,2) to be occupied")
	}
	if IsOccupied(occupied, Position{1, 1}) {
		t.Fatal("expected (1,1) to be free")
	}
	if IsOccupied(nil, Position{0, 0}) {
		t.Fatal("expected empty set to be unoccupied")
	}
}
