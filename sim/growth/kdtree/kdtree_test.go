package kdtree

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func randomPoints(r *rand.Rand, n int) []mgl64.Vec3 {
	points := make([]mgl64.Vec3, n)
	for i := range points {
		points[i] = mgl64.Vec3{r.Float64()*20 - 10, r.Float64()*20 - 10, r.Float64() * 10}
	}
	return points
}

func TestNearestMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	points := randomPoints(r, 500)
	tree := Build(points)

	for q := 0; q < 200; q++ {
		query := mgl64.Vec3{r.Float64()*24 - 12, r.Float64()*24 - 12, r.Float64()*12 - 1}
		idx, dist, ok := tree.Nearest(query)
		if !ok {
			t.Fatalf("expected a result from a non-empty tree")
		}

		want, wantDist := -1, math.Inf(1)
		for i, p := range points {
			if d := p.Sub(query).Len(); d < wantDist {
				want, wantDist = i, d
			}
		}
		if idx != want || math.Abs(dist-wantDist) > 1e-12 {
			t.Fatalf("nearest(%v) = %d (%v), want %d (%v)", query, idx, dist, want, wantDist)
		}
	}
}

func TestRadiusMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	points := randomPoints(r, 400)
	tree := Build(points)

	for q := 0; q < 100; q++ {
		query := points[r.IntN(len(points))].Add(mgl64.Vec3{r.Float64() - 0.5, r.Float64() - 0.5, 0})
		radius := r.Float64() * 5

		got := tree.Radius(query, radius)
		var want []int
		for i, p := range points {
			if p.Sub(query).Len() <= radius {
				want = append(want, i)
			}
		}
		if !slices.Equal(got, want) {
			t.Fatalf("radius(%v, %v) = %v, want %v", query, radius, got, want)
		}
	}
}

func TestEmptyTree(t *testing.T) {
	tree := Build(nil)
	if _, _, ok := tree.Nearest(mgl64.Vec3{}); ok {
		t.Fatalf("expected no nearest point in an empty tree")
	}
	if got := tree.Radius(mgl64.Vec3{}, 10); len(got) != 0 {
		t.Fatalf("expected no points in an empty tree, got %v", got)
	}
	var nilTree *Tree
	if nilTree.Len() != 0 {
		t.Fatalf("expected nil tree to be empty")
	}
}

func TestDuplicatePointsResolveToLowestIndex(t *testing.T) {
	points := []mgl64.Vec3{{1, 1, 1}, {0, 0, 0}, {1, 1, 1}, {0, 0, 0}}
	tree := Build(points)
	idx, dist, _ := tree.Nearest(mgl64.Vec3{0, 0, 0})
	if idx != 1 || dist != 0 {
		t.Fatalf("expected index 1 at distance 0, got %d at %v", idx, dist)
	}
	if got := tree.Radius(mgl64.Vec3{1, 1, 1}, 0); !slices.Equal(got, []int{0, 2}) {
		t.Fatalf("expected both duplicates from a zero radius query, got %v", got)
	}
}
