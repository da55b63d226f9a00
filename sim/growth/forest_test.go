package growth

import (
	"bytes"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func rivalConfig(id TreeID, x float64) TreeConfig {
	return TreeConfig{
		ID:              id,
		Root:            mgl64.Vec3{x, 0, 0},
		InfluenceRadius: 3,
		KillRadius:      1.5,
		StepSize:        0.5,
		TrunkHeight:     2,
	}
}

// contest plants two trees equidistant from a single point, in the order
// given, and grows the forest until the point is claimed.
func contest(t *testing.T, first, second TreeConfig) (*Forest, *Pool) {
	t.Helper()
	pool := NewPool([]AttractionPoint{{Position: mgl64.Vec3{0, 0, 2}}})
	forest, err := NewForest(pool, ForestConfig{})
	if err != nil {
		t.Fatalf("new forest: %v", err)
	}
	for _, conf := range []TreeConfig{first, second} {
		if _, err := forest.Plant(conf, wetness(0.5)); err != nil {
			t.Fatalf("plant: %v", err)
		}
	}
	forest.Grow(4)
	for _, tree := range forest.Trees() {
		if !tree.TrunkDone() {
			t.Fatalf("expected tree %d trunk to be done", tree.ID())
		}
	}
	forest.Grow(1)
	return forest, pool
}

func TestEarlierTreeWinsContestedPoint(t *testing.T) {
	forest, pool := contest(t, rivalConfig(0, -1), rivalConfig(1, 1))
	a, _ := forest.Tree(0)
	b, _ := forest.Tree(1)
	if a.Consumed() != 1 || b.Consumed() != 0 {
		t.Fatalf("expected first tree to win, consumed %d/%d", a.Consumed(), b.Consumed())
	}
	if owner, ok := pool.Point(0).ClaimedBy(); !ok || owner != 0 {
		t.Fatalf("expected point owned by tree 0, got %d (%v)", owner, ok)
	}

	// Registration order decides, not tree ID or position.
	forest, pool = contest(t, rivalConfig(1, 1), rivalConfig(0, -1))
	a, _ = forest.Tree(0)
	b, _ = forest.Tree(1)
	if a.Consumed() != 0 || b.Consumed() != 1 {
		t.Fatalf("expected first registered tree to win, consumed %d/%d", a.Consumed(), b.Consumed())
	}
	if owner, _ := pool.Point(0).ClaimedBy(); owner != 1 {
		t.Fatalf("expected point owned by tree 1, got %d", owner)
	}

	for i := 0; i < 10; i++ {
		forest.Grow(1)
	}
	if a.Consumed()+b.Consumed() != 1 {
		t.Fatalf("point claimed more than once: %d + %d", a.Consumed(), b.Consumed())
	}
}

func TestForestRejectsDuplicatesAndForeignTrees(t *testing.T) {
	pool := NewPool(nil)
	forest, err := NewForest(pool, ForestConfig{})
	if err != nil {
		t.Fatalf("new forest: %v", err)
	}
	if _, err := forest.Plant(rivalConfig(3, 0), wetness(0.5)); err != nil {
		t.Fatalf("plant: %v", err)
	}
	if _, err := forest.Plant(rivalConfig(3, 5), wetness(0.5)); !errors.Is(err, ErrDuplicateTree) {
		t.Fatalf("expected ErrDuplicateTree, got %v", err)
	}

	other, err := NewTree(rivalConfig(4, 0), NewPool(nil), wetness(0.5))
	if err != nil {
		t.Fatalf("new tree: %v", err)
	}
	if err := forest.Add(other); !errors.Is(err, ErrForeignPool) {
		t.Fatalf("expected ErrForeignPool, got %v", err)
	}

	own, err := NewTree(rivalConfig(4, 0), pool, wetness(0.5))
	if err != nil {
		t.Fatalf("new tree: %v", err)
	}
	if err := forest.Add(own); err != nil {
		t.Fatalf("add: %v", err)
	}
	if forest.Len() != 2 {
		t.Fatalf("expected 2 trees, got %d", forest.Len())
	}
	if _, ok := forest.Tree(9); ok {
		t.Fatalf("expected unknown tree lookup to fail")
	}
	if _, err := forest.Plant(TreeConfig{ID: 5}, wetness(0.5)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewForest(nil, ForestConfig{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for a nil pool, got %v", err)
	}
	if err := forest.Add(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for a nil tree, got %v", err)
	}
	if forest.Len() != 2 {
		t.Fatalf("expected a rejected tree to leave 2 trees, got %d", forest.Len())
	}
}

func TestForestClaimsStayConsistent(t *testing.T) {
	r := rand.New(rand.NewPCG(21, 22))
	points := make([]AttractionPoint, 4000)
	for i := range points {
		points[i].Position = mgl64.Vec3{r.Float64()*20 - 10, r.Float64()*20 - 10, 4 + r.Float64()*8}
	}
	pool := NewPool(points)
	metrics := NewMetrics()
	forest, err := NewForest(pool, ForestConfig{Metrics: metrics})
	if err != nil {
		t.Fatalf("new forest: %v", err)
	}
	for i, x := range []float64{-3, -1, 1, 3} {
		conf := DefaultTreeConfig(TreeID(i), mgl64.Vec3{x, 0, 0})
		if _, err := forest.Plant(conf, wetness(0.3+0.2*float64(i))); err != nil {
			t.Fatalf("plant: %v", err)
		}
	}

	owners := make(map[int]TreeID)
	for tick := 0; tick < 120; tick++ {
		results := forest.Grow(1)
		if len(results) != forest.Len() {
			t.Fatalf("expected %d results, got %d", forest.Len(), len(results))
		}
		for i, res := range results {
			if res.Tree != forest.Trees()[i].ID() {
				t.Fatalf("result %d belongs to tree %d", i, res.Tree)
			}
		}
		for i := 0; i < pool.Len(); i++ {
			owner, ok := pool.Point(i).ClaimedBy()
			prev, seen := owners[i]
			if seen && (!ok || owner != prev) {
				t.Fatalf("point %d changed owner from %d to %d", i, prev, owner)
			}
			if ok {
				owners[i] = owner
			}
		}
	}

	claimed := 0
	for _, tree := range forest.Trees() {
		if tree.Consumed() > tree.MaxAttractionPoints() {
			t.Fatalf("tree %d exceeded its quota", tree.ID())
		}
		if got := pool.ClaimedCount(tree.ID()); got != tree.Consumed() {
			t.Fatalf("tree %d consumed %d, pool says %d", tree.ID(), tree.Consumed(), got)
		}
		claimed += tree.Consumed()
		stats := metrics.Snapshot(tree.ID())
		if stats.Ticks != 120 || stats.Claimed != uint64(tree.Consumed()) || stats.Added != uint64(tree.Len()-1) {
			t.Fatalf("tree %d metrics out of sync: %+v", tree.ID(), stats)
		}
	}
	if claimed == 0 {
		t.Fatalf("expected some points to be claimed")
	}
	if claimed+pool.Unclaimed() != pool.Len() {
		t.Fatalf("claims do not add up: %d claimed, %d free, %d total", claimed, pool.Unclaimed(), pool.Len())
	}
	if total := metrics.Total(); total.Ticks != 480 {
		t.Fatalf("expected 480 ticks in total, got %d", total.Ticks)
	}
}

func TestForestLogsPhaseChanges(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	forest, err := NewForest(NewPool(nil), ForestConfig{Log: log})
	if err != nil {
		t.Fatalf("new forest: %v", err)
	}
	if _, err := forest.Plant(rivalConfig(0, 0), wetness(0.5)); err != nil {
		t.Fatalf("plant: %v", err)
	}
	forest.Grow(0)
	if strings.Contains(buf.String(), "trunk complete") {
		t.Fatalf("trunk reported complete after one tick")
	}
	forest.Grow(3)
	if !strings.Contains(buf.String(), "tree trunk complete") {
		t.Fatalf("expected trunk completion to be logged, got %q", buf.String())
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.Observe(TickResult{Added: 1})
	if m.Snapshot(0) != (TreeStats{}) || m.Total() != (TreeStats{}) {
		t.Fatalf("expected nil metrics to report zero values")
	}
}
