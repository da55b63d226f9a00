package main

import (
	"bytes"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dm-vev/canopy/sim"
	"github.com/google/uuid"
)

func TestWriteReport(t *testing.T) {
	res := sim.Result{
		ID:         uuid.MustParse("0190f3a0-0000-7000-8000-000000000001"),
		Seed:       1234567,
		Started:    time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
		Steps:      2500,
		Stop:       sim.StopSettled,
		Points:     6250,
		FreePoints: 4250,
		Trees: []sim.TreeSummary{
			{ID: 0, TrunkHeight: 4, Nodes: 1200, Consumed: 130, Quota: 130, Stop: sim.StopQuota},
			{ID: 1, TrunkHeight: 3, Nodes: 80, Consumed: 12, Quota: 150, Stop: sim.StopStagnant},
		},
	}
	var buf bytes.Buffer
	if err := writeReport(&buf, res); err != nil {
		t.Fatalf("write report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{res.ID.String(), "2,500", "2,000 of 6,250", "settled", "1,200", "quota", "stagnant"} {
		if !strings.Contains(out, want) {
			t.Errorf("report misses %q:\n%s", want, out)
		}
	}

	if strings.Contains(out, "1,234,567") {
		t.Errorf("seed printed with digit grouping:\n%s", out)
	}

	buf.Reset()
	res.Trees = nil
	if err := writeReport(&buf, res); err != nil {
		t.Fatalf("write report: %v", err)
	}
	if strings.Contains(buf.String(), "neighbours") {
		t.Fatalf("expected no tree table without trees:\n%s", buf.String())
	}
}

// printedSeed returns the word following the "seed" label in a report.
func printedSeed(t *testing.T, out string) string {
	t.Helper()
	words := strings.Fields(out)
	i := slices.IndexFunc(words, func(w string) bool { return strings.HasSuffix(w, "seed") })
	if i < 0 || i+1 >= len(words) {
		t.Fatalf("no seed in report:\n%s", out)
	}
	return words[i+1]
}

func TestReportedSeedReproducesRun(t *testing.T) {
	for _, seed := range []uint64{0, 1234567, 1<<64 - 1} {
		var buf bytes.Buffer
		res := sim.Result{ID: uuid.MustParse("0190f3a0-0000-7000-8000-000000000002"), Seed: seed}
		if err := writeReport(&buf, res); err != nil {
			t.Fatalf("write report: %v", err)
		}
		if got := sim.SeedFromString(printedSeed(t, buf.String())); got != seed {
			t.Fatalf("printed seed parses to %d, want %d:\n%s", got, seed, buf.String())
		}

		buf.Reset()
		if err := writeRunList(&buf, []sim.Result{res}); err != nil {
			t.Fatalf("write run list: %v", err)
		}
		if want := formatSeed(seed); !strings.Contains(buf.String(), " "+want+" ") {
			t.Fatalf("run list misses seed %s:\n%s", want, buf.String())
		}
	}
}
