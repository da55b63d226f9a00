package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dm-vev/canopy/sim"
	"github.com/dm-vev/canopy/sim/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunStoresAndShowsRuns(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	db := filepath.Join(dir, "runs")

	uc := DefaultConfig()
	uc.Field.Candidates = 400
	uc.Field.AreaSize = 6
	uc.Trees.Count = 2
	uc.Simulation.MaxSteps = 30
	uc.Store.Folder = db
	uc.Log.Level = "error"
	writeConfig(t, cfg, uc)

	out, err := execute(t, "run", "--config", cfg, "--seed", "oak")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "forest run") {
		t.Fatalf("expected a run report, got:\n%s", out)
	}

	s, err := store.Config{}.Open(db)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	runs, err := s.List()
	_ = s.Close()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one stored run, got %d", len(runs))
	}
	res := runs[0]
	if res.Seed != sim.SeedFromString("oak") || len(res.Trees) != 2 || res.Steps > 30 {
		t.Fatalf("unexpected stored run: %+v", res)
	}
	id := res.ID.String()

	if out, err = execute(t, "runs", "--db", db); err != nil || !strings.Contains(out, id) {
		t.Fatalf("expected run %s to be listed (%v):\n%s", id, err, out)
	}
	if out, err = execute(t, "show", id, "--db", db); err != nil || !strings.Contains(out, id) {
		t.Fatalf("expected run %s to be shown (%v):\n%s", id, err, out)
	}
	if out, err = execute(t, "rm", id, "--db", db); err != nil || !strings.Contains(out, "removed") {
		t.Fatalf("expected run %s to be removed (%v):\n%s", id, err, out)
	}
	if _, err = execute(t, "show", id, "--db", db); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a removed run, got %v", err)
	}
	if out, err = execute(t, "runs", "--db", db); err != nil || !strings.Contains(out, "no runs stored") {
		t.Fatalf("expected an empty listing (%v):\n%s", err, out)
	}
}

func TestRunWithoutSaving(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")

	uc := DefaultConfig()
	uc.Field.Candidates = 100
	uc.Simulation.MaxSteps = 5
	uc.Store.Folder = filepath.Join(dir, "runs")
	uc.Log.Level = "error"
	writeConfig(t, cfg, uc)

	if _, err := execute(t, "run", "--config", cfg, "--no-save"); err != nil {
		t.Fatalf("run: %v", err)
	}
	s, err := store.Config{}.Open(uc.Store.Folder)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()
	if runs, _ := s.List(); len(runs) != 0 {
		t.Fatalf("expected nothing to be stored, got %d runs", len(runs))
	}
}

func TestShowRejectsBadIDs(t *testing.T) {
	if _, err := execute(t, "show", "not-a-uuid", "--db", t.TempDir()); err == nil {
		t.Fatalf("expected an invalid run id to be rejected")
	}
	if _, err := execute(t, "run", "extra"); err == nil {
		t.Fatalf("expected run to reject positional arguments")
	}
}
