package journal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/loader"
	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var coinsFor = map[reference.LineValue][3]int{
	6: {2, 2, 2},
	7: {2, 2, 3},
	8: {2, 3, 3},
	9: {3, 3, 3},
}

func makeReading(t *testing.T, id string, lines reference.Lines, created time.Time) *engine.Reading {
	t.Helper()
	table, err := reference.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	cast := func(l reference.Lines) engine.CastHexagram {
		h, err := table.ByLines(l)
		if err != nil {
			t.Fatalf("ByLines(%s): %v", l, err)
		}
		return engine.CastHexagram{
			Lines:    l,
			Hexagram: h,
			Bundle:   loader.Bundle{Number: h.Number, Source: "canonical", Name: h.Names.Pinyin},
		}
	}
	r := &engine.Reading{
		ID:        id,
		Question:  "question " + id,
		Method:    casting.MethodWood,
		Source:    "wilhelm",
		Primary:   cast(lines),
		CreatedAt: created,
	}
	if lines.HasMoving() {
		rel := cast(lines.Changed())
		r.Relating = &rel
	}
	for _, v := range lines {
		r.Entropy = append(r.Entropy, casting.Toss{Coins: coinsFor[v]})
	}
	return r
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSaveAndGet(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	r := makeReading(t, "r1", reference.Lines{7, 9, 8, 7, 6, 7}, base)
	r.Seed = "s"
	r.Method = casting.MethodEarth

	if err := s.Save(ctx, r); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Primary.Hexagram.Number != 38 {
		t.Fatalf("expected primary 38, got %d", got.Primary.Hexagram.Number)
	}
	if got.Relating == nil || got.Relating.Hexagram.Number != 25 {
		t.Fatalf("expected relating 25, got %+v", got.Relating)
	}
	if got.Seed != "s" || got.Method != casting.MethodEarth {
		t.Fatalf("seed/method not kept: %q %q", got.Seed, got.Method)
	}
	if !got.CreatedAt.Equal(base) {
		t.Fatalf("expected %v, got %v", base, got.CreatedAt)
	}
	if !got.FellBack() {
		t.Fatal("expected the fallback signal to survive storage")
	}
}

func TestSave_DuplicateID(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	r := makeReading(t, "dup", reference.Lines{7, 7, 7, 7, 7, 7}, base)
	if err := s.Save(ctx, r); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, r); err == nil {
		t.Fatal("expected an error saving the same reading twice")
	}

	entries, err := s.Entropy(ctx, "dup")
	if err != nil {
		t.Fatalf("Entropy: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("failed save must not add entropy rows, got %d", len(entries))
	}
}

func TestGet_NotFound(t *testing.T) {
	s := tempDB(t)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrReadingNotFound) || !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = s.Entropy(context.Background(), "missing")
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		lines := reference.Lines{7, 7, 7, 8, 8, 8}
		if i%2 == 1 {
			lines[0] = 9
		}
		r := makeReading(t, fmt.Sprintf("r%d", i), lines, base.Add(time.Duration(i)*time.Minute))
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 readings, got %d", len(all))
	}
	for i, want := range []string{"r3", "r2", "r1", "r0"} {
		if all[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, all[i].ID)
		}
	}

	top := all[0]
	if top.Primary != 11 {
		t.Fatalf("expected primary 11, got %d", top.Primary)
	}
	if top.Relating == 0 {
		t.Fatal("expected a relating hexagram for a reading with a moving line")
	}
	if all[1].Relating != 0 {
		t.Fatalf("expected no relating hexagram, got %d", all[1].Relating)
	}
	if top.Lines != (reference.Lines{9, 7, 7, 8, 8, 8}) {
		t.Fatalf("lines not kept: %s", top.Lines)
	}
	if top.Source != "wilhelm" || top.SourceUsed != "canonical" {
		t.Fatalf("sources not kept: %q %q", top.Source, top.SourceUsed)
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "r3" {
		t.Fatalf("unexpected limited list: %+v", limited)
	}
}

func TestEntropy_Provenance(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	lines := reference.Lines{6, 7, 8, 9, 7, 8}
	if err := s.Save(ctx, makeReading(t, "p", lines, base)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := s.Entropy(ctx, "p")
	if err != nil {
		t.Fatalf("Entropy: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Position != i+1 {
			t.Fatalf("entry %d: position %d", i, e.Position)
		}
		if e.Value != lines[i] || e.Coins != coinsFor[lines[i]] {
			t.Fatalf("entry %d: got %d %v", i, e.Value, e.Coins)
		}
		if e.Method != casting.MethodWood {
			t.Fatalf("entry %d: method %s", i, e.Method)
		}
	}
}

func TestFailures(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	if err := s.LogFailure(ctx, Failure{Method: casting.MethodAir, Class: "unavailable", Reason: "timeout", CreatedAt: base}); err != nil {
		t.Fatalf("LogFailure: %v", err)
	}
	if err := s.LogFailure(ctx, Failure{Method: "water", Class: "invalid_argument", CreatedAt: base.Add(time.Second)}); err != nil {
		t.Fatalf("LogFailure: %v", err)
	}
	got, err := s.Failures(ctx, 10)
	if err != nil {
		t.Fatalf("Failures: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(got))
	}
	if got[0].Method != "water" || got[0].Reason != "" {
		t.Fatalf("unexpected newest failure: %+v", got[0])
	}
	if got[1].Class != "unavailable" || got[1].Reason != "timeout" {
		t.Fatalf("unexpected oldest failure: %+v", got[1])
	}
}

func TestRecorder(t *testing.T) {
	s := tempDB(t)
	rec := NewRecorder(s, zap.NewNop())

	rec.ObserveReading(makeReading(t, "obs", reference.Lines{8, 8, 8, 8, 8, 8}, base))
	rec.ObserveFailure(casting.MethodAir, fmt.Errorf("remote entropy: %w", faults.ErrUnavailable))

	if _, err := s.Get(context.Background(), "obs"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	failures, err := s.Failures(context.Background(), 0)
	if err != nil {
		t.Fatalf("Failures: %v", err)
	}
	if len(failures) != 1 || failures[0].Class != "unavailable" {
		t.Fatalf("unexpected failures: %+v", failures)
	}
}
