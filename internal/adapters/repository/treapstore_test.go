package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"testing"
)

func TestTreapStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
	if entries, err := store.TopN(ctx, 10); err != nil || len(entries) != 0 {
		t.Fatalf("expected empty top, got %v (%v)", entries, err)
	}

	err := store.Replace(ctx,
		map[string]float64{"A": 1516, "B": 1500, "C": 1484},
		map[string]int{"A": 1, "B": 1, "C": 1},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if count := store.Count(ctx); count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}

	entry, err := store.Rank(ctx, "C")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 3 || entry.Rating != 1484 || entry.Games != 1 {
		t.Errorf("unexpected entry %+v", entry)
	}

	entries, err := store.TopN(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].Player != "A" || entries[1].Player != "B" {
		t.Errorf("unexpected top entries %+v", entries)
	}
}

func TestTreapStore_ReplaceDropsOldPlayers(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	if err := store.Replace(ctx, map[string]float64{"old": 1600}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Replace(ctx, map[string]float64{"new": 1400}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.Rank(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if e, err := store.Rank(ctx, "new"); err != nil || e.Rank != 1 {
		t.Errorf("expected new at rank 1, got %+v (%v)", e, err)
	}
}

func TestTreapStore_DenseRanksWithTies(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	err := store.Replace(ctx, map[string]float64{
		"d": 1500, "b": 1520.25, "a": 1520.25, "c": 1500.0000001, "e": 1490,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := store.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []struct {
		player string
		rank   int
	}{{"a", 1}, {"b", 1}, {"c", 2}, {"d", 2}, {"e", 3}}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, w := range want {
		if entries[i].Player != w.player || entries[i].Rank != w.rank {
			t.Errorf("position %d: expected %s rank %d, got %s rank %d", i, w.player, w.rank, entries[i].Player, entries[i].Rank)
		}
	}
}

func TestTreapStore_InvalidInput(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	if _, err := store.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
	if _, err := store.Rank(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Replace(ctx, map[string]float64{"x": math.NaN()}, nil); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestTreapStore_TopNBeyondCache(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithTopCacheSize(5))

	r := rand.New(rand.NewSource(7))
	ratings := make(map[string]float64, 200)
	for i := 0; i < 200; i++ {
		ratings[fmt.Sprintf("p%03d", i)] = 1300 + r.Float64()*400
	}
	if err := store.Replace(ctx, ratings, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(store.Snapshot().TopCache); got != 5 {
		t.Errorf("expected cache of 5, got %d", got)
	}

	entries, err := store.TopN(ctx, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(entries))
	}

	players := make([]string, 0, len(ratings))
	for p := range ratings {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return ratings[players[i]] > ratings[players[j]] })
	for i, e := range entries {
		if e.Player != players[i] {
			t.Fatalf("position %d: expected %s, got %s", i, players[i], e.Player)
		}
	}

	all, err := store.TopN(ctx, 1000)
	if err != nil || len(all) != 200 {
		t.Fatalf("expected all 200 entries, got %d (%v)", len(all), err)
	}
}

func TestTreapStore_ConcurrentReads(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = store.TopN(ctx, 3)
				_, _ = store.Rank(ctx, "A")
				_ = store.Count(ctx)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		if err := store.Replace(ctx, map[string]float64{"A": float64(1500 + i), "B": 1500}, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	wg.Wait()

	if e, err := store.Rank(ctx, "A"); err != nil || e.Rating != 1549 {
		t.Errorf("expected final rating 1549, got %+v (%v)", e, err)
	}
}
