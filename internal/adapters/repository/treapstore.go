package repository

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/vists/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: rating DESC, then player ASC. "less" means ranks earlier, so an
// in-order walk yields the standings from best to worst. Node priorities are
// hashes of the player name, which keeps the tree balanced in expectation
// whatever the rating distribution.

// ratingScale fixes ratings to micro-points so near-equal floats tie.
const ratingScale = 1_000_000

type ratingFP int64

func toFixedPoint(x float64) ratingFP {
	return ratingFP(math.Round(x * ratingScale))
}

type record struct {
	rating ratingFP
	raw    float64
	games  int
}

// Snapshot is the immutable view published after each Replace.
type Snapshot struct {
	ByPlayer map[string]Entry
	TopCache []Entry
}

type node struct {
	id     string
	rating ratingFP
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aRating ratingFP, aID string, bRating ratingFP, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, rating ratingFP) *node {
	if n == nil {
		return &node{id: id, rating: rating, prio: xxhash.Sum64String(id), size: 1}
	}
	if less(rating, id, n.rating, n.id) {
		n.left = insert(n.left, id, rating)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, rating)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// walk visits nodes in rank order until visit returns false.
func walk(n *node, visit func(*node) bool) bool {
	if n == nil {
		return true
	}
	if !walk(n.left, visit) {
		return false
	}
	if !visit(n) {
		return false
	}
	return walk(n.right, visit)
}

// TreapStore keeps the standings of the last successful run.
type TreapStore struct {
	mu           sync.RWMutex
	root         *node
	byID         map[string]record
	topCacheSize int

	snapshot atomic.Pointer[Snapshot]
}

// NewTreapStore constructs an empty store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:         make(map[string]record),
		topCacheSize: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot.Store(&Snapshot{ByPlayer: map[string]Entry{}})
	return s
}

// Replace rebuilds the treap from ratings and publishes a fresh snapshot.
func (s *TreapStore) Replace(_ context.Context, ratings map[string]float64, games map[string]int) error {
	byID := make(map[string]record, len(ratings))
	var root *node
	for player, r := range ratings {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			metrics.RecordErrorByComponent("repository", "invalid_entry")
			return fmt.Errorf("%w: %q rated %v", ErrInvalidEntry, player, r)
		}
		fp := toFixedPoint(r)
		byID[player] = record{rating: fp, raw: r, games: games[player]}
		root = insert(root, player, fp)
	}

	snap := buildSnapshot(root, byID, s.topCacheSize)

	s.mu.Lock()
	s.root = root
	s.byID = byID
	s.snapshot.Store(snap)
	s.mu.Unlock()

	metrics.UpdateStandingsPlayers(len(byID))
	return nil
}

// Rank returns a player's entry from the current snapshot.
func (s *TreapStore) Rank(_ context.Context, player string) (Entry, error) {
	e, ok := s.snapshot.Load().ByPlayer[player]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// TopN returns the first n entries. Requests that fit the snapshot cache are
// served without walking the tree.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	snap := s.snapshot.Load()
	if n <= len(snap.TopCache) || len(snap.TopCache) == len(snap.ByPlayer) {
		return append([]Entry(nil), snap.TopCache[:min(n, len(snap.TopCache))]...), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.root, s.byID, n), nil
}

// Count returns the number of ranked players.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Snapshot returns the last published snapshot.
func (s *TreapStore) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

func buildSnapshot(root *node, byID map[string]record, topCacheSize int) *Snapshot {
	all := collect(root, byID, len(byID))
	byPlayer := make(map[string]Entry, len(all))
	for _, e := range all {
		byPlayer[e.Player] = e
	}
	top := all[:min(topCacheSize, len(all))]
	return &Snapshot{ByPlayer: byPlayer, TopCache: append([]Entry(nil), top...)}
}

// collect returns up to limit entries in rank order with dense ranks: equal
// ratings share a rank and the next rating takes the following rank.
func collect(root *node, byID map[string]record, limit int) []Entry {
	out := make([]Entry, 0, min(limit, len(byID)))
	rank := 0
	var prev ratingFP
	walk(root, func(n *node) bool {
		if len(out) >= limit {
			return false
		}
		if rank == 0 || n.rating != prev {
			rank++
			prev = n.rating
		}
		rec := byID[n.id]
		out = append(out, Entry{Rank: rank, Player: n.id, Rating: rec.raw, Games: rec.games})
		return true
	})
	return out
}
