package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/okian/scool/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then username ASC. The BST comparator treats "less"
// as "ranks earlier", so an in-order walk yields the standings and subtree
// sizes give any entry's rank in O(log n). Ranks are never stored: they are
// derived from the tree under the same lock that guards writes, so every
// reader sees a complete, dense 1..N assignment.

type record struct {
	name      string
	score     int64
	updatedAt time.Time
}

type node struct {
	username string
	score    int64
	prio     uint64
	left     *node
	right    *node
	size     int
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

// less returns true if (aScore, aUser) should appear before (bScore, bUser).
func less(aScore int64, aUser string, bScore int64, bUser string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aUser < bUser
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

func insert(n *node, username string, score int64, prio uint64) *node {
	if n == nil {
		return &node{username: username, score: score, prio: prio, size: 1}
	}
	if less(score, username, n.score, n.username) {
		n.left = insert(n.left, username, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, username, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, username string, score int64) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && username == n.username:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, username, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, username, score)
		}
	case less(score, username, n.score, n.username):
		n.left = deleteNode(n.left, username, score)
	default:
		n.right = deleteNode(n.right, username, score)
	}
	fix(n)
	return n
}

// position returns the 1-based in-order position of (username, score), or 0.
func position(n *node, username string, score int64) int {
	pos := 0
	for n != nil {
		switch {
		case score == n.score && username == n.username:
			return pos + nsize(n.left) + 1
		case less(score, username, n.score, n.username):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// walk visits nodes in rank order until fn returns false.
func walk(n *node, fn func(*node) bool) bool {
	if n == nil {
		return true
	}
	if !walk(n.left, fn) {
		return false
	}
	if !fn(n) {
		return false
	}
	return walk(n.right, fn)
}

// TreapStore keeps the leaderboard in memory.
type TreapStore struct {
	mu     sync.RWMutex
	root   *node
	byName map[string]record
	now    func() time.Time
}

// NewTreapStore constructs an empty treap store.
func NewTreapStore(opts ...TreapOption) *TreapStore {
	s := &TreapStore{
		byName: make(map[string]record),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit upserts username and returns its committed rank.
func (s *TreapStore) Submit(ctx context.Context, username, name string, score int64) (Entry, error) {
	return s.write(ctx, username, name, score, true)
}

// Enroll inserts username with score 0 unless it already exists.
func (s *TreapStore) Enroll(ctx context.Context, username, name string) (Entry, error) {
	return s.write(ctx, username, name, 0, false)
}

func (s *TreapStore) write(ctx context.Context, username, name string, score int64, overwrite bool) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := ctx.Err(); err != nil {
		return Entry{}, fmt.Errorf("treap write: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The caller may have given up while waiting for the lock.
	if err := ctx.Err(); err != nil {
		return Entry{}, fmt.Errorf("treap write: %w", err)
	}

	old, exists := s.byName[username]
	switch {
	case exists && !overwrite:
		return s.entryLocked(username, old), nil
	case exists:
		s.root = deleteNode(s.root, username, old.score)
	}
	rec := record{name: name, score: score, updatedAt: s.now()}
	s.byName[username] = rec
	s.root = insert(s.root, username, score, rand.Uint64())
	return s.entryLocked(username, rec), nil
}

func (s *TreapStore) entryLocked(username string, rec record) Entry {
	return Entry{
		Username:  username,
		Name:      rec.name,
		Score:     rec.score,
		Rank:      position(s.root, username, rec.score),
		UpdatedAt: rec.updatedAt,
	}
}

// Rank returns the current entry for username in O(log n).
func (s *TreapStore) Rank(ctx context.Context, username string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byName[username]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, fmt.Errorf("rank %q: %w", username, ErrNotFound)
	}
	return s.entryLocked(username, rec), nil
}

// Standings returns the top limit entries.
func (s *TreapStore) Standings(ctx context.Context, limit int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(limit, len(s.byName)))
	walk(s.root, func(n *node) bool {
		rec := s.byName[n.username]
		out = append(out, Entry{
			Username:  n.username,
			Name:      rec.name,
			Score:     n.score,
			Rank:      len(out) + 1,
			UpdatedAt: rec.updatedAt,
		})
		return len(out) < limit
	})
	return out, nil
}

// Search returns entries whose username or name contains q, in rank order.
func (s *TreapStore) Search(ctx context.Context, q string, limit int) ([]Entry, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	needle := strings.ToLower(q)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	rank := 0
	walk(s.root, func(n *node) bool {
		rank++
		rec := s.byName[n.username]
		if strings.Contains(strings.ToLower(n.username), needle) || strings.Contains(strings.ToLower(rec.name), needle) {
			out = append(out, Entry{Username: n.username, Name: rec.name, Score: n.score, Rank: rank, UpdatedAt: rec.updatedAt})
		}
		return len(out) < limit
	})
	return out, nil
}

// Count returns the number of entries.
func (s *TreapStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byName), nil
}

// Ping always succeeds for the in-memory store.
func (s *TreapStore) Ping(ctx context.Context) error { return nil }

// Close releases nothing; it exists to satisfy Store.
func (s *TreapStore) Close() error { return nil }

var _ Store = (*TreapStore)(nil)
