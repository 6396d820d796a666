package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/scool/internal/domain/types"
)

type subjectKey struct {
	name  string
	class int
}

// MemoryCatalog is the in-memory Catalog used with the treap store.
type MemoryCatalog struct {
	mu       sync.RWMutex
	nextID   int64
	subjects map[subjectKey]types.Subject
	users    map[int64]types.User
	byEmail  map[string]int64
	byLogin  map[string]int64
	now      func() time.Time
}

// NewMemoryCatalog constructs an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		subjects: make(map[subjectKey]types.Subject),
		users:    make(map[int64]types.User),
		byEmail:  make(map[string]int64),
		byLogin:  make(map[string]int64),
		now:      time.Now,
	}
}

func (c *MemoryCatalog) id() int64 {
	c.nextID++
	return c.nextID
}

func (c *MemoryCatalog) Subjects(ctx context.Context, class int) ([]types.Subject, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Subject, 0)
	for k, s := range c.subjects {
		if k.class == class {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b types.Subject) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (c *MemoryCatalog) UpsertSubject(ctx context.Context, name string, class, progress int) (types.Subject, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := subjectKey{name: name, class: class}
	s, ok := c.subjects[k]
	if !ok {
		s = types.Subject{ID: c.id(), Name: name, Class: class}
	}
	s.Progress = progress
	c.subjects[k] = s
	return s, nil
}

func (c *MemoryCatalog) EnsureSubjects(ctx context.Context, class int, names []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		k := subjectKey{name: name, class: class}
		if _, ok := c.subjects[k]; !ok {
			c.subjects[k] = types.Subject{ID: c.id(), Name: name, Class: class}
		}
	}
	return nil
}

func (c *MemoryCatalog) SearchSubjects(ctx context.Context, q string, limit int) ([]types.Subject, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	needle := strings.ToLower(q)
	c.mu.RLock()
	var out []types.Subject
	for _, s := range c.subjects {
		if strings.Contains(strings.ToLower(s.Name), needle) {
			out = append(out, s)
		}
	}
	c.mu.RUnlock()
	slices.SortFunc(out, func(a, b types.Subject) int {
		if a.Class != b.Class {
			return cmp.Compare(a.Class, b.Class)
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *MemoryCatalog) CreateUser(ctx context.Context, u types.User) (types.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, taken := c.byEmail[email]; taken {
		return types.User{}, fmt.Errorf("user %q: %w", email, ErrConflict)
	}
	if _, taken := c.byLogin[u.Username]; taken {
		return types.User{}, fmt.Errorf("username %q: %w", u.Username, ErrConflict)
	}
	u.ID = c.id()
	u.Email = email
	u.CreatedAt = c.now()
	c.users[u.ID] = u
	c.byEmail[email] = u.ID
	c.byLogin[u.Username] = u.ID
	return u, nil
}

func (c *MemoryCatalog) UserByEmail(ctx context.Context, email string) (types.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byEmail[strings.ToLower(email)]
	if !ok {
		return types.User{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	return c.users[id], nil
}

func (c *MemoryCatalog) UserByID(ctx context.Context, id int64) (types.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	if !ok {
		return types.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

func (c *MemoryCatalog) Counts(ctx context.Context) (types.Counts, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.Counts{Subjects: len(c.subjects), Users: len(c.users)}, nil
}

var _ Catalog = (*MemoryCatalog)(nil)
