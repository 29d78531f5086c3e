// Package memory is an in-process docstore.Store used for local development
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/angelmondragon/cartsync/internal/docstore"
	"github.com/google/uuid"
)

type collection struct {
	order []string
	docs  map[string]docstore.Fields
}

// Store keeps documents in memory, returning them in insertion order.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]docstore.Fields)}
		s.collections[name] = c
	}
	return c
}

func (s *Store) Query(ctx context.Context, name string, filters ...docstore.Filter) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	var out []docstore.Document
	for _, id := range c.order {
		fields := c.docs[id]
		if docstore.Match(fields, filters...) {
			out = append(out, docstore.Document{ID: id, Fields: fields.Clone()})
		}
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, name string, fields docstore.Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	id := uuid.NewString()
	c.docs[id] = fields.Clone()
	c.order = append(c.order, id)
	return id, nil
}

func (s *Store) Update(ctx context.Context, name, id string, fields docstore.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return docstore.ErrNotFound
	}
	existing, ok := c.docs[id]
	if !ok {
		return docstore.ErrNotFound
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		c.remove(id)
	}
	return nil
}

func (s *Store) BatchDelete(ctx context.Context, name string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	for _, id := range ids {
		c.remove(id)
	}
	return nil
}

// Len returns the number of documents in a collection.
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.docs)
	}
	return 0
}

func (c *collection) remove(id string) {
	if _, ok := c.docs[id]; !ok {
		return
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
