package store

import (
	"context"
	"sort"
	"sync"

	"github.com/philios33/predictor2-backend-sub000/internal/entity"
)

// Memory is an in-process Store used by tests and single-process setups.
// All methods are safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	docs map[entity.Kind]map[string]Document
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[entity.Kind]map[string]Document)}
}

// Get returns the document under (kind, keyParts), or nil if absent.
func (m *Memory) Get(ctx context.Context, kind entity.Kind, keyParts []string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[kind][entity.CompositeKey(keyParts)]
	if !ok {
		return nil, nil
	}
	cp := doc
	return &cp, nil
}

// Put stores the document, replacing any existing one under the same key.
func (m *Memory) Put(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey, ok := m.docs[doc.Kind]
	if !ok {
		byKey = make(map[string]Document)
		m.docs[doc.Kind] = byKey
	}
	byKey[entity.CompositeKey(doc.Key)] = doc
	return nil
}

// Remove deletes the document under (kind, keyParts). Removing an absent
// document is a no-op.
func (m *Memory) Remove(ctx context.Context, kind entity.Kind, keyParts []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs[kind], entity.CompositeKey(keyParts))
	return nil
}

// FindByLookupID returns all documents of a kind with the given lookup id,
// sorted by composite key for deterministic iteration.
func (m *Memory) FindByLookupID(ctx context.Context, kind entity.Kind, lookupID string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0)
	byKey := m.docs[kind]
	for key, doc := range byKey {
		if doc.LookupID == lookupID {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := make([]Document, 0, len(keys))
	for _, key := range keys {
		out = append(out, byKey[key])
	}
	return out, nil
}
