// Package store provides generic keyed document storage for the predictor
// engine. Documents are addressed by (kind, composite key) and may carry a
// secondary lookup id enabling "fetch all of kind X for lookup Y" queries.
//
// The storage layer is generic only over serialization: document payloads
// are opaque JSON here, and the records package layers the closed set of
// typed entities on top.
package store

import (
	"context"
	"encoding/json"

	"github.com/philios33/predictor2-backend-sub000/internal/entity"
)

// Document is a stored entity payload.
type Document struct {
	Kind     entity.Kind
	Key      []string
	LookupID string
	Meta     json.RawMessage
}

// Store is the consumed storage capability. Get returns nil (not an error)
// when no document exists under the key. Put replaces any existing document
// wholly. FindByLookupID returns all documents of a kind sharing a
// secondary lookup id, in deterministic key order.
type Store interface {
	Get(ctx context.Context, kind entity.Kind, keyParts []string) (*Document, error)
	Put(ctx context.Context, doc Document) error
	Remove(ctx context.Context, kind entity.Kind, keyParts []string) error
	FindByLookupID(ctx context.Context, kind entity.Kind, lookupID string) ([]Document, error)
}
