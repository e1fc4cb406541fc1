// Package storage provides flow persistence for flowplan using NATS KV.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// BucketFlows is the KV bucket holding flow entities.
const BucketFlows = "FLOWPLAN_FLOWS"

// maxScan bounds external-id lookups so a large bucket cannot cause
// unbounded iteration.
const maxScan = 1000

// Flow is one persisted flow: the authored compact document and the
// PlanSpace document compiled from it.
type Flow struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id,omitempty"`
	Name       string    `json:"name"`
	Workspace  string    `json:"workspace,omitempty"`
	FlowYAML   string    `json:"flow_yaml,omitempty"`
	PlanYAML   string    `json:"plan_yaml,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewFlowID generates a new unique flow identifier.
func NewFlowID() string {
	return uuid.New().String()
}

// Store provides flow storage operations backed by NATS KV.
type Store struct {
	flows jetstream.KeyValue
}

// NewStore creates a Store with the given JetStream context, creating
// the flows bucket if it does not exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	flows, err := getOrCreateBucket(ctx, js, BucketFlows)
	if err != nil {
		return nil, fmt.Errorf("create flows bucket: %w", err)
	}
	return &Store{flows: flows}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Flowplan %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// Create stores a new flow and returns its generated ID.
func (s *Store) Create(ctx context.Context, f *Flow) (string, error) {
	f.ID = NewFlowID()
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt

	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("marshal flow: %w", err)
	}

	if _, err := s.flows.Create(ctx, f.ID, data); err != nil {
		return "", fmt.Errorf("store flow: %w", err)
	}

	return f.ID, nil
}

// Get retrieves a flow by ID.
func (s *Store) Get(ctx context.Context, id string) (*Flow, error) {
	entry, err := s.flows.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get flow: %w", err)
	}

	var f Flow
	if err := json.Unmarshal(entry.Value(), &f); err != nil {
		return nil, fmt.Errorf("unmarshal flow: %w", err)
	}

	return &f, nil
}

// GetByExternalID retrieves the flow carrying the given external id.
func (s *Store) GetByExternalID(ctx context.Context, externalID string) (*Flow, error) {
	if externalID == "" {
		return nil, ErrNotFound
	}

	keys, err := s.flows.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("list flow keys: %w", err)
	}

	for i, key := range keys {
		if i >= maxScan {
			break
		}
		entry, err := s.flows.Get(ctx, key)
		if err != nil {
			continue
		}
		var f Flow
		if err := json.Unmarshal(entry.Value(), &f); err != nil {
			continue
		}
		if f.ExternalID == externalID {
			return &f, nil
		}
	}

	return nil, ErrNotFound
}

// Update overwrites an existing flow.
func (s *Store) Update(ctx context.Context, f *Flow) error {
	if f.ID == "" {
		return fmt.Errorf("flow has no ID")
	}
	if _, err := s.Get(ctx, f.ID); err != nil {
		return err
	}

	f.UpdatedAt = time.Now()

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal flow: %w", err)
	}

	if _, err := s.flows.Put(ctx, f.ID, data); err != nil {
		return fmt.Errorf("update flow: %w", err)
	}

	return nil
}

// Delete removes a flow by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.flows.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	return nil
}

// List returns all stored flows.
func (s *Store) List(ctx context.Context) ([]*Flow, error) {
	keys, err := s.flows.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list flow keys: %w", err)
	}

	flows := make([]*Flow, 0, len(keys))
	for _, key := range keys {
		entry, err := s.flows.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var f Flow
		if err := json.Unmarshal(entry.Value(), &f); err != nil {
			continue
		}
		flows = append(flows, &f)
	}

	return flows, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
