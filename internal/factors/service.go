package factors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// SettingsStore is the persistence contract the factor service depends on.
// A nil document (with nil error) means no factor overrides were ever saved.
type SettingsStore interface {
	GetFactors(ctx context.Context) (json.RawMessage, error)
	PutFactors(ctx context.Context, doc json.RawMessage) error
}

// Service loads and saves the factor model against a settings store.
type Service struct {
	store SettingsStore
}

// NewService creates a factor service backed by the given store.
func NewService(store SettingsStore) *Service {
	return &Service{store: store}
}

// Load fetches persisted factor overrides and merges them over the
// defaults. A missing document is created from the defaults; a read
// failure degrades to the defaults instead of failing the caller.
func (s *Service) Load(ctx context.Context) Model {
	raw, err := s.store.GetFactors(ctx)
	if err != nil {
		slog.Warn("factor load failed, using defaults", "error", err)
		return Defaults()
	}

	if raw == nil {
		if err := s.Save(ctx, Defaults()); err != nil {
			slog.Warn("failed to seed default factor document", "error", err)
		}
		return Defaults()
	}

	m, err := Merge(raw)
	if err != nil {
		slog.Warn("stored factor document is malformed, using defaults", "error", err)
		return Defaults()
	}
	return m
}

// Save persists the factor model, excluding the externally sourced live
// quotation fields. Write failures propagate to the caller.
func (s *Service) Save(ctx context.Context, m Model) error {
	doc, err := m.persistable()
	if err != nil {
		return err
	}
	if err := s.store.PutFactors(ctx, doc); err != nil {
		return fmt.Errorf("persist factor document: %w", err)
	}
	return nil
}
