package history

import "time"

// NopStore is a no-op store used in dry-run mode. Nothing is recorded and
// Recent always reports an empty history.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Record(Run) error          { return nil }
func (s *NopStore) Recent(int) ([]Run, error) { return nil, nil }
func (s *NopStore) Prune(time.Duration) error { return nil }
func (s *NopStore) Close() error              { return nil }
