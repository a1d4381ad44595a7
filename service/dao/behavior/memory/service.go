package memory

import (
	"context"
	"sync"

	"github.com/viant/whenly/runtime/cown"
	"github.com/viant/whenly/service/dao"
	"github.com/viant/whenly/service/dao/criteria"
)

// Service implements an in-memory behavior ledger. All operations are
// thread-safe and work on copies of the stored records so callers can
// mutate what they get back without racing the store.
type Service struct {
	records map[string]*cown.Record
	mux     sync.RWMutex
}

// Compile-time check that Service implements the generic DAO interface.
var _ dao.Service[string, cown.Record] = (*Service)(nil)

// New constructor.
func New() *Service {
	return &Service{records: map[string]*cown.Record{}}
}

// Save persists a clone of the supplied record.
func (s *Service) Save(_ context.Context, record *cown.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	if record.ID == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.records[record.ID] = record.Clone()
	return nil
}

// Load retrieves a copy of the record or dao.ErrNotFound.
func (s *Service) Load(_ context.Context, id string) (*cown.Record, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mux.RLock()
	record, ok := s.records[id]
	s.mux.RUnlock()
	if !ok {
		return nil, dao.ErrNotFound
	}
	return record.Clone(), nil
}

// Delete removes a record.
func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.records[id]; !ok {
		return dao.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// List returns copies of the stored records, narrowed by the supported
// parameters ("State").
func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*cown.Record, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	out := make([]*cown.Record, 0, len(s.records))
	for _, record := range s.records {
		if !criteria.FilterByState(string(record.State), parameters) {
			continue
		}
		out = append(out, record.Clone())
	}
	return out, nil
}
