package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/whenly/runtime/cown"
	"github.com/viant/whenly/service/dao"
	"github.com/viant/whenly/service/dao/criteria"
)

// Service implements a filesystem-backed behavior ledger. Records are
// stored as one JSON document per behavior under the base path.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

// Ensure Service implements dao.Service
var _ dao.Service[string, cown.Record] = (*Service)(nil)

// Save persists a behavior record
func (s *Service) Save(ctx context.Context, record *cown.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	if record.ID == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	filePath := s.recordPath(record.ID)
	err = s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to save record to file %s: %w", filePath, err)
	}

	return nil
}

// Load retrieves a behavior record
func (s *Service) Load(ctx context.Context, id string) (*cown.Record, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath := s.recordPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check if record exists: %w", err)
	}

	if !exists {
		return nil, dao.ErrNotFound
	}

	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	var record cown.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record data: %w", err)
	}

	return &record, nil
}

// Delete removes a behavior record
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.recordPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check if record exists: %w", err)
	}

	if !exists {
		return dao.ErrNotFound
	}

	if err := s.fs.Delete(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete record file: %w", err)
	}

	return nil
}

// List returns stored records, narrowed by the supported parameters ("State").
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*cown.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list record files: %w", err)
	}

	var records []*cown.Record
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		if !strings.HasSuffix(object.Name(), ".json") {
			continue
		}

		data, err := s.fs.Download(ctx, object)
		if err != nil {
			log.Printf("error reading record file %s: %v", object.URL(), err)
			continue
		}

		var record cown.Record
		if err := json.Unmarshal(data, &record); err != nil {
			log.Printf("error unmarshaling record from %s: %v", object.URL(), err)
			continue
		}
		if !criteria.FilterByState(string(record.State), parameters) {
			continue
		}
		records = append(records, &record)
	}

	return records, nil
}

// recordPath returns the file path for a behavior record
func (s *Service) recordPath(id string) string {
	return url.Join(s.basePath, fmt.Sprintf("%s.json", id))
}

// New creates a filesystem behavior ledger rooted at basePath
func New(basePath string) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	fs := afs.New()

	ctx := context.Background()
	exists, _ := fs.Exists(ctx, basePath)
	if !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}

	basePath = url.Normalize(basePath, file.Scheme)

	return &Service{
		basePath: basePath,
		fs:       fs,
	}, nil
}
