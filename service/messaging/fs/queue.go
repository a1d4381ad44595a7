package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"github.com/viant/whenly/service/messaging"
)

// MessageState represents the state of a message in the filesystem queue
type MessageState string

const (
	// MessageStatePending indicates a message is waiting to be processed
	MessageStatePending MessageState = "pending"

	// MessageStateProcessing indicates a message is being processed
	MessageStateProcessing MessageState = "processing"

	// MessageStateCompleted indicates a message was successfully processed
	MessageStateCompleted MessageState = "completed"

	// MessageStateFailed indicates a message failed processing
	MessageStateFailed MessageState = "failed"
)

// Message implements messaging.Message for the filesystem queue
type Message[T any] struct {
	ID        string       `json:"id"`
	Data      T            `json:"data"`
	State     MessageState `json:"state"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Retries   int          `json:"retries"`

	queue     *Queue[T]
	processed bool
	mu        sync.Mutex
}

// T returns the message payload
func (m *Message[T]) T() T {
	return m.Data
}

// Ack acknowledges that the message was processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return fmt.Errorf("message already processed")
	}

	m.processed = true
	m.State = MessageStateCompleted
	m.UpdatedAt = time.Now()

	return m.queue.completeMessage(context.Background(), m)
}

// Nack indicates that the message processing failed
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return fmt.Errorf("message already processed")
	}

	m.processed = true
	m.State = MessageStateFailed
	if err != nil {
		m.Error = err.Error()
	}
	m.Retries++
	m.UpdatedAt = time.Now()

	return m.queue.failMessage(context.Background(), m)
}

// QueueConfig holds configuration for the filesystem queue
type QueueConfig struct {
	BasePath   string        // Base directory for queue files
	MaxRetries int           // Maximum number of retry attempts
	RetryDelay time.Duration // Delay between retries
}

// DefaultConfig returns a default queue configuration
func DefaultConfig() QueueConfig {
	return QueueConfig{
		BasePath:   "/tmp/whenly/queue",
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// Queue implements a filesystem-backed messaging.Queue. Payloads must be
// JSON-serialisable; every message lives as one document that moves between
// the pending, processing, completed, failed and dlq directories as its
// state changes, which makes the stream inspectable and durable across
// restarts.
//
// Consume polls: it returns a nil message when no work is pending instead
// of blocking, so callers are expected to delay between empty polls.
type Queue[T any] struct {
	fs            afs.Service
	config        QueueConfig
	pendingDir    string
	processingDir string
	completedDir  string
	failedDir     string
	dlqDir        string
	mu            sync.Mutex
}

// NewQueue creates a new filesystem-backed queue
func NewQueue[T any](fs afs.Service, config QueueConfig) (*Queue[T], error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	q := &Queue[T]{
		fs:            fs,
		config:        config,
		pendingDir:    url.Join(config.BasePath, "pending"),
		processingDir: url.Join(config.BasePath, "processing"),
		completedDir:  url.Join(config.BasePath, "completed"),
		failedDir:     url.Join(config.BasePath, "failed"),
		dlqDir:        url.Join(config.BasePath, "dlq"),
	}

	dirs := []string{
		q.pendingDir,
		q.processingDir,
		q.completedDir,
		q.failedDir,
		q.dlqDir,
	}

	ctx := context.Background()
	for _, dir := range dirs {
		exists, _ := fs.Exists(ctx, dir)
		if !exists {
			if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return q, nil
}

// Publish adds a new message to the queue
func (q *Queue[T]) Publish(ctx context.Context, t T) error {
	now := time.Now()
	message := &Message[T]{
		ID:        uuid.New().String(),
		Data:      t,
		State:     MessageStatePending,
		CreatedAt: now,
		UpdatedAt: now,
		Retries:   0,
		queue:     q,
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	filePath := url.Join(q.pendingDir, q.filename(message))
	return q.uploadMessage(ctx, filePath, data)
}

// Consume retrieves the oldest pending message, or nil when the queue is
// empty. Failed messages eligible for retry take precedence.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	retryMessage, err := q.checkFailedMessages(ctx)
	if err != nil {
		return nil, err
	}
	if retryMessage != nil {
		return retryMessage, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	obj, err := q.oldest(ctx, q.pendingDir)
	if err != nil || obj == nil {
		return nil, err
	}

	message, err := q.readMessageFromURL(ctx, obj.URL())
	if err != nil {
		// park the unreadable document so it cannot wedge the queue
		destURL := url.Join(q.failedDir, fmt.Sprintf("invalid-%s", obj.Name()))
		_ = q.fs.Move(ctx, obj.URL(), destURL)
		return nil, err
	}

	message.State = MessageStateProcessing
	message.UpdatedAt = time.Now()
	message.queue = q

	if err := q.moveMessage(ctx, message, obj, q.processingDir); err != nil {
		return nil, err
	}
	return message, nil
}

// checkFailedMessages looks for failed messages eligible for retry
func (q *Queue[T]) checkFailedMessages(ctx context.Context) (*Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	obj, err := q.oldest(ctx, q.failedDir)
	if err != nil || obj == nil {
		return nil, err
	}

	message, err := q.readMessageFromURL(ctx, obj.URL())
	if err != nil {
		destURL := url.Join(q.dlqDir, fmt.Sprintf("invalid-%s", obj.Name()))
		_ = q.fs.Move(ctx, obj.URL(), destURL)
		return nil, err
	}
	message.queue = q

	if message.Retries > q.config.MaxRetries {
		destURL := url.Join(q.dlqDir, obj.Name())
		if err := q.fs.Move(ctx, obj.URL(), destURL); err != nil {
			return nil, fmt.Errorf("failed to move message to DLQ: %w", err)
		}
		return nil, nil
	}

	if message.RetryAt().After(time.Now()) {
		return nil, nil
	}

	message.State = MessageStateProcessing
	message.UpdatedAt = time.Now()

	if err := q.moveMessage(ctx, message, obj, q.processingDir); err != nil {
		return nil, err
	}
	return message, nil
}

// RetryAt returns the earliest time a failed message may run again.
func (m *Message[T]) RetryAt() time.Time {
	return m.UpdatedAt.Add(m.queue.config.RetryDelay)
}

// completeMessage moves a message to the completed directory
func (q *Queue[T]) completeMessage(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.transition(ctx, m, q.completedDir)
}

// failMessage moves a message to the failed directory, or to the DLQ once
// the retry budget is spent
func (q *Queue[T]) failMessage(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if m.Retries > q.config.MaxRetries {
		return q.transition(ctx, m, q.dlqDir)
	}
	return q.transition(ctx, m, q.failedDir)
}

// transition rewrites the message document under destDir and removes it
// from the processing directory
func (q *Queue[T]) transition(ctx context.Context, m *Message[T], destDir string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	filename := q.filename(m)
	if err := q.uploadMessage(ctx, url.Join(destDir, filename), data); err != nil {
		return fmt.Errorf("failed to write message to %s: %w", destDir, err)
	}

	processingPath := url.Join(q.processingDir, filename)
	if exists, _ := q.fs.Exists(ctx, processingPath); exists {
		if err := q.fs.Delete(ctx, processingPath); err != nil {
			return fmt.Errorf("failed to delete message from processing directory: %w", err)
		}
	}
	return nil
}

// moveMessage rewrites the message document under destDir and deletes the
// source object. The write happens first so a crash can duplicate a message
// but never lose one.
func (q *Queue[T]) moveMessage(ctx context.Context, m *Message[T], obj storage.Object, destDir string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := q.uploadMessage(ctx, url.Join(destDir, obj.Name()), data); err != nil {
		return fmt.Errorf("failed to move message to %s: %w", destDir, err)
	}
	if err := q.fs.Delete(ctx, obj.URL()); err != nil {
		return fmt.Errorf("failed to delete message from source directory: %w", err)
	}
	return nil
}

// oldest returns the lexically first message document in dir, nil when the
// directory holds none. Filenames embed the publish timestamp, so lexical
// order is publish order.
func (q *Queue[T]) oldest(ctx context.Context, dir string) (storage.Object, error) {
	objects, err := q.fs.List(ctx, dir, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var files []storage.Object
	for _, obj := range objects {
		if !obj.IsDir() && strings.HasSuffix(obj.Name(), ".json") {
			files = append(files, obj)
		}
	}
	if len(files) == 0 {
		return nil, nil
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name() < files[j].Name()
	})
	return files[0], nil
}

// filename derives the stable document name for a message
func (q *Queue[T]) filename(m *Message[T]) string {
	return fmt.Sprintf("%020d-%s.json", m.CreatedAt.UnixNano(), m.ID)
}

// uploadMessage abstracts the common operation of uploading message data
func (q *Queue[T]) uploadMessage(ctx context.Context, path string, data []byte) error {
	return q.fs.Upload(ctx, path, file.DefaultFileOsMode, bytes.NewBuffer(data))
}

// readMessageFromURL abstracts the common operation of reading and unmarshaling a message
func (q *Queue[T]) readMessageFromURL(ctx context.Context, url string) (*Message[T], error) {
	data, err := q.fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", url, err)
	}

	var message Message[T]
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", url, err)
	}

	return &message, nil
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
