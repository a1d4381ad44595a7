// Package event distributes typed lifecycle notifications over messaging
// queues. Publishers and listeners are created per payload type and cached;
// a catch-all untyped stream mirrors every published event.
package event

import (
	"log"
	"reflect"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"github.com/viant/whenly/service/messaging"
	"github.com/viant/whenly/service/messaging/fs"
	"github.com/viant/whenly/service/messaging/memory"
)

type Service struct {
	publisher       *Publisher[any]
	listener        *Listener[any]
	typedPublishers map[reflect.Type]any
	typedListener   map[reflect.Type]any
	mux             *sync.RWMutex
	newQueueConfig  func(name string) memory.Config
	fsService       afs.Service
	fsConfig        *fs.QueueConfig
}

// SetListener installs a catch-all handler receiving every event published
// through this service, replacing any previous one.
func (s *Service) SetListener(handler func(*Event[any])) {
	if s.listener != nil {
		s.listener.Stop()
	}
	s.listener = NewListener[any](s.publisher, handler)
	s.listener.Start()
}

func New(opts ...Option) *Service {
	ret := &Service{
		typedPublishers: make(map[reflect.Type]any),
		typedListener:   make(map[reflect.Type]any),
		mux:             &sync.RWMutex{},
		newQueueConfig:  func(string) memory.Config { return memory.DefaultConfig() },
	}
	for _, opt := range opts {
		opt(ret)
	}
	queue := QueueOf[*Event[any]](ret, "any")
	ret.publisher = NewPublisher[any](queue)
	return ret
}

// QueueOf creates a queue for the provided payload type. With durable
// queues enabled each type gets its own directory under the base URL;
// when the store cannot be reached the stream degrades to memory.
func QueueOf[T any](s *Service, name string) messaging.Queue[T] {
	if s.fsConfig != nil {
		config := *s.fsConfig
		config.BasePath = url.Join(config.BasePath, name)
		queue, err := fs.NewQueue[T](s.fsService, config)
		if err == nil {
			return queue
		}
		log.Printf("event: durable queue for %s unavailable, using memory: %v", name, err)
	}
	return memory.NewQueue[T](s.newQueueConfig(name))
}

func keyOf[T any]() reflect.Type {
	var t T
	rType := reflect.TypeOf(t)
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// SetListenerOf installs a handler for events carrying the provided payload
// type, replacing any previous one.
func SetListenerOf[T any](s *Service, handler func(*Event[T])) {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.typedListener[key]
	s.mux.RUnlock()
	if ok {
		ret.(*Listener[T]).Stop()
	}
	publisher := PublisherOf[T](s)
	listener := NewListener[T](publisher, handler)
	s.mux.Lock()
	s.typedListener[key] = listener
	listener.Start()
	s.mux.Unlock()
}

// PublisherOf returns the cached publisher for the provided payload type,
// creating it on first use.
func PublisherOf[T any](s *Service) *Publisher[T] {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.typedPublishers[key]
	s.mux.RUnlock()
	if !ok {
		queue := QueueOf[*Event[T]](s, key.String())
		publisher := NewPublisher[T](queue)
		publisher.anyQueue = s.publisher.queue
		s.mux.Lock()
		s.typedPublishers[key] = publisher
		s.mux.Unlock()
		return publisher
	}
	return ret.(*Publisher[T])
}
