package event

import (
	"github.com/viant/afs"
	"github.com/viant/whenly/service/messaging/fs"
	"github.com/viant/whenly/service/messaging/memory"
)

type Option func(s *Service)

// WithQueueConfig sets the per-queue configuration supplier; name is the
// event payload type the queue serves.
func WithQueueConfig(newConfig func(name string) memory.Config) Option {
	return func(s *Service) {
		s.newQueueConfig = newConfig
	}
}

// WithDurableQueues stores every event stream as JSON documents under
// baseURL, one directory per payload type, so the streams survive restarts
// and can be inspected with any storage browser.
func WithDurableQueues(baseURL string) Option {
	return func(s *Service) {
		config := fs.DefaultConfig()
		config.BasePath = baseURL
		s.fsService = afs.New()
		s.fsConfig = &config
	}
}
