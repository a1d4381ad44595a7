package processor

import (
	"github.com/viant/whenly/progress"
	"github.com/viant/whenly/runtime/cown"
	"github.com/viant/whenly/service/admission"
	"github.com/viant/whenly/service/dao"
	"github.com/viant/whenly/service/event"
	"github.com/viant/whenly/service/messaging"
)

// Option configures the processor service.
type Option func(*Service)

// WithQueue sets the run queue the workers consume from
func WithQueue(queue messaging.Queue[*cown.Behavior]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithAdmission sets the admission service used to release cowns
func WithAdmission(service *admission.Service) Option {
	return func(s *Service) {
		s.admission = service
	}
}

// WithTracker sets the progress tracker
func WithTracker(tracker *progress.Tracker) Option {
	return func(s *Service) {
		s.tracker = tracker
	}
}

// WithBehaviorDAO sets the behavior ledger implementation
func WithBehaviorDAO(behaviorDAO dao.Service[string, cown.Record]) Option {
	return func(s *Service) {
		s.behaviorDAO = behaviorDAO
	}
}

// WithEvents sets the event service lifecycle transitions are published to
func WithEvents(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}

// WithErrorSink sets the callback invoked for every failed behavior
func WithErrorSink(sink ErrorSink) Option {
	return func(s *Service) {
		s.errorSink = sink
	}
}

// WithWorkers sets the number of worker goroutines
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.WorkerCount = count
	}
}

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}
