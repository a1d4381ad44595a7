package whenly

import (
	"github.com/viant/whenly/progress"
	"github.com/viant/whenly/runtime/cown"
	"github.com/viant/whenly/service/admission"
	"github.com/viant/whenly/service/dao"
	bmemory "github.com/viant/whenly/service/dao/behavior/memory"
	"github.com/viant/whenly/service/event"
	"github.com/viant/whenly/service/messaging"
	mmemory "github.com/viant/whenly/service/messaging/memory"
	"github.com/viant/whenly/service/processor"
)

// Service is the root façade assembling a scheduler out of its parts: the
// admission service, the run queue, the worker pool, the progress tracker,
// the behavior ledger and the event service. Every part can be replaced via
// an Option; everything left unset falls back to an in-memory default.
type Service struct {
	config           *Config
	runtime          *Runtime
	queue            messaging.Queue[*cown.Behavior]
	tracker          *progress.Tracker
	events           *event.Service
	behaviorDAO      dao.Service[string, cown.Record]
	errorSink        processor.ErrorSink
	processorWorkers int
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()
	s.runtime.admission = admission.New(s.queue, s.tracker, admission.WithEvents(s.events))
	s.runtime.processor, _ = processor.New(
		processor.WithQueue(s.queue),
		processor.WithAdmission(s.runtime.admission),
		processor.WithTracker(s.tracker),
		processor.WithBehaviorDAO(s.behaviorDAO),
		processor.WithEvents(s.events),
		processor.WithErrorSink(s.errorSink),
		processor.WithWorkers(s.config.Processor.WorkerCount))
	s.runtime.tracker = s.tracker
	s.runtime.behaviorDAO = s.behaviorDAO
	s.runtime.queue = s.queue
	s.runtime.events = s.events
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.config.Name == "" {
		s.config.Name = "whenly"
	}
	if s.processorWorkers > 0 {
		s.config.Processor.WorkerCount = s.processorWorkers
	}
	if s.config.Processor.WorkerCount <= 0 {
		s.config.Processor.WorkerCount = processor.DefaultConfig().WorkerCount
	}
	if s.config.Queue.Buffer <= 0 {
		s.config.Queue.Buffer = DefaultConfig().Queue.Buffer
	}
	if s.queue == nil {
		queueConfig := mmemory.DefaultConfig()
		queueConfig.QueueBuffer = s.config.Queue.Buffer
		s.queue = mmemory.NewQueue[*cown.Behavior](queueConfig)
	}
	if s.tracker == nil {
		s.tracker = progress.NewTracker(s.config.Name)
	}
	if s.behaviorDAO == nil {
		s.behaviorDAO = bmemory.New()
	}
	if s.events == nil {
		s.events = event.New()
	}
}

// Runtime returns the scheduling surface of the service.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Events returns the event service lifecycle transitions are published to.
func (s *Service) Events() *event.Service {
	return s.events
}

// New assembles a scheduler service.
func New(options ...Option) *Service {
	ret := &Service{runtime: &Runtime{}}
	ret.init(options)
	return ret
}

// NewCown creates a cown guarding the supplied payload. Cowns are not tied
// to a scheduler instance; any runtime can schedule behaviors over them.
func NewCown(payload any) *cown.Cown {
	return cown.New(payload)
}
