package admission

import (
	"github.com/viant/whenly/service/event"
)

type Option func(*Service)

// WithEvents enables lifecycle event publishing.
func WithEvents(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}
