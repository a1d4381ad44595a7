package whenly

import (
	"github.com/viant/whenly/runtime/cown"
	"github.com/viant/whenly/service/dao"
	"github.com/viant/whenly/service/event"
	"github.com/viant/whenly/service/messaging"
	"github.com/viant/whenly/service/processor"
	"github.com/viant/whenly/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the scheduler service
type Option func(s *Service)

// WithConfig sets the scheduler configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithQueue sets the run queue implementation
func WithQueue(queue messaging.Queue[*cown.Behavior]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithEventService sets the event service
func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.events = service
	}
}

// WithBehaviorDAO sets the behavior ledger implementation
func WithBehaviorDAO(behaviorDAO dao.Service[string, cown.Record]) Option {
	return func(s *Service) {
		s.behaviorDAO = behaviorDAO
	}
}

// WithErrorSink sets the callback invoked for every failed behavior
func WithErrorSink(sink processor.ErrorSink) Option {
	return func(s *Service) {
		s.errorSink = sink
	}
}

// WithProcessorWorkers sets the number of workers running behaviors
func WithProcessorWorkers(count int) Option {
	return func(s *Service) {
		s.processorWorkers = count
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The function is
// safe to call multiple times – the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter. This enables
// integrations with exporters other than the built-in stdout exporter, for example OTLP, Jaeger or
// Zipkin. The function is safe to call multiple times – the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
