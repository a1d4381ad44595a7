package whenly

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/whenly/internal/envexpr"
	"github.com/viant/whenly/service/processor"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the scheduler configuration. It
// can be populated from YAML or JSON. The zero-value is useful – all nested
// fields inherit their package defaults.

type Config struct {
	// Name identifies the scheduler in progress snapshots and traces.
	Name      string          `json:"name,omitempty" yaml:"name,omitempty"`
	Processor ProcessorConfig `json:"processor" yaml:"processor"`
	Queue     QueueConfig     `json:"queue" yaml:"queue"`
}

type ProcessorConfig struct {
	WorkerCount int `json:"workers" yaml:"workers"`
}

type QueueConfig struct {
	Buffer int `json:"buffer" yaml:"buffer"`
}

// DefaultConfig returns a Config populated with the same default values the
// constructors use. Callers may modify the returned struct before passing it
// to New via WithConfig.
func DefaultConfig() *Config {
	return &Config{
		Name: "whenly",
		Processor: ProcessorConfig{
			WorkerCount: processor.DefaultConfig().WorkerCount,
		},
		Queue: QueueConfig{
			Buffer: 100,
		},
	}
}

// Validate returns an error describing invalid settings or nil. Zero values
// are valid and mean "use the default".
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Processor.WorkerCount < 0 {
		return fmt.Errorf("processor.workers must not be negative")
	}
	if c.Queue.Buffer < 0 {
		return fmt.Errorf("queue.buffer must not be negative")
	}
	return nil
}

// ParseConfig decodes a YAML (or JSON) document into a Config. ${env.KEY}
// expressions are expanded before decoding.
func ParseConfig(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal([]byte(envexpr.Expand(string(data))), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfig reads a Config document from the supplied URL. Any scheme the
// virtual filesystem understands works here: file, embed, mem, s3 and so on.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", URL, err)
	}
	return ParseConfig(data)
}
