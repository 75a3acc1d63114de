package journal

// DefaultTableName is used when no WithTableName option is given.
const DefaultTableName = "ledger_events"

// Settings are the engine independent options of a journal.
type Settings struct {
	TableName        string
	Logger           Logger
	ContextualLogger ContextualLogger
	Metrics          MetricsCollector
	Tracing          TracingCollector
}

// Option configures Settings.
type Option func(*Settings) error

// ApplyOptions returns Settings with defaults overridden by options.
func ApplyOptions(options ...Option) (Settings, error) {
	settings := Settings{TableName: DefaultTableName}

	for _, option := range options {
		if err := option(&settings); err != nil {
			return Settings{}, err
		}
	}

	return settings, nil
}

// WithTableName sets the journal table.
func WithTableName(tableName string) Option {
	return func(s *Settings) error {
		if tableName == "" {
			return ErrEmptyTableNameSupplied
		}

		s.TableName = tableName

		return nil
	}
}

// WithLogger sets the Logger.
func WithLogger(logger Logger) Option {
	return func(s *Settings) error {
		s.Logger = logger

		return nil
	}
}

// WithContextualLogger sets a ContextualLogger, which takes precedence over the Logger.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(s *Settings) error {
		s.ContextualLogger = logger

		return nil
	}
}

// WithMetrics sets the MetricsCollector.
func WithMetrics(collector MetricsCollector) Option {
	return func(s *Settings) error {
		s.Metrics = collector

		return nil
	}
}

// WithTracing sets the TracingCollector.
func WithTracing(collector TracingCollector) Option {
	return func(s *Settings) error {
		s.Tracing = collector

		return nil
	}
}
