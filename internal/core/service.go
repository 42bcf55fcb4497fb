package core

import (
	"context"
	"time"

	"programhub/internal/access"
	"programhub/internal/infra/persistence/memory"
	"programhub/pkg/domain"
)

// Service is the operation surface of programhub. Every operation takes the
// calling principal explicitly and runs as one store transaction.
type Service struct {
	store   PersistentStore
	policy  *access.Policy
	logger  Logger
	now     func() time.Time
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	files   domain.FileStore
}

// Option customises a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger  Logger
	clock   Clock
	audit   []AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	files   domain.FileStore
	policy  *access.Policy
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		policy:  access.NewPolicy(),
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the service clock.
func WithClock(clock Clock) Option {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithAuditRecorder adds an audit sink. It may be given several times.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = append(o.audit, recorder)
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithFileStore enables document uploads.
func WithFileStore(files domain.FileStore) Option {
	return func(o *serviceOptions) {
		o.files = files
	}
}

// WithPolicy replaces the access policy.
func WithPolicy(policy *access.Policy) Option {
	return func(o *serviceOptions) {
		if policy != nil {
			o.policy = policy
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	var audit AuditRecorder = noopAuditRecorder{}
	switch len(o.audit) {
	case 0:
	case 1:
		audit = o.audit[0]
	default:
		audit = multiAuditRecorder(o.audit)
	}
	return &Service{
		store:   store,
		policy:  o.policy,
		logger:  o.logger,
		now:     selectNowFunc(store, o.clock),
		audit:   audit,
		metrics: o.metrics,
		tracer:  o.tracer,
		files:   o.files,
	}
}

// NewInMemoryService creates a service over a fresh in-memory store using the
// default rule set.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(NewDefaultRulesEngine()), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// selectNowFunc prefers an explicit clock, then the store clock, then system UTC time.
func selectNowFunc(store PersistentStore, clock Clock) func() time.Time {
	if clock != nil {
		return clock.Now
	}
	if provider, ok := store.(interface{ NowFunc() func() time.Time }); ok {
		if fn := provider.NowFunc(); fn != nil {
			return func() time.Time { return fn().UTC() }
		}
	}
	return func() time.Time { return time.Now().UTC() }
}

type operation struct {
	name   string
	kind   EntityType
	action Action
	actor  string
}

// mutating operations reach the audit sinks; reads are only logged and measured.
func (op operation) mutating() bool {
	return op.action != ""
}

// run wraps fn with tracing, metrics, audit and logging. fn returns the ID of
// the record it touched, if any.
func (s *Service) run(ctx context.Context, op operation, fn func(ctx context.Context) (string, error)) error {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op.name)
	entityID, err := fn(ctx)
	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op.name, err == nil, duration)

	fields := []any{"operation", op.name, "entity", string(op.kind), "entity_id", entityID, "actor", op.actor, "duration", duration}
	if err != nil {
		kind := domain.KindOf(err)
		fields = append(fields, "error", err.Error(), "error_kind", string(kind))
		if kind == domain.KindInfrastructure || kind == domain.KindUnknown {
			s.logger.Error("operation failed", fields...)
		} else {
			s.logger.Warn("operation rejected", fields...)
		}
	} else if op.mutating() {
		s.logger.Info("operation completed", fields...)
	} else {
		s.logger.Debug("operation completed", fields...)
	}

	if op.mutating() {
		entry := AuditEntry{
			Operation: op.name,
			Entity:    op.kind,
			Action:    op.action,
			EntityID:  entityID,
			Actor:     op.actor,
			Status:    AuditStatusSuccess,
			Duration:  duration,
			Timestamp: s.now(),
		}
		if err != nil {
			entry.Status = AuditStatusError
			entry.Error = err.Error()
			entry.ErrorKind = domain.KindOf(err)
		}
		s.audit.Record(ctx, entry)
	}
	return err
}

func opName(verb string, kind EntityType) string {
	return verb + "_" + string(kind)
}
