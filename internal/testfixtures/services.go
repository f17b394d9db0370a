package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/academy-timetable/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// TimetableServiceDeps captures dependencies for constructing a timetable service.
type TimetableServiceDeps struct {
	Store       application.SessionStore
	Notifier    application.ChangeNotifier
	IDGenerator func() string
	Now         func() time.Time
	Location    *time.Location
	Logger      *slog.Logger
}

// NewTimetableService builds a timetable service using the supplied
// dependencies combined with the factory defaults. Location defaults to UTC.
func (f *ServiceFactory) NewTimetableService(deps TimetableServiceDeps) *application.TimetableService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	return application.NewTimetableServiceWithLogger(
		deps.Store,
		deps.Notifier,
		idGen,
		now,
		location,
		deps.Logger,
	)
}

// PresetServiceDeps captures dependencies for constructing a preset service.
type PresetServiceDeps struct {
	Presets     application.PresetStore
	Timetable   *application.TimetableService
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewPresetService builds a preset service using the supplied dependencies.
func (f *ServiceFactory) NewPresetService(deps PresetServiceDeps) *application.PresetService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewPresetServiceWithLogger(
		deps.Presets,
		deps.Timetable,
		idGen,
		now,
		deps.Logger,
	)
}
