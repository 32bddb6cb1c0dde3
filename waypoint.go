package waypoint

import (
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/waypoint/internal/audience"
	"github.com/petrijr/waypoint/internal/definition"
	"github.com/petrijr/waypoint/internal/engine"
	"github.com/petrijr/waypoint/internal/trigger"
	"github.com/petrijr/waypoint/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Flow              = api.Flow
	Slot              = api.Slot
	Branch            = api.Branch
	Step              = api.Step
	StepKind          = api.StepKind
	StepIndex         = api.StepIndex
	History           = api.History
	Frequency         = api.Frequency
	WaitOptions       = api.WaitOptions
	WaitList          = api.WaitList
	FormWait          = api.FormWait
	FieldMatch        = api.FieldMatch
	FooterActions     = api.FooterActions
	FooterActionItem  = api.FooterActionItem
	FeedbackField     = api.FeedbackField
	UserPropertyMatch = api.UserPropertyMatch
	UserPropertyGroup = api.UserPropertyGroup
	StartOptions      = api.StartOptions

	Tracker       = api.Tracker
	TrackerFunc   = api.TrackerFunc
	TrackingEvent = api.TrackingEvent
	EventType     = api.EventType
	Debugger      = api.Debugger
	DebugEvent    = api.DebugEvent
	Renderer      = api.Renderer
	RendererFunc  = api.RendererFunc
	RenderRequest = api.RenderRequest
	RenderResult  = api.RenderResult
	Mount         = api.Mount
	Element       = api.Element
	FlowUpdate    = api.FlowUpdate

	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver

	Runtime      = engine.Runtime
	Config       = engine.Config
	Instance     = engine.Instance
	State        = engine.State
	HandleResult = engine.HandleResult

	Event      = trigger.Event
	EventKind  = trigger.Kind
	Properties = audience.Properties

	ParseError = definition.ParseError
)

// Re-export common helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	Scalar               = api.Scalar
	Path                 = api.Path
	Resolve              = api.Resolve
)

// Re-export sentinel errors for errors.Is checks.

var (
	ErrFlowNotFound      = api.ErrFlowNotFound
	ErrFlowNotRunning    = api.ErrFlowNotRunning
	ErrDraftFlow         = api.ErrDraftFlow
	ErrFlowSeen          = api.ErrFlowSeen
	ErrFlowIncomplete    = api.ErrFlowIncomplete
	ErrInstanceDestroyed = api.ErrInstanceDestroyed
	ErrInvalidStep       = api.ErrInvalidStep
	ErrNoPrevStep        = api.ErrNoPrevStep
	ErrNestedFork        = api.ErrNestedFork
)

const (
	FrequencyOnce         = api.FrequencyOnce
	FrequencyEverySession = api.FrequencyEverySession
	FrequencyEveryTime    = api.FrequencyEveryTime

	StateActive           = engine.StateActive
	StateWaitingForTarget = engine.StateWaitingForTarget
	StateDestroyed        = engine.StateDestroyed

	KindElement  = trigger.KindElement
	KindClick    = trigger.KindClick
	KindSubmit   = trigger.KindSubmit
	KindChange   = trigger.KindChange
	KindLocation = trigger.KindLocation

	EventStartFlow  = api.EventStartFlow
	EventNextStep   = api.EventNextStep
	EventPrevStep   = api.EventPrevStep
	EventCancelFlow = api.EventCancelFlow
	EventFinishFlow = api.EventFinishFlow

	StepTooltip  = api.KindTooltip
	StepModal    = api.KindModal
	StepBanner   = api.KindBanner
	StepFeedback = api.KindFeedback
	StepWait     = api.KindWait
)

// Runtime constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewRuntime returns a Runtime configured by cfg. A nil cfg.Store keeps
// state in memory.
func NewRuntime(cfg Config) *Runtime {
	return engine.NewRuntime(cfg)
}

// NewInMemoryRuntime returns a Runtime backed entirely by in-memory stores.
func NewInMemoryRuntime(cfg Config) *Runtime {
	return engine.NewInMemoryRuntime(cfg)
}

// NewSQLiteRuntime returns a Runtime that persists progress, seen markers and
// the tracking log of one user scope in a SQLite database.
func NewSQLiteRuntime(db *sql.DB, scope string, cfg Config) (*Runtime, error) {
	return engine.NewSQLiteRuntime(db, scope, cfg)
}

// NewPostgresRuntime returns a Runtime that persists progress and seen
// markers of one user scope in PostgreSQL.
func NewPostgresRuntime(db *sql.DB, scope string, cfg Config) (*Runtime, error) {
	return engine.NewPostgresRuntime(db, scope, cfg)
}

// NewRedisRuntime returns a Runtime that persists progress and seen markers
// in Redis under prefix.
func NewRedisRuntime(client *redis.Client, prefix string, cfg Config) *Runtime {
	return engine.NewRedisRuntime(client, prefix, cfg)
}

// ParseFlows parses YAML or JSON flow definitions. sourcePath is only used
// in error messages.
func ParseFlows(data []byte, sourcePath string) ([]*Flow, error) {
	return definition.Parse(data, sourcePath)
}

// LoadFlowFile parses the flow definitions in a file.
func LoadFlowFile(path string) ([]*Flow, error) {
	return definition.ParseFile(path)
}

// RegisterAll registers every flow, stopping at the first error.
func RegisterAll(rt *Runtime, flows []*Flow) error {
	for _, f := range flows {
		if err := rt.RegisterFlow(f); err != nil {
			return err
		}
	}
	return nil
}
