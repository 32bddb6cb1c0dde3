// Package api defines the data model and collaborator contracts of waypoint.
//
// # Flows and step indices
//
// A Flow is an ordered sequence of slots. A slot is either a Step or a fork:
// a list of branches, each branch being its own sequence of steps. Forks nest
// a single level deep; ValidateNesting rejects anything deeper.
//
// A StepIndex locates a position in that tree. A scalar index is a position
// in the top-level sequence; a path index such as [1,0,2] reads "top-level
// position 1, branch 0, position 2 within the branch". Resolve maps an index
// to its step and never panics.
//
// # Collaborators
//
// The runtime never touches a document directly. It delegates presentation
// to a Renderer, analytics to a Tracker, author diagnostics to a Debugger and
// lifecycle notifications to an Observer. Tracker and Debugger calls are fire
// and forget: their failures are logged and never change navigation.
//
// # Observers
//
// Observer implementations receive every flow transition. NoopObserver,
// CompositeObserver, LoggingObserver (log/slog) and BasicMetrics cover the
// common cases.
package api
