// Package waypoint provides an embeddable step navigation engine for guided
// product walkthroughs.
//
// A walkthrough is described by a Flow: an ordered list of steps (modals,
// tooltips, banners, feedback forms and wait-only steps) that may fork into
// alternative branches. Waypoint tracks where each user is in every running
// flow, moves them forward and back, persists their progress and reports
// analytics. It never touches a document itself; drawing is delegated to a
// Renderer supplied by the host.
//
// # Core Concepts
//
//  1. Flow and StepIndex
//  2. Runtime
//  3. Instance
//  4. Events and triggers
//  5. FlowBuilder and flow files
//
// # Flow and StepIndex
//
// A step is addressed by a StepIndex. Top-level steps use a scalar index;
// steps inside a fork use a path such as [1,0,2]: top-level position 1,
// branch 0, position 2 within the branch. Forks nest one level deep.
//
// # Runtime
//
// The Runtime holds the registered flows and their running instances for one
// user. It is constructed explicitly with a Config and can be backed by
// different stores:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability, including a tracking log)
//   - Postgres
//   - Redis
//
// Tracking and debug events are handed to a background worker so that slow
// analytics sinks never block navigation. Call Flush to wait for delivery
// and Close on shutdown.
//
// # Instance
//
// An Instance is one running flow. NextStep, PrevStep, Cancel and Finish
// drive it; Activate maps footer buttons onto those operations. Entering a
// fork without choosing a branch, or stepping past the end of a branch with
// nothing after it, destroys the instance and reports ErrInvalidStep.
//
// # Events and triggers
//
// Hosts report UI activity with Runtime.HandleEvent. Steps with wait
// conditions advance when a matching click, submit, change, element or
// location event arrives, and flows with start conditions start on their
// own when the user's properties match the flow's audience.
//
// # FlowBuilder and flow files
//
// Flows can be declared in Go:
//
//	flow := waypoint.New("onboarding").
//	    Modal("Welcome", "Let's get you started.").
//	    Tooltip("#new-project", "Create a project", "").
//	    MustBuild()
//
// or loaded from YAML and JSON files with LoadFlowFile.
//
// LocalRunner wraps an in-memory runtime with a headless renderer for
// scripted walkthroughs in tests and on the command line.
package waypoint
