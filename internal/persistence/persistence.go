package persistence

// Persistence bundles the store interfaces so the runtime
// can depend on a single abstraction.
type Persistence struct {
	State  StateStore
	Events EventStore
}
