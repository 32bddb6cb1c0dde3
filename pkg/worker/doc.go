// Package worker delivers the side effects of flow navigation.
//
// Navigation never waits for analytics or diagnostics. Instead, each
// tracking event and debug report is submitted as a task to a bounded queue
// and a Worker delivers it to the configured api.Tracker or api.Debugger in
// the background.
//
// # Failure isolation
//
// A sink that returns an error or panics only loses the task at hand: the
// failure is logged and delivery continues with the next task. When the
// queue is full, Submit drops the task instead of blocking the caller.
//
// # Ordering
//
// Tasks are delivered in submission order by a single goroutine. A debug
// task may await the reference id of an earlier report (see
// taskqueue.Task.Await), which relies on this ordering.
//
// # Usage
//
// Most applications never construct a Worker directly; the runtime built by
// the waypoint package starts one and stops it on Close. Flush is useful in
// tests and in short-lived processes such as the CLI.
package worker
