package testutil

import (
	"testing"
)

// SkipWithoutContainers skips integration tests in -short mode and when a
// shared container could not be started.
func SkipWithoutContainers(t *testing.T, startErr error) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}
	if startErr != nil {
		t.Skipf("container unavailable: %v", startErr)
	}
}
