package eventlog_test

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/a2a-labs/agent-runtime/internal/a2a/eventlog"
	"github.com/a2a-labs/agent-runtime/internal/a2a/types"
)

// TestProperty_VersionsAreAlwaysContiguous checks spec.md §8's universally
// quantified invariant across randomly sized append sequences: versions
// assigned to a task are always 0..n-1.
func TestProperty_VersionsAreAlwaysContiguous(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("contiguous versions", prop.ForAll(
		func(n int) bool {
			ctx := context.Background()
			store := eventlog.NewInMemoryStore(nil)
			for i := 0; i < n; i++ {
				v, err := store.Append(ctx, "t1", types.NewStatusUpdateEvent("t1", "ctx-1", types.TaskStatus{
					State:     types.TaskStateWorking,
					Timestamp: time.Now(),
				}), nil)
				if err != nil || v != int64(i) {
					return false
				}
			}
			latest, err := store.LatestVersion(ctx, "t1")
			return err == nil && latest == int64(n)-1
		},
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}
