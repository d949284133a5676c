package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope_ContextRoundTrip(t *testing.T) {
	t.Run("missing scope yields the zero value", func(t *testing.T) {
		sc := FromContext(context.Background())
		assert.True(t, sc.IsZero())
		assert.False(t, sc.HasBranch())
	})

	t.Run("attached scope is returned intact", func(t *testing.T) {
		ctx := WithScope(context.Background(), Scope{TenantID: "t1", BranchID: "b1"})
		sc := FromContext(ctx)
		assert.Equal(t, "t1", sc.TenantID)
		assert.Equal(t, "b1", sc.BranchID)
		assert.True(t, sc.HasBranch())
	})

	t.Run("derived contexts keep the scope", func(t *testing.T) {
		ctx := WithScope(context.Background(), Scope{TenantID: "t1", BranchID: "b1"})
		child, cancel := context.WithCancel(ctx)
		defer cancel()
		assert.Equal(t, "b1", FromContext(child).BranchID)
	})

	t.Run("scope survives cancellation detachment", func(t *testing.T) {
		// The audit pre-image fetch runs on context.WithoutCancel; the scope
		// values must stay visible there.
		ctx, cancel := context.WithCancel(
			WithScope(context.Background(), Scope{TenantID: "t1", BranchID: "b1"}))
		detached := context.WithoutCancel(ctx)
		cancel()

		got := make(chan Scope, 1)
		go func() {
			got <- FromContext(detached)
		}()
		assert.Equal(t, Scope{TenantID: "t1", BranchID: "b1"}, <-got)
	})
}
