package orchestrator

import (
	"context"
	"testing"

	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/platform/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionMessages(t *testing.T) {
	bus := dispatch.NewBus()
	require.NoError(t, RegisterCompletions(bus, memory.NewCompletionStore()))
	ctx := context.Background()

	done, err := dispatch.Ask[bool](ctx, bus, CheckTargetCompletion{OwnerID: 5, ContentIdentity: "T", Target: "foo"})
	require.NoError(t, err)
	assert.False(t, done)

	inserted, err := dispatch.Send[bool](ctx, bus, RecordTargetCompletion{
		OwnerID: 5, ContentIdentity: "T", Target: "foo", ExternalRef: "ref",
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = dispatch.Send[bool](ctx, bus, RecordTargetCompletion{
		OwnerID: 5, ContentIdentity: "T", Target: "foo", ExternalRef: "other",
	})
	require.NoError(t, err)
	assert.False(t, inserted, "recording twice is a set union")

	done, err = dispatch.Ask[bool](ctx, bus, CheckTargetCompletion{OwnerID: 5, ContentIdentity: "T", Target: "foo"})
	require.NoError(t, err)
	assert.True(t, done)

	targets, err := dispatch.Ask[[]string](ctx, bus, ListCompletedTargets{OwnerID: 5, ContentIdentity: "T"})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, targets)
}

func TestRegisterCompletions_Twice(t *testing.T) {
	bus := dispatch.NewBus()
	store := memory.NewCompletionStore()
	require.NoError(t, RegisterCompletions(bus, store))
	assert.ErrorIs(t, RegisterCompletions(bus, store), dispatch.ErrDuplicateHandler)
}
