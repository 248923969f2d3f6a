package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepositoryKeepsMostRecent(t *testing.T) {
	repo := NewMessageRepository(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, domain.Message{Content: fmt.Sprint(i)}))
	}

	all, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	var contents []string
	for _, m := range all {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"2", "3", "4"}, contents)

	last, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "4", last[0].Content)
}

func TestPresenceStore(t *testing.T) {
	store := NewPresenceStore()
	ctx := context.Background()

	require.NoError(t, store.Join(ctx, domain.Participant{ID: "2", DisplayName: "Bob"}))
	require.NoError(t, store.Join(ctx, domain.Participant{ID: "1", DisplayName: "Ann"}))

	p, ok, err := store.Get(ctx, "2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Bob", p.DisplayName)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Participant{{ID: "1", DisplayName: "Ann"}, {ID: "2", DisplayName: "Bob"}}, list)

	require.NoError(t, store.Leave(ctx, "2"))
	_, ok, err = store.Get(ctx, "2")
	require.NoError(t, err)
	assert.False(t, ok)
}
