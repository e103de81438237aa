package quotation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestStoreWithoutPoolIsUnavailable(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	_, err := store.NextSequence(ctx)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorIs(t, store.Insert(ctx, Quotation{}), ErrStoreUnavailable)
	_, err = store.Get(ctx, uuid.New())
	require.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = store.List(ctx, 10, 0)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = store.Count(ctx)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = store.UpdateStatus(ctx, uuid.New(), StatusDraft, StatusSent, time.Now())
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
