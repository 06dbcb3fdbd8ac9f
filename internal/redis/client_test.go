package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Initialize("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestPaymentLink_Lifecycle(t *testing.T) {
	ctx := context.Background()
	client, mr := setupClient(t)

	link := &PaymentLink{Token: "tok-1", PackageID: "pkg-1", TrackingNumber: "JNE1", Amount: 3000}
	require.NoError(t, client.SetPaymentLink(ctx, link, time.Hour))

	got, err := client.GetPaymentLink(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "pkg-1", got.PackageID)
	assert.Equal(t, int64(3000), got.Amount)

	mr.FastForward(2 * time.Hour)
	_, err = client.GetPaymentLink(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentLink_Delete(t *testing.T) {
	ctx := context.Background()
	client, _ := setupClient(t)

	require.NoError(t, client.SetPaymentLink(ctx, &PaymentLink{Token: "tok-2"}, time.Hour))
	require.NoError(t, client.DeletePaymentLink(ctx, "tok-2"))

	_, err := client.GetPaymentLink(ctx, "tok-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClaimReminder_OncePerDay(t *testing.T) {
	ctx := context.Background()
	client, _ := setupClient(t)

	ok, err := client.ClaimReminder(ctx, "pkg-1", "2024-04-02", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.ClaimReminder(ctx, "pkg-1", "2024-04-02", 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = client.ClaimReminder(ctx, "pkg-1", "2024-04-03", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInitialize_BadURL(t *testing.T) {
	_, err := Initialize("not-a-url")
	assert.Error(t, err)
}
