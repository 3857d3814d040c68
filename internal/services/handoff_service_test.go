package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/automas/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoffService_WriteAndRead(t *testing.T) {
	svc, _ := newTestHandoff()
	ctx := context.Background()

	invoice := int64(4521)
	summary := models.ReservationSummary{
		Vertical:    models.VerticalRTM,
		Location:    "CDA Norte",
		Amount:      290000,
		Plate:       "ABC123",
		BookingCode: "AM-1A2B3C4D",
		InvoiceID:   &invoice,
	}

	env, err := svc.Write(ctx, "sess-1", models.RecordReservationSummary, summary)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Version)
	assert.False(t, env.Encrypted)

	got, gotEnv, err := svc.ReadSummary(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, summary, *got)
	assert.Equal(t, env.ID, gotEnv.ID)
}

func TestHandoffService_ReadMissing(t *testing.T) {
	svc, _ := newTestHandoff()

	summary, env, err := svc.ReadSummary(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, summary)
	assert.Nil(t, env)

	summary, env, err = svc.ReadSummary(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, summary)
	assert.Nil(t, env)
}

func TestHandoffService_WriteOverwrites(t *testing.T) {
	svc, _ := newTestHandoff()
	ctx := context.Background()

	_, err := svc.Write(ctx, "sess-1", models.RecordReservationSummary, models.ReservationSummary{Plate: "ABC123", Location: "CDA Norte"})
	require.NoError(t, err)
	env, err := svc.Write(ctx, "sess-1", models.RecordReservationSummary, models.ReservationSummary{Plate: "XYZ987"})
	require.NoError(t, err)
	assert.Equal(t, 2, env.Version)

	got, _, err := svc.ReadSummary(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "XYZ987", got.Plate)
	assert.Empty(t, got.Location, "fields of the previous write must not survive")
}

func TestHandoffService_DeferredIsSealed(t *testing.T) {
	svc, store := newTestHandoff()
	ctx := context.Background()

	deferred := models.DeferredPaperwork{
		Booking: models.BookingRequest{
			Vertical: models.VerticalPaperwork,
			Plate:    "ABC123",
			Customer: models.Customer{Name: "Ana", Phone: "3001234567", Holder: models.Holder{IDType: "cc", ID: "1020304050"}},
		},
		Amount: 150000,
	}

	env, err := svc.Write(ctx, "sess-1", models.RecordDeferredPaperwork, deferred)
	require.NoError(t, err)
	assert.True(t, env.Encrypted)

	stored := store.raw("sess-1", models.RecordDeferredPaperwork)
	assert.False(t, strings.Contains(string(stored.Payload), "1020304050"))

	got, _, err := svc.ReadDeferred(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, deferred, *got)

	t.Run("wrong key cannot open", func(t *testing.T) {
		var other [32]byte
		reader := NewHandoffService(store, &other, time.Hour, quietLogger())
		_, _, err := reader.ReadDeferred(ctx, "sess-1")
		assert.Error(t, err)
	})
}

func TestHandoffService_Consume(t *testing.T) {
	svc, _ := newTestHandoff()
	ctx := context.Background()

	_, err := svc.Write(ctx, "sess-1", models.RecordReservationSummary, models.ReservationSummary{Plate: "ABC123"})
	require.NoError(t, err)

	_, env, err := svc.ReadSummary(ctx, "sess-1")
	require.NoError(t, err)
	require.NoError(t, svc.Consume(ctx, env))

	got, _, err := svc.ReadSummary(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	t.Run("finalized summary stays readable", func(t *testing.T) {
		finalized, err := svc.ReadFinalizedSummary(ctx, "sess-1")
		require.NoError(t, err)
		require.NotNil(t, finalized)
		assert.Equal(t, "ABC123", finalized.Plate)
	})

	t.Run("consuming twice is superseded", func(t *testing.T) {
		assert.True(t, errors.Is(svc.Consume(ctx, env), ErrEnvelopeSuperseded))
	})
}

func TestHandoffService_ConcurrentOverwriteWins(t *testing.T) {
	svc, _ := newTestHandoff()
	ctx := context.Background()

	_, err := svc.Write(ctx, "sess-1", models.RecordReservationSummary, models.ReservationSummary{Plate: "ABC123"})
	require.NoError(t, err)
	_, stale, err := svc.ReadSummary(ctx, "sess-1")
	require.NoError(t, err)

	_, err = svc.Write(ctx, "sess-1", models.RecordReservationSummary, models.ReservationSummary{Plate: "XYZ987"})
	require.NoError(t, err)

	err = svc.Consume(ctx, stale)
	assert.ErrorIs(t, err, ErrEnvelopeSuperseded)

	got, _, err := svc.ReadSummary(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "XYZ987", got.Plate)
}

func TestHandoffService_Purge(t *testing.T) {
	svc, store := newTestHandoff()
	ctx := context.Background()

	_, err := svc.Write(ctx, "old", models.RecordReservationSummary, models.ReservationSummary{})
	require.NoError(t, err)
	_, err = svc.Write(ctx, "fresh", models.RecordReservationSummary, models.ReservationSummary{})
	require.NoError(t, err)

	store.raw("old", models.RecordReservationSummary).UpdatedAt = time.Now().Add(-100 * time.Hour)

	n, err := svc.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Nil(t, store.raw("old", models.RecordReservationSummary))
	assert.NotNil(t, store.raw("fresh", models.RecordReservationSummary))
}

func TestHandoffService_WriteRequiresSession(t *testing.T) {
	svc, _ := newTestHandoff()
	_, err := svc.Write(context.Background(), "", models.RecordReservationSummary, models.ReservationSummary{})
	assert.Error(t, err)
}
