package booking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-booking/internal/model"
	"venue-booking/internal/payment"
	"venue-booking/internal/scheduler"
)

func taskFor(t *testing.T, kind string, p taskPayload) scheduler.Task {
	t.Helper()
	body, err := json.Marshal(p)
	require.NoError(t, err)
	return scheduler.Task{Kind: kind, Key: "test", RunAt: time.Now(), Payload: body}
}

func TestRemainderChargeTask(t *testing.T) {
	rig := newTestRig(t)
	b := rig.hold(t, date(2026, 6, 10), date(2026, 6, 13))
	rig.confirm(t, b.ID, "dep_1")
	ctx := context.Background()

	task := taskFor(t, TaskRemainderCharge, taskPayload{BookingID: b.ID})
	require.NoError(t, rig.engine.handleRemainderChargeTask(ctx, task))

	require.Len(t, rig.provider.charges, 1)
	assert.Equal(t, b.TotalCents-b.DepositCents, rig.provider.charges[0], "charges exactly what the ledger still owes")

	payments, err := rig.store.Reader().PaymentsForBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, model.PaymentSucceeded, payments[1].Status)

	// At-least-once delivery: a replay finds nothing due and charges
	// nothing.
	require.NoError(t, rig.engine.handleRemainderChargeTask(ctx, task))
	assert.Len(t, rig.provider.charges, 1)
}

func TestRemainderChargeTaskDeclined(t *testing.T) {
	rig := newTestRig(t)
	b := rig.hold(t, date(2026, 6, 10), date(2026, 6, 13))
	rig.confirm(t, b.ID, "dep_1")
	rig.provider.setChargeErr(payment.ErrDeclined)
	ctx := context.Background()

	task := taskFor(t, TaskRemainderCharge, taskPayload{BookingID: b.ID})
	require.NoError(t, rig.engine.handleRemainderChargeTask(ctx, task), "a decline completes the task; the retry is a new task")

	payments, err := rig.store.Reader().PaymentsForBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, model.PaymentFailed, payments[1].Status)

	_, ok := rig.sched.task(remainderKey(b.ID, 1))
	assert.True(t, ok, "retry scheduled")
}

func TestRemainderChargeTaskTransportError(t *testing.T) {
	rig := newTestRig(t)
	b := rig.hold(t, date(2026, 6, 10), date(2026, 6, 13))
	rig.confirm(t, b.ID, "dep_1")
	boom := errors.New("gateway timeout")
	rig.provider.setChargeErr(boom)
	ctx := context.Background()

	task := taskFor(t, TaskRemainderCharge, taskPayload{BookingID: b.ID})
	err := rig.engine.handleRemainderChargeTask(ctx, task)
	assert.ErrorIs(t, err, boom, "transport errors bubble up so the runner requeues the task")

	// Not recorded as a failed attempt: the charge may or may not have
	// happened, only a definitive decline counts.
	payments, perr := rig.store.Reader().PaymentsForBooking(ctx, b.ID)
	require.NoError(t, perr)
	assert.Len(t, payments, 1)
}

func TestRemainderChargeTaskSkipsNonConfirmed(t *testing.T) {
	rig := newTestRig(t)
	b := rig.hold(t, date(2026, 6, 10), date(2026, 6, 13))
	ctx := context.Background()

	task := taskFor(t, TaskRemainderCharge, taskPayload{BookingID: b.ID})
	require.NoError(t, rig.engine.handleRemainderChargeTask(ctx, task))
	assert.Empty(t, rig.provider.charges, "held bookings are never charged a remainder")

	// Unknown bookings complete quietly too.
	gone := taskFor(t, TaskRemainderCharge, taskPayload{BookingID: 999})
	require.NoError(t, rig.engine.handleRemainderChargeTask(ctx, gone))
}

func TestHoldExpireTask(t *testing.T) {
	rig := newTestRig(t)
	b := rig.hold(t, date(2026, 6, 10), date(2026, 6, 13))
	rig.clock.Advance(31 * time.Minute)
	ctx := context.Background()

	task := taskFor(t, TaskHoldExpire, taskPayload{BookingID: b.ID})
	require.NoError(t, rig.engine.handleHoldExpireTask(ctx, task))
	assert.Equal(t, model.BookingCancelled, rig.store.booking(b.ID).Status)

	gone := taskFor(t, TaskHoldExpire, taskPayload{BookingID: 999})
	require.NoError(t, rig.engine.handleHoldExpireTask(ctx, gone))
}

func TestReminderTask(t *testing.T) {
	rig := newTestRig(t)
	b := rig.hold(t, date(2026, 6, 10), date(2026, 6, 13))
	ctx := context.Background()

	task := taskFor(t, TaskReminder, taskPayload{BookingID: b.ID, DaysBefore: 7})
	require.NoError(t, rig.engine.handleReminderTask(ctx, task))
	assert.Empty(t, rig.notifier.reminders, "held bookings get no reminder")

	rig.confirm(t, b.ID, "dep_1")
	require.NoError(t, rig.engine.handleReminderTask(ctx, task))
	assert.Equal(t, []int{7}, rig.notifier.reminders)
}

func TestTaskPayloadValidation(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	bad := scheduler.Task{Kind: TaskHoldExpire, Key: "test", Payload: json.RawMessage(`{`)}
	assert.Error(t, rig.engine.handleHoldExpireTask(ctx, bad))

	missing := taskFor(t, TaskHoldExpire, taskPayload{})
	assert.Error(t, rig.engine.handleHoldExpireTask(ctx, missing))
}
