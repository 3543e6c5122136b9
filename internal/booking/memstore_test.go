package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"venue-booking/internal/model"
	"venue-booking/internal/payment"
	"venue-booking/internal/scheduler"
)

// memState is the committed database image of the in-memory store.
// Day uniqueness is enforced by keying units on the day itself, the
// same shape the UNIQUE constraint gives the MySQL implementation.
type memState struct {
	bookings  map[uint64]model.Booking
	customers map[uint64]model.Customer
	units     map[time.Time]model.DayUnit
	payments  []model.PaymentRecord
	refunds   []model.RefundRecord
	blackouts map[time.Time]model.Blackout
	policy    *model.Policy

	nextBookingID  uint64
	nextCustomerID uint64
	nextUnitID     uint64
	nextPaymentID  uint64
	nextRefundID   uint64
}

func newMemState() *memState {
	return &memState{
		bookings:  make(map[uint64]model.Booking),
		customers: make(map[uint64]model.Customer),
		units:     make(map[time.Time]model.DayUnit),
		blackouts: make(map[time.Time]model.Blackout),
	}
}

func (st *memState) clone() *memState {
	c := &memState{
		bookings:       make(map[uint64]model.Booking, len(st.bookings)),
		customers:      make(map[uint64]model.Customer, len(st.customers)),
		units:          make(map[time.Time]model.DayUnit, len(st.units)),
		payments:       append([]model.PaymentRecord(nil), st.payments...),
		refunds:        append([]model.RefundRecord(nil), st.refunds...),
		blackouts:      make(map[time.Time]model.Blackout, len(st.blackouts)),
		policy:         st.policy,
		nextBookingID:  st.nextBookingID,
		nextCustomerID: st.nextCustomerID,
		nextUnitID:     st.nextUnitID,
		nextPaymentID:  st.nextPaymentID,
		nextRefundID:   st.nextRefundID,
	}
	for k, v := range st.bookings {
		c.bookings[k] = v
	}
	for k, v := range st.customers {
		c.customers[k] = v
	}
	for k, v := range st.units {
		c.units[k] = v
	}
	for k, v := range st.blackouts {
		c.blackouts[k] = v
	}
	return c
}

func (st *memState) bookedDays(r model.DateRange) []time.Time {
	var out []time.Time
	for day, u := range st.units {
		if u.State == model.DayBooked && r.Contains(day) {
			out = append(out, day)
		}
	}
	return out
}

func (st *memState) heldDays(r model.DateRange, now time.Time) []time.Time {
	var out []time.Time
	for day, u := range st.units {
		if u.Held(now) && r.Contains(day) {
			out = append(out, day)
		}
	}
	return out
}

func (st *memState) blackoutDays(r model.DateRange) []time.Time {
	var out []time.Time
	for day := range st.blackouts {
		if r.Contains(day) {
			out = append(out, day)
		}
	}
	return out
}

func (st *memState) getBooking(id uint64) (model.Booking, error) {
	b, ok := st.bookings[id]
	if !ok {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, nil
}

func (st *memState) paymentsFor(bookingID uint64) []model.PaymentRecord {
	var out []model.PaymentRecord
	for _, p := range st.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out
}

func (st *memState) refundsFor(bookingID uint64) []model.RefundRecord {
	var out []model.RefundRecord
	for _, r := range st.refunds {
		if r.BookingID == bookingID {
			out = append(out, r)
		}
	}
	return out
}

func (st *memState) getPolicy() model.Policy {
	if st.policy == nil {
		return model.DefaultPolicy()
	}
	return *st.policy
}

// memStore implements Store over a memState.  Transactions clone the
// state, run against the clone and swap it in on success, so a failing
// transaction rolls back exactly like the SQL implementation.
type memStore struct {
	mu sync.Mutex
	st *memState
}

func newMemStore() *memStore { return &memStore{st: newMemState()} }

func (s *memStore) Reader() View { return &memView{s: s} }

func (s *memStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// seed helpers for tests.

func (s *memStore) setPolicy(p model.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.policy = &p
}

func (s *memStore) addBlackout(day time.Time, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.nextUnitID++
	s.st.blackouts[model.Day(day)] = model.Blackout{ID: s.st.nextUnitID, Day: model.Day(day), Reason: reason}
}

func (s *memStore) booking(id uint64) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.bookings[id]
}

func (s *memStore) unitsFor(id uint64) []model.DayUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.DayUnit
	for _, u := range s.st.units {
		if u.BookingID == id {
			out = append(out, u)
		}
	}
	return out
}

// memView reads committed state only.
type memView struct {
	s *memStore
}

func (v *memView) BookedDays(_ context.Context, r model.DateRange) ([]time.Time, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.st.bookedDays(r), nil
}

func (v *memView) HeldDays(_ context.Context, r model.DateRange, now time.Time) ([]time.Time, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.st.heldDays(r, now), nil
}

func (v *memView) BlackoutDays(_ context.Context, r model.DateRange) ([]time.Time, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.st.blackoutDays(r), nil
}

func (v *memView) GetBooking(_ context.Context, id uint64) (model.Booking, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.st.getBooking(id)
}

func (v *memView) GetCustomer(_ context.Context, id uint64) (model.Customer, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	c, ok := v.s.st.customers[id]
	if !ok {
		return model.Customer{}, ErrBookingNotFound
	}
	return c, nil
}

func (v *memView) PaymentsForBooking(_ context.Context, bookingID uint64) ([]model.PaymentRecord, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.st.paymentsFor(bookingID), nil
}

func (v *memView) RefundsForBooking(_ context.Context, bookingID uint64) ([]model.RefundRecord, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.st.refundsFor(bookingID), nil
}

func (v *memView) GetPolicy(_ context.Context) (model.Policy, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.st.getPolicy(), nil
}

// memTx mutates a private clone under the store lock.
type memTx struct {
	st *memState
}

func (t *memTx) BookedDays(_ context.Context, r model.DateRange) ([]time.Time, error) {
	return t.st.bookedDays(r), nil
}

func (t *memTx) HeldDays(_ context.Context, r model.DateRange, now time.Time) ([]time.Time, error) {
	return t.st.heldDays(r, now), nil
}

func (t *memTx) BlackoutDays(_ context.Context, r model.DateRange) ([]time.Time, error) {
	return t.st.blackoutDays(r), nil
}

func (t *memTx) GetBooking(_ context.Context, id uint64) (model.Booking, error) {
	return t.st.getBooking(id)
}

func (t *memTx) GetCustomer(_ context.Context, id uint64) (model.Customer, error) {
	c, ok := t.st.customers[id]
	if !ok {
		return model.Customer{}, ErrBookingNotFound
	}
	return c, nil
}

func (t *memTx) PaymentsForBooking(_ context.Context, bookingID uint64) ([]model.PaymentRecord, error) {
	return t.st.paymentsFor(bookingID), nil
}

func (t *memTx) RefundsForBooking(_ context.Context, bookingID uint64) ([]model.RefundRecord, error) {
	return t.st.refundsFor(bookingID), nil
}

func (t *memTx) GetPolicy(_ context.Context) (model.Policy, error) {
	return t.st.getPolicy(), nil
}

func (t *memTx) PurgeExpiredHolds(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for day, u := range t.st.units {
		if u.State == model.DayHeld && u.ExpiresAt != nil && !u.ExpiresAt.After(now) {
			delete(t.st.units, day)
			n++
		}
	}
	return n, nil
}

func (t *memTx) UpsertCustomerByEmail(_ context.Context, c model.Customer) (uint64, error) {
	for id, have := range t.st.customers {
		if have.Email == c.Email {
			have.Name, have.Phone = c.Name, c.Phone
			t.st.customers[id] = have
			return id, nil
		}
	}
	t.st.nextCustomerID++
	c.ID = t.st.nextCustomerID
	t.st.customers[c.ID] = c
	return c.ID, nil
}

func (t *memTx) CreateBooking(_ context.Context, b *model.Booking) error {
	t.st.nextBookingID++
	b.ID = t.st.nextBookingID
	t.st.bookings[b.ID] = *b
	return nil
}

func (t *memTx) InsertDayUnits(_ context.Context, units []model.DayUnit) (int, error) {
	inserted := 0
	for _, u := range units {
		day := model.Day(u.Day)
		if _, taken := t.st.units[day]; taken {
			continue
		}
		t.st.nextUnitID++
		u.ID = t.st.nextUnitID
		u.Day = day
		t.st.units[day] = u
		inserted++
	}
	return inserted, nil
}

func (t *memTx) LockBooking(_ context.Context, id uint64) (model.Booking, error) {
	return t.st.getBooking(id)
}

func (t *memTx) SetBookingStatus(_ context.Context, id uint64, status string) error {
	b, ok := t.st.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	b.Status = status
	t.st.bookings[id] = b
	return nil
}

func (t *memTx) SetProviderCustomerRef(_ context.Context, id uint64, ref string) error {
	b, ok := t.st.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	b.ProviderCustomerRef = &ref
	t.st.bookings[id] = b
	return nil
}

func (t *memTx) DayUnitsForBooking(_ context.Context, bookingID uint64) ([]model.DayUnit, error) {
	var out []model.DayUnit
	for _, u := range t.st.units {
		if u.BookingID == bookingID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (t *memTx) MarkBookingDaysBooked(_ context.Context, bookingID uint64) error {
	for day, u := range t.st.units {
		if u.BookingID == bookingID {
			u.State = model.DayBooked
			u.ExpiresAt = nil
			t.st.units[day] = u
		}
	}
	return nil
}

func (t *memTx) ReleaseDayUnits(_ context.Context, bookingID uint64) error {
	for day, u := range t.st.units {
		if u.BookingID == bookingID {
			delete(t.st.units, day)
		}
	}
	return nil
}

func (t *memTx) UpsertPayment(_ context.Context, rec model.PaymentRecord) error {
	for i, have := range t.st.payments {
		if have.ProviderRef == rec.ProviderRef {
			have.AmountCents = rec.AmountCents
			have.Status = rec.Status
			t.st.payments[i] = have
			return nil
		}
	}
	t.st.nextPaymentID++
	rec.ID = t.st.nextPaymentID
	t.st.payments = append(t.st.payments, rec)
	return nil
}

func (t *memTx) CountFailedRemainders(_ context.Context, bookingID uint64) (int, error) {
	n := 0
	for _, p := range t.st.payments {
		if p.BookingID == bookingID && p.Kind == model.PaymentRemainder && p.Status == model.PaymentFailed {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertRefund(_ context.Context, rec model.RefundRecord) error {
	for _, have := range t.st.refunds {
		if have.ProviderRef == rec.ProviderRef {
			return nil
		}
	}
	t.st.nextRefundID++
	rec.ID = t.st.nextRefundID
	t.st.refunds = append(t.st.refunds, rec)
	return nil
}

// fakeScheduler records Schedule calls, keeping the last task per key
// the way the Redis implementation does.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks map[string]scheduler.Task
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{tasks: make(map[string]scheduler.Task)}
}

func (f *fakeScheduler) Schedule(_ context.Context, t scheduler.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[t.Key] = t
	return nil
}

func (f *fakeScheduler) task(key string) (scheduler.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[key]
	return t, ok
}

func (f *fakeScheduler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// fakeNotifier counts delivered events.
type fakeNotifier struct {
	mu        sync.Mutex
	confirmed int
	cancelled int
	refunds   []int64
	reminders []int
	overdue   int
}

func (f *fakeNotifier) BookingConfirmed(context.Context, model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed++
	return nil
}

func (f *fakeNotifier) BookingCancelled(context.Context, model.Booking, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
	return nil
}

func (f *fakeNotifier) RefundIssued(_ context.Context, _ model.Booking, amountCents int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, amountCents)
	return nil
}

func (f *fakeNotifier) ReminderDue(_ context.Context, _ model.Booking, daysBefore int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders = append(f.reminders, daysBefore)
	return nil
}

func (f *fakeNotifier) PaymentOverdue(context.Context, model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overdue++
	return nil
}

type refundCall struct {
	paymentRef  string
	amountCents int64
}

// fakeProvider mints deterministic references.  Setting chargeErr makes
// every ChargeRemainder call fail with it.
type fakeProvider struct {
	mu        sync.Mutex
	chargeErr error
	charges   []int64
	refunds   []refundCall
	seq       int
}

func (f *fakeProvider) CreateCheckout(_ context.Context, b model.Booking, _ string) (string, error) {
	return fmt.Sprintf("https://pay.test/checkout/%d", b.ID), nil
}

func (f *fakeProvider) ChargeRemainder(_ context.Context, _ model.Booking, amountCents int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ref := fmt.Sprintf("pay_test_%d", f.seq)
	if f.chargeErr != nil {
		return ref, f.chargeErr
	}
	f.charges = append(f.charges, amountCents)
	return ref, nil
}

func (f *fakeProvider) Refund(_ context.Context, paymentRef string, amountCents int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.refunds = append(f.refunds, refundCall{paymentRef: paymentRef, amountCents: amountCents})
	return fmt.Sprintf("re_test_%d", f.seq), nil
}

func (f *fakeProvider) setChargeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chargeErr = err
}

var _ payment.Provider = (*fakeProvider)(nil)

// fakeClock is a mutable test clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}
