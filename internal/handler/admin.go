package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"venue-booking/internal/booking"
	"venue-booking/internal/model"
	"venue-booking/internal/repository"
)

// AdminHandler groups the back-office endpoints: blackout management,
// policy editing, booking inspection and discretionary refunds.  All
// routes behind it require an ADMIN JWT; the router applies that
// middleware.
type AdminHandler struct {
	Engine    *booking.Engine
	Store     *repository.Store
	Blackouts *repository.BlackoutRepo
	Policies  *repository.PolicyRepo
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(e *booking.Engine, store *repository.Store) *AdminHandler {
	if e == nil || store == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Engine:    e,
		Store:     store,
		Blackouts: repository.NewBlackoutRepo(),
		Policies:  repository.NewPolicyRepo(),
	}
}

// ListBlackouts handles GET /v1/admin/blackouts.
func (h *AdminHandler) ListBlackouts(c echo.Context) error {
	list, err := h.Blackouts.List(c.Request().Context(), h.Store.DB())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(list))
	for _, b := range list {
		out = append(out, echo.Map{
			"day":    b.Day.Format(model.DateLayout),
			"reason": b.Reason,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"blackouts": out})
}

// AddBlackout handles POST /v1/admin/blackouts.  Blacking out a day
// does not evict an existing hold or booking on it; it only prevents
// new ones.
func (h *AdminHandler) AddBlackout(c echo.Context) error {
	var body struct {
		Day    string `json:"day"`
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	day, err := model.ParseDate(body.Day)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid day"})
	}
	err = h.Blackouts.Add(c.Request().Context(), h.Store.DB(), day, body.Reason)
	if errors.Is(err, repository.ErrDuplicate) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "day already blacked out"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusCreated)
}

// RemoveBlackout handles DELETE /v1/admin/blackouts/:day.
func (h *AdminHandler) RemoveBlackout(c echo.Context) error {
	day, err := model.ParseDate(c.Param("day"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid day"})
	}
	err = h.Blackouts.Remove(c.Request().Context(), h.Store.DB(), day)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no blackout on that day"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// GetPolicy handles GET /v1/admin/policy.
func (h *AdminHandler) GetPolicy(c echo.Context) error {
	p, err := h.Policies.Get(c.Request().Context(), h.Store.DB())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, policyJSON(p))
}

// UpdatePolicy handles PUT /v1/admin/policy.  Changes apply only to
// future quotes; open bookings keep their snapshots.
func (h *AdminHandler) UpdatePolicy(c echo.Context) error {
	var body struct {
		DepositKind       string `json:"deposit_kind"`
		DepositValue      int64  `json:"deposit_value"`
		DayRateCents      int64  `json:"day_rate_cents"`
		RemainderLeadDays int    `json:"remainder_lead_days"`
		CancelCutoffHours int    `json:"cancel_cutoff_hours"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.DepositKind != model.DepositFixed && body.DepositKind != model.DepositPercent {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "deposit_kind must be FIXED or PERCENT"})
	}
	if body.DepositValue < 0 || body.DayRateCents <= 0 || body.RemainderLeadDays < 0 || body.CancelCutoffHours < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid policy values"})
	}
	if body.DepositKind == model.DepositPercent && body.DepositValue > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "percent deposit cannot exceed 100"})
	}
	p := model.Policy{
		DepositKind:       body.DepositKind,
		DepositValue:      body.DepositValue,
		DayRateCents:      body.DayRateCents,
		RemainderLeadDays: body.RemainderLeadDays,
		CancelCutoffHours: body.CancelCutoffHours,
	}
	if err := h.Policies.Save(c.Request().Context(), h.Store.DB(), p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, policyJSON(p))
}

func policyJSON(p model.Policy) echo.Map {
	return echo.Map{
		"deposit_kind":        p.DepositKind,
		"deposit_value":       p.DepositValue,
		"day_rate_cents":      p.DayRateCents,
		"remainder_lead_days": p.RemainderLeadDays,
		"cancel_cutoff_hours": p.CancelCutoffHours,
	}
}

// GetBooking handles GET /v1/admin/bookings/:id, returning the
// booking with its payment and refund ledgers.
func (h *AdminHandler) GetBooking(c echo.Context) error {
	id, err := parseBookingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	view := h.Store.Reader()
	b, err := view.GetBooking(ctx, id)
	if errors.Is(err, booking.ErrBookingNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	payments, err := view.PaymentsForBooking(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	refunds, err := view.RefundsForBooking(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	pays := make([]echo.Map, 0, len(payments))
	for _, p := range payments {
		pays = append(pays, echo.Map{
			"provider_ref": p.ProviderRef,
			"amount_cents": p.AmountCents,
			"kind":         p.Kind,
			"status":       p.Status,
		})
	}
	refs := make([]echo.Map, 0, len(refunds))
	for _, r := range refunds {
		refs = append(refs, echo.Map{
			"provider_ref": r.ProviderRef,
			"amount_cents": r.AmountCents,
			"reason":       r.Reason,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":    b.ID,
		"status":        b.Status,
		"from":          b.Start.Format(model.DateLayout),
		"to":            b.End.Format(model.DateLayout),
		"total_cents":   b.TotalCents,
		"deposit_cents": b.DepositCents,
		"payments":      pays,
		"refunds":       refs,
	})
}

// Refund handles POST /v1/admin/bookings/:id/refund.  Unlike customer
// cancellation it bypasses the cutoff window and the refundable
// ceiling: back office may refund the deposit, or more, at its own
// discretion.  The booking's status and days are untouched.
func (h *AdminHandler) Refund(c echo.Context) error {
	id, err := parseBookingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body struct {
		AmountCents int64  `json:"amount_cents"`
		Reason      string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.AmountCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents must be positive"})
	}
	if body.Reason == "" {
		body.Reason = "admin refund"
	}
	ref, err := h.Engine.AdminRefund(c.Request().Context(), id, body.AmountCents, body.Reason)
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, booking.ErrIllegalTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking has no settled payments yet"})
	case errors.Is(err, booking.ErrNothingToRefund):
		return c.JSON(http.StatusConflict, echo.Map{"error": "no succeeded payments to refund against"})
	case err != nil:
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"refund_ref": ref, "amount_cents": body.AmountCents})
}
