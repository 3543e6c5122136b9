package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"venue-booking/internal/booking"
	"venue-booking/internal/model"
)

// BookingHandler exposes the customer-facing reservation endpoints:
// hold creation, deposit checkout handoff and cancellation.  All
// business rules live in the engine; the handler only parses, calls
// and maps errors to HTTP statuses.
type BookingHandler struct {
	Engine *booking.Engine
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(e *booking.Engine) *BookingHandler {
	if e == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: e}
}

func parseBookingID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid booking id")
	}
	return id, nil
}

// CreateHold handles POST /v1/bookings/hold.  The body carries the
// requested range (end date exclusive) and the customer's contact
// identity.  On success it returns 201 with the booking ID and quote;
// contention and blackouts come back as 409 so the client can re-query
// the calendar and try different dates.
func (h *BookingHandler) CreateHold(c echo.Context) error {
	var body struct {
		From  string `json:"from"`
		To    string `json:"to"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}
	r, err := model.ParseDateRange(body.From, body.To)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date range"})
	}

	b, err := h.Engine.CreateHold(c.Request().Context(), r, booking.CustomerInfo{
		Email: body.Email,
		Name:  body.Name,
		Phone: body.Phone,
	})
	switch {
	case errors.Is(err, booking.ErrRangeUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "range unavailable"})
	case errors.Is(err, booking.ErrBlackoutConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "range intersects blackout"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id":    b.ID,
		"status":        b.Status,
		"total_cents":   b.TotalCents,
		"deposit_cents": b.DepositCents,
	})
}

// InitiateDeposit handles POST /v1/bookings/:id/checkout.  It is only
// valid while the booking is HELD and returns the provider's hosted
// checkout URL for the deposit.
func (h *BookingHandler) InitiateDeposit(c echo.Context) error {
	id, err := parseBookingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	url, err := h.Engine.InitiateDeposit(c.Request().Context(), id)
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, booking.ErrIllegalTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not awaiting deposit"})
	case err != nil:
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"checkout_url": url})
}

// Cancel handles POST /v1/bookings/:id/cancel.  Only confirmed
// bookings inside the policy window can be cancelled; the response
// reports how much was refunded (the deposit never is).
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := parseBookingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	refunded, err := h.Engine.Cancel(c.Request().Context(), id)
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, booking.ErrCancellationWindowClosed):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cancellation window closed"})
	case errors.Is(err, booking.ErrIllegalTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking cannot be cancelled"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"refunded_cents": refunded})
}
