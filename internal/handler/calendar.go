package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"venue-booking/internal/booking"
	"venue-booking/internal/model"
)

// CalendarHandler exposes read-only availability queries.  Responses
// are safe to cache briefly; the hold transaction re-checks everything
// under its own constraints, so a stale calendar can never cause a
// double booking — at worst the customer sees a conflict on submit.
type CalendarHandler struct {
	Calendar *booking.Calendar
}

// NewCalendarHandler constructs a CalendarHandler.
func NewCalendarHandler(cal *booking.Calendar) *CalendarHandler {
	if cal == nil {
		panic("nil calendar passed to NewCalendarHandler")
	}
	return &CalendarHandler{Calendar: cal}
}

// queryRange resolves either ?month=YYYY-MM or ?from=&to= into a
// DateRange.
func queryRange(c echo.Context) (model.DateRange, error) {
	if month := c.QueryParam("month"); month != "" {
		t, err := time.Parse("2006-01", month)
		if err != nil {
			return model.DateRange{}, model.ErrInvalidRange
		}
		return model.MonthRange(t), nil
	}
	return model.ParseDateRange(c.QueryParam("from"), c.QueryParam("to"))
}

func formatDays(days []time.Time) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Format(model.DateLayout))
	}
	return out
}

// GetUnavailable handles GET /v1/calendar/unavailable.  It returns the
// union of booked, live-held and blacked-out days for the requested
// month or range.
func (h *CalendarHandler) GetUnavailable(c echo.Context) error {
	r, err := queryRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid month or range"})
	}
	days, err := h.Calendar.Unavailable(c.Request().Context(), r)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"unavailable": formatDays(days)})
}

// CheckRange handles POST /v1/calendar/check-range.  The body carries
// from/to; the response says whether the whole range is free, and
// which days are in the way when it is not.
func (h *CalendarHandler) CheckRange(c echo.Context) error {
	var body struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	r, err := model.ParseDateRange(body.From, body.To)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date range"})
	}
	ok, conflicts, err := h.Calendar.CheckRangeFree(c.Request().Context(), r)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ok {
		return c.JSON(http.StatusOK, echo.Map{"ok": false, "conflicts": formatDays(conflicts)})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
