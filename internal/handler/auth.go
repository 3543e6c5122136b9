package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"venue-booking/internal/repository"
	"venue-booking/internal/utils"
)

// AuthHandler implements admin login.  The service has no customer
// accounts — customers are identified by the email on their hold — so
// the only authenticated principal is the back office.
type AuthHandler struct {
	Admins    *repository.AdminRepo
	DB        repository.Querier
	JWTSecret string
	TTLMin    int
}

// NewAuthHandler constructs an AuthHandler issuing tokens with the
// given secret and TTL in minutes.
func NewAuthHandler(admins *repository.AdminRepo, db repository.Querier, secret string, ttlMin int) *AuthHandler {
	if admins == nil || db == nil || secret == "" {
		panic("nil dependency passed to NewAuthHandler")
	}
	return &AuthHandler{Admins: admins, DB: db, JWTSecret: secret, TTLMin: ttlMin}
}

// Login handles POST /v1/auth/login.  On valid credentials it returns
// a short-lived ADMIN access token.  Unknown email and wrong password
// produce the same response so the endpoint doesn't leak which admin
// accounts exist.
func (h *AuthHandler) Login(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Email == "" || body.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}
	admin, err := h.Admins.GetByEmail(c.Request().Context(), h.DB, body.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !utils.VerifyPassword(admin.PasswordHash, body.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	tok, err := utils.NewAccessToken(h.JWTSecret, admin.ID, "ADMIN", h.TTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token signing failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
	})
}
