package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/leadbook/pkg/api/errors"
	"github.com/jordanlanch/leadbook/pkg/auth"
	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/jordanlanch/leadbook/pkg/logger"
	"github.com/jordanlanch/leadbook/pkg/metrics"
	"github.com/jordanlanch/leadbook/pkg/models"
)

// AuthHandler handles registration and login
type AuthHandler struct {
	users           domain.UserRepository
	validator       *validator.Validate
	metrics         *metrics.Metrics
	log             logger.Logger
	jwtSecret       string
	expirationHours int
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users domain.UserRepository, m *metrics.Metrics, log logger.Logger, jwtSecret string, expirationHours int) *AuthHandler {
	return &AuthHandler{
		users:           users,
		validator:       validator.New(),
		metrics:         m,
		log:             log,
		jwtSecret:       jwtSecret,
		expirationHours: expirationHours,
	}
}

// Register creates a new agent account and returns a token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return errors.Respond(c, h.log, domain.NewFieldError("body", "invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.Respond(c, h.log, domain.NewFieldError("body", "email and a password of at least 8 characters are required"))
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return errors.Respond(c, h.log, domain.NewInternalError(err))
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleAgent,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.users.Create(c.Request().Context(), user); err != nil {
		return errors.Respond(c, h.log, err)
	}

	h.log.Info("user registered", "user_id", user.ID)
	return h.issueToken(c, user, http.StatusCreated)
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return errors.Respond(c, h.log, domain.NewFieldError("body", "invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.Respond(c, h.log, domain.NewFieldError("body", "email and password are required"))
	}

	user, err := h.users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.metrics.RecordLoginAttempt(false)
		// Same response whether the email or the password was wrong.
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Invalid email or password",
		})
	}

	h.metrics.RecordLoginAttempt(true)
	return h.issueToken(c, user, http.StatusOK)
}

func (h *AuthHandler) issueToken(c echo.Context, user *models.User, status int) error {
	token, expiresAt, err := auth.GenerateJWT(user.ID, user.Email, user.Role, h.jwtSecret, h.expirationHours)
	if err != nil {
		return errors.Respond(c, h.log, domain.NewInternalError(err))
	}
	return c.JSON(status, models.TokenResponse{Token: token, ExpiresAt: expiresAt})
}
