package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/leadbook/pkg/api/errors"
	"github.com/jordanlanch/leadbook/pkg/buyers"
	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/jordanlanch/leadbook/pkg/logger"
	"github.com/jordanlanch/leadbook/pkg/metrics"
	"github.com/jordanlanch/leadbook/pkg/middleware"
	"github.com/jordanlanch/leadbook/pkg/models"
)

// BuyerHandler handles buyer lead endpoints
type BuyerHandler struct {
	buyers  *buyers.Service
	metrics *metrics.Metrics
	log     logger.Logger
}

// NewBuyerHandler creates a new buyer handler
func NewBuyerHandler(buyerSvc *buyers.Service, m *metrics.Metrics, log logger.Logger) *BuyerHandler {
	return &BuyerHandler{buyers: buyerSvc, metrics: m, log: log}
}

// Create handles POST /buyers
func (h *BuyerHandler) Create(c echo.Context) error {
	p, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return errors.Respond(c, h.log, domain.NewUnauthorizedError())
	}

	var input models.BuyerInput
	if err := c.Bind(&input); err != nil {
		return errors.Respond(c, h.log, domain.NewFieldError("body", "invalid request body"))
	}

	buyer, err := h.buyers.Create(c.Request().Context(), p, input)
	if err != nil {
		return errors.Respond(c, h.log, err)
	}

	h.metrics.RecordBuyerCreated()
	return c.JSON(http.StatusCreated, buyer)
}

// List handles GET /buyers
func (h *BuyerHandler) List(c echo.Context) error {
	var filter models.BuyerFilter
	if err := c.Bind(&filter); err != nil {
		return errors.Respond(c, h.log, domain.NewFieldError("query", "invalid query parameters"))
	}

	resp, err := h.buyers.List(c.Request().Context(), filter)
	if err != nil {
		return errors.Respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Get handles GET /buyers/:id
func (h *BuyerHandler) Get(c echo.Context) error {
	p, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return errors.Respond(c, h.log, domain.NewUnauthorizedError())
	}

	resp, err := h.buyers.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return errors.Respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Update handles PUT /buyers/:id
func (h *BuyerHandler) Update(c echo.Context) error {
	p, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return errors.Respond(c, h.log, domain.NewUnauthorizedError())
	}

	var req models.BuyerUpdateRequest
	if err := c.Bind(&req); err != nil {
		return errors.Respond(c, h.log, domain.NewFieldError("body", "invalid request body"))
	}
	if req.UpdatedAt.IsZero() {
		return errors.Respond(c, h.log, domain.NewFieldError("updated_at", "is required for concurrency control"))
	}

	buyer, err := h.buyers.Update(c.Request().Context(), p, c.Param("id"), req)
	if err != nil {
		if domain.IsConflict(err) {
			h.metrics.RecordUpdateConflict()
		}
		return errors.Respond(c, h.log, err)
	}

	h.metrics.RecordBuyerUpdated()
	return c.JSON(http.StatusOK, buyer)
}

// Delete handles DELETE /buyers/:id
func (h *BuyerHandler) Delete(c echo.Context) error {
	p, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return errors.Respond(c, h.log, domain.NewUnauthorizedError())
	}

	if err := h.buyers.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return errors.Respond(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats handles GET /buyers/stats
func (h *BuyerHandler) Stats(c echo.Context) error {
	p, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return errors.Respond(c, h.log, domain.NewUnauthorizedError())
	}

	stats, err := h.buyers.Stats(c.Request().Context(), p)
	if err != nil {
		return errors.Respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, stats)
}
