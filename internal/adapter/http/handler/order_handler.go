package handler

import (
	"stepstyle/internal/adapter/http/dto"
	"stepstyle/internal/adapter/http/middleware"
	"stepstyle/internal/core/ports"
	"stepstyle/pkg/apperror"
	"stepstyle/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderIdempotencyKey lets a client retry a checkout safely.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLen = 100

// OrderHandler handles checkout and order history endpoints.
type OrderHandler struct {
	orderSvc ports.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc ports.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// Checkout handles POST /api/v1/orders.
func (h *OrderHandler) Checkout(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}

	idempKey := c.GetHeader(HeaderIdempotencyKey)
	if len(idempKey) > maxIdempotencyKeyLen {
		response.Error(c, apperror.Validation("Idempotency-Key is too long"))
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	order, err := h.orderSvc.Checkout(c.Request.Context(), ports.CheckoutRequest{
		AccountID:       accountID,
		Items:           req.LineItems(),
		Subtotal:        req.Subtotal,
		CoinsUsed:       req.CoinsUsed,
		ShippingAddress: req.Address(),
		IdempotencyKey:  idempKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, order.ID.String())
	response.Created(c, order)
}

// List handles GET /api/v1/orders.
func (h *OrderHandler) List(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}

	orders, err := h.orderSvc.ListOrders(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, orders)
}

// Get handles GET /api/v1/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		// Malformed ids cannot exist.
		response.Error(c, apperror.ErrNotFound("Order"))
		return
	}

	order, err := h.orderSvc.GetOrder(c.Request.Context(), accountID, orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, order)
}
