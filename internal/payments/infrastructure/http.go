package infrastructure

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ordersapp "shop-api/internal/orders/application"
	ordersdomain "shop-api/internal/orders/domain"
	"shop-api/internal/payments/application"
	"shop-api/pkg/errors"
	"shop-api/pkg/guard"
	"shop-api/pkg/middleware"
)

// HTTPHandler handles HTTP requests for gateway payments
type HTTPHandler struct {
	useCase *application.PaymentUseCase
	guard   *guard.Guard
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(useCase *application.PaymentUseCase, g *guard.Guard) *HTTPHandler {
	return &HTTPHandler{useCase: useCase, guard: g}
}

// RegisterRoutes registers the payment routes. The notify endpoint stays
// outside the auth group; the provider calls it server-to-server and
// authenticates with its signature instead.
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup, jwtSecret string) {
	payments := r.Group("/payments")
	{
		payments.GET("/notify", h.Notify)

		authed := payments.Group("")
		authed.Use(middleware.RequireAuth(jwtSecret))
		{
			authed.POST("", middleware.SubmissionGuard(h.guard), h.InitiatePayment)
			authed.POST("/confirm", h.ConfirmReturn)
		}
	}
}

// InitiatePaymentRequest is the request body for starting a gateway
// payment. Like COD orders, any echoed total is ignored.
type InitiatePaymentRequest struct {
	Items    []OrderItemRequest `json:"items" binding:"required,dive"`
	Total    int64              `json:"total"`
	Name     string             `json:"name" binding:"required"`
	Email    string             `json:"email" binding:"required,email"`
	Phone    string             `json:"phone" binding:"required"`
	Address  string             `json:"address" binding:"required"`
	Province string             `json:"province" binding:"required"`
	Note     string             `json:"note"`
}

// OrderItemRequest is one requested line item
type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gte=1"`
}

func (r *InitiatePaymentRequest) contact() ordersdomain.Contact {
	return ordersdomain.Contact{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Address:  r.Address,
		Province: r.Province,
		Note:     r.Note,
	}
}

func (r *InitiatePaymentRequest) items() []ordersapp.OrderItemInput {
	items := make([]ordersapp.OrderItemInput, len(r.Items))
	for i, item := range r.Items {
		items[i] = ordersapp.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}
	return items
}

// InitiatePayment handles POST /payments
func (h *HTTPHandler) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.useCase.InitiatePayment(c.Request.Context(), application.InitiatePaymentInput{
		UserID:   middleware.UserID(c),
		Items:    req.items(),
		Contact:  req.contact(),
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"payment_url": output.PaymentURL,
			"txn_ref":     output.TxnRef,
			"pending":     output.Pending,
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// ConfirmReturnRequest carries the signed query parameters the gateway
// appended to the return redirect
type ConfirmReturnRequest struct {
	Params map[string]string `json:"params" binding:"required"`
}

// ConfirmReturn handles POST /payments/confirm
func (h *HTTPHandler) ConfirmReturn(c *gin.Context) {
	var req ConfirmReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.useCase.ConfirmReturn(c.Request.Context(), application.ConfirmReturnInput{
		UserID: middleware.UserID(c),
		Params: req.Params,
	})
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusCreated
	if output.AlreadySettled {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"data": gin.H{
			"order":           output.Order,
			"already_settled": output.AlreadySettled,
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// Notify handles GET /payments/notify, the provider-initiated callback.
// The response is the short code contract the provider expects, not the
// usual JSON envelope.
func (h *HTTPHandler) Notify(c *gin.Context) {
	params := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		params[k] = v[0]
	}

	ack := h.useCase.HandleNotification(c.Request.Context(), params)
	c.JSON(http.StatusOK, gin.H{
		"RspCode": ack.Code,
		"Message": ack.Message,
	})
}
