package infrastructure

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shop-api/internal/orders/application"
	"shop-api/internal/orders/domain"
	"shop-api/pkg/errors"
	"shop-api/pkg/guard"
	"shop-api/pkg/middleware"
)

// HTTPHandler handles HTTP requests for orders
type HTTPHandler struct {
	useCase *application.OrderUseCase
	guard   *guard.Guard
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(useCase *application.OrderUseCase, g *guard.Guard) *HTTPHandler {
	return &HTTPHandler{useCase: useCase, guard: g}
}

// RegisterRoutes registers the order routes
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup, jwtSecret string) {
	orders := r.Group("/orders")
	orders.Use(middleware.RequireAuth(jwtSecret))
	{
		orders.POST("", middleware.SubmissionGuard(h.guard), h.CreateOrder)
		orders.GET("/my", h.ListMyOrders)

		admin := orders.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("", h.ListAllOrders)
			admin.GET("/:id", h.GetOrder)
			admin.PUT("/:id/status", h.UpdateStatus)
			admin.GET("/user/:userId", h.ListOrdersByUser)
		}
	}
}

// OrderItemRequest is one requested line item
type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gte=1"`
}

// CreateOrderRequest is the request body for creating a COD order. The
// client may echo a total for display purposes; it is ignored in favor of
// the server-side recomputation.
type CreateOrderRequest struct {
	Items    []OrderItemRequest `json:"items" binding:"required,dive"`
	Total    int64              `json:"total"`
	Name     string             `json:"name" binding:"required"`
	Email    string             `json:"email" binding:"required,email"`
	Phone    string             `json:"phone" binding:"required"`
	Address  string             `json:"address" binding:"required"`
	Province string             `json:"province" binding:"required"`
	Note     string             `json:"note"`
}

func (r *CreateOrderRequest) contact() domain.Contact {
	return domain.Contact{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Address:  r.Address,
		Province: r.Province,
		Note:     r.Note,
	}
}

func (r *CreateOrderRequest) items() []application.OrderItemInput {
	items := make([]application.OrderItemInput, len(r.Items))
	for i, item := range r.Items {
		items[i] = application.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}
	return items
}

// CreateOrder handles POST /orders
func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.useCase.CreateOrder(c.Request.Context(), application.CreateOrderInput{
		UserID:  middleware.UserID(c),
		Items:   req.items(),
		Contact: req.contact(),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":     output.Order,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// ListMyOrders handles GET /orders/my
func (h *HTTPHandler) ListMyOrders(c *gin.Context) {
	orders, err := h.useCase.ListOrdersByUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     orders,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// ListAllOrders handles GET /orders
func (h *HTTPHandler) ListAllOrders(c *gin.Context) {
	orders, err := h.useCase.ListAllOrders(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     orders,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// GetOrder handles GET /orders/:id
func (h *HTTPHandler) GetOrder(c *gin.Context) {
	order, err := h.useCase.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     order,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// UpdateStatusRequest is the request body for a status change
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PUT /orders/:id/status
func (h *HTTPHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	order, err := h.useCase.UpdateStatus(c.Request.Context(), application.UpdateStatusInput{
		OrderID:   c.Param("id"),
		NewStatus: req.Status,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     order,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// ListOrdersByUser handles GET /orders/user/:userId
func (h *HTTPHandler) ListOrdersByUser(c *gin.Context) {
	orders, err := h.useCase.ListOrdersByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     orders,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}
