package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	orderdomain "github.com/nilemart/storefront/internal/order/domain"
)

type createOrderRequest struct {
	CustomerEmail string `json:"customer_email" binding:"required"`
	TotalCents    int64  `json:"total_cents" binding:"required"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	order, err := s.orderSvc.Create(c.Request.Context(), orderdomain.CreateOrderRequest{
		CustomerEmail: req.CustomerEmail,
		TotalCents:    req.TotalCents,
		Currency:      req.Currency,
		PaymentMethod: orderdomain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (s *Server) GetOrder(c *gin.Context) {
	id, err := s.orderID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (s *Server) ListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	orders, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListOrdersRequest{
		CustomerEmail: c.Query("email"),
		Limit:         limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) orderID(c *gin.Context) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param("order_id"))
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, orderdomain.ErrInvalidOrderID
	}
	return id, nil
}
