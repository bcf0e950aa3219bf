package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"autoservice/internal/domain"
	"autoservice/internal/repository"
	"autoservice/internal/service"
)

type orderItemReq struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type createOrderReq struct {
	// пусто: заказ на самого вызывающего
	ClientID        string         `json:"client_id"`
	Items           []orderItemReq `json:"items" binding:"required,min=1,dive"`
	ShippingAddress string         `json:"shipping_address" binding:"max=500"`
	ContactPhone    string         `json:"contact_phone" binding:"omitempty,phone"`
	Notes           string         `json:"notes" binding:"max=1000"`
}

// @Summary Place order
// @Description Stock of every item is reserved atomically
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param input body createOrderReq true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if !s.bindJSON(c, &req) {
		return
	}
	p := caller(c)
	if req.ClientID == "" {
		req.ClientID = p.UserID
	}
	in := service.CreateOrderInput{
		ClientID:        req.ClientID,
		ShippingAddress: req.ShippingAddress,
		ContactPhone:    req.ContactPhone,
		Notes:           req.Notes,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.OrderItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	o, err := s.Orders.CreateOrder(c.Request.Context(), p, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, err := s.Orders.GetOrder(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary List orders
// @Description Clients see only their own orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param client_id query string false "Client (admin only)"
// @Param status query string false "Status"
// @Param from query string false "From, RFC 3339"
// @Param to query string false "To, RFC 3339"
// @Success 200 {array} domain.Order
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	f := repository.OrderFilter{
		ClientID: c.Query("client_id"),
		Status:   domain.OrderStatus(c.Query("status")),
	}
	var err error
	if f.From, err = queryTime(c, "from"); err != nil {
		s.fail(c, err)
		return
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		s.fail(c, err)
		return
	}
	list, err := s.Orders.ListOrders(c.Request.Context(), caller(c), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Order statuses
// @Tags orders
// @Produce json
// @Success 200 {array} string
// @Router /orders/statuses [get]
func (s *Server) orderStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, s.Orders.Statuses())
}

type orderStatusReq struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

// @Summary Change order status
// @Description Cancelling returns reserved stock
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param input body orderStatusReq true "Status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{id}/status [put]
func (s *Server) updateOrderStatus(c *gin.Context) {
	var req orderStatusReq
	if !s.bindJSON(c, &req) {
		return
	}
	o, err := s.Orders.UpdateStatus(c.Request.Context(), caller(c), c.Param("id"), req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Add item to a pending order
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param input body orderItemReq true "Item"
// @Success 200 {object} domain.Order
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{id}/items [post]
func (s *Server) addOrderItem(c *gin.Context) {
	var req orderItemReq
	if !s.bindJSON(c, &req) {
		return
	}
	o, err := s.Orders.AddItem(c.Request.Context(), caller(c), c.Param("id"), service.OrderItemInput{ProductID: req.ProductID, Quantity: req.Quantity})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Delete order
// @Tags orders
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{id} [delete]
func (s *Server) deleteOrder(c *gin.Context) {
	if err := s.Orders.DeleteOrder(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
