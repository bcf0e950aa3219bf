package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"autoservice/internal/auth"
	"autoservice/internal/domain"
	"autoservice/internal/idempotency"
	"autoservice/internal/repository"
	"autoservice/internal/service"
)

// Deps зависимости HTTP-слоя
type Deps struct {
	Users        *service.UserService
	Catalog      *service.CatalogService
	Products     *service.ProductService
	Appointments *service.AppointmentService
	Orders       *service.OrderService
	Issuer       *auth.Issuer
	Idempotency  idempotency.Store
	Log          *slog.Logger
}

type Server struct {
	engine *gin.Engine
	Deps
}

func NewServer(d Deps) *Server {
	registerValidators()
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	s := &Server{engine: r, Deps: d}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/health", s.health)

	v1 := s.engine.Group("/api/v1")
	v1.GET("/health", s.health)

	// открытые справочники
	v1.GET("/users/masters", s.listMasters)
	v1.GET("/services", s.listServices)
	v1.GET("/services/:id", s.getService)
	v1.GET("/products", s.listProducts)
	v1.GET("/products/:id", s.getProduct)
	v1.GET("/appointments/statuses", s.appointmentStatuses)
	v1.GET("/appointments/available-slots/:masterId", s.availableSlots)
	v1.GET("/orders/statuses", s.orderStatuses)

	authed := v1.Group("", auth.Middleware(s.Issuer))
	idem := idempotency.Middleware(s.Idempotency, func(c *gin.Context) string {
		p, _ := auth.PrincipalFrom(c)
		return p.UserID
	})
	{
		authed.POST("/users", s.createUser)
		authed.GET("/users", s.listUsers)
		authed.GET("/users/:id", s.getUser)

		authed.POST("/services", s.createService)

		products := authed.Group("/products")
		products.POST("", s.createProduct)
		products.PUT("/:id", s.updateProduct)
		products.DELETE("/:id", s.deleteProduct)
		products.PUT("/:id/stock/increase", s.increaseStock)
		products.PUT("/:id/stock/decrease", s.decreaseStock)
		products.PUT("/:id/toggle-status", s.toggleProduct)

		appointments := authed.Group("/appointments")
		appointments.POST("", idem, s.createAppointment)
		appointments.GET("", s.listAppointments)
		appointments.GET("/:id", s.getAppointment)
		appointments.PUT("/:id/status", s.updateAppointmentStatus)
		appointments.PUT("/:id/assign-master", s.assignMaster)
		appointments.DELETE("/:id", s.deleteAppointment)

		orders := authed.Group("/orders")
		orders.POST("", idem, s.createOrder)
		orders.GET("", s.listOrders)
		orders.GET("/:id", s.getOrder)
		orders.PUT("/:id/status", s.updateOrderStatus)
		orders.POST("/:id/items", s.addOrderItem)
		orders.DELETE("/:id", s.deleteOrder)
	}
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]{7,20}$`)

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
	}
}

// errorResponse тело ответа с ошибкой
type errorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func mapErrorToStatus(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindBusinessRule, domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		s.Log.ErrorContext(c.Request.Context(), "request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: string(domain.KindInternalError), Message: "internal error"})
		return
	}
	c.JSON(mapErrorToStatus(err), errorResponse{Error: string(de.Kind), Message: de.Message, Details: de.Details})
}

// bindJSON разбирает тело; ошибки валидатора отдаются по полям
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]any, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, errorResponse{Error: string(domain.KindValidation), Message: "request validation failed", Details: fields})
		return false
	}
	c.JSON(http.StatusBadRequest, errorResponse{Error: string(domain.KindValidation), Message: "invalid json"})
	return false
}

// caller вызывающий; маршрут обязан стоять за auth.Middleware
func caller(c *gin.Context) auth.Principal {
	p, _ := auth.PrincipalFrom(c)
	return p
}

func queryDecimal(c *gin.Context, name string) (*decimal.Decimal, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, domain.Validation("%s must be a number", name)
	}
	return &d, nil
}

func queryBool(c *gin.Context, name string) bool {
	b, _ := strconv.ParseBool(c.Query(name))
	return b
}

// Product handlers
type productReq struct {
	Name        string                 `json:"name" binding:"required,max=200"`
	Description string                 `json:"description" binding:"max=1000"`
	Price       *decimal.Decimal       `json:"price" binding:"required"`
	Quantity    int                    `json:"quantity" binding:"gte=0"`
	Category    domain.ProductCategory `json:"category"`
	Brand       string                 `json:"brand" binding:"max=100"`
	PartNumber  string                 `json:"part_number" binding:"required,max=100"`
	IsActive    *bool                  `json:"is_active"`
}

func (r productReq) product() domain.Product {
	p := domain.Product{
		Name:        r.Name,
		Description: r.Description,
		Price:       *r.Price,
		Quantity:    r.Quantity,
		Category:    r.Category,
		Brand:       r.Brand,
		PartNumber:  r.PartNumber,
		IsActive:    true,
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	return p
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body productReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if !s.bindJSON(c, &req) {
		return
	}
	p, err := s.Products.Create(c.Request.Context(), caller(c), req.product())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} errorResponse
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	p, err := s.Products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Description Quantity is ignored, use the stock endpoints
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param input body productReq true "Update"
// @Success 200 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	var req productReq
	if !s.bindJSON(c, &req) {
		return
	}
	p := req.product()
	p.ID = c.Param("id")
	if req.IsActive == nil {
		cur, err := s.Products.GetByID(c.Request.Context(), p.ID)
		if err != nil {
			s.fail(c, err)
			return
		}
		p.IsActive = cur.IsActive
	}
	out, err := s.Products.Update(c.Request.Context(), caller(c), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Delete product
// @Tags products
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 204
// @Failure 404 {object} errorResponse
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.Products.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List products
// @Tags products
// @Produce json
// @Param q query string false "Name contains"
// @Param min_price query number false "Min price"
// @Param max_price query number false "Max price"
// @Param category query string false "Category"
// @Param brand query string false "Brand"
// @Param in_stock query bool false "Only in stock"
// @Param low_stock query bool false "Only low stock"
// @Param active query bool false "Only active"
// @Success 200 {array} domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	f := repository.ProductFilter{
		NameSubstring: c.Query("q"),
		Category:      domain.ProductCategory(c.Query("category")),
		Brand:         c.Query("brand"),
		InStockOnly:   queryBool(c, "in_stock"),
		LowStockOnly:  queryBool(c, "low_stock"),
		ActiveOnly:    queryBool(c, "active"),
	}
	var err error
	if f.MinPrice, err = queryDecimal(c, "min_price"); err != nil {
		s.fail(c, err)
		return
	}
	if f.MaxPrice, err = queryDecimal(c, "max_price"); err != nil {
		s.fail(c, err)
		return
	}
	list, err := s.Products.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func stockQuantity(c *gin.Context) (int, error) {
	q, err := strconv.Atoi(c.Query("quantity"))
	if err != nil {
		return 0, domain.Validation("quantity must be an integer")
	}
	return q, nil
}

// @Summary Increase stock
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param quantity query int true "Quantity"
// @Success 200 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Router /products/{id}/stock/increase [put]
func (s *Server) increaseStock(c *gin.Context) {
	q, err := stockQuantity(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.Products.IncreaseStock(c.Request.Context(), caller(c), c.Param("id"), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Decrease stock
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param quantity query int true "Quantity"
// @Success 200 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Router /products/{id}/stock/decrease [put]
func (s *Server) decreaseStock(c *gin.Context) {
	q, err := stockQuantity(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.Products.DecreaseStock(c.Request.Context(), caller(c), c.Param("id"), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Toggle product availability
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Router /products/{id}/toggle-status [put]
func (s *Server) toggleProduct(c *gin.Context) {
	p, err := s.Products.ToggleStatus(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
