package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"autoservice/internal/domain"
)

type createUserReq struct {
	ID        string      `json:"id"`
	Email     string      `json:"email" binding:"required,email"`
	FirstName string      `json:"first_name" binding:"required,max=100"`
	LastName  string      `json:"last_name" binding:"max=100"`
	Phone     string      `json:"phone" binding:"omitempty,phone"`
	Role      domain.Role `json:"role" binding:"required,oneof=CLIENT MASTER ADMIN"`
}

// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body createUserReq true "User"
// @Success 201 {object} domain.User
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Router /users [post]
func (s *Server) createUser(c *gin.Context) {
	var req createUserReq
	if !s.bindJSON(c, &req) {
		return
	}
	u, err := s.Users.Create(c.Request.Context(), caller(c), domain.User{
		ID:        req.ID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      req.Role,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// @Summary Get user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} domain.User
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /users/{id} [get]
func (s *Server) getUser(c *gin.Context) {
	u, err := s.Users.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role"
// @Success 200 {array} domain.User
// @Router /users [get]
func (s *Server) listUsers(c *gin.Context) {
	list, err := s.Users.List(c.Request.Context(), caller(c), domain.Role(c.Query("role")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary List masters
// @Tags users
// @Produce json
// @Success 200 {array} domain.User
// @Router /users/masters [get]
func (s *Server) listMasters(c *gin.Context) {
	list, err := s.Users.Masters(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type createServiceReq struct {
	Name            string           `json:"name" binding:"required,max=200"`
	Description     string           `json:"description" binding:"max=1000"`
	Price           *decimal.Decimal `json:"price" binding:"required"`
	DurationMinutes int              `json:"duration_minutes" binding:"gt=0"`
	Category        string           `json:"category"`
}

// @Summary Create service
// @Tags services
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body createServiceReq true "Service"
// @Success 201 {object} domain.Service
// @Failure 400 {object} errorResponse
// @Router /services [post]
func (s *Server) createService(c *gin.Context) {
	var req createServiceReq
	if !s.bindJSON(c, &req) {
		return
	}
	svc, err := s.Catalog.Create(c.Request.Context(), caller(c), domain.Service{
		Name:            req.Name,
		Description:     req.Description,
		Price:           *req.Price,
		DurationMinutes: req.DurationMinutes,
		Category:        req.Category,
		IsActive:        true,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, svc)
}

// @Summary Get service
// @Tags services
// @Produce json
// @Param id path string true "Service ID"
// @Success 200 {object} domain.Service
// @Failure 404 {object} errorResponse
// @Router /services/{id} [get]
func (s *Server) getService(c *gin.Context) {
	svc, err := s.Catalog.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// @Summary List services
// @Tags services
// @Produce json
// @Param active query bool false "Only active"
// @Success 200 {array} domain.Service
// @Router /services [get]
func (s *Server) listServices(c *gin.Context) {
	list, err := s.Catalog.List(c.Request.Context(), queryBool(c, "active"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
