package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"autoservice/internal/domain"
	"autoservice/internal/repository"
	"autoservice/internal/service"
)

type createAppointmentReq struct {
	// пусто: запись на самого вызывающего
	ClientID        string           `json:"client_id"`
	ServiceID       string           `json:"service_id" binding:"required"`
	MasterID        *string          `json:"master_id"`
	AppointmentDate time.Time        `json:"appointment_date" binding:"required"`
	Description     string           `json:"description" binding:"max=1000"`
	TotalPrice      *decimal.Decimal `json:"total_price"`
}

// @Summary Book appointment
// @Tags appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param input body createAppointmentReq true "Appointment"
// @Success 201 {object} domain.Appointment
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /appointments [post]
func (s *Server) createAppointment(c *gin.Context) {
	var req createAppointmentReq
	if !s.bindJSON(c, &req) {
		return
	}
	p := caller(c)
	if req.ClientID == "" {
		req.ClientID = p.UserID
	}
	a, err := s.Appointments.Create(c.Request.Context(), p, service.CreateAppointmentInput{
		ClientID:        req.ClientID,
		ServiceID:       req.ServiceID,
		MasterID:        req.MasterID,
		AppointmentDate: req.AppointmentDate,
		Description:     req.Description,
		TotalPrice:      req.TotalPrice,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// @Summary Get appointment
// @Tags appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 200 {object} domain.Appointment
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /appointments/{id} [get]
func (s *Server) getAppointment(c *gin.Context) {
	a, err := s.Appointments.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func queryTime(c *gin.Context, name string) (*time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, domain.Validation("%s must be an RFC 3339 timestamp", name)
	}
	return &t, nil
}

// @Summary List appointments
// @Description Clients see their own appointments, masters the assigned ones, admins all
// @Tags appointments
// @Produce json
// @Security BearerAuth
// @Param client_id query string false "Client (admin only)"
// @Param master_id query string false "Master (admin only)"
// @Param status query string false "Status"
// @Param from query string false "From, RFC 3339"
// @Param to query string false "To, RFC 3339"
// @Success 200 {array} domain.Appointment
// @Router /appointments [get]
func (s *Server) listAppointments(c *gin.Context) {
	f := repository.AppointmentFilter{
		ClientID: c.Query("client_id"),
		MasterID: c.Query("master_id"),
		Status:   domain.AppointmentStatus(c.Query("status")),
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
	list, err := s.Appointments.List(c.Request.Context(), caller(c), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Appointment statuses
// @Tags appointments
// @Produce json
// @Success 200 {array} string
// @Router /appointments/statuses [get]
func (s *Server) appointmentStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, s.Appointments.Statuses())
}

// @Summary Free slots of a master
// @Tags appointments
// @Produce json
// @Param masterId path string true "Master ID"
// @Param date query string true "Day, YYYY-MM-DD"
// @Success 200 {array} string
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /appointments/available-slots/{masterId} [get]
func (s *Server) availableSlots(c *gin.Context) {
	day, err := time.Parse(time.DateOnly, c.Query("date"))
	if err != nil {
		s.fail(c, domain.Validation("date must be YYYY-MM-DD"))
		return
	}
	slots, err := s.Appointments.AvailableSlots(c.Request.Context(), c.Param("masterId"), day)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

type appointmentStatusReq struct {
	Status domain.AppointmentStatus `json:"status" binding:"required"`
}

// @Summary Change appointment status
// @Tags appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param input body appointmentStatusReq true "Status"
// @Success 200 {object} domain.Appointment
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /appointments/{id}/status [put]
func (s *Server) updateAppointmentStatus(c *gin.Context) {
	var req appointmentStatusReq
	if !s.bindJSON(c, &req) {
		return
	}
	a, err := s.Appointments.UpdateStatus(c.Request.Context(), caller(c), c.Param("id"), req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type assignMasterReq struct {
	MasterID string `json:"master_id" binding:"required"`
}

// @Summary Assign master
// @Tags appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param input body assignMasterReq true "Master"
// @Success 200 {object} domain.Appointment
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /appointments/{id}/assign-master [put]
func (s *Server) assignMaster(c *gin.Context) {
	var req assignMasterReq
	if !s.bindJSON(c, &req) {
		return
	}
	a, err := s.Appointments.AssignMaster(c.Request.Context(), caller(c), c.Param("id"), req.MasterID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// @Summary Delete appointment
// @Tags appointments
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /appointments/{id} [delete]
func (s *Server) deleteAppointment(c *gin.Context) {
	if err := s.Appointments.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
