package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mattva01/timetable-api/internal/dto"
	"github.com/mattva01/timetable-api/internal/models"
	appErrors "github.com/mattva01/timetable-api/pkg/errors"
	"github.com/mattva01/timetable-api/pkg/response"
)

type exceptionService interface {
	Create(ctx context.Context, timetableID string, req dto.CreateExceptionRequest) (*models.TimetableException, error)
	List(ctx context.Context, timetableID string) ([]models.TimetableException, error)
	Delete(ctx context.Context, timetableID, exceptionID string) error
	ApplyEmergencyDay(ctx context.Context, timetableID string, req dto.EmergencyDayRequest) (*dto.EmergencyDayResponse, error)
}

// ExceptionHandler exposes per-date meeting patch endpoints.
type ExceptionHandler struct {
	service exceptionService
}

// NewExceptionHandler constructs an exception handler.
func NewExceptionHandler(svc exceptionService) *ExceptionHandler {
	return &ExceptionHandler{service: svc}
}

// List godoc
// @Summary List exceptions
// @Tags Exceptions
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/exceptions [get]
func (h *ExceptionHandler) List(c *gin.Context) {
	exceptions, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exceptions, nil)
}

// Create godoc
// @Summary Create exception
// @Description Adds one ADD, REMOVE or REPLACE patch for a single date.
// @Tags Exceptions
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.CreateExceptionRequest true "Exception payload"
// @Success 201 {object} response.Envelope
// @Router /timetables/{id}/exceptions [post]
func (h *ExceptionHandler) Create(c *gin.Context) {
	var req dto.CreateExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exc, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exc)
}

// Delete godoc
// @Summary Delete exception
// @Tags Exceptions
// @Produce json
// @Param id path string true "Timetable ID"
// @Param eid path string true "Exception ID"
// @Success 204
// @Router /timetables/{id}/exceptions/{eid} [delete]
func (h *ExceptionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.Param("eid")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// EmergencyDay godoc
// @Summary Move a closed date's meetings to a substitute date
// @Description Cancels every meeting of the closed date and re-adds them on the substitute date at the same wall-clock times.
// @Tags Exceptions
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.EmergencyDayRequest true "Emergency day payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/emergency-day [post]
func (h *ExceptionHandler) EmergencyDay(c *gin.Context) {
	var req dto.EmergencyDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.ApplyEmergencyDay(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
