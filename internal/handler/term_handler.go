package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mattva01/timetable-api/internal/dto"
	"github.com/mattva01/timetable-api/internal/models"
	appErrors "github.com/mattva01/timetable-api/pkg/errors"
	"github.com/mattva01/timetable-api/pkg/response"
)

type termService interface {
	Create(ctx context.Context, req dto.CreateTermRequest) (*models.Term, error)
	Get(ctx context.Context, id string) (*models.Term, error)
	List(ctx context.Context, filter models.TermFilter) ([]models.Term, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateTermRequest) (*models.Term, error)
	Delete(ctx context.Context, id string) error
	AddDayOverride(ctx context.Context, termID string, req dto.CreateDayOverrideRequest) (*models.TermDayOverride, error)
	ListDayOverrides(ctx context.Context, termID string) ([]models.TermDayOverride, error)
	DeleteDayOverride(ctx context.Context, termID, overrideID string) error
	Calendar(ctx context.Context, termID string) ([]dto.TermCalendarDay, error)
	ImportHolidays(ctx context.Context, termID string, req dto.ImportHolidaysRequest) (*dto.ImportHolidaysResponse, error)
}

// TermHandler exposes term endpoints.
type TermHandler struct {
	service termService
}

// NewTermHandler constructs a term handler.
func NewTermHandler(svc termService) *TermHandler {
	return &TermHandler{service: svc}
}

// List godoc
// @Summary List terms
// @Tags Terms
// @Produce json
// @Param academicYear query string false "Filter by academic year"
// @Param isActive query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /terms [get]
func (h *TermHandler) List(c *gin.Context) {
	var filter models.TermFilter
	filter.AcademicYear = c.Query("academicYear")
	if isActive := c.Query("isActive"); isActive != "" {
		if val, err := strconv.ParseBool(isActive); err == nil {
			filter.IsActive = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	terms, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, terms, pagination)
}

// Create godoc
// @Summary Create term
// @Tags Terms
// @Accept json
// @Produce json
// @Param payload body dto.CreateTermRequest true "Term payload"
// @Success 201 {object} response.Envelope
// @Router /terms [post]
func (h *TermHandler) Create(c *gin.Context) {
	var req dto.CreateTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	term, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, term)
}

// Get godoc
// @Summary Get term
// @Tags Terms
// @Produce json
// @Param id path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /terms/{id} [get]
func (h *TermHandler) Get(c *gin.Context) {
	term, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, term, nil)
}

// Update godoc
// @Summary Update term
// @Tags Terms
// @Accept json
// @Produce json
// @Param id path string true "Term ID"
// @Param payload body dto.UpdateTermRequest true "Term payload"
// @Success 200 {object} response.Envelope
// @Router /terms/{id} [put]
func (h *TermHandler) Update(c *gin.Context) {
	var req dto.UpdateTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	term, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, term, nil)
}

// Delete godoc
// @Summary Delete term
// @Tags Terms
// @Produce json
// @Param id path string true "Term ID"
// @Success 204
// @Router /terms/{id} [delete]
func (h *TermHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Calendar godoc
// @Summary Project the term calendar
// @Description Lists every date of the term with its schoolday flag and pinned day id.
// @Tags Terms
// @Produce json
// @Param id path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /terms/{id}/calendar [get]
func (h *TermHandler) Calendar(c *gin.Context) {
	days, err := h.service.Calendar(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}

// AddDayOverride godoc
// @Summary Add a date-level calendar override
// @Tags Terms
// @Accept json
// @Produce json
// @Param id path string true "Term ID"
// @Param payload body dto.CreateDayOverrideRequest true "Override payload"
// @Success 201 {object} response.Envelope
// @Router /terms/{id}/overrides [post]
func (h *TermHandler) AddDayOverride(c *gin.Context) {
	var req dto.CreateDayOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	override, err := h.service.AddDayOverride(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, override)
}

// ListDayOverrides godoc
// @Summary List calendar overrides
// @Tags Terms
// @Produce json
// @Param id path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /terms/{id}/overrides [get]
func (h *TermHandler) ListDayOverrides(c *gin.Context) {
	overrides, err := h.service.ListDayOverrides(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overrides, nil)
}

// DeleteDayOverride godoc
// @Summary Delete a calendar override
// @Tags Terms
// @Produce json
// @Param id path string true "Term ID"
// @Param oid path string true "Override ID"
// @Success 204
// @Router /terms/{id}/overrides/{oid} [delete]
func (h *TermHandler) DeleteDayOverride(c *gin.Context) {
	if err := h.service.DeleteDayOverride(c.Request.Context(), c.Param("id"), c.Param("oid")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ImportHolidays godoc
// @Summary Import holidays from an ICS feed
// @Description Writes a REMOVE_SCHOOLDAY override for every holiday date inside the term range.
// @Tags Terms
// @Accept json
// @Produce json
// @Param id path string true "Term ID"
// @Param payload body dto.ImportHolidaysRequest true "ICS payload"
// @Success 200 {object} response.Envelope
// @Router /terms/{id}/holidays/import [post]
func (h *TermHandler) ImportHolidays(c *gin.Context) {
	var req dto.ImportHolidaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.ImportHolidays(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
