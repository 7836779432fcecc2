package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mattva01/timetable-api/internal/dto"
	appErrors "github.com/mattva01/timetable-api/pkg/errors"
	"github.com/mattva01/timetable-api/pkg/response"
)

type calendarService interface {
	Meetings(ctx context.Context, timetableID string, query dto.CalendarQuery) (*dto.MeetingsResponse, error)
	Events(ctx context.Context, timetableID string, query dto.CalendarQuery) (*dto.EventsResponse, error)
	ICSFeed(ctx context.Context, timetableID string, query dto.CalendarQuery) ([]byte, string, error)
}

// CalendarHandler exposes generated meetings and projected events.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler constructs a calendar handler.
func NewCalendarHandler(svc calendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// Meetings godoc
// @Summary Generate meetings for a date range
// @Description Returns the concrete meetings of [from, until) grouped per date. Holidays appear with an empty meeting list.
// @Tags Calendar
// @Produce json
// @Param id path string true "Timetable ID"
// @Param from query string true "Start date (inclusive), YYYY-MM-DD"
// @Param until query string true "End date (exclusive), YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/meetings [get]
func (h *CalendarHandler) Meetings(c *gin.Context) {
	var query dto.CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid range"))
		return
	}
	resp, err := h.service.Meetings(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Events godoc
// @Summary Project calendar events for a date range
// @Description Returns UTC calendar events with stable UIDs, suitable for diffing against an external calendar.
// @Tags Calendar
// @Produce json
// @Param id path string true "Timetable ID"
// @Param from query string true "Start date (inclusive), YYYY-MM-DD"
// @Param until query string true "End date (exclusive), YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/events [get]
func (h *CalendarHandler) Events(c *gin.Context) {
	var query dto.CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid range"))
		return
	}
	resp, err := h.service.Events(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// ICSFeed godoc
// @Summary Download the schedule as an iCalendar feed
// @Tags Calendar
// @Produce plain
// @Param id path string true "Timetable ID"
// @Param from query string true "Start date (inclusive), YYYY-MM-DD"
// @Param until query string true "End date (exclusive), YYYY-MM-DD"
// @Success 200 {string} string "iCalendar payload"
// @Router /timetables/{id}/feed.ics [get]
func (h *CalendarHandler) ICSFeed(c *gin.Context) {
	var query dto.CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid range"))
		return
	}
	payload, title, err := h.service.ICSFeed(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", title+".ics"))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", payload)
}
