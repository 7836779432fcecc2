package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattva01/timetable-api/internal/dto"
	"github.com/mattva01/timetable-api/internal/models"
	"github.com/mattva01/timetable-api/internal/timetable"
	appErrors "github.com/mattva01/timetable-api/pkg/errors"
)

type exceptionServiceMock struct {
	created   *models.TimetableException
	emergency *dto.EmergencyDayResponse
	err       error
}

func (m *exceptionServiceMock) Create(ctx context.Context, timetableID string, req dto.CreateExceptionRequest) (*models.TimetableException, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.created, nil
}

func (m *exceptionServiceMock) List(ctx context.Context, timetableID string) ([]models.TimetableException, error) {
	return nil, m.err
}

func (m *exceptionServiceMock) Delete(ctx context.Context, timetableID, exceptionID string) error {
	return m.err
}

func (m *exceptionServiceMock) ApplyEmergencyDay(ctx context.Context, timetableID string, req dto.EmergencyDayRequest) (*dto.EmergencyDayResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.emergency, nil
}

func TestExceptionHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExceptionHandler(&exceptionServiceMock{
		created: &models.TimetableException{ID: "exc-1", Kind: timetable.ExceptionRemove, PeriodKey: "p1"},
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.CreateExceptionRequest{Date: "2026-09-08", Kind: "REMOVE", PeriodKey: "p1"})
	req, _ := http.NewRequest(http.MethodPost, "/timetables/tt-1/exceptions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "tt-1"}}

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "exc-1")
}

func TestExceptionHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExceptionHandler(&exceptionServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/timetables/tt-1/exceptions", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "tt-1"}}

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExceptionHandlerEmergencyDayOutOfRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExceptionHandler(&exceptionServiceMock{
		err: appErrors.Clone(appErrors.ErrOutOfRange, "date outside timetable range"),
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.EmergencyDayRequest{ClosedDate: "2027-01-01", SubstituteDate: "2027-01-02"})
	req, _ := http.NewRequest(http.MethodPost, "/timetables/tt-1/emergency-day", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "tt-1"}}

	handler.EmergencyDay(c)
	assert.Equal(t, appErrors.ErrOutOfRange.Status, w.Code)
}
