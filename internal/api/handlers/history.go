package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/histwindow-go/internal/calendar"
	"github.com/irfndi/histwindow-go/internal/history"
	"github.com/irfndi/histwindow-go/internal/models"
	"github.com/irfndi/histwindow-go/internal/window"
)

// HistoryHandler serves adjusted sliding history windows over HTTP. One
// loader and calendar pair per bar frequency.
type HistoryHandler struct {
	loaders   map[string]*history.Loader
	calendars map[string]*calendar.Calendar
}

func NewHistoryHandler(daily, minute *history.Loader, dailyCal, minuteCal *calendar.Calendar) *HistoryHandler {
	return &HistoryHandler{
		loaders:   map[string]*history.Loader{"daily": daily, "minute": minute},
		calendars: map[string]*calendar.Calendar{"daily": dailyCal, "minute": minuteCal},
	}
}

// HistoryResponse carries one adjusted window. Cells with no data before
// the first available session come back as null.
type HistoryResponse struct {
	Field     string       `json:"field"`
	Frequency string       `json:"frequency"`
	Sids      []int64      `json:"sids"`
	Dates     []time.Time  `json:"dates"`
	Values    [][]*float64 `json:"values"`
}

// GetHistory handles GET /api/v1/history.
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	field, err := models.ParseField(c.DefaultQuery("field", "close"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	frequency := c.DefaultQuery("frequency", "daily")
	loader, ok := h.loaders[frequency]
	if !ok || loader == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown frequency " + frequency})
		return
	}
	cal := h.calendars[frequency]

	sids, err := parseSids(c.Query("sids"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, end, err := parseRange(c, frequency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lo, hi := cal.SliceIndexer(start, end)
	if lo >= hi {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no sessions in requested range"})
		return
	}
	dates := cal.Sessions(lo, hi)

	values, err := loader.History(c.Request.Context(), sids, dates, field)
	if err != nil {
		c.JSON(historyStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Field:     field.String(),
		Frequency: frequency,
		Sids:      sids,
		Dates:     dates,
		Values:    nullableMatrix(values),
	})
}

func historyStatus(err error) int {
	switch {
	case errors.Is(err, history.ErrEmptyAssets),
		errors.Is(err, history.ErrEmptyDates),
		errors.Is(err, history.ErrBadField),
		errors.Is(err, history.ErrNonContiguousDates),
		errors.Is(err, window.ErrOutOfOrderSeek),
		errors.Is(err, window.ErrSeekPastEnd):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseSids(raw string) ([]int64, error) {
	if raw == "" {
		return nil, errors.New("sids parameter is required")
	}
	parts := strings.Split(raw, ",")
	sids := make([]int64, 0, len(parts))
	for _, p := range parts {
		sid, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, errors.New("invalid sid " + p)
		}
		sids = append(sids, sid)
	}
	return sids, nil
}

func parseRange(c *gin.Context, frequency string) (time.Time, time.Time, error) {
	layout := "2006-01-02"
	if frequency == "minute" {
		layout = time.RFC3339
	}
	start, err := time.Parse(layout, c.Query("start"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid start date")
	}
	end, err := time.Parse(layout, c.Query("end"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid end date")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end precedes start")
	}
	return start, end, nil
}

// nullableMatrix converts NaN cells to nulls for JSON transport.
func nullableMatrix(values [][]float64) [][]*float64 {
	out := make([][]*float64, len(values))
	for i, row := range values {
		out[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) {
				v := row[j]
				out[i][j] = &v
			}
		}
	}
	return out
}
