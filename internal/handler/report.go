package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/recycleshare/recycleshare/internal/repository"
)

// ReportHandler serves the resident-facing score endpoints.
type ReportHandler struct {
	Scores *repository.ScoreRepo
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(scores *repository.ScoreRepo) *ReportHandler {
	if scores == nil {
		panic("nil score repository passed to NewReportHandler")
	}
	return &ReportHandler{Scores: scores}
}

// MyScore handles GET /v1/my-score.  Optional month and year query
// parameters select a period; without them the current month is used.
// A period without accrued points answers with a zero score rather
// than 404.
func (h *ReportHandler) MyScore(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	now := time.Now().UTC()
	month, year := int(now.Month()), now.Year()
	if v := c.QueryParam("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "month must be between 1 and 12"})
		}
		month = m
	}
	if v := c.QueryParam("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 2100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid year"})
		}
		year = y
	}
	score, err := h.Scores.Get(c.Request().Context(), uid, month, year)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": uid,
		"month":   score.Month,
		"year":    score.Year,
		"score":   score.Score,
	})
}

// ScoreHistory handles GET /v1/my-score/history: every period the
// caller accrued points in, newest first.
func (h *ReportHandler) ScoreHistory(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	history, err := h.Scores.History(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(history))
	for _, s := range history {
		out = append(out, echo.Map{"month": s.Month, "year": s.Year, "score": s.Score})
	}
	return c.JSON(http.StatusOK, echo.Map{"history": out})
}
