package handler

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizbank-backend/internal/export"
	"github.com/stemsi/quizbank-backend/internal/middleware"
	"github.com/stemsi/quizbank-backend/internal/model"
	"github.com/stemsi/quizbank-backend/internal/quiz"
	"github.com/stemsi/quizbank-backend/internal/response"
	"github.com/stemsi/quizbank-backend/internal/service"
	"github.com/stemsi/quizbank-backend/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AttemptHandler handles the learner test flow.
type AttemptHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "attempt_handler").Logger(),
	}
}

// attemptErrorStatus maps service and engine errors to an HTTP status and code.
// Assembly errors never expose quota numbers to the client.
func attemptErrorStatus(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, quiz.ErrQuotaMismatch),
		errors.Is(err, quiz.ErrInsufficientPool),
		errors.Is(err, quiz.ErrBadSelection):
		return http.StatusConflict, response.ErrTestUnavailable
	case errors.Is(err, service.ErrAttemptNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, quiz.ErrAttemptFinished):
		return http.StatusConflict, response.ErrAttemptFinished
	case errors.Is(err, service.ErrAttemptNotFinished):
		return http.StatusConflict, response.ErrAttemptNotFinished
	case errors.Is(err, quiz.ErrPositionOutOfRange):
		return http.StatusBadRequest, response.ErrInvalidPosition
	case errors.Is(err, service.ErrQuestionUnavailable):
		return http.StatusGone, response.ErrQuestionUnavailable
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

func (h *AttemptHandler) fail(c *gin.Context, err error) {
	status, code := attemptErrorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Str("request_id", response.RequestID(c)).Msg("Attempt request failed")
	} else if code == response.ErrTestUnavailable {
		h.log.Warn().Err(err).Msg("Test unavailable")
	}
	response.Fail(c, status, code)
}

// pathInts parses the :id and, when present, :n route params.
func pathInts(c *gin.Context) (attemptID, position int, ok bool) {
	attemptID, err := strconv.Atoi(c.Param("id"))
	if err != nil || attemptID < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, 0, false
	}
	if raw := c.Param("n"); raw != "" {
		position, err = strconv.Atoi(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPosition)
			return 0, 0, false
		}
	}
	return attemptID, position, true
}

// Start godoc
// POST /api/v1/attempts
// Assembles a new test, or returns the learner's attempt that is still open.
func (h *AttemptHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	a, err := h.attemptService.Start(c.Request.Context(), claims.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	a.Details = nil
	response.Success(c, http.StatusCreated, a)
}

// ViewQuestion godoc
// GET /api/v1/attempts/:id/questions/:n
func (h *AttemptHandler) ViewQuestion(c *gin.Context) {
	attemptID, position, ok := pathInts(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	view, err := h.attemptService.View(c.Request.Context(), claims.UserID, attemptID, position)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// ConfirmAnswer godoc
// PUT /api/v1/attempts/:id/questions/:n/answer
// Stores the selected option indices; out-of-range indices are dropped.
func (h *AttemptHandler) ConfirmAnswer(c *gin.Context) {
	attemptID, position, ok := pathInts(c)
	if !ok {
		return
	}

	var req model.ConfirmAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	d, err := h.attemptService.Confirm(c.Request.Context(), claims.UserID, attemptID, position, req.Selected)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"position":  d.Position,
		"selected":  d.Selected,
		"confirmed": d.Answered(),
		"next":      min(position+1, quiz.TestSize),
	})
}

// SkipQuestion godoc
// POST /api/v1/attempts/:id/questions/:n/skip
func (h *AttemptHandler) SkipQuestion(c *gin.Context) {
	attemptID, position, ok := pathInts(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	next, err := h.attemptService.Skip(c.Request.Context(), claims.UserID, attemptID, position)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"next": next})
}

// Finish godoc
// POST /api/v1/attempts/:id/finish
// Scores the attempt. Calling it again returns the same result.
func (h *AttemptHandler) Finish(c *gin.Context) {
	attemptID, _, ok := pathInts(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	res, err := h.attemptService.Finish(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		h.fail(c, err)
		return
	}
	res.Attempt.Details = nil
	response.Success(c, http.StatusOK, res)
}

// GetResult godoc
// GET /api/v1/attempts/:id/result
// Score, percent and per-theme breakdown. Add ?details=true for per-question rows.
func (h *AttemptHandler) GetResult(c *gin.Context) {
	attemptID, _, ok := pathInts(c)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	res, err := h.attemptService.Result(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if c.Query("details") != "true" {
		res.Attempt.Details = nil
	}
	response.Success(c, http.StatusOK, res)
}

// History godoc
// GET /api/v1/attempts
// The learner's attempts, newest first.
func (h *AttemptHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attempts, err := h.attemptService.History(c.Request.Context(), claims.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, attempts)
}

// Export godoc
// GET /api/v1/attempts/:id/export?format=csv|xlsx
func (h *AttemptHandler) Export(c *gin.Context) {
	attemptID, _, ok := pathInts(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedExportFmt)
		return
	}

	claims := middleware.GetClaims(c)
	res, err := h.attemptService.Result(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == "xlsx" {
		contentType = xlsxContentType
		err = export.WriteXLSX(&buf, res)
	} else {
		err = export.WriteCSV(&buf, res)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Attachment(c, export.FileName(&res.Attempt, format), contentType, buf.Bytes())
}
