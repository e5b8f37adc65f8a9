package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizbank-backend/internal/response"
	"github.com/stemsi/quizbank-backend/internal/service"
)

// QuestionHandler handles question bank endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
	maxUploadBytes  int64
	log             zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, maxUploadBytes int64, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		maxUploadBytes:  maxUploadBytes,
		log:             log.With().Str("component", "question_handler").Logger(),
	}
}

// UploadBank godoc
// POST /api/v1/admin/questions/upload
// Replaces the whole question bank with the JSON list in the multipart "file" field.
func (h *QuestionHandler) UploadBank(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	bank, err := service.ParseBank(io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		var verr *service.BankValidationError
		switch {
		case errors.As(err, &verr):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, verr.Fields)
		case errors.Is(err, service.ErrInvalidBankFile):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidBankFile)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	stats, err := h.questionService.Replace(c.Request.Context(), bank)
	if err != nil {
		h.log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Bank replacement failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// GetStats godoc
// GET /api/v1/admin/questions/stats
// Per-theme counts and quotas of the current bank, and whether a test can be assembled.
func (h *QuestionHandler) GetStats(c *gin.Context) {
	stats, err := h.questionService.Stats(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, stats)
}
