package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/quizbank-backend/internal/model"
	"github.com/stemsi/quizbank-backend/internal/quiz"
	"github.com/stemsi/quizbank-backend/internal/response"
	"github.com/stemsi/quizbank-backend/internal/service"
	"github.com/stemsi/quizbank-backend/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

func TestAttemptErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   response.ErrCode
	}{
		{"quota mismatch", &quiz.ConfigError{Reason: "quota mismatch"}, http.StatusConflict, response.ErrTestUnavailable},
		{"short pool", &quiz.InsufficientPoolError{ThemeID: 3, Available: 2, Quota: 5}, http.StatusConflict, response.ErrTestUnavailable},
		{"bad selection", &quiz.AssemblyError{Got: 119, Want: 120}, http.StatusConflict, response.ErrTestUnavailable},
		{"not found", service.ErrAttemptNotFound, http.StatusNotFound, response.ErrNotFound},
		{"finished", quiz.ErrAttemptFinished, http.StatusConflict, response.ErrAttemptFinished},
		{"wrapped position", fmt.Errorf("x: %w", quiz.ErrPositionOutOfRange), http.StatusBadRequest, response.ErrInvalidPosition},
		{"not finished", service.ErrAttemptNotFinished, http.StatusConflict, response.ErrAttemptNotFinished},
		{"question gone", service.ErrQuestionUnavailable, http.StatusGone, response.ErrQuestionUnavailable},
		{"other", errors.New("db down"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, code := attemptErrorStatus(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, code)
		})
	}
}

func bindConfirm(t *testing.T, body string) (model.ConfirmAnswerRequest, map[string]string) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req model.ConfirmAnswerRequest
	return req, validator.Bind(c, &req)
}

func TestConfirmAnswerRequest_FiltersInsteadOfRejecting(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []int
	}{
		{"duplicates", `{"selected":[0,0,2,2,2]}`, []int{0, 2}},
		{"out of range", `{"selected":[7,-1,3,3,9,1]}`, []int{1, 3}},
		{"empty", `{"selected":[]}`, []int{}},
		{"missing", `{}`, []int{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, fields := bindConfirm(t, tc.body)
			require.Nil(t, fields)
			assert.Equal(t, tc.want, quiz.Normalize(req.Selected))
		})
	}
}

func TestConfirmAnswerRequest_RejectsOversizedSelection(t *testing.T) {
	body := "{\"selected\":[" + strings.TrimSuffix(strings.Repeat("0,", 65), ",") + "]}"

	_, fields := bindConfirm(t, body)
	assert.Contains(t, fields, "selected")
}
