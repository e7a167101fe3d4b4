package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-cartshop/apperrors"
	"go-cartshop/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Message {
	t.Helper()
	var msg Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	return msg
}

func TestWriteErrorHidesStorageDetail(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	rec := httptest.NewRecorder()

	WriteError(context.Background(), logg, rec, apperrors.Storage(errors.New("auth failed for user root"), "insert order"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", decode(t, rec).Message)
	assert.Contains(t, buf.String(), "auth failed for user root")
}

func TestWriteErrorExposesClientErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{apperrors.Validation("Invalid id"), http.StatusBadRequest, "Invalid id"},
		{apperrors.NotFound("Not found"), http.StatusNotFound, "Not found"},
		{apperrors.Unauthorized("Invalid token"), http.StatusUnauthorized, "Invalid token"},
		{apperrors.Conflict("User already exists"), http.StatusConflict, "User already exists"},
		{errors.New("boom"), http.StatusInternalServerError, "Server error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(context.Background(), nil, rec, tc.err)
		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, tc.msg, decode(t, rec).Message)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}
