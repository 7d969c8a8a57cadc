package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw-ipn-relay/pkg/logger"
)

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteJSONError(rec, logger.NewDiscard(), http.StatusUnauthorized, "invalid_token", "Invalid token")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_token", body.Error)
	assert.Equal(t, "Invalid token", body.Message)
}

func TestWriteJSONSuccess_NilData(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteJSONSuccess(rec, logger.NewDiscard(), http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWriteText(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteText(rec, logger.NewDiscard(), http.StatusOK, "OK")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}
