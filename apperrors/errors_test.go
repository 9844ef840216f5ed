package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", NotFound("Product not found"))
	assert.Equal(t, http.StatusNotFound, Status(wrapped))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("boom")))
}

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		err     error
		code    int
		message string
		details bool
	}{
		{"bad request keeps details", BadRequest("Invalid request body", errors.New("missing title")), 400, "Invalid request body", true},
		{"internal hides details", Internal("Failed to load", errors.New("dial tcp")), 500, "Failed to load", false},
		{"plain error", errors.New("dial tcp"), 500, "Internal server error", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			Respond(c, tc.err)

			assert.Equal(t, tc.code, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.message, body["error"])
			_, hasDetails := body["details"]
			assert.Equal(t, tc.details, hasDetails)
			assert.True(t, c.IsAborted())
		})
	}
}
