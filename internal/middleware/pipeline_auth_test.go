package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"budgetwatch/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
}

const pipelineKey = "scheduler-secret"

// setupPipelineRouter echoes whether the request was marked as a pipeline caller.
func setupPipelineRouter(apiKey string) *gin.Engine {
	r := gin.New()
	r.POST("/evaluate", PipelineAuthMiddleware(apiKey), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pipeline": c.GetBool(PipelineCallerKey)})
	})
	return r
}

func doPipelineRequest(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/evaluate", http.NoBody)
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func TestPipelineAuthMiddleware(t *testing.T) {
	t.Run("matching_key_marks_pipeline_caller", func(t *testing.T) {
		rec := doPipelineRequest(setupPipelineRouter(pipelineKey), pipelineKey)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if caller, _ := parseBody(t, rec)["pipeline"].(bool); !caller {
			t.Error("expected request to be marked as a pipeline caller")
		}
	})

	rejected := []struct {
		name       string
		configured string
		sent       string
		wantStatus int
		wantCode   string
	}{
		{"wrong_key", pipelineKey, "not-the-secret", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"missing_key", pipelineKey, "", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"prefix_of_key", pipelineKey, "scheduler", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"key_with_suffix", pipelineKey, pipelineKey + "x", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"pipeline_disabled", "", "anything", http.StatusServiceUnavailable, "PIPELINE_NOT_CONFIGURED"},
		{"pipeline_disabled_no_key", "", "", http.StatusServiceUnavailable, "PIPELINE_NOT_CONFIGURED"},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			rec := doPipelineRequest(setupPipelineRouter(tt.configured), tt.sent)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			body := parseBody(t, rec)
			if _, reached := body["pipeline"]; reached {
				t.Fatal("handler should not run for a rejected request")
			}
			errObj, ok := body["error"].(map[string]interface{})
			if !ok {
				t.Fatal("expected error object in response")
			}
			if errObj["code"] != tt.wantCode {
				t.Errorf("expected code %s, got %v", tt.wantCode, errObj["code"])
			}
		})
	}
}
