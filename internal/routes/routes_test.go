package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"budgetwatch/internal/app"
	"budgetwatch/internal/config"
	"budgetwatch/internal/logger"
	"budgetwatch/internal/models"
	"budgetwatch/internal/testutil"
	"budgetwatch/internal/validator"
)

const pipelineKey = "test-pipeline-key"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
	os.Exit(m.Run())
}

// recordingNotifier captures every alert sent through the API.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Send(_ context.Context, to models.Recipient, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to.Address+"|"+subject+"|"+body)
	return nil
}

func (n *recordingNotifier) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

// testApp holds the full application stack for route tests.
type testApp struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Notifier *recordingNotifier
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	notifier := &recordingNotifier{}
	svc, err := app.BuildWithNotifier(db, config.EvaluationConfig{
		Concurrency:   2,
		QueryTimeout:  time.Second,
		NotifyTimeout: time.Second,
	}, notifier)
	if err != nil {
		t.Fatalf("failed to build services: %v", err)
	}
	t.Cleanup(svc.Close)

	router := New(svc, Options{PipelineAPIKey: pipelineKey})
	return &testApp{DB: db, Router: router, Notifier: notifier}
}

// request makes an HTTP request to the test router and returns the recorder.
func (a *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the access token and user ID.
func (a *testApp) registerUser(t *testing.T, email string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"password123","first_name":"Test","last_name":"User"}`, email)
	rec := a.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), user["id"].(string)
}

func (a *testApp) mustCreate(t *testing.T, path, body, token, key string) string {
	t.Helper()
	rec := a.request("POST", path, body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST %s failed: %d %s", path, rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)[key].(map[string]interface{})["id"].(string)
}

func TestHealth(t *testing.T) {
	a := setupApp(t)

	rec := a.request("GET", "/api/health", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthFlow_RegisterLoginProfile(t *testing.T) {
	a := setupApp(t)
	_, userID := a.registerUser(t, "auth@test.com")

	rec := a.request("POST", "/api/v1/auth/login", `{"email":"AUTH@test.com","password":"password123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	token := parseJSON(t, rec)["access_token"].(string)

	rec = a.request("GET", "/api/v1/profile", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	user := parseJSON(t, rec)["user"].(map[string]interface{})
	if user["id"] != userID || user["email"] != "auth@test.com" {
		t.Errorf("unexpected profile %v", user)
	}

	rec = a.request("POST", "/api/v1/auth/login", `{"email":"auth@test.com","password":"wrongpass"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", rec.Code)
	}
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	a := setupApp(t)

	for _, path := range []string{"/api/v1/profile", "/api/v1/budgets", "/api/v1/budgets/status", "/api/v1/transactions"} {
		rec := a.request("GET", path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestBudgetFlow_EvaluateAndAlert(t *testing.T) {
	a := setupApp(t)
	token, _ := a.registerUser(t, "budget@test.com")

	a.mustCreate(t, "/api/v1/budgets",
		`{"category":"Food","limit":"100","start_date":"2024-01-01","end_date":"2024-01-31"}`, token, "budget")
	a.mustCreate(t, "/api/v1/budgets",
		`{"category":"fuel","limit":"60","start_date":"2024-01-01","end_date":"2024-01-31","alert_threshold":50}`, token, "budget")
	a.mustCreate(t, "/api/v1/budgets",
		`{"category":"books","limit":"40","start_date":"2024-01-01","end_date":"2024-01-31"}`, token, "budget")

	txs := []string{
		`{"type":"expense","amount":"50","category":"food","date":"2024-01-05"}`,
		`{"type":"expense","amount":"35.5","category":"FOOD","date":"2024-01-31"}`,
		`{"type":"expense","amount":"500","category":"food","date":"2024-02-01"}`,
		`{"type":"expense","amount":"75","category":"fuel","date":"2024-01-10"}`,
		`{"type":"expense","amount":"1000","category":"rent","date":"2024-01-02"}`,
	}
	for _, body := range txs {
		a.mustCreate(t, "/api/v1/transactions", body, token, "transaction")
	}

	rec := a.request("GET", "/api/v1/budgets/status", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)

	statuses := result["statuses"].([]interface{})
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	want := map[string]struct {
		status string
		pct    float64
	}{
		"food":  {"near_limit", 85.5},
		"fuel":  {"exceeded", 125},
		"books": {"within_limit", 0},
	}
	for _, raw := range statuses {
		s := raw.(map[string]interface{})
		w, ok := want[s["category"].(string)]
		if !ok {
			t.Errorf("unexpected category %v", s["category"])
			continue
		}
		if s["status"] != w.status {
			t.Errorf("%s: expected %s, got %v", s["category"], w.status, s["status"])
		}
		if s["percentage_used"].(float64) != w.pct {
			t.Errorf("%s: expected %.2f%%, got %v", s["category"], w.pct, s["percentage_used"])
		}
	}

	alerts := result["alerts"].([]interface{})
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d: %v", len(alerts), alerts)
	}
	for _, raw := range alerts {
		alert := raw.(map[string]interface{})
		if alert["delivered"] != true {
			t.Errorf("expected alert delivered, got %v", alert)
		}
	}

	sent := a.Notifier.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(sent))
	}
	foodAlert := "budget@test.com|Budget Alert: food|Your budget for food is near limit. You have spent $85.5 out of your limit of $100."
	found := false
	for _, s := range sent {
		if s == foodAlert {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q among %v", foodAlert, sent)
	}
}

func TestBudgetFlow_NoBudgets(t *testing.T) {
	a := setupApp(t)
	token, _ := a.registerUser(t, "empty@test.com")

	rec := a.request("GET", "/api/v1/budgets/status", "", token)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"statuses":[],"alerts":[]}` {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if len(a.Notifier.Sent()) != 0 {
		t.Error("expected no notifications")
	}
}

func TestBudgetFlow_CRUDIsOwnerScoped(t *testing.T) {
	a := setupApp(t)
	owner, _ := a.registerUser(t, "owner@test.com")
	intruder, _ := a.registerUser(t, "intruder@test.com")

	budgetID := a.mustCreate(t, "/api/v1/budgets",
		`{"category":"travel","limit":"300","start_date":"2024-06-01","end_date":"2024-06-30"}`, owner, "budget")

	rec := a.request("GET", "/api/v1/budgets/"+budgetID, "", intruder)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign budget, got %d", rec.Code)
	}
	rec = a.request("PUT", "/api/v1/budgets/"+budgetID, `{"limit":"1"}`, intruder)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 updating foreign budget, got %d", rec.Code)
	}

	rec = a.request("PUT", "/api/v1/budgets/"+budgetID, `{"limit":"450","alert_threshold":90}`, owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	budget := parseJSON(t, rec)["budget"].(map[string]interface{})
	if budget["limit"] != "450" || budget["alert_threshold"].(float64) != 90 {
		t.Errorf("update not applied: %v", budget)
	}

	rec = a.request("PUT", "/api/v1/budgets/"+budgetID, `{"end_date":"2024-05-01"}`, owner)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for end before start, got %d", rec.Code)
	}

	rec = a.request("GET", "/api/v1/budgets", "", intruder)
	if parseJSON(t, rec)["total_items"].(float64) != 0 {
		t.Error("intruder should see no budgets")
	}

	rec = a.request("DELETE", "/api/v1/budgets/"+budgetID, "", owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = a.request("GET", "/api/v1/budgets/"+budgetID, "", owner)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestTransactionFlow_Filters(t *testing.T) {
	a := setupApp(t)
	token, _ := a.registerUser(t, "tx@test.com")

	a.mustCreate(t, "/api/v1/transactions", `{"type":"expense","amount":"20","category":"food","date":"2024-01-05"}`, token, "transaction")
	a.mustCreate(t, "/api/v1/transactions", `{"type":"income","amount":"2000","category":"salary","date":"2024-01-25"}`, token, "transaction")
	a.mustCreate(t, "/api/v1/transactions",
		`{"type":"expense","amount":"9.99","category":"streaming","date":"2024-01-15","is_recurring":true,"recurrence_interval":"monthly"}`, token, "transaction")

	tests := []struct {
		query string
		want  float64
	}{
		{"", 3},
		{"type=expense", 2},
		{"category=SALARY", 1},
		{"min_amount=10&max_amount=100", 1},
		{"start_date=2024-01-10&end_date=2024-01-20", 1},
		{"is_recurring=true", 1},
	}
	for _, tc := range tests {
		rec := a.request("GET", "/api/v1/transactions?"+tc.query, "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d: %s", tc.query, rec.Code, rec.Body.String())
		}
		if got := parseJSON(t, rec)["total_items"].(float64); got != tc.want {
			t.Errorf("%q: expected %.0f items, got %.0f", tc.query, tc.want, got)
		}
	}

	rec := a.request("POST", "/api/v1/transactions",
		`{"type":"expense","amount":"5","category":"gym","is_recurring":true}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for recurring without interval, got %d", rec.Code)
	}
}

func TestPipeline_EvaluateUser(t *testing.T) {
	a := setupApp(t)
	token, userID := a.registerUser(t, "pipeline@test.com")
	a.mustCreate(t, "/api/v1/budgets",
		`{"category":"food","limit":"10","start_date":"2024-01-01","end_date":"2024-01-31"}`, token, "budget")
	a.mustCreate(t, "/api/v1/transactions",
		`{"type":"expense","amount":"12","category":"food","date":"2024-01-02"}`, token, "transaction")

	path := "/api/v1/pipeline/users/" + userID + "/budget-evaluations"

	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, path, http.NoBody)
	req.Header.Set("X-API-Key", pipelineKey)
	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	status := parseJSON(t, rec)["statuses"].([]interface{})[0].(map[string]interface{})
	if status["status"] != "exceeded" {
		t.Errorf("expected exceeded, got %v", status["status"])
	}
	if len(a.Notifier.Sent()) != 1 {
		t.Errorf("expected one notification, got %d", len(a.Notifier.Sent()))
	}
}
