package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hmiyake/roster-optimizer-go/pkg/auth"
	"github.com/hmiyake/roster-optimizer-go/pkg/database"
	"github.com/hmiyake/roster-optimizer-go/pkg/models"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	t.Setenv("API_MASTER_SECRET", "test-master-secret")
	t.Setenv("DATA_PATH", filepath.Join(t.TempDir(), "test.db"))
	gin.SetMode(gin.TestMode)

	db := database.InitDB()
	h := &Handler{DB: db}

	r := gin.New()
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	api.POST("/solve", h.SolveSchedule)
	api.POST("/validate", h.ValidateInput)
	api.GET("/usage", h.GetMyUsage)
	return r, db
}

func doJSON(r *gin.Engine, method, path, key string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func solveRequest() *models.SolveRequest {
	return &models.SolveRequest{
		Staff:  []models.StaffMember{{Name: "Asha", DailyHours: 8}},
		Shifts: []models.ShiftType{{Label: "Day", Hours: 8}},
		Dates:  []string{"2024-06-01", "2024-06-02", "2024-06-03"},
		Required: map[string]map[string]int{
			"2024-06-01": {"Day": 1},
			"2024-06-03": {"Day": 1},
		},
		Leave: map[string]models.LeaveRequests{
			"Asha": {PaidLeave: []string{"2024-06-02"}},
		},
	}
}

func TestSolveEndpoint_ReturnsSchedule(t *testing.T) {
	r, db := newTestRouter(t)
	key := auth.GenerateHMACKey("tester")

	w := doJSON(r, http.MethodPost, "/api/solve", key, solveRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		SolveID  string `json:"solve_id"`
		Status   string `json:"status"`
		Schedule *struct {
			Assignments map[string]map[string]string `json:"assignments"`
			TotalHours  map[string]int               `json:"total_hours"`
		} `json:"schedule"`
		FoundCount int `json:"found_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.SolveID)
	assert.Equal(t, string(models.StatusOptimal), resp.Status)
	require.NotNil(t, resp.Schedule)
	assert.Equal(t, models.PaidLeaveLabel, resp.Schedule.Assignments["Asha"]["2024-06-02"])
	assert.Equal(t, 24, resp.Schedule.TotalHours["Asha"])
	assert.GreaterOrEqual(t, resp.FoundCount, 1)

	var usage []database.APIUsage
	require.NoError(t, db.Find(&usage).Error)
	require.Len(t, usage, 1)
	assert.Equal(t, 1, usage[0].RequestCount)
	assert.Equal(t, 1, usage[0].TotalStaff)
	assert.Equal(t, 3, usage[0].TotalDays)
	assert.Equal(t, 1, usage[0].TotalSolves)
}

func TestSolveEndpoint_RequiresValidKey(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/solve", "", solveRequest())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/api/solve", "tester.deadbeef", solveRequest())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSolveEndpoint_InvalidInputIs400(t *testing.T) {
	r, _ := newTestRouter(t)
	key := auth.GenerateHMACKey("tester")

	req := solveRequest()
	req.Staff = append(req.Staff, models.StaffMember{Name: "Asha", DailyHours: 8})

	w := doJSON(r, http.MethodPost, "/api/solve", key, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate staff name")
}

func TestSolveEndpoint_InfeasibleIsTypedNot500(t *testing.T) {
	r, _ := newTestRouter(t)
	key := auth.GenerateHMACKey("tester")

	req := solveRequest()
	req.Leave = map[string]models.LeaveRequests{
		"Asha": {DaysOff: []string{"2024-06-01"}},
	}

	w := doJSON(r, http.MethodPost, "/api/solve", key, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status   string          `json:"status"`
		Schedule json.RawMessage `json:"schedule"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(models.StatusInfeasible), resp.Status)
	assert.Equal(t, "null", strings.TrimSpace(string(resp.Schedule)))
}

func TestValidateEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	key := auth.GenerateHMACKey("tester")

	w := doJSON(r, http.MethodPost, "/api/validate", key, solveRequest())
	require.Equal(t, http.StatusOK, w.Code)
	var ok struct {
		Valid bool `json:"valid"`
		Stats struct {
			StaffCount int `json:"staff_count"`
			ShiftCount int `json:"shift_count"`
			DayCount   int `json:"day_count"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	assert.True(t, ok.Valid)
	assert.Equal(t, 1, ok.Stats.StaffCount)
	assert.Equal(t, 3, ok.Stats.DayCount)

	bad := solveRequest()
	bad.Shifts = append(bad.Shifts, models.ShiftType{Label: "Day", Hours: 6})
	w = doJSON(r, http.MethodPost, "/api/validate", key, bad)
	require.Equal(t, http.StatusOK, w.Code)
	var notOK struct {
		Valid bool   `json:"valid"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notOK))
	assert.False(t, notOK.Valid)
	assert.Contains(t, notOK.Error, "duplicate shift label")
}

func TestUsageEndpoint_AccumulatesAcrossSolves(t *testing.T) {
	r, _ := newTestRouter(t)
	key := auth.GenerateHMACKey("tester")

	for i := 0; i < 2; i++ {
		w := doJSON(r, http.MethodPost, "/api/solve", key, solveRequest())
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(r, http.MethodGet, "/api/usage", key, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		KeyName string `json:"key_name"`
		Totals  struct {
			Requests int `json:"requests"`
			Solves   int `json:"solves"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "tester", resp.KeyName)
	assert.Equal(t, 2, resp.Totals.Requests)
	assert.Equal(t, 2, resp.Totals.Solves)
}
