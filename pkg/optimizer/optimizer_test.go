package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmiyake/roster-optimizer-go/pkg/models"
)

// coverageRequest asks for two Day workers out of three staff over five days.
func coverageRequest(strict bool) *models.SolveRequest {
	dates := []string{"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-04", "2024-06-05"}
	required := make(map[string]map[string]int, len(dates))
	strictDays := make(map[string]bool, len(dates))
	for _, d := range dates {
		required[d] = map[string]int{"Day": 2}
		strictDays[d] = strict
	}
	return &models.SolveRequest{
		Staff: []models.StaffMember{
			{Name: "Asha", DailyHours: 8},
			{Name: "Ben", DailyHours: 8},
			{Name: "Chika", DailyHours: 8},
		},
		Shifts:     []models.ShiftType{{Label: "Day", Hours: 8}},
		Dates:      dates,
		Required:   required,
		StrictDays: strictDays,
	}
}

// lastSolution re-solves with the index of the final, best entry in the
// enumeration, so assertions about the optimum do not depend on what the
// first solution found happens to look like.
func lastSolution(t *testing.T, req *models.SolveRequest) *models.SolveResult {
	t.Helper()
	first, err := Solve(req)
	require.NoError(t, err)
	require.Contains(t, []models.SolveStatus{models.StatusOptimal, models.StatusFeasible}, first.Status)
	require.GreaterOrEqual(t, first.FoundCount, 1)

	paged := *req
	paged.SolutionIndex = first.FoundCount - 1
	res, err := Solve(&paged)
	require.NoError(t, err)
	require.NotNil(t, res.Schedule)
	return res
}

func TestSolve_StrictCoverageIsExact(t *testing.T) {
	res, err := Solve(coverageRequest(true))
	require.NoError(t, err)
	require.Equal(t, models.StatusOptimal, res.Status)
	require.NotNil(t, res.Schedule)

	sum := 0
	for _, name := range []string{"Asha", "Ben", "Chika"} {
		total := res.Schedule.TotalHours[name]
		assert.GreaterOrEqual(t, total, 0)
		assert.LessOrEqual(t, total, 40)
		sum += total
	}
	assert.Equal(t, 80, sum, "exactly two workers per day over five days")

	for _, date := range []string{"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-04", "2024-06-05"} {
		working, resting := 0, 0
		for _, name := range []string{"Asha", "Ben", "Chika"} {
			switch res.Schedule.Assignments[name][date] {
			case "Day":
				working++
			case models.RestLabel:
				resting++
			default:
				t.Fatalf("unexpected label %q", res.Schedule.Assignments[name][date])
			}
		}
		assert.Equal(t, 2, working, "date %s", date)
		assert.Equal(t, 1, resting, "date %s", date)
	}
}

func TestSolve_NonStrictCoverageIsAtLeast(t *testing.T) {
	res, err := Solve(coverageRequest(false))
	require.NoError(t, err)
	require.Equal(t, models.StatusOptimal, res.Status)
	require.NotNil(t, res.Schedule)

	for _, date := range []string{"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-04", "2024-06-05"} {
		working := 0
		for _, name := range []string{"Asha", "Ben", "Chika"} {
			if res.Schedule.Assignments[name][date] == "Day" {
				working++
			}
		}
		assert.GreaterOrEqual(t, working, 2, "date %s", date)
	}
}

func TestSolve_DayOffAgainstCoverageIsInfeasible(t *testing.T) {
	req := &models.SolveRequest{
		Staff:  []models.StaffMember{{Name: "Asha", DailyHours: 8}},
		Shifts: []models.ShiftType{{Label: "Day", Hours: 8}},
		Dates:  []string{"2024-06-01", "2024-06-02", "2024-06-03"},
		Required: map[string]map[string]int{
			"2024-06-01": {"Day": 1},
			"2024-06-02": {"Day": 1},
			"2024-06-03": {"Day": 1},
		},
		Leave: map[string]models.LeaveRequests{
			"Asha": {DaysOff: []string{"2024-06-02"}},
		},
	}

	res, err := Solve(req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInfeasible, res.Status)
	assert.Nil(t, res.Schedule)
}

func TestSolve_PaidLeaveDisplaysAndCountsHours(t *testing.T) {
	req := &models.SolveRequest{
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

	res, err := Solve(req)
	require.NoError(t, err)
	require.Equal(t, models.StatusOptimal, res.Status)
	require.NotNil(t, res.Schedule)

	row := res.Schedule.Assignments["Asha"]
	assert.Equal(t, "Day", row["2024-06-01"])
	assert.Equal(t, models.PaidLeaveLabel, row["2024-06-02"])
	assert.Equal(t, "Day", row["2024-06-03"])
	assert.Equal(t, 24, res.Schedule.TotalHours["Asha"], "paid leave counts at the daily rate")
}

func TestSolve_SupportCoversShortfall(t *testing.T) {
	req := &models.SolveRequest{
		Staff: []models.StaffMember{
			{Name: "Asha", DailyHours: 8},
			{Name: "Ben", DailyHours: 8},
		},
		Shifts: []models.ShiftType{{Label: "Day", Hours: 8}},
		Dates:  []string{"2024-06-01", "2024-06-02"},
		Required: map[string]map[string]int{
			"2024-06-01": {"Day": 3},
			"2024-06-02": {"Day": 3},
		},
		UseSupport: true,
	}

	res, err := Solve(req)
	require.NoError(t, err)
	require.Equal(t, models.StatusOptimal, res.Status)
	require.NotNil(t, res.Schedule)

	support := res.Schedule.Assignments[models.SupportStaffName]
	require.NotNil(t, support, "support member appears when it works")
	assert.Equal(t, models.SupportLabel, support["2024-06-01"])
	assert.Equal(t, models.SupportLabel, support["2024-06-02"])
	assert.Equal(t, 16, res.Schedule.TotalHours[models.SupportStaffName])
	for _, name := range []string{"Asha", "Ben"} {
		assert.Equal(t, "Day", res.Schedule.Assignments[name]["2024-06-01"])
		assert.Equal(t, "Day", res.Schedule.Assignments[name]["2024-06-02"])
	}
}

func TestSolve_SupportStaysHomeWhenCoverable(t *testing.T) {
	req := &models.SolveRequest{
		Staff: []models.StaffMember{
			{Name: "Asha", DailyHours: 8},
			{Name: "Ben", DailyHours: 8},
		},
		Shifts: []models.ShiftType{{Label: "Day", Hours: 8}},
		Dates:  []string{"2024-06-01", "2024-06-02"},
		Required: map[string]map[string]int{
			"2024-06-01": {"Day": 1},
			"2024-06-02": {"Day": 1},
		},
		UseSupport: true,
	}

	res := lastSolution(t, req)
	assert.NotContains(t, res.Schedule.Assignments, models.SupportStaffName,
		"the support penalty keeps the support member out when regulars can cover")
}

func TestSolve_SevenDayWindowForcesRest(t *testing.T) {
	dates := []string{
		"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-04",
		"2024-06-05", "2024-06-06", "2024-06-07",
	}
	required := make(map[string]map[string]int, len(dates))
	for _, d := range dates {
		required[d] = map[string]int{"Day": 1}
	}
	req := &models.SolveRequest{
		Staff:    []models.StaffMember{{Name: "Asha", DailyHours: 8}},
		Shifts:   []models.ShiftType{{Label: "Day", Hours: 8}},
		Dates:    dates,
		Required: required,
	}

	res, err := Solve(req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInfeasible, res.Status,
		"a single member cannot work seven consecutive days")
}

func TestSolve_PreferenceForcesShift(t *testing.T) {
	req := &models.SolveRequest{
		Staff: []models.StaffMember{
			{Name: "Asha", DailyHours: 8},
			{Name: "Ben", DailyHours: 8},
		},
		Shifts: []models.ShiftType{
			{Label: "Day", Hours: 8},
			{Label: "Night", Hours: 8},
		},
		Dates: []string{"2024-06-01", "2024-06-02"},
		Required: map[string]map[string]int{
			"2024-06-01": {"Day": 1},
			"2024-06-02": {"Day": 1, "Night": 1},
		},
		Leave: map[string]models.LeaveRequests{
			"Asha": {ShiftPrefs: map[string]string{"2024-06-02": "Night"}},
		},
	}

	res, err := Solve(req)
	require.NoError(t, err)
	require.Equal(t, models.StatusOptimal, res.Status)
	require.NotNil(t, res.Schedule)
	assert.Equal(t, "Night", res.Schedule.Assignments["Asha"]["2024-06-02"])
	assert.Equal(t, "Day", res.Schedule.Assignments["Ben"]["2024-06-02"])
}

func TestSolve_IncompatibleStaffStillSchedulable(t *testing.T) {
	req := &models.SolveRequest{
		Staff: []models.StaffMember{
			{Name: "Asha", DailyHours: 8, CompatibleShifts: []string{}},
		},
		Shifts: []models.ShiftType{{Label: "Day", Hours: 8}},
		Dates:  []string{"2024-06-01", "2024-06-02"},
		Required: map[string]map[string]int{
			"2024-06-01": {"Day": 1},
			"2024-06-02": {"Day": 1},
		},
	}

	res, err := Solve(req)
	require.NoError(t, err)
	require.Equal(t, models.StatusOptimal, res.Status, "compatibility is soft, never blocking")
	assert.Equal(t, "Day", res.Schedule.Assignments["Asha"]["2024-06-01"])
}

func TestSolve_WorkloadTargetsDriveHours(t *testing.T) {
	req := &models.SolveRequest{
		Staff: []models.StaffMember{
			{Name: "Asha", DailyHours: 8, TargetHours: intp(16)},
			{Name: "Ben", DailyHours: 8, TargetHours: intp(0)},
		},
		Shifts: []models.ShiftType{{Label: "Day", Hours: 8}},
		Dates:  []string{"2024-06-01", "2024-06-02"},
		Required: map[string]map[string]int{
			"2024-06-01": {"Day": 1},
			"2024-06-02": {"Day": 1},
		},
	}

	res := lastSolution(t, req)
	assert.Equal(t, 16, res.Schedule.TotalHours["Asha"])
	assert.Equal(t, 0, res.Schedule.TotalHours["Ben"])
}

func TestSolve_ExhaustedWhenIndexBeyondEnumeration(t *testing.T) {
	req := coverageRequest(true)
	req.SolutionIndex = 50

	res, err := Solve(req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExhausted, res.Status)
	assert.Nil(t, res.Schedule)
	assert.GreaterOrEqual(t, res.FoundCount, 1)
	assert.Less(t, res.FoundCount, 50)
}

func TestSolve_Deterministic(t *testing.T) {
	r1, err := Solve(coverageRequest(true))
	require.NoError(t, err)
	r2, err := Solve(coverageRequest(true))
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestSolve_InvalidInputIsValidationError(t *testing.T) {
	req := coverageRequest(true)
	req.Staff = append(req.Staff, models.StaffMember{Name: "Asha", DailyHours: 8})

	res, err := Solve(req)
	assert.Nil(t, res)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
