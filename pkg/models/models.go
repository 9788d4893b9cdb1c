package models

// Reserved shift labels. Rest always exists in a solve instance; Support
// exists only when support mode is enabled. PaidLeave is a display-only
// label, never a solver shift.
const (
	RestLabel      = "Rest"
	SupportLabel   = "Support"
	PaidLeaveLabel = "Paid Leave"
)

// SupportStaffName is the synthetic staff entry appended in support mode.
// It is a reserved name; requests may not use it for a regular staff member.
const SupportStaffName = "Support (temp)"

// StaffMember is one person on the roster.
type StaffMember struct {
	Name string `json:"name"`
	// DailyHours is the hours credited for one working day; paid-leave days
	// count at this rate.
	DailyHours int `json:"daily_hours"`
	// TargetHours is the monthly target. Nil means no target: no workload
	// penalty and no primary-shift steering for this member.
	TargetHours *int `json:"target_hours,omitempty"`
	// CompatibleShifts lists the shift labels this member works without
	// penalty. Nil means unrestricted. Rest is always implicitly compatible.
	CompatibleShifts []string `json:"compatible_shifts,omitempty"`
}

// ShiftType is a named shift with a fixed duration.
type ShiftType struct {
	Label string `json:"label"`
	Hours int    `json:"hours"`
}

// LeaveRequests holds one staff member's day requests. A date may appear in
// at most one of DaysOff and PaidLeave; a date that also appears in
// ShiftPrefs is resolved in favor of the leave set.
type LeaveRequests struct {
	DaysOff    []string          `json:"days_off,omitempty"`
	PaidLeave  []string          `json:"paid_leave,omitempty"`
	ShiftPrefs map[string]string `json:"shift_prefs,omitempty"` // date -> shift label
}

// Weights are the soft-constraint multipliers. Nil fields take the
// defaults below. Steering is typically negative: it is a bonus for
// assigning the primary shift to understaffed members.
type Weights struct {
	Support       *int `json:"support,omitempty"`
	Compatibility *int `json:"compatibility,omitempty"`
	Workload      *int `json:"workload,omitempty"`
	Steering      *int `json:"steering,omitempty"`
}

// Default objective weights.
const (
	DefaultSupportWeight       = 1000
	DefaultCompatibilityWeight = 10
	DefaultWorkloadWeight      = 100
	DefaultSteeringWeight      = -1
)

// SolveRequest is the full input for one scheduling solve. It is consumed
// atomically; the optimizer never reads state outside this value.
type SolveRequest struct {
	Staff  []StaffMember `json:"staff"`
	Shifts []ShiftType   `json:"shifts"`
	// Dates is the ordered day sequence of the target month, "2006-01-02".
	Dates []string `json:"dates"`
	// Required maps date -> shift label -> headcount.
	Required map[string]map[string]int `json:"required"`
	// StrictDays marks dates whose requirements must be met exactly.
	StrictDays map[string]bool `json:"strict_days,omitempty"`
	// Leave maps staff name -> leave requests.
	Leave map[string]LeaveRequests `json:"leave,omitempty"`

	UseSupport   bool `json:"use_support,omitempty"`
	SupportHours int  `json:"support_hours,omitempty"` // default 8

	// PrimaryShift is the label steered toward for understaffed members.
	// Empty defaults to "Day" when the catalog has it, otherwise no steering.
	PrimaryShift string `json:"primary_shift,omitempty"`

	Weights Weights `json:"weights"`

	SolutionIndex    int     `json:"solution_index,omitempty"`
	MaxSolutions     int     `json:"max_solutions,omitempty"`      // default 10
	TimeLimitSeconds float64 `json:"time_limit_seconds,omitempty"` // default 10
}

// SolveStatus classifies the outcome of a solve.
type SolveStatus string

const (
	// StatusOptimal: the enumeration was exhausted; the last solution found
	// is optimal.
	StatusOptimal SolveStatus = "optimal"
	// StatusFeasible: solutions were found but the search stopped at the
	// enumeration cap or the time limit.
	StatusFeasible SolveStatus = "feasible"
	// StatusInfeasible: no assignment satisfies the hard constraints.
	StatusInfeasible SolveStatus = "infeasible"
	// StatusExhausted: fewer solutions exist than the requested index.
	StatusExhausted SolveStatus = "exhausted"
	// StatusTimeLimit: the time budget elapsed before any solution was found.
	StatusTimeLimit SolveStatus = "time_limit"
)

// Schedule is one materialized assignment.
type Schedule struct {
	// Assignments maps staff name -> date -> displayed shift label.
	// Paid-leave days display PaidLeaveLabel.
	Assignments map[string]map[string]string `json:"assignments"`
	// TotalHours maps staff name -> worked hours, with paid-leave days
	// counted at the member's daily rate.
	TotalHours map[string]int `json:"total_hours"`
}

// SolveResult is the typed outcome of a solve. Schedule is set only for
// StatusOptimal and StatusFeasible.
type SolveResult struct {
	Status        SolveStatus `json:"status"`
	Schedule      *Schedule   `json:"schedule,omitempty"`
	SolutionIndex int         `json:"solution_index"`
	FoundCount    int         `json:"found_count"`
}
