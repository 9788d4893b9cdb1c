// Package optimizer turns a SolveRequest into a constraint model, runs the
// solver, and materializes the requested solution. Each solve is a fresh,
// stateless transformation: nothing survives between calls and concurrent
// solves need no coordination.
package optimizer

import (
	"fmt"
	"time"

	"github.com/hmiyake/roster-optimizer-go/pkg/models"
)

// ValidationError reports an input rejected before model assembly. Handlers
// map it to a 400; anything else coming out of Solve is an internal error.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// leaveSets is one staff member's normalized leave, disjoint by
// construction: a preference on a leave day has already been dropped.
type leaveSets struct {
	daysOff   map[string]bool
	paidLeave map[string]bool
	prefs     map[string]string
}

type weights struct {
	support       int
	compatibility int
	workload      int
	steering      int
}

// instance is the canonical model of one solve: reserved shifts injected,
// support staff appended, every reference resolved and validated.
type instance struct {
	staff       []models.StaffMember
	shiftLabels []string
	shiftHours  []int
	shiftIndex  map[string]int

	dates     []string
	dateIndex map[string]int

	required map[string]map[string]int
	strict   map[string]bool
	leave    map[string]leaveSets

	// compat maps staff name to the allowed label set; absent name means
	// unrestricted. Rest is implicitly allowed for everyone.
	compat map[string]map[string]bool

	useSupport   bool
	restIdx      int
	supportIdx   int // -1 when support mode is off
	supportStaff int // index into staff, -1 when support mode is off
	primaryIdx   int // -1 when no steering target

	weights      weights
	index        int
	maxSolutions int
	timeLimit    time.Duration
}

// normalLabels returns the non-Rest, non-Support shift labels in catalog
// order.
func (in *instance) normalLabels() []string {
	out := make([]string, 0, len(in.shiftLabels))
	for _, l := range in.shiftLabels {
		if l == models.RestLabel || l == models.SupportLabel {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (in *instance) allowed(name, label string) bool {
	if label == models.RestLabel {
		return true
	}
	set, ok := in.compat[name]
	if !ok {
		return true
	}
	return set[label]
}

const (
	defaultSupportHours = 8
	defaultMaxSolutions = 10
	maxMaxSolutions     = 100
	defaultTimeLimit    = 10 * time.Second
	maxTimeLimit        = 60 * time.Second
)

// normalize validates a request and shapes it into the canonical instance.
// All failures are ValidationErrors; nothing is silently coerced except the
// documented leave-over-preference precedence.
func normalize(req *models.SolveRequest) (*instance, error) {
	if len(req.Staff) == 0 {
		return nil, invalidf("at least one staff member is required")
	}
	if len(req.Shifts) == 0 {
		return nil, invalidf("at least one shift type is required")
	}
	if len(req.Dates) == 0 {
		return nil, invalidf("at least one date is required")
	}

	in := &instance{
		shiftIndex:   make(map[string]int),
		dateIndex:    make(map[string]int),
		required:     make(map[string]map[string]int),
		strict:       make(map[string]bool),
		leave:        make(map[string]leaveSets),
		compat:       make(map[string]map[string]bool),
		useSupport:   req.UseSupport,
		supportIdx:   -1,
		supportStaff: -1,
		primaryIdx:   -1,
	}

	// Dates: ordered, unique.
	for _, d := range req.Dates {
		if _, dup := in.dateIndex[d]; dup {
			return nil, invalidf("duplicate date %q", d)
		}
		in.dateIndex[d] = len(in.dates)
		in.dates = append(in.dates, d)
	}

	// Shift catalog plus reserved labels.
	for _, sh := range req.Shifts {
		if sh.Label == "" {
			return nil, invalidf("shift label must not be empty")
		}
		if sh.Label == models.RestLabel || sh.Label == models.SupportLabel || sh.Label == models.PaidLeaveLabel {
			return nil, invalidf("shift label %q is reserved", sh.Label)
		}
		if sh.Hours < 0 {
			return nil, invalidf("shift %q has negative hours", sh.Label)
		}
		if _, dup := in.shiftIndex[sh.Label]; dup {
			return nil, invalidf("duplicate shift label %q", sh.Label)
		}
		in.shiftIndex[sh.Label] = len(in.shiftLabels)
		in.shiftLabels = append(in.shiftLabels, sh.Label)
		in.shiftHours = append(in.shiftHours, sh.Hours)
	}
	in.restIdx = len(in.shiftLabels)
	in.shiftIndex[models.RestLabel] = in.restIdx
	in.shiftLabels = append(in.shiftLabels, models.RestLabel)
	in.shiftHours = append(in.shiftHours, 0)
	if req.UseSupport {
		hours := req.SupportHours
		if hours == 0 {
			hours = defaultSupportHours
		}
		if hours < 0 {
			return nil, invalidf("support hours must not be negative")
		}
		in.supportIdx = len(in.shiftLabels)
		in.shiftIndex[models.SupportLabel] = in.supportIdx
		in.shiftLabels = append(in.shiftLabels, models.SupportLabel)
		in.shiftHours = append(in.shiftHours, hours)
	}

	// Staff, plus the ephemeral support member.
	names := make(map[string]bool)
	for _, st := range req.Staff {
		if st.Name == "" {
			return nil, invalidf("staff name must not be empty")
		}
		if st.Name == models.SupportStaffName {
			return nil, invalidf("staff name %q is reserved", st.Name)
		}
		if names[st.Name] {
			return nil, invalidf("duplicate staff name %q", st.Name)
		}
		if st.DailyHours < 0 {
			return nil, invalidf("staff %q has negative daily hours", st.Name)
		}
		if st.TargetHours != nil && *st.TargetHours < 0 {
			return nil, invalidf("staff %q has negative target hours", st.Name)
		}
		names[st.Name] = true
		in.staff = append(in.staff, st)

		if st.CompatibleShifts != nil {
			set := make(map[string]bool, len(st.CompatibleShifts))
			for _, label := range st.CompatibleShifts {
				idx, known := in.shiftIndex[label]
				if !known || idx == in.supportIdx {
					return nil, invalidf("staff %q: unknown compatible shift %q", st.Name, label)
				}
				set[label] = true
			}
			in.compat[st.Name] = set
		}
	}
	if req.UseSupport {
		in.supportStaff = len(in.staff)
		in.staff = append(in.staff, models.StaffMember{Name: models.SupportStaffName})
		in.compat[models.SupportStaffName] = map[string]bool{
			models.SupportLabel: true,
			models.RestLabel:    true,
		}
	}

	// Requirement grid. Headcounts are bounded by the roster size including
	// the support member.
	maxHeadcount := len(in.staff)
	for date, row := range req.Required {
		if _, known := in.dateIndex[date]; !known {
			return nil, invalidf("requirement for date %q outside the date range", date)
		}
		for label, count := range row {
			idx, known := in.shiftIndex[label]
			if !known {
				return nil, invalidf("requirement for unknown shift %q on %s", label, date)
			}
			if idx == in.restIdx || idx == in.supportIdx {
				return nil, invalidf("requirement may not target reserved shift %q", label)
			}
			if count < 0 || count > maxHeadcount {
				return nil, invalidf("requirement %d for %s/%s outside [0,%d]", count, date, label, maxHeadcount)
			}
			if in.required[date] == nil {
				in.required[date] = make(map[string]int)
			}
			in.required[date][label] = count
		}
	}
	for date, strict := range req.StrictDays {
		if _, known := in.dateIndex[date]; !known {
			return nil, invalidf("strict flag for date %q outside the date range", date)
		}
		in.strict[date] = strict
	}

	// Leave requests. Requested-off and paid-leave must be disjoint; a
	// preference on a leave day is dropped in favor of the leave.
	for name, lr := range req.Leave {
		if !names[name] {
			return nil, invalidf("leave request for unknown staff %q", name)
		}
		ls := leaveSets{
			daysOff:   make(map[string]bool),
			paidLeave: make(map[string]bool),
			prefs:     make(map[string]string),
		}
		for _, d := range lr.DaysOff {
			if _, known := in.dateIndex[d]; !known {
				return nil, invalidf("staff %q: day off %q outside the date range", name, d)
			}
			ls.daysOff[d] = true
		}
		for _, d := range lr.PaidLeave {
			if _, known := in.dateIndex[d]; !known {
				return nil, invalidf("staff %q: paid leave %q outside the date range", name, d)
			}
			if ls.daysOff[d] {
				return nil, invalidf("staff %q: %s is both a day off and paid leave", name, d)
			}
			ls.paidLeave[d] = true
		}
		for d, label := range lr.ShiftPrefs {
			if _, known := in.dateIndex[d]; !known {
				return nil, invalidf("staff %q: shift preference on %q outside the date range", name, d)
			}
			idx, known := in.shiftIndex[label]
			if !known || idx == in.supportIdx {
				return nil, invalidf("staff %q: shift preference for unknown shift %q", name, label)
			}
			if ls.daysOff[d] || ls.paidLeave[d] {
				continue // leave wins over the preference
			}
			ls.prefs[d] = label
		}
		in.leave[name] = ls
	}

	// Primary shift for steering. An unset label falls back to "Day" when
	// the catalog has it.
	primary := req.PrimaryShift
	if primary == "" {
		primary = "Day"
	} else {
		idx, known := in.shiftIndex[primary]
		if !known || idx == in.restIdx || idx == in.supportIdx {
			return nil, invalidf("primary shift %q is not a regular shift", req.PrimaryShift)
		}
	}
	if idx, known := in.shiftIndex[primary]; known && idx != in.restIdx && idx != in.supportIdx {
		in.primaryIdx = idx
	}

	in.weights = weights{
		support:       intOr(req.Weights.Support, models.DefaultSupportWeight),
		compatibility: intOr(req.Weights.Compatibility, models.DefaultCompatibilityWeight),
		workload:      intOr(req.Weights.Workload, models.DefaultWorkloadWeight),
		steering:      intOr(req.Weights.Steering, models.DefaultSteeringWeight),
	}
	if in.weights.support < 0 || in.weights.compatibility < 0 || in.weights.workload < 0 {
		return nil, invalidf("penalty weights must not be negative")
	}

	if req.SolutionIndex < 0 {
		return nil, invalidf("solution index must not be negative")
	}
	in.index = req.SolutionIndex

	in.maxSolutions = req.MaxSolutions
	if in.maxSolutions == 0 {
		in.maxSolutions = defaultMaxSolutions
	}
	if in.maxSolutions < 1 || in.maxSolutions > maxMaxSolutions {
		return nil, invalidf("max solutions must be in [1,%d]", maxMaxSolutions)
	}

	switch limit := req.TimeLimitSeconds; {
	case limit == 0:
		in.timeLimit = defaultTimeLimit
	case limit < 0:
		return nil, invalidf("time limit must not be negative")
	default:
		in.timeLimit = time.Duration(limit * float64(time.Second))
		if in.timeLimit > maxTimeLimit {
			in.timeLimit = maxTimeLimit
		}
	}

	return in, nil
}

func intOr(p *int, def int) int {
	if p != nil {
		return *p
	}
	return def
}

// Validate runs request validation and normalization without solving.
func Validate(req *models.SolveRequest) error {
	_, err := normalize(req)
	return err
}
