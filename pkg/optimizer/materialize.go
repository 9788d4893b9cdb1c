package optimizer

import (
	"github.com/hmiyake/roster-optimizer-go/pkg/cpsolver"
	"github.com/hmiyake/roster-optimizer-go/pkg/models"
)

// materialize converts one solver assignment into the displayed schedule.
// Paid-leave days display as Paid Leave over the underlying Rest variable
// and count at the member's daily rate. The support member appears only
// when it actually worked Support at least once; it never carries target
// statistics.
func materialize(in *instance, comp *compiled, sol *cpsolver.Solution) *models.Schedule {
	assignments := make(map[string]map[string]string, len(in.staff))
	totals := make(map[string]int, len(in.staff))

	for s, st := range in.staff {
		if s == in.supportStaff && !supportUsed(in, comp, sol) {
			continue
		}
		ls := in.leave[st.Name]
		row := make(map[string]string, len(in.dates))
		total := 0
		for d, date := range in.dates {
			if ls.paidLeave[date] {
				row[date] = models.PaidLeaveLabel
				total += st.DailyHours
				continue
			}
			for sh, label := range in.shiftLabels {
				if sol.BoolValue(comp.x[s][d][sh]) {
					row[date] = label
					total += in.shiftHours[sh]
					break
				}
			}
		}
		assignments[st.Name] = row
		totals[st.Name] = total
	}

	return &models.Schedule{Assignments: assignments, TotalHours: totals}
}

func supportUsed(in *instance, comp *compiled, sol *cpsolver.Solution) bool {
	if in.supportStaff < 0 {
		return false
	}
	for d := range in.dates {
		if sol.BoolValue(comp.x[in.supportStaff][d][in.supportIdx]) {
			return true
		}
	}
	return false
}
