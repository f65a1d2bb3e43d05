// Resolution of normalized jobs into per-node occupancy cells.
//
// Every (job, node) pair becomes one drawable cell with a finite, nonzero
// time interval.  Irregularities in the input - open-ended jobs, unknown
// start times, zero durations, contended nodes - are never hidden: the cells
// are emitted anyway, flagged, and reported as anomalies so the chart shows
// the scheduler's actual state, warts included.  Only numerically invalid
// records are excluded from the cell output, and those too end up in the
// anomaly report rather than aborting the run.

package occupancy

import (
	"fmt"
	"math"
	"sort"

	"github.com/DaanVanVugt/jobtimize/joblog"
)

// Minimum visible cell width in hours.  A zero-width rectangle is a usability
// defect, not a valid "no job" state.

const MinCellHours = 0.1

// One (job, node) drawing unit with a resolved time interval.

type Cell struct {
	NodeIndex     int
	JobId         string
	Label         string
	StartHour     float64
	DurationHours float64
	Flagged       bool
}

// A numerically invalid single record: excluded from rendering and reported,
// the run continues.

type AnomalousRecordError struct {
	JobId  string
	Reason string
}

func (e *AnomalousRecordError) Error() string {
	return fmt.Sprintf("anomalous record for job %s: %s", e.JobId, e.Reason)
}

type AnomalyKind int

const (
	AnomalyOverlap AnomalyKind = iota
	AnomalyOpenEnded
	AnomalyUnknownStart
	AnomalyZeroDuration
	AnomalyBadRecord
)

// A non-fatal irregularity in the input data.  NodeIndex is -1 when the
// anomaly is not specific to one node.  StartHour/EndHour delimit the
// contended interval for AnomalyOverlap.

type Anomaly struct {
	Kind      AnomalyKind
	JobIds    []string
	NodeIndex int
	StartHour float64
	EndHour   float64
	Err       error
}

func (a Anomaly) String() string {
	return a.Describe(nil)
}

// Describe renders the anomaly for the report, naming nodes by name when an
// ordering is supplied and by index otherwise.

func (a Anomaly) Describe(nodeNames []string) string {
	node := fmt.Sprintf("node %d", a.NodeIndex)
	if a.NodeIndex >= 0 && a.NodeIndex < len(nodeNames) {
		node = fmt.Sprintf("node %s", nodeNames[a.NodeIndex])
	}
	switch a.Kind {
	case AnomalyOverlap:
		return fmt.Sprintf("overlap: jobs %s and %s both claim %s during [%.2f,%.2f)",
			a.JobIds[0], a.JobIds[1], node, a.StartHour, a.EndHour)
	case AnomalyOpenEnded:
		return fmt.Sprintf("open-ended: job %s has no end time, drawn to the window end", a.JobIds[0])
	case AnomalyUnknownStart:
		return fmt.Sprintf("unknown start: job %s pinned to hour 0", a.JobIds[0])
	case AnomalyZeroDuration:
		return fmt.Sprintf("zero duration: job %s drawn with minimum width", a.JobIds[0])
	case AnomalyBadRecord:
		return fmt.Sprintf("excluded: %s", a.Err)
	default:
		return fmt.Sprintf("unknown anomaly for jobs %v", a.JobIds)
	}
}

// Resolve emits one cell per (job, node) pair with all intervals made finite
// and visible, plus the list of anomalies found on the way.  The observation
// window ends at the latest bounded job end; open-ended jobs are cut there,
// or drawn as a one-hour sliver when no bounded job exists to define a
// window.

func Resolve(jobs []joblog.NormalizedJob) ([]Cell, []Anomaly) {
	anomalies := make([]Anomaly, 0)
	valid := make([]bool, len(jobs))

	var windowEnd float64
	haveBounded := false
	for i, j := range jobs {
		if err := checkNumeric(&j); err != nil {
			anomalies = append(anomalies, Anomaly{
				Kind:      AnomalyBadRecord,
				JobIds:    []string{j.JobId},
				NodeIndex: -1,
				Err:       err,
			})
			continue
		}
		valid[i] = true
		if !j.OpenEnded {
			if end := j.StartHour + j.DurationHours; end > windowEnd {
				windowEnd = end
			}
			haveBounded = true
		}
	}

	cells := make([]Cell, 0, len(jobs))
	for i, j := range jobs {
		if !valid[i] {
			continue
		}
		start := j.StartHour
		dur := j.DurationHours
		flagged := false
		if j.StartUnknown {
			anomalies = append(anomalies, Anomaly{
				Kind: AnomalyUnknownStart, JobIds: []string{j.JobId}, NodeIndex: -1,
			})
			flagged = true
		}
		if j.OpenEnded {
			end := windowEnd
			if !haveBounded || end <= start {
				end = start + 1
			}
			dur = end - start
			anomalies = append(anomalies, Anomaly{
				Kind: AnomalyOpenEnded, JobIds: []string{j.JobId}, NodeIndex: -1,
			})
			flagged = true
		}
		if dur == 0 {
			dur = MinCellHours
			anomalies = append(anomalies, Anomaly{
				Kind: AnomalyZeroDuration, JobIds: []string{j.JobId}, NodeIndex: -1,
			})
			flagged = true
		}
		for _, ix := range j.NodeIndices {
			cells = append(cells, Cell{
				NodeIndex:     ix,
				JobId:         j.JobId,
				Label:         j.Label,
				StartHour:     start,
				DurationHours: dur,
				Flagged:       flagged,
			})
		}
	}

	anomalies = append(anomalies, findOverlaps(cells)...)
	return cells, anomalies
}

// Report exactly one anomaly per overlapping pair per shared node, and flag
// the cells involved.  Contested allocations are still rendered since hiding
// them would misrepresent the scheduler's state.

func findOverlaps(cells []Cell) []Anomaly {
	byNode := make(map[int][]int)
	for ix := range cells {
		byNode[cells[ix].NodeIndex] = append(byNode[cells[ix].NodeIndex], ix)
	}
	nodes := make([]int, 0, len(byNode))
	for n := range byNode {
		nodes = append(nodes, n)
	}
	sort.Ints(nodes)

	anomalies := make([]Anomaly, 0)
	for _, n := range nodes {
		ixs := byNode[n]
		sort.SliceStable(ixs, func(a, b int) bool {
			return cells[ixs[a]].StartHour < cells[ixs[b]].StartHour
		})
		for a := 0; a < len(ixs); a++ {
			ca := &cells[ixs[a]]
			endA := ca.StartHour + ca.DurationHours
			for b := a + 1; b < len(ixs); b++ {
				cb := &cells[ixs[b]]
				if cb.StartHour >= endA {
					break
				}
				ca.Flagged = true
				cb.Flagged = true
				anomalies = append(anomalies, Anomaly{
					Kind:      AnomalyOverlap,
					JobIds:    []string{ca.JobId, cb.JobId},
					NodeIndex: n,
					StartHour: cb.StartHour,
					EndHour:   math.Min(endA, cb.StartHour+cb.DurationHours),
				})
			}
		}
	}
	return anomalies
}

func checkNumeric(j *joblog.NormalizedJob) error {
	bad := func(reason string) error {
		return &AnomalousRecordError{j.JobId, reason}
	}
	if math.IsNaN(j.StartHour) || math.IsInf(j.StartHour, 0) {
		return bad("start is not a finite number")
	}
	if math.IsNaN(j.DurationHours) || math.IsInf(j.DurationHours, 0) {
		return bad("duration is not a finite number")
	}
	if j.StartHour < 0 {
		return bad("start precedes the time origin")
	}
	if j.DurationHours < 0 {
		return bad("negative duration")
	}
	return nil
}
