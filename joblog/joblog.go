// Canonicalization of scheduler job records.
//
// An adapter (qstat, sonarjobs) hands us a batch of JobRecords, one per
// scheduled or running job, each naming the nodes the job holds and the time
// span it holds them for.  Timestamps may be missing: a queued job has no
// start time yet, a running job has no end time.  The output of Normalize is
// a list of NormalizedJobs with every node identifier resolved to a stable
// integer index and every timestamp reduced to hours relative to the earliest
// known start in the batch.
//
// The node index assignment is the canonical y-axis ordering for the chart
// and must not depend on incidental container ordering: inventory nodes are
// assigned first, in the order the adapter delivers them (adapters deliver a
// natural-sorted inventory), then nodes are assigned by first-seen order
// across the record batch, with the names within each record visited in
// natural order so that set-valued input normalizes identically every run.

package joblog

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/DaanVanVugt/jobtimize/nodenames"
)

// One scheduler-reported allocation of nodes over a time span.  A zero Start
// means the start time is unknown, a zero End means the job is still running
// or otherwise unbounded.  JobName, Owner, Queue and State are annotations
// carried through for labeling and filtering, the core does not interpret
// them.

type JobRecord struct {
	JobId   string
	JobName string
	Owner   string
	Queue   string
	State   string
	Nodes   []string
	Start   time.Time
	End     time.Time
}

// One known compute node, for pre-seeding the node ordering so that idle
// nodes still appear on the chart.

type Node struct {
	Name    string
	Offline bool
}

type NormalizedJob struct {
	JobId         string
	Label         string
	NodeIndices   []int
	StartHour     float64
	DurationHours float64
	OpenEnded     bool
	StartUnknown  bool
}

// A structurally invalid input record.  This is a contract violation by the
// adapter and aborts the whole run.

type MalformedRecordError struct {
	JobId  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record for job %s: %s", e.JobId, e.Reason)
}

// Normalize converts a batch of job records into normalized jobs plus the
// canonical node ordering (names indexed by node index).  It is a pure
// function of its input.  It fails with MalformedRecordError if any record
// has an empty node set or a fully-specified time span that ends before it
// starts.

func Normalize(records []JobRecord, inventory []Node) ([]NormalizedJob, []string, error) {
	for _, r := range records {
		if len(r.Nodes) == 0 {
			return nil, nil, &MalformedRecordError{r.JobId, "empty node set"}
		}
		if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
			return nil, nil, &MalformedRecordError{r.JobId, "end time precedes start time"}
		}
	}

	nodeIndex := make(map[string]int)
	nodeNames := make([]string, 0, len(inventory))
	intern := func(name string) int {
		if ix, found := nodeIndex[name]; found {
			return ix
		}
		ix := len(nodeNames)
		nodeIndex[name] = ix
		nodeNames = append(nodeNames, name)
		return ix
	}
	for _, n := range inventory {
		intern(n.Name)
	}

	// Earliest known start is the time origin.
	var minStart time.Time
	for _, r := range records {
		if !r.Start.IsZero() && (minStart.IsZero() || r.Start.Before(minStart)) {
			minStart = r.Start
		}
	}

	jobs := make([]NormalizedJob, 0, len(records))
	for _, r := range records {
		// Visit a record's nodes in natural order and drop duplicates: PBS
		// exec_vnode lists one entry per chunk and a node can host several
		// chunks of the same job.
		names := make([]string, 0, len(r.Nodes))
		seen := make(map[string]bool, len(r.Nodes))
		for _, n := range r.Nodes {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
		sort.Slice(names, func(i, j int) bool {
			return nodenames.Compare(names[i], names[j]) < 0
		})
		indices := make([]int, len(names))
		for i, n := range names {
			indices[i] = intern(n)
		}
		sort.Ints(indices)

		j := NormalizedJob{
			JobId:       r.JobId,
			Label:       label(r),
			NodeIndices: indices,
		}
		switch {
		case !r.Start.IsZero() && !r.End.IsZero():
			j.StartHour = r.Start.Sub(minStart).Hours()
			j.DurationHours = r.End.Sub(r.Start).Hours()
		case !r.Start.IsZero():
			j.StartHour = r.Start.Sub(minStart).Hours()
			j.OpenEnded = true
		case !r.End.IsZero() && !minStart.IsZero():
			// Queued with an estimated end only: pin to the origin and keep
			// whatever extent the end time gives us.
			j.StartUnknown = true
			j.DurationHours = math.Max(0, r.End.Sub(minStart).Hours())
		default:
			j.StartUnknown = true
			j.OpenEnded = true
		}
		jobs = append(jobs, j)
	}
	return jobs, nodeNames, nil
}

func label(r JobRecord) string {
	switch {
	case r.JobName != "" && r.Owner != "":
		return fmt.Sprintf("%s: %s (%s)", r.JobId, r.JobName, r.Owner)
	case r.JobName != "":
		return fmt.Sprintf("%s: %s", r.JobId, r.JobName)
	default:
		return r.JobId
	}
}
