package joblog

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNormalizeNodeOrdering(t *testing.T) {
	// First-seen across the batch; within a record, natural order.
	records := []JobRecord{
		{JobId: "1", Nodes: []string{"c10", "c2"}, Start: t0, End: t0.Add(time.Hour)},
		{JobId: "2", Nodes: []string{"a1"}, Start: t0, End: t0.Add(time.Hour)},
		{JobId: "3", Nodes: []string{"c2", "b7"}, Start: t0, End: t0.Add(time.Hour)},
	}
	jobs, nodes, err := Normalize(records, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 4 || nodes[0] != "c2" || nodes[1] != "c10" || nodes[2] != "a1" || nodes[3] != "b7" {
		t.Fatalf("Node order: %v", nodes)
	}
	if len(jobs) != 3 {
		t.Fatalf("Jobs: %v", jobs)
	}
	if len(jobs[0].NodeIndices) != 2 || jobs[0].NodeIndices[0] != 0 || jobs[0].NodeIndices[1] != 1 {
		t.Fatalf("Job 1 indices: %v", jobs[0].NodeIndices)
	}
	if len(jobs[2].NodeIndices) != 2 || jobs[2].NodeIndices[0] != 0 || jobs[2].NodeIndices[1] != 3 {
		t.Fatalf("Job 3 indices: %v", jobs[2].NodeIndices)
	}

	// Same input again yields the identical ordering.
	_, nodes2, err := Normalize(records, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range nodes {
		if nodes[i] != nodes2[i] {
			t.Fatalf("Not deterministic: %v vs %v", nodes, nodes2)
		}
	}
}

func TestNormalizeInventory(t *testing.T) {
	inventory := []Node{{Name: "n1"}, {Name: "n2", Offline: true}, {Name: "n3"}}
	records := []JobRecord{
		{JobId: "1", Nodes: []string{"n3", "n9"}, Start: t0, End: t0.Add(time.Hour)},
	}
	jobs, nodes, err := Normalize(records, inventory)
	if err != nil {
		t.Fatal(err)
	}
	// Inventory first, then first-seen extras.
	if len(nodes) != 4 || nodes[0] != "n1" || nodes[1] != "n2" || nodes[2] != "n3" || nodes[3] != "n9" {
		t.Fatalf("Node order: %v", nodes)
	}
	if len(jobs[0].NodeIndices) != 2 || jobs[0].NodeIndices[0] != 2 || jobs[0].NodeIndices[1] != 3 {
		t.Fatalf("Indices: %v", jobs[0].NodeIndices)
	}
}

func TestNormalizeTimes(t *testing.T) {
	records := []JobRecord{
		{JobId: "early", Nodes: []string{"n1"}, Start: t0, End: t0.Add(2 * time.Hour)},
		{JobId: "late", Nodes: []string{"n2"}, Start: t0.Add(90 * time.Minute), End: t0.Add(3 * time.Hour)},
		{JobId: "running", Nodes: []string{"n3"}, Start: t0.Add(time.Hour)},
		{JobId: "queued", Nodes: []string{"n4"}},
	}
	jobs, _, err := Normalize(records, nil)
	if err != nil {
		t.Fatal(err)
	}
	if jobs[0].StartHour != 0 || jobs[0].DurationHours != 2 {
		t.Fatalf("early: %+v", jobs[0])
	}
	if jobs[1].StartHour != 1.5 || jobs[1].DurationHours != 1.5 {
		t.Fatalf("late: %+v", jobs[1])
	}
	if jobs[2].StartHour != 1 || !jobs[2].OpenEnded {
		t.Fatalf("running: %+v", jobs[2])
	}
	if jobs[3].StartHour != 0 || !jobs[3].StartUnknown || !jobs[3].OpenEnded {
		t.Fatalf("queued: %+v", jobs[3])
	}
}

func TestNormalizeUnknownStartKnownEnd(t *testing.T) {
	records := []JobRecord{
		{JobId: "bounded", Nodes: []string{"n1"}, Start: t0, End: t0.Add(time.Hour)},
		{JobId: "estimated", Nodes: []string{"n2"}, End: t0.Add(4 * time.Hour)},
	}
	jobs, _, err := Normalize(records, nil)
	if err != nil {
		t.Fatal(err)
	}
	j := jobs[1]
	if !j.StartUnknown || j.OpenEnded || j.StartHour != 0 || j.DurationHours != 4 {
		t.Fatalf("estimated: %+v", j)
	}
}

func TestNormalizeDuplicateNodes(t *testing.T) {
	// One chunk per node entry; the same node must yield one index only.
	records := []JobRecord{
		{JobId: "1", Nodes: []string{"n1", "n1", "n2"}, Start: t0, End: t0.Add(time.Hour)},
	}
	jobs, nodes, err := Normalize(records, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("Nodes: %v", nodes)
	}
	if len(jobs[0].NodeIndices) != 2 {
		t.Fatalf("Indices: %v", jobs[0].NodeIndices)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	var malformed *MalformedRecordError

	_, _, err := Normalize([]JobRecord{{JobId: "77"}}, nil)
	if err == nil || !errors.As(err, &malformed) {
		t.Fatalf("Empty node set: %v", err)
	}
	if malformed.JobId != "77" {
		t.Fatalf("Wrong job id: %v", malformed)
	}

	_, _, err = Normalize([]JobRecord{
		{JobId: "78", Nodes: []string{"n1"}, Start: t0, End: t0.Add(-time.Minute)},
	}, nil)
	if err == nil || !errors.As(err, &malformed) {
		t.Fatalf("Inverted span: %v", err)
	}

	// Zero duration is legal here, the resolver deals with it.
	_, _, err = Normalize([]JobRecord{
		{JobId: "79", Nodes: []string{"n1"}, Start: t0, End: t0},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
}

func TestLabel(t *testing.T) {
	if s := label(JobRecord{JobId: "1", JobName: "les", Owner: "ec-x"}); s != "1: les (ec-x)" {
		t.Fatalf("Label #1: %s", s)
	}
	if s := label(JobRecord{JobId: "1", JobName: "les"}); s != "1: les" {
		t.Fatalf("Label #2: %s", s)
	}
	if s := label(JobRecord{JobId: "1"}); s != "1" {
		t.Fatalf("Label #3: %s", s)
	}
}
