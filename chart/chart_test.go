package chart

import (
	"bytes"
	"errors"
	"testing"

	"github.com/DaanVanVugt/jobtimize/occupancy"
)

func TestRenderEmptyInput(t *testing.T) {
	var buf bytes.Buffer
	err := Render(nil, Config{}, &buf)
	var empty *EmptyInputError
	if err == nil || !errors.As(err, &empty) {
		t.Fatalf("Empty input: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("Wrote %d bytes for empty input", buf.Len())
	}
}

func TestRenderProducesPng(t *testing.T) {
	cells := []occupancy.Cell{
		{NodeIndex: 0, JobId: "1", Label: "1: a (x)", StartHour: 0, DurationHours: 2},
		{NodeIndex: 1, JobId: "1", Label: "1: a (x)", StartHour: 0, DurationHours: 2},
		{NodeIndex: 2, JobId: "2", Label: "2: b (y)", StartHour: 1, DurationHours: 1, Flagged: true},
	}
	var buf bytes.Buffer
	err := Render(cells, Config{Title: "test", Offline: []int{3}, NodeCount: 4, Width: 4, Height: 3}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	magic := []byte{0x89, 'P', 'N', 'G'}
	if buf.Len() < 8 || !bytes.Equal(buf.Bytes()[:4], magic) {
		t.Fatalf("Not a PNG, %d bytes", buf.Len())
	}
}

func TestCollectRuns(t *testing.T) {
	cells := []occupancy.Cell{
		{NodeIndex: 2, JobId: "1", StartHour: 0, DurationHours: 2},
		{NodeIndex: 0, JobId: "1", StartHour: 0, DurationHours: 2},
		{NodeIndex: 1, JobId: "1", StartHour: 0, DurationHours: 2},
		{NodeIndex: 4, JobId: "1", StartHour: 0, DurationHours: 2},
		{NodeIndex: 3, JobId: "2", StartHour: 0, DurationHours: 2},
	}
	runs := collectRuns(cells)
	if len(runs) != 3 {
		t.Fatalf("Runs: %+v", runs)
	}
	// Nodes 0-2 merge, node 4 stands alone, job 2 is separate.
	if runs[0].firstNode != 0 || runs[0].lastNode != 2 {
		t.Fatalf("Run 0: %+v", runs[0])
	}
	if runs[1].firstNode != 4 || runs[1].lastNode != 4 {
		t.Fatalf("Run 1: %+v", runs[1])
	}
	if runs[2].jobId != "2" {
		t.Fatalf("Run 2: %+v", runs[2])
	}
}

func TestCollectRunsDistinctIntervals(t *testing.T) {
	// Adjacent nodes with different intervals must not merge.
	cells := []occupancy.Cell{
		{NodeIndex: 0, JobId: "1", StartHour: 0, DurationHours: 2},
		{NodeIndex: 1, JobId: "1", StartHour: 1, DurationHours: 2},
	}
	runs := collectRuns(cells)
	if len(runs) != 2 {
		t.Fatalf("Runs: %+v", runs)
	}
}

func TestJobColorDeterministic(t *testing.T) {
	a := jobColor("123456.fram")
	b := jobColor("123456.fram")
	if a != b {
		t.Fatalf("Colors differ: %v %v", a, b)
	}
}
