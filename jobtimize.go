// `jobtimize` -- draw the job occupancy of a cluster as a timeline chart.
//
// Queries the batch scheduler for the set of scheduled and running jobs and
// renders one rectangle per allocation on a canvas with hours along the x
// axis and node index along the y axis, then writes the chart as a PNG
// (default jobs.png in the current directory).  The intended reader is an
// operator eyeballing cluster state, or a user wondering how large a job
// will still get a fast turnaround.
//
// Usage:
//  jobtimize [-sched pbs|sonar] [-input file] [-nodes file] [-node-type s]
//            [-window hours] [-o file] [-v]
//
// where
//  -sched name
//    Which adapter supplies the job records.  "pbs" runs `qstat -f` and
//    `pbsnodes -aF json`; "sonar" reads sonar slurm-JSON job data from
//    -input (or stdin).  The default is pbs.
//
//  -input file
//    For testing: read the scheduler output from this file instead of
//    querying the live scheduler.
//
//  -nodes file
//    For testing: read the pbsnodes inventory from this file.
//
//  -node-type s
//    Only include jobs whose queue name contains s, and only inventory
//    nodes whose queue list contains s.
//
//  -window hours
//    Cap the time axis at this many hours; by default the extent is derived
//    from the latest bounded job end.
//
//  -o file
//    Where to write the image; "-" means stdout.  The file is written via a
//    temporary and a rename, so a failing run leaves no partial artifact.
//
// Defaults for the flags can be put in ~/.jobtimize, see common/inifile.go.
//
// All detected anomalies in the scheduler data (overlapping claims, jobs
// without end times, zero durations) are reported on stderr even when the
// render succeeds; a clean-looking chart that hid real irregularities would
// defeat the purpose of the tool.

package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/DaanVanVugt/jobtimize/chart"
	"github.com/DaanVanVugt/jobtimize/common"
	"github.com/DaanVanVugt/jobtimize/joblog"
	"github.com/DaanVanVugt/jobtimize/occupancy"
	"github.com/DaanVanVugt/jobtimize/qstat"
	"github.com/DaanVanVugt/jobtimize/sonarjobs"
	"github.com/DaanVanVugt/jobtimize/status"
)

const version = "0.1.0"

var (
	sched     = flag.String("sched", "", "Scheduler adapter, pbs or sonar (default pbs)")
	inputFile = flag.String("input", "", "For testing: read scheduler output from this file")
	nodesFile = flag.String("nodes", "", "For testing: read the node inventory from this file")
	nodeType  = flag.String("node-type", "", "Only include jobs whose queue name contains this string")
	window    = flag.String("window", "", "Cap the time axis at this many hours")
	outFile   = flag.String("o", "", "Output image file, - for stdout (default jobs.png)")
	verbose   = flag.Bool("v", false, "Verbose diagnostics")
	showVer   = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()
	if *showVer {
		fmt.Printf("jobtimize version(%s)\n", version)
		os.Exit(0)
	}
	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Unexpected argument %s, try `jobtimize -h`\n", flag.Arg(0))
		os.Exit(2)
	}
	if *verbose {
		status.Default().LowerLevelTo(status.LogLevelInfo)
	}

	common.ApplyDefault(sched, common.QueryScheduler)
	common.ApplyDefault(nodeType, common.QueryNodeType)
	common.ApplyDefault(outFile, common.OutputFile)
	common.ApplyDefault(window, common.OutputWindowHours)
	if *sched == "" {
		*sched = "pbs"
	}
	if *outFile == "" {
		*outFile = "jobs.png"
	}

	err := jobtimize()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func jobtimize() error {
	var windowHours float64
	if *window != "" {
		var err error
		windowHours, err = strconv.ParseFloat(*window, 64)
		if err != nil || windowHours <= 0 {
			return fmt.Errorf("Invalid -window %s", *window)
		}
	}

	records, inventory, err := collectRecords()
	if err != nil {
		return err
	}
	if *nodeType != "" {
		kept := records[:0]
		for _, r := range records {
			if strings.Contains(r.Queue, *nodeType) {
				kept = append(kept, r)
			}
		}
		records = kept
	}
	common.Log.Infof("%d job records, %d inventory nodes", len(records), len(inventory))

	jobs, nodeNames, err := joblog.Normalize(records, inventory)
	if err != nil {
		return err
	}
	cells, anomalies := occupancy.Resolve(jobs)

	// Report every anomaly whether or not the render succeeds below.
	for _, a := range anomalies {
		fmt.Fprintf(os.Stderr, "anomaly: %s\n", a.Describe(nodeNames))
	}

	// Inventory nodes occupy the first indexes in the canonical ordering.
	offline := make([]int, 0)
	for i, n := range inventory {
		if n.Offline {
			offline = append(offline, i)
		}
	}

	var buf bytes.Buffer
	err = chart.Render(cells, chart.Config{
		Title:      fmt.Sprintf("Job occupancy %s", time.Now().Format("2006-01-02 15:04")),
		TimeExtent: windowHours,
		NodeCount:  len(nodeNames),
		Offline:    offline,
	}, &buf)
	if err != nil {
		return err
	}
	common.Log.Infof("%d cells rendered, %d bytes of png", len(cells), buf.Len())

	if *outFile == "-" {
		_, err = os.Stdout.Write(buf.Bytes())
		return err
	}
	return writeFileAtomic(*outFile, buf.Bytes())
}

// Fetch the raw job records and, when the adapter has one, the node
// inventory.

func collectRecords() ([]joblog.JobRecord, []joblog.Node, error) {
	switch *sched {
	case "pbs":
		var records []joblog.JobRecord
		if *inputFile != "" {
			text, err := os.ReadFile(*inputFile)
			if err != nil {
				return nil, nil, err
			}
			records = qstat.ParseJobs(string(text))
		} else {
			var err error
			records, err = qstat.QueryJobs()
			if err != nil {
				return nil, nil, err
			}
		}
		var inventory []joblog.Node
		if *nodesFile != "" {
			data, err := os.ReadFile(*nodesFile)
			if err != nil {
				return nil, nil, err
			}
			inventory, err = qstat.ParseNodes(data, *nodeType)
			if err != nil {
				return nil, nil, err
			}
		} else if *inputFile == "" {
			var err error
			inventory, err = qstat.QueryNodes(*nodeType)
			if err != nil {
				return nil, nil, err
			}
		}
		return records, inventory, nil
	case "sonar":
		var input io.Reader = os.Stdin
		if *inputFile != "" && *inputFile != "-" {
			f, err := os.Open(*inputFile)
			if err != nil {
				return nil, nil, err
			}
			defer f.Close()
			input = f
		}
		records, softErrors, err := sonarjobs.ParseJobs(input)
		if err != nil {
			return nil, nil, err
		}
		if softErrors > 0 {
			common.Log.Warningf("%d error envelopes in sonar data", softErrors)
		}
		return records, nil, nil
	default:
		return nil, nil, fmt.Errorf("Unknown scheduler %s, expected pbs or sonar", *sched)
	}
}

// Write via a temporary in the target directory and a rename, so a failure
// partway leaves no truncated image behind.

func writeFileAtomic(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, ".jobtimize-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}
