// Adapter for PBS: run `qstat -f` and `pbsnodes -aF json`, and turn their
// output into job records and a node inventory.
//
// `qstat -f` prints one block per job separated by blank lines:
//
//   Job Id: 1217385.dike11
//       Job_Name = runner_k42
//       Job_Owner = alice@dike11.example.org
//       job_state = R
//       queue = xfua_batch
//       Resource_List.walltime = 24:00:00
//       stime = Mon Aug 31 08:15:02 2026
//       exec_vnode = (d11-22:ncpus=36)+(d11-23:ncpus=36)
//
// Attribute values wrap onto continuation lines that start with a tab.  The
// parser is deliberately lenient, in the nature of scraping: attributes it
// does not recognize are ignored, timestamps that do not parse leave the
// field unknown, and a job without an allocation (held, or queued with no
// estimate) is skipped since there is nothing to draw for it.

package qstat

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/DaanVanVugt/jobtimize/joblog"
	"github.com/DaanVanVugt/jobtimize/nodenames"
	"github.com/DaanVanVugt/jobtimize/process"
	"github.com/DaanVanVugt/jobtimize/status"
)

var (
	varRe = regexp.MustCompile(`^    ([^ =]+) = (.*)$`)

	// PBS walltime is HH:MM:SS with unbounded hours; tolerate the textual
	// "D days, HH:MM:SS" form too.
	walltimeRe = regexp.MustCompile(`^(?:(\d+) days?, )?(\d+):(\d\d):(\d\d)$`)
)

// The timestamp format of stime and friends ("%c", no zone), interpreted in
// local time like the server prints it.
const timeLayout = "Mon Jan _2 15:04:05 2006"

// QueryJobs runs `qstat -f` and parses its output.

func QueryJobs() ([]joblog.JobRecord, error) {
	out, err := process.RunOutput("qstat", "-f")
	if err != nil {
		return nil, fmt.Errorf("Failed to query the scheduler\n%w", err)
	}
	return ParseJobs(out), nil
}

// ParseJobs parses `qstat -f` output into job records, one per job that has
// (or is estimated to get) a node allocation.

func ParseJobs(text string) []joblog.JobRecord {
	records := make([]joblog.JobRecord, 0)
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		if r, ok := parseJobBlock(block); ok {
			records = append(records, r)
		}
	}
	return records
}

func parseJobBlock(block string) (joblog.JobRecord, bool) {
	var r joblog.JobRecord
	lines := strings.Split(block, "\n")

	// The job id is on the first line, after the colon.
	if _, after, found := strings.Cut(lines[0], ":"); found {
		r.JobId = strings.TrimSpace(after)
	}
	if r.JobId == "" {
		return r, false
	}

	attrs := make(map[string]string)
	current := ""
	for _, line := range lines[1:] {
		if m := varRe.FindStringSubmatch(line); m != nil {
			current = m[1]
			attrs[current] = m[2]
		} else if current != "" && (strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "     ")) {
			// Folded continuation of the previous value.
			attrs[current] += strings.TrimSpace(line)
		} else {
			current = ""
		}
	}

	r.JobName = attrs["Job_Name"]
	r.Owner, _, _ = strings.Cut(attrs["Job_Owner"], "@")
	r.State = attrs["job_state"]
	r.Queue = attrs["queue"]

	// A held job occupies nothing.
	if r.State == "H" {
		return r, false
	}

	// Prefer the real allocation and start time over the scheduler's
	// estimates, but take the estimates for queued jobs.
	vnode := attrs["exec_vnode"]
	if vnode == "" {
		vnode = attrs["estimated.exec_vnode"]
	}
	r.Nodes = parseExecVnode(vnode)
	if len(r.Nodes) == 0 {
		return r, false
	}

	stime := attrs["stime"]
	if stime == "" {
		stime = attrs["estimated.start_time"]
	}
	if stime != "" {
		if t, err := time.ParseInLocation(timeLayout, stime, time.Local); err == nil {
			r.Start = t
		} else {
			status.Default().Debugf("job %s: unparseable start time %q", r.JobId, stime)
		}
	}
	if wall, ok := parseWalltime(attrs["Resource_List.walltime"]); ok && !r.Start.IsZero() {
		r.End = r.Start.Add(wall)
	}
	return r, true
}

// exec_vnode looks like "(d11-22:ncpus=36)+(d11-23:ncpus=36)"; one
// parenthesized chunk per allocation, the node name before the first colon.
// A node hosting several chunks appears several times, the normalizer
// deduplicates.

func parseExecVnode(s string) []string {
	if s == "" {
		return nil
	}
	nodes := make([]string, 0)
	for _, chunk := range strings.Split(s, "+") {
		name, _, _ := strings.Cut(chunk, ":")
		name = strings.Trim(name, "() \t")
		if name != "" {
			nodes = append(nodes, name)
		}
	}
	return nodes
}

func parseWalltime(s string) (time.Duration, bool) {
	m := walltimeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	days := 0
	if m[1] != "" {
		days, _ = strconv.Atoi(m[1])
	}
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	seconds, _ := strconv.Atoi(m[4])
	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second
	return d, true
}

// Node inventory via pbsnodes.

type pbsNode struct {
	State              string `json:"state"`
	ResourcesAvailable struct {
		Qlist string `json:"Qlist"`
	} `json:"resources_available"`
}

type pbsNodesDoc struct {
	Nodes map[string]pbsNode `json:"nodes"`
}

// QueryNodes runs `pbsnodes -aF json` and parses its output, keeping nodes
// whose queue list contains nodeType (all nodes when nodeType is empty).

func QueryNodes(nodeType string) ([]joblog.Node, error) {
	out, err := process.RunOutput("pbsnodes", "-aF", "json")
	if err != nil {
		return nil, fmt.Errorf("Failed to query the node inventory\n%w", err)
	}
	return ParseNodes([]byte(out), nodeType)
}

// ParseNodes parses `pbsnodes -aF json` output.  JSON object order is
// incidental, so the inventory is sorted by natural node name order to get
// the deterministic y-axis ordering the chart needs.

func ParseNodes(data []byte, nodeType string) ([]joblog.Node, error) {
	var doc pbsNodesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("Failed to parse node inventory\n%w", err)
	}
	nodes := make([]joblog.Node, 0, len(doc.Nodes))
	for name, n := range doc.Nodes {
		if nodeType != "" && !strings.Contains(n.ResourcesAvailable.Qlist, nodeType) {
			continue
		}
		nodes = append(nodes, joblog.Node{
			Name:    name,
			Offline: strings.Contains(n.State, "offline") || strings.Contains(n.State, "down"),
		})
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodenames.Compare(nodes[i].Name, nodes[j].Name) < 0
	})
	return nodes, nil
}
