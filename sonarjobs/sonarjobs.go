// Adapter for Slurm clusters that already run sonar: read sonar's
// slurm-JSON job stream and turn each reported job into a job record.
//
// Sonar wraps job data in enveloped documents; ConsumeJSONJobs hands us one
// envelope at a time.  Envelopes that carry an error object instead of data
// are counted and skipped, in keeping with the scrape-and-degrade nature of
// the source.  Pending jobs have no node allocation yet and are skipped here,
// there is nothing to draw for them.

package sonarjobs

import (
	"fmt"
	"io"
	"time"

	"github.com/NordicHPC/sonar/util/formats/newfmt"

	"github.com/DaanVanVugt/jobtimize/joblog"
	"github.com/DaanVanVugt/jobtimize/nodenames"
	"github.com/DaanVanVugt/jobtimize/status"
)

// ParseJobs reads sonar slurm-JSON job data and returns the drawable job
// records plus the number of error envelopes skipped.

func ParseJobs(input io.Reader) ([]joblog.JobRecord, int, error) {
	records := make([]joblog.JobRecord, 0)
	softErrors := 0
	err := newfmt.ConsumeJSONJobs(input, false, func(r *newfmt.JobsEnvelope) {
		if r.Errors != nil {
			softErrors++
			return
		}
		for i := range r.Data.Attributes.SlurmJobs {
			job := &r.Data.Attributes.SlurmJobs[i]
			nodeList := make([]string, len(job.NodeList))
			for j, h := range job.NodeList {
				nodeList[j] = string(h)
			}
			nodes := expandNodeList(nodeList)
			if len(nodes) == 0 {
				continue
			}
			rec := joblog.JobRecord{
				JobId:   fmt.Sprint(job.JobID),
				JobName: job.JobName,
				Owner:   job.UserName,
				Queue:   job.Partition,
				State:   string(job.JobState),
				Nodes:   nodes,
			}
			if t, err := time.Parse(time.RFC3339, string(job.Start)); err == nil {
				rec.Start = t
			}
			if t, err := time.Parse(time.RFC3339, string(job.End)); err == nil {
				rec.End = t
			}
			records = append(records, rec)
		}
	})
	if err != nil {
		return nil, softErrors, fmt.Errorf("Failed to parse sonar job data\n%w", err)
	}
	return records, softErrors, nil
}

// The node list elements may themselves be in compressed range syntax
// ("c1-[1-3]"); expand them.  An element that does not parse as a pattern is
// kept literally, a bogus name is more useful on the chart than a dropped
// node.

func expandNodeList(list []string) []string {
	nodes := make([]string, 0, len(list))
	for _, elt := range list {
		expansions, err := nodenames.ExpandPattern(elt)
		if err != nil {
			status.Default().Debugf("unparseable node list element %q: %s", elt, err)
			nodes = append(nodes, elt)
			continue
		}
		nodes = append(nodes, expansions...)
	}
	return nodes
}
