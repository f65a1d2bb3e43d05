// Rendering of occupancy cells as a PNG timeline: x axis is hours, y axis is
// node index with 0 at the bottom, one filled rectangle per contiguous run of
// nodes held by a job over one interval.  Colors are a pure function of the
// job id so re-renders are visually stable and the same job is recognizable
// across nodes.  Flagged cells get a heavy dashed red outline instead of
// being blended in with the healthy ones.
//
// The renderer writes image bytes to the sink it is given and does no path
// resolution; where the bytes go is the caller's policy.

package chart

import (
	"hash/fnv"
	"image/color"
	"io"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/DaanVanVugt/jobtimize/occupancy"
)

// Returned when there are no cells to draw; a blank artifact would be
// misleading, so none is produced.

type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "no occupancy cells to draw"
}

type Config struct {
	Title string

	// Upper bound of the x axis in hours; derived from the cells when zero.
	TimeExtent float64

	// Number of nodes on the y axis; derived from the cells when zero.
	NodeCount int

	// Node indexes shaded grey across the whole window.
	Offline []int

	// Canvas size in inches; 19.2 x 10.8 when zero.
	Width  float64
	Height float64
}

// The ColorBrewer qualitative "Paired" scheme, 12 classes.  Fixed table so a
// job's color depends on nothing but its id.

var jobPalette = []color.RGBA{
	{0xa6, 0xce, 0xe3, 0xff},
	{0x1f, 0x78, 0xb4, 0xff},
	{0xb2, 0xdf, 0x8a, 0xff},
	{0x33, 0xa0, 0x2c, 0xff},
	{0xfb, 0x9a, 0x99, 0xff},
	{0xe3, 0x1a, 0x1c, 0xff},
	{0xfd, 0xbf, 0x6f, 0xff},
	{0xff, 0x7f, 0x00, 0xff},
	{0xca, 0xb2, 0xd6, 0xff},
	{0x6a, 0x3d, 0x9a, 0xff},
	{0xff, 0xff, 0x99, 0xff},
	{0xb1, 0x59, 0x28, 0xff},
}

var offlineGrey = color.RGBA{0xbb, 0xbb, 0xbb, 0xff}

func jobColor(jobId string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(jobId))
	return jobPalette[h.Sum32()%uint32(len(jobPalette))]
}

// A rectangle covering a contiguous run of node indexes for one job over one
// interval, drawn as a unit and labeled once.

type run struct {
	jobId     string
	label     string
	firstNode int
	lastNode  int
	start     float64
	duration  float64
	flagged   bool
}

// Merge cells of the same job with identical intervals and consecutive node
// indexes, so large allocations become one rectangle with one centered label
// (and far fewer draw calls).

func collectRuns(cells []occupancy.Cell) []run {
	sorted := make([]occupancy.Cell, len(cells))
	copy(sorted, cells)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.JobId != b.JobId {
			return a.JobId < b.JobId
		}
		if a.StartHour != b.StartHour {
			return a.StartHour < b.StartHour
		}
		return a.NodeIndex < b.NodeIndex
	})

	runs := make([]run, 0, len(sorted))
	for _, c := range sorted {
		if n := len(runs); n > 0 {
			r := &runs[n-1]
			if r.jobId == c.JobId && r.start == c.StartHour && r.duration == c.DurationHours &&
				c.NodeIndex == r.lastNode+1 {
				r.lastNode = c.NodeIndex
				r.flagged = r.flagged || c.Flagged
				continue
			}
		}
		runs = append(runs, run{
			jobId:     c.JobId,
			label:     c.Label,
			firstNode: c.NodeIndex,
			lastNode:  c.NodeIndex,
			start:     c.StartHour,
			duration:  c.DurationHours,
			flagged:   c.Flagged,
		})
	}
	return runs
}

// Render draws the cells onto a time/node canvas and writes the result to
// out as PNG bytes.  Fails with EmptyInputError when cells is empty.

func Render(cells []occupancy.Cell, cfg Config, out io.Writer) error {
	if len(cells) == 0 {
		return &EmptyInputError{}
	}

	extent := cfg.TimeExtent
	nodeCount := cfg.NodeCount
	for _, c := range cells {
		if end := c.StartHour + c.DurationHours; cfg.TimeExtent <= 0 && end > extent {
			extent = end
		}
		if cfg.NodeCount <= 0 && c.NodeIndex+1 > nodeCount {
			nodeCount = c.NodeIndex + 1
		}
	}

	p := plot.New()
	p.Title.Text = cfg.Title
	p.X.Label.Text = "Hours"
	p.Y.Label.Text = "Node index"

	for _, ix := range cfg.Offline {
		band, err := rectangle(0, float64(ix), extent, float64(ix)+1)
		if err != nil {
			return err
		}
		band.Color = offlineGrey
		band.LineStyle.Width = 0
		p.Add(band)
	}

	runs := collectRuns(cells)
	labelPoints := make(plotter.XYs, 0, len(runs))
	labelTexts := make([]string, 0, len(runs))
	for _, r := range runs {
		rect, err := rectangle(r.start, float64(r.firstNode), r.start+r.duration, float64(r.lastNode)+1)
		if err != nil {
			return err
		}
		rect.Color = jobColor(r.jobId)
		if r.flagged {
			rect.LineStyle = draw.LineStyle{
				Color:  color.RGBA{0xcc, 0x00, 0x00, 0xff},
				Width:  vg.Points(2),
				Dashes: []vg.Length{vg.Points(4), vg.Points(2)},
			}
		} else {
			rect.LineStyle = draw.LineStyle{
				Color: color.Black,
				Width: vg.Points(0.5),
			}
		}
		p.Add(rect)

		// Center the label in the run, clamped into the window like the
		// rectangles themselves.
		cx := r.start + r.duration/2
		if cx < 0 {
			cx = 0
		} else if cx > extent {
			cx = extent
		}
		cy := (float64(r.firstNode) + float64(r.lastNode) + 1) / 2
		labelPoints = append(labelPoints, plotter.XY{X: cx, Y: cy})
		labelTexts = append(labelTexts, r.label)
	}

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelPoints, Labels: labelTexts})
	if err != nil {
		return err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Font.Size = vg.Points(6)
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YCenter
	}
	p.Add(labels)

	p.X.Min, p.X.Max = 0, extent
	p.Y.Min, p.Y.Max = 0, float64(nodeCount)

	width, height := cfg.Width, cfg.Height
	if width <= 0 {
		width = 19.2
	}
	if height <= 0 {
		height = 10.8
	}
	wt, err := p.WriterTo(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(out)
	return err
}

func rectangle(x0, y0, x1, y1 float64) (*plotter.Polygon, error) {
	return plotter.NewPolygon(plotter.XYs{
		{X: x0, Y: y0},
		{X: x1, Y: y0},
		{X: x1, Y: y1},
		{X: x0, Y: y1},
	})
}
