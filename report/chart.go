package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/zalepa/vacstat/stats"
)

// ErrNoData is returned when there are no years to render.
var ErrNoData = errors.New("report: no years to render")

const (
	imageWidth  = 12 * vg.Inch
	imageHeight = 5 * vg.Inch
)

var barWidth = vg.Points(8)

var (
	chartBlue   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	chartOrange = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// Charts builds the two grouped bar charts of a report: salary level by year
// and vacancy count by year, each comparing all postings with the profession.
func Charts(s stats.Statistics) (salary, count *plot.Plot, err error) {
	if s.Empty() {
		return nil, nil, ErrNoData
	}
	years := s.Years()
	salary, err = groupedBars("Salary level by year", years, s.Salary, s.ProfessionSalary, s.Profession)
	if err != nil {
		return nil, nil, fmt.Errorf("salary chart: %w", err)
	}
	count, err = groupedBars("Vacancies by year", years, s.Count, s.ProfessionCount, s.Profession)
	if err != nil {
		return nil, nil, fmt.Errorf("vacancy chart: %w", err)
	}
	return salary, count, nil
}

func groupedBars(title string, years []int, all, matched stats.YearSeries, profession string) (*plot.Plot, error) {
	allValues := make(plotter.Values, len(years))
	matchedValues := make(plotter.Values, len(years))
	labels := make([]string, len(years))
	for i, y := range years {
		allValues[i] = float64(all[y])
		matchedValues[i] = float64(matched[y])
		labels[i] = strconv.Itoa(y)
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.BackgroundColor = color.White

	allBars, err := plotter.NewBarChart(allValues, barWidth)
	if err != nil {
		return nil, err
	}
	allBars.Color = chartBlue
	allBars.LineStyle.Width = 0
	allBars.Offset = -barWidth / 2

	matchedBars, err := plotter.NewBarChart(matchedValues, barWidth)
	if err != nil {
		return nil, err
	}
	matchedBars.Color = chartOrange
	matchedBars.LineStyle.Width = 0
	matchedBars.Offset = barWidth / 2

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	p.Add(grid, allBars, matchedBars)

	p.Legend.Add("All vacancies", allBars)
	p.Legend.Add(pdfSafe(profession), matchedBars)
	p.Legend.Top = true
	p.Legend.Left = true

	p.NominalX(labels...)
	if len(years) > 12 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
	p.Y.Min = 0
	p.Y.Tick.Marker = numTicks{}
	return p, nil
}

type numTicks struct{}

func (numTicks) Ticks(min, max float64) []plot.Tick {
	t := plot.DefaultTicks{}
	ticks := t.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = formatCompact(ticks[i].Value)
		}
	}
	return ticks
}

// drawCharts lays both charts out side by side (cols 2) or stacked (cols 1)
// on dc.
func drawCharts(dc draw.Canvas, salary, count *plot.Plot, cols int) {
	rows := 2 / cols
	grid := [][]*plot.Plot{{salary, count}}
	if cols == 1 {
		grid = [][]*plot.Plot{{salary}, {count}}
	}
	tiles := draw.Tiles{
		Rows: rows,
		Cols: cols,
		PadX: vg.Points(12),
		PadY: vg.Points(12),
	}
	canvases := plot.Align(grid, tiles, dc)
	for r := range grid {
		for c := range grid[r] {
			grid[r][c].Draw(canvases[r][c])
		}
	}
}

// WritePNG renders both charts side by side as a PNG image.
func WritePNG(w io.Writer, s stats.Statistics) error {
	salary, count, err := Charts(s)
	if err != nil {
		return err
	}
	img := vgimg.New(imageWidth, imageHeight)
	dc := draw.New(img)
	drawCharts(draw.Crop(dc, vg.Points(8), -vg.Points(8), vg.Points(8), -vg.Points(8)), salary, count, 2)
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SavePNG writes the chart image to path.
func SavePNG(path string, s stats.Statistics) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePNG(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
