package report

import (
	"fmt"
	"image/color"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/zalepa/vacstat/stats"
)

const (
	pageWidth  = 8.5 * vg.Inch
	pageHeight = 11 * vg.Inch
	pdfMargin  = 0.75 * vg.Inch

	tableRowHeight = 0.30 * vg.Inch
	yearColWidth   = 0.8 * vg.Inch
)

// Meta identifies the run a report was produced by. The fields are stored
// as custom PDF document properties.
type Meta struct {
	RunID   string
	Dataset string
}

func (m Meta) properties(profession string) map[string]string {
	props := map[string]string{"Profession": profession}
	if m.RunID != "" {
		props["RunID"] = m.RunID
	}
	if m.Dataset != "" {
		props["Dataset"] = m.Dataset
	}
	return props
}

// WritePDF renders a report with a chart page followed by the statistics
// table and stamps it with the run's document properties.
func WritePDF(path string, s stats.Statistics, meta Meta) error {
	salary, count, err := Charts(s)
	if err != nil {
		return err
	}

	c := vgpdf.New(pageWidth, pageHeight)
	title := pdfSafe("Salary statistics - " + s.Profession)
	drawChartPage(c, title, salary, count)
	drawTablePages(c, title, s)

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	defer os.Remove(tmp)

	conf := model.NewDefaultConfiguration()
	if err := api.AddPropertiesFile(tmp, path, meta.properties(s.Profession), conf); err != nil {
		return fmt.Errorf("pdf properties: %w", err)
	}
	return nil
}

func drawChartPage(c *vgpdf.Canvas, title string, salary, count *plot.Plot) {
	dc := draw.New(c)
	area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)

	top := area.Max.Y
	fillText(area, title, vg.Points(14), area.Min.X, top-vg.Points(14), color.Black)
	charts := area
	charts.Max.Y = top - 0.5*vg.Inch
	drawCharts(charts, salary, count, 1)
}

func drawTablePages(c *vgpdf.Canvas, title string, s stats.Statistics) {
	headers := Headers(pdfSafe(s.Profession))
	rows := s.Rows()

	usableW := pageWidth - 2*pdfMargin
	valueColWidth := (usableW - yearColWidth) / vg.Length(len(headers)-1)
	colX := func(area draw.Canvas, i int) vg.Length {
		if i == 0 {
			return area.Min.X
		}
		return area.Min.X + yearColWidth + vg.Length(i-1)*valueColWidth
	}

	idx := 0
	for page := 0; idx < len(rows); page++ {
		c.NextPage()
		dc := draw.New(c)
		area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)

		y := area.Max.Y - vg.Points(12)
		if page == 0 {
			fillText(area, title, vg.Points(14), area.Min.X, y, color.Black)
		} else {
			fillText(area, title+" (continued)", vg.Points(10), area.Min.X, y, color.Gray{Y: 100})
		}
		y -= 0.45 * vg.Inch

		for i, h := range headers {
			fillText(area, h, vg.Points(8), colX(area, i), y, color.Gray{Y: 80})
		}
		y -= vg.Points(6)
		strokeHLine(area, area.Min.X, area.Min.X+usableW, y, color.Gray{Y: 180})
		y -= vg.Points(4)

		for idx < len(rows) && y-tableRowHeight > area.Min.Y {
			r := rows[idx]
			idx++
			ty := y - tableRowHeight*0.65
			cells := []string{
				fmt.Sprint(r.Year),
				formatInt(r.Salary),
				formatInt(r.ProfessionSalary),
				formatInt(r.Count),
				formatInt(r.ProfessionCount),
			}
			for i, cell := range cells {
				fillText(area, cell, vg.Points(9), colX(area, i), ty, color.Black)
			}
			y -= tableRowHeight
		}
	}
}

func fillText(c draw.Canvas, txt string, size vg.Length, x, y vg.Length, clr color.Color) {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
	}
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: x, Y: y}, txt)
}

func strokeHLine(c draw.Canvas, x0, x1, y vg.Length, clr color.Color) {
	c.StrokeLine2(draw.LineStyle{
		Color: clr,
		Width: vg.Points(0.5),
	}, x0, y, x1, y)
}
