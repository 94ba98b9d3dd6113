package report

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFInfo summarizes a rendered PDF report.
type PDFInfo struct {
	Pages      int
	Properties map[string]string
}

// InspectPDF reads back the page count and custom document properties of a
// PDF file.
func InspectPDF(path string) (PDFInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return PDFInfo{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := pdfcpu.Read(f, conf)
	if err != nil {
		return PDFInfo{}, fmt.Errorf("read pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return PDFInfo{}, fmt.Errorf("page count: %w", err)
	}

	if _, err := f.Seek(0, 0); err != nil {
		return PDFInfo{}, err
	}
	props, err := api.Properties(f, conf)
	if err != nil {
		return PDFInfo{}, fmt.Errorf("pdf properties: %w", err)
	}
	return PDFInfo{Pages: ctx.PageCount, Properties: props}, nil
}
