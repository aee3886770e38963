package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
)

const reportTitle = "Agency Management Report"

// ReportService 把分析结果导出为 CSV / PDF
type ReportService struct {
	analytics *AnalyticsService
}

func NewReportService(analytics *AnalyticsService) *ReportService {
	return &ReportService{analytics: analytics}
}

// WriteProductivityCSV 每个 Intern 一行
func (s *ReportService) WriteProductivityCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.analytics.Productivity(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Intern Name", "Tasks Completed", "Tasks Pending"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Name, strconv.Itoa(r.Completed), strconv.Itoa(r.Pending)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryPDF 输出营收与产能两张表
func (s *ReportService) WriteSummaryPDF(ctx context.Context, w io.Writer) error {
	revenue, err := s.analytics.Revenue(ctx)
	if err != nil {
		return err
	}
	productivity, err := s.analytics.Productivity(ctx)
	if err != nil {
		return err
	}
	metrics, err := s.analytics.ProjectMetrics(ctx)
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(reportTitle, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, reportTitle, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Generated "+time.Now().UTC().Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
	}
	header := func(cols []string, widths []float64) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetFillColor(230, 230, 230)
		for i, c := range cols {
			pdf.CellFormat(widths[i], 8, c, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 11)
	}

	section("Revenue")
	widths := []float64{60, 60, 60}
	header([]string{"Actual", "Pending", "Projected"}, widths)
	for i, v := range []float64{revenue.Actual, revenue.Pending, revenue.Projected} {
		pdf.CellFormat(widths[i], 8, fmt.Sprintf("%.2f", v), "1", 0, "R", false, 0, "")
	}
	pdf.Ln(12)

	section("Projects")
	widths = []float64{45, 45, 45, 45}
	header([]string{"Total", "Completed", "In Progress", "Delayed"}, widths)
	for i, v := range []int{metrics.Total, metrics.Completed, metrics.InProgress, metrics.Delayed} {
		pdf.CellFormat(widths[i], 8, strconv.Itoa(v), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(12)

	section("Intern Productivity")
	widths = []float64{90, 45, 45}
	header([]string{"Intern Name", "Tasks Completed", "Tasks Pending"}, widths)
	for _, r := range productivity {
		pdf.CellFormat(widths[0], 8, r.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 8, strconv.Itoa(r.Completed), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[2], 8, strconv.Itoa(r.Pending), "1", 1, "C", false, 0, "")
	}

	return pdf.Output(w)
}
