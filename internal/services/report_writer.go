package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/shoplake/reconciler/domain"
)

// ReportWriter persists quality reports as dated artifacts: a formatted text
// report for humans and a JSON sidecar for tooling.
type ReportWriter struct {
	dir    string
	logger *zap.Logger
}

func NewReportWriter(dir string, logger *zap.Logger) *ReportWriter {
	if dir == "" {
		dir = "./reports"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWriter{
		dir:    dir,
		logger: logger,
	}
}

// Write renders and persists the report. Returns the text artifact path.
func (w *ReportWriter) Write(report *domain.QualityReport) (string, error) {
	if report == nil {
		return "", domain.ErrInvalidPayload
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", err
	}

	day := report.ReportDate.Format("2006-01-02")
	txtPath := filepath.Join(w.dir, fmt.Sprintf("quality_report_%s.txt", day))
	jsonPath := filepath.Join(w.dir, fmt.Sprintf("quality_report_%s.json", day))

	if err := os.WriteFile(txtPath, []byte(Render(report)), 0o644); err != nil {
		return "", err
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return txtPath, err
	}
	if err := os.WriteFile(jsonPath, payload, 0o644); err != nil {
		return txtPath, err
	}

	w.logger.Info("quality report written",
		zap.String("txt", txtPath),
		zap.String("json", jsonPath))
	return txtPath, nil
}

const reportRule = "------------------------------------------------------------"

// Render formats a report as the human-readable text artifact.
func Render(report *domain.QualityReport) string {
	var b strings.Builder

	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("============================================================")
	line("DATA QUALITY REPORT")
	line("============================================================")
	line("")
	line("Report date: %s", report.ReportDate.Format("2006-01-02 15:04:05 UTC"))
	line("Orders: %d | Payments: %d | Refunds: %d",
		report.TotalOrders, report.TotalPayments, report.TotalRefunds)
	line("")

	line("1. FINDINGS")
	line(reportRule)
	if len(report.Findings) == 0 {
		line("  no findings")
	}
	for _, f := range report.Findings {
		line("  %-36s %6d", f.Check, f.Count)
		if len(f.SampleKeys) > 0 {
			line("    sample: %s", strings.Join(f.SampleKeys, ", "))
		}
	}
	line("")

	line("2. REVENUE INTEGRITY")
	line(reportRule)
	line("  Gross Revenue:          $%.2f", report.GrossRevenue)
	line("  Total Refunded:         $%.2f", report.TotalRefunded)
	line("  Net Revenue:            $%.2f", report.NetRevenue)
	line("  Payment Success Rate:   %.2f%%", report.PaymentSuccessRate*100)
	line("  Refund Rate:            %.2f%%", report.RefundRate*100)
	line("  Avg Days To Payment:    %.2f", report.AvgDaysToPayment)
	line("")

	line("3. PAYMENT STATUS BREAKDOWN")
	line(reportRule)
	for _, status := range sortedKeys(report.StatusBreakdown) {
		line("  %-15s %5d", status, report.StatusBreakdown[status])
	}
	line("")

	line("4. VENDOR BREAKDOWN")
	line(reportRule)
	for _, vendor := range sortedKeys(report.VendorBreakdown) {
		line("  %-15s %5d orders", vendor, report.VendorBreakdown[vendor])
	}
	line("============================================================")

	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
