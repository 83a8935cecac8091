package results

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/lehigh-university-libraries/phieval/internal/eval/match"
	"github.com/lehigh-university-libraries/phieval/internal/eval/phi"
	"github.com/lehigh-university-libraries/phieval/internal/eval/severity"
)

// WriteText renders a run record in the report layout of its kind
func WriteText(w io.Writer, record *RunRecord) error {
	switch record.Config.Kind {
	case KindPHI:
		return WritePHIText(w, record.Config.SystemID, record.PHI)
	case KindSeverity:
		return WriteSeverityText(w, record.Severity)
	default:
		return fmt.Errorf("unsupported run kind: %q", record.Config.Kind)
	}
}

// WritePHIText renders a Track 1 report. Per-document detail is written
// when the report carries it.
func WritePHIText(w io.Writer, systemID string, r *phi.Report) error {
	title := "Report"
	if systemID != "" {
		title = fmt.Sprintf("Report (SYSTEM: %s)", systemID)
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	if r.Filter != nil {
		fmt.Fprintf(w, "Filter: %s\n", describeFilter(r))
	}
	fmt.Fprintf(w, "Documents: %d gold, %d system\n\n", r.GoldDocuments, r.SystemDocuments)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"SubSection", "Docs", "Measure", "Macro (SD)", "Micro"}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	fmt.Fprintln(tw, strings.Join([]string{"---", "---", "---", "---", "---"}, "\t"))

	for _, reg := range r.Regimes {
		if reg.Empty {
			fmt.Fprintf(tw, "%s\t0\tno annotations\t\t\n", reg.Name)
			continue
		}

		s := reg.Summary
		fmt.Fprintf(tw, "%s\t%d\tPrecision\t%.4f (%.4f)\t%.4f\n", reg.Name, s.SupportDocs, s.Macro.Precision, s.Macro.PrecisionStdDev, s.Micro.Precision)
		fmt.Fprintf(tw, "\t\tRecall\t%.4f (%.4f)\t%.4f\n", s.Macro.Recall, s.Macro.RecallStdDev, s.Micro.Recall)
		fmt.Fprintf(tw, "\t\tF1\t%.4f\t%.4f\n", s.Macro.F1, s.Micro.F1)
		fmt.Fprintf(tw, "\t\tTP/FP/FN\t\t%d/%d/%d\n", s.MicroCounts.TP, s.MicroCounts.FP, s.MicroCounts.FN)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	for _, doc := range r.Documents {
		writeDocument(w, doc)
	}
	return nil
}

func writeDocument(w io.Writer, doc phi.DocumentResult) {
	fmt.Fprintf(w, "\nDocument %s\n", doc.ID)
	for _, reg := range doc.Regimes {
		fmt.Fprintf(w, "  %-14s P=%.4f R=%.4f F1=%.4f  TP=%d FP=%d FN=%d\n",
			reg.Name, reg.Record.Precision, reg.Record.Recall, reg.Record.F1,
			reg.Counts.TP, reg.Counts.FP, reg.Counts.FN)
	}

	// Mismatches are listed once, from the strict all-tags view.
	if len(doc.Regimes) == 0 {
		return
	}
	writeMismatches(w, doc.Regimes[0].Partition)
}

func writeMismatches(w io.Writer, p match.Partition) {
	for _, a := range p.FalseNegatives {
		fmt.Fprintf(w, "    FN %s %q\n", a, a.Text)
	}
	for _, a := range p.FalsePositives {
		fmt.Fprintf(w, "    FP %s %q\n", a, a.Text)
	}
}

func describeFilter(r *phi.Report) string {
	parts := make([]string, 0, len(r.Filter.Criteria))
	for _, c := range r.Filter.Criteria {
		parts = append(parts, c.String())
	}
	mode := string(r.Filter.Mode)
	if mode == "" {
		mode = "or"
	}
	desc := fmt.Sprintf("%s (%s)", strings.Join(parts, ", "), mode)
	if r.Filter.Invert {
		desc = "NOT " + desc
	}
	return desc
}

// WriteSeverityText renders a Track 2 report
func WriteSeverityText(w io.Writer, r *severity.Report) error {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "CLASSES    ( support )  ")
	fmt.Fprintln(w, "           (gold|syst): ")
	fmt.Fprintln(w, "--------------------------------")
	for _, c := range r.Classes {
		if !c.Scored {
			continue
		}
		fmt.Fprintf(w, "%-10s (%4d|%4d): %07.4f%%\n", c.Name, c.GoldSupport, c.SystemSupport, c.Score)
	}
	fmt.Fprintln(w, "--------------------------------")
	fmt.Fprintf(w, "SCORE      (%4d|%4d): %07.4f%%\n", r.GoldDocuments, r.SystemDocuments, r.Overall)

	if len(r.Documents) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-12s %s %s   %-6s\n", "RECORD NAME", center("GOLD", 6), center("SYSTEM", 6), "ERROR")
	for _, d := range r.Documents {
		fmt.Fprintf(w, "%-12s %s %s   %-6s\n", d.ID,
			center(fmt.Sprint(int(d.Gold)), 6), center(fmt.Sprint(int(d.System)), 6), d.Marker)
	}
	if r.WilcoxonP != nil {
		fmt.Fprintf(w, "Wilcoxon Signed-Rank test p-value: %09.7f\n", *r.WilcoxonP)
	}
	return nil
}

// center pads s to width with the extra space on the right
func center(s string, width int) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
