package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes one row per regime (phi) or per class (severity), with
// the overall score as a final row for severity runs
func WriteCSV(w io.Writer, record *RunRecord) error {
	writer := csv.NewWriter(w)

	var err error
	switch record.Config.Kind {
	case KindPHI:
		err = writePHICSV(writer, record)
	case KindSeverity:
		err = writeSeverityCSV(writer, record)
	default:
		err = fmt.Errorf("unsupported run kind: %q", record.Config.Kind)
	}
	if err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

func writePHICSV(writer *csv.Writer, record *RunRecord) error {
	header := []string{
		"Run ID", "System", "Regime", "Docs",
		"Macro Precision", "Macro Precision SD", "Macro Recall", "Macro Recall SD", "Macro F1",
		"Micro Precision", "Micro Recall", "Micro F1", "TP", "FP", "FN",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, reg := range record.PHI.Regimes {
		row := []string{record.RunID, record.Config.SystemID, reg.Name}
		if reg.Empty {
			row = append(row, "0")
			for len(row) < len(header) {
				row = append(row, "")
			}
		} else {
			s := reg.Summary
			row = append(row,
				strconv.Itoa(s.SupportDocs),
				formatScore(s.Macro.Precision),
				formatScore(s.Macro.PrecisionStdDev),
				formatScore(s.Macro.Recall),
				formatScore(s.Macro.RecallStdDev),
				formatScore(s.Macro.F1),
				formatScore(s.Micro.Precision),
				formatScore(s.Micro.Recall),
				formatScore(s.Micro.F1),
				strconv.Itoa(s.MicroCounts.TP),
				strconv.Itoa(s.MicroCounts.FP),
				strconv.Itoa(s.MicroCounts.FN),
			)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeSeverityCSV(writer *csv.Writer, record *RunRecord) error {
	if err := writer.Write([]string{"Run ID", "Class", "Gold Support", "System Support", "Score"}); err != nil {
		return err
	}

	r := record.Severity
	for _, c := range r.Classes {
		score := ""
		if c.Scored {
			score = formatScore(c.Score)
		}
		row := []string{record.RunID, c.Name, strconv.Itoa(c.GoldSupport), strconv.Itoa(c.SystemSupport), score}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Write([]string{
		record.RunID, "overall", strconv.Itoa(r.GoldDocuments), strconv.Itoa(r.SystemDocuments), formatScore(r.Overall),
	})
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
