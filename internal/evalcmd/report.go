package evalcmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/phieval/internal/eval/results"
)

func executeReport(w io.Writer, resultsPath, format string) error {
	// Load results
	record, err := results.LoadFromYAML(resultsPath)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	switch format {
	case "text":
		fmt.Fprintf(w, "Run %s (%s, %s)\n", record.RunID, record.Config.Kind, record.Config.Timestamp)
		fmt.Fprintf(w, "Gold:   %s\nSystem: %s\n", record.Config.GoldPath, record.Config.SystemPath)
		return results.WriteText(w, record)
	case "json":
		return printJSONReport(w, record)
	case "csv":
		return results.WriteCSV(w, record)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSONReport(w io.Writer, record *results.RunRecord) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(record)
}
