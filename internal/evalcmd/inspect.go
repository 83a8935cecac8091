package evalcmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/phieval/internal/eval/annotation"
	"github.com/lehigh-university-libraries/phieval/internal/eval/dataset"
)

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var limit int
	var details bool
	var interactive bool
	var showText bool

	cmd := &cobra.Command{
		Use:   "inspect PATH",
		Short: "Summarise an annotated corpus (tag counts, malformed tags)",
		Long: `Inspect a directory of standoff XML files, a single XML file, or a JSONL /
Parquet annotation table.

Prints document and annotation counts per tag and attribute, flags tags
outside the PHI vocabulary and annotations with broken offsets, and can list
each document's annotations.`,
		Example: `  # Summarise the gold standard
  phieval eval inspect ./gold

  # Walk through the first 5 documents with their note text
  phieval eval inspect ./gold --limit 5 --details --text --interactive

  # Summarise every document (no limit)
  phieval eval inspect ./system.parquet --limit 0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(false)
			return executeInspect(cmd.Context(), cmd.OutOrStdout(), args[0], limit, details, interactive, showText)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Number of documents to inspect (0 for all)")
	cmd.Flags().BoolVar(&details, "details", false, "List annotations of each document")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Pause after each document (press Enter to continue)")
	cmd.Flags().BoolVar(&showText, "text", false, "Show a preview of each document's note text")

	return cmd
}

// identityCount is the number of annotations with one tag/attribute pair
type identityCount struct {
	Identity annotation.Identity
	Count    int
	Known    bool
}

// corpusSummary aggregates what inspect reports about a set of documents
type corpusSummary struct {
	Documents   int
	Systems     []string
	Annotations int
	Identities  []identityCount
	Severities  map[annotation.Severity]int
	Invalid     []string
	Issues      []dataset.Issue
}

func summarizeCorpus(docs []dataset.Document, vocab annotation.Vocabulary) corpusSummary {
	s := corpusSummary{
		Documents:  len(docs),
		Severities: make(map[annotation.Severity]int),
	}

	counts := make(map[annotation.Identity]int)
	systems := make(map[string]bool)
	for _, doc := range docs {
		systems[doc.SystemID] = true
		s.Issues = append(s.Issues, doc.Issues...)
		if doc.Severity != nil {
			s.Severities[*doc.Severity]++
		}

		for _, a := range doc.Annotations {
			s.Annotations++
			counts[a.Identity()]++
			if err := a.Validate(); err != nil {
				s.Invalid = append(s.Invalid, fmt.Sprintf("%s: %v", doc.ID, err))
			}
		}
	}

	for sys := range systems {
		if sys != "" {
			s.Systems = append(s.Systems, sys)
		}
	}
	sort.Strings(s.Systems)

	for id, n := range counts {
		s.Identities = append(s.Identities, identityCount{
			Identity: id,
			Count:    n,
			Known:    vocab.HasTag(id.Tag) && (id.Attribute == "" || vocab.HasAttribute(id.Tag, id.Attribute)),
		})
	}
	sort.Slice(s.Identities, func(i, j int) bool {
		a, b := s.Identities[i].Identity, s.Identities[j].Identity
		if a.Tag != b.Tag {
			return a.Tag < b.Tag
		}
		return a.Attribute < b.Attribute
	})

	return s
}

func executeInspect(ctx context.Context, w io.Writer, path string, limit int, details, interactive, showText bool) error {
	docs, err := dataset.NewLoader(path).LoadSample(limit)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	fmt.Fprintf(w, "Loaded %d documents from %s\n", len(docs), path)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	writeSummary(w, summarizeCorpus(docs, annotation.DefaultVocabulary()))

	if !details && !showText {
		return nil
	}

	reader := bufio.NewReader(os.Stdin)

	for i, doc := range docs {
		// Check for context cancellation (e.g., Ctrl+C) at the start of each iteration
		select {
		case <-ctx.Done():
			fmt.Fprintln(w, "\nInspection interrupted.")
			return nil
		default:
		}

		fmt.Fprintf(w, "\nDOCUMENT %d/%d: %s", i+1, len(docs), doc.ID)
		if doc.SystemID != "" {
			fmt.Fprintf(w, " (system %s)", doc.SystemID)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.Repeat("-", 80))

		if details {
			for _, a := range doc.Annotations {
				fmt.Fprintf(w, "  %-4s %s %q\n", a.ID, a, a.Text)
			}
			if doc.Severity != nil {
				fmt.Fprintf(w, "  Severity: %s\n", doc.Severity)
			}
		}

		if showText {
			writeTextPreview(w, doc.Text)
		}

		if interactive {
			fmt.Fprint(w, "Press Enter to continue to next document (or Ctrl+C to quit)...")

			inputCh := make(chan struct{})
			go func() {
				_, _ = reader.ReadString('\n')
				close(inputCh)
			}()

			// Wait for either user input (Enter) or context cancellation (Ctrl+C)
			select {
			case <-ctx.Done():
				fmt.Fprintln(w, "\nInspection interrupted.")
				return nil
			case <-inputCh:
			}
		}
	}

	return nil
}

func writeSummary(w io.Writer, s corpusSummary) {
	fmt.Fprintf(w, "Documents:   %d\n", s.Documents)
	if len(s.Systems) > 0 {
		fmt.Fprintf(w, "Systems:     %s\n", strings.Join(s.Systems, ", "))
	}
	fmt.Fprintf(w, "Annotations: %d\n\n", s.Annotations)

	if len(s.Identities) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "Tag\tAttribute\tCount\tKnown")
		fmt.Fprintln(tw, "---\t---\t---\t---")
		for _, ic := range s.Identities {
			known := "yes"
			if !ic.Known {
				known = "NO"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", ic.Identity.Tag, ic.Identity.Attribute, ic.Count, known)
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	if len(s.Severities) > 0 {
		fmt.Fprintln(w, "Severity labels:")
		for _, sev := range annotation.Severities() {
			fmt.Fprintf(w, "  %-10s %d\n", strings.ToLower(sev.String()), s.Severities[sev])
		}
		fmt.Fprintln(w)
	}

	if len(s.Invalid) > 0 {
		fmt.Fprintf(w, "Invalid annotations (%d):\n", len(s.Invalid))
		for _, msg := range s.Invalid {
			fmt.Fprintf(w, "  %s\n", msg)
		}
		fmt.Fprintln(w)
	}

	if len(s.Issues) > 0 {
		fmt.Fprintf(w, "Skipped tags (%d):\n", len(s.Issues))
		for _, issue := range s.Issues {
			fmt.Fprintf(w, "  %s <%s %s>: %s\n", issue.DocumentID, issue.Element, issue.AnnotationID, issue.Message)
		}
		fmt.Fprintln(w)
	}
}

func writeTextPreview(w io.Writer, text string) {
	fmt.Fprintf(w, "Text Length: %d characters\n", len(text))

	// Show first 500 characters with indicator if truncated
	displayText := text
	truncated := false
	maxChars := 500
	if len(displayText) > maxChars {
		displayText = displayText[:maxChars]
		truncated = true
	}

	fmt.Fprintln(w, "TEXT PREVIEW:")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintln(w, displayText)
	if truncated {
		fmt.Fprintf(w, "\n[... truncated, showing first %d of %d characters ...]\n", maxChars, len(text))
	}
	fmt.Fprintln(w, strings.Repeat("-", 80))
}
