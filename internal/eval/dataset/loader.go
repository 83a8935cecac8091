package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/phieval/internal/eval/annotation"
)

// Loader reads annotated documents from a directory of standoff XML files,
// a single XML file, or a JSONL / Parquet table
type Loader struct {
	datasetPath string
}

// NewLoader creates a new dataset loader
func NewLoader(datasetPath string) *Loader {
	return &Loader{
		datasetPath: datasetPath,
	}
}

// IsSingleFile reports whether path names one XML document rather than a collection
func IsSingleFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

// Load loads every document, sorted by system id then document id
func (l *Loader) Load() ([]Document, error) {
	return l.LoadSample(0)
}

// LoadSample loads at most limit documents (all when limit <= 0)
func (l *Loader) LoadSample(limit int) ([]Document, error) {
	info, err := os.Stat(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dataset: %w", err)
	}

	var docs []Document
	if info.IsDir() {
		docs, err = l.loadXMLDir(limit)
	} else {
		switch ext := strings.ToLower(filepath.Ext(l.datasetPath)); ext {
		case ".xml":
			var doc Document
			doc, err = loadXMLFile(l.datasetPath)
			docs = []Document{doc}
		case ".parquet":
			docs, err = l.loadAnnotationParquet()
		case ".jsonl", ".json":
			docs, err = l.loadAnnotationJSONL()
		default:
			return nil, fmt.Errorf("unsupported file format: %s (supported: directory, .xml, .parquet, .jsonl)", ext)
		}
	}
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// LoadSystems groups documents by system id. A gold directory, or a
// directory holding a single system's output, yields one group.
func (l *Loader) LoadSystems() (map[string]annotation.Corpus, error) {
	docs, err := l.Load()
	if err != nil {
		return nil, err
	}

	systems := make(map[string]annotation.Corpus)
	for _, doc := range docs {
		corpus, ok := systems[doc.SystemID]
		if !ok {
			corpus = annotation.Corpus{}
			systems[doc.SystemID] = corpus
		}
		if _, dup := corpus[doc.ID]; dup {
			return nil, fmt.Errorf("failed to load %s: document %s appears twice for system %q", l.datasetPath, doc.ID, doc.SystemID)
		}
		corpus[doc.ID] = doc.Annotations
	}

	slog.Debug("Grouped documents by system", "path", l.datasetPath, "systems", len(systems), "documents", len(docs))
	return systems, nil
}

// LoadCorpus loads all documents as one corpus keyed by document id,
// ignoring system ids. Used for the gold standard.
func (l *Loader) LoadCorpus() (annotation.Corpus, error) {
	docs, err := l.Load()
	if err != nil {
		return nil, err
	}

	corpus := make(annotation.Corpus, len(docs))
	for _, doc := range docs {
		if _, dup := corpus[doc.ID]; dup {
			return nil, fmt.Errorf("failed to load %s: document %s appears twice", l.datasetPath, doc.ID)
		}
		corpus[doc.ID] = doc.Annotations
	}
	return corpus, nil
}

// LoadSeverities loads document severity labels keyed by file stem (XML)
// or doc_id (tables)
func (l *Loader) LoadSeverities() (map[string]annotation.Severity, error) {
	ext := strings.ToLower(filepath.Ext(l.datasetPath))
	switch ext {
	case ".parquet":
		return l.loadSeverityParquet()
	case ".jsonl", ".json":
		return l.loadSeverityJSONL()
	}

	docs, err := l.Load()
	if err != nil {
		return nil, err
	}

	labels := make(map[string]annotation.Severity, len(docs))
	for _, doc := range docs {
		if doc.Severity == nil {
			return nil, fmt.Errorf("failed to load severity: %s has no %s tag", doc.Path, severityElement)
		}
		labels[doc.Name] = *doc.Severity
	}
	return labels, nil
}

func (l *Loader) loadXMLDir(limit int) ([]Document, error) {
	paths, err := listXMLFiles(l.datasetPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("Found XML files", "path", l.datasetPath, "count", len(paths))

	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		if limit > 0 && len(docs) >= limit {
			break
		}
		doc, err := loadXMLFile(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	sortDocuments(docs)
	return docs, nil
}

// loadAnnotationJSONL loads annotation rows from a JSONL file
func (l *Loader) loadAnnotationJSONL() ([]Document, error) {
	var rows []AnnotationRow
	err := l.scanJSONL(func(line []byte, lineNum int) error {
		var row AnnotationRow
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l.documentsFromRows(rows)
}

// loadSeverityJSONL loads severity rows from a JSONL file
func (l *Loader) loadSeverityJSONL() (map[string]annotation.Severity, error) {
	var rows []SeverityRow
	err := l.scanJSONL(func(line []byte, lineNum int) error {
		var row SeverityRow
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return severitiesFromRows(rows)
}

func (l *Loader) scanJSONL(handle func(line []byte, lineNum int) error) error {
	slog.Debug("Opening JSONL file", "path", l.datasetPath)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	// Increase buffer size for long text fields
	const maxCapacity = 10 * 1024 * 1024 // 10MB per line
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()

		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if err := handle(line, lineNum); err != nil {
			return err
		}

		// Log progress every 1000 rows
		if lineNum%1000 == 0 {
			slog.Debug("Reading JSONL", "lines_read", lineNum)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_lines", lineNum)
	return nil
}

// loadAnnotationParquet loads annotation rows from a Parquet file
func (l *Loader) loadAnnotationParquet() ([]Document, error) {
	rows, err := readParquet[AnnotationRow](l.datasetPath)
	if err != nil {
		return nil, err
	}
	return l.documentsFromRows(rows)
}

// loadSeverityParquet loads severity rows from a Parquet file
func (l *Loader) loadSeverityParquet() (map[string]annotation.Severity, error) {
	rows, err := readParquet[SeverityRow](l.datasetPath)
	if err != nil {
		return nil, err
	}
	return severitiesFromRows(rows)
}

func readParquet[T any](path string) ([]T, error) {
	slog.Debug("Opening Parquet file", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[T](pf)
	defer reader.Close()

	var records []T
	rows := make([]T, 128) // Read in batches

	batchNum := 0
	for {
		n, err := reader.Read(rows)
		if n > 0 {
			batchNum++
			records = append(records, rows[:n]...)
			slog.Debug("Read batch from Parquet", "batch", batchNum, "rows_in_batch", n, "total_rows_read", len(records))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Finished reading Parquet file", "total_records", len(records), "total_batches", batchNum)
	return records, nil
}

func (l *Loader) documentsFromRows(rows []AnnotationRow) ([]Document, error) {
	type key struct{ sys, id string }
	byKey := make(map[key]*Document)

	for i, row := range rows {
		if row.DocID == "" {
			return nil, fmt.Errorf("failed to load %s: row %d has no doc_id", l.datasetPath, i+1)
		}

		k := key{row.SystemID, row.DocID}
		doc, ok := byKey[k]
		if !ok {
			doc = &Document{ID: row.DocID, SystemID: row.SystemID, Name: row.DocID, Path: l.datasetPath}
			byKey[k] = doc
		}
		if row.Tag == "" {
			continue
		}
		doc.Annotations = append(doc.Annotations, row.Annotation())
	}

	docs := make([]Document, 0, len(byKey))
	for _, doc := range byKey {
		docs = append(docs, *doc)
	}
	sortDocuments(docs)
	return docs, nil
}

func severitiesFromRows(rows []SeverityRow) (map[string]annotation.Severity, error) {
	labels := make(map[string]annotation.Severity, len(rows))
	for i, row := range rows {
		s, err := annotation.ParseSeverity(row.Severity)
		if err != nil {
			return nil, fmt.Errorf("failed to read severity for %q (row %d): %w", row.DocID, i+1, err)
		}
		if _, dup := labels[row.DocID]; dup {
			return nil, fmt.Errorf("failed to read severity: document %q labelled twice", row.DocID)
		}
		labels[row.DocID] = s
	}
	return labels, nil
}

func sortDocuments(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].SystemID != docs[j].SystemID {
			return docs[i].SystemID < docs[j].SystemID
		}
		return docs[i].ID < docs[j].ID
	})
}
