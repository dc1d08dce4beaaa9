package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/sha1n/newsdex/internal/domain"
)

// LockSuffix is appended to the index path to form the writer lock file.
const LockSuffix = ".lock"

var (
	// ErrIndexLocked indicates another process holds the index for writing.
	ErrIndexLocked = errors.New("index is locked by another process")

	// ErrIndexIO indicates the underlying index failed to read or write.
	ErrIndexIO = errors.New("index I/O failure")

	errMissingURL = errors.New("document has no url")
)

// storedDoc is the shape persisted in the index. Field names follow the json tags.
type storedDoc struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Content   string  `json:"content"`
	Domain    string  `json:"domain"`
	Source    string  `json:"source"`
	Timestamp float64 `json:"timestamp"`
}

// Store owns the full-text index. Documents are keyed by URL, so writing
// the same URL twice replaces the earlier copy.
type Store struct {
	index bleve.Index
	lock  *DirLock
	path  string
}

// CreateIndexMapping creates the mapping for news documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Title and content are analyzed and feed the default _all field
	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = standard.Name
	titleField.Store = true
	titleField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(domain.FieldTitle, titleField)

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = true
	contentField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(domain.FieldContent, contentField)

	for _, name := range []string{domain.FieldURL, domain.FieldDomain, domain.FieldSource} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = true
		f.IncludeInAll = false
		docMapping.AddFieldMappingsAt(name, f)
	}

	tsField := bleve.NewNumericFieldMapping()
	tsField.Store = true
	tsField.IncludeInAll = false
	docMapping.AddFieldMappingsAt(domain.FieldTimestamp, tsField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// Open opens the index at path, creating it when absent. The caller must
// Close the store to release the writer lock.
func Open(path string) (*Store, error) {
	lock := NewDirLock(path + LockSuffix)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock index: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrIndexLocked, path)
	}

	idx, err := openOrCreate(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	slog.Info("Index opened", "path", path)
	return &Store{index: idx, lock: lock, path: path}, nil
}

func openOrCreate(path string) (bleve.Index, error) {
	idx, err := bleve.Open(path)
	if err == nil {
		return idx, nil
	}

	// A missing path or a pre-created empty directory both get a fresh index
	empty, statErr := isEmptyDir(path)
	switch {
	case errors.Is(statErr, fs.ErrNotExist):
	case statErr == nil && empty:
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("%w: failed to prepare index dir: %v", ErrIndexIO, err)
		}
	default:
		return nil, fmt.Errorf("%w: failed to open index: %v", ErrIndexIO, err)
	}

	idx, err = bleve.New(path, CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create index: %v", ErrIndexIO, err)
	}
	return idx, nil
}

func isEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

// OpenInMemory creates a non-persistent index.
func OpenInMemory() (*Store, error) {
	idx, err := bleve.NewMemOnly(CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create in-memory index: %v", ErrIndexIO, err)
	}
	return &Store{index: idx}, nil
}

// Upsert inserts doc or replaces the document with the same URL.
// The write is visible to searches once Upsert returns.
func (s *Store) Upsert(doc domain.Document) error {
	if doc.URL == "" {
		return errMissingURL
	}

	stored := storedDoc{
		Title:     doc.Title,
		URL:       doc.URL,
		Content:   doc.Content,
		Domain:    doc.Domain,
		Source:    doc.Source,
		Timestamp: float64(domain.Millis(doc.ObservedAt)),
	}
	if err := s.index.Index(doc.URL, stored); err != nil {
		return fmt.Errorf("%w: upsert %s: %v", ErrIndexIO, doc.URL, err)
	}
	return nil
}

// Lookup returns the stored document for url.
func (s *Store) Lookup(ctx context.Context, url string) (domain.Document, bool, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{url}))
	req.Fields = []string{"*"}

	res, err := s.SearchInContext(ctx, req)
	if err != nil {
		return domain.Document{}, false, err
	}
	if len(res.Hits) == 0 {
		return domain.Document{}, false, nil
	}

	f := res.Hits[0].Fields
	return domain.Document{
		Title:      StringField(f, domain.FieldTitle),
		URL:        StringField(f, domain.FieldURL),
		Content:    StringField(f, domain.FieldContent),
		Domain:     StringField(f, domain.FieldDomain),
		Source:     StringField(f, domain.FieldSource),
		ObservedAt: domain.FromMillis(MillisField(f, domain.FieldTimestamp)),
	}, true, nil
}

// Count returns the number of indexed documents.
func (s *Store) Count() (uint64, error) {
	n, err := s.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrIndexIO, err)
	}
	return n, nil
}

// SearchInContext runs req against the index.
func (s *Store) SearchInContext(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrIndexIO, err)
	}
	return res, nil
}

// Close closes the index and releases the writer lock.
func (s *Store) Close() error {
	err := s.index.Close()
	if s.lock != nil {
		if uerr := s.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}
	return nil
}

// Path returns the on-disk location, or "" for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// StringField reads a stored string field from a search hit.
func StringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

// MillisField reads a stored numeric timestamp from a search hit.
func MillisField(fields map[string]interface{}, name string) int64 {
	switch v := fields[name].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
