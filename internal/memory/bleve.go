package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/cenkalti/backoff/v5"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/omprussia/weblate-omp/internal/telemetry"
)

const (
	docType         = "record"
	maxCandidates   = 100
	defaultLimit    = 10
	defaultMaxTries = 5
)

// document is the indexed form of a Record
type document struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Source         string `json:"source"`
	SourceText     string `json:"source_text"`
	Target         string `json:"target"`
	Origin         string `json:"origin"`
	Category       int    `json:"category"`
}

func newDocument(r Record) document {
	return document{
		SourceLanguage: r.SourceLanguage,
		TargetLanguage: r.TargetLanguage,
		Source:         r.Source,
		SourceText:     r.Source,
		Target:         r.Target,
		Origin:         r.Origin,
		Category:       r.Category,
	}
}

// BleveType implements bleve's classifier.
func (document) BleveType() string { return docType }

// RetryPolicy bounds retries of writes that find the index locked.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	return b
}

// Option configures a bleve index
type Option func(*bleveIndex)

// WithRetryPolicy sets the lock retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(ix *bleveIndex) {
		ix.retry = p
	}
}

// WithMetrics records lock retries
func WithMetrics(m *telemetry.Metrics) Option {
	return func(ix *bleveIndex) {
		ix.metrics = m
	}
}

// WithLockPath overrides the lock file location
func WithLockPath(path string) Option {
	return func(ix *bleveIndex) {
		ix.lockPath = path
	}
}

type bleveIndex struct {
	index    bleve.Index
	lockPath string
	retry    RetryPolicy
	metrics  *telemetry.Metrics
}

// Open opens the index at path, creating it when missing. Writers
// serialise on the file lock at path + ".lock".
func Open(path string, opts ...Option) (Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0750); mkErr != nil {
			return nil, fmt.Errorf("failed to create memory directory: %w", mkErr)
		}
		idx, err = bleve.New(path, newMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open translation memory at %s: %w", path, err)
	}
	return newBleveIndex(idx, path+".lock", opts...), nil
}

// NewInMemory returns an index kept in memory. lockPath is still used to
// serialise writers.
func NewInMemory(lockPath string, opts ...Option) (Index, error) {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create translation memory: %w", err)
	}
	return newBleveIndex(idx, lockPath, opts...), nil
}

func newBleveIndex(idx bleve.Index, lockPath string, opts ...Option) *bleveIndex {
	ix := &bleveIndex{
		index:    idx,
		lockPath: lockPath,
		retry:    RetryPolicy{MaxTries: defaultMaxTries},
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

func newMapping() *mapping.IndexMappingImpl {
	keywordField := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		return fm
	}

	dm := bleve.NewDocumentMapping()
	dm.AddFieldMappingsAt("source_language", keywordField())
	dm.AddFieldMappingsAt("target_language", keywordField())
	dm.AddFieldMappingsAt("source", keywordField())
	dm.AddFieldMappingsAt("origin", keywordField())
	dm.AddFieldMappingsAt("category", bleve.NewNumericFieldMapping())

	target := bleve.NewTextFieldMapping()
	target.Index = false
	dm.AddFieldMappingsAt("target", target)

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = false
	dm.AddFieldMappingsAt("source_text", text)

	im := bleve.NewIndexMapping()
	im.AddDocumentMapping(docType, dm)
	im.DefaultMapping = dm
	return im
}

// documentID is derived from the record so that re-importing is idempotent
func documentID(r Record) string {
	key := r.Origin + "\x00" + r.SourceLanguage + "\x00" + r.TargetLanguage + "\x00" +
		r.Source + "\x00" + r.Target + "\x00" + strconv.Itoa(r.Category)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// write runs fn while holding the index lock, retrying with exponential
// backoff while the lock is taken
func (ix *bleveIndex) write(ctx context.Context, fn func() error) error {
	maxTries := ix.retry.MaxTries
	if maxTries == 0 {
		maxTries = defaultMaxTries
	}

	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		lock := flock.New(ix.lockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("failed to acquire memory lock: %w", err))
		}
		if !locked {
			ix.metrics.RecordMemoryLockRetry(ctx)
			slog.DebugContext(ctx, "Translation memory locked, retrying", "attempt", attempt)
			return struct{}{}, ErrLocked
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				slog.WarnContext(ctx, "Failed to release memory lock", "error", err)
			}
		}()

		if err := fn(); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(ix.retry.backOff()),
		backoff.WithMaxTries(maxTries),
	)
	if errors.Is(err, ErrLocked) {
		return fmt.Errorf("%w after %d attempts: %w", ErrLockRetriesExhausted, attempt, err)
	}
	return err
}

// Add implements Index
func (ix *bleveIndex) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return ix.write(ctx, func() error {
		batch := ix.index.NewBatch()
		for _, r := range records {
			if err := batch.Index(documentID(r), newDocument(r)); err != nil {
				return fmt.Errorf("failed to index record: %w", err)
			}
		}
		if err := ix.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to write memory batch: %w", err)
		}
		return nil
	})
}

// Lookup implements Index
func (ix *bleveIndex) Lookup(ctx context.Context, q Query) ([]Match, error) {
	if q.Text == "" {
		return nil, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q), maxCandidates, 0, false)
	req.Fields = []string{"*"}
	res, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search translation memory: %w", err)
	}

	var matches []Match
	seen := map[string]bool{}
	for _, hit := range res.Hits {
		r := recordFromFields(hit.Fields)
		if !containsCategory(q.Categories, r.Category) || seen[r.Target] {
			continue
		}
		score := similarity(q.Text, r.Source)
		if score < q.Threshold {
			continue
		}
		seen[r.Target] = true
		matches = append(matches, Match{Record: r, Similarity: score})
	}

	slices.SortStableFunc(matches, func(a, b Match) int { return b.Similarity - a.Similarity })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func buildQuery(q Query) query.Query {
	exact := bleve.NewTermQuery(q.Text)
	exact.SetField("source")
	exact.SetBoost(10)
	text := bleve.NewMatchQuery(q.Text)
	text.SetField("source_text")

	must := []query.Query{bleve.NewDisjunctionQuery(exact, text)}
	if q.SourceLanguage != "" {
		tq := bleve.NewTermQuery(q.SourceLanguage)
		tq.SetField("source_language")
		must = append(must, tq)
	}
	if q.TargetLanguage != "" {
		tq := bleve.NewTermQuery(q.TargetLanguage)
		tq.SetField("target_language")
		must = append(must, tq)
	}
	if len(q.Categories) > 0 {
		var categories []query.Query
		inclusive := true
		for _, c := range q.Categories {
			v := float64(c)
			nq := bleve.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
			nq.SetField("category")
			categories = append(categories, nq)
		}
		must = append(must, bleve.NewDisjunctionQuery(categories...))
	}
	return bleve.NewConjunctionQuery(must...)
}

func recordFromFields(fields map[string]any) Record {
	str := func(name string) string {
		s, _ := fields[name].(string)
		return s
	}
	category, _ := fields["category"].(float64)
	return Record{
		SourceLanguage: str("source_language"),
		TargetLanguage: str("target_language"),
		Source:         str("source"),
		Target:         str("target"),
		Origin:         str("origin"),
		Category:       int(category),
	}
}

// Close implements Index
func (ix *bleveIndex) Close() error {
	return ix.index.Close()
}
