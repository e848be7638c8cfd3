package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/phrasecheck/internal/report"
	"github.com/valpere/phrasecheck/internal/search"
)

// ErrNotFound is returned when a report ID is unknown.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// busyTimeout is how long a statement waits for a lock held by another
// process before failing with SQLITE_BUSY.
const busyTimeout = "_pragma=busy_timeout(5000)"

func New(dbPath string) (*Store, error) {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dbPath+sep+busyTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; concurrent judgments queue here instead.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		engines INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		phrases INTEGER NOT NULL,
		meaningful INTEGER NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- search_cache stores web search responses keyed by engine, result count and query
	CREATE TABLE IF NOT EXISTS search_cache (
		key TEXT PRIMARY KEY,
		hits TEXT NOT NULL,
		hit_count INTEGER NOT NULL,
		usage_count INTEGER DEFAULT 0,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
	CREATE INDEX IF NOT EXISTS idx_reports_lookup ON reports(source_lang, target_lang);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ReportSummary is a row from the reports table without the report body.
type ReportSummary struct {
	ID         string
	SourceText string
	SourceLang string
	TargetLang string
	Engines    int
	Failed     int
	Phrases    int
	Meaningful int
	CreatedAt  time.Time
}

// SaveReport stores rep, replacing any report with the same ID.
func (s *Store) SaveReport(ctx context.Context, rep *report.Report) error {
	var body bytes.Buffer
	if err := report.WriteJSON(&body, rep); err != nil {
		return err
	}
	st := rep.Stats()
	createdAt := rep.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reports (id, source_text, source_lang, target_lang, engines, failed, phrases, meaningful, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, normalizeText(rep.OriginalText), rep.SourceLang, rep.TargetLang,
		st.Engines, st.Failed, st.Phrases, st.Meaningful, body.String(), createdAt)
	return err
}

// GetReport loads a stored report by ID.
func (s *Store) GetReport(ctx context.Context, id string) (*report.Report, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM reports WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return report.ReadJSON(strings.NewReader(body))
}

// ListReports returns report summaries, newest first. limit ≤ 0 returns all.
func (s *Store) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	query := `SELECT id, source_text, source_lang, target_lang, engines, failed, phrases, meaningful, created_at
		FROM reports ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ReportSummary
	for rows.Next() {
		var r ReportSummary
		if err := rows.Scan(&r.ID, &r.SourceText, &r.SourceLang, &r.TargetLang, &r.Engines, &r.Failed, &r.Phrases, &r.Meaningful, &r.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// DeleteReport permanently removes a report by ID.
func (s *Store) DeleteReport(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetSearch implements search.Cache. Expired entries are misses.
func (s *Store) GetSearch(ctx context.Context, key string) ([]search.Hit, bool, error) {
	var raw string
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT hits, expires_at FROM search_cache WHERE key = ?`, key).Scan(&raw, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expiresAt.Valid && time.Now().After(expiresAt.Time) {
		return nil, false, nil
	}

	var hits []search.Hit
	if err := json.Unmarshal([]byte(raw), &hits); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached hits: %w", err)
	}

	_, _ = s.db.ExecContext(ctx,
		`UPDATE search_cache SET usage_count = usage_count + 1, last_used = ? WHERE key = ?`,
		time.Now(), key)
	return hits, true, nil
}

// PutSearch implements search.Cache. A ttl ≤ 0 stores the entry without expiry.
func (s *Store) PutSearch(ctx context.Context, key string, hits []search.Hit, ttl time.Duration) error {
	raw, err := json.Marshal(hits)
	if err != nil {
		return fmt.Errorf("failed to encode hits: %w", err)
	}
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: time.Now().Add(ttl), Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO search_cache (key, hits, hit_count, usage_count, expires_at, created_at, last_used)
		 VALUES (?, ?, ?, 0, ?, ?, ?)`,
		key, string(raw), len(hits), expiresAt, time.Now(), time.Now())
	return err
}

// SearchEntry is a row from the search_cache table without the hits.
type SearchEntry struct {
	Key        string
	HitCount   int
	UsageCount int
	ExpiresAt  *time.Time
	LastUsed   time.Time
}

// Expired reports whether e is past its expiry at now.
func (e SearchEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// CacheStats summarises search cache usage.
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	TotalHits      int
	TotalUsage     int
}

// ListSearches returns all search cache entries ordered by most recently used.
func (s *Store) ListSearches(ctx context.Context) ([]SearchEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, hit_count, usage_count, expires_at, last_used FROM search_cache ORDER BY last_used DESC, key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchEntry
	for rows.Next() {
		var e SearchEntry
		var expiresAt sql.NullTime
		if err := rows.Scan(&e.Key, &e.HitCount, &e.UsageCount, &expiresAt, &e.LastUsed); err != nil {
			return nil, err
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			e.ExpiresAt = &t
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// SearchStats returns summary statistics for the search cache.
func (s *Store) SearchStats(ctx context.Context) (*CacheStats, error) {
	entries, err := s.ListSearches(ctx)
	if err != nil {
		return nil, err
	}
	stats := &CacheStats{}
	now := time.Now()
	for _, e := range entries {
		stats.TotalEntries++
		if e.Expired(now) {
			stats.ExpiredEntries++
		}
		stats.TotalHits += e.HitCount
		stats.TotalUsage += e.UsageCount
	}
	return stats, nil
}

// ClearSearches removes search cache entries: all of them, or only the
// expired ones when expiredOnly is set.
func (s *Store) ClearSearches(ctx context.Context, expiredOnly bool) (int64, error) {
	query := `DELETE FROM search_cache`
	var args []any
	if expiredOnly {
		entries, err := s.ListSearches(ctx)
		if err != nil {
			return 0, err
		}
		var keys []string
		now := time.Now()
		for _, e := range entries {
			if e.Expired(now) {
				keys = append(keys, e.Key)
			}
		}
		if len(keys) == 0 {
			return 0, nil
		}
		query += ` WHERE key IN (?` + strings.Repeat(`, ?`, len(keys)-1) + `)`
		for _, k := range keys {
			args = append(args, k)
		}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// for consistent lookups.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

// levenshtein returns the edit distance between two strings (rune-aware).
// Uses a space-optimized two-row DP implementation.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1]
			} else {
				curr[j] = min(prev[j], prev[j-1], curr[j-1]) + 1
			}
		}
		prev, curr = curr, prev
	}

	return prev[lb]
}

// stringSimilarity returns a similarity score in [0, 1] (1 = identical).
func stringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// FindSimilarReport returns the most recent report for targetLang whose
// normalised input text has at least threshold similarity (0–1) to text.
// Pass threshold ≤ 0 to disable. Texts longer than 1 000 runes are only
// matched exactly.
func (s *Store) FindSimilarReport(ctx context.Context, text, targetLang string, threshold float64) (*ReportSummary, bool, error) {
	if threshold <= 0 {
		return nil, false, nil
	}

	normalized := normalizeText(text)
	const maxFuzzyRunes = 1000
	fuzzy := len([]rune(normalized)) <= maxFuzzyRunes

	all, err := s.ListReports(ctx, 0)
	if err != nil {
		return nil, false, err
	}

	var best *ReportSummary
	bestScore := 0.0
	for i := range all {
		r := &all[i]
		if r.TargetLang != targetLang {
			continue
		}
		if !fuzzy {
			if r.SourceText == normalized {
				return r, true, nil
			}
			continue
		}

		// Skip the edit distance when the length difference alone rules
		// the candidate out.
		ls, lr := len([]rune(normalized)), len([]rune(r.SourceText))
		maxL := max(ls, lr)
		diff := ls - lr
		if diff < 0 {
			diff = -diff
		}
		if maxL > 0 && 1.0-float64(diff)/float64(maxL) < threshold {
			continue
		}

		score := stringSimilarity(normalized, r.SourceText)
		if score >= threshold && score > bestScore {
			bestScore = score
			best = r
		}
	}

	if best != nil {
		return best, true, nil
	}
	return nil, false, nil
}
