// Package analytics is a privacy-conscious visitor log and redirect-link click
// counter backed by SQLite.
package analytics

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var ErrLinkNotFound = errors.New("link not found")

// Visitor is one recorded page view. Raw IPs are never stored.
type Visitor struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type Link struct {
	Code      string    `json:"code"`
	TargetURL string    `json:"target_url"`
	CreatedAt time.Time `json:"created_at"`
	Clicks    int64     `json:"clicks"`
}

type Stats struct {
	TotalVisitors    int64     `json:"total_visitors"`
	UniqueVisitors   int64     `json:"unique_visitors"`
	VisitorsToday    int64     `json:"visitors_today"`
	VisitorsThisWeek int64     `json:"visitors_this_week"`
	TotalClicks      int64     `json:"total_clicks"`
	Links            []Link    `json:"links"`
	RecentVisitors   []Visitor `json:"recent_visitors"`
}

// Tracker writes visitor rows and link clicks.
type Tracker struct {
	db     *sql.DB
	salt   string
	logger *zap.Logger
	now    func() time.Time
}

// New creates the tables. salt keys the IP hash and should be stable for
// unique-visitor counts to survive restarts.
func New(ctx context.Context, db *sql.DB, salt string, logger *zap.Logger) (*Tracker, error) {
	t := &Tracker{db: db, salt: salt, logger: logger.Named("analytics"), now: time.Now}
	if err := t.migrate(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tracker) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS visitors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hashed_ip TEXT NOT NULL,
			user_agent TEXT,
			path TEXT,
			ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS visitors_ts ON visitors (ts)`,
		`CREATE TABLE IF NOT EXISTS links (
			code TEXT PRIMARY KEY,
			target_url TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			clicks INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := t.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate analytics: %w", err)
		}
	}
	return nil
}

// HashIP returns a salted, truncated hash that is consistent per IP.
func (t *Tracker) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + t.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// Record stores a page view.
func (t *Tracker) Record(ctx context.Context, ip, userAgent, path string) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, ts)
		VALUES (?, ?, ?, ?)
	`, t.HashIP(ip), userAgent, path, t.now().Unix())
	if err != nil {
		return fmt.Errorf("record visitor: %w", err)
	}
	return nil
}

// Cleanup removes visitor rows older than retention.
func (t *Tracker) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := t.now().Add(-retention).Unix()
	result, err := t.db.ExecContext(ctx, `DELETE FROM visitors WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup visitors: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		t.logger.Info("Privacy cleanup removed old visitor records",
			zap.Int64("removed", n), zap.Duration("retention", retention))
	}
	return n, nil
}

// EnsureLink registers code → target, updating the target if it changed.
func (t *Tracker) EnsureLink(ctx context.Context, code, target string) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO links (code, target_url, created_at) VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET target_url = excluded.target_url
	`, code, target, t.now().Unix())
	if err != nil {
		return fmt.Errorf("ensure link %s: %w", code, err)
	}
	return nil
}

// Follow counts a click on code and returns its target.
func (t *Tracker) Follow(ctx context.Context, code string) (string, error) {
	var target string
	err := t.db.QueryRowContext(ctx, `SELECT target_url FROM links WHERE code = ?`, code).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrLinkNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve link %s: %w", code, err)
	}
	if _, err := t.db.ExecContext(ctx, `UPDATE links SET clicks = clicks + 1 WHERE code = ?`, code); err != nil {
		t.logger.Warn("Failed to count link click", zap.String("code", code), zap.Error(err))
	}
	return target, nil
}

// Stats summarizes visitors and links for the admin dashboard.
func (t *Tracker) Stats(ctx context.Context, recent int) (*Stats, error) {
	now := t.now()
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).Unix()
	weekAgo := now.Add(-7 * 24 * time.Hour).Unix()

	stats := &Stats{Links: []Link{}, RecentVisitors: []Visitor{}}
	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE ts >= ?`, []any{startOfDay}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE ts >= ?`, []any{weekAgo}},
		{&stats.TotalClicks, `SELECT COALESCE(SUM(clicks), 0) FROM links`, nil},
	}
	for _, c := range counts {
		if err := t.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("load stats: %w", err)
		}
	}

	links, err := t.db.QueryContext(ctx, `
		SELECT code, target_url, created_at, clicks
		FROM links
		ORDER BY clicks DESC, created_at DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}
	defer links.Close()
	for links.Next() {
		var l Link
		var created int64
		if err := links.Scan(&l.Code, &l.TargetURL, &created, &l.Clicks); err != nil {
			continue
		}
		l.CreatedAt = time.Unix(created, 0).UTC()
		stats.Links = append(stats.Links, l)
	}
	if err := links.Err(); err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}

	visitors, err := t.Recent(ctx, recent)
	if err != nil {
		return nil, err
	}
	stats.RecentVisitors = visitors
	return stats, nil
}

// Recent returns the latest visitor rows, newest first.
func (t *Tracker) Recent(ctx context.Context, limit int) ([]Visitor, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), ts
		FROM visitors
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("load visitors: %w", err)
	}
	defer rows.Close()

	out := []Visitor{}
	for rows.Next() {
		var v Visitor
		var ts int64
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			continue
		}
		v.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}
