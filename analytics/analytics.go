// Package analytics keeps privacy-first visit counters in a local SQLite
// database. The content itself lives in the hosted backend; visit data is
// the one thing the site owns outright, so it stays on disk next to the
// process. Visitors are counted by a salted hash of IP and user agent,
// never by the raw address.
package analytics

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides visit recording and aggregation over one SQLite file.
type Store struct {
	db   *sql.DB
	salt string
	now  func() time.Time
}

// NewStore opens (or creates) the analytics database at path and loads
// the per-installation hashing salt, generating one on first run.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.loadSalt(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init salt: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			visitor_id TEXT NOT NULL,
			path TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
		CREATE INDEX IF NOT EXISTS idx_visits_path ON visits(path);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

func (s *Store) loadSalt() error {
	var salt string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = 'hash_salt'`).Scan(&salt)
	if err == sql.ErrNoRows {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return err
		}
		salt = hex.EncodeToString(b)
		if _, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES ('hash_salt', ?)`, salt); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	s.salt = salt
	return nil
}

// crawler user agents are counted nowhere; they would drown out the real
// ward traffic.
var botMarkers = []string{"bot", "crawler", "spider", "slurp", "facebookexternalhit", "curl/", "wget/"}

func isBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, m := range botMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}

// RecordVisit stores one page view. Bot traffic is dropped silently.
func (s *Store) RecordVisit(ip, userAgent, path string) error {
	if isBot(userAgent) {
		return nil
	}
	sum := sha256.Sum256([]byte(s.salt + ip + userAgent))
	visitor := hex.EncodeToString(sum[:16])
	_, err := s.db.Exec(
		`INSERT INTO visits (visitor_id, path, timestamp) VALUES (?, ?, ?)`,
		visitor, path, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// PageCount is one row of the top-pages table.
type PageCount struct {
	Path   string
	Visits int64
}

// DayCount is one day's visit total.
type DayCount struct {
	Day    string // YYYY-MM-DD
	Visits int64
}

// Stats aggregates the recorded visits.
type Stats struct {
	TotalVisits    int64
	UniqueVisitors int64
	TopPages       []PageCount
	Daily          []DayCount
}

// Stats aggregates visits over the trailing number of days.
func (s *Store) Stats(days int) (Stats, error) {
	since := s.now().UTC().AddDate(0, 0, -days)
	var st Stats

	err := s.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp >= ?`, since,
	).Scan(&st.TotalVisits, &st.UniqueVisitors)
	if err != nil {
		return Stats{}, fmt.Errorf("count visits: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT path, COUNT(*) AS n FROM visits WHERE timestamp >= ?
		 GROUP BY path ORDER BY n DESC LIMIT 10`, since,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("top pages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pg PageCount
		if err := rows.Scan(&pg.Path, &pg.Visits); err != nil {
			return Stats{}, err
		}
		st.TopPages = append(st.TopPages, pg)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	dayRows, err := s.db.Query(
		`SELECT date(timestamp), COUNT(*) FROM visits WHERE timestamp >= ?
		 GROUP BY date(timestamp) ORDER BY date(timestamp)`, since,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("daily visits: %w", err)
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var day DayCount
		if err := dayRows.Scan(&day.Day, &day.Visits); err != nil {
			return Stats{}, err
		}
		st.Daily = append(st.Daily, day)
	}
	return st, dayRows.Err()
}

// Prune deletes visits older than the retention window.
func (s *Store) Prune(retentionDays int) error {
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	_, err := s.db.Exec(`DELETE FROM visits WHERE timestamp < ?`, cutoff)
	return err
}

// StartPruneScheduler prunes on the given interval until the returned
// stop function is called.
func (s *Store) StartPruneScheduler(retentionDays int, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.Prune(retentionDays); err != nil {
					fmt.Printf("prune error: %v\n", err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
