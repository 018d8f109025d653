package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"rewind/internal/models"
	"rewind/internal/providers"
	"rewind/internal/structures"
)

const timeLayout = time.RFC3339

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		export_root TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		total_messages INTEGER NOT NULL,
		total_attachments INTEGER NOT NULL,
		total_servers INTEGER NOT NULL,
		total_dms INTEGER NOT NULL,
		total_group_dms INTEGER NOT NULL,
		system_events INTEGER NOT NULL,
		earliest_message TEXT NOT NULL,
		latest_message TEXT NOT NULL,
		channels_processed INTEGER NOT NULL,
		channels_skipped INTEGER NOT NULL,
		records_skipped INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_user_year ON runs (user_id, year)`,
	`CREATE TABLE IF NOT EXISTS channels (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		folder TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		server_id TEXT NOT NULL,
		server_name TEXT NOT NULL,
		message_count INTEGER NOT NULL,
		messages_with_attachments INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		username TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		message_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		author_id TEXT NOT NULL,
		ts TEXT NOT NULL,
		content TEXT NOT NULL,
		flags INTEGER NOT NULL,
		event_type TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages (run_id, channel_id)`,
	`CREATE TABLE IF NOT EXISTS attachments (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		message_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		extension TEXT NOT NULL,
		size INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS emote_usages (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		message_id TEXT NOT NULL,
		name TEXT NOT NULL,
		emote_id TEXT NOT NULL
	)`,
}

// One materialized table per aggregate dimension keeps report queries
// trivial (SELECT key, count FROM agg_servers WHERE run_id = ?).
func init() {
	for _, name := range models.BucketNames {
		schema = append(schema, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			key TEXT NOT NULL,
			count INTEGER NOT NULL,
			bytes INTEGER NOT NULL
		)`, aggTable(name)))
		schema = append(schema, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%s_run ON %s (run_id)`, aggTable(name), aggTable(name)))
	}
}

func aggTable(bucket string) string {
	return "agg_" + bucket
}

type StoreInterface interface {
	SaveRun(run *models.AnalysisRun) (int64, error)
	LoadRun(userID string, year int) (*models.AnalysisRun, error)
	LatestRun() (*models.AnalysisRun, error)
	DB() *sql.DB
	Close() error
}

type SqliteStore struct {
	db     *sql.DB
	conf   *structures.StoreConfig
	logger providers.Logger
}

// NewSqliteStore opens (creating if needed) the database file and
// applies the schema.
func NewSqliteStore(conf *structures.StoreConfig, logger providers.Logger) (StoreInterface, error) {
	// Pragmas live in the DSN so every connection the pool hands out
	// carries them, not just the first.
	dsn := "file:" + conf.Path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrStoreWrite, conf.Path, err)
	}
	// sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: apply schema: %v", models.ErrStoreWrite, err)
		}
	}
	return &SqliteStore{db: db, conf: conf, logger: logger}, nil
}

// OpenReadOnly opens an existing database without write access, used by
// the query shell.
func OpenReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrStoreRead, path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrStoreRead, path, err)
	}
	return db, nil
}

func (s *SqliteStore) DB() *sql.DB {
	return s.db
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// SaveRun commits one finished run in a single transaction. Unless
// history keeping is enabled, earlier runs for the same user and year
// are removed in the same transaction, so readers only ever see the
// previous complete run or the new one.
func (s *SqliteStore) SaveRun(run *models.AnalysisRun) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", models.ErrStoreWrite, err)
	}
	defer tx.Rollback()

	if !s.conf.KeepHistory {
		if _, err := tx.Exec(`DELETE FROM runs WHERE user_id = ? AND year = ?`, run.UserID, run.Year); err != nil {
			return 0, fmt.Errorf("%w: replace prior runs: %v", models.ErrStoreWrite, err)
		}
	}

	res, err := tx.Exec(`INSERT INTO runs (
			user_id, year, export_root, started_at, finished_at,
			total_messages, total_attachments, total_servers, total_dms, total_group_dms,
			system_events, earliest_message, latest_message,
			channels_processed, channels_skipped, records_skipped
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.UserID, run.Year, run.ExportRoot,
		run.StartedAt.UTC().Format(timeLayout), time.Now().UTC().Format(timeLayout),
		run.Summary.TotalMessages, run.Summary.TotalAttachments,
		run.Summary.TotalServers, run.Summary.TotalDMs, run.Summary.TotalGroupDMs,
		run.Summary.SystemEvents,
		formatTime(run.Summary.EarliestMessage), formatTime(run.Summary.LatestMessage),
		run.Summary.ChannelsProcessed, run.Summary.ChannelsSkipped, run.Summary.RecordsSkipped,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: insert run: %v", models.ErrStoreWrite, err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: run id: %v", models.ErrStoreWrite, err)
	}

	if err := s.saveChannels(tx, runID, run); err != nil {
		return 0, err
	}
	if err := s.saveUsers(tx, runID, run); err != nil {
		return 0, err
	}
	if err := s.saveBuckets(tx, runID, run); err != nil {
		return 0, err
	}
	if len(run.Messages) > 0 {
		if err := s.saveMessages(tx, runID, run.Messages); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", models.ErrStoreWrite, err)
	}
	s.logger.Infof(providers.TypeStore, "Run %d saved for user %s year %d", runID, run.UserID, run.Year)
	return runID, nil
}

func (s *SqliteStore) saveChannels(tx *sql.Tx, runID int64, run *models.AnalysisRun) error {
	stmt, err := tx.Prepare(`INSERT INTO channels (
			run_id, folder, channel_id, kind, name, server_id, server_name,
			message_count, messages_with_attachments
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare channels: %v", models.ErrStoreWrite, err)
	}
	defer stmt.Close()
	for _, ch := range run.Channels {
		tally := run.ChannelStats[ch.FolderName]
		if _, err := stmt.Exec(runID, ch.FolderName, ch.ChannelID, ch.Kind.String(),
			ch.Name, ch.ServerID, ch.ServerName, tally.Messages, tally.WithAttachments); err != nil {
			return fmt.Errorf("%w: insert channel %s: %v", models.ErrStoreWrite, ch.FolderName, err)
		}
	}
	return nil
}

func (s *SqliteStore) saveUsers(tx *sql.Tx, runID int64, run *models.AnalysisRun) error {
	stmt, err := tx.Prepare(`INSERT INTO users (run_id, user_id, username) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare users: %v", models.ErrStoreWrite, err)
	}
	defer stmt.Close()
	for id, name := range run.Users {
		if _, err := stmt.Exec(runID, id, name); err != nil {
			return fmt.Errorf("%w: insert user %s: %v", models.ErrStoreWrite, id, err)
		}
	}
	return nil
}

func (s *SqliteStore) saveBuckets(tx *sql.Tx, runID int64, run *models.AnalysisRun) error {
	for _, name := range models.BucketNames {
		stmt, err := tx.Prepare(fmt.Sprintf(
			`INSERT INTO %s (run_id, key, count, bytes) VALUES (?, ?, ?, ?)`, aggTable(name)))
		if err != nil {
			return fmt.Errorf("%w: prepare %s: %v", models.ErrStoreWrite, aggTable(name), err)
		}
		for key, entry := range run.Bucket(name).GetData() {
			if _, err := stmt.Exec(runID, key, entry.Count, entry.Bytes); err != nil {
				stmt.Close()
				return fmt.Errorf("%w: insert %s: %v", models.ErrStoreWrite, aggTable(name), err)
			}
		}
		stmt.Close()
	}
	return nil
}

// saveMessages writes retained messages in multi-row chunks; single-row
// inserts are too slow for exports with hundreds of thousands of rows.
func (s *SqliteStore) saveMessages(tx *sql.Tx, runID int64, msgs []*models.Message) error {
	batch := s.conf.BatchSize
	if batch <= 0 {
		batch = 500
	}
	for start := 0; start < len(msgs); start += batch {
		end := start + batch
		if end > len(msgs) {
			end = len(msgs)
		}
		chunk := msgs[start:end]

		placeholders := make([]string, 0, len(chunk))
		args := make([]any, 0, len(chunk)*8)
		for _, m := range chunk {
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, runID, m.ID, m.ChannelID, m.AuthorID,
				m.Timestamp.UTC().Format(timeLayout), m.Content, int64(m.Flags), m.EventType)
		}
		query := `INSERT INTO messages (run_id, message_id, channel_id, author_id, ts, content, flags, event_type) VALUES ` +
			strings.Join(placeholders, ", ")
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("%w: insert messages: %v", models.ErrStoreWrite, err)
		}

		for _, m := range chunk {
			for _, att := range m.Attachments {
				if _, err := tx.Exec(`INSERT INTO attachments (run_id, message_id, filename, extension, size) VALUES (?, ?, ?, ?, ?)`,
					runID, m.ID, att.Filename, att.Extension, att.Size); err != nil {
					return fmt.Errorf("%w: insert attachment: %v", models.ErrStoreWrite, err)
				}
			}
			for _, emote := range m.Emotes {
				if _, err := tx.Exec(`INSERT INTO emote_usages (run_id, message_id, name, emote_id) VALUES (?, ?, ?, ?)`,
					runID, m.ID, emote.Name, emote.ID); err != nil {
					return fmt.Errorf("%w: insert emote usage: %v", models.ErrStoreWrite, err)
				}
			}
		}
	}
	return nil
}

// LoadRun reads back the most recent run for a user and year.
func (s *SqliteStore) LoadRun(userID string, year int) (*models.AnalysisRun, error) {
	row := s.db.QueryRow(`SELECT id, user_id, year, export_root, started_at,
			total_messages, total_attachments, total_servers, total_dms, total_group_dms,
			system_events, earliest_message, latest_message,
			channels_processed, channels_skipped, records_skipped
		FROM runs WHERE user_id = ? AND year = ? ORDER BY id DESC LIMIT 1`, userID, year)
	return s.readRun(row)
}

// LatestRun reads back the most recently finished run regardless of
// user and year.
func (s *SqliteStore) LatestRun() (*models.AnalysisRun, error) {
	row := s.db.QueryRow(`SELECT id, user_id, year, export_root, started_at,
			total_messages, total_attachments, total_servers, total_dms, total_group_dms,
			system_events, earliest_message, latest_message,
			channels_processed, channels_skipped, records_skipped
		FROM runs ORDER BY id DESC LIMIT 1`)
	return s.readRun(row)
}

func (s *SqliteStore) readRun(row *sql.Row) (*models.AnalysisRun, error) {
	var (
		runID                       int64
		userID, root                string
		year                        int
		startedAt, earliest, latest string
	)
	run := models.NewAnalysisRun("", 0, "")
	err := row.Scan(&runID, &userID, &year, &root, &startedAt,
		&run.Summary.TotalMessages, &run.Summary.TotalAttachments,
		&run.Summary.TotalServers, &run.Summary.TotalDMs, &run.Summary.TotalGroupDMs,
		&run.Summary.SystemEvents, &earliest, &latest,
		&run.Summary.ChannelsProcessed, &run.Summary.ChannelsSkipped, &run.Summary.RecordsSkipped)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no stored run", models.ErrStoreRead)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read run: %v", models.ErrStoreRead, err)
	}
	run.UserID = userID
	run.Year = year
	run.ExportRoot = root
	run.StartedAt = parseTime(startedAt)
	run.Summary.EarliestMessage = parseTime(earliest)
	run.Summary.LatestMessage = parseTime(latest)

	if err := s.readChannels(runID, run); err != nil {
		return nil, err
	}
	if err := s.readUsers(runID, run); err != nil {
		return nil, err
	}
	if err := s.readBuckets(runID, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SqliteStore) readChannels(runID int64, run *models.AnalysisRun) error {
	rows, err := s.db.Query(`SELECT folder, channel_id, kind, name, server_id, server_name,
			message_count, messages_with_attachments
		FROM channels WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("%w: read channels: %v", models.ErrStoreRead, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			desc  models.ChannelDescriptor
			kind  string
			tally models.ChannelStat
		)
		if err := rows.Scan(&desc.FolderName, &desc.ChannelID, &kind, &desc.Name,
			&desc.ServerID, &desc.ServerName, &tally.Messages, &tally.WithAttachments); err != nil {
			return fmt.Errorf("%w: scan channel: %v", models.ErrStoreRead, err)
		}
		desc.Kind = models.ParseChannelKind(kind)
		run.Channels = append(run.Channels, &desc)
		run.ChannelStats[desc.FolderName] = tally
	}
	return rows.Err()
}

func (s *SqliteStore) readUsers(runID int64, run *models.AnalysisRun) error {
	rows, err := s.db.Query(`SELECT user_id, username FROM users WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("%w: read users: %v", models.ErrStoreRead, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("%w: scan user: %v", models.ErrStoreRead, err)
		}
		run.Users[id] = name
	}
	return rows.Err()
}

func (s *SqliteStore) readBuckets(runID int64, run *models.AnalysisRun) error {
	for _, name := range models.BucketNames {
		rows, err := s.db.Query(fmt.Sprintf(
			`SELECT key, count, bytes FROM %s WHERE run_id = ?`, aggTable(name)), runID)
		if err != nil {
			return fmt.Errorf("%w: read %s: %v", models.ErrStoreRead, aggTable(name), err)
		}
		for rows.Next() {
			var (
				key          string
				count, bytes int64
			)
			if err := rows.Scan(&key, &count, &bytes); err != nil {
				rows.Close()
				return fmt.Errorf("%w: scan %s row: %v", models.ErrStoreRead, aggTable(name), err)
			}
			run.Bucket(name).Add(key, count, bytes)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("%w: read %s: %v", models.ErrStoreRead, aggTable(name), err)
		}
		rows.Close()
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
