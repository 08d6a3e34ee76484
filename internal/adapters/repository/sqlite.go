package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/okian/entalk/internal/domain/model"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

const timeLayout = time.RFC3339Nano

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore persists the engine state in a SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	q     querier
	tx    bool
	batch int
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and applies pending
// migrations. Pass MemoryDSN for a throwaway database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	cfg := sqliteConfig{busyTimeout: defaultBusyTimeout, journalMode: defaultJournalMode, queryBatch: defaultQueryBatch}
	for _, opt := range opts {
		opt(&cfg)
	}

	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps :memory: databases shared and avoids "database is locked".
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout.Milliseconds()),
		"PRAGMA journal_mode = " + cfg.journalMode,
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, q: db, batch: cfg.queryBatch}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.tx {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var applied int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&applied); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		err = s.Atomically(ctx, func(tx Store) error {
			q := tx.(*SQLiteStore).q
			if _, err := q.ExecContext(ctx, string(content)); err != nil {
				return err
			}
			_, err := q.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", version)
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
	}
	return nil
}

// AppliedMigrations returns applied migration versions in ascending order.
func (s *SQLiteStore) AppliedMigrations(ctx context.Context) ([]int, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Atomically runs fn inside a database transaction.
func (s *SQLiteStore) Atomically(ctx context.Context, fn func(tx Store) error) error {
	if s.tx {
		return fn(s)
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", wrapClosed(err))
	}
	if err := fn(&SQLiteStore{db: s.db, q: sqlTx, tx: true, batch: s.batch}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// --- Questions ---

const questionColumns = `id, text, occasion_id, category, phase, created_at, is_novelty, views, likes, dislikes, score`

func (s *SQLiteStore) Questions(ctx context.Context) ([]model.Question, error) {
	return s.queryQuestions(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY seq`)
}

func (s *SQLiteStore) QuestionsByOccasion(ctx context.Context, occasionID string) ([]model.Question, error) {
	return s.queryQuestions(ctx, `SELECT `+questionColumns+` FROM questions WHERE occasion_id = ? ORDER BY seq`, occasionID)
}

func (s *SQLiteStore) QuestionsByIDs(ctx context.Context, ids []string) ([]model.Question, error) {
	if len(ids) == 0 {
		return []model.Question{}, nil
	}
	byID := make(map[string]model.Question, len(ids))
	for _, chunk := range batches(ids, s.batch) {
		found, err := s.queryQuestions(ctx,
			`SELECT `+questionColumns+` FROM questions WHERE id IN (`+placeholders(len(chunk))+`)`, toArgs(chunk)...)
		if err != nil {
			return nil, err
		}
		for _, q := range found {
			byID[q.ID] = q
		}
	}
	out := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q.Clone())
		}
	}
	return out, nil
}

func (s *SQLiteStore) Question(ctx context.Context, id string) (model.Question, error) {
	qs, err := s.queryQuestions(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	if err != nil {
		return model.Question{}, err
	}
	if len(qs) == 0 {
		return model.Question{}, ErrNotFound
	}
	return qs[0], nil
}

func (s *SQLiteStore) AppendQuestion(ctx context.Context, q model.Question) error {
	return s.Atomically(ctx, func(tx Store) error {
		db := tx.(*SQLiteStore).q
		_, err := db.ExecContext(ctx, `INSERT INTO questions (`+questionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, q.Text, q.OccasionID, string(q.Category), string(q.Phase), formatTime(q.CreatedAt), q.IsNovelty,
			q.Performance.Views, q.Performance.Likes, q.Performance.Dislikes, q.Performance.Score,
		)
		if err != nil {
			return fmt.Errorf("inserting question %s: %w", q.ID, classify(err))
		}
		for _, u := range q.UsageHistory {
			if err := insertUsage(ctx, db, q.ID, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) AppendUsage(ctx context.Context, questionID string, u model.Usage) error {
	if err := s.requireQuestion(ctx, questionID); err != nil {
		return err
	}
	return insertUsage(ctx, s.q, questionID, u)
}

func insertUsage(ctx context.Context, q querier, questionID string, u model.Usage) error {
	_, err := q.ExecContext(ctx, `INSERT INTO question_usage (question_id, location_id, used_at) VALUES (?, ?, ?)`,
		questionID, u.LocationID, formatTime(u.At))
	if err != nil {
		return fmt.Errorf("inserting usage for %s: %w", questionID, classify(err))
	}
	return nil
}

func (s *SQLiteStore) UpdatePerformance(ctx context.Context, questionID string, p model.Performance) error {
	res, err := s.q.ExecContext(ctx, `UPDATE questions SET views = ?, likes = ?, dislikes = ?, score = ? WHERE id = ?`,
		p.Views, p.Likes, p.Dislikes, p.Score, questionID)
	if err != nil {
		return fmt.Errorf("updating performance of %s: %w", questionID, classify(err))
	}
	return expectOne(res, "question "+questionID)
}

func (s *SQLiteStore) UpdateScore(ctx context.Context, questionID string, score float64) error {
	res, err := s.q.ExecContext(ctx, `UPDATE questions SET score = ? WHERE id = ?`, score, questionID)
	if err != nil {
		return fmt.Errorf("updating score of %s: %w", questionID, classify(err))
	}
	return expectOne(res, "question "+questionID)
}

func (s *SQLiteStore) requireQuestion(ctx context.Context, id string) error {
	var n int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE id = ?`, id).Scan(&n); err != nil {
		return classify(err)
	}
	if n == 0 {
		return fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) queryQuestions(ctx context.Context, query string, args ...any) ([]model.Question, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", classify(err))
	}
	defer rows.Close()

	out := []model.Question{}
	index := make(map[string]int)
	for rows.Next() {
		var (
			q         model.Question
			category  string
			phase     string
			createdAt string
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.OccasionID, &category, &phase, &createdAt, &q.IsNovelty,
			&q.Performance.Views, &q.Performance.Likes, &q.Performance.Dislikes, &q.Performance.Score); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		q.Category = model.Category(category)
		q.Phase = model.Phase(phase)
		if q.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		index[q.ID] = len(out)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}
	if err := s.attachUsage(ctx, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) attachUsage(ctx context.Context, qs []model.Question, index map[string]int) error {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	for _, chunk := range batches(ids, s.batch) {
		if err := s.attachUsageBatch(ctx, qs, index, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) attachUsageBatch(ctx context.Context, qs []model.Question, index map[string]int, ids []string) error {
	rows, err := s.q.QueryContext(ctx,
		`SELECT question_id, location_id, used_at FROM question_usage WHERE question_id IN (`+placeholders(len(ids))+`) ORDER BY seq`,
		toArgs(ids)...)
	if err != nil {
		return fmt.Errorf("querying usage: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var questionID, locationID, at string
		if err := rows.Scan(&questionID, &locationID, &at); err != nil {
			return fmt.Errorf("scanning usage: %w", err)
		}
		ts, err := parseTime(at)
		if err != nil {
			return err
		}
		i := index[questionID]
		qs[i].UsageHistory = append(qs[i].UsageHistory, model.Usage{LocationID: locationID, At: ts})
	}
	return rows.Err()
}

// --- Feedback ---

func (s *SQLiteStore) AppendFeedback(ctx context.Context, f model.Feedback) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO feedback (id, question_id, occasion_id, location_id, created_at, polarity, submitter_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.QuestionID, f.OccasionID, f.LocationID, formatTime(f.At), string(f.Polarity), f.SubmitterID)
	if err != nil {
		return fmt.Errorf("inserting feedback %s: %w", f.ID, classify(err))
	}
	return nil
}

func (s *SQLiteStore) FeedbackForQuestion(ctx context.Context, questionID string) ([]model.Feedback, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, question_id, occasion_id, location_id, created_at, polarity, submitter_id
		FROM feedback WHERE question_id = ? ORDER BY seq`, questionID)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", classify(err))
	}
	defer rows.Close()

	var out []model.Feedback
	for rows.Next() {
		var f model.Feedback
		var at, polarity string
		if err := rows.Scan(&f.ID, &f.QuestionID, &f.OccasionID, &f.LocationID, &at, &polarity, &f.SubmitterID); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		if f.At, err = parseTime(at); err != nil {
			return nil, err
		}
		f.Polarity = model.Polarity(polarity)
		out = append(out, f)
	}
	return out, rows.Err()
}

// --- Decks ---

func (s *SQLiteStore) AppendDeck(ctx context.Context, d model.Deck) error {
	return s.Atomically(ctx, func(tx Store) error {
		db := tx.(*SQLiteStore).q
		_, err := db.ExecContext(ctx, `
			INSERT INTO decks (id, occasion_id, location_id, created_at, access_code, active)
			VALUES (?, ?, ?, ?, ?, ?)`,
			d.ID, d.OccasionID, d.LocationID, formatTime(d.CreatedAt), d.AccessCode, d.Active)
		if err != nil {
			return fmt.Errorf("inserting deck %s: %w", d.ID, classify(err))
		}
		for pos, qid := range d.QuestionIDs {
			if _, err := db.ExecContext(ctx,
				`INSERT INTO deck_questions (deck_id, position, question_id) VALUES (?, ?, ?)`, d.ID, pos, qid); err != nil {
				return fmt.Errorf("inserting deck question: %w", classify(err))
			}
		}
		return nil
	})
}

const deckColumns = `id, occasion_id, location_id, created_at, access_code, active`

func (s *SQLiteStore) DeckByAccessCode(ctx context.Context, code string) (model.Deck, error) {
	decks, err := s.queryDecks(ctx, `SELECT `+deckColumns+` FROM decks WHERE access_code = ?`, code)
	if err != nil {
		return model.Deck{}, err
	}
	if len(decks) == 0 {
		return model.Deck{}, ErrNotFound
	}
	return decks[0], nil
}

func (s *SQLiteStore) DecksByLocation(ctx context.Context, locationID string) ([]model.Deck, error) {
	return s.queryDecks(ctx, `SELECT `+deckColumns+` FROM decks WHERE location_id = ? ORDER BY seq`, locationID)
}

func (s *SQLiteStore) SetDeckActive(ctx context.Context, deckID string, active bool) error {
	res, err := s.q.ExecContext(ctx, `UPDATE decks SET active = ? WHERE id = ?`, active, deckID)
	if err != nil {
		return fmt.Errorf("updating deck %s: %w", deckID, classify(err))
	}
	return expectOne(res, "deck "+deckID)
}

func (s *SQLiteStore) AccessCodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM decks WHERE access_code = ?`, code).Scan(&n); err != nil {
		return false, fmt.Errorf("checking access code: %w", classify(err))
	}
	return n > 0, nil
}

func (s *SQLiteStore) queryDecks(ctx context.Context, query string, args ...any) ([]model.Deck, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying decks: %w", classify(err))
	}
	defer rows.Close()

	var out []model.Deck
	for rows.Next() {
		var d model.Deck
		var createdAt string
		if err := rows.Scan(&d.ID, &d.OccasionID, &d.LocationID, &createdAt, &d.AccessCode, &d.Active); err != nil {
			return nil, fmt.Errorf("scanning deck: %w", err)
		}
		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range out {
		if out[i].QuestionIDs, err = s.deckQuestionIDs(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStore) deckQuestionIDs(ctx context.Context, deckID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT question_id FROM deck_questions WHERE deck_id = ? ORDER BY position`, deckID)
	if err != nil {
		return nil, fmt.Errorf("querying deck questions: %w", classify(err))
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Locations ---

func (s *SQLiteStore) Locations(ctx context.Context) ([]model.Location, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, name, weekday FROM locations ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", classify(err))
	}
	defer rows.Close()

	var out []model.Location
	for rows.Next() {
		var l model.Location
		var weekday int
		if err := rows.Scan(&l.ID, &l.Name, &weekday); err != nil {
			return nil, err
		}
		l.Weekday = time.Weekday(weekday)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendLocation(ctx context.Context, l model.Location) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO locations (id, name, weekday) VALUES (?, ?, ?)`, l.ID, l.Name, int(l.Weekday))
	if err != nil {
		return fmt.Errorf("inserting location %s: %w", l.ID, classify(err))
	}
	return nil
}

// Stats counts rows per table.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.q.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM questions),
		(SELECT COUNT(*) FROM feedback),
		(SELECT COUNT(*) FROM decks),
		(SELECT COUNT(*) FROM locations)`).Scan(&st.Questions, &st.Feedback, &st.Decks, &st.Locations)
	if err != nil {
		return Stats{}, fmt.Errorf("counting rows: %w", classify(err))
	}
	return st, nil
}

// --- helpers ---

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// batches splits ids into runs of at most size.
func batches(ids []string, size int) [][]string {
	if size <= 0 {
		size = defaultQueryBatch
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for len(ids) > size {
		out = append(out, ids[:size:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// classify maps driver errors onto the package sentinels.
func classify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return wrapClosed(err)
}

func wrapClosed(err error) error {
	if errors.Is(err, sql.ErrConnDone) || (err != nil && strings.Contains(err.Error(), "database is closed")) {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return err
}
