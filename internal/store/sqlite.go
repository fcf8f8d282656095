package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tripops/attribution/internal/models"
)

// ErrUnknownReference marks a branch/agent/country/platform code that does not
// exist in master data. The engine never sees unresolvable codes; they are
// rejected here at the reader boundary.
var ErrUnknownReference = errors.New("unknown reference")

// Store persists master data and the two immutable event streams in SQLite.
// Use ":memory:" as the path for tests.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS branches (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS agents (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS countries (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS platforms (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	-- Append-only campaign lines from media data entry.
	CREATE TABLE IF NOT EXISTS spend_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		branch TEXT NOT NULL REFERENCES branches(code),
		agent TEXT NOT NULL REFERENCES agents(code),
		target_country TEXT NOT NULL REFERENCES countries(code),
		destination_country TEXT NOT NULL REFERENCES countries(code),
		platform TEXT NOT NULL REFERENCES platforms(code),
		amount REAL NOT NULL CHECK (amount >= 0)
	);
	CREATE INDEX IF NOT EXISTS idx_spend_date ON spend_events(date);
	CREATE INDEX IF NOT EXISTS idx_spend_agent_date ON spend_events(agent, date);

	-- Append-only outcome rows from sales data entry.
	CREATE TABLE IF NOT EXISTS outcome_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		branch TEXT NOT NULL REFERENCES branches(code),
		agent TEXT NOT NULL REFERENCES agents(code),
		target_country TEXT NOT NULL REFERENCES countries(code),
		deals_closed INTEGER NOT NULL CHECK (deals_closed >= 0),
		whatsapp_messages INTEGER NOT NULL CHECK (whatsapp_messages >= 0),
		quality_rating TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_outcome_date ON outcome_events(date);
	CREATE INDEX IF NOT EXISTS idx_outcome_agent_date ON outcome_events(agent, date);

	CREATE TABLE IF NOT EXISTS deal_destinations (
		outcome_id INTEGER NOT NULL REFERENCES outcome_events(id),
		destination_country TEXT NOT NULL REFERENCES countries(code),
		deal_seq INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deal_dest_outcome ON deal_destinations(outcome_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

const dateLayout = "2006-01-02"

// --- master data ---

func (s *Store) upsertMaster(ctx context.Context, table, code, name string) error {
	q := fmt.Sprintf(`INSERT INTO %s (code, name) VALUES (?, ?)
		ON CONFLICT(code) DO UPDATE SET name = excluded.name`, table)
	_, err := s.db.ExecContext(ctx, q, code, name)
	return err
}

func (s *Store) UpsertBranch(ctx context.Context, code, name string) error {
	return s.upsertMaster(ctx, "branches", code, name)
}
func (s *Store) UpsertAgent(ctx context.Context, code, name string) error {
	return s.upsertMaster(ctx, "agents", code, name)
}
func (s *Store) UpsertCountry(ctx context.Context, code, name string) error {
	return s.upsertMaster(ctx, "countries", code, name)
}
func (s *Store) UpsertPlatform(ctx context.Context, code, name string) error {
	return s.upsertMaster(ctx, "platforms", code, name)
}

func (s *Store) exists(ctx context.Context, table, code string) (bool, error) {
	var one int
	q := fmt.Sprintf("SELECT 1 FROM %s WHERE code = ?", table)
	err := s.db.QueryRowContext(ctx, q, code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Refs collects master-data codes to validate in one pass.
type Refs struct {
	Branches  []string
	Agents    []string
	Countries []string
	Platforms []string
}

// CheckRefs verifies every code against master data and reports the first
// unknown one wrapped in ErrUnknownReference.
func (s *Store) CheckRefs(ctx context.Context, r Refs) error {
	check := func(table string, codes []string) error {
		for _, c := range codes {
			ok, err := s.exists(ctx, table, c)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s %q", ErrUnknownReference, strings.TrimSuffix(table, "s"), c)
			}
		}
		return nil
	}
	if err := check("branches", r.Branches); err != nil {
		return err
	}
	if err := check("agents", r.Agents); err != nil {
		return err
	}
	if err := check("countries", r.Countries); err != nil {
		return err
	}
	return check("platforms", r.Platforms)
}

// ResolveFilterRefs validates every master-data code referenced by a report's
// filter block before any computation starts.
func (s *Store) ResolveFilterRefs(ctx context.Context, f models.ReportFilters) error {
	countries := append(append([]string{}, f.TargetCountries...), f.DestinationCountries...)
	return s.CheckRefs(ctx, Refs{
		Branches:  f.Branches,
		Agents:    f.SalesAgents,
		Countries: countries,
		Platforms: f.Platforms,
	})
}

// --- event writes ---

// InsertSpendEvents persists a batch of campaign lines atomically.
func (s *Store) InsertSpendEvents(ctx context.Context, events []models.SpendEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO spend_events
		(date, branch, agent, target_country, destination_country, platform, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.Date.Format(dateLayout), e.BranchID, e.AgentID,
			e.TargetCountryID, e.DestinationCountryID, e.PlatformID, e.Amount); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertOutcomeEvents persists a batch of outcome rows and their destination
// allocations atomically: a failure on any row leaves nothing persisted,
// mirroring InsertSpendEvents.
func (s *Store) InsertOutcomeEvents(ctx context.Context, events []models.OutcomeEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, e := range events {
		if _, err := insertOutcome(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertOutcomeEvent persists one outcome row and its destination allocations
// atomically.
func (s *Store) InsertOutcomeEvent(ctx context.Context, e models.OutcomeEvent) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	id, err := insertOutcome(ctx, tx, e)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func insertOutcome(ctx context.Context, tx *sql.Tx, e models.OutcomeEvent) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO outcome_events
		(date, branch, agent, target_country, deals_closed, whatsapp_messages, quality_rating)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Date.Format(dateLayout), e.BranchID, e.AgentID, e.TargetCountryID,
		e.DealsClosed, e.WhatsappMessages, string(e.QualityRating))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, a := range e.DestinationAllocations {
		if _, err := tx.ExecContext(ctx, `INSERT INTO deal_destinations
			(outcome_id, destination_country, deal_seq) VALUES (?, ?, ?)`,
			id, a.DestinationCountryID, a.DealSequenceNumber); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// --- event reads (the Event Reader boundary) ---

// EventQuery is the SQL-level push-down: date range plus equality sets.
// Numeric-range and quality filters are applied later by the normalizer.
type EventQuery struct {
	From, To        time.Time
	Branches        []string
	Agents          []string
	TargetCountries []string
	Platforms       []string
}

func inClause(col string, vals []string, args *[]any) string {
	if len(vals) == 0 {
		return ""
	}
	ph := make([]string, len(vals))
	for i, v := range vals {
		ph[i] = "?"
		*args = append(*args, v)
	}
	return fmt.Sprintf(" AND %s IN (%s)", col, strings.Join(ph, ","))
}

// SpendEvents reads the filtered spend stream ordered by insertion.
func (s *Store) SpendEvents(ctx context.Context, q EventQuery) ([]models.SpendEvent, error) {
	args := []any{q.From.Format(dateLayout), q.To.Format(dateLayout)}
	sqlq := `SELECT id, date, branch, agent, target_country, destination_country, platform, amount
		FROM spend_events WHERE date >= ? AND date <= ?`
	sqlq += inClause("branch", q.Branches, &args)
	sqlq += inClause("agent", q.Agents, &args)
	sqlq += inClause("target_country", q.TargetCountries, &args)
	sqlq += inClause("platform", q.Platforms, &args)
	sqlq += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, sqlq, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SpendEvent
	for rows.Next() {
		var e models.SpendEvent
		var date string
		if err := rows.Scan(&e.ID, &date, &e.BranchID, &e.AgentID, &e.TargetCountryID,
			&e.DestinationCountryID, &e.PlatformID, &e.Amount); err != nil {
			return nil, err
		}
		if e.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("spend event %d: bad date %q: %w", e.ID, date, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// OutcomeEvents reads the filtered outcome stream with destination allocations
// attached, ordered by insertion.
func (s *Store) OutcomeEvents(ctx context.Context, q EventQuery) ([]models.OutcomeEvent, error) {
	args := []any{q.From.Format(dateLayout), q.To.Format(dateLayout)}
	sqlq := `SELECT id, date, branch, agent, target_country, deals_closed, whatsapp_messages, quality_rating
		FROM outcome_events WHERE date >= ? AND date <= ?`
	sqlq += inClause("branch", q.Branches, &args)
	sqlq += inClause("agent", q.Agents, &args)
	sqlq += inClause("target_country", q.TargetCountries, &args)
	sqlq += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, sqlq, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OutcomeEvent
	byID := map[int64]int{}
	for rows.Next() {
		var e models.OutcomeEvent
		var date, rating string
		if err := rows.Scan(&e.ID, &date, &e.BranchID, &e.AgentID, &e.TargetCountryID,
			&e.DealsClosed, &e.WhatsappMessages, &rating); err != nil {
			return nil, err
		}
		if e.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("outcome event %d: bad date %q: %w", e.ID, date, err)
		}
		e.QualityRating = models.QualityRating(rating)
		byID[e.ID] = len(out)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	aArgs := make([]any, 0, len(out))
	for id := range byID {
		ids = append(ids, "?")
		aArgs = append(aArgs, id)
	}
	aRows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT outcome_id, destination_country, deal_seq
		FROM deal_destinations WHERE outcome_id IN (%s) ORDER BY outcome_id, deal_seq`,
		strings.Join(ids, ",")), aArgs...)
	if err != nil {
		return nil, err
	}
	defer aRows.Close()
	for aRows.Next() {
		var id int64
		var a models.DestinationAllocation
		if err := aRows.Scan(&id, &a.DestinationCountryID, &a.DealSequenceNumber); err != nil {
			return nil, err
		}
		i := byID[id]
		out[i].DestinationAllocations = append(out[i].DestinationAllocations, a)
	}
	return out, aRows.Err()
}
