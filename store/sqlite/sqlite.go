/*
Package sqlite provides a SQLite-backed implementation of store.Backend.

PURPOSE:

	System of record for legal rules, vacancy groups, occupations,
	candidates and call notices. The engine recomputes everything derived
	(balances, risk, suggestions) from these rows on every read.

KEY TABLES:

	legal_rules:     Statutory term table (reference data)
	vacancy_groups:  Authorized postings with slot count and ceiling
	occupations:     Slot histories
	candidates:      Waiting-list entries (CPF stored masked)
	call_notices:    Call acts and their deadlines

WRITE SERIALIZATION:
  - idx_one_active_occupation: partial unique index, at most one active
    occupation per (group, slot). Violations map to ErrSlotOccupied.
  - idx_occupation_sequence: sequence orders are never reused per slot.
  - version columns: UPDATE ... WHERE version = ? (compare-and-swap).
    Zero rows affected maps to ErrConcurrentModification.

DATES:

	Dates are stored as text. Known dates use yyyy-mm-dd; unknown dates
	keep their original text so they round-trip unchanged.

CONCURRENCY:

	Uses sync.RWMutex for thread-safety and a single connection, which
	also keeps ":memory:" databases consistent across calls.

USAGE:

	st, err := sqlite.New("./data/slots.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer st.Close()

MIGRATION:

	Schema is auto-migrated on New().

SEE ALSO:
  - store/store.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/store"
	"github.com/warp/slot-engine/tempcontract"
	"github.com/warp/slot-engine/waitlist"
)

// Store implements store.Backend using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Backend = (*Store)(nil)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS legal_rules (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		max_days INTEGER NOT NULL CHECK (max_days > 0),
		law_reference TEXT NOT NULL DEFAULT '',
		article_reference TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vacancy_groups (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		legal_basis TEXT NOT NULL DEFAULT '',
		max_term_days INTEGER NOT NULL CHECK (max_term_days > 0),
		slot_count INTEGER NOT NULL CHECK (slot_count >= 1),
		waiting_list_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vacancy_groups_list
		ON vacancy_groups(waiting_list_id, code);

	CREATE TABLE IF NOT EXISTS occupations (
		id TEXT PRIMARY KEY,
		vacancy_group_id TEXT NOT NULL REFERENCES vacancy_groups(id),
		slot_index INTEGER NOT NULL CHECK (slot_index >= 1),
		sequence_order INTEGER NOT NULL CHECK (sequence_order >= 1),
		person_id TEXT NOT NULL DEFAULT '',
		person_name TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL DEFAULT '',
		end_date TEXT NOT NULL DEFAULT '',
		projected_final_date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		quota_category TEXT NOT NULL DEFAULT 'AC',
		extension_required BOOLEAN NOT NULL DEFAULT FALSE,
		amendment_ref TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: at most one active occupation per slot
	CREATE UNIQUE INDEX IF NOT EXISTS idx_one_active_occupation
		ON occupations(vacancy_group_id, slot_index)
		WHERE status = 'active';

	-- Sequence orders are never reused within a slot
	CREATE UNIQUE INDEX IF NOT EXISTS idx_occupation_sequence
		ON occupations(vacancy_group_id, slot_index, sequence_order);

	CREATE TABLE IF NOT EXISTS candidates (
		id TEXT PRIMARY KEY,
		waiting_list_id TEXT NOT NULL,
		cpf_masked TEXT NOT NULL,
		name TEXT NOT NULL,
		quota_category TEXT NOT NULL DEFAULT 'AC',
		rank INTEGER NOT NULL CHECK (rank >= 1),
		status TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_candidates_list_rank
		ON candidates(waiting_list_id, rank);

	CREATE TABLE IF NOT EXISTS call_notices (
		id TEXT PRIMARY KEY,
		waiting_list_id TEXT NOT NULL,
		candidate_id TEXT NOT NULL,
		cpf_masked TEXT NOT NULL DEFAULT '',
		candidate_name TEXT NOT NULL DEFAULT '',
		act_reference TEXT NOT NULL,
		issued_on TEXT NOT NULL,
		possession_deadline TEXT NOT NULL,
		exercise_deadline TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_call_notices_list
		ON call_notices(waiting_list_id, status);
	CREATE INDEX IF NOT EXISTS idx_call_notices_candidate
		ON call_notices(candidate_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEGAL RULES
// =============================================================================

func (s *Store) SaveLegalRules(ctx context.Context, rules []tempcontract.LegalTermRule) error {
	return s.WithTx(ctx, func(tx store.Store) error {
		return tx.SaveLegalRules(ctx, rules)
	})
}

func saveLegalRules(ctx context.Context, q querier, rules []tempcontract.LegalTermRule) error {
	query := `
		INSERT INTO legal_rules (id, label, max_days, law_reference, article_reference, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			max_days = excluded.max_days,
			law_reference = excluded.law_reference,
			article_reference = excluded.article_reference,
			updated_at = excluded.updated_at
	`
	for _, r := range rules {
		if _, err := q.ExecContext(ctx, query, r.ID, r.Label, r.MaxDays, r.LawReference, r.ArticleReference, now()); err != nil {
			return fmt.Errorf("failed to save legal rule %s: %w", r.ID, err)
		}
	}
	return nil
}

func (s *Store) ListLegalRules(ctx context.Context) ([]tempcontract.LegalTermRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listLegalRules(ctx, s.db)
}

func listLegalRules(ctx context.Context, q querier) ([]tempcontract.LegalTermRule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, label, max_days, law_reference, article_reference
		FROM legal_rules ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list legal rules: %w", err)
	}
	defer rows.Close()

	var rules []tempcontract.LegalTermRule
	for rows.Next() {
		var r tempcontract.LegalTermRule
		if err := rows.Scan(&r.ID, &r.Label, &r.MaxDays, &r.LawReference, &r.ArticleReference); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// =============================================================================
// VACANCY GROUPS
// =============================================================================

func (s *Store) CreateVacancyGroup(ctx context.Context, g tempcontract.VacancyGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createVacancyGroup(ctx, s.db, g)
}

func createVacancyGroup(ctx context.Context, q querier, g tempcontract.VacancyGroup) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO vacancy_groups
		(id, code, legal_basis, max_term_days, slot_count, waiting_list_id, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.Code, g.LegalBasis, g.MaxTermDays, g.SlotCount, g.WaitingListID, g.Description, now())
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create vacancy group: %w", err)
	}
	return nil
}

const groupColumns = `id, code, legal_basis, max_term_days, slot_count, waiting_list_id, description`

func (s *Store) GetVacancyGroup(ctx context.Context, id generic.VacancyGroupID) (tempcontract.VacancyGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getVacancyGroup(ctx, s.db, id)
}

func getVacancyGroup(ctx context.Context, q querier, id generic.VacancyGroupID) (tempcontract.VacancyGroup, error) {
	row := q.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM vacancy_groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tempcontract.VacancyGroup{}, &generic.NotFoundError{Kind: "vacancy group", ID: string(id)}
	}
	return g, err
}

func (s *Store) ListVacancyGroups(ctx context.Context, listID generic.WaitingListID) ([]tempcontract.VacancyGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listVacancyGroups(ctx, s.db, listID)
}

func listVacancyGroups(ctx context.Context, q querier, listID generic.WaitingListID) ([]tempcontract.VacancyGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM vacancy_groups`
	var args []any
	if listID != "" {
		query += ` WHERE waiting_list_id = ?`
		args = append(args, listID)
	}
	query += ` ORDER BY code, id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vacancy groups: %w", err)
	}
	defer rows.Close()

	var groups []tempcontract.VacancyGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func scanGroup(row scanner) (tempcontract.VacancyGroup, error) {
	var g tempcontract.VacancyGroup
	err := row.Scan(&g.ID, &g.Code, &g.LegalBasis, &g.MaxTermDays, &g.SlotCount, &g.WaitingListID, &g.Description)
	return g, err
}

// =============================================================================
// OCCUPATIONS
// =============================================================================

func (s *Store) CreateOccupation(ctx context.Context, o tempcontract.Occupation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createOccupation(ctx, s.db, o)
}

func createOccupation(ctx context.Context, q querier, o tempcontract.Occupation) error {
	ts := now()
	_, err := q.ExecContext(ctx, `
		INSERT INTO occupations
		(id, vacancy_group_id, slot_index, sequence_order, person_id, person_name,
		 start_date, end_date, projected_final_date, status, quota_category,
		 extension_required, amendment_ref, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.ID, o.VacancyGroupID, o.SlotIndex, o.SequenceOrder, o.PersonID, o.PersonName,
		dateText(o.StartDate), dateText(o.EndDate), dateText(o.ProjectedFinalDate),
		o.Status, string(o.QuotaCategory), o.ExtensionRequired, o.AmendmentRef, o.Version,
		ts, ts,
	)
	if err != nil {
		return occupationWriteError(err, "create")
	}
	return nil
}

func (s *Store) UpdateOccupation(ctx context.Context, o tempcontract.Occupation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateOccupation(ctx, s.db, o)
}

func updateOccupation(ctx context.Context, q querier, o tempcontract.Occupation) error {
	res, err := q.ExecContext(ctx, `
		UPDATE occupations SET
			person_id = ?, person_name = ?, start_date = ?, end_date = ?,
			projected_final_date = ?, status = ?, quota_category = ?,
			extension_required = ?, amendment_ref = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		o.PersonID, o.PersonName, dateText(o.StartDate), dateText(o.EndDate),
		dateText(o.ProjectedFinalDate), o.Status, string(o.QuotaCategory),
		o.ExtensionRequired, o.AmendmentRef, now(),
		o.ID, o.Version,
	)
	if err != nil {
		return occupationWriteError(err, "update")
	}
	if err := checkSwapped(ctx, q, res, "occupations", string(o.ID)); err != nil {
		if generic.IsNotFound(err) {
			return &generic.NotFoundError{Kind: "occupation", ID: string(o.ID)}
		}
		return err
	}
	return nil
}

const occupationColumns = `id, vacancy_group_id, slot_index, sequence_order, person_id, person_name,
	start_date, end_date, projected_final_date, status, quota_category,
	extension_required, amendment_ref, version`

func (s *Store) GetOccupation(ctx context.Context, id generic.OccupationID) (tempcontract.Occupation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getOccupation(ctx, s.db, id)
}

func getOccupation(ctx context.Context, q querier, id generic.OccupationID) (tempcontract.Occupation, error) {
	row := q.QueryRowContext(ctx, `SELECT `+occupationColumns+` FROM occupations WHERE id = ?`, id)
	o, err := scanOccupation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tempcontract.Occupation{}, &generic.NotFoundError{Kind: "occupation", ID: string(id)}
	}
	return o, err
}

func (s *Store) ListOccupations(ctx context.Context, groupIDs ...generic.VacancyGroupID) ([]tempcontract.Occupation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listOccupations(ctx, s.db, groupIDs)
}

func listOccupations(ctx context.Context, q querier, groupIDs []generic.VacancyGroupID) ([]tempcontract.Occupation, error) {
	query := `SELECT ` + occupationColumns + ` FROM occupations`
	args := make([]any, len(groupIDs))
	if len(groupIDs) > 0 {
		for i, id := range groupIDs {
			args[i] = id
		}
		query += ` WHERE vacancy_group_id IN (?` + strings.Repeat(", ?", len(groupIDs)-1) + `)`
	}
	query += ` ORDER BY vacancy_group_id, slot_index, sequence_order`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list occupations: %w", err)
	}
	defer rows.Close()

	var occs []tempcontract.Occupation
	for rows.Next() {
		o, err := scanOccupation(rows)
		if err != nil {
			return nil, err
		}
		occs = append(occs, o)
	}
	return occs, rows.Err()
}

func scanOccupation(row scanner) (tempcontract.Occupation, error) {
	var (
		o                     tempcontract.Occupation
		start, end, projected string
		status, quotaCategory string
	)
	err := row.Scan(
		&o.ID, &o.VacancyGroupID, &o.SlotIndex, &o.SequenceOrder, &o.PersonID, &o.PersonName,
		&start, &end, &projected, &status, &quotaCategory,
		&o.ExtensionRequired, &o.AmendmentRef, &o.Version,
	)
	if err != nil {
		return tempcontract.Occupation{}, err
	}
	o.StartDate = generic.ParseDate(start)
	o.EndDate = generic.ParseDate(end)
	o.ProjectedFinalDate = generic.ParseDate(projected)
	if o.Status, err = tempcontract.ParseOccupationStatus(status); err != nil {
		return tempcontract.Occupation{}, fmt.Errorf("occupation %s: %w", o.ID, err)
	}
	if o.QuotaCategory, err = tempcontract.ParseQuotaCategory(quotaCategory); err != nil {
		return tempcontract.Occupation{}, fmt.Errorf("occupation %s: %w", o.ID, err)
	}
	return o, nil
}

func occupationWriteError(err error, action string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && isUniqueConstraintError(err) {
		msg := sqliteErr.Error()
		switch {
		case strings.Contains(msg, "sequence_order"):
			return generic.ErrConcurrentModification
		case strings.Contains(msg, "occupations.id"):
			return generic.ErrAlreadyExists
		default:
			return generic.ErrSlotOccupied
		}
	}
	return fmt.Errorf("failed to %s occupation: %w", action, err)
}

// =============================================================================
// CANDIDATES
// =============================================================================

func (s *Store) CreateCandidate(ctx context.Context, c waitlist.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createCandidate(ctx, s.db, c)
}

func createCandidate(ctx context.Context, q querier, c waitlist.Candidate) error {
	ts := now()
	_, err := q.ExecContext(ctx, `
		INSERT INTO candidates
		(id, waiting_list_id, cpf_masked, name, quota_category, rank, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.WaitingListID, waitlist.MaskCPF(string(c.CPF)), c.Name, string(c.QuotaCategory), c.Rank, c.Status, c.Version, ts, ts)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create candidate: %w", err)
	}
	return nil
}

func (s *Store) UpdateCandidate(ctx context.Context, c waitlist.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateCandidate(ctx, s.db, c)
}

func updateCandidate(ctx context.Context, q querier, c waitlist.Candidate) error {
	res, err := q.ExecContext(ctx, `
		UPDATE candidates SET
			name = ?, quota_category = ?, rank = ?, status = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, c.Name, string(c.QuotaCategory), c.Rank, c.Status, now(), c.ID, c.Version)
	if err != nil {
		return fmt.Errorf("failed to update candidate: %w", err)
	}
	if err := checkSwapped(ctx, q, res, "candidates", string(c.ID)); err != nil {
		if generic.IsNotFound(err) {
			return &generic.NotFoundError{Kind: "candidate", ID: string(c.ID)}
		}
		return err
	}
	return nil
}

const candidateColumns = `id, waiting_list_id, cpf_masked, name, quota_category, rank, status, version`

func (s *Store) GetCandidate(ctx context.Context, id generic.CandidateID) (waitlist.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCandidate(ctx, s.db, id)
}

func getCandidate(ctx context.Context, q querier, id generic.CandidateID) (waitlist.Candidate, error) {
	row := q.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return waitlist.Candidate{}, &generic.NotFoundError{Kind: "candidate", ID: string(id)}
	}
	return c, err
}

func (s *Store) ListCandidates(ctx context.Context, listID generic.WaitingListID) ([]waitlist.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCandidates(ctx, s.db, listID)
}

func listCandidates(ctx context.Context, q querier, listID generic.WaitingListID) ([]waitlist.Candidate, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+candidateColumns+` FROM candidates
		WHERE waiting_list_id = ? ORDER BY rank, id
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var cs []waitlist.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return cs, rows.Err()
}

func scanCandidate(row scanner) (waitlist.Candidate, error) {
	var (
		c                     waitlist.Candidate
		cpf, category, status string
	)
	if err := row.Scan(&c.ID, &c.WaitingListID, &cpf, &c.Name, &category, &c.Rank, &status, &c.Version); err != nil {
		return waitlist.Candidate{}, err
	}
	c.CPF = waitlist.MaskedCPF(cpf)
	var err error
	if c.QuotaCategory, err = tempcontract.ParseQuotaCategory(category); err != nil {
		return waitlist.Candidate{}, fmt.Errorf("candidate %s: %w", c.ID, err)
	}
	if c.Status, err = waitlist.ParseCandidateStatus(status); err != nil {
		return waitlist.Candidate{}, fmt.Errorf("candidate %s: %w", c.ID, err)
	}
	return c, nil
}

// =============================================================================
// CALL NOTICES
// =============================================================================

func (s *Store) CreateNotice(ctx context.Context, n waitlist.CallNotice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createNotice(ctx, s.db, n)
}

func createNotice(ctx context.Context, q querier, n waitlist.CallNotice) error {
	ts := now()
	_, err := q.ExecContext(ctx, `
		INSERT INTO call_notices
		(id, waiting_list_id, candidate_id, cpf_masked, candidate_name, act_reference,
		 issued_on, possession_deadline, exercise_deadline, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		n.ID, n.WaitingListID, n.CandidateID, string(n.CPF), n.CandidateName, n.ActReference,
		n.IssuedOn.String(), n.PossessionDeadline.String(), n.ExerciseDeadline.String(),
		n.Status, ts, ts,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create call notice: %w", err)
	}
	return nil
}

func (s *Store) UpdateNotice(ctx context.Context, n waitlist.CallNotice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateNotice(ctx, s.db, n)
}

func updateNotice(ctx context.Context, q querier, n waitlist.CallNotice) error {
	res, err := q.ExecContext(ctx, `
		UPDATE call_notices SET status = ?, act_reference = ?, updated_at = ? WHERE id = ?
	`, n.Status, n.ActReference, now(), n.ID)
	if err != nil {
		return fmt.Errorf("failed to update call notice: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return &generic.NotFoundError{Kind: "call notice", ID: string(n.ID)}
	}
	return nil
}

func (s *Store) ListNotices(ctx context.Context, listID generic.WaitingListID) ([]waitlist.CallNotice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listNotices(ctx, s.db, listID)
}

func listNotices(ctx context.Context, q querier, listID generic.WaitingListID) ([]waitlist.CallNotice, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, waiting_list_id, candidate_id, cpf_masked, candidate_name, act_reference,
		       issued_on, possession_deadline, exercise_deadline, status
		FROM call_notices WHERE waiting_list_id = ?
		ORDER BY issued_on, id
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list call notices: %w", err)
	}
	defer rows.Close()

	var ns []waitlist.CallNotice
	for rows.Next() {
		var (
			n                            waitlist.CallNotice
			cpf, status                  string
			issued, possession, exercise string
		)
		if err := rows.Scan(&n.ID, &n.WaitingListID, &n.CandidateID, &cpf, &n.CandidateName, &n.ActReference,
			&issued, &possession, &exercise, &status); err != nil {
			return nil, err
		}
		n.CPF = waitlist.MaskedCPF(cpf)
		n.IssuedOn = generic.ParseDate(issued).Point
		n.PossessionDeadline = generic.ParseDate(possession).Point
		n.ExerciseDeadline = generic.ParseDate(exercise).Point
		if n.Status, err = waitlist.ParseNoticeStatus(status); err != nil {
			return nil, fmt.Errorf("call notice %s: %w", n.ID, err)
		}
		ns = append(ns, n)
	}
	return ns, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs every operation on one *sql.Tx. The parent lock is held for
// its whole lifetime.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveLegalRules(ctx context.Context, rules []tempcontract.LegalTermRule) error {
	return saveLegalRules(ctx, ts.tx, rules)
}

func (ts *txStore) ListLegalRules(ctx context.Context) ([]tempcontract.LegalTermRule, error) {
	return listLegalRules(ctx, ts.tx)
}

func (ts *txStore) CreateVacancyGroup(ctx context.Context, g tempcontract.VacancyGroup) error {
	return createVacancyGroup(ctx, ts.tx, g)
}

func (ts *txStore) GetVacancyGroup(ctx context.Context, id generic.VacancyGroupID) (tempcontract.VacancyGroup, error) {
	return getVacancyGroup(ctx, ts.tx, id)
}

func (ts *txStore) ListVacancyGroups(ctx context.Context, listID generic.WaitingListID) ([]tempcontract.VacancyGroup, error) {
	return listVacancyGroups(ctx, ts.tx, listID)
}

func (ts *txStore) CreateOccupation(ctx context.Context, o tempcontract.Occupation) error {
	return createOccupation(ctx, ts.tx, o)
}

func (ts *txStore) UpdateOccupation(ctx context.Context, o tempcontract.Occupation) error {
	return updateOccupation(ctx, ts.tx, o)
}

func (ts *txStore) GetOccupation(ctx context.Context, id generic.OccupationID) (tempcontract.Occupation, error) {
	return getOccupation(ctx, ts.tx, id)
}

func (ts *txStore) ListOccupations(ctx context.Context, groupIDs ...generic.VacancyGroupID) ([]tempcontract.Occupation, error) {
	return listOccupations(ctx, ts.tx, groupIDs)
}

func (ts *txStore) CreateCandidate(ctx context.Context, c waitlist.Candidate) error {
	return createCandidate(ctx, ts.tx, c)
}

func (ts *txStore) UpdateCandidate(ctx context.Context, c waitlist.Candidate) error {
	return updateCandidate(ctx, ts.tx, c)
}

func (ts *txStore) GetCandidate(ctx context.Context, id generic.CandidateID) (waitlist.Candidate, error) {
	return getCandidate(ctx, ts.tx, id)
}

func (ts *txStore) ListCandidates(ctx context.Context, listID generic.WaitingListID) ([]waitlist.Candidate, error) {
	return listCandidates(ctx, ts.tx, listID)
}

func (ts *txStore) CreateNotice(ctx context.Context, n waitlist.CallNotice) error {
	return createNotice(ctx, ts.tx, n)
}

func (ts *txStore) UpdateNotice(ctx context.Context, n waitlist.CallNotice) error {
	return updateNotice(ctx, ts.tx, n)
}

func (ts *txStore) ListNotices(ctx context.Context, listID generic.WaitingListID) ([]waitlist.CallNotice, error) {
	return listNotices(ctx, ts.tx, listID)
}

// WithTx on a transactional view joins the enclosing transaction.
func (ts *txStore) WithTx(_ context.Context, fn func(store.Store) error) error {
	return fn(ts)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"call_notices", "candidates", "occupations", "vacancy_groups", "legal_rules"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// dateText stores known dates as yyyy-mm-dd and unknown ones verbatim.
func dateText(d generic.Date) string {
	return d.ISO()
}

// checkSwapped turns a zero-row compare-and-swap into the right error.
func checkSwapped(ctx context.Context, q querier, res sql.Result, table, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	var exists int
	err = q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.ErrNotFound
	}
	if err != nil {
		return err
	}
	return generic.ErrConcurrentModification
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
