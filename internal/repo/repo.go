package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"docketline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const caseColumns = `id,title,type,filing_date,status,urgency_score,priority_score,adjournment_count,next_hearing_date,adr_eligible,has_senior_citizen,has_minor,health_emergency,claim_amount,counsel_id,created_at,updated_at`

type caseRow interface {
	Scan(dest ...any) error
}

func scanCase(row caseRow) (domain.Case, error) {
	var c domain.Case
	var nextHearing, counselID sql.NullString
	var claim sql.NullFloat64
	err := row.Scan(&c.ID, &c.Title, &c.Type, &c.FilingDate, &c.Status, &c.UrgencyScore,
		&c.PriorityScore, &c.AdjournmentCount, &nextHearing, &c.ADREligible,
		&c.HasSeniorCitizen, &c.HasMinor, &c.HealthEmergency, &claim, &counselID,
		&c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if nextHearing.Valid {
		c.NextHearingDate = &nextHearing.String
	}
	if claim.Valid {
		c.ClaimAmount = &claim.Float64
	}
	if counselID.Valid {
		c.CounselID = &counselID.String
	}
	return c, nil
}

func (r Repo) InsertCase(ctx context.Context, c domain.Case) error {
	return insertCase(ctx, r.DB.ExecContext, c)
}

func (r Repo) InsertCaseTx(ctx context.Context, tx *sql.Tx, c domain.Case) error {
	return insertCase(ctx, tx.ExecContext, c)
}

type execFunc func(ctx context.Context, query string, args ...any) (sql.Result, error)

func insertCase(ctx context.Context, exec execFunc, c domain.Case) error {
	_, err := exec(ctx, `INSERT INTO cases(`+caseColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Title, c.Type, c.FilingDate, c.Status, c.UrgencyScore, c.PriorityScore,
		c.AdjournmentCount, nullableStringPtr(c.NextHearingDate), c.ADREligible,
		c.HasSeniorCitizen, c.HasMinor, c.HealthEmergency, nullableFloatPtr(c.ClaimAmount),
		nullableStringPtr(c.CounselID), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) GetCase(ctx context.Context, id string) (domain.Case, error) {
	return scanCase(r.DB.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id=?`, id))
}

func (r Repo) GetCaseTx(ctx context.Context, tx *sql.Tx, id string) (domain.Case, error) {
	return scanCase(tx.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id=?`, id))
}

// UpdateCaseTx rewrites all mutable case fields.
func (r Repo) UpdateCaseTx(ctx context.Context, tx *sql.Tx, c domain.Case) error {
	res, err := tx.ExecContext(ctx, `UPDATE cases SET title=?, type=?, filing_date=?, status=?, urgency_score=?, priority_score=?, adjournment_count=?, next_hearing_date=?, adr_eligible=?, has_senior_citizen=?, has_minor=?, health_emergency=?, claim_amount=?, counsel_id=?, updated_at=? WHERE id=?`,
		c.Title, c.Type, c.FilingDate, c.Status, c.UrgencyScore, c.PriorityScore,
		c.AdjournmentCount, nullableStringPtr(c.NextHearingDate), c.ADREligible,
		c.HasSeniorCitizen, c.HasMinor, c.HealthEmergency, nullableFloatPtr(c.ClaimAmount),
		nullableStringPtr(c.CounselID), c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCaseListedTx flips a case to Listed with its allocated hearing date.
func (r Repo) SetCaseListedTx(ctx context.Context, tx *sql.Tx, caseID, hearingDate, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE cases SET status=?, next_hearing_date=?, updated_at=? WHERE id=?`,
		domain.CaseListed, hearingDate, updatedAt, caseID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type CaseFilters struct {
	Status      string
	Type        string
	Query       string
	MinPriority *float64
	MaxPriority *float64
	FiledFrom   string
	FiledTo     string
	Limit       int
}

// ListCases returns cases ordered by priority descending, id ascending.
func (r Repo) ListCases(ctx context.Context, f CaseFilters) ([]domain.Case, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.Query != "" {
		clauses = append(clauses, "title LIKE ?")
		args = append(args, "%"+f.Query+"%")
	}
	if f.MinPriority != nil {
		clauses = append(clauses, "priority_score>=?")
		args = append(args, *f.MinPriority)
	}
	if f.MaxPriority != nil {
		clauses = append(clauses, "priority_score<=?")
		args = append(args, *f.MaxPriority)
	}
	if f.FiledFrom != "" {
		clauses = append(clauses, "filing_date>=?")
		args = append(args, f.FiledFrom)
	}
	if f.FiledTo != "" {
		clauses = append(clauses, "filing_date<=?")
		args = append(args, f.FiledTo)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + caseColumns + ` FROM cases ` + where + ` ORDER BY priority_score DESC, id ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// TopPendingTx returns up to limit Pending cases by priority descending,
// ties broken by id ascending so retries see the same order.
func (r Repo) TopPendingTx(ctx context.Context, tx *sql.Tx, limit int) ([]domain.Case, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE status=? ORDER BY priority_score DESC, id ASC LIMIT ?`,
		domain.CasePending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) InsertHearingTx(ctx context.Context, tx *sql.Tx, h domain.Hearing) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO hearings(id,case_id,date,slot_label,status,notes) VALUES (?,?,?,?,?,?)`,
		h.ID, h.CaseID, h.Date, h.SlotLabel, h.Status, nullable(h.Notes))
	return err
}

// AdjournScheduledHearingsTx marks every still-scheduled hearing for a case
// as adjourned.
func (r Repo) AdjournScheduledHearingsTx(ctx context.Context, tx *sql.Tx, caseID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE hearings SET status=? WHERE case_id=? AND status=?`,
		domain.HearingAdjourned, caseID, domain.HearingScheduled)
	return err
}

type HearingFilters struct {
	CaseID string
	Status string
	Limit  int
}

// ListHearings returns the master calendar: date ascending, then slot order.
// Slot labels are clock strings that do not sort lexically, so within a day
// rows keep insertion order, which is the allocator's slot order.
func (r Repo) ListHearings(ctx context.Context, f HearingFilters) ([]domain.Hearing, error) {
	var clauses []string
	var args []any
	if f.CaseID != "" {
		clauses = append(clauses, "case_id=?")
		args = append(args, f.CaseID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT id,case_id,date,slot_label,status,COALESCE(notes,'') FROM hearings ` + where + ` ORDER BY date ASC, rowid ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Hearing
	for rows.Next() {
		var h domain.Hearing
		if err := rows.Scan(&h.ID, &h.CaseID, &h.Date, &h.SlotLabel, &h.Status, &h.Notes); err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	return res, rows.Err()
}

func (r Repo) CountCasesByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM cases GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}

// Stats aggregates the dashboard counters.
type Stats struct {
	TotalCases       int `json:"total_cases"`
	PendingCases     int `json:"pending_cases"`
	DisposedCases    int `json:"disposed_cases"`
	ADREligibleCases int `json:"adr_eligible_cases"`
	CriticalCount    int `json:"critical_count"`
	HighCount        int `json:"high_count"`
	NormalCount      int `json:"normal_count"`
}

// DashboardStats counts cases per status and per priority tier. Tier counts
// only cover live (non-disposed) cases.
func (r Repo) DashboardStats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.DB.QueryRowContext(ctx, `SELECT
		count(*),
		count(*) FILTER (WHERE status=?),
		count(*) FILTER (WHERE status=?),
		count(*) FILTER (WHERE adr_eligible AND status!=?),
		count(*) FILTER (WHERE priority_score>=75 AND status!=?),
		count(*) FILTER (WHERE priority_score>=50 AND priority_score<75 AND status!=?),
		count(*) FILTER (WHERE priority_score<50 AND status!=?)
		FROM cases`,
		domain.CasePending, domain.CaseDisposed, domain.CaseDisposed,
		domain.CaseDisposed, domain.CaseDisposed, domain.CaseDisposed).
		Scan(&s.TotalCases, &s.PendingCases, &s.DisposedCases, &s.ADREligibleCases,
			&s.CriticalCount, &s.HighCount, &s.NormalCount)
	if err != nil {
		return Stats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	return s, nil
}

// ListAuditEvents returns the newest audit events first.
func (r Repo) ListAuditEvents(ctx context.Context, limit int, evtType, caseID string) ([]domain.AuditEvent, error) {
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if caseID != "" {
		clauses = append(clauses, "case_id=?")
		args = append(args, caseID)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := `SELECT id,ts,type,actor_id,COALESCE(case_id,''),payload_json,hash FROM audit_events ` + where + ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.ActorID, &e.CaseID, &e.Payload, &e.Hash); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// AuditEventsAfter returns audit events with IDs greater than the cursor in
// ascending order.
func (r Repo) AuditEventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,actor_id,COALESCE(case_id,''),payload_json,hash FROM audit_events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.ActorID, &e.CaseID, &e.Payload, &e.Hash); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestAuditEventID returns the most recent audit event ID.
func (r Repo) LatestAuditEventID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM audit_events`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
