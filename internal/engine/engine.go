package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docketline/internal/adr"
	"docketline/internal/audit"
	"docketline/internal/config"
	"docketline/internal/domain"
	"docketline/internal/predict"
	"docketline/internal/priority"
	"docketline/internal/repo"
	"docketline/internal/schedule"
)

// ErrSchedulingFailed wraps any failure inside an auto-schedule run. The
// run is all-or-nothing: on this error no hearing was created and no case
// changed status.
var ErrSchedulingFailed = errors.New("scheduling failed")

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Audit  audit.Sink
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Audit:  audit.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// AgeYears converts a filing date into the fractional age used by the
// priority scorer.
func AgeYears(filingDate string, now time.Time) (float64, error) {
	filed, err := time.Parse("2006-01-02", filingDate)
	if err != nil {
		return 0, fmt.Errorf("filing date: %w", err)
	}
	age := now.Sub(filed).Hours() / 24 / 365.25
	if age < 0 {
		return 0, fmt.Errorf("filing date %s is in the future", filingDate)
	}
	return age, nil
}

// CaseCreateOptions are parameters for registering a case.
type CaseCreateOptions struct {
	ID               string
	Title            string
	Type             string
	FilingDate       string
	UrgencyScore     *int
	HasSeniorCitizen bool
	HasMinor         bool
	HealthEmergency  bool
	ClaimAmount      *float64
	CounselID        string
	ActorID          string
}

// CreateCase registers a case, scores it, and flags ADR eligibility.
func (e Engine) CreateCase(ctx context.Context, opts CaseCreateOptions) (domain.Case, error) {
	if e.Config == nil {
		return domain.Case{}, errors.New("config not loaded")
	}
	if opts.Title == "" {
		return domain.Case{}, errors.New("title is required")
	}
	if opts.Type == "" {
		return domain.Case{}, errors.New("type is required")
	}
	if opts.ClaimAmount != nil && *opts.ClaimAmount < 0 {
		return domain.Case{}, errors.New("claim amount must be non-negative")
	}
	now := e.now().UTC()
	age, err := AgeYears(opts.FilingDate, now)
	if err != nil {
		return domain.Case{}, err
	}
	scored, err := priority.Score(priority.Input{
		FilingAgeYears:   age,
		UrgencyScore:     opts.UrgencyScore,
		HasSeniorCitizen: opts.HasSeniorCitizen,
		HasMinor:         opts.HasMinor,
		HealthEmergency:  opts.HealthEmergency,
	})
	if err != nil {
		return domain.Case{}, err
	}
	facts := adr.CaseFacts{Type: opts.Type}
	if opts.ClaimAmount != nil {
		facts.ClaimAmount = *opts.ClaimAmount
	}
	eligibility := adr.New(e.Config).Evaluate(facts)

	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	urgency := priority.DefaultUrgency
	if opts.UrgencyScore != nil {
		urgency = *opts.UrgencyScore
	}
	ts := now.Format(time.RFC3339)
	c := domain.Case{
		ID:               id,
		Title:            opts.Title,
		Type:             opts.Type,
		FilingDate:       opts.FilingDate,
		Status:           domain.CasePending,
		UrgencyScore:     urgency,
		PriorityScore:    scored.Score,
		ADREligible:      eligibility.Eligible,
		HasSeniorCitizen: opts.HasSeniorCitizen,
		HasMinor:         opts.HasMinor,
		HealthEmergency:  opts.HealthEmergency,
		ClaimAmount:      opts.ClaimAmount,
		CounselID:        optionalString(opts.CounselID),
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Case{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertCaseTx(ctx, tx, c); err != nil {
		return domain.Case{}, fmt.Errorf("insert case: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Case{}, err
	}
	e.log(ctx, audit.EventCaseCreated, opts.ActorID, c.ID, audit.Payload{
		"title": c.Title, "type": c.Type, "priority_score": c.PriorityScore, "tier": scored.Tier,
	})
	return c, nil
}

// AdjournCase records an adjournment: the scheduled hearing is marked
// adjourned, the counter climbs, the score is recomputed, and the case
// returns to the pending pool for re-allocation.
func (e Engine) AdjournCase(ctx context.Context, caseID, reason, actorID string) (domain.Case, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Case{}, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCaseTx(ctx, tx, caseID)
	if err != nil {
		return domain.Case{}, err
	}
	if c.Status == domain.CaseDisposed {
		return domain.Case{}, fmt.Errorf("case %s is disposed", caseID)
	}
	c.AdjournmentCount++
	c.NextHearingDate = nil
	c.Status = domain.CasePending
	if err := e.rescore(&c); err != nil {
		return domain.Case{}, err
	}
	c.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.AdjournScheduledHearingsTx(ctx, tx, c.ID); err != nil {
		return domain.Case{}, err
	}
	if err := e.Repo.UpdateCaseTx(ctx, tx, c); err != nil {
		return domain.Case{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Case{}, err
	}
	e.log(ctx, audit.EventCaseAdjourned, actorID, c.ID, audit.Payload{
		"reason": reason, "adjournment_count": c.AdjournmentCount, "priority_score": c.PriorityScore,
	})
	return c, nil
}

// DisposeCase closes a case. Disposal is terminal.
func (e Engine) DisposeCase(ctx context.Context, caseID, outcome, actorID string) (domain.Case, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Case{}, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetCaseTx(ctx, tx, caseID)
	if err != nil {
		return domain.Case{}, err
	}
	if c.Status == domain.CaseDisposed {
		return domain.Case{}, fmt.Errorf("case %s is already disposed", caseID)
	}
	c.Status = domain.CaseDisposed
	c.NextHearingDate = nil
	c.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpdateCaseTx(ctx, tx, c); err != nil {
		return domain.Case{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Case{}, err
	}
	e.log(ctx, audit.EventCaseDisposed, actorID, c.ID, audit.Payload{"outcome": outcome})
	return c, nil
}

func (e Engine) rescore(c *domain.Case) error {
	age, err := AgeYears(c.FilingDate, e.now().UTC())
	if err != nil {
		return err
	}
	urgency := c.UrgencyScore
	scored, err := priority.Score(priority.Input{
		FilingAgeYears:   age,
		UrgencyScore:     &urgency,
		AdjournmentCount: c.AdjournmentCount,
		HasSeniorCitizen: c.HasSeniorCitizen,
		HasMinor:         c.HasMinor,
		HealthEmergency:  c.HealthEmergency,
	})
	if err != nil {
		return err
	}
	c.PriorityScore = scored.Score
	return nil
}

// Allocation describes one hearing granted by an auto-schedule run.
type Allocation struct {
	CaseID        string  `json:"case_id"`
	CaseTitle     string  `json:"case_title"`
	PriorityScore float64 `json:"priority_score"`
	HearingID     string  `json:"hearing_id"`
	Date          string  `json:"date" format:"date"`
	SlotLabel     string  `json:"slot_label"`
	CounselRisk   bool    `json:"counsel_risk"`
}

// AutoSchedule allocates hearing slots to the highest-priority pending
// cases. Slots start tomorrow and skip the configured court holiday. The
// whole run commits atomically; a failure on any case aborts every
// allocation in the run.
func (e Engine) AutoSchedule(ctx context.Context, limit int, actorID string) ([]Allocation, error) {
	if e.Config == nil {
		return nil, errors.New("config not loaded")
	}
	if limit <= 0 {
		limit = e.Config.Scheduling.MaxBatch
	}
	now := e.now().UTC()
	cursor, err := schedule.NewCursor(e.Config.Scheduling.Slots, e.Config.SkipWeekday(), now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchedulingFailed, err)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchedulingFailed, err)
	}
	defer tx.Rollback()

	pending, err := e.Repo.TopPendingTx(ctx, tx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchedulingFailed, err)
	}
	if len(pending) == 0 {
		return []Allocation{}, nil
	}
	ts := now.Format(time.RFC3339)
	allocations := make([]Allocation, 0, len(pending))
	for _, c := range pending {
		slot := cursor.Next()
		h := domain.Hearing{
			ID:        uuid.New().String(),
			CaseID:    c.ID,
			Date:      slot.Date.Format("2006-01-02"),
			SlotLabel: slot.Label,
			Status:    domain.HearingScheduled,
		}
		if err := e.Repo.InsertHearingTx(ctx, tx, h); err != nil {
			return nil, fmt.Errorf("%w: insert hearing for case %s: %v", ErrSchedulingFailed, c.ID, err)
		}
		if err := e.Repo.SetCaseListedTx(ctx, tx, c.ID, h.Date, ts); err != nil {
			return nil, fmt.Errorf("%w: list case %s: %v", ErrSchedulingFailed, c.ID, err)
		}
		risk, err := e.counselRiskTx(ctx, tx, c)
		if err != nil {
			return nil, fmt.Errorf("%w: counsel risk for case %s: %v", ErrSchedulingFailed, c.ID, err)
		}
		allocations = append(allocations, Allocation{
			CaseID:        c.ID,
			CaseTitle:     c.Title,
			PriorityScore: c.PriorityScore,
			HearingID:     h.ID,
			Date:          h.Date,
			SlotLabel:     h.SlotLabel,
			CounselRisk:   risk,
		})
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchedulingFailed, err)
	}

	caseIDs := make([]string, len(allocations))
	for i, a := range allocations {
		caseIDs[i] = a.CaseID
	}
	e.log(ctx, audit.EventScheduleRun, actorID, "", audit.Payload{
		"allocated": len(allocations), "case_ids": caseIDs,
	})
	for _, a := range allocations {
		e.log(ctx, audit.EventHearingSet, actorID, a.CaseID, audit.Payload{
			"hearing_id": a.HearingID, "date": a.Date, "slot": a.SlotLabel,
		})
	}
	return allocations, nil
}

// counselRiskTx flags cases whose counsel carries a high no-show
// probability. The flag never blocks allocation.
func (e Engine) counselRiskTx(ctx context.Context, tx *sql.Tx, c domain.Case) (bool, error) {
	if c.CounselID == nil {
		return false, nil
	}
	h, err := e.Repo.GetCounselHistoryTx(ctx, tx, *c.CounselID)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	res, err := predict.NoShow(predict.History{AbsenceRate: h.AbsenceRate, RecentNoShows: h.RecentNoShows})
	if err != nil {
		return false, err
	}
	return res.Probability > 0.8, nil
}

// log appends an audit event best-effort. Audit write failures never undo
// a committed mutation.
func (e Engine) log(ctx context.Context, evtType, actorID, caseID string, payload audit.Payload) {
	if e.Audit == nil {
		return
	}
	_ = e.Audit.Log(ctx, evtType, actorID, caseID, payload)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
