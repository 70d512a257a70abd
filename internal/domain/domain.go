package domain

// Case lifecycle statuses.
const (
	CasePending   = "Pending"
	CaseListed    = "Listed"
	CaseAdjourned = "Adjourned"
	CaseDisposed  = "Disposed"
)

// Hearing statuses.
const (
	HearingScheduled = "Scheduled"
	HearingCompleted = "Completed"
	HearingAdjourned = "Adjourned"
)

type Case struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Type             string   `json:"type"`
	FilingDate       string   `json:"filing_date" format:"date"`
	Status           string   `json:"status" enum:"Pending,Listed,Adjourned,Disposed"`
	UrgencyScore     int      `json:"urgency_score"`
	PriorityScore    float64  `json:"priority_score"`
	AdjournmentCount int      `json:"adjournment_count"`
	NextHearingDate  *string  `json:"next_hearing_date,omitempty" format:"date"`
	ADREligible      bool     `json:"adr_eligible"`
	HasSeniorCitizen bool     `json:"has_senior_citizen"`
	HasMinor         bool     `json:"has_minor"`
	HealthEmergency  bool     `json:"health_emergency"`
	ClaimAmount      *float64 `json:"claim_amount,omitempty"`
	CounselID        *string  `json:"counsel_id,omitempty"`
	CreatedAt        string   `json:"created_at" format:"date-time"`
	UpdatedAt        string   `json:"updated_at" format:"date-time"`
}

type Hearing struct {
	ID        string `json:"id"`
	CaseID    string `json:"case_id"`
	Date      string `json:"date" format:"date"`
	SlotLabel string `json:"slot_label"`
	Status    string `json:"status" enum:"Scheduled,Completed,Adjourned"`
	Notes     string `json:"notes,omitempty"`
}

// CounselHistory is the appearance record the no-show predictor consumes.
type CounselHistory struct {
	CounselID     string  `json:"counsel_id"`
	AbsenceRate   float64 `json:"absence_rate"`
	RecentNoShows int     `json:"recent_no_shows"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

// AuditEvent is one record in the append-only audit log.
type AuditEvent struct {
	ID      int64  `json:"id"`
	TS      string `json:"ts" format:"date-time"`
	Type    string `json:"type"`
	ActorID string `json:"actor_id"`
	CaseID  string `json:"case_id,omitempty"`
	Payload string `json:"payload_json"`
	Hash    string `json:"hash"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
