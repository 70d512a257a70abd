// Package audit records tamper-evident audit events for case actions.
// Each event carries a SHA-256 digest of its payload so downstream
// consumers can detect modified records.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Event types emitted by the engine.
const (
	EventCaseCreated   = "case.created"
	EventCaseAdjourned = "case.adjourned"
	EventCaseDisposed  = "case.disposed"
	EventHearingSet    = "hearing.scheduled"
	EventScheduleRun   = "schedule.run"
	EventAPIKeyCreated = "apikey.created"
	EventAPIKeyDeleted = "apikey.deleted"
)

// Sink accepts audit events. Log must not participate in the caller's
// transaction: scheduling and case mutations commit first, then report.
type Sink interface {
	Log(ctx context.Context, evtType, actorID, caseID string, payload Payload) error
}

type Payload map[string]any

// Writer appends audit events to the local database.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Log(ctx context.Context, evtType, actorID, caseID string, payload Payload) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	sum := sha256.Sum256(data)
	_, err = w.DB.ExecContext(ctx, `INSERT INTO audit_events(ts,type,actor_id,case_id,payload_json,hash) VALUES (?,?,?,?,?,?)`,
		ts, evtType, actorID, nullable(caseID), string(data), hex.EncodeToString(sum[:]))
	return err
}

// Discard drops every event. Used by commands that operate on a
// read-only view of the docket.
type Discard struct{}

func (Discard) Log(ctx context.Context, evtType, actorID, caseID string, payload Payload) error {
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
