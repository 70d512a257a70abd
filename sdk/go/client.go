package docketlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Docketline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Case represents the API case model (partial).
type Case struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Type             string   `json:"type"`
	FilingDate       string   `json:"filing_date"`
	Status           string   `json:"status"`
	UrgencyScore     int      `json:"urgency_score"`
	PriorityScore    float64  `json:"priority_score"`
	AdjournmentCount int      `json:"adjournment_count"`
	NextHearingDate  *string  `json:"next_hearing_date,omitempty"`
	ADREligible      bool     `json:"adr_eligible"`
	ClaimAmount      *float64 `json:"claim_amount,omitempty"`
	CounselID        *string  `json:"counsel_id,omitempty"`
}

// Hearing represents a cause-list entry.
type Hearing struct {
	ID        string `json:"id"`
	CaseID    string `json:"case_id"`
	Date      string `json:"date"`
	SlotLabel string `json:"slot_label"`
	Status    string `json:"status"`
	Notes     string `json:"notes,omitempty"`
}

// Allocation is one scheduling decision from an auto-schedule run.
type Allocation struct {
	CaseID        string  `json:"case_id"`
	CaseTitle     string  `json:"case_title"`
	PriorityScore float64 `json:"priority_score"`
	HearingID     string  `json:"hearing_id"`
	Date          string  `json:"date"`
	SlotLabel     string  `json:"slot_label"`
	CounselRisk   bool    `json:"counsel_risk"`
}

// PriorityResult is a priority score with its component breakdown.
type PriorityResult struct {
	Score     float64        `json:"score"`
	Tier      string         `json:"tier"`
	Breakdown map[string]any `json:"breakdown"`
}

// Stats summarizes the docket.
type Stats struct {
	TotalCases       int `json:"total_cases"`
	PendingCases     int `json:"pending_cases"`
	DisposedCases    int `json:"disposed_cases"`
	ADREligibleCases int `json:"adr_eligible_cases"`
	CriticalCount    int `json:"critical_count"`
	HighCount        int `json:"high_count"`
	NormalCount      int `json:"normal_count"`
}

// CreateCaseRequest is the intake payload.
type CreateCaseRequest struct {
	ID               *string  `json:"id,omitempty"`
	Title            string   `json:"title"`
	Type             string   `json:"type"`
	FilingDate       string   `json:"filing_date"`
	UrgencyScore     *int     `json:"urgency_score,omitempty"`
	HasSeniorCitizen bool     `json:"has_senior_citizen,omitempty"`
	HasMinor         bool     `json:"has_minor,omitempty"`
	HealthEmergency  bool     `json:"health_emergency,omitempty"`
	ClaimAmount      *float64 `json:"claim_amount,omitempty"`
	CounselID        *string  `json:"counsel_id,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateCase files a new case.
func (c *Client) CreateCase(ctx context.Context, req CreateCaseRequest) (Case, error) {
	var resp Case
	err := c.do(ctx, http.MethodPost, "v0/cases", req, &resp)
	return resp, err
}

// GetCase fetches a case by id.
func (c *Client) GetCase(ctx context.Context, id string) (Case, error) {
	var resp struct {
		Case Case `json:"case"`
	}
	endpoint := fmt.Sprintf("v0/cases/%s", url.PathEscape(id))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Case, err
}

// ListCases returns cases ordered by priority score.
func (c *Client) ListCases(ctx context.Context, status string, limit int) ([]Case, error) {
	var resp struct {
		Items []Case `json:"items"`
	}
	endpoint := "v0/cases"
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// AdjournCase sends a case back to the pending pool.
func (c *Client) AdjournCase(ctx context.Context, id, reason string) (Case, error) {
	var resp Case
	endpoint := fmt.Sprintf("v0/cases/%s/adjourn", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"reason": reason}, &resp)
	return resp, err
}

// DisposeCase marks a case disposed.
func (c *Client) DisposeCase(ctx context.Context, id, outcome string) (Case, error) {
	var resp Case
	endpoint := fmt.Sprintf("v0/cases/%s/dispose", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"outcome": outcome}, &resp)
	return resp, err
}

// AutoSchedule allocates hearing slots to pending cases. A zero maxBatch
// uses the server's configured batch size.
func (c *Client) AutoSchedule(ctx context.Context, maxBatch int) ([]Allocation, error) {
	var resp struct {
		Hearings []Allocation `json:"hearings"`
	}
	body := map[string]any{}
	if maxBatch > 0 {
		body["max_batch"] = maxBatch
	}
	err := c.do(ctx, http.MethodPost, "v0/schedule/auto", body, &resp)
	return resp.Hearings, err
}

// ListHearings returns the cause list in calendar order.
func (c *Client) ListHearings(ctx context.Context, caseID string) ([]Hearing, error) {
	var resp struct {
		Items []Hearing `json:"items"`
	}
	endpoint := "v0/hearings"
	if caseID != "" {
		endpoint += "?case_id=" + url.QueryEscape(caseID)
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// PriorityInsight scores a hypothetical case without persisting it.
func (c *Client) PriorityInsight(ctx context.Context, ageYears float64, urgency, adjournments int) (PriorityResult, error) {
	body := map[string]any{
		"filing_age_years":  ageYears,
		"urgency_score":     urgency,
		"adjournment_count": adjournments,
	}
	var resp PriorityResult
	err := c.do(ctx, http.MethodPost, "v0/insights/priority", body, &resp)
	return resp, err
}

// DashboardStats returns docket counts and tier distribution.
func (c *Client) DashboardStats(ctx context.Context) (Stats, error) {
	var resp Stats
	err := c.do(ctx, http.MethodGet, "v0/dashboard/stats", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
