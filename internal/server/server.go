package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"docketline/internal/adr"
	"docketline/internal/domain"
	"docketline/internal/engine"
	"docketline/internal/predict"
	"docketline/internal/priority"
	"docketline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"case not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Docketline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Docketline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerCases(group, cfg.Engine)
	registerInsights(group, cfg.Engine)
	registerHearings(group, cfg.Engine)
	registerSchedule(group, cfg.Engine)
	registerDashboard(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	startWebhookDispatcher(cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, engine.ErrSchedulingFailed) {
		return newAPIError(http.StatusInternalServerError, "scheduling_failed", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "disposed"):
		return newAPIError(http.StatusConflict, "case_disposed", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "must be") ||
		strings.Contains(lowered, "required") || strings.Contains(lowered, "future"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func bodyBytes(ctx context.Context) []byte {
	b, _ := ctx.Value(bodyBytesKey{}).([]byte)
	return b
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Docketline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerCases(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-case",
		Method:        http.MethodPost,
		Path:          "/cases",
		Summary:       "Register case",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateCaseRequest `json:"body"`
	}) (*struct {
		Body domain.Case `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		if input.Body.Type == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "type is required", nil)
		}
		actorID, authErr := requireRole(ctx, RoleRegistrar)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.CaseCreateOptions{
			Title:            input.Body.Title,
			Type:             input.Body.Type,
			FilingDate:       input.Body.FilingDate,
			UrgencyScore:     input.Body.UrgencyScore,
			HasSeniorCitizen: input.Body.HasSeniorCitizen,
			HasMinor:         input.Body.HasMinor,
			HealthEmergency:  input.Body.HealthEmergency,
			ClaimAmount:      input.Body.ClaimAmount,
			ActorID:          actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		if input.Body.CounselID != nil {
			opts.CounselID = *input.Body.CounselID
		}
		c, err := e.CreateCase(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Case `json:"body"`
		}{Body: c}, nil
	})

	type listCasesInput struct {
		Status      string   `query:"status"`
		Type        string   `query:"type"`
		Query       string   `query:"q"`
		MinPriority *float64 `query:"min_priority"`
		MaxPriority *float64 `query:"max_priority"`
		FiledFrom   string   `query:"filed_from"`
		FiledTo     string   `query:"filed_to"`
		Limit       int      `query:"limit" default:"50"`
	}
	listHandler := func(ctx context.Context, input *listCasesInput) (*struct {
		Body CaseListResponse `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListCases(ctx, repo.CaseFilters{
			Status:      input.Status,
			Type:        input.Type,
			Query:       input.Query,
			MinPriority: input.MinPriority,
			MaxPriority: input.MaxPriority,
			FiledFrom:   input.FiledFrom,
			FiledTo:     input.FiledTo,
			Limit:       input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		items = mapCases(items)
		return &struct {
			Body CaseListResponse `json:"body"`
		}{Body: CaseListResponse{Items: items, Count: len(items)}}, nil
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-cases",
		Method:      http.MethodGet,
		Path:        "/cases",
		Summary:     "List cases by priority",
		Errors:      []int{http.StatusBadRequest},
	}, listHandler)

	huma.Register(api, huma.Operation{
		OperationID: "search-cases",
		Method:      http.MethodGet,
		Path:        "/cases/search",
		Summary:     "Search cases",
		Errors:      []int{http.StatusBadRequest},
	}, listHandler)

	huma.Register(api, huma.Operation{
		OperationID: "get-case",
		Method:      http.MethodGet,
		Path:        "/cases/{id}",
		Summary:     "Case detail with insights",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body CaseDetailResponse `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		c, err := e.Repo.GetCase(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		hearings, err := e.Repo.ListHearings(ctx, repo.HearingFilters{CaseID: c.ID})
		if err != nil {
			return nil, handleError(err)
		}
		insights, err := caseInsights(ctx, e, c)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CaseDetailResponse `json:"body"`
		}{Body: CaseDetailResponse{
			Case:     c,
			Hearings: mapHearings(hearings),
			Insights: insights,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "adjourn-case",
		Method:      http.MethodPost,
		Path:        "/cases/{id}/adjourn",
		Summary:     "Record an adjournment",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body AdjournCaseRequest `json:"body"`
	}) (*struct {
		Body domain.Case `json:"body"`
	}, error) {
		actorID, authErr := requireRole(ctx, RoleRegistrar)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.AdjournCase(ctx, input.ID, input.Body.Reason, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Case `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dispose-case",
		Method:      http.MethodPost,
		Path:        "/cases/{id}/dispose",
		Summary:     "Dispose a case",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body DisposeCaseRequest `json:"body"`
	}) (*struct {
		Body domain.Case `json:"body"`
	}, error) {
		actorID, authErr := requireRole(ctx, RoleRegistrar)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.DisposeCase(ctx, input.ID, input.Body.Outcome, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Case `json:"body"`
		}{Body: c}, nil
	})
}

func caseInsights(ctx context.Context, e engine.Engine, c domain.Case) (CaseInsights, error) {
	age, err := engine.AgeYears(c.FilingDate, e.Now().UTC())
	if err != nil {
		return CaseInsights{}, err
	}
	urgency := c.UrgencyScore
	pr, err := priority.Score(priority.Input{
		FilingAgeYears:   age,
		UrgencyScore:     &urgency,
		AdjournmentCount: c.AdjournmentCount,
		HasSeniorCitizen: c.HasSeniorCitizen,
		HasMinor:         c.HasMinor,
		HealthEmergency:  c.HealthEmergency,
	})
	if err != nil {
		return CaseInsights{}, err
	}
	facts := adr.CaseFacts{Type: c.Type}
	if c.ClaimAmount != nil {
		facts.ClaimAmount = *c.ClaimAmount
	}
	evaluation := adr.New(e.Config).Evaluate(facts)
	predictor := predict.New(e.Config)
	predictor.Now = e.Now
	resolution, err := predictor.Resolution(predict.CaseFacts{
		Type:             c.Type,
		AdjournmentCount: c.AdjournmentCount,
		UrgencyScore:     c.UrgencyScore,
	})
	if err != nil {
		return CaseInsights{}, err
	}
	insights := CaseInsights{Priority: pr, ADR: evaluation, Resolution: resolution}
	if c.CounselID != nil {
		history, err := e.Repo.GetCounselHistory(ctx, *c.CounselID)
		switch {
		case err == nil:
			if ns, nsErr := predict.NoShow(predict.History{
				AbsenceRate:   history.AbsenceRate,
				RecentNoShows: history.RecentNoShows,
			}); nsErr == nil {
				insights.NoShow = &ns
			}
		case !errors.Is(err, repo.ErrNotFound):
			return CaseInsights{}, err
		}
	}
	return insights, nil
}

func registerInsights(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "insight-priority",
		Method:      http.MethodPost,
		Path:        "/insights/priority",
		Summary:     "Score hypothetical case attributes",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body PriorityInsightRequest `json:"body"`
	}) (*struct {
		Body priority.Result `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		res, err := priority.Score(priority.Input{
			FilingAgeYears:   input.Body.FilingAgeYears,
			UrgencyScore:     input.Body.UrgencyScore,
			AdjournmentCount: input.Body.AdjournmentCount,
			HasSeniorCitizen: input.Body.HasSeniorCitizen,
			HasMinor:         input.Body.HasMinor,
			HealthEmergency:  input.Body.HealthEmergency,
		})
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		return &struct {
			Body priority.Result `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "insight-adr",
		Method:      http.MethodPost,
		Path:        "/insights/adr",
		Summary:     "Evaluate ADR suitability",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ADRInsightRequest `json:"body"`
	}) (*struct {
		Body adr.Result `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if input.Body.Type == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "type is required", nil)
		}
		facts := adr.CaseFacts{Type: input.Body.Type}
		if input.Body.ClaimAmount != nil {
			facts.ClaimAmount = *input.Body.ClaimAmount
		}
		res := adr.New(e.Config).Evaluate(facts)
		return &struct {
			Body adr.Result `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "insight-resolution",
		Method:      http.MethodPost,
		Path:        "/insights/resolution",
		Summary:     "Predict resolution horizon",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ResolutionInsightRequest `json:"body"`
	}) (*struct {
		Body predict.ResolutionResult `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if input.Body.Type == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "type is required", nil)
		}
		predictor := predict.New(e.Config)
		predictor.Now = e.Now
		res, err := predictor.Resolution(predict.CaseFacts{
			Type:             input.Body.Type,
			AdjournmentCount: input.Body.AdjournmentCount,
			UrgencyScore:     input.Body.UrgencyScore,
		})
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		return &struct {
			Body predict.ResolutionResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "insight-no-show",
		Method:      http.MethodPost,
		Path:        "/insights/no-show",
		Summary:     "Predict counsel no-show risk",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body NoShowInsightRequest `json:"body"`
	}) (*struct {
		Body predict.NoShowResult `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		history := predict.History{}
		switch {
		case input.Body.CounselID != nil:
			rec, err := e.Repo.GetCounselHistory(ctx, *input.Body.CounselID)
			if err != nil {
				return nil, handleError(err)
			}
			history.AbsenceRate = rec.AbsenceRate
			history.RecentNoShows = rec.RecentNoShows
		case input.Body.AbsenceRate != nil && input.Body.RecentNoShows != nil:
			history.AbsenceRate = *input.Body.AbsenceRate
			history.RecentNoShows = *input.Body.RecentNoShows
		default:
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "counsel_id or absence_rate and recent_no_shows are required", nil)
		}
		res, err := predict.NoShow(history)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		return &struct {
			Body predict.NoShowResult `json:"body"`
		}{Body: res}, nil
	})
}

func registerHearings(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-hearings",
		Method:      http.MethodGet,
		Path:        "/hearings",
		Summary:     "Master hearing calendar",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		CaseID string `query:"case_id"`
		Status string `query:"status"`
		Limit  int    `query:"limit" default:"100"`
	}) (*struct {
		Body HearingListResponse `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListHearings(ctx, repo.HearingFilters{
			CaseID: input.CaseID,
			Status: input.Status,
			Limit:  input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		items = mapHearings(items)
		return &struct {
			Body HearingListResponse `json:"body"`
		}{Body: HearingListResponse{Items: items, Count: len(items)}}, nil
	})
}

func registerSchedule(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "auto-schedule",
		Method:      http.MethodPost,
		Path:        "/schedule/auto",
		Summary:     "Allocate hearing slots to pending cases",
		Errors: []int{
			http.StatusForbidden,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body AutoScheduleRequest `json:"body"`
	}) (*struct {
		Body AutoScheduleResponse `json:"body"`
	}, error) {
		actorID, authErr := requireRole(ctx, RoleRegistrar)
		if authErr != nil {
			return nil, authErr
		}
		allocs, err := e.AutoSchedule(ctx, input.Body.MaxBatch, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AutoScheduleResponse `json:"body"`
		}{Body: AutoScheduleResponse{ScheduledCount: len(allocs), Hearings: allocs}}, nil
	})
}

func registerDashboard(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "dashboard-stats",
		Method:      http.MethodGet,
		Path:        "/dashboard/stats",
		Summary:     "Docket statistics",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body repo.Stats `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		stats, err := e.Repo.DashboardStats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body repo.Stats `json:"body"`
		}{Body: stats}, nil
	})
}
