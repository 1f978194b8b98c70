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
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"hireline/internal/domain"
	"hireline/internal/engine"
	"hireline/internal/engine/auth"
	"hireline/internal/notify"
	"hireline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig

	// Hub, when set, backs the live notification feed endpoint.
	Hub *notify.Hub
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"slot_conflict"`
	Message string         `json:"message" example:"interviewer u1 already has an interview at 2025-03-01 10:00"`
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

// New returns an HTTP handler exposing the Hireline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
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
	hcfg := huma.DefaultConfig("Hireline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerStatus(group, cfg.Engine)
	registerCandidates(group, cfg.Engine)
	registerStages(group, cfg.Engine)
	registerInterviews(group, cfg.Engine)
	registerUsers(group, cfg.Engine)
	registerVacancies(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerMe(group, cfg.Engine)
	if cfg.Hub != nil {
		registerNotificationStream(router, basePath, cfg.Engine, cfg.Hub)
	}
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
	var se *apiError
	if errors.As(err, &se) {
		return se
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{"permission": fe.Permission})
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	var nfe engine.NotFoundError
	if errors.As(err, &nfe) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), map[string]any{"kind": nfe.Kind, "id": nfe.ID})
	}
	var ce engine.ConflictError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusConflict, "slot_conflict", err.Error(), map[string]any{
			"interviewer_id": ce.InterviewerID,
			"existing_start": ce.Existing.ScheduledAt,
			"interview_id":   ce.Existing.ID,
		})
	}
	var pe engine.PreconditionError
	if errors.As(err, &pe) {
		return newAPIError(http.StatusUnprocessableEntity, "precondition_failed", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
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
		return "precondition_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func requirePermission(ctx context.Context, e engine.Engine, perm string) error {
	principal, authErr := principalFromRequest(ctx)
	if authErr != nil {
		return authErr
	}
	if principal.Role != "" && auth.Can(principal.Role, perm) {
		return nil
	}
	svc := auth.Service{DB: e.DB}
	ok, err := svc.ActorHasPermission(ctx, principal.ActorID, perm)
	if err != nil {
		return err
	}
	if !ok {
		return auth.ForbiddenError{Permission: perm}
	}
	return nil
}

func principalFromRequest(ctx context.Context) (Principal, error) {
	if p, ok := principalFromContext(ctx); ok && p.ActorID != "" {
		return p, nil
	}
	return Principal{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

func bodyBytes(ctx context.Context) []byte {
	if b, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return b
	}
	return nil
}

func parseTime(value, field string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, engine.ValidationError{Msg: fmt.Sprintf("%s must be RFC3339", field)}
	}
	return t, nil
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
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
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
    <title>Hireline API Docs</title>
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

func registerStatus(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Pipeline status summary",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermEventsRead); err != nil {
			return nil, handleError(err)
		}
		counts, err := e.Repo.CountCandidatesByStatus(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: map[string]any{
			"org_id":           e.Config.Org.ID,
			"candidate_counts": counts,
		}}, nil
	})
}

func registerCandidates(api huma.API, e engine.Engine) {
	type candidatePath struct {
		CandidateID string `path:"candidate_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID:   "create-candidate",
		Method:        http.MethodPost,
		Path:          "/candidates",
		Summary:       "Create candidate with stage chain",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateCandidateRequest `json:"body"`
	}) (*struct {
		Body CandidateResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if err := requirePermission(ctx, e, auth.PermCandidateManage); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.CandidateCreateOptions{
			VacancyID: input.Body.VacancyID,
			FullName:  input.Body.FullName,
			Chain:     stageRefs(input.Body.Chain),
			ActorID:   actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		if input.Body.Email != nil {
			opts.Email = *input.Body.Email
		}
		c, err := e.CreateCandidate(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CandidateResponse `json:"body"`
		}{Body: candidateResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-candidates",
		Method:      http.MethodGet,
		Path:        "/candidates",
		Summary:     "List candidates",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		VacancyID       string `query:"vacancy_id"`
		Status          string `query:"status"`
		Limit           int    `query:"limit"`
		CursorCreatedAt string `query:"cursor_created_at"`
		CursorID        string `query:"cursor_id"`
	}) (*struct {
		Body []CandidateResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermEventsRead); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListCandidates(ctx, repo.CandidateFilters{
			VacancyID:       input.VacancyID,
			Status:          input.Status,
			Limit:           input.Limit,
			CursorCreatedAt: input.CursorCreatedAt,
			CursorID:        input.CursorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []CandidateResponse `json:"body"`
		}{Body: mapCandidates(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-candidate",
		Method:      http.MethodGet,
		Path:        "/candidates/{candidate_id}",
		Summary:     "Get candidate",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *candidatePath) (*struct {
		Body CandidateResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermEventsRead); err != nil {
			return nil, handleError(err)
		}
		c, err := e.Repo.GetCandidate(ctx, input.CandidateID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CandidateResponse `json:"body"`
		}{Body: candidateResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-candidate",
		Method:      http.MethodDelete,
		Path:        "/candidates/{candidate_id}",
		Summary:     "Delete candidate and its stages",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *candidatePath) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermCandidateManage); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteCandidate(ctx, input.CandidateID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "deleted"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-chain",
		Method:      http.MethodGet,
		Path:        "/candidates/{candidate_id}/chain",
		Summary:     "List candidate stages in order",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *candidatePath) (*struct {
		Body []StageResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermEventsRead); err != nil {
			return nil, handleError(err)
		}
		if _, err := e.Repo.GetCandidate(ctx, input.CandidateID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListStages(ctx, input.CandidateID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []StageResponse `json:"body"`
		}{Body: mapStages(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-chain",
		Method:      http.MethodPut,
		Path:        "/candidates/{candidate_id}/chain",
		Summary:     "Replace candidate stage chain",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		CandidateID string             `path:"candidate_id"`
		Body        UpdateChainRequest `json:"body"`
	}) (*struct {
		Body []StageResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermChainEdit); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		stages, err := e.MaterializeChain(ctx, input.CandidateID, stageRefs(input.Body.Chain), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []StageResponse `json:"body"`
		}{Body: mapStages(stages)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-stage-history",
		Method:      http.MethodGet,
		Path:        "/candidates/{candidate_id}/history",
		Summary:     "List archived stage snapshots",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *candidatePath) (*struct {
		Body []StageHistoryResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermEventsRead); err != nil {
			return nil, handleError(err)
		}
		if _, err := e.Repo.GetCandidate(ctx, input.CandidateID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListStageHistory(ctx, input.CandidateID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []StageHistoryResponse `json:"body"`
		}{Body: mapStageHistory(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-candidate-interviews",
		Method:      http.MethodGet,
		Path:        "/candidates/{candidate_id}/interviews",
		Summary:     "List candidate interviews",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *candidatePath) (*struct {
		Body []InterviewResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermEventsRead); err != nil {
			return nil, handleError(err)
		}
		if _, err := e.Repo.GetCandidate(ctx, input.CandidateID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListInterviewsByCandidate(ctx, input.CandidateID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []InterviewResponse `json:"body"`
		}{Body: mapInterviews(items)}, nil
	})

	transition := func(opID, urlPath, summary, perm string, apply func(ctx context.Context, candidateID, actorID string) (domain.Candidate, error)) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        urlPath,
			Summary:     summary,
			Errors: []int{
				http.StatusForbidden,
				http.StatusNotFound,
				http.StatusUnprocessableEntity,
			},
		}, func(ctx context.Context, input *candidatePath) (*struct {
			Body CandidateResponse `json:"body"`
		}, error) {
			if err := requirePermission(ctx, e, perm); err != nil {
				return nil, handleError(err)
			}
			actorID, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			c, err := apply(ctx, input.CandidateID, actorID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body CandidateResponse `json:"body"`
			}{Body: candidateResponse(c)}, nil
		})
	}

	transition("move-to-documentation", "/candidates/{candidate_id}/documentation",
		"Move candidate to documentation", auth.PermCandidateHire, e.MoveToDocumentation)
	transition("hire-candidate", "/candidates/{candidate_id}/hire",
		"Complete documentation and hire", auth.PermCandidateHire, e.CompleteDocumentation)
	transition("archive-candidate", "/candidates/{candidate_id}/archive",
		"Archive candidate", auth.PermCandidateManage, e.Archive)

	huma.Register(api, huma.Operation{
		OperationID: "dismiss-candidate",
		Method:      http.MethodPost,
		Path:        "/candidates/{candidate_id}/dismiss",
		Summary:     "Dismiss a hired candidate",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		CandidateID string         `path:"candidate_id"`
		Body        DismissRequest `json:"body"`
	}) (*struct {
		Body CandidateResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermCandidateHire); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var at *time.Time
		if input.Body.DismissedAt != nil {
			t, err := parseTime(*input.Body.DismissedAt, "dismissed_at")
			if err != nil {
				return nil, handleError(err)
			}
			at = &t
		}
		c, err := e.Dismiss(ctx, input.CandidateID, input.Body.Reason, at, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CandidateResponse `json:"body"`
		}{Body: candidateResponse(c)}, nil
	})
}

func registerStages(api huma.API, e engine.Engine) {
	type stagePath struct {
		StageID string `path:"stage_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-stage",
		Method:      http.MethodGet,
		Path:        "/stages/{stage_id}",
		Summary:     "Get stage",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *stagePath) (*struct {
		Body StageResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermEventsRead); err != nil {
			return nil, handleError(err)
		}
		s, err := e.Repo.GetStage(ctx, input.StageID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StageResponse `json:"body"`
		}{Body: stageResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "activate-stage",
		Method:      http.MethodPost,
		Path:        "/stages/{stage_id}/activate",
		Summary:     "Activate a waiting stage",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *stagePath) (*struct {
		Body StageResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermCandidateManage); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.ActivateStage(ctx, input.StageID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StageResponse `json:"body"`
		}{Body: stageResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "book-interview",
		Method:        http.MethodPost,
		Path:          "/stages/{stage_id}/interview",
		Summary:       "Book an interview for the stage",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		StageID string               `path:"stage_id"`
		Body    BookInterviewRequest `json:"body"`
	}) (*struct {
		Body InterviewResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermInterviewBook); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		at, err := parseTime(input.Body.ScheduledAt, "scheduled_at")
		if err != nil {
			return nil, handleError(err)
		}
		opts := engine.BookOptions{
			StageID:     input.StageID,
			ScheduledAt: at,
			ActorID:     actorID,
		}
		if input.Body.InterviewerID != nil {
			opts.InterviewerID = *input.Body.InterviewerID
		}
		if input.Body.DurationMinutes != nil {
			opts.DurationMinutes = *input.Body.DurationMinutes
		}
		if input.Body.Notes != nil {
			opts.Notes = *input.Body.Notes
		}
		iv, err := e.BookInterview(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InterviewResponse `json:"body"`
		}{Body: interviewResponse(iv)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "record-outcome",
		Method:      http.MethodPost,
		Path:        "/stages/{stage_id}/outcome",
		Summary:     "Record stage outcome",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		StageID string         `path:"stage_id"`
		Body    OutcomeRequest `json:"body"`
	}) (*struct {
		Body StageResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermOutcomeRecord); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.OutcomeOptions{
			StageID:  input.StageID,
			Outcome:  input.Body.Outcome,
			Comments: input.Body.Comments,
			Rating:   input.Body.Rating,
			ActorID:  actorID,
		}
		if input.Body.CompletedAt != nil {
			t, err := parseTime(*input.Body.CompletedAt, "completed_at")
			if err != nil {
				return nil, handleError(err)
			}
			opts.CompletedAt = &t
		}
		s, err := e.RecordOutcome(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StageResponse `json:"body"`
		}{Body: stageResponse(s)}, nil
	})
}

func registerInterviews(api huma.API, e engine.Engine) {
	type interviewPath struct {
		InterviewID string `path:"interview_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-interview",
		Method:      http.MethodGet,
		Path:        "/interviews/{interview_id}",
		Summary:     "Get interview",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *interviewPath) (*struct {
		Body InterviewResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermEventsRead); err != nil {
			return nil, handleError(err)
		}
		iv, err := e.Repo.GetInterview(ctx, input.InterviewID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InterviewResponse `json:"body"`
		}{Body: interviewResponse(iv)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reschedule-interview",
		Method:      http.MethodPost,
		Path:        "/interviews/{interview_id}/reschedule",
		Summary:     "Move interview to a new slot",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		InterviewID string                     `path:"interview_id"`
		Body        RescheduleInterviewRequest `json:"body"`
	}) (*struct {
		Body InterviewResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermInterviewBook); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		at, err := parseTime(input.Body.ScheduledAt, "scheduled_at")
		if err != nil {
			return nil, handleError(err)
		}
		iv, err := e.RescheduleInterview(ctx, input.InterviewID, at, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InterviewResponse `json:"body"`
		}{Body: interviewResponse(iv)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-interview",
		Method:      http.MethodDelete,
		Path:        "/interviews/{interview_id}",
		Summary:     "Cancel interview and free the slot",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *interviewPath) (*struct {
		Body InterviewResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermInterviewBook); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		iv, err := e.CancelInterview(ctx, input.InterviewID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InterviewResponse `json:"body"`
		}{Body: interviewResponse(iv)}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Register user",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateUserRequest `json:"body"`
	}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermUserManage); err != nil {
			return nil, handleError(err)
		}
		u := domain.User{
			FullName: input.Body.FullName,
			Email:    input.Body.Email,
			Role:     input.Body.Role,
		}
		if input.Body.ID != nil {
			u.ID = *input.Body.ID
		}
		created, err := e.CreateUser(ctx, u)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: userResponse(created)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
	}, func(ctx context.Context, input *struct {
		Role string `query:"role"`
	}) (*struct {
		Body []UserResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermEventsRead); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListUsers(ctx, input.Role)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]UserResponse, 0, len(items))
		for _, u := range items {
			out = append(out, userResponse(u))
		}
		return &struct {
			Body []UserResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "interviewer-schedule",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/schedule",
		Summary:     "List an interviewer's interviews",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body []InterviewResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermEventsRead); err != nil {
			return nil, handleError(err)
		}
		if _, err := e.Repo.GetUser(ctx, input.UserID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListInterviewsByInterviewer(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []InterviewResponse `json:"body"`
		}{Body: mapInterviews(items)}, nil
	})
}

func registerVacancies(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-vacancy",
		Method:        http.MethodPost,
		Path:          "/vacancies",
		Summary:       "Create vacancy",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateVacancyRequest `json:"body"`
	}) (*struct {
		Body VacancyResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermVacancyManage); err != nil {
			return nil, handleError(err)
		}
		id := ""
		if input.Body.ID != nil {
			id = *input.Body.ID
		}
		v, err := e.CreateVacancy(ctx, id, input.Body.Title)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body VacancyResponse `json:"body"`
		}{Body: vacancyResponse(v)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-vacancies",
		Method:      http.MethodGet,
		Path:        "/vacancies",
		Summary:     "List vacancies",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []VacancyResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermEventsRead); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListVacancies(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]VacancyResponse, 0, len(items))
		for _, v := range items {
			out = append(out, vacancyResponse(v))
		}
		return &struct {
			Body []VacancyResponse `json:"body"`
		}{Body: out}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List events",
	}, func(ctx context.Context, input *struct {
		Limit       int    `query:"limit"`
		From        int64  `query:"from"`
		CandidateID string `query:"candidate_id"`
		Type        string `query:"type"`
		EntityKind  string `query:"entity_kind"`
		EntityID    string `query:"entity_id"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		if err := requirePermission(ctx, e, auth.PermEventsRead); err != nil {
			return nil, handleError(err)
		}
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		var items []domain.Event
		var err error
		if input.From > 0 {
			items, err = e.Repo.LatestEventsFrom(ctx, limit, input.From, input.CandidateID, input.Type, input.EntityKind, input.EntityID)
		} else {
			items, err = e.Repo.LatestEvents(ctx, limit, input.CandidateID, input.Type, input.EntityKind, input.EntityID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: mapEvents(items)}, nil
	})
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		principal, err := principalFromRequest(ctx)
		if err != nil {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		role := principal.Role
		if role == "" {
			svc := auth.Service{DB: e.DB}
			r, err := svc.ActorRole(ctx, principal.ActorID)
			if err != nil {
				return nil, handleError(err)
			}
			role = r
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: map[string]any{
			"actor_id":    principal.ActorID,
			"source":      principal.Source,
			"role":        role,
			"permissions": auth.Permissions(role),
		}}, nil
	})
}
