package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"streakline/internal/domain"
	"streakline/internal/engine"
	"streakline/internal/events"
	"streakline/internal/metrics"
	"streakline/internal/tracker"
)

// Config for the HTTP API handler.
type Config struct {
	Engine          *engine.Engine
	BasePath        string
	DefaultDuration int
	Auth            AuthConfig
	RateLimit       RateLimitConfig
	Metrics         *metrics.Metrics
	Logger          *log.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"challenge 7: not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Streakline API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 30
	}
	if cfg.Auth.Logger == nil {
		cfg.Auth.Logger = cfg.Logger
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
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware)
	}
	if cfg.RateLimit.PerSecond > 0 {
		router.Use(newRateLimiter(cfg.RateLimit).Middleware)
	}
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	router.Use(actorMiddleware)
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics.Handler())
	}
	hcfg := huma.DefaultConfig("Streakline API", "0.1.0")
	// The spec lives under the base path; /docs renders it.
	hcfg.OpenAPIPath = path.Join(basePath, "openapi")
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerChallenges(group, cfg.Engine, cfg.DefaultDuration)
	registerProgress(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	if cfg.Auth.enabled() {
		applyAuthSecurity(api.OpenAPI(), basePath)
	}

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
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", msg, nil)
	case errors.Is(err, domain.ErrInvalidInput):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	case errors.Is(err, engine.ErrNoJournal):
		return newAPIError(http.StatusNotImplemented, "no_journal", msg, nil)
	case errors.Is(err, domain.ErrStorageIO):
		return newAPIError(http.StatusInternalServerError, "storage_error", "storage error", map[string]any{"error": msg})
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
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// applyAuthSecurity marks every operation except health as bearer-protected.
func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
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
	oas.Security = []map[string][]string{{"bearerAuth": {}}}
	if item := oas.Paths[path.Join("/", basePath, "health")]; item != nil && item.Get != nil {
		item.Get.Security = []map[string][]string{}
	}
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

func registerChallenges(api huma.API, e *engine.Engine, defaultDuration int) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-challenge",
		Method:        http.MethodPost,
		Path:          "/challenges",
		Summary:       "Create challenge",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateChallengeRequest `json:"body"`
	}) (*struct {
		Body domain.Challenge `json:"body"`
	}, error) {
		duration := defaultDuration
		if input.Body.DurationDays != nil {
			duration = *input.Body.DurationDays
		}
		c, err := e.Create(ctx, tracker.CreateInput{
			Name:         input.Body.Name,
			DurationDays: duration,
			Description:  input.Body.Description,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Challenge `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-challenges",
		Method:      http.MethodGet,
		Path:        "/challenges",
		Summary:     "List challenges",
		Description: "Summaries in storage order. An empty store yields an empty list.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"all,active,completed,abandoned" default:"all"`
	}) (*struct {
		Body []tracker.Summary `json:"body"`
	}, error) {
		items, err := e.Filter(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []tracker.Summary `json:"body"`
		}{Body: summaries(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-challenge",
		Method:      http.MethodGet,
		Path:        "/challenges/{id}",
		Summary:     "Get challenge with analysis",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int `path:"id"`
	}) (*struct {
		Body ChallengeDetail `json:"body"`
	}, error) {
		c, err := e.Get(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		a, err := e.Show(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ChallengeDetail `json:"body"`
		}{Body: ChallengeDetail{Challenge: c, Analysis: a}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-challenge",
		Method:      http.MethodDelete,
		Path:        "/challenges/{id}",
		Summary:     "Delete challenge",
		Description: "Removes the challenge and its progress log. This cannot be undone.",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int `path:"id"`
	}) (*struct {
		Body domain.Challenge `json:"body"`
	}, error) {
		c, err := e.Delete(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Challenge `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-challenge-status",
		Method:      http.MethodPatch,
		Path:        "/challenges/{id}/status",
		Summary:     "Override challenge status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int              `path:"id"`
		Body SetStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Challenge `json:"body"`
	}, error) {
		c, err := e.SetStatus(ctx, input.ID, input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Challenge `json:"body"`
		}{Body: c}, nil
	})
}

func registerProgress(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "register-progress",
		Method:      http.MethodPost,
		Path:        "/challenges/{id}/progress",
		Summary:     "Register today's progress",
		Description: "The first registration of a day moves streaks and stats; later ones are kept as notes.",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int                     `path:"id"`
		Body RegisterProgressRequest `json:"body"`
	}) (*struct {
		Body RegistrationResponse `json:"body"`
	}, error) {
		reg, err := e.RegisterProgress(ctx, input.ID, input.Body.Fulfilled, input.Body.Note)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RegistrationResponse `json:"body"`
		}{Body: reg}, nil
	})
}

func registerEvents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest, http.StatusNotImplemented},
	}, func(ctx context.Context, input *struct {
		Type        string `query:"type" enum:"challenge.created,challenge.deleted,challenge.status_set,challenge.completed,progress.registered,progress.supplementary"`
		ChallengeID int    `query:"challenge_id"`
		Limit       int    `query:"limit" default:"50"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		items, err := e.Events(ctx, events.Filter{
			Limit:       normalizeLimit(input.Limit),
			Type:        input.Type,
			ChallengeID: input.ChallengeID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := make([]EventResponse, 0, len(items))
		for _, evt := range items {
			resp = append(resp, eventResponse(evt))
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
