package gorouter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	router "github.com/goliatone/go-router"

	journey "github.com/salescope/go-journey/components/journey"
	"github.com/salescope/go-journey/components/journey/commands"
	"github.com/salescope/go-journey/components/journey/httpapi"
	"github.com/salescope/go-journey/components/journey/queries"
)

// ScopeResolver converts a router.Context into an aggregation scope, usually
// from query parameters set by the dashboard UI.
type ScopeResolver func(router.Context) journey.Scope

// Config wires go-router with journey queries, commands, and the refresh
// broadcast.
type Config[T any] struct {
	Router        router.Router[T]
	Handlers      *httpapi.Handlers
	Broadcast     *journey.BroadcastHook
	ScopeResolver ScopeResolver
	BasePath      string
	Routes        RouteConfig
}

// RouteConfig customizes the relative paths used for journey endpoints.
type RouteConfig struct {
	Journey   string
	Dashboard string
	KPI       string
	Formulas  string
	Fields    string
	Rebuild   string
	Refresh   string
	WebSocket string
}

// Register mounts journey routes (JSON, REST, WebSocket) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Handlers == nil {
		return errors.New("gorouter: handlers are required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/api"
	}
	scopeResolver := cfg.ScopeResolver
	if scopeResolver == nil {
		scopeResolver = defaultScopeResolver
	}

	group := cfg.Router.Group(base)

	group.Get(routes.Journey, router.WrapHandler(func(ctx router.Context) error {
		contactID := ctx.Param("id")
		if contactID == "" {
			return respondError(ctx, http.StatusBadRequest, errors.New("contact id is required"))
		}
		result, err := cfg.Handlers.Journey.Query(ctx.Context(), queries.JourneyRequest{
			ContactID: contactID,
			Scope:     scopeResolver(ctx),
		})
		if err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusOK, result)
	}))

	group.Get(routes.Dashboard, router.WrapHandler(func(ctx router.Context) error {
		result, err := cfg.Handlers.Dashboard.Query(ctx.Context(), scopeResolver(ctx))
		if err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusOK, result)
	}))

	group.Post(routes.KPI, router.WrapHandler(func(ctx router.Context) error {
		var payload httpapi.KPIEvalPayload
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		result, err := cfg.Handlers.KPI.Query(ctx.Context(), journey.EvaluateKPIRequest{
			FormulaID: payload.FormulaID,
			Formula:   payload.Formula,
			Bindings:  httpapi.DecodeBindings(payload.Bindings),
			Params:    payload.Params,
		})
		if err != nil {
			return respondError(ctx, http.StatusUnprocessableEntity, err)
		}
		return ctx.JSON(http.StatusOK, result)
	}))

	group.Get(routes.Fields, router.WrapHandler(func(ctx router.Context) error {
		return ctx.JSON(http.StatusOK, cfg.Handlers.Registry.Fields())
	}))

	group.Get(routes.Formulas, router.WrapHandler(func(ctx router.Context) error {
		return ctx.JSON(http.StatusOK, cfg.Handlers.Registry.Formulas())
	}))

	if cfg.Handlers.Commands != nil {
		registerAPI(group, cfg.Handlers.Commands, routes)
	}

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}

	return nil
}

func registerAPI[T any](r router.Router[T], api httpapi.Executor, routes RouteConfig) {
	r.Post(routes.Formulas, router.WrapHandler(func(ctx router.Context) error {
		var payload journey.KpiFormula
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		if err := api.RegisterFormula(ctx.Context(), payload); err != nil {
			return respondError(ctx, http.StatusUnprocessableEntity, err)
		}
		return ctx.JSON(http.StatusCreated, map[string]string{"status": "created"})
	}))

	r.Post(routes.Rebuild, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.RebuildJourneyInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		if err := api.Rebuild(ctx.Context(), payload); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
	}))

	r.Post(routes.Refresh, router.WrapHandler(func(ctx router.Context) error {
		var payload commands.RefreshJourneyInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		if err := api.Refresh(ctx.Context(), payload); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
	}))
}

func registerWebSocket[T any](r router.Router[T], hook *journey.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

// defaultScopeResolver reads from/to/user query params. Timestamps accept
// RFC3339 or a bare date.
func defaultScopeResolver(ctx router.Context) journey.Scope {
	var scope journey.Scope
	scope.Range.From = parseScopeTime(ctx.Query("from"))
	scope.Range.To = parseScopeTime(ctx.Query("to"))
	scope.UserID = strings.TrimSpace(ctx.Query("user"))
	return scope
}

func parseScopeTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

func respondError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Journey == "" {
		routes.Journey = "/journeys/:id"
	}
	if routes.Dashboard == "" {
		routes.Dashboard = "/dashboard"
	}
	if routes.KPI == "" {
		routes.KPI = "/kpi/evaluate"
	}
	if routes.Formulas == "" {
		routes.Formulas = "/kpi/formulas"
	}
	if routes.Fields == "" {
		routes.Fields = "/kpi/fields"
	}
	if routes.Rebuild == "" {
		routes.Rebuild = "/journeys/rebuild"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/journeys/refresh"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/journeys/ws"
	}
	return routes
}
