// ABOUTME: HTTP admin API for the command host.
// ABOUTME: Plugin management, command tables, invocation history and a console endpoint.

package admin

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389/rokcore/internal/auth"
	apierr "github.com/2389/rokcore/internal/errors"
	"github.com/2389/rokcore/internal/host"
	"github.com/2389/rokcore/internal/logging"
	"github.com/2389/rokcore/internal/store"
	"github.com/2389/rokcore/plugins/core"
)

const maxInvocationLimit = 500

// InvocationLister reads the command invocation history
type InvocationLister interface {
	ListInvocations(q store.InvocationQuery) ([]*store.InvocationRecord, error)
}

type Handlers struct {
	host        *host.Host
	invocations InvocationLister
	logger      logging.Logger
	token       string
}

// NewHandlers creates admin handlers. invocations may be nil when no database is configured.
func NewHandlers(h *host.Host, invocations InvocationLister, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewDisabledLogger()
	}
	return &Handlers{host: h, invocations: invocations, logger: logger}
}

// RequireToken makes every route except /healthz demand the bearer token
func (h *Handlers) RequireToken(token string) *Handlers {
	h.token = token
	return h
}

// Router returns a chi router with every admin route mounted
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(h.logger))
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the admin routes. Everything but /healthz sits behind
// the token check and refuses browser requests from non-loopback origins.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.healthz)
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.token))
		r.Use(auth.LocalOnly)

		r.Get("/commands", h.commands)
		r.Get("/invocations", h.listInvocations)
		r.Route("/plugins", func(r chi.Router) {
			r.Get("/", h.listPlugins)
			r.Post("/{name}/load", h.loadPlugin)
			r.Post("/{name}/unload", h.unloadPlugin)
			r.Post("/{name}/reload", h.reloadPlugin)
		})
		r.Post("/console", h.console)
		r.Get("/console/ws", h.consoleSocket)
	})
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "version": host.Version})
}

type pluginsResponse struct {
	Loaded    []host.PluginInfo `json:"loaded"`
	Available []string          `json:"available"`
}

func (h *Handlers) listPlugins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pluginsResponse{
		Loaded:    h.host.LoadedPlugins(),
		Available: h.host.AvailablePlugins(),
	})
}

func (h *Handlers) loadPlugin(w http.ResponseWriter, r *http.Request) {
	p, err := h.host.LoadPlugin(chi.URLParam(r, "name"))
	if err != nil {
		h.writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"loaded": p.Name()})
}

func (h *Handlers) unloadPlugin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.host.UnloadPlugin(name); err != nil {
		h.writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"unloaded": name})
}

func (h *Handlers) reloadPlugin(w http.ResponseWriter, r *http.Request) {
	p, err := h.host.ReloadPlugin(chi.URLParam(r, "name"))
	if err != nil {
		h.writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reloaded": p.Name()})
}

func (h *Handlers) commands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.host.Commands())
}

func (h *Handlers) listInvocations(w http.ResponseWriter, r *http.Request) {
	if h.invocations == nil {
		apierr.WriteError(w, http.StatusServiceUnavailable, apierr.ErrServiceUnavailable, "invocation history requires a database")
		return
	}

	q := store.InvocationQuery{
		Plugin:        r.URL.Query().Get("plugin"),
		CommandPrefix: r.URL.Query().Get("command"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxInvocationLimit {
			apierr.WriteErrorWithField(w, http.StatusBadRequest, apierr.ErrInvalidRequest, "limit must be between 1 and 500", "limit")
			return
		}
		q.Limit = limit
	}

	records, err := h.invocations.ListInvocations(q)
	if err != nil {
		h.logger.Error("failed to list invocations", "error", err)
		apierr.WriteErrorWithDetails(w, http.StatusInternalServerError, apierr.ErrDatabaseError, "failed to list invocations", err.Error())
		return
	}
	if records == nil {
		records = []*store.InvocationRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"invocations": records})
}

type consoleRequest struct {
	Line string `json:"line"`
}

type consoleResponse struct {
	Output string `json:"output"`
}

func (h *Handlers) console(w http.ResponseWriter, r *http.Request) {
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		apierr.WriteError(w, http.StatusUnsupportedMediaType, apierr.ErrUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	var req consoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteErrorWithDetails(w, http.StatusBadRequest, apierr.ErrInvalidBody, "request body must be JSON", err.Error())
		return
	}
	if strings.TrimSpace(req.Line) == "" {
		apierr.WriteErrorWithField(w, http.StatusBadRequest, apierr.ErrMissingField, "line is required", "line")
		return
	}
	h.logger.Info("console command", "operator", auth.OperatorFromContext(r.Context()), "line", req.Line)
	writeJSON(w, http.StatusOK, consoleResponse{Output: h.host.Console(req.Line)})
}

func (h *Handlers) writeHostError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, host.ErrUnknownPlugin):
		apierr.WriteError(w, http.StatusNotFound, apierr.ErrPluginNotFound, err.Error())
	case errors.Is(err, core.ErrNotLoaded):
		apierr.WriteError(w, http.StatusNotFound, apierr.ErrPluginNotLoaded, err.Error())
	case errors.Is(err, core.ErrAlreadyLoaded):
		apierr.WriteError(w, http.StatusConflict, apierr.ErrPluginLoaded, err.Error())
	case errors.Is(err, host.ErrCorePlugin):
		apierr.WriteError(w, http.StatusForbidden, apierr.ErrCorePlugin, err.Error())
	default:
		h.logger.Error("plugin operation failed", "error", err)
		apierr.WriteErrorWithDetails(w, http.StatusInternalServerError, apierr.ErrInternal, "plugin operation failed", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
