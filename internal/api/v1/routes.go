// Package v1 provides the HTTP hooks of the addon runtime.
package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/omprussia/weblate-omp/internal/addons"
	"github.com/omprussia/weblate-omp/internal/api/common"
	"github.com/omprussia/weblate-omp/internal/service"
	"github.com/omprussia/weblate-omp/internal/store"
	"github.com/omprussia/weblate-omp/internal/tasks"
)

// InstallBody is the body of a component addon installation.
type InstallBody struct {
	Addon         string         `json:"addon"`
	Username      string         `json:"username,omitempty"`
	Configuration map[string]any `json:"configuration,omitempty"`
}

// BulkInstallBody is the body of a bulk installation.
type BulkInstallBody struct {
	Username      string         `json:"username"`
	Projects      []string       `json:"projects,omitempty"`
	Configuration map[string]any `json:"configuration,omitempty"`
}

// InstallResponse reports the outcome of an installation.
type InstallResponse struct {
	Addon     string `json:"addon"`
	Component string `json:"component"`
	Installed bool   `json:"installed"`
}

// Routes holds the handlers
type Routes struct {
	service service.AddonService
}

// Router returns the /v1 routes
func Router(svc service.AddonService) http.Handler {
	routes := &Routes{service: svc}

	r := chi.NewRouter()
	r.Get("/addons", routes.listAddons)
	r.Post("/addons/{addon}/install", routes.scheduleInstall)
	r.Route("/projects/{project}/components/{component}", func(r chi.Router) {
		r.Post("/update", routes.updateComponent)
		r.Post("/addons", routes.installAddon)
	})
	return r
}

// HealthRouter returns the health and readiness routes
func HealthRouter(svc service.AddonService) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		common.WriteJSONResponse(w, map[string]string{"status": "healthy"}, http.StatusOK)
	})
	r.Get("/readiness", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			common.WriteErrorResponse(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, map[string]string{"status": "ready"}, http.StatusOK)
	})
	return r
}

func (rr *Routes) listAddons(w http.ResponseWriter, r *http.Request) {
	common.WriteJSONResponse(w, map[string]any{"addons": rr.service.ListAddons(r.Context())}, http.StatusOK)
}

func (rr *Routes) updateComponent(w http.ResponseWriter, r *http.Request) {
	project, component, ok := componentParams(w, r)
	if !ok {
		return
	}
	if err := rr.service.UpdateComponent(r.Context(), project, component); err != nil {
		writeServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, map[string]string{"status": "updated"}, http.StatusOK)
}

func (rr *Routes) installAddon(w http.ResponseWriter, r *http.Request) {
	project, component, ok := componentParams(w, r)
	if !ok {
		return
	}
	var body InstallBody
	if err := common.DecodeJSONBody(r, &body); err != nil {
		common.WriteErrorResponse(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.Addon == "" {
		common.WriteErrorResponse(w, "addon is required", http.StatusBadRequest)
		return
	}

	installed, err := rr.service.InstallAddon(r.Context(), service.InstallRequest{
		Project:       project,
		Component:     component,
		Addon:         body.Addon,
		Username:      body.Username,
		Configuration: body.Configuration,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if installed {
		status = http.StatusCreated
	}
	common.WriteJSONResponse(w, InstallResponse{
		Addon:     body.Addon,
		Component: project + "/" + component,
		Installed: installed,
	}, status)
}

func (rr *Routes) scheduleInstall(w http.ResponseWriter, r *http.Request) {
	addon := chi.URLParam(r, "addon")
	var body BulkInstallBody
	if err := common.DecodeJSONBody(r, &body); err != nil {
		common.WriteErrorResponse(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.Username == "" {
		common.WriteErrorResponse(w, "username is required", http.StatusBadRequest)
		return
	}

	err := rr.service.ScheduleInstall(r.Context(), tasks.InstallAddon{
		Addon:         addon,
		Username:      body.Username,
		ProjectSlugs:  body.Projects,
		Configuration: body.Configuration,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, map[string]string{"status": "scheduled"}, http.StatusAccepted)
}

func componentParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	project, err := common.GetSlugParam(r, "project")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return "", "", false
	}
	component, err := common.GetSlugParam(r, "component")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return "", "", false
	}
	return project, component, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, addons.ErrAddonNotFound):
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, addons.ErrInvalidConfiguration):
		common.WriteErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, addons.ErrCannotInstall):
		common.WriteErrorResponse(w, err.Error(), http.StatusForbidden)
	default:
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		common.WriteErrorResponse(w, "internal error", http.StatusInternalServerError)
	}
}
