package mailapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/mailhub/svc/template"
	"github.com/dmitrymomot/mailhub/svc/tenant"
)

type serviceResponse struct {
	Success bool          `json:"success"`
	Service tenant.Tenant `json:"service"`
	Message string        `json:"message"`
}

type templateResponse struct {
	Success  bool              `json:"success"`
	Template template.Template `json:"template"`
	Message  string            `json:"message"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (a *api) createService(w http.ResponseWriter, r *http.Request) {
	var req createServiceRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}

	t, err := a.tenants.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, serviceResponse{Success: true, Service: redact(*t), Message: "Service created successfully"})
}

func (a *api) listServices(w http.ResponseWriter, r *http.Request) {
	ts, err := a.tenants.List(r.Context())
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": redactAll(ts)})
}

func (a *api) getService(w http.ResponseWriter, r *http.Request) {
	t, err := a.tenants.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, redact(*t))
}

// updateService drops the cached transporter when connection settings or
// credentials change so the next send reconnects.
func (a *api) updateService(w http.ResponseWriter, r *http.Request) {
	var req updateServiceRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}

	id := chi.URLParam(r, "id")
	p := req.patch()
	t, err := a.tenants.Update(r.Context(), id, p)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	if p.TouchesSMTP() {
		a.dispatcher.InvalidateTransporter(r.Context(), id)
	}
	writeJSON(w, http.StatusOK, serviceResponse{Success: true, Service: redact(*t), Message: "Service updated successfully"})
}

func (a *api) deleteService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.tenants.Delete(r.Context(), id); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	a.dispatcher.InvalidateTransporter(r.Context(), id)
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Service deleted successfully"})
}

func (a *api) activateService(w http.ResponseWriter, r *http.Request) {
	t, err := a.tenants.Activate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, serviceResponse{Success: true, Service: redact(*t), Message: "Service activated"})
}

func (a *api) deactivateService(w http.ResponseWriter, r *http.Request) {
	t, err := a.tenants.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, serviceResponse{Success: true, Service: redact(*t), Message: "Service deactivated"})
}

func (a *api) clearCaches(w http.ResponseWriter, r *http.Request) {
	if err := a.tenants.ClearCache(r.Context()); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	if err := a.templates.ClearCache(r.Context()); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "All caches cleared"})
}

func (a *api) createTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}

	serviceID := chi.URLParam(r, "id")
	if _, err := a.tenants.GetByID(r.Context(), serviceID); err != nil {
		writeError(w, r, a.log, err)
		return
	}

	t, err := a.templates.Create(r.Context(), req.input(serviceID))
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, templateResponse{Success: true, Template: *t, Message: "Template created successfully"})
}

func (a *api) createDefaultTemplates(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "id")
	if _, err := a.tenants.GetByID(r.Context(), serviceID); err != nil {
		writeError(w, r, a.log, err)
		return
	}

	created, err := a.templates.CreateDefaultTemplates(r.Context(), serviceID)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"templates": created,
		"message":   fmt.Sprintf("Created %d default templates", len(created)),
	})
}

func (a *api) listTemplates(w http.ResponseWriter, r *http.Request) {
	ts, err := a.templates.FindAllByService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": ts})
}

func (a *api) getTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := a.serviceTemplate(r)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *api) updateTemplate(w http.ResponseWriter, r *http.Request) {
	var req updateTemplateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	existing, err := a.serviceTemplate(r)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}

	t, err := a.templates.Update(r.Context(), existing.ID, req.patch())
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, templateResponse{Success: true, Template: *t, Message: "Template updated successfully"})
}

func (a *api) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	existing, err := a.serviceTemplate(r)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	if err := a.templates.Delete(r.Context(), existing.ID); err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Template deleted successfully"})
}

// serviceTemplate loads the template named in the path and checks that it
// belongs to the service in the path.
func (a *api) serviceTemplate(r *http.Request) (*template.Template, error) {
	t, err := a.templates.FindByID(r.Context(), chi.URLParam(r, "templateID"))
	if err != nil {
		return nil, err
	}
	if t.ServiceID != chi.URLParam(r, "id") {
		return nil, template.ErrNotFound
	}
	return t, nil
}
