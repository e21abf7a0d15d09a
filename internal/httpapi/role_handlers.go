package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
)

type roleRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (a *API) handleRoleCreate(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := a.roles.Create(r.Context(), req.Name, req.Permissions)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "role.create", map[string]any{
		"role_id": strconv.FormatInt(role.ID, 10),
		"name":    role.Name,
	})
	w.Header().Set("Location", fmt.Sprintf("/api/roles/%d", role.ID))
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) handleRoleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid role id")
		return
	}
	role, err := a.roles.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleRoleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid role id")
		return
	}
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := a.roles.Update(r.Context(), id, req.Name, req.Permissions)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "role.update", map[string]any{
		"role_id": strconv.FormatInt(role.ID, 10),
		"name":    role.Name,
	})
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleRoleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid role id")
		return
	}
	if err := a.roles.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "role.delete", map[string]any{
		"role_id": strconv.FormatInt(id, 10),
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleRoleAssignmentsClear strips the role from every user that holds it;
// the role itself stays.
func (a *API) handleRoleAssignmentsClear(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid role id")
		return
	}
	removed, err := a.users.RemoveRoleFromAllUsers(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "role.assignments.clear", map[string]any{
		"role_id": strconv.FormatInt(id, 10),
		"removed": removed,
	})
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}
