package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"storefront.dev/internal/users"
)

type userRolesRequest struct {
	RoleIDs []int64 `json:"role_ids"`
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (a *API) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var req users.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.users.Create(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "user.create", map[string]any{
		"user_id": strconv.FormatInt(user.ID, 10),
		"email":   user.Email,
	})
	w.Header().Set("Location", fmt.Sprintf("/api/users/%d", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleUserGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := a.users.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUserAssignRoles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	var req userRolesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.users.AssignRoles(r.Context(), id, req.RoleIDs); err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "user.roles.assign", map[string]any{
		"user_id":  strconv.FormatInt(id, 10),
		"role_ids": req.RoleIDs,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUserRemoveRoles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	var req userRolesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.users.RemoveRoles(r.Context(), id, req.RoleIDs); err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "user.roles.remove", map[string]any{
		"user_id":  strconv.FormatInt(id, 10),
		"role_ids": req.RoleIDs,
	})
	w.WriteHeader(http.StatusNoContent)
}
