package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"storefront.dev/internal/products"
)

func (a *API) handleProductCreate(w http.ResponseWriter, r *http.Request) {
	var in products.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.products.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "product.create", map[string]any{
		"product_id": p.ID,
		"name":       p.Name,
	})
	w.Header().Set("Location", fmt.Sprintf("/api/products/%s", p.ID))
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handleProductGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.products.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleProductList(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), 1, 1000, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	items, err := a.products.List(r.Context(), limit, r.URL.Query().Get("after"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []products.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
	})
}

func (a *API) handleProductUpdate(w http.ResponseWriter, r *http.Request) {
	var in products.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.products.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "product.update", map[string]any{
		"product_id": p.ID,
	})
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleProductDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.products.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "product.delete", map[string]any{
		"product_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func parseLimit(raw string, min, max, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, fmt.Errorf("limit must be between %d and %d", min, max)
	}
	return val, nil
}
