// Package httpapi is the HTTP transport: routing, cookie auth, permission
// gating and JSON rendering.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"storefront.dev/internal/audit"
	"storefront.dev/internal/auth"
	"storefront.dev/internal/obs"
	"storefront.dev/internal/products"
	"storefront.dev/internal/roles"
	"storefront.dev/internal/users"
)

// ReadyProbe reports whether the service can reach its dependencies.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	sessions  *auth.SessionManager
	evaluator *auth.Evaluator
	users     *users.Service
	roles     *roles.Service
	products  *products.Service
}

// Deps carries the wired services for New.
type Deps struct {
	Ready     ReadyProbe
	Sessions  *auth.SessionManager
	Evaluator *auth.Evaluator
	Users     *users.Service
	Roles     *roles.Service
	Products  *products.Service
}

func New(deps Deps, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: deps.Ready,
		version:    version,
		sessions:   deps.Sessions,
		evaluator:  deps.Evaluator,
		users:      deps.Users,
		roles:      deps.Roles,
		products:   deps.Products,
	}

	// health/ready/metrics
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.Handle("GET /metrics", obs.Handler())

	// session lifecycle
	a.mux.HandleFunc("POST /api/session/login", a.handleLogin)
	a.mux.HandleFunc("POST /api/session/refresh", a.handleRefresh)
	a.mux.HandleFunc("POST /api/session/register", a.handleRegister)
	a.mux.HandleFunc("POST /api/session/logout", a.protect("", a.handleLogout))

	// users
	a.mux.HandleFunc("POST /api/users", a.protect(auth.PermUsersCreate, a.handleUserCreate))
	a.mux.HandleFunc("GET /api/users/{id}", a.protect("", a.handleUserGet))
	a.mux.HandleFunc("POST /api/users/{id}/roles", a.protect(auth.PermUsersManageRoles, a.handleUserAssignRoles))
	a.mux.HandleFunc("DELETE /api/users/{id}/roles", a.protect(auth.PermUsersManageRoles, a.handleUserRemoveRoles))

	// roles
	a.mux.HandleFunc("POST /api/roles", a.protect(auth.PermRolesCreate, a.handleRoleCreate))
	a.mux.HandleFunc("GET /api/roles/{id}", a.protect(auth.PermRolesView, a.handleRoleGet))
	a.mux.HandleFunc("PUT /api/roles/{id}", a.protect(auth.PermRolesEdit, a.handleRoleUpdate))
	a.mux.HandleFunc("DELETE /api/roles/{id}", a.protect(auth.PermRolesDelete, a.handleRoleDelete))
	a.mux.HandleFunc("DELETE /api/roles/{id}/assignments", a.protect(auth.PermUsersManageRoles, a.handleRoleAssignmentsClear))

	// products
	a.mux.HandleFunc("POST /api/products", a.protect(auth.PermProductsCreate, a.handleProductCreate))
	a.mux.HandleFunc("GET /api/products", a.protect(auth.PermProductsView, a.handleProductList))
	a.mux.HandleFunc("GET /api/products/{id}", a.protect(auth.PermProductsView, a.handleProductGet))
	a.mux.HandleFunc("PUT /api/products/{id}", a.protect(auth.PermProductsEdit, a.handleProductUpdate))
	a.mux.HandleFunc("DELETE /api/products/{id}", a.protect(auth.PermProductsDelete, a.handleProductDelete))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 50, 25)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "storefront-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// audit emits an event with the request id and principal already on ctx.
func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	ctx = audit.WithRequestID(ctx, RequestIDFromContext(ctx))
	_ = audit.LogEvent(ctx, event, fields)
}
