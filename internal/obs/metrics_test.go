package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                          "/",
		"/metrics":                  "/metrics",
		"/api/users/42":             "/api/users/:id",
		"/api/users/42/roles":       "/api/users/:id/roles",
		"/api/roles/7":              "/api/roles/:id",
		"/api/roles/7/assignments":  "/api/roles/:id/assignments",
		"/api/products/01HXYZ":      "/api/products/:id",
		"/api/products?limit=10":    "/api/products",
		"/api/session/login":        "/api/session/login",
		"/api/users/42/roles/extra": "/api/users/42/roles/extra",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
