package routes

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/delacruzdev/designvault-backend/pkg/config"
)

func TestRouterRegistersDocumentedPaths(t *testing.T) {
	handler := NewRouter(
		&config.Config{},
		nil, nil, nil, nil, nil, nil,
		nil, nil, nil, nil, nil, nil, nil,
		nil, nil, nil,
	)

	routes := map[string]bool{}
	walker, ok := handler.(chi.Routes)
	if !ok {
		t.Fatalf("expected chi routes, got %T", handler)
	}
	err := chi.Walk(walker, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes[method+" "+route] = true
		return nil
	})
	if err != nil {
		t.Fatalf("walk routes: %v", err)
	}

	want := []string{
		"POST /api/v1/webhooks/stripe",
		"POST /api/v1/payments/create",
		"POST /api/v1/payments/create-intent",
		"POST /api/v1/payments/confirm",
		"GET /api/v1/payments/admin/statistics",
		"GET /api/v1/purchases/my-purchases",
		"GET /api/v1/purchases/subscription-eligibility",
		"POST /api/v1/reviews/{reviewId}/helpful",
		"PUT /api/v1/reviews/{reviewId}/helpful",
		"POST /api/v1/downloads/design/{designId}",
		"GET /api/v1/admin/payments/statistics",
		"GET /api/v1/admin/downloads/analytics",
	}
	for _, route := range want {
		if !routes[route] {
			t.Fatalf("route %q not registered", route)
		}
	}
}
