package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/registrar/internal/http/account"
	"github.com/MrJamesThe3rd/registrar/internal/http/activity"
	"github.com/MrJamesThe3rd/registrar/internal/http/catalog"
	"github.com/MrJamesThe3rd/registrar/internal/http/department"
	"github.com/MrJamesThe3rd/registrar/internal/http/report"
	"github.com/MrJamesThe3rd/registrar/internal/http/respond"
	"github.com/MrJamesThe3rd/registrar/internal/http/session"
	"github.com/MrJamesThe3rd/registrar/internal/http/transaction"
)

type Handlers struct {
	Accounts     *account.Handler
	Departments  *department.Handler
	Catalog      *catalog.Handler
	Transactions *transaction.Handler
	Reports      *report.Handler
	Activity     *activity.Handler
}

var methods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

func New(allowedOrigins []string, tokens session.TokenParser, h Handlers) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   append([]string{http.MethodOptions}, methods...),
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Set before any Route call so sub-routers inherit them.
	router.MethodNotAllowed(methodNotAllowed(router))
	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respond.Message(w, http.StatusNotFound, "route not found")
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", h.Accounts.AuthRoutes)

		r.Group(func(r chi.Router) {
			r.Use(session.Authenticate(tokens))

			r.Route("/accounts", h.Accounts.Routes)
			r.Route("/departments", h.Departments.Routes)
			r.Route("/credentials", h.Catalog.CredentialRoutes)
			r.Route("/packages", h.Catalog.PackageRoutes)
			r.Route("/transactions", h.Transactions.Routes)
			r.Route("/reports", h.Reports.Routes)
			r.Route("/activity", h.Activity.Routes)
		})
	})

	return router
}

// methodNotAllowed answers in JSON and lists, in Allow, the methods the path
// does accept. Mounted sub-routers register their bare prefix as a catch-all,
// so the methods are read from the leaf routes rather than matched at the root.
func methodNotAllowed(routes chi.Routes) http.HandlerFunc {
	var (
		once  sync.Once
		table []leafRoute
	)

	return func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { table = leafRoutes(routes) })

		w.Header().Set("Allow", strings.Join(allowedMethods(table, r.URL.Path), ", "))
		respond.Message(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type leafRoute struct {
	segments []string
	methods  map[string]bool
}

// leafRoutes flattens the router into one entry per full route pattern.
func leafRoutes(routes chi.Routes) []leafRoute {
	byPattern := make(map[string]map[string]bool)

	var order []string

	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		key := strings.TrimSuffix(route, "/")
		if byPattern[key] == nil {
			byPattern[key] = make(map[string]bool)
			order = append(order, key)
		}

		byPattern[key][method] = true

		return nil
	})
	if err != nil {
		slog.Error("failed to walk routes", "error", err)
	}

	out := make([]leafRoute, 0, len(order))
	for _, pattern := range order {
		out = append(out, leafRoute{segments: splitPath(pattern), methods: byPattern[pattern]})
	}

	return out
}

// allowedMethods returns, in a fixed order, the methods of every route whose
// pattern matches path. A {param} segment matches any single segment.
func allowedMethods(table []leafRoute, path string) []string {
	segments := splitPath(strings.TrimSuffix(path, "/"))
	accepted := make(map[string]bool)

	for _, route := range table {
		if matchSegments(route.segments, segments) {
			for m := range route.methods {
				accepted[m] = true
			}
		}
	}

	var allowed []string

	for _, m := range methods {
		if accepted[m] {
			allowed = append(allowed, m)
		}
	}

	return allowed
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}

	for i, seg := range pattern {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			continue
		}

		if seg != path[i] {
			return false
		}
	}

	return true
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}
