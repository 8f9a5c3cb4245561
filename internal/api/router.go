package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/ecopickup/internal/broadcast"
	"github.com/erazemk/ecopickup/internal/lifecycle"
	"github.com/erazemk/ecopickup/internal/model"
)

// NewRouter creates the API router with all endpoints registered. Status
// changes are announced on hub.
func NewRouter(db *sql.DB, jwtSecret string, hub *broadcast.Hub) http.Handler {
	mux := http.NewServeMux()

	authority := &lifecycle.Authority{DB: db, Publisher: hub}

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	itemsHandler := &ItemsHandler{DB: db, Lifecycle: authority}
	catalogHandler := &CatalogHandler{DB: db}
	pickupsHandler := &PickupsHandler{Lifecycle: authority}
	adminHandler := &AdminHandler{DB: db}
	notifications := &broadcast.Server{Hub: hub, Identify: identify}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireUser := RequireRole(model.RoleUser)

	// Public.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Catalog and items.
	mux.Handle("GET /api/categories", authMW(http.HandlerFunc(catalogHandler.List)))
	mux.Handle("POST /api/items", authMW(requireUser(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items", authMW(requireUser(http.HandlerFunc(itemsHandler.List))))
	mux.Handle("GET /api/items/{id}/images/{n}", authMW(http.HandlerFunc(itemsHandler.GetImage)))

	// Pickups. Role checks for status changes belong to the lifecycle.
	mux.Handle("GET /api/pickups", authMW(http.HandlerFunc(pickupsHandler.List)))
	mux.Handle("GET /api/pickups/{id}", authMW(http.HandlerFunc(pickupsHandler.Get)))
	mux.Handle("GET /api/pickups/{id}/history", authMW(http.HandlerFunc(pickupsHandler.History)))
	mux.Handle("POST /api/pickups/{id}/accept", authMW(http.HandlerFunc(pickupsHandler.Accept)))
	mux.Handle("PUT /api/pickups/{id}/status", authMW(http.HandlerFunc(pickupsHandler.UpdateStatus)))

	// Admin.
	mux.Handle("GET /api/admin/analytics", authMW(requireAdmin(http.HandlerFunc(adminHandler.Analytics))))
	mux.Handle("GET /api/admin/users", authMW(requireAdmin(http.HandlerFunc(adminHandler.Users))))
	mux.Handle("GET /api/admin/agents", authMW(requireAdmin(http.HandlerFunc(adminHandler.Agents))))
	mux.Handle("PUT /api/admin/agents/{id}/verify", authMW(requireAdmin(http.HandlerFunc(adminHandler.VerifyAgent))))
	mux.Handle("POST /api/admin/categories", authMW(requireAdmin(http.HandlerFunc(catalogHandler.Create))))

	// Notifications.
	mux.Handle("GET /api/ws", authMW(notifications))

	return mux
}

func identify(r *http.Request) (model.Actor, bool) {
	claims := GetClaims(r.Context())
	if claims == nil {
		return model.Actor{}, false
	}
	return claims.Actor(), true
}
