package handlers

import "net/http"

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users          UserStore
	Tokens         TokenIssuer
	Connections    ConnectionService
	Notifications  NotificationService
	Avatars        AvatarStorage
	ConnectLimiter RateLimiter
	DB             Pinger
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{DB: deps.DB}
	accounts := AuthHandler{Users: deps.Users, Tokens: deps.Tokens}
	users := UserHandler{Users: deps.Users}
	avatars := AvatarHandler{Users: deps.Users, Storage: deps.Avatars}
	conns := ConnectionHandler{Connections: deps.Connections, Limiter: deps.ConnectLimiter}
	inbox := NotificationHandler{Notifications: deps.Notifications}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/signup", accounts.SignUp)
	mux.HandleFunc("/api/login", accounts.Login)
	mux.HandleFunc("/api/user", users.Profile)
	mux.HandleFunc("/api/updateUserData", users.UpdateProfile)
	mux.HandleFunc("/api/changeAvatar", avatars.Upload)
	mux.HandleFunc("/api/connections", conns.Collection)
	mux.HandleFunc("/api/connection", conns.Status)
	mux.HandleFunc("/api/changeConnectionStatus", conns.ChangeStatus)
	mux.HandleFunc("/api/removeConnection", conns.Remove)
	mux.HandleFunc("/api/notifications", inbox.List)
	mux.HandleFunc("/api/notifications/unseen", inbox.Unseen)
	mux.HandleFunc("/api/notifications/seen", inbox.MarkSeen)
}
