package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/secnex/admin-bootstrap/database"
	"github.com/secnex/admin-bootstrap/logger"
	"github.com/secnex/admin-bootstrap/models"
)

type TreeReader interface {
	FindByType(ctx context.Context, treeType models.TreeType, orders ...database.Order) ([]models.TreeNode, error)
	Summary(ctx context.Context) (map[models.TreeType]int, error)
}

type CredentialValidator interface {
	ValidateCredentials(ctx context.Context, loginName, password string) (*models.User, error)
}

type HealthChecker interface {
	IsValid(ctx context.Context, timeout time.Duration) bool
}

type Handler struct {
	trees       TreeReader
	users       CredentialValidator
	health      HealthChecker
	pingTimeout time.Duration
}

func NewRouter(runner *database.Runner, pingTimeout time.Duration) http.Handler {
	return newRouter(&Handler{
		trees:       database.NewTreeRepository(runner),
		users:       database.NewUserRepository(runner),
		health:      runner,
		pingTimeout: pingTimeout,
	})
}

func newRouter(h *Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(logger.Middleware)

	r.HandleFunc("/healthz", h.Health).Methods("GET")
	r.HandleFunc("/trees", h.TreeSummary).Methods("GET")
	r.HandleFunc("/trees/{type}", h.Tree).Methods("GET")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.health.IsValid(r.Context(), h.pingTimeout) {
		logger.Warn("Database ping failed", nil)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) TreeSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.trees.Summary(r.Context())
	if err != nil {
		logger.Error(err, "Failed to summarize trees", nil)
		http.Error(w, "Error loading trees", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Tree returns every node of one tree type nested below its root.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	treeType, err := models.ParseTreeType(mux.Vars(r)["type"])
	if err != nil {
		http.Error(w, "Unknown tree type", http.StatusNotFound)
		return
	}

	orders, err := database.ParseOrders(r.URL.Query().Get("sort"))
	if err != nil {
		http.Error(w, "Invalid sort", http.StatusBadRequest)
		return
	}

	nodes, err := h.trees.FindByType(r.Context(), treeType, orders...)
	if err != nil {
		logger.Error(err, "Failed to load tree", map[string]interface{}{"type": treeType})
		http.Error(w, "Error loading tree", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.Nest(nodes))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	user, err := h.users.ValidateCredentials(r.Context(), loginReq.Username, loginReq.Password)
	if errors.Is(err, database.ErrInvalidCredentials) {
		logger.Warn("Failed login attempt", map[string]interface{}{"login_name": loginReq.Username, "ip": r.RemoteAddr})
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		logger.Error(err, "Failed to validate credentials", map[string]interface{}{"login_name": loginReq.Username})
		http.Error(w, "Error validating credentials", http.StatusInternalServerError)
		return
	}

	logger.Info("Successful login", map[string]interface{}{"login_name": user.LoginName})
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(err, "Failed to encode response", nil)
	}
}
