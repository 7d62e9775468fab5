package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/pixelkit/internal/store"
)

// ProjectGetter is the part of store.Store the join handler needs.
type ProjectGetter interface {
	GetProject(ctx context.Context, id string) (store.Project, error)
}

type Handler struct {
	service  *Service
	projects ProjectGetter
}

func NewHandler(service *Service, projects ProjectGetter) *Handler {
	return &Handler{service: service, projects: projects}
}

type joinRequest struct {
	Passphrase  string `json:"passphrase"`
	DisplayName string `json:"displayName"`
}

type JoinResponse struct {
	Token  string `json:"token"`
	Claims Claims `json:"claims"`
}

// Join handles POST /projects/{projectId}/join. It checks the passphrase and
// issues a token with a fresh user id.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "displayName is required"})
		return
	}

	p, err := h.projects.GetProject(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
			return
		}
		slog.Error("join: get project", "error", err, "project", projectID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	if err := h.service.CheckPassphrase(p.PassphraseHash, req.Passphrase); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid passphrase"})
		return
	}

	claims := Claims{ProjectID: p.ID, UserID: "user_" + uuid.NewString(), DisplayName: name}
	token, err := h.service.IssueToken(claims)
	if err != nil {
		slog.Error("join: issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, JoinResponse{Token: token, Claims: claims})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
