package project

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/pixelkit/internal/auth"
	"github.com/inamate/pixelkit/internal/store"
)

type Handler struct {
	service *Service
	auth    *auth.Service
}

func NewHandler(service *Service, authService *auth.Service) *Handler {
	return &Handler{service: service, auth: authService}
}

type createRequest struct {
	CreateParams
	DisplayName string `json:"displayName"`
}

type createResponse struct {
	Project store.Project `json:"project"`
	Token   string        `json:"token"`
}

type projectView struct {
	store.Project
	Protected bool `json:"protected"`
}

func view(p store.Project) projectView {
	return projectView{Project: p, Protected: p.Protected()}
}

// Create handles POST /projects and returns a token for the creator.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	project, err := h.service.Create(r.Context(), req.CreateParams)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = "Owner"
	}
	token, err := h.auth.IssueToken(auth.Claims{
		ProjectID:   project.ID,
		UserID:      "user_" + uuid.NewString(),
		DisplayName: name,
	})
	if err != nil {
		slog.Error("issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{Project: project, Token: token})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("list projects failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	out := make([]projectView, len(projects))
	for i, p := range projects {
		out[i] = view(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Get(r.Context(), mux.Vars(r)["projectId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view(project))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["projectId"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.service.Snapshots(r.Context(), mux.Vars(r)["projectId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snaps)
}

// GetSnapshot handles GET .../snapshots/{snapshotId}, where "latest" is the newest.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	snap, err := h.service.Snapshot(r.Context(), vars["projectId"], vars["snapshotId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
