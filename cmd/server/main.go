package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/pixelkit/internal/asset"
	"github.com/inamate/pixelkit/internal/auth"
	"github.com/inamate/pixelkit/internal/collab"
	"github.com/inamate/pixelkit/internal/config"
	"github.com/inamate/pixelkit/internal/export"
	mw "github.com/inamate/pixelkit/internal/middleware"
	"github.com/inamate/pixelkit/internal/project"
	"github.com/inamate/pixelkit/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open store", "error", err, "store", cfg.Store)
		os.Exit(1)
	}
	defer closeStore()

	authService := auth.NewService(cfg.JWTSecret)
	authHandler := auth.NewHandler(authService, st)

	projectService := project.NewService(st, authService, cfg.EngineOptions())
	projectHandler := project.NewHandler(projectService, authService)
	if err := projectService.EnsurePlayground(ctx); err != nil {
		slog.Error("seed playground", "error", err)
		os.Exit(1)
	}

	hub := collab.NewHub(projectService.Open, projectService.Save)
	go hub.Run()

	assetHandler := asset.NewHandler(hub, cfg.MaxUploadBytes)
	exportHandler := export.NewHandler(hub)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Public: create, list and join projects
	r.HandleFunc("/projects", projectHandler.List).Methods("GET", "OPTIONS")
	r.HandleFunc("/projects", projectHandler.Create).Methods("POST", "OPTIONS")
	r.HandleFunc("/projects/{projectId}/join", authHandler.Join).Methods("POST", "OPTIONS")

	// Project-scoped routes need a token for that project
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/projects/{projectId}", projectHandler.Get).Methods("GET")
	api.HandleFunc("/projects/{projectId}", projectHandler.Delete).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/snapshots", projectHandler.ListSnapshots).Methods("GET")
	api.HandleFunc("/projects/{projectId}/snapshots/{snapshotId}", projectHandler.GetSnapshot).Methods("GET")
	api.HandleFunc("/projects/{projectId}/layers/import", assetHandler.Import).Methods("POST")
	api.HandleFunc("/projects/{projectId}/export/layers/{layerId}", exportHandler.Layer).Methods("GET")
	api.HandleFunc("/projects/{projectId}/export/frame", exportHandler.Frame).Methods("GET")
	api.HandleFunc("/projects/{projectId}/export/sheet", exportHandler.Sheet).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws/project/{projectId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, cfg.OriginHosts())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty documents
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", cfg.Store)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store {
	case "memory":
		return store.NewMemory(), func() {}, nil
	case "postgres":
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPG(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, origins []string) {
	projectID := mux.Vars(r)["projectId"]

	var claims auth.Claims
	if projectID == project.PlaygroundID {
		// Playground allows anonymous access
		claims = auth.Claims{
			ProjectID:   projectID,
			UserID:      "anon-" + uuid.NewString()[:8],
			DisplayName: "Anonymous",
		}
	} else {
		token := auth.TokenFromRequest(r)
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		claims, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if claims.ProjectID != projectID {
			http.Error(w, "token is for another project", http.StatusForbidden)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := collab.NewClient(hub, conn, claims, uuid.NewString())
	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
