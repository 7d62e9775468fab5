package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/pixelkit/internal/store"
)

func TestPassphrase(t *testing.T) {
	assert := assert.New(t)
	s := NewService("secret")

	open, err := s.HashPassphrase("")
	require.NoError(t, err)
	assert.Empty(open)
	assert.NoError(s.CheckPassphrase(open, "anything"))

	hash, err := s.HashPassphrase("hunter22")
	require.NoError(t, err)
	assert.NotEqual("hunter22", hash)
	assert.NoError(s.CheckPassphrase(hash, "hunter22"))
	assert.ErrorIs(s.CheckPassphrase(hash, "hunter2"), ErrInvalidPassphrase)
}

func TestToken(t *testing.T) {
	assert := assert.New(t)
	s := NewService("secret")

	want := Claims{ProjectID: "proj_a", UserID: "user_1", DisplayName: "Ada"}
	token, err := s.IssueToken(want)
	require.NoError(t, err)

	got, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(want, got)

	_, err = NewService("other").ValidateToken(token)
	assert.ErrorIs(err, ErrInvalidToken)

	_, err = s.ValidateToken("garbage")
	assert.ErrorIs(err, ErrInvalidToken)

	s.now = func() time.Time { return time.Now().Add(-2 * tokenTTL) }
	stale, err := s.IssueToken(want)
	require.NoError(t, err)
	s.now = time.Now
	_, err = s.ValidateToken(stale)
	assert.ErrorIs(err, ErrInvalidToken)
}

func newRouter(t *testing.T) (*mux.Router, *Service) {
	t.Helper()
	svc := NewService("secret")
	st := store.NewMemory()
	hash, err := svc.HashPassphrase("open sesame")
	require.NoError(t, err)
	_, err = st.CreateProject(context.Background(), store.Project{ID: "proj_a", Name: "A", PassphraseHash: hash})
	require.NoError(t, err)

	r := mux.NewRouter()
	h := NewHandler(svc, st)
	r.HandleFunc("/projects/{projectId}/join", h.Join).Methods("POST")
	api := r.PathPrefix("/api").Subrouter()
	api.Use(svc.AuthMiddleware)
	api.HandleFunc("/projects/{projectId}/whoami", func(w http.ResponseWriter, r *http.Request) {
		c, _ := ClaimsFromContext(r.Context())
		writeJSON(w, http.StatusOK, c)
	})
	return r, svc
}

func TestJoinAndMiddleware(t *testing.T) {
	assert := assert.New(t)
	r, _ := newRouter(t)

	do := func(method, path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do("POST", "/projects/proj_a/join", `{"passphrase":"nope","displayName":"Ada"}`, "")
	assert.Equal(http.StatusUnauthorized, rec.Code)
	rec = do("POST", "/projects/proj_x/join", `{"displayName":"Ada"}`, "")
	assert.Equal(http.StatusNotFound, rec.Code)
	rec = do("POST", "/projects/proj_a/join", `{"passphrase":"open sesame"}`, "")
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = do("POST", "/projects/proj_a/join", `{"passphrase":"open sesame","displayName":" Ada "}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var joined JoinResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joined))
	assert.Equal("Ada", joined.Claims.DisplayName)
	assert.True(strings.HasPrefix(joined.Claims.UserID, "user_"))

	rec = do("GET", "/api/projects/proj_a/whoami", "", joined.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	var who Claims
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &who))
	assert.Equal(joined.Claims, who)

	rec = do("GET", "/api/projects/proj_a/whoami?token="+joined.Token, "", "")
	assert.Equal(http.StatusOK, rec.Code)

	rec = do("GET", "/api/projects/proj_b/whoami", "", joined.Token)
	assert.Equal(http.StatusForbidden, rec.Code)
	rec = do("GET", "/api/projects/proj_a/whoami", "", "")
	assert.Equal(http.StatusUnauthorized, rec.Code)
	rec = do("GET", "/api/projects/proj_a/whoami", "", "bogus")
	assert.Equal(http.StatusUnauthorized, rec.Code)
}
