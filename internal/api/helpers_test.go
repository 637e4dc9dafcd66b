package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"equipment-tracker-backend/config"
	"equipment-tracker-backend/internal/auth"
	"equipment-tracker-backend/internal/db"
	"equipment-tracker-backend/internal/mw"
	"equipment-tracker-backend/internal/registry"
	"equipment-tracker-backend/internal/sideindex"
	"equipment-tracker-backend/internal/store"
	"equipment-tracker-backend/internal/upload"
)

var testUsers = []config.SeedUser{
	{Username: "superuser", Password: "superpass", Role: "superuser"},
	{Username: "operator", Password: "operatorpass", Role: "operator"},
	{Username: "user", Password: "userpass", Role: "user"},
}

type testServer struct {
	router  *gin.Engine
	store   store.Store
	storage *upload.Storage
	cache   *mw.ResponseCache
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gormDB, err := db.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Seed(context.Background(), gormDB, testUsers, zap.NewNop()))
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	})

	dir := t.TempDir()
	storage := upload.NewStorage(filepath.Join(dir, "uploads"))
	require.NoError(t, storage.Init())

	s := store.NewGormStore(gormDB)
	responseCache := mw.NewResponseCache(time.Minute)
	reg := registry.NewService(s, storage, sideindex.New(filepath.Join(dir, "uploaded_items.json")), zap.NewNop(),
		registry.WithCache(responseCache))
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	h := NewHandler(s, reg, tokens, nil, false)
	cfg := config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, MaxUploadMB: 1}
	return &testServer{
		router:  NewRouter(h, responseCache, cfg, zap.NewNop()),
		store:   s,
		storage: storage,
		cache:   responseCache,
	}
}

func (ts *testServer) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return ts.do(req, token)
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	w := ts.doJSON(t, http.MethodPost, "/api/login", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

type testFile struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...testFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, w.Body.String())
	code, _ := e["code"].(string)
	return code
}
