package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmhlko/post-feed/internal/config"
	"github.com/mmhlko/post-feed/internal/db"
	"github.com/mmhlko/post-feed/internal/service"
	"github.com/mmhlko/post-feed/internal/storage"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	store  *db.Memory
	dir    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := db.NewMemory()
	tokens, err := service.NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	cookie, err := NewCookieConfig(config.AuthConfig{}, tokens.RefreshTTL())
	require.NoError(t, err)

	dir := t.TempDir()
	disk, err := storage.NewDisk(dir, "/uploads")
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		Auth:          service.NewAuthService(store, store, tokens, nil),
		Profiles:      service.NewProfileService(store, disk, nil),
		Posts:         service.NewPostService(store, disk, nil),
		Cookie:        cookie,
		CORSOrigins:   []string{"http://app.test"},
		UploadsDir:    dir,
		UploadsPrefix: "/uploads",
	})
	return &testServer{router: router, store: store, dir: dir}
}

type testResponse struct {
	*httptest.ResponseRecorder
}

func (r testResponse) json(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &out), r.Body.String())
	return out
}

func (r testResponse) refreshCookie() *http.Cookie {
	for _, c := range r.Result().Cookies() {
		if c.Name == RefreshCookieName {
			return c
		}
	}
	return nil
}

func (s *testServer) do(req *http.Request) testResponse {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return testResponse{w}
}

func (s *testServer) postJSON(path, body, bearer string) testResponse {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return s.do(req)
}

func (s *testServer) get(path, bearer string) testResponse {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return s.do(req)
}

func (s *testServer) refresh(cookieValue string) testResponse {
	req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	if cookieValue != "" {
		req.Header.Set("Cookie", "theme=dark; "+RefreshCookieName+"="+cookieValue+"; other=1")
	}
	return s.do(req)
}

// signup returns the access token and the refresh cookie value.
func (s *testServer) signup(t *testing.T, email string) (string, string) {
	t.Helper()
	body := `{"firstName":"Ann","lastName":"Lee","email":"` + email + `","password":"pw"}`
	resp := s.postJSON("/auth/signup", body, "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	cookie := resp.refreshCookie()
	require.NotNil(t, cookie)
	return resp.json(t)["accessToken"].(string), cookie.Value
}

func (s *testServer) userID(t *testing.T, access string) string {
	t.Helper()
	resp := s.get("/auth/me", access)
	require.Equal(t, http.StatusOK, resp.Code)
	return resp.json(t)["id"].(string)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
