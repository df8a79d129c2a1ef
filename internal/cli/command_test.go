package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmhlko/post-feed/internal/config"
	"github.com/mmhlko/post-feed/internal/db"
	"github.com/mmhlko/post-feed/internal/handler"
	"github.com/mmhlko/post-feed/internal/model"
	"github.com/mmhlko/post-feed/internal/service"
	"github.com/mmhlko/post-feed/internal/storage"
)

func newServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := db.NewMemory()
	tokens, err := service.NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	cookie, err := handler.NewCookieConfig(config.AuthConfig{}, tokens.RefreshTTL())
	require.NoError(t, err)
	disk, err := storage.NewDisk(t.TempDir(), "/uploads")
	require.NoError(t, err)

	ts := httptest.NewServer(handler.NewRouter(handler.RouterConfig{
		Auth:     service.NewAuthService(store, store, tokens, nil),
		Profiles: service.NewProfileService(store, disk, nil),
		Posts:    service.NewPostService(store, disk, nil),
		Cookie:   cookie,
	}))
	t.Cleanup(ts.Close)
	return ts.URL
}

func execute(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--base-url", baseURL, "--email", "ann@x.com", "--password", "pw-123456"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFeedctlFlow(t *testing.T) {
	url := newServer(t)

	out, err := execute(t, url, "signup", "--first-name", "Ann")
	require.NoError(t, err)
	var me model.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &me))
	assert.Equal(t, "ann@x.com", me.Email)
	assert.Equal(t, "Ann", me.FirstName)

	img := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))

	out, err = execute(t, url, "post", "hello", "--image", img)
	require.NoError(t, err)
	var post model.Post
	require.NoError(t, json.Unmarshal([]byte(out), &post))
	assert.Equal(t, "hello", post.Text)
	assert.Len(t, post.Images, 1)

	out, err = execute(t, url, "feed", "--limit", "10")
	require.NoError(t, err)
	var list model.PostListResponse
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, 1, list.Total)

	out, err = execute(t, url, "refresh-check", "--requests", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "4 requests succeeded, token rotated: true")

	out, err = execute(t, url, "delete", post.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+post.ID)

	out, err = execute(t, url, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")
}

func TestFeedctlRequiresCredentials(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--base-url", "http://127.0.0.1:1", "--email", "", "--password", "", "me"})

	err := cmd.ExecuteContext(context.Background())
	assert.EqualError(t, err, "--email and --password are required")
}

func TestFeedctlLoginFailure(t *testing.T) {
	url := newServer(t)

	_, err := execute(t, url, "me")
	assert.ErrorContains(t, err, "login failed")
}
