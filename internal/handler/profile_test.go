package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patchJSON(srv *testServer, path, body, bearer string) testResponse {
	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	return srv.do(req)
}

func TestProfileEndpoints(t *testing.T) {
	srv := newTestServer(t)
	access, _ := srv.signup(t, "a@x.com")
	otherAccess, _ := srv.signup(t, "b@x.com")
	me := srv.userID(t, access)
	other := srv.userID(t, otherAccess)

	got := srv.get("/user/"+me, otherAccess)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, "a@x.com", got.json(t)["email"])

	assert.Equal(t, http.StatusNotFound, srv.get("/user/missing", access).Code)
	assert.Equal(t, http.StatusUnauthorized, srv.get("/user/"+me, "").Code)

	updated := patchJSON(srv, "/user/"+me, `{"about":"hello","birthDate":"1990-05-01T00:00:00Z"}`, access)
	require.Equal(t, http.StatusOK, updated.Code, updated.Body.String())
	assert.Equal(t, "hello", updated.json(t)["about"])

	assert.Equal(t, http.StatusForbidden, patchJSON(srv, "/user/"+other, `{"about":"x"}`, access).Code)
	assert.Equal(t, http.StatusConflict, patchJSON(srv, "/user/"+me, `{"email":"b@x.com"}`, access).Code)
}

func TestUploadAvatar(t *testing.T) {
	srv := newTestServer(t)
	access, _ := srv.signup(t, "a@x.com")
	otherAccess, _ := srv.signup(t, "b@x.com")
	me := srv.userID(t, access)

	resp := srv.do(multipartRequest(t, http.MethodPost, "/user/"+me+"/avatar", access, nil, "file", 1))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	avatar := resp.json(t)["avatarUrl"].(string)
	assert.Contains(t, avatar, "/uploads/avatars/")

	forbidden := srv.do(multipartRequest(t, http.MethodPost, "/user/"+me+"/avatar", otherAccess, nil, "file", 1))
	assert.Equal(t, http.StatusForbidden, forbidden.Code)

	missing := srv.do(multipartRequest(t, http.MethodPost, "/user/"+me+"/avatar", access, nil, "file", 0))
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}
