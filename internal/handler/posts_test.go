package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000")

func multipartRequest(t *testing.T, method, path, bearer string, fields map[string][]string, fileField string, files int) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	for i := 0; i < files; i++ {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="img.png"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(pngBytes)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+bearer)
	return req
}

func TestPostsCRUD(t *testing.T) {
	srv := newTestServer(t)
	author, _ := srv.signup(t, "a@x.com")
	other, _ := srv.signup(t, "b@x.com")

	created := srv.do(multipartRequest(t, http.MethodPost, "/posts", author, map[string][]string{"text": {"hello"}}, "images", 2))
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	post := created.json(t)
	postID := post["id"].(string)
	images := post["images"].([]any)
	require.Len(t, images, 2)
	assert.Equal(t, "Ann", post["author"].(map[string]any)["firstName"])

	imageURL := images[0].(map[string]any)["url"].(string)
	assert.Equal(t, http.StatusOK, srv.get(imageURL, "").Code, "uploads are served statically")

	list := srv.get("/posts?limit=5&offset=0&sort=desc", author)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Equal(t, float64(1), list.json(t)["total"])

	lenient := srv.get("/posts?limit=abc&offset=-", author)
	require.Equal(t, http.StatusOK, lenient.Code, "bad paging values fall back to defaults")
	assert.Len(t, lenient.json(t)["items"], 1)

	forbidden := srv.do(multipartRequest(t, http.MethodPatch, "/posts/"+postID, other, map[string][]string{"text": {"mine"}}, "images", 0))
	assert.Equal(t, http.StatusForbidden, forbidden.Code)

	removeID := images[0].(map[string]any)["id"].(string)
	updated := srv.do(multipartRequest(t, http.MethodPatch, "/posts/"+postID, author,
		map[string][]string{"text": {"edited"}, "removeImageIds": {removeID}}, "images", 1))
	require.Equal(t, http.StatusOK, updated.Code, updated.Body.String())
	assert.Equal(t, "edited", updated.json(t)["text"])
	assert.Len(t, updated.json(t)["images"], 2)
	assert.Equal(t, http.StatusNotFound, srv.get(imageURL, "").Code, "removed image file is deleted")

	// browsers' FormData convention for arrays
	remaining := updated.json(t)["images"].([]any)
	bracketID := remaining[0].(map[string]any)["id"].(string)
	bracketed := srv.do(multipartRequest(t, http.MethodPatch, "/posts/"+postID, author,
		map[string][]string{"removeImageIds[]": {bracketID}}, "images", 0))
	require.Equal(t, http.StatusOK, bracketed.Code, bracketed.Body.String())
	left := bracketed.json(t)["images"].([]any)
	require.Len(t, left, 1)
	assert.NotEqual(t, bracketID, left[0].(map[string]any)["id"])
	assert.Equal(t, "edited", bracketed.json(t)["text"], "text is kept when the field is absent")

	del := httptest.NewRequest(http.MethodDelete, "/posts/"+postID, nil)
	del.Header.Set("Authorization", "Bearer "+other)
	assert.Equal(t, http.StatusForbidden, srv.do(del).Code)

	del = httptest.NewRequest(http.MethodDelete, "/posts/"+postID, nil)
	del.Header.Set("Authorization", "Bearer "+author)
	resp := srv.do(del)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, true, resp.json(t)["ok"])

	assert.Equal(t, http.StatusNotFound, srv.get("/posts/"+postID, author).Code)
}

func TestCreatePostTooManyImages(t *testing.T) {
	srv := newTestServer(t)
	author, _ := srv.signup(t, "a@x.com")

	resp := srv.do(multipartRequest(t, http.MethodPost, "/posts", author, map[string][]string{"text": {"hi"}}, "images", 6))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdatePostJSON(t *testing.T) {
	srv := newTestServer(t)
	author, _ := srv.signup(t, "a@x.com")

	created := srv.do(multipartRequest(t, http.MethodPost, "/posts", author, map[string][]string{"text": {"hello"}}, "images", 0))
	require.Equal(t, http.StatusCreated, created.Code)
	postID := created.json(t)["id"].(string)

	req := httptest.NewRequest(http.MethodPatch, "/posts/"+postID, bytes.NewBufferString(`{"text":"json edit"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+author)
	resp := srv.do(req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "json edit", resp.json(t)["text"])
}

func TestParseIDList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseIDList([]string{`["a","b"]`}))
	assert.Equal(t, []string{"a", "b", "c"}, parseIDList([]string{"a,b", " c "}))
	assert.Nil(t, parseIDList(nil))
}
