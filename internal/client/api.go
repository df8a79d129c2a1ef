// Post feed API 클라이언트
// access token은 메모리에만 두고, refresh token은 cookie jar가 관리한다.
// 인증이 필요한 요청은 모두 RefreshCoordinator를 거친다.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmhlko/post-feed/internal/config"
	"github.com/mmhlko/post-feed/internal/model"
)

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

type APIClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenStore
	coord      *RefreshCoordinator
	logger     *slog.Logger
}

type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
	onExpired  func(error)
}

// WithHTTPClient replaces the default client. A cookie jar is attached when
// the given client has none.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithClientLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// OnSessionExpired is called when a refresh fails and the user has to log
// in again.
func OnSessionExpired(fn func(error)) Option {
	return func(o *options) { o.onExpired = fn }
}

func NewAPIClient(cfg config.ClientConfig, opts ...Option) (*APIClient, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	c := &APIClient{
		baseURL:    base,
		httpClient: httpClient,
		tokens:     NewTokenStore(),
		logger:     o.logger,
	}
	c.coord = NewRefreshCoordinator(c.tokens, c.Refresh,
		WithRefreshTimeout(defaultRefreshTimeout),
		WithSessionExpired(o.onExpired),
		WithLogger(o.logger),
	)
	return c, nil
}

// AccessToken returns the in-memory access token, empty when logged out.
func (c *APIClient) AccessToken() string {
	return c.tokens.Get()
}

// SetAccessToken primes the session, e.g. with a token kept by a caller.
func (c *APIClient) SetAccessToken(token string) {
	c.tokens.Set(token)
}

func (c *APIClient) Signup(ctx context.Context, req model.SignupRequest) error {
	return c.authenticate(ctx, "/auth/signup", req, http.StatusCreated)
}

func (c *APIClient) Login(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "/auth/login", model.LoginRequest{Email: email, Password: password}, http.StatusOK)
}

// Refresh exchanges the refresh cookie for a new access token. The server
// rotates the cookie in the same response.
func (c *APIClient) Refresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/refresh", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create refresh request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var out model.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	return out.AccessToken, nil
}

// Logout ends the server session. The local token is dropped even when the
// request fails.
func (c *APIClient) Logout(ctx context.Context) error {
	defer c.coord.Reset()
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil, http.StatusOK)
}

func (c *APIClient) Me(ctx context.Context) (*model.Profile, error) {
	var out model.Profile
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var out model.Profile
	if err := c.doJSON(ctx, http.MethodGet, "/user/"+url.PathEscape(userID), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (*model.Profile, error) {
	var out model.Profile
	if err := c.doJSON(ctx, http.MethodPatch, "/user/"+url.PathEscape(userID), req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) ListPosts(ctx context.Context, q model.PostListQuery) (*model.PostListResponse, error) {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	path := "/posts"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out model.PostListResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) GetPost(ctx context.Context, id string) (*model.Post, error) {
	var out model.Post
	if err := c.doJSON(ctx, http.MethodGet, "/posts/"+url.PathEscape(id), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePost sends text and images as multipart/form-data.
func (c *APIClient) CreatePost(ctx context.Context, text string, images []model.Upload) (*model.Post, error) {
	var fields []formField
	if text != "" {
		fields = append(fields, formField{name: "text", value: text})
	}

	var out model.Post
	if err := c.doMultipart(ctx, http.MethodPost, "/posts", fields, "images", images, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostUpdate is a partial post edit. A nil Text keeps the current text.
type PostUpdate struct {
	Text           *string
	RemoveImageIDs []string
	Images         []model.Upload
}

func (c *APIClient) UpdatePost(ctx context.Context, id string, upd PostUpdate) (*model.Post, error) {
	var fields []formField
	if upd.Text != nil {
		fields = append(fields, formField{name: "text", value: *upd.Text})
	}
	for _, imageID := range upd.RemoveImageIDs {
		fields = append(fields, formField{name: "removeImageIds", value: imageID})
	}

	var out model.Post
	if err := c.doMultipart(ctx, http.MethodPatch, "/posts/"+url.PathEscape(id), fields, "images", upd.Images, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadAvatar replaces the user's avatar. Only the user may change it.
func (c *APIClient) UploadAvatar(ctx context.Context, userID string, image model.Upload) (*model.Profile, error) {
	var out model.Profile
	path := "/user/" + url.PathEscape(userID) + "/avatar"
	if err := c.doMultipart(ctx, http.MethodPost, path, nil, "file", []model.Upload{image}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) DeletePost(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), nil, nil, http.StatusOK)
}

func (c *APIClient) authenticate(ctx context.Context, path string, payload any, want int) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body), "")
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	var out model.AuthResponse
	if err := decodeResponse(resp, want, &out); err != nil {
		return err
	}
	c.tokens.Set(out.AccessToken)
	return nil
}

// doJSON runs an authenticated request through the refresh coordinator.
func (c *APIClient) doJSON(ctx context.Context, method, path string, payload, out any, want int) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.coord.Do(ctx, func(ctx context.Context, token string) (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := c.newRequest(ctx, method, path, reader, token)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return err
	}
	return decodeResponse(resp, want, out)
}

// doMultipart encodes the form once; each attempt reads a fresh reader over
// the same bytes.
func (c *APIClient) doMultipart(ctx context.Context, method, path string, fields []formField, fileField string, files []model.Upload, out any, want int) error {
	body, contentType, err := encodeForm(fields, fileField, files)
	if err != nil {
		return err
	}

	resp, err := c.coord.Do(ctx, func(ctx context.Context, token string) (*http.Response, error) {
		req, err := c.newRequest(ctx, method, path, bytes.NewReader(body), token)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return c.httpClient.Do(req)
	})
	if err != nil {
		return err
	}
	return decodeResponse(resp, want, out)
}

func (c *APIClient) newRequest(ctx context.Context, method, path string, body io.Reader, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func decodeResponse(resp *http.Response, want int, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var body model.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: body.Error}
}

type formField struct {
	name  string
	value string
}

func encodeForm(fields []formField, fileField string, files []model.Upload) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write form: %w", err)
		}
	}
	for _, file := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, file.Filename))
		contentType := file.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(file.Data)
		}
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to write form: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to write form: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
