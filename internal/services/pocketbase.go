// PocketBase record client
//
// Wraps the collection REST API (list/view/create/update/delete), batch writes, custom routes,
// file URLs and the users auth endpoints.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultPBBaseURL = "http://127.0.0.1:8090"
	listPageSize     = 500
	usersCollection  = "users"
)

// ResponseError is an error response from PocketBase.
type ResponseError struct {
	Status  int            `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
	URL     string         `json:"-"`
}

func (e *ResponseError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if details := e.fieldErrors(); details != "" {
		msg = msg + " (" + details + ")"
	}
	return fmt.Sprintf("%s [status %d]", msg, e.Status)
}

// Unwrap maps the status code onto the shared sentinel errors.
func (e *ResponseError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return shared.ErrNotAuthenticated
	case http.StatusForbidden:
		return shared.ErrForbidden
	case http.StatusNotFound:
		return shared.ErrNotFound
	default:
		return shared.ErrAPIRequest
	}
}

// fieldErrors flattens PocketBase validation data ({"title": {"code": "...", "message": "..."}}).
func (e *ResponseError) fieldErrors() string {
	var parts []string
	for field, v := range e.Data {
		if m, ok := v.(map[string]any); ok {
			if msg, ok := m["message"].(string); ok {
				parts = append(parts, field+": "+msg)
			}
		}
	}
	return strings.Join(parts, "; ")
}

// ListOptions are the query parameters of a record list request.
type ListOptions struct {
	Filter string
	Sort   string
	Expand string
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	if o.Filter != "" {
		q.Set("filter", o.Filter)
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	if o.Expand != "" {
		q.Set("expand", o.Expand)
	}
	return q
}

// File is a multipart file part for a record file field.
type File struct {
	Field  string
	Name   string
	Reader io.Reader
}

// BatchRequest is one operation of a batch write.
type BatchRequest struct {
	Method string         `json:"method"`
	URL    string         `json:"url"`
	Body   map[string]any `json:"body,omitempty"`
	Files  []File         `json:"-"`
}

// BatchCreate builds a create operation for collection.
func BatchCreate(collection string, body map[string]any, files ...File) BatchRequest {
	return BatchRequest{
		Method: http.MethodPost,
		URL:    "/api/collections/" + url.PathEscape(collection) + "/records",
		Body:   body,
		Files:  files,
	}
}

// BatchResult is the outcome of one batch operation.
type BatchResult struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// FileURLOptions controls file URL query parameters.
type FileURLOptions struct {
	Download bool
	Version  string // cache-busting value
	Thumb    string
}

// AuthResponse is returned by the users auth endpoints.
type AuthResponse struct {
	Token  string      `json:"token"`
	Record models.User `json:"record"`
}

// OAuth2Provider is an OAuth2 provider enabled on the users collection.
type OAuth2Provider struct {
	Name                string `json:"name"`
	DisplayName         string `json:"displayName"`
	State               string `json:"state"`
	AuthURL             string `json:"authURL"`
	CodeVerifier        string `json:"codeVerifier"`
	CodeChallenge       string `json:"codeChallenge"`
	CodeChallengeMethod string `json:"codeChallengeMethod"`
}

// AuthMethods lists the auth methods enabled on the users collection.
type AuthMethods struct {
	Password struct {
		Enabled bool `json:"enabled"`
	} `json:"password"`
	OAuth2 struct {
		Enabled   bool             `json:"enabled"`
		Providers []OAuth2Provider `json:"providers"`
	} `json:"oauth2"`
}

// Provider returns the named provider.
func (m *AuthMethods) Provider(name string) (*OAuth2Provider, bool) {
	for i := range m.OAuth2.Providers {
		if strings.EqualFold(m.OAuth2.Providers[i].Name, name) {
			return &m.OAuth2.Providers[i], true
		}
	}
	return nil, false
}

// PocketBase is a client for a PocketBase backend.
//
// Requests made through the record methods carry the session token supplied by the [oauth2.TokenSource];
// auth endpoints use an unauthenticated client.
type PocketBase struct {
	baseURL string
	client  *http.Client
	anon    *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// PocketBaseOpts configures [NewPocketBase].
type PocketBaseOpts struct {
	BaseURL     string
	HTTPClient  *http.Client
	TokenSource oauth2.TokenSource
	RateLimit   float64 // requests per second, 0 disables limiting
	Logger      *log.Logger
}

// NewPocketBase creates a PocketBase client.
func NewPocketBase(opts PocketBaseOpts) *PocketBase {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultPBBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	client := opts.HTTPClient
	if opts.TokenSource != nil {
		base := opts.HTTPClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		client = &http.Client{
			Transport: &oauth2.Transport{Source: opts.TokenSource, Base: base},
			Timeout:   opts.HTTPClient.Timeout,
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &PocketBase{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
		anon:    opts.HTTPClient,
		limiter: limiter,
		logger:  opts.Logger,
	}
}

// BaseURL returns the backend base URL without a trailing slash.
func (pb *PocketBase) BaseURL() string {
	return pb.baseURL
}

// HTTPClient returns the authenticated HTTP client.
func (pb *PocketBase) HTTPClient() *http.Client {
	return pb.client
}

func recordsPath(collection string) string {
	return "/api/collections/" + url.PathEscape(collection) + "/records"
}

func recordPath(collection, id string) string {
	return recordsPath(collection) + "/" + url.PathEscape(id)
}

// do sends req and decodes a successful JSON response into out.
func (pb *PocketBase) do(ctx context.Context, client *http.Client, req *http.Request, out any) error {
	if err := pb.limiter.Wait(ctx); err != nil {
		return pb.contextError(ctx, req, err)
	}

	pb.logger.Debug("pocketbase request", "method", req.Method, "path", req.URL.Path)

	resp, err := client.Do(req)
	if err != nil {
		return pb.contextError(ctx, req, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &ResponseError{Status: resp.StatusCode, URL: req.URL.String()}
		body, _ := io.ReadAll(resp.Body)
		if len(body) > 0 {
			_ = json.Unmarshal(body, apiErr)
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// contextError reports superseded requests as [shared.ErrAutocancelled].
func (pb *PocketBase) contextError(ctx context.Context, req *http.Request, err error) error {
	if cause := context.Cause(ctx); cause != nil && errors.Is(cause, shared.ErrAutocancelled) {
		return fmt.Errorf("%w: %s %s", shared.ErrAutocancelled, req.Method, req.URL.Path)
	}
	return fmt.Errorf("request failed: %w", err)
}

func (pb *PocketBase) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := pb.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Send performs an authenticated JSON request against any route, including custom ones.
func (pb *PocketBase) Send(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := pb.newRequest(ctx, method, path, query, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return pb.do(ctx, pb.client, req, out)
}

type listPage struct {
	Page    int               `json:"page"`
	PerPage int               `json:"perPage"`
	Items   []json.RawMessage `json:"items"`
}

// List returns every record matching opts, fetching pages until a short page is returned.
func (pb *PocketBase) List(ctx context.Context, collection string, opts ListOptions) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for page := 1; ; page++ {
		q := opts.values()
		q.Set("page", strconv.Itoa(page))
		q.Set("perPage", strconv.Itoa(listPageSize))
		q.Set("skipTotal", "1")

		var res listPage
		if err := pb.Send(ctx, http.MethodGet, recordsPath(collection), q, nil, &res); err != nil {
			return nil, err
		}
		all = append(all, res.Items...)

		if len(res.Items) < listPageSize {
			return all, nil
		}
	}
}

// FirstListItem returns the first record matching filter or an error wrapping [shared.ErrNotFound].
func (pb *PocketBase) FirstListItem(ctx context.Context, collection string, opts ListOptions) (json.RawMessage, error) {
	q := opts.values()
	q.Set("page", "1")
	q.Set("perPage", "1")
	q.Set("skipTotal", "1")

	var res listPage
	if err := pb.Send(ctx, http.MethodGet, recordsPath(collection), q, nil, &res); err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, &ResponseError{Status: http.StatusNotFound, Message: "The requested resource wasn't found."}
	}
	return res.Items[0], nil
}

// GetOne returns a single record by id.
func (pb *PocketBase) GetOne(ctx context.Context, collection, id, expand string, out any) error {
	return pb.Send(ctx, http.MethodGet, recordPath(collection, id), ListOptions{Expand: expand}.values(), nil, out)
}

// Create creates a record. Files switch the request to multipart.
func (pb *PocketBase) Create(ctx context.Context, collection string, body map[string]any, files []File, out any) error {
	return pb.write(ctx, http.MethodPost, recordsPath(collection), body, files, out)
}

// Update patches a record. Files switch the request to multipart.
func (pb *PocketBase) Update(ctx context.Context, collection, id string, body map[string]any, files []File, out any) error {
	return pb.write(ctx, http.MethodPatch, recordPath(collection, id), body, files, out)
}

// Delete deletes a record.
func (pb *PocketBase) Delete(ctx context.Context, collection, id string) error {
	return pb.Send(ctx, http.MethodDelete, recordPath(collection, id), nil, nil, nil)
}

func (pb *PocketBase) write(ctx context.Context, method, path string, body map[string]any, files []File, out any) error {
	if len(files) == 0 {
		return pb.Send(ctx, method, path, nil, body, out)
	}

	payload, contentType, err := multipartBody(body, files, func(f File) string { return f.Field })
	if err != nil {
		return err
	}

	req, err := pb.newRequest(ctx, method, path, nil, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return pb.do(ctx, pb.client, req, out)
}

// multipartBody encodes fields as the @jsonPayload part and appends file parts named by fieldName.
func multipartBody(fields any, files []File, fieldName func(File) string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode request body: %w", err)
	}
	if err := w.WriteField("@jsonPayload", string(data)); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart payload: %w", err)
	}

	for _, f := range files {
		part, err := w.CreateFormFile(fieldName(f), f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, "", fmt.Errorf("failed to write file %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Batch executes all requests in a single transactional batch write.
func (pb *PocketBase) Batch(ctx context.Context, requests []BatchRequest) ([]BatchResult, error) {
	if len(requests) == 0 {
		return nil, nil
	}

	envelope := map[string]any{"requests": requests}

	var hasFiles bool
	for _, r := range requests {
		if len(r.Files) > 0 {
			hasFiles = true
			break
		}
	}

	var results []BatchResult
	if !hasFiles {
		if err := pb.Send(ctx, http.MethodPost, "/api/batch", nil, envelope, &results); err != nil {
			return nil, err
		}
		return results, nil
	}

	var files []File
	for i, r := range requests {
		for _, f := range r.Files {
			f.Field = fmt.Sprintf("requests.%d.%s", i, f.Field)
			files = append(files, f)
		}
	}

	payload, contentType, err := multipartBody(envelope, files, func(f File) string { return f.Field })
	if err != nil {
		return nil, err
	}

	req, err := pb.newRequest(ctx, http.MethodPost, "/api/batch", nil, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	if err := pb.do(ctx, pb.client, req, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// FileURL builds the URL of a record file.
func (pb *PocketBase) FileURL(ref models.FileRef, opts FileURLOptions) string {
	if ref.RecordID == "" || ref.Filename == "" {
		return ""
	}

	u := fmt.Sprintf("%s/api/files/%s/%s/%s", pb.baseURL,
		url.PathEscape(ref.CollectionID), url.PathEscape(ref.RecordID), url.PathEscape(ref.Filename))

	q := url.Values{}
	if opts.Download {
		q.Set("download", "1")
	}
	if opts.Thumb != "" {
		q.Set("thumb", opts.Thumb)
	}
	if opts.Version != "" {
		q.Set("v", opts.Version)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// Download streams the body at fileURL into w and returns the number of bytes written.
func (pb *PocketBase) Download(ctx context.Context, fileURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	if err := pb.limiter.Wait(ctx); err != nil {
		return 0, pb.contextError(ctx, req, err)
	}

	resp, err := pb.client.Do(req)
	if err != nil {
		return 0, pb.contextError(ctx, req, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &ResponseError{Status: resp.StatusCode, URL: fileURL}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read response: %w", err)
	}
	return n, nil
}

func (pb *PocketBase) authRequest(ctx context.Context, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	method := http.MethodPost
	if body == nil && token == "" {
		method = http.MethodGet
	}

	req, err := pb.newRequest(ctx, method, "/api/collections/"+usersCollection+path, nil, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	return pb.do(ctx, pb.anon, req, out)
}

// AuthWithPassword signs a user in with email and password.
func (pb *PocketBase) AuthWithPassword(ctx context.Context, identity, password string) (*AuthResponse, error) {
	var res AuthResponse
	body := map[string]string{"identity": identity, "password": password}
	if err := pb.authRequest(ctx, "/auth-with-password", "", body, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return &res, nil
}

// AuthRefresh exchanges a still-valid token for a new one.
func (pb *PocketBase) AuthRefresh(ctx context.Context, token string) (*AuthResponse, error) {
	var res AuthResponse
	if err := pb.authRequest(ctx, "/auth-refresh", token, map[string]string{}, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	return &res, nil
}

// AuthMethods lists the enabled auth methods and OAuth2 providers.
func (pb *PocketBase) AuthMethods(ctx context.Context) (*AuthMethods, error) {
	var res AuthMethods
	if err := pb.authRequest(ctx, "/auth-methods", "", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AuthWithOAuth2 completes an OAuth2 authorization code flow.
func (pb *PocketBase) AuthWithOAuth2(ctx context.Context, provider, code, codeVerifier, redirectURL string) (*AuthResponse, error) {
	var res AuthResponse
	body := map[string]string{
		"provider":     provider,
		"code":         code,
		"codeVerifier": codeVerifier,
		"redirectURL":  redirectURL,
	}
	if err := pb.authRequest(ctx, "/auth-with-oauth2", "", body, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return &res, nil
}

// ListAs lists records and decodes each into T.
func ListAs[T any](ctx context.Context, pb *PocketBase, collection string, opts ListOptions) ([]T, error) {
	raw, err := pb.List(ctx, collection, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](raw)
}

// FirstAs returns the first matching record decoded into T.
func FirstAs[T any](ctx context.Context, pb *PocketBase, collection string, opts ListOptions) (*T, error) {
	raw, err := pb.FirstListItem(ctx, collection, opts)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s record: %w", collection, err)
	}
	return &v, nil
}

func decodeAll[T any](raw []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
