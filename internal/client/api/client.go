// Package api is the typed HTTP wrapper around the document-translation
// backend: one method per backend capability, bearer credential on every
// authenticated call, no retries. Failures propagate immediately to the
// caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/olexh/doctrans/internal/client/models"
	"github.com/olexh/doctrans/internal/logging"
)

// CredentialSource supplies the bearer credential for authenticated calls
// and is told to invalidate it when the backend answers 401. The session
// store implements it.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
	Invalidate(ctx context.Context) error
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	log        logging.Logger
}

func NewClient(baseURL string, creds CredentialSource, log logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		creds:      creds,
		log:        log,
	}
}

type loginRequest struct {
	Token string `json:"token"`
}

// LoginResult is the backend's answer to a successful login.
type LoginResult struct {
	User         models.User `json:"user"`
	SessionToken string      `json:"session_token"`
}

// Login exchanges an identity-provider token for a session. This is the one
// unauthenticated call: a 401 here means the offered token was rejected, not
// that an existing session expired.
func (c *Client) Login(ctx context.Context, token string) (*LoginResult, error) {
	payload, err := json.Marshal(loginRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFrom(resp)
	}

	var out LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	return &out, nil
}

type documentsResponse struct {
	Documents []models.DocumentRecord `json:"documents"`
}

// ListDocuments fetches the full document list for the current user.
func (c *Client) ListDocuments(ctx context.Context) ([]models.DocumentRecord, error) {
	resp, err := c.doAuthenticated(ctx, http.MethodGet, "/documents", "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFrom(resp)
	}

	var out documentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return out.Documents, nil
}

type uploadResponse struct {
	RequestID string `json:"request_id"`
}

// Upload submits a document binary as multipart form data and returns the
// request identifier generated by the backend. The selected target language
// travels as an explicit form field; the backend may ignore it, but the
// client always states it.
func (c *Client) Upload(ctx context.Context, file io.Reader, fileName, documentType, targetLanguage string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return "", fmt.Errorf("read upload file: %w", err)
	}
	if err := mw.WriteField("document_type", documentType); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if targetLanguage != "" {
		if err := mw.WriteField("target_language", targetLanguage); err != nil {
			return "", fmt.Errorf("build multipart body: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}

	resp, err := c.doAuthenticated(ctx, http.MethodPost, "/documents/upload", mw.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errorFrom(resp)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return out.RequestID, nil
}

// Start triggers translation processing for an uploaded document.
func (c *Client) Start(ctx context.Context, id string) error {
	resp, err := c.doAuthenticated(ctx, http.MethodPost, "/documents/"+id+"/start", "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFrom(resp)
	}
	return nil
}

// GetDocument fetches the current status record of a single document.
func (c *Client) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	resp, err := c.doAuthenticated(ctx, http.MethodGet, "/documents/"+id, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFrom(resp)
	}

	var out models.DocumentRecord
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &out, nil
}

// FetchAsset streams the binary content behind an asset reference (an
// original or translated document) into w and returns the number of bytes
// written.
func (c *Client) FetchAsset(ctx context.Context, assetRef string, w io.Writer) (int64, error) {
	resp, err := c.doAuthenticated(ctx, http.MethodGet, assetRef, "", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, errorFrom(resp)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read asset body: %w", err)
	}
	return n, nil
}

// doAuthenticated performs a request against /api with the bearer credential
// attached. A missing credential fails fast with ErrUnauthenticated; a 401
// response invalidates the stored session and surfaces ErrSessionExpired.
func (c *Client) doAuthenticated(ctx context.Context, method, endpoint, contentType string, body io.Reader) (*http.Response, error) {
	cred, err := c.creds.Credential(ctx)
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	if cred == "" {
		return nil, ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if ierr := c.creds.Invalidate(ctx); ierr != nil {
			c.log.Error(ctx, "failed to invalidate session", "error", ierr)
		}
		return nil, ErrSessionExpired
	}
	return resp, nil
}

// errorFrom builds a RequestError from a non-2xx response, taking the
// human-readable message from the backend's "detail" field when present.
func errorFrom(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var payload struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(body, &payload)
	return &RequestError{StatusCode: resp.StatusCode, Message: payload.Detail}
}
