// Package api is the typed HTTP client for the SciQ tutor backend. It is
// the default "online authenticate" collaborator of the coordinator and the
// target of the connectivity monitor's health probe. Transport failures are
// classified via neterr at this boundary; callers never see raw maps or
// unclassified errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sciqlabs/tutorlink/internal/logging"
	"github.com/sciqlabs/tutorlink/internal/models"
	"github.com/sciqlabs/tutorlink/internal/neterr"
)

const (
	defaultTimeout = 15 * time.Second

	clientIDHeader = "X-Client-ID"

	maxBodySize = 1 << 20
)

// Client talks JSON over HTTP to the backend. It carries the current access
// and refresh tokens; token fields are guarded because the retry executor's
// refresh hook may run concurrently with probe traffic.
type Client struct {
	baseURL  string
	http     *http.Client
	clientID string
	log      logging.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithClientID sets the per-install identifier sent on every request.
func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}

func WithLogger(log logging.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HealthURL is the reachability probe target.
func (c *Client) HealthURL() string { return c.baseURL + "/" }

// AccessToken returns the current access token, empty when not logged in.
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// SetTokens installs token material restored from the offline cache.
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

// Login authenticates with the backend and remembers the returned tokens.
func (c *Client) Login(ctx context.Context, username, password string) (models.Identity, string, error) {
	var resp loginResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", loginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return models.Identity{}, "", err
	}

	if resp.UserID == "" || resp.AccessToken == "" {
		return models.Identity{}, "", &neterr.NetworkError{
			Kind:      neterr.KindServerError,
			Message:   "malformed login response",
			Retryable: true,
		}
	}

	c.SetTokens(resp.AccessToken, resp.RefreshToken)

	identity := models.Identity{
		UserID:      resp.UserID,
		Username:    resp.Username,
		DisplayName: resp.DisplayName,
	}
	return identity, resp.AccessToken, nil
}

// Refresh exchanges the refresh token for fresh token material. Intended as
// the retry executor's onTokenExpired hook.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refreshToken
	c.mu.Unlock()

	if refresh == "" {
		return neterr.NewTokenInvalid("no refresh token")
	}

	var resp refreshResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: refresh}, &resp); err != nil {
		return err
	}
	if resp.AccessToken == "" {
		return &neterr.NetworkError{Kind: neterr.KindServerError, Message: "malformed refresh response", Retryable: true}
	}

	c.SetTokens(resp.AccessToken, resp.RefreshToken)
	c.log.Debug(ctx, "access token refreshed")
	return nil
}

// Health checks backend liveness via GET /.
func (c *Client) Health(ctx context.Context) error {
	var resp healthResponse
	return c.doJSON(ctx, http.MethodGet, "/", nil, &resp)
}

// Retrieve fetches study context for a question.
func (c *Client) Retrieve(ctx context.Context, questionText, subject string) (*Context, error) {
	var resp Context
	err := c.doJSON(ctx, http.MethodPost, "/retrieve", retrieveRequest{QuestionText: questionText, Subject: subject}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateQuiz asks the backend for quiz questions on a topic.
func (c *Client) GenerateQuiz(ctx context.Context, topic, difficulty string) ([]QuizQuestion, error) {
	var resp quizResponse
	err := c.doJSON(ctx, http.MethodPost, "/quiz/generate", quizRequest{Topic: topic, Difficulty: difficulty}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Quiz, nil
}

// AnalyzeQuiz submits answered questions and returns textual feedback.
func (c *Client) AnalyzeQuiz(ctx context.Context, results []QuizResult) (string, error) {
	var resp analysisResponse
	err := c.doJSON(ctx, http.MethodPost, "/quiz/analyze", analysisRequest{Results: results}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Feedback, nil
}

// doJSON performs one round trip: marshal, send with auth headers, classify
// transport failures, map non-2xx statuses, decode into out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.clientID != "" {
		req.Header.Set(clientIDHeader, c.clientID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return neterr.Classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return neterr.Classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return neterr.FromHTTPStatus(resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &neterr.NetworkError{
				Kind:      neterr.KindServerError,
				Message:   "malformed response body",
				Details:   err.Error(),
				Retryable: true,
			}
		}
	}
	return nil
}
