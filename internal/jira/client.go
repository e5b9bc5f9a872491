// Package jira creates issues in the staff Jira project. Only the create-issue
// call is used.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Tracker creates an issue and returns its key, e.g. "SI-42".
type Tracker interface {
	CreateIssue(ctx context.Context, summary, description string) (string, error)
}

var ErrNotConfigured = errors.New("jira is not configured")

type Config struct {
	BaseURL   string
	User      string
	Token     string
	Project   string
	IssueType string
	Timeout   time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient returns a REST client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient}
}

type issueRequest struct {
	Fields issueFields `json:"fields"`
}

type issueFields struct {
	Project     keyRef  `json:"project"`
	Summary     string  `json:"summary"`
	Description string  `json:"description"`
	IssueType   nameRef `json:"issuetype"`
}

type keyRef struct {
	Key string `json:"key"`
}

type nameRef struct {
	Name string `json:"name"`
}

type issueResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type errorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

func (c *Client) CreateIssue(ctx context.Context, summary, description string) (string, error) {
	if c.cfg.BaseURL == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(issueRequest{Fields: issueFields{
		Project:     keyRef{Key: c.cfg.Project},
		Summary:     summary,
		Description: description,
		IssueType:   nameRef{Name: c.cfg.IssueType},
	}})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/rest/api/2/issue", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.User, c.cfg.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("jira create issue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil && (len(e.ErrorMessages) > 0 || len(e.Errors) > 0) {
			return "", fmt.Errorf("jira create issue: status %d: %v %v", resp.StatusCode, e.ErrorMessages, e.Errors)
		}
		return "", fmt.Errorf("jira create issue: status %d", resp.StatusCode)
	}

	var out issueResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("jira create issue: decode: %w", err)
	}
	if out.Key == "" {
		return "", errors.New("jira create issue: response has no key")
	}
	return out.Key, nil
}
