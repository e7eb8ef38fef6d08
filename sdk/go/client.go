package rgbsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal RGB Portal HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Application represents the API application model (partial).
type Application struct {
	ID                int64  `json:"id"`
	ApplicantID       int64  `json:"applicant_id"`
	OrganizationName  string `json:"organization_name"`
	Acronym           string `json:"acronym,omitempty"`
	District          string `json:"district"`
	Status            string `json:"status"`
	SubmittedAt       string `json:"submitted_at"`
	LastModified      string `json:"last_modified"`
	CertificateNumber string `json:"certificate_number,omitempty"`
	Editable          bool   `json:"editable"`
}

// Outcome wraps state-changing responses.
type Outcome struct {
	Application Application `json:"application"`
	Warnings    []string    `json:"warnings,omitempty"`
}

// AuditRecord is one trail entry.
type AuditRecord struct {
	ID         int64  `json:"id"`
	ActorName  string `json:"actor_name,omitempty"`
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status,omitempty"`
	Comment    string `json:"comment,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// Notification is one inbox entry.
type Notification struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// Certificate is the public verification result.
type Certificate struct {
	CertificateNumber string `json:"certificate_number"`
	OrganizationName  string `json:"organization_name"`
	District          string `json:"district"`
	IssuedAt          string `json:"issued_at"`
}

// Token is a login result.
type Token struct {
	Token string `json:"token"`
	Kind  string `json:"kind"`
	ID    int64  `json:"id"`
	Role  string `json:"role,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login authenticates and stores the bearer token on the client.
func (c *Client) Login(ctx context.Context, email, password, kind string) (Token, error) {
	body := map[string]any{"email": email, "password": password, "kind": kind}
	var resp Token
	if err := c.do(ctx, http.MethodPost, "auth/login", body, &resp); err != nil {
		return Token{}, err
	}
	c.BearerToken = resp.Token
	return resp, nil
}

// CreateApplication submits a new application.
func (c *Client) CreateApplication(ctx context.Context, orgName, acronym, district, email, phone string) (Outcome, error) {
	body := map[string]any{
		"organization_name":  orgName,
		"acronym":            acronym,
		"district":           district,
		"organization_email": email,
		"organization_phone": phone,
	}
	var resp Outcome
	err := c.do(ctx, http.MethodPost, "applications", body, &resp)
	return resp, err
}

// GetApplication fetches one application.
func (c *Client) GetApplication(ctx context.Context, id int64) (Application, error) {
	var resp Application
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("applications/%d", id), nil, &resp)
	return resp, err
}

// ListApplications returns applications visible to the caller.
func (c *Client) ListApplications(ctx context.Context, status string) ([]Application, error) {
	endpoint := "applications"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []Application
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// UpdateStatus applies a status transition as a reviewer.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status, comment string) (Outcome, error) {
	body := map[string]any{"status": status, "comment": comment}
	var resp Outcome
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("applications/%d/status", id), body, &resp)
	return resp, err
}

// AuditTrail returns an application's trail, newest first.
func (c *Client) AuditTrail(ctx context.Context, id int64) ([]AuditRecord, error) {
	var resp []AuditRecord
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("applications/%d/audit", id), nil, &resp)
	return resp, err
}

// Notifications returns the caller's inbox.
func (c *Client) Notifications(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	endpoint := "notifications"
	if unreadOnly {
		endpoint += "?unread_only=true"
	}
	var resp []Notification
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// VerifyCertificate checks a certificate number. Requires no auth.
func (c *Client) VerifyCertificate(ctx context.Context, number string) (Certificate, error) {
	var resp Certificate
	err := c.do(ctx, http.MethodGet, "certificates/"+url.PathEscape(number), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
