// Package webhook provides a client for the signed webhook ingestion service.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Signature"

// Client is a webhook service API client.
type Client struct {
	BaseURL    string
	Secret     string
	HTTPClient *http.Client
}

// NewClient creates a new client. secret may be empty for read-only use.
func NewClient(baseURL, secret string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return &Client{
		BaseURL:    baseURL,
		Secret:     secret,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("webhook service error %d: %s", e.StatusCode, e.Message)
}

// Sign returns the signature header value for body.
func (c *Client) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.Secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// doRequest performs an HTTP request and decodes a JSON answer into out.
func (c *Client) doRequest(method, path string, body []byte, signed bool, out any) error {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if signed {
		req.Header.Set(SignatureHeader, c.Sign(body))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		if errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// Message is one inbound message.
type Message struct {
	MessageID string    `json:"message_id"`
	From      string    `json:"from"`
	To        string    `json:"to,omitempty"`
	Timestamp time.Time `json:"ts"`
	Text      string    `json:"text"`
}

// SendResponse is the answer to an accepted delivery.
type SendResponse struct {
	Status string `json:"status"`
}

// Send delivers body exactly as given, signed with the client secret.
func (c *Client) Send(body []byte) (*SendResponse, error) {
	var resp SendResponse
	if err := c.doRequest(http.MethodPost, "/webhook", body, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessage encodes msg and delivers it. Redelivering the same
// MessageID is safe.
func (c *Client) SendMessage(msg Message) (*SendResponse, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return c.Send(body)
}

// ListOptions filters and pages GET /messages. Zero values are omitted.
type ListOptions struct {
	From   string
	Since  time.Time
	Query  string
	Limit  int
	Offset int
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.From != "" {
		v.Set("from", o.From)
	}
	if !o.Since.IsZero() {
		v.Set("since", o.Since.UTC().Format(time.RFC3339Nano))
	}
	if o.Query != "" {
		v.Set("q", o.Query)
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		v.Set("offset", strconv.Itoa(o.Offset))
	}
	return v
}

// MessagesResponse is one page of messages.
type MessagesResponse struct {
	Items  []Message `json:"items"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// ListMessages retrieves one page of stored messages.
func (c *Client) ListMessages(opts ListOptions) (*MessagesResponse, error) {
	path := "/messages"
	if q := opts.values().Encode(); q != "" {
		path += "?" + q
	}

	var resp MessagesResponse
	if err := c.doRequest(http.MethodGet, path, nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SenderCount is one row of the top senders ranking.
type SenderCount struct {
	From  string `json:"from"`
	Count int64  `json:"count"`
}

// StatsResponse summarizes every stored message.
type StatsResponse struct {
	TotalMessages     int64         `json:"total_messages"`
	SendersCount      int64         `json:"senders_count"`
	MessagesPerSender []SenderCount `json:"messages_per_sender"`
	FirstMessageTS    *time.Time    `json:"first_message_ts"`
	LastMessageTS     *time.Time    `json:"last_message_ts"`
}

// Stats retrieves aggregate statistics.
func (c *Client) Stats() (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.doRequest(http.MethodGet, "/stats", nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthResponse is the response from the readiness probe.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Ready checks whether the service accepts deliveries.
func (c *Client) Ready() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest(http.MethodGet, "/health/ready", nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
