// Package remote is the HTTP client for the authoritative document server.
// It exposes exactly two primitives the sync engine needs: a conditional
// (compare-and-swap) update and an authoritative fetch.
package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sentinel errors for the outcomes callers branch on.
var (
	// ErrRevisionConflict means the server's revision no longer matches the
	// supplied base revision. Expected, terminal for the triggering
	// operation, and not a transport failure.
	ErrRevisionConflict = errors.New("revision conflict")
	// ErrNotFound means the document does not exist on the server.
	ErrNotFound = errors.New("document not found")
	// ErrUnauthorized means the API key was rejected.
	ErrUnauthorized = errors.New("unauthorized")
)

// TransportError wraps a communication failure (network unreachable,
// request failed, malformed response). Non-fatal: the operation stays
// queued and is retried on the next drain.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// RemoteDocument is the authoritative state of a document on the server.
type RemoteDocument struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Revision int64  `json:"revision"`
}

// Client is an HTTP client for the quill document server.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New creates a new remote client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// updateRequest is the body for PUT /v1/documents/{id}.
type updateRequest struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	BaseRevision int64  `json:"base_revision"`
}

// updateResponse is the accepted-write response. The revision must be a
// plain JSON number; any other shape is a transport error, never guessed at.
type updateResponse struct {
	Revision *int64 `json:"revision"`
}

// ConditionalUpdate asks the server to apply the write iff its stored
// revision still equals baseRevision. Returns the new revision on success,
// ErrRevisionConflict if the server's revision advanced independently, or a
// TransportError for anything else.
func (c *Client) ConditionalUpdate(documentID, title, content string, baseRevision int64) (int64, error) {
	body := updateRequest{Title: title, Content: content, BaseRevision: baseRevision}

	status, respBody, err := c.do("PUT", "/v1/documents/"+documentID, body)
	if err != nil {
		return 0, err
	}

	switch status {
	case http.StatusOK:
		var resp updateResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return 0, &TransportError{Err: fmt.Errorf("decode update response: %w", err)}
		}
		if resp.Revision == nil {
			return 0, &TransportError{Err: errors.New("update response missing revision")}
		}
		if *resp.Revision <= baseRevision {
			return 0, &TransportError{Err: fmt.Errorf("server revision %d did not advance past base %d", *resp.Revision, baseRevision)}
		}
		return *resp.Revision, nil
	case http.StatusConflict:
		return 0, fmt.Errorf("document %s: %w", documentID, ErrRevisionConflict)
	case http.StatusUnauthorized:
		return 0, fmt.Errorf("document %s: %w", documentID, ErrUnauthorized)
	default:
		return 0, &TransportError{Err: fmt.Errorf("update: HTTP %d: %s", status, respBody)}
	}
}

// FetchDocument retrieves the authoritative state of a document.
func (c *Client) FetchDocument(documentID string) (*RemoteDocument, error) {
	status, respBody, err := c.do("GET", "/v1/documents/"+documentID, nil)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		var doc RemoteDocument
		if err := json.Unmarshal(respBody, &doc); err != nil {
			return nil, &TransportError{Err: fmt.Errorf("decode document: %w", err)}
		}
		return &doc, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("document %s: %w", documentID, ErrUnauthorized)
	default:
		return nil, &TransportError{Err: fmt.Errorf("fetch: HTTP %d: %s", status, respBody)}
	}
}

// Health hits /healthz to verify server reachability. Used by the monitor
// as the connectivity signal.
func (c *Client) Health() error {
	status, _, err := c.do("GET", "/healthz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &TransportError{Err: fmt.Errorf("healthz: HTTP %d", status)}
	}
	return nil
}

// do executes one request. A request that never completed (dial, timeout,
// body read) is a TransportError; HTTP status handling is up to the caller.
func (c *Client) do(method, path string, body any) (int, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	return resp.StatusCode, respBody, nil
}
