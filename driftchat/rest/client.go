// Package rest implements the authenticated request client and the chat
// directory operations on top of it. Every outbound call attaches the
// current bearer credential; a 401 outside the verification allow-list
// invalidates the whole session, which cascades to closing any open realtime
// connection.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/driftchat/drift-sdk-go/driftchat"
)

// Client is the authenticated HTTP client for the chat backend. It reads the
// credential from the shared session store on every call; it never keeps a
// copy beyond a single in-flight request.
type Client struct {
	baseURL     string
	session     *driftchat.SessionStore
	httpClient  *http.Client
	logger      driftchat.Logger
	verifyPaths map[string]struct{}
	historyPage int
}

// NewClient creates a client against cfg.BaseURL using the given session
// store.
func NewClient(cfg driftchat.Config, session *driftchat.SessionStore) *Client {
	verify := make(map[string]struct{}, len(cfg.VerifyPaths))
	for _, p := range cfg.VerifyPaths {
		verify[p] = struct{}{}
	}
	page := cfg.HistoryPageSize
	if page <= 0 {
		page = driftchat.DefaultConfig().HistoryPageSize
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		session: session,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:      noopLogger{},
		verifyPaths: verify,
		historyPage: page,
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetLogger overrides the logger (optional).
func (c *Client) SetLogger(l driftchat.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Login authenticates and stores the returned credential in the session
// store. A 401 here means wrong credentials, not an expired session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp tokenResponse
	if err := c.post(ctx, "/login", loginRequest{Username: username, Password: password}, &resp); err != nil {
		return err
	}
	c.session.Set(resp.Token)
	return nil
}

// VerifyPassword probes whether password matches the current account. The
// endpoint is allow-listed: a 401 surfaces as ErrorInvalidInput and never
// invalidates the session.
func (c *Client) VerifyPassword(ctx context.Context, password string) error {
	return c.post(ctx, "/auth/verify-password", verifyPasswordRequest{Password: password}, nil)
}

// ListRooms returns all room summaries for the authenticated user.
func (c *Client) ListRooms(ctx context.Context) ([]driftchat.ChatRoom, error) {
	var resp []roomInfo
	if err := c.get(ctx, "/rooms", &resp); err != nil {
		return nil, err
	}
	rooms := make([]driftchat.ChatRoom, 0, len(resp))
	for _, r := range resp {
		rooms = append(rooms, driftchat.ChatRoom{
			RoomID:          r.RoomID,
			DisplayName:     r.DisplayName,
			IsGroup:         r.IsGroup,
			LastMessage:     r.LastMessage,
			LastMessageTime: r.LastMessageTime,
			UnreadCount:     r.UnreadCount,
		})
	}
	return rooms, nil
}

// FetchHistory retrieves the most recent history page for a room, ascending.
func (c *Client) FetchHistory(ctx context.Context, roomID string) ([]driftchat.ChatMessage, error) {
	var resp historyResponse
	path := fmt.Sprintf("/rooms/%s/messages?limit=%d", roomID, c.historyPage)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	msgs := make([]driftchat.ChatMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msgs = append(msgs, driftchat.ChatMessage{
			RoomID:   m.RoomID,
			SenderID: m.SenderID,
			Body:     m.Body,
			SentAt:   m.SentAt,
		})
	}
	return msgs, nil
}

// MarkRead resets the unread count for a room, locally observable on the
// next listing.
func (c *Client) MarkRead(ctx context.Context, roomID string) error {
	return c.post(ctx, "/rooms/"+roomID+"/read", nil, nil)
}

// Leave removes the current user from a room.
func (c *Client) Leave(ctx context.Context, roomID string) error {
	return c.post(ctx, "/rooms/"+roomID+"/leave", nil, nil)
}

var _ driftchat.Directory = (*Client)(nil)

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	token, hasAuth := c.session.Get()
	if hasAuth {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return driftchat.WrapError(driftchat.ErrorTransport, "no response received", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return driftchat.WrapError(driftchat.ErrorTransport, "read response", err)
	}

	if resp.StatusCode >= 400 {
		return c.classify(req, resp.StatusCode, hasAuth, body)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// classify maps a non-2xx response to the error taxonomy. The one session
// side effect lives here: a 401 on a non-allow-listed, authenticated request
// clears the session store. Concurrent 401s collapse to a single observable
// invalidation via the store's compare-and-clear.
func (c *Client) classify(req *http.Request, status int, hadAuth bool, body []byte) error {
	msg := serverMessage(body)

	switch {
	case status == http.StatusUnauthorized:
		if c.isVerifyPath(req.URL.Path) || !hadAuth {
			if msg == "" {
				msg = "input rejected"
			}
			return driftchat.NewError(driftchat.ErrorInvalidInput, msg)
		}
		c.logger.Warn("session rejected by server", map[string]any{"path": req.URL.Path})
		c.session.Clear()
		return driftchat.NewError(driftchat.ErrorAuthExpired, "session is no longer valid")
	case status == http.StatusForbidden:
		if msg == "" {
			msg = "access denied"
		}
		return driftchat.NewError(driftchat.ErrorForbidden, msg)
	case status < 500:
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", status)
		}
		return driftchat.NewError(driftchat.ErrorBadRequest, msg)
	default:
		if msg == "" {
			msg = fmt.Sprintf("server error %d", status)
		}
		return driftchat.NewError(driftchat.ErrorServerFault, msg)
	}
}

func (c *Client) isVerifyPath(path string) bool {
	_, ok := c.verifyPaths[path]
	return ok
}

func serverMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		return er.Error
	}
	return ""
}
