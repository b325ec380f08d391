// Package api is the REST client for the chat server. It covers exactly the
// request/response surface the sync engine consumes; the live channel lives
// in the transport package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/verdantchat/verdant/internal/model"
	"github.com/verdantchat/verdant/internal/normalize"
)

// Error is a non-success response from the server. Message carries the
// server's {message} body when one was sent.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Client talks to the REST API with a bearer token.
type Client struct {
	base  string
	token string
	http  *http.Client
	log   *slog.Logger
}

// New returns a client for the given base URL. token may be empty until Login
// has been called.
func New(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		base:  baseURL,
		token: token,
		http:  &http.Client{Timeout: 15 * time.Second},
		log:   logger,
	}
}

// SetToken replaces the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &Error{Status: res.StatusCode}
		var failure struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(res.Body).Decode(&failure) == nil {
			apiErr.Message = failure.Message
		}
		c.log.Warn("request failed", "method", method, "path", path, "status", res.StatusCode)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// Login authenticates with email and password and returns the bearer token
// plus the user's profile. The token is also installed on the client.
func (c *Client) Login(ctx context.Context, email, password string) (string, model.User, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: normalize.Email(email), Password: password}

	var res struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &res); err != nil {
		return "", model.User{}, err
	}
	c.token = res.Token
	return res.Token, res.User, nil
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &u)
	return u, err
}

// Users returns one page of the user directory.
func (c *Client) Users(ctx context.Context, page, limit int) ([]model.User, model.Page, error) {
	var res struct {
		Users []model.User `json:"users"`
		Pages int          `json:"pages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users"+paging(page, limit), nil, &res); err != nil {
		return nil, model.Page{}, err
	}
	return res.Users, model.Page{Current: page, Total: pages(res.Pages)}, nil
}

// GlobalGroup returns the always-present global conversation.
func (c *Client) GlobalGroup(ctx context.Context) (*model.Group, error) {
	return c.group(ctx, "/api/groups/global")
}

// Group returns one group conversation by id.
func (c *Client) Group(ctx context.Context, id string) (*model.Group, error) {
	return c.group(ctx, "/api/groups/"+url.PathEscape(id))
}

func (c *Client) group(ctx context.Context, path string) (*model.Group, error) {
	var env model.ConversationEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return asGroup(env)
}

// Groups returns one page of group conversations.
func (c *Client) Groups(ctx context.Context, page, limit int) ([]*model.Group, model.Page, error) {
	var res struct {
		Groups []model.ConversationEnvelope `json:"groups"`
		Pages  int                          `json:"pages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/groups"+paging(page, limit), nil, &res); err != nil {
		return nil, model.Page{}, err
	}
	groups := make([]*model.Group, 0, len(res.Groups))
	for _, env := range res.Groups {
		g, err := asGroup(env)
		if err != nil {
			return nil, model.Page{}, err
		}
		groups = append(groups, g)
	}
	return groups, model.Page{Current: page, Total: pages(res.Pages)}, nil
}

// CreateGroup creates a group with the given name and member ids.
func (c *Client) CreateGroup(ctx context.Context, name string, memberIDs []string) (*model.Group, error) {
	body := struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}{Name: name, Members: memberIDs}

	var env model.ConversationEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/groups", body, &env); err != nil {
		return nil, err
	}
	return asGroup(env)
}

// DeleteGroup deletes a group. Authorization is the server's responsibility;
// the call is issued regardless of the caller's admin status.
func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/groups/"+url.PathEscape(id), nil, nil)
}

// Membership mutations. Each is a plain success/failure request; the engine
// re-fetches the group afterwards rather than patching membership locally.

func (c *Client) AddMember(ctx context.Context, groupID, memberID string) error {
	return c.memberAction(ctx, groupID, "add-member", memberID)
}

func (c *Client) RemoveMember(ctx context.Context, groupID, memberID string) error {
	return c.memberAction(ctx, groupID, "remove-member", memberID)
}

func (c *Client) KickMember(ctx context.Context, groupID, memberID string) error {
	return c.memberAction(ctx, groupID, "kick-member", memberID)
}

func (c *Client) PromoteAdmin(ctx context.Context, groupID, memberID string) error {
	return c.memberAction(ctx, groupID, "promote-admin", memberID)
}

func (c *Client) DemoteAdmin(ctx context.Context, groupID, memberID string) error {
	return c.memberAction(ctx, groupID, "demote-admin", memberID)
}

func (c *Client) memberAction(ctx context.Context, groupID, action, memberID string) error {
	body := struct {
		MemberID string `json:"memberId"`
	}{MemberID: memberID}
	path := "/api/groups/" + url.PathEscape(groupID) + "/" + action
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// PrivateChat gets or creates the private conversation with the given user.
func (c *Client) PrivateChat(ctx context.Context, userID string) (*model.Private, error) {
	var env model.ConversationEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/chats/private/"+url.PathEscape(userID), nil, &env); err != nil {
		return nil, err
	}
	return asPrivate(env)
}

// PrivateChats returns all private conversations for the caller.
func (c *Client) PrivateChats(ctx context.Context) ([]*model.Private, error) {
	var res struct {
		Chats []model.ConversationEnvelope `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chats/private", nil, &res); err != nil {
		return nil, err
	}
	privates := make([]*model.Private, 0, len(res.Chats))
	for _, env := range res.Chats {
		p, err := asPrivate(env)
		if err != nil {
			return nil, err
		}
		privates = append(privates, p)
	}
	return privates, nil
}

// Messages returns one page of a conversation's history. Page ordering is
// server-defined (most recent page first).
func (c *Client) Messages(ctx context.Context, conversationID string, page, limit int) ([]model.Message, model.Page, error) {
	var res struct {
		Messages []model.Message `json:"messages"`
		Pages    int             `json:"pages"`
	}
	path := "/api/messages/" + url.PathEscape(conversationID) + paging(page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, model.Page{}, err
	}
	return res.Messages, model.Page{Current: page, Total: pages(res.Pages)}, nil
}

// The group and private-chat endpoints already imply the conversation shape;
// the envelope's own isGroup flag is only authoritative where the path does
// not (live event payloads).

func asGroup(env model.ConversationEnvelope) (*model.Group, error) {
	env.IsGroup = true
	conv, err := env.Conversation()
	if err != nil {
		return nil, err
	}
	return conv.(*model.Group), nil
}

func asPrivate(env model.ConversationEnvelope) (*model.Private, error) {
	env.IsGroup = false
	conv, err := env.Conversation()
	if err != nil {
		return nil, err
	}
	return conv.(*model.Private), nil
}

func paging(page, limit int) string {
	return "?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
}

func pages(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
