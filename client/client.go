// Package client is a small Go client for the PeerHelp HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Vote kinds and targets as sent on the wire.
const (
	Upvote   = "upvote"
	Downvote = "downvote"

	TargetQuestion = "question"
	TargetAnswer   = "answer"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("peerhelp: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("peerhelp: %d: %s", e.Status, e.Message)
}

// VoteResult is the ledger's authoritative state after a vote. VoteType is
// nil when the caller has no vote left on the target.
type VoteResult struct {
	UpvoteCount   int     `json:"upvoteCount"`
	DownvoteCount int     `json:"downvoteCount"`
	VoteType      *string `json:"voteType"`
}

// Vote is one of the caller's recorded votes.
type Vote struct {
	TargetID   uuid.UUID `json:"targetId"`
	TargetType string    `json:"targetType"`
	VoteType   string    `json:"voteType"`
}

// Client talks to one PeerHelp server with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken sets the access token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Login exchanges credentials for an access token and keeps it.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var res struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, &res); err != nil {
		return err
	}
	c.token = res.AccessToken
	return nil
}

// CastVote casts, switches or removes the caller's vote on a target.
func (c *Client) CastVote(ctx context.Context, targetID uuid.UUID, targetType, voteType string) (*VoteResult, error) {
	body := map[string]string{
		"targetId":   targetID.String(),
		"targetType": targetType,
		"voteType":   voteType,
	}
	var res VoteResult
	if err := c.do(ctx, http.MethodPost, "/api/votes", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UserVotes returns the caller's votes on the given targets.
func (c *Client) UserVotes(ctx context.Context, targetType string, targetIDs ...uuid.UUID) ([]Vote, error) {
	ids := make([]string, len(targetIDs))
	for i, id := range targetIDs {
		ids[i] = id.String()
	}
	q := url.Values{"targetType": {targetType}, "targetIds": {strings.Join(ids, ",")}}

	var votes []Vote
	if err := c.do(ctx, http.MethodGet, "/api/votes/user?"+q.Encode(), nil, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
