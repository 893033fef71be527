package farcaster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string        // e.g. https://api.neynar.com
	Timeout time.Duration // per request
	RPS     float64       // outbound pacing; <= 0 disables
	HTTP    *http.Client  // optional override (tests)
}

// Client is a minimal Neynar v2 client. It is safe for concurrent use.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// APIError is a non-2xx response from the social-graph API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("farcaster: api status %d: %s", e.Status, e.Body)
}

// userLookup turns a 404 from a user endpoint into ErrUserNotFound. Other
// endpoints keep the APIError so a missing route or cast is not mistaken
// for a missing user.
func userLookup(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrUserNotFound, err)
	}
	return err
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	hc := opts.HTTP
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.neynar.com"
	}
	c := &Client{apiKey: opts.APIKey, baseURL: base, http: hc}
	if opts.RPS > 0 {
		burst := int(opts.RPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return c
}

// Profile fetches one user by FID.
func (c *Client) Profile(ctx context.Context, fid int64) (*Profile, error) {
	m, err := c.ProfilesByFID(ctx, []int64{fid})
	if err != nil {
		return nil, err
	}
	p, ok := m[fid]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &p, nil
}

// ProfilesByFID fetches users in bulk. Missing FIDs are absent from the map;
// users that fail validation are skipped.
func (c *Client) ProfilesByFID(ctx context.Context, fids []int64) (map[int64]Profile, error) {
	out := make(map[int64]Profile, len(fids))
	if len(fids) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(fids))
	for _, f := range fids {
		ids = append(ids, strconv.FormatInt(f, 10))
	}
	q := url.Values{"fids": {strings.Join(ids, ",")}}

	var body struct {
		Users []rawUser `json:"users"`
	}
	if err := c.get(ctx, "/v2/farcaster/user/bulk", q, &body); err != nil {
		return nil, userLookup(err)
	}
	for _, ru := range body.Users {
		p, err := ru.toProfile()
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("skipping invalid user payload")
			continue
		}
		out[p.FID] = p
	}
	return out, nil
}

// SearchUser resolves a username. An exact (case-insensitive) username match
// wins; otherwise ErrUserNotFound.
func (c *Client) SearchUser(ctx context.Context, username string) (*Profile, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, ErrUserNotFound
	}
	q := url.Values{"q": {username}, "limit": {"5"}}
	var body struct {
		Result struct {
			Users []rawUser `json:"users"`
		} `json:"result"`
	}
	if err := c.get(ctx, "/v2/farcaster/user/search", q, &body); err != nil {
		return nil, userLookup(err)
	}
	for _, ru := range body.Result.Users {
		p, err := ru.toProfile()
		if err != nil {
			continue
		}
		if strings.EqualFold(p.Username, username) {
			return &p, nil
		}
	}
	return nil, ErrUserNotFound
}

// PublishCast posts text as a reply to parentHash using the bot signer.
// It returns the new cast hash when the API reports one.
func (c *Client) PublishCast(ctx context.Context, signerUUID, text, parentHash string) (string, error) {
	payload := map[string]string{
		"signer_uuid": signerUUID,
		"text":        text,
	}
	if parentHash != "" {
		payload["parent"] = parentHash
	}
	var body struct {
		Success bool `json:"success"`
		Cast    struct {
			Hash string `json:"hash"`
		} `json:"cast"`
	}
	if err := c.post(ctx, "/v2/farcaster/cast", payload, &body); err != nil {
		return "", err
	}
	return body.Cast.Hash, nil
}

// Mentions fetches recent mention and reply notifications for fid.
// Notifications without a valid cast are dropped.
func (c *Client) Mentions(ctx context.Context, fid int64, limit int) ([]Cast, error) {
	if limit <= 0 {
		limit = 25
	}
	q := url.Values{
		"fid":   {strconv.FormatInt(fid, 10)},
		"type":  {"mentions,replies"},
		"limit": {strconv.Itoa(limit)},
	}
	var body struct {
		Notifications []struct {
			Type string   `json:"type"`
			Cast *rawCast `json:"cast"`
		} `json:"notifications"`
	}
	if err := c.get(ctx, "/v2/farcaster/notifications", q, &body); err != nil {
		return nil, err
	}
	out := make([]Cast, 0, len(body.Notifications))
	for _, n := range body.Notifications {
		if n.Cast == nil {
			continue
		}
		cast, err := n.Cast.toCast()
		if err != nil {
			continue
		}
		out = append(out, cast)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return err
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("farcaster: request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("farcaster: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(data)
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return &APIError{Status: resp.StatusCode, Body: msg}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
