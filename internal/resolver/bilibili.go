// Package resolver turns a Bilibili live room ID into room metadata and
// playable stream URLs using the public live API.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIBase   = "https://api.live.bilibili.com"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultQuality   = 10000 // 原画

	roomInfoPath   = "/room/v1/Room/get_info"
	anchorInfoPath = "/live_user/v1/UserInfo/get_anchor_in_room"
	playInfoPath   = "/xlive/web-room/v2/index/getRoomPlayInfo"

	refererFormat = "https://live.bilibili.com/%d"
)

// Endpoint names reported to an Observer.
const (
	EndpointRoomInfo   = "room_info"
	EndpointAnchorInfo = "anchor_info"
	EndpointPlayInfo   = "play_info"
)

var (
	ErrNotLive   = errors.New("room is not live")
	ErrNoStreams = errors.New("no streams available")
)

// APIError is returned when the upstream answers with a non-zero code.
type APIError struct {
	Endpoint string
	Code     int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: api error %d: %s", e.Endpoint, e.Code, e.Message)
}

// Observer receives one call per upstream request.
type Observer interface {
	ObserveUpstream(endpoint string, d time.Duration, err error)
}

// Client talks to the Bilibili live API. It holds no per-room state and is
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	apiBase    string
	userAgent  string
	quality    int
	loc        *time.Location
	observer   Observer
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets a per-request timeout. Zero keeps the client default (none).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithAPIBase points the client at another API host, e.g. a test server.
func WithAPIBase(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.apiBase = strings.TrimRight(base, "/")
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithDefaultQuality sets the qn used when a lookup does not pick one.
func WithDefaultQuality(qn int) Option {
	return func(c *Client) {
		if qn > 0 {
			c.quality = qn
		}
	}
}

// WithLocation sets the time zone used for human-readable expiry times.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		apiBase:    DefaultAPIBase,
		userAgent:  DefaultUserAgent,
		quality:    DefaultQuality,
		loc:        time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultQuality returns the qn used when none is given.
func (c *Client) DefaultQuality() int {
	return c.quality
}

// apiResponse is the common envelope for Bilibili API responses.
type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// get performs a GET against the API and returns the raw body of a 200 reply.
func (c *Client) get(ctx context.Context, endpoint, path string, roomID int64, params url.Values) (body []byte, err error) {
	start := time.Now()
	if c.observer != nil {
		defer func() { c.observer.ObserveUpstream(endpoint, time.Since(start), err) }()
	}

	u := c.apiBase + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", fmt.Sprintf(refererFormat, roomID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// getData performs get and decodes the envelope, failing on a non-zero code.
func (c *Client) getData(ctx context.Context, endpoint, path string, roomID int64, params url.Values) (json.RawMessage, error) {
	body, err := c.get(ctx, endpoint, path, roomID, params)
	if err != nil {
		return nil, err
	}

	var r apiResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if r.Code != 0 {
		msg := r.Message
		if msg == "" {
			msg = r.Msg
		}
		return nil, &APIError{Endpoint: endpoint, Code: r.Code, Message: msg}
	}
	return r.Data, nil
}
