// Package imagegen turns a text prompt into PNG bytes using the OpenAI
// images API.
//
// Every failure is returned as *Error carrying a Class, so callers can tell
// a transient failure (worth retrying) from quota, credential or content
// rejections (never retried). Generate applies the retry policy itself.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/farcasturd-backend/internal/retry"
)

// Class groups generation failures by how the caller should react.
type Class int

const (
	// ClassRetryable covers rate limits, 5xx responses and timeouts.
	ClassRetryable Class = iota
	// ClassQuota means the account is out of credit.
	ClassQuota
	// ClassCredentials means the API key is missing or invalid.
	ClassCredentials
	// ClassRejected means the request itself was refused (e.g. content policy).
	ClassRejected
)

func (c Class) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassQuota:
		return "quota"
	case ClassCredentials:
		return "credentials"
	case ClassRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Error is a classified generation failure.
type Error struct {
	Class   Class
	Status  int    // HTTP status, 0 for transport errors
	Code    string // provider error code, if any
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "imagegen: %s", e.Class)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// ClassOf returns the class of err, or ClassRetryable for foreign errors.
func ClassOf(err error) Class {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Class
	}
	return ClassRetryable
}

// IsRetryable is a retry.Classifier.
func IsRetryable(err error) bool { return ClassOf(err) == ClassRetryable }

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string // default https://api.openai.com
	Model   string // default dall-e-3
	Size    string // default 1024x1024
	Quality string // default standard
	Timeout time.Duration
	Policy  retry.Policy
	HTTP    *http.Client
}

// Client calls the images endpoint. It is safe for concurrent use.
type Client struct {
	opts Options
	http *http.Client
}

// New builds a Client, filling defaults.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Model == "" {
		opts.Model = "dall-e-3"
	}
	if opts.Size == "" {
		opts.Size = "1024x1024"
	}
	if opts.Quality == "" {
		opts.Quality = "standard"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = retry.ImageGenPolicy()
	}
	hc := opts.HTTP
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{opts: opts, http: hc}
}

// Generate renders prompt and returns the decoded PNG bytes. Retryable
// failures are retried per the configured policy.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if strings.TrimSpace(c.opts.APIKey) == "" {
		return nil, &Error{Class: ClassCredentials, Message: "OPENAI_API_KEY not configured"}
	}
	var out []byte
	res := retry.Do(ctx, c.opts.Policy, IsRetryable, func(ctx context.Context, attempt int) error {
		zerolog.Ctx(ctx).Debug().Int("attempt", attempt).Str("model", c.opts.Model).Msg("image generation attempt")
		img, err := c.generateOnce(ctx, prompt)
		if err != nil {
			return err
		}
		out = img
		return nil
	})
	if err := res.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type generateRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format"`
}

type generateResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (c *Client) generateOnce(ctx context.Context, prompt string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:          c.opts.Model,
		Prompt:         prompt,
		N:              1,
		Size:           c.opts.Size,
		Quality:        c.opts.Quality,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, &Error{Class: ClassRejected, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Class: ClassRejected, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, transportError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse(resp.StatusCode, data)
	}

	var gr generateResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return nil, &Error{Class: ClassRetryable, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	if len(gr.Data) == 0 || gr.Data[0].B64JSON == "" {
		return nil, &Error{Class: ClassRetryable, Status: resp.StatusCode, Message: "response missing b64_json image data"}
	}
	img, err := base64.StdEncoding.DecodeString(gr.Data[0].B64JSON)
	if err != nil {
		return nil, &Error{Class: ClassRetryable, Status: resp.StatusCode, Message: "invalid base64 image", Err: err}
	}
	return img, nil
}

func transportError(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Class: ClassRetryable, Message: "timeout", Err: err}
	}
	return &Error{Class: ClassRetryable, Err: err}
}

func classifyResponse(status int, body []byte) error {
	var eb apiErrorBody
	_ = json.Unmarshal(body, &eb)
	e := &Error{Status: status, Code: eb.Error.Code, Message: eb.Error.Message}
	if e.Code == "" {
		e.Code = eb.Error.Type
	}
	if e.Message == "" {
		msg := string(body)
		if len(msg) > 256 {
			msg = msg[:256]
		}
		e.Message = msg
	}

	switch {
	case eb.Error.Code == "insufficient_quota" || eb.Error.Type == "insufficient_quota":
		e.Class = ClassQuota
	case eb.Error.Code == "invalid_api_key" || status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Class = ClassCredentials
	case status == http.StatusTooManyRequests || status >= 500:
		e.Class = ClassRetryable
	case status == http.StatusRequestTimeout:
		e.Class = ClassRetryable
	default:
		e.Class = ClassRejected
	}
	return e
}
