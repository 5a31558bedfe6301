// Package apiclient is the presentation tier's typed client for the data
// service. Every outbound request made on behalf of a signed-in user
// carries a freshly minted caller assertion; requests without an acting
// user go out anonymous and the data service treats them accordingly.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/coverledger/internal/trust"
)

type actorKey struct{}

// AsUser marks the context as acting on behalf of the given account. The
// client signs that identity into the caller assertion header.
func AsUser(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, actorKey{}, email)
}

// APIError is a non-2xx response from the data service, carrying its
// error message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, code int) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == code
}

type Client struct {
	http   *resty.Client
	signer *trust.Signer
}

func New(baseURL, trustSecret string) *Client {
	c := &Client{signer: trust.NewSigner(trustSecret, trust.DefaultTTL)}
	c.http = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(1 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode() >= 500
		})
	c.http.OnBeforeRequest(c.propagateIdentity)
	return c
}

// propagateIdentity signs the acting user, if any, into the assertion
// header. Minting per request keeps the assertion's lifetime short.
func (c *Client) propagateIdentity(_ *resty.Client, req *resty.Request) error {
	email, ok := req.Context().Value(actorKey{}).(string)
	if !ok || email == "" {
		return nil
	}
	assertion, err := c.signer.Sign(email)
	if err != nil {
		return fmt.Errorf("sign caller assertion: %w", err)
	}
	req.SetHeader(trust.Header, assertion)
	return nil
}

// do runs one request and decodes the JSON envelope into out (which may
// be nil). Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.IsError() {
		var env struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(resp.Body(), &env)
		if env.Error == "" {
			env.Error = http.StatusText(resp.StatusCode())
		}
		return &APIError{StatusCode: resp.StatusCode(), Message: env.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Raw fetches a path and returns the response body and content type,
// used for pass-through downloads like PDF statements.
func (c *Client) Raw(ctx context.Context, path string) ([]byte, string, error) {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, "", fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, "", &APIError{StatusCode: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
	}
	return resp.Body(), resp.Header().Get("Content-Type"), nil
}
