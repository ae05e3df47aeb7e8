// Package webhook delivers push events to configured HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/refgate/refgate/pkg/config"
	"github.com/refgate/refgate/pkg/version"
)

// Event is a webhook event type.
type Event string

// Events.
const (
	EventPush Event = "push"
)

// secureHTTPClient creates an HTTP client with SSRF protection.
var secureHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			// Parse the address to get the IP
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err //nolint:wrapcheck
			}

			// Validate the resolved IP before connecting
			ip := net.ParseIP(host)
			if ip != nil {
				if err := ValidateIPBeforeDial(ip); err != nil {
					return nil, fmt.Errorf("blocked connection to private IP: %w", err)
				}
			}

			// Use standard dialer with timeout
			dialer := &net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}
			return dialer.DialContext(ctx, network, addr)
		},
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	},
	// Don't follow redirects to prevent bypassing IP validation
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

// do sends a webhook.
// Caller must close the returned body.
func do(ctx context.Context, url string, method string, headers http.Header, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header = headers
	res, err := secureHTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return res, nil
}

// DeliveryResult describes one delivery attempt.
type DeliveryResult struct {
	ID     string
	URL    string
	Status int
	Body   string
	Err    error
}

// Success reports whether the endpoint acknowledged the event.
func (r *DeliveryResult) Success() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 300
}

// SendWebhook delivers one event to one endpoint.
func SendWebhook(ctx context.Context, url, secret string, contentType ContentType, event Event, payload interface{}) *DeliveryResult {
	result := &DeliveryResult{
		ID:  uuid.New().String(),
		URL: url,
	}

	if err := ValidateWebhookURL(url); err != nil {
		result.Err = err
		return result
	}

	var buf bytes.Buffer
	switch contentType {
	case ContentTypeJSON:
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			result.Err = err
			return result
		}
	case ContentTypeForm:
		v, err := query.Values(payload)
		if err != nil {
			result.Err = err
			return result
		}
		buf.WriteString(v.Encode()) // nolint: errcheck
	default:
		result.Err = ErrInvalidContentType
		return result
	}

	headers := http.Header{}
	headers.Add("Content-Type", contentType.String())
	headers.Add("User-Agent", "Refgate/"+version.Version)
	headers.Add("X-Refgate-Event", string(event))
	headers.Add("X-Refgate-Delivery", result.ID)

	if secret != "" {
		sig := hmac.New(sha256.New, []byte(secret))
		sig.Write(buf.Bytes()) // nolint: errcheck
		headers.Add("X-Refgate-Signature", "sha256="+hex.EncodeToString(sig.Sum(nil)))
	}

	res, err := do(ctx, url, http.MethodPost, headers, &buf)
	if err != nil {
		result.Err = err
		return result
	}

	result.Status = res.StatusCode
	if res.Body != nil {
		defer res.Body.Close() // nolint: errcheck
		b, err := io.ReadAll(res.Body)
		if err != nil {
			result.Err = err
			return result
		}
		result.Body = string(b)
	}

	return result
}

// SendEvent delivers the event to every configured endpoint
// concurrently and returns one result per endpoint.
func SendEvent(ctx context.Context, cfg *config.WebhookConfig, event Event, payload interface{}) []*DeliveryResult {
	// Config validation has already vetted the value; an unknown one
	// falls back to JSON rather than dropping the event.
	contentType, err := ParseContentType(cfg.ContentType)
	if err != nil {
		contentType = ContentTypeJSON
	}

	results := make([]*DeliveryResult, len(cfg.URLs))
	g, ctx := errgroup.WithContext(ctx)
	for i, url := range cfg.URLs {
		i, url := i, url
		g.Go(func() error {
			results[i] = SendWebhook(ctx, url, cfg.Secret, contentType, event, payload)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
