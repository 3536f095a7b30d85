// Package exomast is a client for the ExoMAST exoplanet API.
package exomast

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/olgasafonova/mast-mcp-server/internal/base"
	apierrors "github.com/olgasafonova/mast-mcp-server/internal/errors"
	"github.com/olgasafonova/mast-mcp-server/internal/infra"
	"github.com/olgasafonova/mast-mcp-server/tracing"
)

const (
	// BaseURL is the ExoMAST API endpoint
	BaseURL = "https://exo.mast.stsci.edu/api/v0.1"

	// APIVersion is the ExoMAST API version the client speaks
	APIVersion = "ExoMAST API v0.1"
)

// API is the set of ExoMAST lookups the tools are built on.
type API interface {
	SearchByName(ctx context.Context, name string, flags Flags) ([]byte, error)
	Identifiers(ctx context.Context, name string) ([]byte, error)
	Properties(ctx context.Context, exoplanetID string, flags Flags) ([]byte, error)
}

var _ API = (*Client)(nil)

// Client provides access to the ExoMAST API
type Client struct {
	*base.Client

	BaseURL string
}

// ClientOption configures the Client (re-export base.ClientOption)
type ClientOption = base.ClientOption

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return base.WithHTTPClient(c)
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return base.WithLogger(l)
}

// WithCache sets the response cache
func WithCache(c *infra.Cache) ClientOption {
	return base.WithCache(c)
}

// NewClient creates an ExoMAST client rooted at baseURL. An empty baseURL uses BaseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{
		Client:  base.NewClient("exomast", opts...),
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SearchByName resolves an exoplanet name with the ExoMAST resolver
func (c *Client) SearchByName(ctx context.Context, name string, flags Flags) ([]byte, error) {
	if err := requireName("name", name); err != nil {
		return nil, err
	}
	return c.get(ctx, "resolver", "/exoplanets/resolver/"+url.PathEscape(strings.TrimSpace(name)), flags.values())
}

// Identifiers returns the known identifiers of an exoplanet, including its canonical name
func (c *Client) Identifiers(ctx context.Context, name string) ([]byte, error) {
	if err := requireName("name", name); err != nil {
		return nil, err
	}
	return c.get(ctx, "identifiers", "/exoplanets/identifiers/", url.Values{"name": {strings.TrimSpace(name)}})
}

// Properties returns the properties of an exoplanet by ExoMAST id
func (c *Client) Properties(ctx context.Context, exoplanetID string, flags Flags) ([]byte, error) {
	if err := requireName("exoplanet_id", exoplanetID); err != nil {
		return nil, err
	}
	return c.get(ctx, "properties", "/exoplanets/"+url.PathEscape(strings.TrimSpace(exoplanetID))+"/properties/", flags.values())
}

func (c *Client) get(ctx context.Context, service, path string, params url.Values) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "exomast.get")
	defer span.End()
	tracing.AddUpstreamAttributes(span, "exomast", service)

	u := c.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	body, err := c.Do(ctx, base.Request{
		URL:     u,
		Service: service,
		CacheIf: func([]byte) bool { return true },
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return body, nil
}

// values encodes the flags as query parameters. The boolean flags are always
// sent; format and delimiter only when set.
func (f Flags) values() url.Values {
	v := url.Values{
		"flatten_response": {strconv.FormatBool(f.FlattenResponse)},
		"raw":              {strconv.FormatBool(f.Raw)},
		"include_info":     {strconv.FormatBool(f.IncludeInfo)},
	}
	if f.Format != "" {
		v.Set("format", f.Format)
	}
	if f.Delimiter != "" {
		v.Set("delimiter", f.Delimiter)
	}
	return v
}

func requireName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apierrors.NewValidationError(field, "", "must not be empty")
	}
	return nil
}
