package mast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/olgasafonova/mast-mcp-server/internal/base"
	apierrors "github.com/olgasafonova/mast-mcp-server/internal/errors"
	"github.com/olgasafonova/mast-mcp-server/internal/infra"
	"github.com/olgasafonova/mast-mcp-server/metrics"
	"github.com/olgasafonova/mast-mcp-server/tracing"
)

const (
	// BaseURL is the MAST archive root
	BaseURL = "https://mast.stsci.edu"

	// InvokePath is the Portal service endpoint, relative to BaseURL
	InvokePath = "/api/v0/invoke"

	// ColumnsConfigPath publishes column labels for Portal services
	ColumnsConfigPath = "/portal/Mashup/Mashup.asmx/columnsconfig"

	// DefaultPageSize is the number of rows requested per Portal page
	DefaultPageSize = 50000

	// DefaultPollInterval separates polls of an executing Portal job
	DefaultPollInterval = time.Second

	// DefaultMaxPolls bounds how long an executing job is waited for
	DefaultMaxPolls = 30

	// portalTimeout is the server-side job timeout sent with every request, in seconds
	portalTimeout = 600
)

// Portal services used by the client
const (
	ServiceNameLookup       = "Mast.Name.Lookup"
	ServiceCone             = "Mast.Caom.Cone"
	ServiceFiltered         = "Mast.Caom.Filtered"
	ServiceFilteredPosition = "Mast.Caom.Filtered.Position"
	ServiceProducts         = "Mast.Caom.Products"
	ServiceAll              = "Mast.Caom.All"
)

// MetadataServices maps metadata kinds to the service whose columns describe them.
var MetadataServices = map[string]string{
	"observations": ServiceCone,
	"products":     ServiceProducts,
}

// Client provides access to the MAST Portal API
type Client struct {
	*base.Client

	BaseURL      string
	PageSize     int
	PollInterval time.Duration
	MaxPolls     int
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

// NewClient creates a MAST client rooted at baseURL. An empty baseURL uses BaseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{
		Client:       base.NewClient("mast", opts...),
		BaseURL:      strings.TrimRight(baseURL, "/"),
		PageSize:     DefaultPageSize,
		PollInterval: DefaultPollInterval,
		MaxPolls:     DefaultMaxPolls,
	}
}

// Invoke runs a Portal service in JSON format and returns every page of its result.
func (c *Client) Invoke(ctx context.Context, service string, params map[string]any) (*Table, error) {
	ctx, span := tracing.StartSpan(ctx, "mast.invoke")
	defer span.End()
	tracing.AddUpstreamAttributes(span, "mast", service)

	table := &Table{}
	for page := 1; ; page++ {
		body, err := c.invoke(ctx, ServiceRequest{
			Service:  service,
			Params:   params,
			Format:   "json",
			PageSize: c.PageSize,
			Page:     page,
			Timeout:  portalTimeout,
		})
		if err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}

		var resp tableResponse
		if err := decodeJSON(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", service, err)
		}

		if page == 1 {
			table.Fields = resp.Fields
		}
		table.Rows = append(table.Rows, resp.Data...)

		if resp.Paging == nil || resp.Paging.PagesFiltered <= page {
			break
		}
		c.Logger.Debug("Fetching next Portal page",
			"service", service,
			"page", page+1,
			"pages", resp.Paging.PagesFiltered)
	}

	metrics.RecordResultRows(service, table.Len())
	return table, nil
}

// errExecuting marks a Portal job that has not finished yet
var errExecuting = errors.New("portal job still executing")

// invoke posts one Portal request, re-polling while the job is executing.
// It returns the body of the completed response.
func (c *Client) invoke(ctx context.Context, sr ServiceRequest) ([]byte, error) {
	payload, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", sr.Service, err)
	}
	req := base.Request{
		URL:     c.BaseURL + InvokePath,
		Form:    url.Values{"request": {string(payload)}},
		Service: sr.Service,
		CacheIf: isComplete,
	}

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		body, err := c.Do(ctx, req)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to decode %s response: %w", sr.Service, err))
		}

		switch env.Status {
		case StatusExecuting:
			return nil, errExecuting
		case StatusError:
			msg := env.Msg
			if msg == "" {
				msg = "service reported an error"
			}
			return nil, backoff.Permanent(apierrors.NewUpstreamError(sr.Service, 0, msg))
		}
		return body, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.PollInterval)),
		backoff.WithMaxTries(uint(max(c.MaxPolls, 1))),
		backoff.WithMaxElapsedTime(0),
	)
	if err == nil {
		return body, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return nil, permanent.Err
	}
	if errors.Is(err, errExecuting) {
		return nil, apierrors.NewUpstreamError(sr.Service, 0,
			fmt.Sprintf("still executing after %d polls", c.MaxPolls))
	}
	return nil, err
}

// isComplete reports whether a Portal response may be cached.
func isComplete(body []byte) bool {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false
	}
	return env.Status == StatusComplete
}

// ResolveName resolves a target name to sky coordinates
func (c *Client) ResolveName(ctx context.Context, name string) (Coordinates, error) {
	body, err := c.invoke(ctx, ServiceRequest{
		Service:  ServiceNameLookup,
		Params:   map[string]any{"input": name, "format": "json"},
		Format:   "json",
		PageSize: c.PageSize,
		Page:     1,
		Timeout:  portalTimeout,
	})
	if err != nil {
		return Coordinates{}, err
	}

	var resp nameLookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Coordinates{}, fmt.Errorf("failed to decode %s response: %w", ServiceNameLookup, err)
	}
	if len(resp.ResolvedCoordinate) == 0 {
		return Coordinates{}, apierrors.NewNotFoundError("mast", "target", name)
	}
	return resp.ResolvedCoordinate[0], nil
}

// QueryObject returns observations within radius degrees of a named target
func (c *Client) QueryObject(ctx context.Context, target string, radius float64) (*Table, error) {
	coords, err := c.ResolveName(ctx, target)
	if err != nil {
		return nil, err
	}
	return c.QueryRegion(ctx, coords, radius)
}

// QueryRegion returns observations within radius degrees of a position
func (c *Client) QueryRegion(ctx context.Context, coords Coordinates, radius float64) (*Table, error) {
	return c.Invoke(ctx, ServiceCone, map[string]any{
		"ra":     coords.RA,
		"dec":    coords.Dec,
		"radius": radius,
	})
}

// QueryCriteria returns observations matching every criterion, optionally
// limited to a region around a named target
func (c *Client) QueryCriteria(ctx context.Context, q CriteriaQuery) (*Table, error) {
	filters := make([]map[string]any, 0, len(q.Criteria))
	for _, cr := range q.Criteria {
		filters = append(filters, cr.filter())
	}
	params := map[string]any{
		"columns": "*",
		"filters": filters,
	}

	if q.Target == "" {
		return c.Invoke(ctx, ServiceFiltered, params)
	}

	coords, err := c.ResolveName(ctx, q.Target)
	if err != nil {
		return nil, err
	}
	params["position"] = fmt.Sprintf("%s, %s, %s",
		formatFloat(coords.RA), formatFloat(coords.Dec), formatFloat(q.Radius))
	return c.Invoke(ctx, ServiceFilteredPosition, params)
}

// QueryProducts returns the data products of the given numeric observation ids
func (c *Client) QueryProducts(ctx context.Context, obsIDs []string) (*Table, error) {
	if len(obsIDs) == 0 {
		return nil, apierrors.NewValidationError("obs_ids", "", "at least one observation id is required")
	}
	return c.Invoke(ctx, ServiceProducts, map[string]any{
		"obsid": strings.Join(obsIDs, ","),
	})
}

// ListMissions returns the sorted names of all MAST collections
func (c *Client) ListMissions(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "mast.invoke")
	defer span.End()
	tracing.AddUpstreamAttributes(span, "mast", ServiceAll)

	body, err := c.invoke(ctx, ServiceRequest{
		Service:  ServiceAll,
		Params:   map[string]any{},
		Format:   "extjs",
		PageSize: c.PageSize,
		Page:     1,
		Timeout:  portalTimeout,
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	var resp extjsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", ServiceAll, err)
	}
	if len(resp.Data.Tables) == 0 {
		return nil, fmt.Errorf("%s response has no tables", ServiceAll)
	}

	for _, col := range resp.Data.Tables[0].Columns {
		if col.Text != "obs_collection" {
			continue
		}
		missions := make([]string, 0, len(col.ExtendedProperties.HistObj))
		for name := range col.ExtendedProperties.HistObj {
			if name == "hist" {
				continue
			}
			missions = append(missions, name)
		}
		sort.Strings(missions)
		return missions, nil
	}
	return nil, fmt.Errorf("%s response has no obs_collection histogram", ServiceAll)
}

// Metadata returns the columns of the service behind dataType ("observations"
// or "products"), labelled from the Portal column configuration
func (c *Client) Metadata(ctx context.Context, dataType string) ([]ColumnInfo, error) {
	service, ok := MetadataServices[dataType]
	if !ok {
		return nil, apierrors.NewValidationError("data_type", dataType, "must be 'observations' or 'products'")
	}
	return c.ColumnsConfig(ctx, service)
}

// ColumnsConfig fetches the column configuration of a Portal service, in
// the order the Portal publishes it
func (c *Client) ColumnsConfig(ctx context.Context, service string) ([]ColumnInfo, error) {
	body, err := c.Do(ctx, base.Request{
		URL:     c.BaseURL + ColumnsConfigPath,
		Form:    url.Values{"colConfigId": {service}},
		Service: "columnsconfig",
		CacheIf: func([]byte) bool { return true },
	})
	if err != nil {
		return nil, err
	}

	cols, err := decodeColumnsConfig(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode column configuration for %s: %w", service, err)
	}
	return cols, nil
}

// decodeColumnsConfig walks the configuration object key by key so the
// column order survives decoding.
func decodeColumnsConfig(body []byte) ([]ColumnInfo, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var cols []ColumnInfo
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected column name, got %v", tok)
		}
		var cfg columnConfig
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		cols = append(cols, ColumnInfo{
			Name:        name,
			Label:       cfg.Text,
			Type:        cfg.Type,
			Units:       cfg.Unit,
			Description: cfg.Description,
		})
	}
	return cols, nil
}

// decodeJSON decodes body keeping numbers as json.Number
func decodeJSON(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
