package exomast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MCP Tool wrapper methods
// JSON responses are returned as indented JSON text.

// SearchByNameMCP is the MCP wrapper for SearchByName
func (c *Client) SearchByNameMCP(ctx context.Context, args SearchByNameArgs) (string, error) {
	body, err := c.SearchByName(ctx, args.Name, args.Flags)
	if err != nil {
		return "", err
	}
	return prettyJSON(body), nil
}

// IdentifiersMCP is the MCP wrapper for Identifiers
func (c *Client) IdentifiersMCP(ctx context.Context, args IdentifiersArgs) (string, error) {
	body, err := c.Identifiers(ctx, args.Name)
	if err != nil {
		return "", err
	}
	return prettyJSON(body), nil
}

// PropertiesMCP is the MCP wrapper for Properties
func (c *Client) PropertiesMCP(ctx context.Context, args PropertiesArgs) (string, error) {
	body, err := c.Properties(ctx, args.ExoplanetID, args.Flags)
	if err != nil {
		return "", err
	}
	return prettyJSON(body), nil
}

// PropertiesByNameMCP is the MCP wrapper for PropertiesByName
func (c *Client) PropertiesByNameMCP(ctx context.Context, args PropertiesByNameArgs) (string, error) {
	return c.PropertiesByName(ctx, args.Name)
}

// exoplanetIDKeys are tried in order to find the id in a resolver object
var exoplanetIDKeys = []string{"exoplanet_id", "exoplanetID", "id"}

// PropertiesByName looks up the canonical name of an exoplanet, resolves it
// to an ExoMAST id and returns the properties of that id as YAML. HTTP
// failures at any step are returned as errors; a response missing the value
// the next step needs yields a diagnostic message with the raw payload.
func (c *Client) PropertiesByName(ctx context.Context, name string) (string, error) {
	body, err := c.Identifiers(ctx, name)
	if err != nil {
		return "", err
	}
	var identifiers map[string]any
	if err := decode(body, &identifiers); err != nil {
		return fmt.Sprintf("Could not parse identifiers for %q. Raw response:\n%s", name, body), nil
	}
	canonical, _ := identifiers["canonicalName"].(string)
	if strings.TrimSpace(canonical) == "" {
		return fmt.Sprintf("No canonical name found for %q. Identifiers response:\n%s", name, prettyJSON(body)), nil
	}

	body, err = c.SearchByName(ctx, canonical, Flags{})
	if err != nil {
		return "", err
	}
	id, ok := firstExoplanetID(body)
	if !ok {
		return fmt.Sprintf("No exoplanet id found for %q. Resolver response:\n%s", canonical, prettyJSON(body)), nil
	}

	body, err = c.Properties(ctx, id, Flags{})
	if err != nil {
		return "", err
	}
	var properties any
	if err := decode(body, &properties); err != nil {
		return fmt.Sprintf("Could not parse properties for exoplanet id %s. Raw response:\n%s", id, body), nil
	}

	out, err := yaml.Marshal(normalizeNumbers(properties))
	if err != nil {
		return "", fmt.Errorf("failed to render properties: %w", err)
	}
	return string(out), nil
}

// firstExoplanetID extracts the id from the first object of a resolver response
func firstExoplanetID(body []byte) (string, bool) {
	var resp any
	if err := decode(body, &resp); err != nil {
		return "", false
	}

	var first map[string]any
	switch v := resp.(type) {
	case []any:
		if len(v) == 0 {
			return "", false
		}
		first, _ = v[0].(map[string]any)
	case map[string]any:
		first = v
	}
	if first == nil {
		return "", false
	}

	for _, key := range exoplanetIDKeys {
		switch id := first[key].(type) {
		case string:
			if strings.TrimSpace(id) != "" {
				return id, true
			}
		case json.Number:
			return id.String(), true
		}
	}
	return "", false
}

// normalizeNumbers converts json.Number values to int64 or float64 so they
// render as YAML numbers
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeNumbers(item)
		}
		return val
	default:
		return v
	}
}

// decode decodes body keeping numbers as json.Number
func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

// prettyJSON indents a JSON body. Bodies that are not JSON, such as CSV
// output, are returned unchanged.
func prettyJSON(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(body), "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}
