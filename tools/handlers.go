package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/olgasafonova/mast-mcp-server/internal/exomast"
	"github.com/olgasafonova/mast-mcp-server/internal/observations"
	"github.com/olgasafonova/mast-mcp-server/metrics"
	"github.com/olgasafonova/mast-mcp-server/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HandlerRegistry provides type-safe tool registration by mapping
// tool names to their concrete handler implementations.
type HandlerRegistry struct {
	observations *observations.Service
	exomast      *exomast.Client
	logger       *slog.Logger
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(obs *observations.Service, exo *exomast.Client, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		observations: obs,
		exomast:      exo,
		logger:       logger,
	}
}

// RegisterAll registers the tools of the selected sub-servers with the MCP server.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server, servers []string) int {
	count := 0
	for _, name := range servers {
		for _, spec := range ToolsByServer(name) {
			if h.registerByName(server, spec) {
				count++
			}
		}
	}
	h.logger.Info("Registered tools", "count", count, "servers", servers)
	return count
}

// registerByName dispatches to the correct typed registration function.
func (h *HandlerRegistry) registerByName(server *mcp.Server, spec ToolSpec) bool {
	tool := h.buildTool(spec)

	switch spec.Method {
	// Observation tools
	case "ListMissions":
		register(h, server, tool, spec, h.observations.ListMissionsMCP)
	case "GetMetadata":
		register(h, server, tool, spec, h.observations.GetMetadataMCP)
	case "ObservationQuery":
		register(h, server, tool, spec, h.observations.ObservationQueryMCP)
	case "ObservationDetails":
		register(h, server, tool, spec, h.observations.ObservationDetailsMCP)
	case "ProductList":
		register(h, server, tool, spec, h.observations.ProductListMCP)

	// ExoMAST tools
	case "SearchExoplanetByName":
		register(h, server, tool, spec, h.exomast.SearchByNameMCP)
	case "GetExoplanetIdentifiers":
		register(h, server, tool, spec, h.exomast.IdentifiersMCP)
	case "GetExoplanetProperties":
		register(h, server, tool, spec, h.exomast.PropertiesMCP)
	case "GetExoplanetPropertiesByName":
		register(h, server, tool, spec, h.exomast.PropertiesByNameMCP)

	default:
		h.logger.Error("Unknown method, tool not registered", "method", spec.Method, "tool", spec.Name)
		return false
	}
	return true
}

// buildTool creates an mcp.Tool from a ToolSpec.
func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		Annotations: annotations,
	}
}

// register is a generic helper that registers a text-returning tool with the
// MCP server. It wraps the service method with panic recovery, metrics,
// tracing, and logging.
func register[Args any](
	h *HandlerRegistry,
	server *mcp.Server,
	tool *mcp.Tool,
	spec ToolSpec,
	method func(context.Context, Args) (string, error),
) {
	mcp.AddTool(server, tool, func(ctx context.Context, req *mcp.CallToolRequest, args Args) (result *mcp.CallToolResult, _ any, err error) {
		defer h.recoverPanic(spec.Name, &err)

		// Start trace span
		ctx, span := tracing.StartSpan(ctx, "mcp.tool."+spec.Name)
		defer span.End()

		tracing.AddToolAttributes(span, spec.Name, spec.Server)
		span.SetAttributes(
			attribute.String("mcp.tool.category", spec.Category),
			attribute.Bool("mcp.tool.readonly", spec.ReadOnly),
		)

		// Track in-flight requests
		metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
		defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

		start := time.Now()
		text, err := method(ctx, args)
		duration := time.Since(start).Seconds()

		span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest(spec.Name, duration, false)
			h.logger.Warn("Tool failed", "tool", spec.Name, "server", spec.Server, "error", err)
			return nil, nil, fmt.Errorf("%s failed: %w", spec.Name, err)
		}

		span.SetStatus(codes.Ok, "")
		metrics.RecordRequest(spec.Name, duration, true)
		h.logExecution(spec, args, text)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	})
}

// recoverPanic recovers from panics in tool handlers and turns them into a
// tool error when errp is non-nil.
func (h *HandlerRegistry) recoverPanic(toolName string, errp *error) {
	if rec := recover(); rec != nil {
		metrics.PanicsRecovered.WithLabelValues(toolName).Inc()
		h.logger.Error("Panic recovered",
			"tool", toolName,
			"panic", rec,
			"stack", string(debug.Stack()))
		if errp != nil {
			*errp = fmt.Errorf("%s failed: internal error", toolName)
		}
	}
}

// logExecution logs tool execution details.
func (h *HandlerRegistry) logExecution(spec ToolSpec, args any, result string) {
	attrs := []any{"tool", spec.Name, "server", spec.Server}

	// Add extractable fields from args using type assertions
	switch a := args.(type) {
	// Observation args
	case observations.ListMissionsArgs:
		// No args to log
	case observations.GetMetadataArgs:
		attrs = append(attrs, "data_type", a.DataType, "limit", a.Limit)
	case observations.ObservationQuery:
		if a.Target != "" {
			attrs = append(attrs, "target", a.Target, "radius", a.Radius)
		}
		if a.MissionName != "" {
			attrs = append(attrs, "mission_name", a.MissionName)
		}
	case observations.ObservationDetailsArgs:
		attrs = append(attrs, "obs_id", a.ObsID)
	case observations.ProductListArgs:
		attrs = append(attrs, "obs_ids", fmt.Sprint(a.ObsIDs))
	// ExoMAST args
	case exomast.SearchByNameArgs:
		attrs = append(attrs, "name", a.Name)
	case exomast.IdentifiersArgs:
		attrs = append(attrs, "name", a.Name)
	case exomast.PropertiesArgs:
		attrs = append(attrs, "exoplanet_id", a.ExoplanetID)
	case exomast.PropertiesByNameArgs:
		attrs = append(attrs, "name", a.Name)
	}

	attrs = append(attrs, "result_size", len(result))
	h.logger.Info("Tool executed", attrs...)
}
