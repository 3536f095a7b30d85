package observations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apierrors "github.com/olgasafonova/mast-mcp-server/internal/errors"
	"github.com/olgasafonova/mast-mcp-server/internal/mast"
)

// DefaultMetadataLimit is the number of metadata fields listed when no limit is given
const DefaultMetadataLimit = 10

// Archive is the observation archive the tools query. *mast.Client implements it.
type Archive interface {
	ListMissions(ctx context.Context) ([]string, error)
	Metadata(ctx context.Context, dataType string) ([]mast.ColumnInfo, error)
	QueryObject(ctx context.Context, target string, radius float64) (*mast.Table, error)
	QueryCriteria(ctx context.Context, q mast.CriteriaQuery) (*mast.Table, error)
	QueryProducts(ctx context.Context, obsIDs []string) (*mast.Table, error)
}

var _ Archive = (*mast.Client)(nil)

// Service implements the observation tools over an Archive
type Service struct {
	archive Archive
	logger  *slog.Logger
}

// NewService creates an observation Service
func NewService(archive Archive, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{archive: archive, logger: logger}
}

// MCP Tool wrapper methods
// Each returns the text shown to the caller.

// ListMissionsMCP lists the missions archived by MAST
func (s *Service) ListMissionsMCP(ctx context.Context, _ ListMissionsArgs) (string, error) {
	missions, err := s.archive.ListMissions(ctx)
	if err != nil {
		return "", err
	}
	return "Available MAST missions:\n" + strings.Join(missions, ", "), nil
}

// GetMetadataMCP lists the fields of observations or products
func (s *Service) GetMetadataMCP(ctx context.Context, args GetMetadataArgs) (string, error) {
	dataType := strings.ToLower(strings.TrimSpace(args.DataType))
	if dataType != "observations" && dataType != "products" {
		return "", apierrors.NewValidationError("data_type", args.DataType, "must be 'observations' or 'products'")
	}
	limit := args.Limit
	if limit < 0 {
		return "", apierrors.NewValidationError("limit", fmt.Sprint(args.Limit), "must not be negative")
	}
	if limit == 0 {
		limit = DefaultMetadataLimit
	}

	cols, err := s.archive.Metadata(ctx, dataType)
	if err != nil {
		return "", err
	}
	if len(cols) > limit {
		cols = cols[:limit]
	}

	lines := make([]string, len(cols))
	for i, c := range cols {
		lines[i] = c.Name + ": " + c.Label
	}
	return fmt.Sprintf("Metadata fields for %s:\n", dataType) + strings.Join(lines, "\n"), nil
}

// ObservationQueryMCP searches observations by target, criteria or both
func (s *Service) ObservationQueryMCP(ctx context.Context, args ObservationQuery) (string, error) {
	plan, err := args.Plan()
	if err != nil {
		return "", err
	}

	s.logger.Debug("Running observation query",
		"mode", plan.Mode.String(),
		"target", plan.Target,
		"radius_deg", plan.RadiusDeg,
		"criteria", len(plan.Criteria))

	var table *mast.Table
	switch plan.Mode {
	case ByTarget:
		table, err = s.archive.QueryObject(ctx, plan.Target, plan.RadiusDeg)
	case ByCriteria:
		table, err = s.archive.QueryCriteria(ctx, mast.CriteriaQuery{Criteria: plan.Criteria})
	case ByTargetAndCriteria:
		table, err = s.archive.QueryCriteria(ctx, mast.CriteriaQuery{
			Target:   plan.Target,
			Radius:   plan.RadiusDeg,
			Criteria: plan.Criteria,
		})
	}
	if err != nil {
		return "", err
	}

	return SummarizeObservations(table, plan.Target, plan.Radius), nil
}

// ObservationDetailsMCP shows every field of one observation
func (s *Service) ObservationDetailsMCP(ctx context.Context, args ObservationDetailsArgs) (string, error) {
	obsID := strings.TrimSpace(args.ObsID)
	if obsID == "" {
		return "", apierrors.NewValidationError("obs_id", "", "observation id is required")
	}

	table, err := s.archive.QueryCriteria(ctx, mast.CriteriaQuery{
		Criteria: []mast.Criterion{{Column: "obs_id", Value: obsID}},
	})
	if err != nil {
		return "", err
	}
	return SummarizeDetails(table, obsID), nil
}

// ProductListMCP lists the data products of one or more observations
func (s *Service) ProductListMCP(ctx context.Context, args ProductListArgs) (string, error) {
	ids, err := ParseObsIDs(args.ObsIDs)
	if err != nil {
		return "", err
	}

	table, err := s.archive.QueryProducts(ctx, ids)
	if err != nil {
		return "", err
	}
	return SummarizeProducts(table, ids), nil
}
