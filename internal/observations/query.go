// Package observations maps observation tool parameters onto MAST queries
// and summarizes the results as text.
package observations

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	apierrors "github.com/olgasafonova/mast-mcp-server/internal/errors"
	"github.com/olgasafonova/mast-mcp-server/internal/mast"
)

// DefaultRadius is used when a query gives no radius
const DefaultRadius = "0.02 deg"

// QueryMode selects which archive query a plan runs
type QueryMode int

const (
	// ByTarget is a positional lookup around a named target
	ByTarget QueryMode = iota + 1
	// ByCriteria is a criteria lookup over the whole archive
	ByCriteria
	// ByTargetAndCriteria is a criteria lookup limited to a region around a target
	ByTargetAndCriteria
)

func (m QueryMode) String() string {
	switch m {
	case ByTarget:
		return "by_target"
	case ByCriteria:
		return "by_criteria"
	case ByTargetAndCriteria:
		return "by_target_and_criteria"
	default:
		return "unknown"
	}
}

// QueryPlan is a normalized observation query
type QueryPlan struct {
	Mode      QueryMode
	Target    string
	Radius    string  // as given, for messages
	RadiusDeg float64 // parsed, in degrees
	Criteria  []mast.Criterion
}

// Plan validates the query and resolves it into a QueryPlan. Criteria are
// emitted in a fixed column order; instrument, filter and wavelength values
// become substring wildcards.
func (q ObservationQuery) Plan() (QueryPlan, error) {
	plan := QueryPlan{
		Target: strings.TrimSpace(q.Target),
		Radius: strings.TrimSpace(q.Radius),
	}
	if plan.Radius == "" {
		plan.Radius = DefaultRadius
	}

	add := func(column, value string, wildcard bool) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if wildcard {
			value = "*" + value + "*"
		}
		plan.Criteria = append(plan.Criteria, mast.Criterion{Column: column, Value: value})
	}
	add("instrument_name", q.InstrumentName, true)
	add("filters", q.Filters, true)
	add("obs_collection", q.MissionName, false)
	add("dataproduct_type", q.DataproductType, false)
	add("provenance_name", q.HLSPName, false)
	add("proposal_id", q.ProposalID, false)
	add("wavelength_region", q.WavelengthRegion, true)

	switch {
	case len(plan.Criteria) == 0 && plan.Target == "":
		return QueryPlan{}, apierrors.NewValidationError("target", "", "a target or at least one search criterion is required")
	case len(plan.Criteria) == 0:
		plan.Mode = ByTarget
	case plan.Target == "":
		plan.Mode = ByCriteria
	default:
		plan.Mode = ByTargetAndCriteria
	}

	if plan.Mode != ByCriteria {
		deg, err := ParseRadius(plan.Radius)
		if err != nil {
			return QueryPlan{}, err
		}
		plan.RadiusDeg = deg
	}

	return plan, nil
}

// radiusUnits gives the number of each angular unit in one degree
var radiusUnits = map[string]float64{
	"":           1,
	"d":          1,
	"deg":        1,
	"degree":     1,
	"degrees":    1,
	"arcmin":     60,
	"arcminute":  60,
	"arcminutes": 60,
	"'":          60,
	"arcsec":     3600,
	"arcsecond":  3600,
	"arcseconds": 3600,
	"\"":         3600,
}

// ParseRadius parses "<number> [unit]" into degrees. A bare number is in degrees.
func ParseRadius(s string) (float64, error) {
	raw := s
	s = strings.TrimSpace(s)

	split := strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\'' || r == '"' || (unicode.IsLetter(r) && r != 'e' && r != 'E')
	})
	number, unit := s, ""
	if split >= 0 {
		number, unit = s[:split], strings.ToLower(strings.TrimSpace(s[split:]))
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, apierrors.NewValidationError("radius", raw, "expected a number followed by deg, arcmin or arcsec")
	}
	perDegree, ok := radiusUnits[unit]
	if !ok {
		return 0, apierrors.NewValidationError("radius", raw, fmt.Sprintf("unknown unit %q, expected deg, arcmin or arcsec", unit))
	}
	if value < 0 {
		return 0, apierrors.NewValidationError("radius", raw, "must not be negative")
	}
	return value / perDegree, nil
}

// ParseObsIDs normalizes observation ids given as a list, a single number or
// a comma-separated string. Ids must be numeric.
func ParseObsIDs(v any) ([]string, error) {
	var parts []string
	switch val := v.(type) {
	case nil:
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []any:
		for _, item := range val {
			s, err := idString(item)
			if err != nil {
				return nil, err
			}
			parts = append(parts, s)
		}
	default:
		s, err := idString(val)
		if err != nil {
			return nil, err
		}
		parts = []string{s}
	}

	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := strconv.ParseUint(p, 10, 64); err != nil {
			return nil, apierrors.NewValidationError("obs_ids", p, "observation ids must be numeric")
		}
		ids = append(ids, p)
	}
	if len(ids) == 0 {
		return nil, apierrors.NewValidationError("obs_ids", "", "at least one observation id is required")
	}
	return ids, nil
}

func idString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	default:
		return "", apierrors.NewValidationError("obs_ids", fmt.Sprint(v), "unsupported id type")
	}
}
