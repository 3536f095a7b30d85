package observations

// ListMissionsArgs takes no parameters
type ListMissionsArgs struct{}

// GetMetadataArgs contains parameters for listing metadata fields
type GetMetadataArgs struct {
	DataType string `json:"data_type" jsonschema:"Type of metadata to retrieve: 'observations' or 'products'"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of fields to list (default 10)"`
}

// ObservationQuery contains the optional parameters of an observation search.
// Empty fields are not applied.
type ObservationQuery struct {
	Target           string `json:"target,omitempty" jsonschema:"Name of the target object, such as M31 or TRAPPIST-1"`
	Radius           string `json:"radius,omitempty" jsonschema:"Search radius around the target, such as '0.02 deg', '3 arcmin' or '36 arcsec' (default '0.02 deg')"`
	MissionName      string `json:"mission_name,omitempty" jsonschema:"Filter by mission/collection name, such as JWST, TESS or HST"`
	DataproductType  string `json:"dataproduct_type,omitempty" jsonschema:"Filter by data product type, such as image, timeseries or spectrum"`
	InstrumentName   string `json:"instrument_name,omitempty" jsonschema:"Filter by instrument name (substring match)"`
	Filters          string `json:"filters,omitempty" jsonschema:"Astronomical filters to search on (substring match)"`
	HLSPName         string `json:"hlsp_name,omitempty" jsonschema:"Filter by High-Level Science Product name, also known as provenance_name"`
	ProposalID       string `json:"proposal_id,omitempty" jsonschema:"Filter by proposal ID"`
	WavelengthRegion string `json:"wavelength_region,omitempty" jsonschema:"Filter by wavelength region, such as OPTICAL or INFRARED (substring match)"`
}

// ObservationDetailsArgs contains parameters for a single observation lookup
type ObservationDetailsArgs struct {
	ObsID string `json:"obs_id" jsonschema:"Observation ID (obs_id), such as j8pu0y010"`
}

// ProductListArgs contains parameters for listing data products
type ProductListArgs struct {
	ObsIDs any `json:"obs_ids" jsonschema:"Numeric observation IDs (obsid), as a list or a comma-separated string"`
}
