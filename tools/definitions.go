package tools

import "github.com/olgasafonova/mast-mcp-server/internal/config"

// AllTools contains all tool specifications for the MAST MCP server.
// Tools are organized by sub-server for easier maintenance.
// Tool descriptions follow a structured format for optimal LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	// ==========================================================================
	// OBSERVATION TOOLS (MAST Portal, CAOM)
	// ==========================================================================
	{
		Name:     "list_mast_missions",
		Method:   "ListMissions",
		Title:    "List MAST Missions",
		Category: "discovery",
		Server:   config.ServerObservations,
		Description: `List the missions (observation collections) available in the MAST archive.

USE WHEN: User asks "which missions does MAST have", "what collections can I search", or needs a valid mission_name before querying.

NOT FOR: Finding observations of a target (use mast_observation_query).

PARAMETERS: None.

RETURNS: Mission names, comma-separated and sorted alphabetically.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "get_mast_metadata",
		Method:   "GetMetadata",
		Title:    "Get MAST Metadata Fields",
		Category: "discovery",
		Server:   config.ServerObservations,
		Description: `List the metadata fields (columns) of MAST observation or product results.

USE WHEN: User asks "what columns does an observation have", "what does dataproduct_type mean", or needs field names to interpret results.

NOT FOR: Retrieving actual observations (use mast_observation_query).

PARAMETERS:
- data_type: 'observations' or 'products' (required)
- limit: Max fields to list (default 10)

RETURNS: Field names with their human-readable labels.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mast_observation_query",
		Method:   "ObservationQuery",
		Title:    "Query MAST Observations",
		Category: "search",
		Server:   config.ServerObservations,
		Description: `Search MAST for observations around a named target, by criteria, or both.

USE WHEN: User asks "find JWST observations of TRAPPIST-1", "what HST images exist of M31", "list TESS timeseries for proposal 1234".

NOT FOR: Details of one known observation (use mast_observation_details). Exoplanet parameters (use get_exoplanet_properties_by_name).

PARAMETERS:
- target: Object name resolved to coordinates (optional)
- radius: Cone radius such as '0.02 deg', '3 arcmin', '36 arcsec' (default '0.02 deg')
- mission_name, dataproduct_type, proposal_id, hlsp_name: Exact filters (optional)
- instrument_name, filters, wavelength_region: Substring filters (optional)
At least one of target or a filter is required.

RETURNS: A table of matching observations. Above 100 results, counts per mission instead.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mast_observation_details",
		Method:   "ObservationDetails",
		Title:    "Get MAST Observation Details",
		Category: "details",
		Server:   config.ServerObservations,
		Description: `Get every metadata field of a single observation by its obs_id.

USE WHEN: User asks "show details of observation j8pu0y010", "what instrument took obs X".

NOT FOR: Searching observations (use mast_observation_query). Listing files (use mast_product_list).

PARAMETERS:
- obs_id: Observation identifier from a query result (required)

RETURNS: One 'field: value' line per metadata field.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mast_product_list",
		Method:   "ProductList",
		Title:    "List MAST Data Products",
		Category: "products",
		Server:   config.ServerObservations,
		Description: `List the data products (files) of one or more observations.

USE WHEN: User asks "what files are available for these observations", "list the products of obsid 2003520266".

NOT FOR: Observation metadata (use mast_observation_details).

PARAMETERS:
- obs_ids: Numeric observation ids (obsid column), as a list or comma-separated string (required)

RETURNS: A product table. Above 100 products, counts per observation instead.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// EXOPLANET TOOLS (ExoMAST)
	// ==========================================================================
	{
		Name:     "search_exoplanet_by_name",
		Method:   "SearchExoplanetByName",
		Title:    "Search Exoplanet by Name",
		Category: "exoplanets",
		Server:   config.ServerExoMAST,
		Description: `Resolve an exoplanet name with the ExoMAST resolver.

USE WHEN: User asks "is WASP-39 b in ExoMAST", "what is the ExoMAST id of HD 209458 b".

NOT FOR: Planet parameters (use get_exoplanet_properties_by_name).

PARAMETERS:
- name: Exoplanet name (required)
- flatten_response, raw, include_info: Response options (default false)
- format, delimiter: Output format options (optional)

RETURNS: Matching exoplanet records as JSON, or the requested format.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "get_exoplanet_identifiers",
		Method:   "GetExoplanetIdentifiers",
		Title:    "Get Exoplanet Identifiers",
		Category: "exoplanets",
		Server:   config.ServerExoMAST,
		Description: `Get the canonical name and catalog identifiers of an exoplanet.

USE WHEN: User asks "what are the other names of Osiris", "what is the canonical name of HD 209458 b".

NOT FOR: Planet parameters (use get_exoplanet_properties_by_name).

PARAMETERS:
- name: Exoplanet name, canonical or not (required)

RETURNS: Identifier record as JSON, including canonicalName.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "get_exoplanet_properties",
		Method:   "GetExoplanetProperties",
		Title:    "Get Exoplanet Properties",
		Category: "exoplanets",
		Server:   config.ServerExoMAST,
		Description: `Get the properties of an exoplanet by ExoMAST id.

USE WHEN: The ExoMAST id is already known from search_exoplanet_by_name.

NOT FOR: Lookups by name (use get_exoplanet_properties_by_name).

PARAMETERS:
- exoplanet_id: ExoMAST exoplanet id (required)
- flatten_response, raw, include_info, format, delimiter: Response options (optional)

RETURNS: Planet and host star properties as JSON, or the requested format.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "get_exoplanet_properties_by_name",
		Method:   "GetExoplanetPropertiesByName",
		Title:    "Get Exoplanet Properties by Name",
		Category: "exoplanets",
		Server:   config.ServerExoMAST,
		Description: `Get the properties of an exoplanet from any of its names.

USE WHEN: User asks "what is the mass of WASP-39 b", "orbital period of TRAPPIST-1 e", "tell me about HD 209458 b".

NOT FOR: Observations of the host star (use mast_observation_query).

PARAMETERS:
- name: Exoplanet name, canonical or not (required)

RETURNS: Planet and host star properties as YAML. If a lookup step finds nothing, a message with the raw response.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
}
