package exomast

// Flags are the response options shared by the resolver and properties endpoints
type Flags struct {
	FlattenResponse bool   `json:"flatten_response,omitempty" jsonschema:"Flatten nested response objects (default false)"`
	Format          string `json:"format,omitempty" jsonschema:"Response format, such as json or csv"`
	Delimiter       string `json:"delimiter,omitempty" jsonschema:"Field delimiter for delimited formats"`
	Raw             bool   `json:"raw,omitempty" jsonschema:"Return raw values without unit handling (default false)"`
	IncludeInfo     bool   `json:"include_info,omitempty" jsonschema:"Include column descriptions in the response (default false)"`
}

// SearchByNameArgs contains parameters for the exoplanet name search
type SearchByNameArgs struct {
	Name string `json:"name" jsonschema:"Exoplanet name, such as WASP-39 b"`
	Flags
}

// IdentifiersArgs contains parameters for the identifier lookup
type IdentifiersArgs struct {
	Name string `json:"name" jsonschema:"Exoplanet name, canonical or not, such as HD 209458 b or Osiris"`
}

// PropertiesArgs contains parameters for the properties lookup
type PropertiesArgs struct {
	ExoplanetID string `json:"exoplanet_id" jsonschema:"ExoMAST exoplanet id, as returned by the name search"`
	Flags
}

// PropertiesByNameArgs contains parameters for the chained properties lookup
type PropertiesByNameArgs struct {
	Name string `json:"name" jsonschema:"Exoplanet name, canonical or not"`
}
