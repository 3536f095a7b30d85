package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/olgasafonova/mast-mcp-server/internal/config"
	"github.com/olgasafonova/mast-mcp-server/internal/exomast"
)

// Resource URIs
const (
	MASTClientVersionURI = "config://mast-client-version"
	ExoMASTVersionURI    = "config://exomast-version"
)

// RegisterResources registers the version resources of the selected sub-servers.
func RegisterResources(server *mcp.Server, version string, servers []string) {
	for _, name := range servers {
		switch name {
		case config.ServerObservations:
			addTextResource(server, &mcp.Resource{
				URI:         MASTClientVersionURI,
				Name:        "mast-client-version",
				Description: "Version of the MAST client used by this server",
				MIMEType:    "text/plain",
			}, "mast-mcp-server version: "+version)
		case config.ServerExoMAST:
			addTextResource(server, &mcp.Resource{
				URI:         ExoMASTVersionURI,
				Name:        "exomast-version",
				Description: "Version of the ExoMAST API this server queries",
				MIMEType:    "text/plain",
			}, exomast.APIVersion)
		}
	}
}

func addTextResource(server *mcp.Server, res *mcp.Resource, text string) {
	server.AddResource(res, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: res.MIMEType,
				Text:     text,
			}},
		}, nil
	})
}
