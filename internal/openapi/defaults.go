package openapi

// Version is the OpenAPI version tag written to every aggregate.
const Version = "3.1.0"

// SharedFile is the baseline components document, merged before any module.
const SharedFile = "shared.yaml"

// DefaultModules is the fixed processing order of module documents. The
// order decides path ownership and component precedence, so it is spelled
// out here instead of being read from the directory listing.
var DefaultModules = []string{
	"incidents.yaml",
	"problems.yaml",
	"changes.yaml",
	"service-requests.yaml",
	"knowledge.yaml",
	"users.yaml",
	"teams.yaml",
	"cmdb.yaml",
	"search.yaml",
	"events.yaml",
	"system.yaml",
}

// Info is the aggregate's metadata block.
type Info struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Summary     string `yaml:"summary"`
	Description string `yaml:"description"`
}

// Server is one entry of the aggregate's servers list.
type Server struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

// DefaultInfo describes the aggregated platform API.
var DefaultInfo = Info{
	Title:       "SynergyFlow Platform API",
	Version:     "1.0.0",
	Summary:     "Aggregated REST + Webhooks API for SynergyFlow ITSM",
	Description: "Aggregated specification composed from per-module specs under docs/api/modules",
}

// DefaultServers lists the development and production base URLs.
var DefaultServers = []Server{
	{URL: "https://api.dev.synergyflow.example.com/api/v1", Description: "Dev"},
	{URL: "https://api.synergyflow.example.com/api/v1", Description: "Production"},
}

// DefaultSecurity names the security schemes of the default requirement.
// Each one is a separate alternative: satisfying any of them is enough.
var DefaultSecurity = []string{"bearerAuth", "oauth2", "ApiKeyAuth"}
