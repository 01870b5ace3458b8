package bookalope

import "time"

const (
	ServiceName    = "bookalope"
	ProductionHost = "https://bookflow.bookalope.net"
	BetaHost       = "https://beta.bookalope.net"
	DefaultTimeout = 2 * time.Minute
	APIVersion     = "v1"
)

// Polling defaults for the long-running analysis and conversion phases.
const (
	DefaultPollInterval    = 5 * time.Second
	DefaultMaxPollDuration = 30 * time.Minute
)

// MaxDocumentSize is the largest manuscript the server accepts (256 MiB),
// enforced locally before any request is sent.
const MaxDocumentSize = 256 << 20

// API endpoints
const (
	EndpointProfile = "/api/profile"
	EndpointStyles  = "/api/styles"
	EndpointFormats = "/api/formats"
	EndpointBooks   = "/api/books"
)
