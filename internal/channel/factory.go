package channel

import (
	"net/http"

	"github.com/otelciro/channel-sync/internal/model"
)

// Factory builds API clients per connection over one shared HTTP
// transport, so connection pooling is not defeated by per-cycle client
// construction.
type Factory struct {
	http *http.Client
}

// NewFactory returns a client factory.  A nil httpClient gets the
// NewClient default.
func NewFactory(httpClient *http.Client) *Factory {
	return &Factory{http: httpClient}
}

// ClientFor builds the client for one connection, with the telemetry
// header names its channel type uses.
func (f *Factory) ClientFor(conn *model.ChannelConnection) API {
	return NewClient(conn.BaseURL, headersForType(conn.Type), StaticToken(conn.Credential), f.http)
}

func headersForType(t model.ChannelType) HeaderNames {
	switch t {
	case model.ChannelTypeChannelManager:
		// Beds24-style five-minute credit windows.
		return HeaderNames{
			Remaining: "X-FiveMinCreditLimit-Remaining",
			ResetsIn:  "X-FiveMinCreditLimit-ResetsIn",
			Cost:      "X-RequestCost",
		}
	default:
		return DefaultHeaderNames()
	}
}
