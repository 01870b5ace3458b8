package bookalope

import (
	"context"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// IsToken reports whether s has the shape of a Bookalope API token or ID:
// exactly 32 lowercase hex characters. It does not check validity against
// the server, only the format.
func IsToken(s string) bool {
	return tokenPattern.MatchString(s)
}

// Client talks to the Bookalope server and wraps its REST API into domain
// objects. A zero Client is not usable; construct one with New.
type Client struct {
	restyClient *resty.Client
	token       string
	beta        bool
}

type Option func(*Client)

// WithBetaHost points the client at the beta server instead of production.
func WithBetaHost(beta bool) Option {
	return func(c *Client) {
		c.beta = beta
		if beta {
			c.restyClient.SetBaseURL(BetaHost)
		} else {
			c.restyClient.SetBaseURL(ProductionHost)
		}
	}
}

// WithBaseURL overrides the server URL entirely. Mostly useful for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.restyClient.SetBaseURL(baseURL)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.restyClient.SetTimeout(timeout)
		}
	}
}

// WithRestyClient allows callers to provide a preconfigured API client.
func WithRestyClient(restyClient *resty.Client) Option {
	return func(c *Client) {
		if restyClient != nil {
			c.restyClient = restyClient
		}
	}
}

// New creates a client authenticating with the given API token. The token
// format is not checked here; a malformed token causes every request to be
// rejected before it is sent. Use SetToken to validate eagerly.
func New(token string, opts ...Option) *Client {
	c := &Client{
		restyClient: newDefaultAPIClient(),
		token:       token,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.restyClient == nil {
		c.restyClient = newDefaultAPIClient()
	}

	return c
}

func newDefaultAPIClient() *resty.Client {
	return resty.New().
		SetBaseURL(ProductionHost).
		SetTimeout(DefaultTimeout).
		SetHeader("Content-Type", "application/json")
}

// SetToken replaces the API token used to authenticate requests. The token
// must be well formed.
func (c *Client) SetToken(token string) error {
	if !IsToken(token) {
		return ErrMalformedToken
	}
	c.token = token
	return nil
}

// Token returns the token currently used to authenticate requests.
func (c *Client) Token() string {
	return c.token
}

// Beta reports whether the client targets the beta host.
func (c *Client) Beta() bool {
	return c.beta
}

// Host returns the server URL the client is configured against.
func (c *Client) Host() string {
	return c.restyClient.BaseURL
}

// Name returns the service name.
func (c *Client) Name() string {
	return ServiceName
}

// Version returns the API version.
func (c *Client) Version() string {
	return APIVersion
}

// Profile fetches the user profile for the authenticated account.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var payload profilePayload
	if err := c.get(ctx, EndpointProfile, nil, &payload); err != nil {
		return nil, err
	}

	return &Profile{
		client:    c,
		Firstname: payload.User.Firstname,
		Lastname:  payload.User.Lastname,
	}, nil
}

// Styles lists the design styles available for the given export format.
func (c *Client) Styles(ctx context.Context, format string) ([]Style, error) {
	var payload stylesPayload
	if err := c.get(ctx, EndpointStyles, map[string]string{"format": format}, &payload); err != nil {
		return nil, err
	}

	styles := make([]Style, 0, len(payload.Styles))
	for _, s := range payload.Styles {
		styles = append(styles, Style{
			Format:      format,
			ShortName:   s.Name,
			Name:        s.Info.Name,
			Description: s.Info.Description,
			APIPrice:    s.Info.APIPrice,
		})
	}
	return styles, nil
}

// ExportFormats lists the file formats the server can convert a document to.
func (c *Client) ExportFormats(ctx context.Context) ([]Format, error) {
	var payload formatsPayload
	if err := c.get(ctx, EndpointFormats, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Formats.Export, nil
}

// ImportFormats lists the file formats the server accepts for upload.
func (c *Client) ImportFormats(ctx context.Context) ([]Format, error) {
	var payload formatsPayload
	if err := c.get(ctx, EndpointFormats, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Formats.Import, nil
}

// Books lists the account's books, bookflows included.
func (c *Client) Books(ctx context.Context) ([]*Book, error) {
	var payload booksEnvelope
	if err := c.get(ctx, EndpointBooks, nil, &payload); err != nil {
		return nil, err
	}

	books := make([]*Book, 0, len(payload.Books))
	for i := range payload.Books {
		books = append(books, newBookFromPayload(c, &payload.Books[i]))
	}
	return books, nil
}

// CreateBook creates a new book on the server. The server also creates one
// empty bookflow for it, which is the one uploads go to.
func (c *Client) CreateBook(ctx context.Context, name string) (*Book, error) {
	if name == "" {
		name = "<none>"
	}

	var payload bookEnvelope
	if err := c.post(ctx, EndpointBooks, map[string]string{"name": name}, &payload); err != nil {
		return nil, err
	}
	return newBookFromPayload(c, &payload.Book), nil
}

// Profile is the Bookalope user profile.
type Profile struct {
	client    *Client
	Firstname string
	Lastname  string
}

// Update refreshes the profile from the server.
func (p *Profile) Update(ctx context.Context) error {
	var payload profilePayload
	if err := p.client.get(ctx, EndpointProfile, nil, &payload); err != nil {
		return err
	}
	p.Firstname = payload.User.Firstname
	p.Lastname = payload.User.Lastname
	return nil
}

// Save posts the profile data back to the server.
func (p *Profile) Save(ctx context.Context) error {
	body := map[string]string{
		"firstname": p.Firstname,
		"lastname":  p.Lastname,
	}
	return p.client.post(ctx, EndpointProfile, body, nil)
}
