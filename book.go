package bookalope

import (
	"context"
	"fmt"
	"time"
)

// Book is a top-level project on the Bookalope server holding one or more
// bookflows. The instance is a local projection of the server state; call
// Update to synchronize.
type Book struct {
	client *Client

	ID        string
	Name      string
	Created   time.Time
	Bookflows []*Bookflow
}

// NewBook builds a Book from a known ID without talking to the server, for
// re-associating with a previously created book. Call Update to populate it.
func (c *Client) NewBook(id string) (*Book, error) {
	if !IsToken(id) {
		return nil, fmt.Errorf("%w: book id %q", ErrMalformedToken, id)
	}
	return &Book{client: c, ID: id}, nil
}

func newBookFromPayload(c *Client, payload *bookPayload) *Book {
	book := &Book{
		client:  c,
		ID:      payload.ID,
		Name:    payload.Name,
		Created: parseCreated(payload.Created),
	}
	for i := range payload.Bookflows {
		book.Bookflows = append(book.Bookflows, newBookflowFromPayload(c, book, &payload.Bookflows[i]))
	}
	return book
}

// parseCreated is lenient: the creation timestamp is informational and a
// format drift on the server side should not fail the whole response.
func parseCreated(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (b *Book) apiPath() string {
	return EndpointBooks + "/" + b.ID
}

// Update refreshes the book from the server, re-populating its bookflows.
func (b *Book) Update(ctx context.Context) error {
	var payload bookEnvelope
	if err := b.client.get(ctx, b.apiPath(), nil, &payload); err != nil {
		return err
	}

	b.Name = payload.Book.Name
	b.Created = parseCreated(payload.Book.Created)
	b.Bookflows = b.Bookflows[:0]
	for i := range payload.Book.Bookflows {
		b.Bookflows = append(b.Bookflows, newBookflowFromPayload(b.client, b, &payload.Book.Bookflows[i]))
	}
	return nil
}

// Save posts the book's name to the server.
func (b *Book) Save(ctx context.Context) error {
	return b.client.post(ctx, b.apiPath(), map[string]string{"name": b.Name}, nil)
}

// Delete removes the book from the server. The instance is useless
// afterwards as its ID no longer exists.
func (b *Book) Delete(ctx context.Context) error {
	return b.client.delete(ctx, b.apiPath())
}

// FetchBookflows lists the book's bookflows from the server without touching
// the locally cached slice.
func (b *Book) FetchBookflows(ctx context.Context) ([]*Bookflow, error) {
	var payload bookflowsEnvelope
	if err := b.client.get(ctx, b.apiPath()+"/bookflows", nil, &payload); err != nil {
		return nil, err
	}

	bookflows := make([]*Bookflow, 0, len(payload.Bookflows))
	for i := range payload.Bookflows {
		bookflows = append(bookflows, newBookflowFromPayload(b.client, b, &payload.Bookflows[i]))
	}
	return bookflows, nil
}

// CreateBookflow creates a new bookflow for this book and appends it to the
// local list.
func (b *Book) CreateBookflow(ctx context.Context, name, title string) (*Bookflow, error) {
	if name == "" {
		name = "Bookflow"
	}
	if title == "" {
		title = "<no-title>"
	}

	var payload bookflowEnvelope
	body := map[string]string{"name": name, "title": title}
	if err := b.client.post(ctx, b.apiPath()+"/bookflows", body, &payload); err != nil {
		return nil, err
	}

	bookflow := newBookflowFromPayload(b.client, b, &payload.Bookflow)
	b.Bookflows = append(b.Bookflows, bookflow)
	return bookflow, nil
}
