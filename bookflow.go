package bookalope

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
)

// Conversion is one outstanding or completed conversion request for a
// (format, style, version) tuple.
type Conversion struct {
	Format     string
	Style      string
	Version    Version
	DownloadID string
	Status     ConversionStatus
}

type conversionKey struct {
	format  string
	style   string
	version Version
}

// Bookflow is one document-conversion pipeline of a book: upload, analyze,
// convert, download. Step is authoritative only after Update; the local
// value can be stale between polls.
type Bookflow struct {
	client *Client
	book   *Book

	ID       string
	Name     string
	Step     Step
	Metadata Metadata
	Credit   CreditType

	mu          sync.Mutex
	conversions map[conversionKey]*Conversion
}

// NewBookflow builds a Bookflow from a known ID without talking to the
// server, for re-associating with a previous session. Call Update to
// populate it.
func (c *Client) NewBookflow(book *Book, id string) (*Bookflow, error) {
	if !IsToken(id) {
		return nil, fmt.Errorf("%w: bookflow id %q", ErrMalformedToken, id)
	}
	return &Bookflow{
		client:      c,
		book:        book,
		ID:          id,
		conversions: make(map[conversionKey]*Conversion),
	}, nil
}

func newBookflowFromPayload(c *Client, book *Book, payload *bookflowPayload) *Bookflow {
	bookflow := &Bookflow{
		client:      c,
		book:        book,
		ID:          payload.ID,
		conversions: make(map[conversionKey]*Conversion),
	}
	bookflow.applyPayload(payload)
	return bookflow
}

func (f *Bookflow) applyPayload(payload *bookflowPayload) {
	f.Name = payload.Name
	f.Step = Step(payload.Step)
	f.Metadata = Metadata{
		Title:     payload.Title,
		Author:    payload.Author,
		Copyright: payload.Copyright,
		ISBN:      payload.ISBN,
		Language:  payload.Language,
		Pubdate:   payload.Pubdate,
		Publisher: payload.Publisher,
	}
	if payload.Credit != nil {
		f.Credit = CreditType(payload.Credit.Type)
	}
}

// Book returns the book this bookflow belongs to.
func (f *Bookflow) Book() *Book {
	return f.book
}

func (f *Bookflow) apiPath() string {
	return "/api/bookflows/" + f.ID
}

// WebURL returns the direct link into the Bookalope web client for this
// bookflow, unlike the API URL.
func (f *Bookflow) WebURL() string {
	return f.client.Host() + "/bookflows/" + f.ID + "/" + string(f.Step)
}

// Update refreshes the bookflow from the server. This is the only call that
// moves Step out of "processing" from the client's point of view.
func (f *Bookflow) Update(ctx context.Context) error {
	var payload bookflowEnvelope
	if err := f.client.get(ctx, f.apiPath(), nil, &payload); err != nil {
		return err
	}
	f.applyPayload(&payload.Bookflow)
	return nil
}

// Save posts the bookflow's name and metadata to the server. Only non-empty
// metadata fields are sent, so server-held values are never overwritten with
// blanks.
func (f *Bookflow) Save(ctx context.Context) error {
	body := map[string]string{"name": f.Name}
	for key, value := range map[string]string{
		"title":     f.Metadata.Title,
		"author":    f.Metadata.Author,
		"copyright": f.Metadata.Copyright,
		"isbn":      f.Metadata.ISBN,
		"language":  f.Metadata.Language,
		"pubdate":   f.Metadata.Pubdate,
		"publisher": f.Metadata.Publisher,
	} {
		if value != "" {
			body[key] = value
		}
	}
	return f.client.post(ctx, f.apiPath(), body, nil)
}

// Delete removes the bookflow from the server. The instance is useless
// afterwards as its ID no longer exists.
func (f *Bookflow) Delete(ctx context.Context) error {
	return f.client.delete(ctx, f.apiPath())
}

// ApplyCredit spends a plan credit of the given type on this bookflow.
func (f *Bookflow) ApplyCredit(ctx context.Context, credit CreditType) error {
	body := map[string]string{"type": string(credit)}
	if err := f.client.post(ctx, f.apiPath()+"/credit", body, nil); err != nil {
		return err
	}
	f.Credit = credit
	return nil
}

// Document downloads the original document that was uploaded for this
// bookflow.
func (f *Bookflow) Document(ctx context.Context) ([]byte, error) {
	return f.client.getBinary(ctx, f.apiPath()+"/files/document", nil)
}

// SetDocument uploads a manuscript and starts the server-side analysis. The
// bookflow must still be in the "files" step. On success the local step
// optimistically moves to "processing", mirroring the server.
func (f *Bookflow) SetDocument(ctx context.Context, filename string, data []byte, opts *DocumentOptions) error {
	if filename == "" {
		return ErrEmptyFilename
	}
	if len(data) == 0 {
		return ErrEmptyDocument
	}
	if len(data) > MaxDocumentSize {
		return fmt.Errorf("document %q exceeds the %d byte upload limit", filename, MaxDocumentSize)
	}
	if f.Step != StepFiles {
		return fmt.Errorf("%w (step is %q)", ErrDocumentAlreadySet, f.Step)
	}

	filetype := "doc"
	skipStructure := false
	if opts != nil {
		if opts.Filetype != "" {
			filetype = opts.Filetype
		}
		skipStructure = opts.SkipStructure
	}

	body := map[string]any{
		"filename": filename,
		"filetype": filetype,
		"file":     base64.StdEncoding.EncodeToString(data),
	}
	if skipStructure {
		body["skip_structure"] = true
	}

	if err := f.client.post(ctx, f.apiPath()+"/files/document", body, nil); err != nil {
		return err
	}

	f.Step = StepProcessing // server does the same
	return nil
}

// Image downloads an image of the given name stored with this bookflow.
func (f *Bookflow) Image(ctx context.Context, name string) ([]byte, error) {
	return f.client.getBinary(ctx, f.apiPath()+"/files/image", map[string]string{"name": name})
}

// CoverImage downloads the bookflow's cover image.
func (f *Bookflow) CoverImage(ctx context.Context) ([]byte, error) {
	return f.Image(ctx, "cover-image")
}

// AddImage uploads an image under the given server-side name. Images can
// only be added once the analysis finished and the bookflow reached the
// "convert" step.
func (f *Bookflow) AddImage(ctx context.Context, name, filename string, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyImage
	}
	if f.Step != StepConvert {
		return fmt.Errorf("%w (step is %q)", ErrImageStep, f.Step)
	}

	body := map[string]string{
		"name":     name,
		"filename": filename,
		"file":     base64.StdEncoding.EncodeToString(data),
	}
	return f.client.post(ctx, f.apiPath()+"/files/image", body, nil)
}

// SetCoverImage uploads the bookflow's cover image.
func (f *Bookflow) SetCoverImage(ctx context.Context, filename string, data []byte) error {
	return f.AddImage(ctx, "cover-image", filename, data)
}

func newConversionKey(format, style string, version Version) conversionKey {
	if style == "" {
		style = "default"
	}
	if version == "" {
		version = VersionTest
	}
	return conversionKey{format: format, style: style, version: version}
}

func (k conversionKey) queryParams() map[string]string {
	return map[string]string{
		"format":  k.format,
		"styling": k.style,
		"version": string(k.version),
	}
}

// Convert initiates the conversion of this bookflow's document. The call is
// idempotent per (format, style, version) key: if a conversion for the key
// is already processing or available, no new request is issued. A previously
// failed conversion is re-requested and its entry overwritten.
func (f *Bookflow) Convert(ctx context.Context, format, style string, version Version) error {
	key := newConversionKey(format, style, version)

	f.mu.Lock()
	if existing, ok := f.conversions[key]; ok {
		switch existing.Status {
		case ConversionProcessing, ConversionAvailable:
			f.mu.Unlock()
			return nil
		}
	}
	f.mu.Unlock()

	body := map[string]string{
		"format":  key.format,
		"styling": key.style,
		"version": string(key.version),
	}

	var payload conversionPayload
	if err := f.client.post(ctx, f.apiPath()+"/convert", body, &payload); err != nil {
		return err
	}

	f.mu.Lock()
	f.conversions[key] = &Conversion{
		Format:     key.format,
		Style:      key.style,
		Version:    key.version,
		DownloadID: payload.DownloadID,
		Status:     normalizeConversionStatus(payload.Status),
	}
	f.mu.Unlock()
	return nil
}

// Conversion returns a copy of the stored conversion for the key, if any.
func (f *Bookflow) Conversion(format, style string, version Version) (Conversion, bool) {
	key := newConversionKey(format, style, version)

	f.mu.Lock()
	defer f.mu.Unlock()
	if conversion, ok := f.conversions[key]; ok {
		return *conversion, true
	}
	return Conversion{}, false
}

// ConvertStatus queries the server for the current status of a previously
// requested conversion and updates the stored entry.
func (f *Bookflow) ConvertStatus(ctx context.Context, format, style string, version Version) (ConversionStatus, error) {
	key := newConversionKey(format, style, version)

	f.mu.Lock()
	conversion, ok := f.conversions[key]
	f.mu.Unlock()
	if !ok {
		return "", ErrNotConverted
	}

	var payload conversionPayload
	path := f.apiPath() + "/download/" + conversion.DownloadID + "/status"
	if err := f.client.get(ctx, path, key.queryParams(), &payload); err != nil {
		return "", err
	}

	status := normalizeConversionStatus(payload.Status)

	f.mu.Lock()
	conversion.Status = status
	if payload.DownloadID != "" {
		conversion.DownloadID = payload.DownloadID
	}
	f.mu.Unlock()
	return status, nil
}

// ConvertDownload fetches the converted file once ConvertStatus reported it
// available.
func (f *Bookflow) ConvertDownload(ctx context.Context, format, style string, version Version) ([]byte, error) {
	key := newConversionKey(format, style, version)

	f.mu.Lock()
	conversion, ok := f.conversions[key]
	f.mu.Unlock()
	if !ok {
		return nil, ErrNotConverted
	}
	if conversion.Status != ConversionAvailable {
		return nil, fmt.Errorf("%w (status is %q)", ErrConversionNotReady, conversion.Status)
	}

	path := f.apiPath() + "/download/" + conversion.DownloadID
	return f.client.getBinary(ctx, path, key.queryParams())
}

// WaitForAnalysis polls the bookflow until the document analysis finishes.
// It returns nil once the step reaches "convert", ErrProcessingFailed when
// the analysis fails, and the underlying error when a status check itself
// fails.
func (f *Bookflow) WaitForAnalysis(ctx context.Context, cfg PollConfig) error {
	return pollUntil(ctx, "analysis", cfg, func(ctx context.Context) (PollOutcome, error) {
		if err := f.Update(ctx); err != nil {
			return PollFailure, err
		}
		switch f.Step {
		case StepConvert:
			return PollSuccess, nil
		case StepProcessingFailed:
			return PollFailure, ErrProcessingFailed
		default:
			return PollContinue, nil
		}
	})
}

// WaitForConversion polls a requested conversion until it terminates. It
// returns nil once the status is "available" and ErrConversionFailed on the
// failed or none terminal statuses.
func (f *Bookflow) WaitForConversion(ctx context.Context, format, style string, version Version, cfg PollConfig) error {
	return pollUntil(ctx, "conversion", cfg, func(ctx context.Context) (PollOutcome, error) {
		status, err := f.ConvertStatus(ctx, format, style, version)
		if err != nil {
			return PollFailure, err
		}
		switch status {
		case ConversionAvailable:
			return PollSuccess, nil
		case ConversionFailed, ConversionNone:
			return PollFailure, fmt.Errorf("%w: %s/%s (%s)", ErrConversionFailed, format, style, version)
		default:
			return PollContinue, nil
		}
	})
}
