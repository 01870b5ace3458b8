package bookalope

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
)

// Phase is the workflow controller's state. Every non-terminal phase can
// transition to PhaseFailed.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCreating
	PhaseUploading
	PhaseProcessing
	PhaseConvertReady
	PhaseConverting
	PhaseConversionPolling
	PhaseDownloading
	PhasePlacing
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCreating:
		return "creating"
	case PhaseUploading:
		return "uploading"
	case PhaseProcessing:
		return "processing"
	case PhaseConvertReady:
		return "convert-ready"
	case PhaseConverting:
		return "converting"
	case PhaseConversionPolling:
		return "conversion-polling"
	case PhaseDownloading:
		return "downloading"
	case PhasePlacing:
		return "placing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PhaseFunc observes phase transitions, with a short human-readable detail.
// It is invoked from the goroutine running the workflow.
type PhaseFunc func(phase Phase, detail string)

// Request carries the inputs of one upload-and-convert operation.
type Request struct {
	// FilePath is the manuscript to upload, read through the host. Ignored
	// when Document is set.
	FilePath string
	// Filename is the upload filename. Required when Document is set,
	// derived from FilePath otherwise.
	Filename string
	// Document holds preloaded manuscript bytes.
	Document []byte

	// Name is the book name shown on the server. Required.
	Name     string
	Metadata Metadata

	// Format is the conversion target, e.g. "icml" or "epub". Required.
	Format  string
	Style   string
	Version Version

	// Credit, when set, is applied to the bookflow before upload. Failure
	// to apply it is logged and does not abort the workflow.
	Credit CreditType

	DocOptions *DocumentOptions
}

// Result reports where a completed workflow ended up.
type Result struct {
	Book     *Book
	Bookflow *Bookflow
	// PlacedPath is the staged file handed to the host for placement.
	PlacedPath string
}

// Workflow drives the full upload, analyze, convert, download, place
// sequence against the server and the host application. At most one session
// runs at a time per Workflow; Run rejects concurrent starts.
type Workflow struct {
	client  *Client
	host    Host
	logger  *slog.Logger
	poll    PollConfig
	onPhase PhaseFunc
	busy    atomic.Bool
}

type WorkflowOption func(*Workflow)

func WithLogger(logger *slog.Logger) WorkflowOption {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithPollConfig(cfg PollConfig) WorkflowOption {
	return func(w *Workflow) {
		w.poll = cfg
	}
}

// WithPhaseFunc registers an observer for phase transitions, typically bound
// to a status area in a UI.
func WithPhaseFunc(fn PhaseFunc) WorkflowOption {
	return func(w *Workflow) {
		w.onPhase = fn
	}
}

func NewWorkflow(client *Client, host Host, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		client: client,
		host:   host,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) setPhase(phase Phase, detail string) {
	w.logger.Info("workflow phase", "phase", phase.String(), "detail", detail)
	if w.onPhase != nil {
		w.onPhase(phase, detail)
	}
}

// validate checks the request before any network traffic, reporting the
// first failing field only, in the order token, name, file, format.
func (w *Workflow) validate(req *Request) error {
	if !IsToken(w.client.Token()) {
		return &ValidationError{Field: "token", Reason: "must be 32 lowercase hex characters"}
	}
	if req.Name == "" {
		return &ValidationError{Field: "name", Reason: "field is required"}
	}
	if len(req.Document) == 0 && req.FilePath == "" {
		return &ValidationError{Field: "file", Reason: "field is required"}
	}
	if len(req.Document) > MaxDocumentSize {
		return &ValidationError{Field: "file", Reason: fmt.Sprintf("file size exceeds %d bytes", MaxDocumentSize)}
	}
	if req.Format == "" {
		return &ValidationError{Field: "format", Reason: "field is required"}
	}
	return nil
}

// Run executes one workflow session. It returns ErrWorkflowBusy when a
// session is already in flight. Cancelling ctx aborts the session, including
// any active polling; no timers survive the return.
func (w *Workflow) Run(ctx context.Context, req Request) (*Result, error) {
	if !w.busy.CompareAndSwap(false, true) {
		return nil, ErrWorkflowBusy
	}
	defer w.busy.Store(false)

	result, err := w.run(ctx, &req)
	if err != nil {
		w.setPhase(PhaseFailed, err.Error())
		return nil, err
	}
	w.setPhase(PhaseDone, "")
	return result, nil
}

func (w *Workflow) run(ctx context.Context, req *Request) (*Result, error) {
	if err := w.validate(req); err != nil {
		return nil, err
	}

	document := req.Document
	filename := req.Filename
	if len(document) == 0 {
		data, err := w.host.ReadFile(req.FilePath)
		if err != nil {
			return nil, &ValidationError{Field: "file", Reason: err.Error()}
		}
		if len(data) > MaxDocumentSize {
			return nil, &ValidationError{Field: "file", Reason: fmt.Sprintf("file size exceeds %d bytes", MaxDocumentSize)}
		}
		document = data
		if filename == "" {
			filename = filepath.Base(req.FilePath)
		}
	}
	if filename == "" {
		return nil, &ValidationError{Field: "file", Reason: "filename is required"}
	}

	w.setPhase(PhaseCreating, "creating book and bookflow")
	book, err := w.client.CreateBook(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if len(book.Bookflows) == 0 {
		return nil, &APIError{Kind: KindMalformed, Message: "created book has no bookflow"}
	}
	bookflow := book.Bookflows[0]

	if req.Metadata != (Metadata{}) {
		bookflow.Metadata = req.Metadata
		if err := bookflow.Save(ctx); err != nil {
			return nil, err
		}
	}

	// Applying a plan credit is best effort: the upload proceeds on the
	// free plan when it fails.
	if req.Credit != "" {
		if err := bookflow.ApplyCredit(ctx, req.Credit); err != nil {
			w.logger.Warn("failed to apply credit", "type", string(req.Credit), "error", err)
		}
	}

	w.setPhase(PhaseUploading, "uploading and analyzing document")
	if err := bookflow.SetDocument(ctx, filename, document, req.DocOptions); err != nil {
		return nil, err
	}

	w.setPhase(PhaseProcessing, "waiting for document analysis")
	if err := bookflow.WaitForAnalysis(ctx, w.poll); err != nil {
		return nil, err
	}

	w.setPhase(PhaseConvertReady, "analysis finished")
	w.setPhase(PhaseConverting, "requesting conversion to "+req.Format)
	if err := bookflow.Convert(ctx, req.Format, req.Style, req.Version); err != nil {
		return nil, err
	}

	w.setPhase(PhaseConversionPolling, "waiting for conversion")
	if err := bookflow.WaitForConversion(ctx, req.Format, req.Style, req.Version, w.poll); err != nil {
		return nil, err
	}

	w.setPhase(PhaseDownloading, "downloading converted file")
	converted, err := bookflow.ConvertDownload(ctx, req.Format, req.Style, req.Version)
	if err != nil {
		return nil, err
	}

	w.setPhase(PhasePlacing, "placing document")
	staged, err := w.host.StageFile(stagedName(req.Format), converted)
	if err != nil {
		return nil, err
	}

	tag := DocumentTag{
		BookID:     book.ID,
		BookflowID: bookflow.ID,
		Beta:       w.client.Beta(),
	}
	if err := w.host.PlaceDocument(ctx, staged, tag); err != nil {
		return nil, err
	}

	// The staged copy is scratch space once placement succeeded. A failed
	// removal leaks a temp file, nothing more.
	if err := w.host.Remove(staged); err != nil {
		w.logger.Warn("failed to remove staged file", "path", staged, "error", err)
	}

	return &Result{Book: book, Bookflow: bookflow, PlacedPath: staged}, nil
}

// Attach re-associates with the bookflow of the currently active host
// document, refreshed from the server. The second return is false when the
// active document carries no tag.
func (w *Workflow) Attach(ctx context.Context) (*Bookflow, bool, error) {
	tag, ok, err := w.host.DocumentTag(ctx)
	if err != nil || !ok {
		return nil, false, err
	}

	book, err := w.client.NewBook(tag.BookID)
	if err != nil {
		return nil, false, err
	}
	bookflow, err := w.client.NewBookflow(book, tag.BookflowID)
	if err != nil {
		return nil, false, err
	}
	if err := bookflow.Update(ctx); err != nil {
		return nil, false, err
	}
	return bookflow, true, nil
}

// stagedName produces a unique staging filename so concurrent or repeated
// downloads never collide.
func stagedName(format string) string {
	return "bookalope-" + uuid.NewString() + "." + format
}
