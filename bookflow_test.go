package bookalope

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

const (
	testBookID     = "aaaa0000aaaa0000aaaa0000aaaa0000"
	testBookflowID = "bbbb1111bbbb1111bbbb1111bbbb1111"
	testDownloadID = "cccc2222cccc2222cccc2222cccc2222"
)

// jsonHandler captures the request body into dst (when non-nil) and replies
// with the given JSON.
func jsonHandler(t *testing.T, dst *map[string]any, response string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if dst != nil {
			_ = json.NewDecoder(r.Body).Decode(dst)
		}
		w.Write([]byte(response))
	})
}

func testBookflow(t *testing.T, c *Client, step Step) *Bookflow {
	t.Helper()
	book, err := c.NewBook(testBookID)
	if err != nil {
		t.Fatalf("NewBook returned error: %v", err)
	}
	bookflow, err := c.NewBookflow(book, testBookflowID)
	if err != nil {
		t.Fatalf("NewBookflow returned error: %v", err)
	}
	bookflow.Step = step
	return bookflow
}

func TestSetDocument_RequiresFilesStep(t *testing.T) {
	var requests atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`{}`))
	}))

	bookflow := testBookflow(t, c, StepProcessing)
	err := bookflow.SetDocument(context.Background(), "ms.docx", []byte("data"), nil)
	if !errors.Is(err, ErrDocumentAlreadySet) {
		t.Fatalf("error = %v, want ErrDocumentAlreadySet", err)
	}
	if requests.Load() != 0 {
		t.Error("a request was sent despite the precondition failure")
	}
	if bookflow.Step != StepProcessing {
		t.Errorf("step = %q after failed SetDocument, want %q", bookflow.Step, StepProcessing)
	}
}

func TestSetDocument_TransitionsToProcessing(t *testing.T) {
	c := newTestClient(t, jsonHandler(t, nil, `{}`))

	bookflow := testBookflow(t, c, StepFiles)
	if err := bookflow.SetDocument(context.Background(), "ms.docx", []byte("data"), nil); err != nil {
		t.Fatalf("SetDocument returned error: %v", err)
	}
	if bookflow.Step != StepProcessing {
		t.Errorf("step = %q, want %q", bookflow.Step, StepProcessing)
	}
}

func TestConvert_IdempotentWhileProcessing(t *testing.T) {
	var requests atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprintf(w, `{"download_id":%q,"status":"processing"}`, testDownloadID)
	}))

	bookflow := testBookflow(t, c, StepConvert)
	ctx := context.Background()

	if err := bookflow.Convert(ctx, "epub", "default", VersionTest); err != nil {
		t.Fatalf("first Convert returned error: %v", err)
	}
	if err := bookflow.Convert(ctx, "epub", "default", VersionTest); err != nil {
		t.Fatalf("second Convert returned error: %v", err)
	}

	if got := requests.Load(); got != 1 {
		t.Errorf("server requests = %d, want 1", got)
	}

	conversion, ok := bookflow.Conversion("epub", "default", VersionTest)
	if !ok {
		t.Fatal("no conversion stored")
	}
	if conversion.DownloadID != testDownloadID {
		t.Errorf("DownloadID = %q, want %q", conversion.DownloadID, testDownloadID)
	}
	if conversion.Status != ConversionProcessing {
		t.Errorf("Status = %q, want %q", conversion.Status, ConversionProcessing)
	}
}

func TestConvert_OverwritesFailedConversion(t *testing.T) {
	var requests atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprintf(w, `{"download_id":"dl%d","status":"processing"}`, requests.Load())
	}))

	bookflow := testBookflow(t, c, StepConvert)
	ctx := context.Background()

	if err := bookflow.Convert(ctx, "epub", "default", VersionTest); err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}

	// Simulate the poll discovering a failed conversion.
	bookflow.mu.Lock()
	bookflow.conversions[newConversionKey("epub", "default", VersionTest)].Status = ConversionFailed
	bookflow.mu.Unlock()

	if err := bookflow.Convert(ctx, "epub", "default", VersionTest); err != nil {
		t.Fatalf("retry Convert returned error: %v", err)
	}

	if got := requests.Load(); got != 2 {
		t.Errorf("server requests = %d, want 2", got)
	}
	conversion, _ := bookflow.Conversion("epub", "default", VersionTest)
	if conversion.DownloadID != "dl2" {
		t.Errorf("DownloadID = %q, want the replacement entry dl2", conversion.DownloadID)
	}
	if conversion.Status != ConversionProcessing {
		t.Errorf("Status = %q, want %q", conversion.Status, ConversionProcessing)
	}
}

func TestConvertStatus_RequiresExistingConversion(t *testing.T) {
	c := newTestClient(t, jsonHandler(t, nil, `{}`))

	bookflow := testBookflow(t, c, StepConvert)
	_, err := bookflow.ConvertStatus(context.Background(), "epub", "default", VersionTest)
	if !errors.Is(err, ErrNotConverted) {
		t.Fatalf("error = %v, want ErrNotConverted", err)
	}
}

func TestConvertStatus_NormalizesLegacySpellings(t *testing.T) {
	statuses := []string{"ok", "na"}
	want := []ConversionStatus{ConversionAvailable, ConversionNone}

	for i, status := range statuses {
		t.Run(status, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "/convert") {
					fmt.Fprintf(w, `{"download_id":%q,"status":"processing"}`, testDownloadID)
					return
				}
				fmt.Fprintf(w, `{"status":%q}`, status)
			}))

			bookflow := testBookflow(t, c, StepConvert)
			ctx := context.Background()
			if err := bookflow.Convert(ctx, "epub", "default", VersionTest); err != nil {
				t.Fatalf("Convert returned error: %v", err)
			}

			got, err := bookflow.ConvertStatus(ctx, "epub", "default", VersionTest)
			if err != nil {
				t.Fatalf("ConvertStatus returned error: %v", err)
			}
			if got != want[i] {
				t.Errorf("status = %q, want %q", got, want[i])
			}
		})
	}
}

func TestConvertDownload_Preconditions(t *testing.T) {
	var requests atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/convert") {
			fmt.Fprintf(w, `{"download_id":%q,"status":"processing"}`, testDownloadID)
			return
		}
		requests.Add(1)
		w.Write([]byte("converted"))
	}))

	bookflow := testBookflow(t, c, StepConvert)
	ctx := context.Background()

	if _, err := bookflow.ConvertDownload(ctx, "epub", "default", VersionTest); !errors.Is(err, ErrNotConverted) {
		t.Fatalf("error = %v, want ErrNotConverted", err)
	}

	if err := bookflow.Convert(ctx, "epub", "default", VersionTest); err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if _, err := bookflow.ConvertDownload(ctx, "epub", "default", VersionTest); !errors.Is(err, ErrConversionNotReady) {
		t.Fatalf("error = %v, want ErrConversionNotReady", err)
	}
	if requests.Load() != 0 {
		t.Error("a download was attempted despite the precondition failure")
	}
}

func TestAddImage_RequiresConvertStep(t *testing.T) {
	c := newTestClient(t, jsonHandler(t, nil, `{}`))

	bookflow := testBookflow(t, c, StepProcessing)
	err := bookflow.AddImage(context.Background(), "cover-image", "cover.png", []byte{1})
	if !errors.Is(err, ErrImageStep) {
		t.Fatalf("error = %v, want ErrImageStep", err)
	}
}

func TestSave_OmitsEmptyMetadata(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, jsonHandler(t, &gotBody, `{}`))

	bookflow := testBookflow(t, c, StepConvert)
	bookflow.Name = "My Flow"
	bookflow.Metadata = Metadata{Title: "My Novel", Author: "Jane Doe"}

	if err := bookflow.Save(context.Background()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	want := map[string]any{"name": "My Flow", "title": "My Novel", "author": "Jane Doe"}
	if len(gotBody) != len(want) {
		t.Fatalf("body = %v, want exactly %v", gotBody, want)
	}
	for key, value := range want {
		if gotBody[key] != value {
			t.Errorf("body[%q] = %v, want %v", key, gotBody[key], value)
		}
	}
}

func TestUpdate_RefreshesFromServer(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"bookflow":{"id":%q,"name":"Renamed","step":"convert","title":"T","author":"A"}}`, testBookflowID)
	}))

	bookflow := testBookflow(t, c, StepProcessing)
	if err := bookflow.Update(context.Background()); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if bookflow.Step != StepConvert {
		t.Errorf("step = %q, want %q", bookflow.Step, StepConvert)
	}
	if bookflow.Name != "Renamed" {
		t.Errorf("name = %q, want Renamed", bookflow.Name)
	}
	if bookflow.Metadata.Title != "T" || bookflow.Metadata.Author != "A" {
		t.Errorf("metadata = %+v, want title T and author A", bookflow.Metadata)
	}
}

func TestNewBookflow_RejectsMalformedID(t *testing.T) {
	c := New(testToken)
	book, err := c.NewBook(testBookID)
	if err != nil {
		t.Fatalf("NewBook returned error: %v", err)
	}
	if _, err := c.NewBookflow(book, "nope"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("error = %v, want ErrMalformedToken", err)
	}
	if _, err := c.NewBook("nope"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("error = %v, want ErrMalformedToken", err)
	}
}

func TestCreateBook_ParsesBookflows(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"book":{"id":%q,"name":"My Novel","created":"2024-05-01T10:00:00","bookflows":[{"id":%q,"name":"Bookflow","step":"files"}]}}`,
			testBookID, testBookflowID)
	}))

	book, err := c.CreateBook(context.Background(), "My Novel")
	if err != nil {
		t.Fatalf("CreateBook returned error: %v", err)
	}
	if book.ID != testBookID {
		t.Errorf("book ID = %q, want %q", book.ID, testBookID)
	}
	if len(book.Bookflows) != 1 {
		t.Fatalf("bookflows = %d, want 1", len(book.Bookflows))
	}
	if book.Bookflows[0].Step != StepFiles {
		t.Errorf("bookflow step = %q, want %q", book.Bookflows[0].Step, StepFiles)
	}
	if book.Bookflows[0].Book() != book {
		t.Error("bookflow does not reference its book")
	}
	if book.Created.IsZero() {
		t.Error("created timestamp was not parsed")
	}
}

func TestWebURL(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := New(testToken, WithBaseURL(srv.URL))
	bookflow := testBookflow(t, c, StepConvert)

	want := srv.URL + "/bookflows/" + testBookflowID + "/convert"
	if got := bookflow.WebURL(); got != want {
		t.Errorf("WebURL() = %q, want %q", got, want)
	}
}
