package bookalope

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DocumentTag identifies the bookflow a placed document came from, so a
// later session can re-associate with it. The JSON field names match the
// private data the panel stores inside a host document.
type DocumentTag struct {
	BookID     string `json:"book-id"`
	BookflowID string `json:"bookflow-id"`
	Beta       bool   `json:"beta"`
}

// Host is the collaborator that performs everything the workflow needs from
// the hosting application: local file staging, placing a converted document,
// and reading back the tag of a previously placed one. Implementations wrap
// the host application's scripting surface; DirHost is a plain-filesystem
// implementation for CLI use.
type Host interface {
	// ReadFile loads the manuscript bytes from a local path.
	ReadFile(path string) ([]byte, error)
	// StageFile persists downloaded bytes under a unique name and returns
	// the staged path.
	StageFile(name string, data []byte) (string, error)
	// PromptSavePath asks the user where to save a file, given a suggested
	// filename.
	PromptSavePath(suggested string) (string, error)
	// Remove deletes a staged file.
	Remove(path string) error
	// PlaceDocument hands the staged file over to the host application,
	// tagging the resulting document with the originating bookflow.
	PlaceDocument(ctx context.Context, path string, tag DocumentTag) error
	// DocumentTag reads the tag back from the currently active host
	// document. The second return is false when the active document was
	// not placed by us.
	DocumentTag(ctx context.Context) (DocumentTag, bool, error)
	// OpenURL opens a link in the system browser.
	OpenURL(url string) error
}

// DirHost implements Host against a staging directory. Placement copies the
// staged file to OutPath and records the tag in a sidecar file next to it;
// there is no interactive prompt, so PromptSavePath resolves against OutPath.
type DirHost struct {
	// Dir is the staging directory. Empty means the system temp directory.
	Dir string
	// OutPath is where placed documents end up. When empty, placement
	// falls back to the suggested filename in the current directory.
	OutPath string
	// Out receives URLs from OpenURL, one per line. Defaults to
	// os.Stdout.
	Out io.Writer
}

var _ Host = (*DirHost)(nil)

func (h *DirHost) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

func (h *DirHost) StageFile(name string, data []byte) (string, error) {
	dir := h.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("stage file: %w", err)
	}
	return path, nil
}

func (h *DirHost) PromptSavePath(suggested string) (string, error) {
	if h.OutPath != "" {
		return h.OutPath, nil
	}
	return suggested, nil
}

func (h *DirHost) Remove(path string) error {
	return os.Remove(path)
}

// PlaceDocument copies the staged file to the prompted destination and
// writes the tag to a sidecar JSON file, the CLI stand-in for the private
// data a panel stores inside the host document.
func (h *DirHost) PlaceDocument(ctx context.Context, path string, tag DocumentTag) error {
	_ = ctx

	dest, err := h.PromptSavePath(filepath.Base(path))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read staged file: %w", err)
	}

	if dir := filepath.Dir(dest); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("place document: %w", err)
	}

	sidecar, err := json.Marshal(tag)
	if err != nil {
		return fmt.Errorf("marshal document tag: %w", err)
	}
	if err := os.WriteFile(sidecarPath(dest), sidecar, 0o644); err != nil {
		return fmt.Errorf("write document tag: %w", err)
	}
	return nil
}

func (h *DirHost) DocumentTag(ctx context.Context) (DocumentTag, bool, error) {
	_ = ctx

	if h.OutPath == "" {
		return DocumentTag{}, false, nil
	}

	data, err := os.ReadFile(sidecarPath(h.OutPath))
	if err != nil {
		if os.IsNotExist(err) {
			return DocumentTag{}, false, nil
		}
		return DocumentTag{}, false, fmt.Errorf("read document tag: %w", err)
	}

	var tag DocumentTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return DocumentTag{}, false, fmt.Errorf("decode document tag: %w", err)
	}
	return tag, true, nil
}

func (h *DirHost) OpenURL(url string) error {
	out := h.Out
	if out == nil {
		out = os.Stdout
	}
	_, err := fmt.Fprintln(out, url)
	return err
}

func sidecarPath(path string) string {
	return path + ".bookalope.json"
}
