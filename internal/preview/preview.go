// Package preview holds the image shown by the preview modal.
package preview

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"sync"

	"github.com/five82/backroom/internal/draft"
)

// DefaultAlt is the caption used when none is given.
const DefaultAlt = "Preview"

// Blob is an in-memory image, e.g. a freshly picked upload.
type Blob struct {
	Data     []byte
	MimeType string
}

// Source is either a remote URL or a Blob. The zero value is empty.
type Source struct {
	URL  string
	Blob *Blob
}

// URLSource builds a remote source.
func URLSource(url string) Source { return Source{URL: url} }

// BlobSource builds an in-memory source.
func BlobSource(data []byte, mimeType string) Source {
	return Source{Blob: &Blob{Data: data, MimeType: mimeType}}
}

// IsEmpty reports whether nothing is being previewed.
func (s Source) IsEmpty() bool { return s.URL == "" && s.Blob == nil }

// State is the preview state. It is never persisted.
type State struct {
	Source   Source
	Alt      string
	MimeType string
}

// Store wraps a transient draft store.
type Store struct {
	s *draft.Store[State]
}

// New returns an empty preview store.
func New() *Store {
	return &Store{s: draft.New(State{Alt: DefaultAlt})}
}

func (st *Store) State() State { return st.s.Get() }

func (st *Store) Subscribe(fn func(State)) func() { return st.s.Subscribe(fn) }

// Show sets the preview source. An empty alt falls back to DefaultAlt; an
// empty mimeType is taken from the blob when there is one.
func (st *Store) Show(src Source, alt, mimeType string) {
	if alt == "" {
		alt = DefaultAlt
	}
	if mimeType == "" && src.Blob != nil {
		mimeType = src.Blob.MimeType
	}
	st.s.Update(func(State) State {
		return State{Source: src, Alt: alt, MimeType: mimeType}
	})
}

// Reset clears the preview.
func (st *Store) Reset() {
	st.s.Update(func(State) State { return State{Alt: DefaultAlt} })
}

// Handle is a revocable display reference to a Blob: a temp file an external
// viewer can open. Whoever creates a Handle must Release it.
type Handle struct {
	path string
	once sync.Once
	err  error
}

// NewHandle writes blob to a temp file.
func NewHandle(blob *Blob) (*Handle, error) {
	if blob == nil {
		return nil, errors.New("no blob to display")
	}
	ext := ""
	if exts, _ := mime.ExtensionsByType(blob.MimeType); len(exts) > 0 {
		ext = exts[0]
	}
	f, err := os.CreateTemp("", "backroom-preview-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create preview file: %w", err)
	}
	if _, err := f.Write(blob.Data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("write preview file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("close preview file: %w", err)
	}
	return &Handle{path: f.Name()}, nil
}

// Path is the file to hand to a viewer; empty after Release.
func (h *Handle) Path() string {
	if h == nil {
		return ""
	}
	return h.path
}

// Release removes the backing file. Safe to call more than once.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		if err := os.Remove(h.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			h.err = fmt.Errorf("remove preview file: %w", err)
		}
		h.path = ""
	})
	return h.err
}
