package ui

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/backroom/internal/api"
	"github.com/five82/backroom/internal/preview"
)

type assetMsg struct {
	url  string
	alt  string
	data []byte
	mime string
	err  error
}

func fetchAssetCmd(ctx context.Context, backend api.Backend, url, alt string) tea.Cmd {
	return func() tea.Msg {
		data, mime, err := backend.FetchAsset(ctx, url)
		return assetMsg{url: url, alt: alt, data: data, mime: mime, err: err}
	}
}

// previewModal shows the preview store's image. It owns the display handle
// derived from the current blob.
type previewModal struct {
	store  *preview.Store
	handle *preview.Handle
	blob   *preview.Blob // blob the handle was derived from
	err    error
}

func newPreviewModal(store *preview.Store) *previewModal {
	return &previewModal{store: store}
}

// sync derives a handle for the current blob, releasing a superseded one.
func (p *previewModal) sync() {
	src := p.store.State().Source
	if src.Blob == p.blob {
		return
	}
	p.release()
	if src.Blob == nil {
		return
	}
	h, err := preview.NewHandle(src.Blob)
	if err != nil {
		p.err = err
		return
	}
	p.handle, p.blob = h, src.Blob
}

func (p *previewModal) release() {
	if p.handle != nil {
		if err := p.handle.Release(); err != nil {
			p.err = err
		}
	}
	p.handle, p.blob = nil, nil
}

// close releases the handle and clears the store.
func (p *previewModal) close() {
	p.release()
	p.store.Reset()
}

// Update implements Modal.
func (p *previewModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case assetMsg:
		if cur := p.store.State(); cur.Source.URL != msg.url {
			return p, nil, false
		}
		if msg.err != nil {
			p.err = msg.err
			return p, nil, false
		}
		p.store.Show(preview.BlobSource(msg.data, msg.mime), msg.alt, msg.mime)
		p.sync()
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "v":
			p.close()
			return p, nil, true
		case "o":
			if path := p.handle.Path(); path != "" {
				if err := openExternal(path); err != nil {
					p.err = err
				}
			}
		}
	}
	return p, nil, false
}

func openExternal(path string) error {
	name := "xdg-open"
	if runtime.GOOS == "darwin" {
		name = "open"
	}
	if err := exec.Command(name, path).Start(); err != nil {
		return fmt.Errorf("open viewer: %w", err)
	}
	return nil
}

// View implements Modal.
func (p *previewModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	st := p.store.State()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(st.Alt))
	b.WriteString("\n\n")
	switch {
	case st.Source.Blob != nil:
		blob := st.Source.Blob
		info := fmt.Sprintf("%s · %.1f KB", st.MimeType, float64(len(blob.Data))/1024)
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(blob.Data)); err == nil {
			info += fmt.Sprintf(" · %dx%d", cfg.Width, cfg.Height)
		}
		b.WriteString(styles.MutedText.Render(info))
		if path := p.handle.Path(); path != "" {
			b.WriteString("\n")
			b.WriteString(styles.AccentText.Render(path))
		}
	case st.Source.URL != "":
		b.WriteString(styles.MutedText.Render(st.Source.URL))
		b.WriteString("\n")
		b.WriteString(styles.InfoText.Render("Downloading..."))
	default:
		b.WriteString(styles.FaintText.Render("No image"))
	}
	b.WriteString("\n\n")
	if p.err != nil {
		b.WriteString(styles.DangerText.Render(p.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(styles.FaintText.Render("o open externally · esc close"))

	return placeModal(theme, width, height, 64, b.String())
}
