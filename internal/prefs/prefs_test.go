package prefs

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/five82/backroom/internal/kv"
)

func TestLoad_EmptyStorageUsesDefaults(t *testing.T) {
	p := Load(kv.NewMemoryStorage(), nil).Get()
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
	if p.LastPage != defaultLastPage {
		t.Fatalf("LastPage = %q, want %q", p.LastPage, defaultLastPage)
	}
	if _, err := uuid.Parse(p.DeviceID); err != nil {
		t.Fatalf("DeviceID = %q, want a uuid: %v", p.DeviceID, err)
	}
}

func TestLoad_ReadsSavedValues(t *testing.T) {
	storage := kv.NewMemoryStorage()
	first := Load(storage, nil)
	first.SetTheme("Slate")
	first.SetLastPage("/items")

	second := Load(storage, nil).Get()
	if second.Theme != "Slate" {
		t.Fatalf("Theme = %q, want %q", second.Theme, "Slate")
	}
	if second.LastPage != "/items" {
		t.Fatalf("LastPage = %q, want %q", second.LastPage, "/items")
	}
	if second.DeviceID != first.Get().DeviceID {
		t.Fatalf("DeviceID changed across loads: %q vs %q", second.DeviceID, first.Get().DeviceID)
	}
}

func TestLoad_InvalidValuesFallBackToDefault(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty theme", "theme = \"\"\nlast_page = \"items\"\n"},
		{"invalid toml", "not valid toml {{{\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := kv.NewMemoryStorage()
			if err := storage.Set(StorageKey, tt.raw); err != nil {
				t.Fatalf("Set: %v", err)
			}
			var reported []error
			p := Load(storage, func(err error) { reported = append(reported, err) }).Get()
			if p.Theme != defaultTheme {
				t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
			}
			if p.LastPage != defaultLastPage {
				t.Fatalf("LastPage = %q, want %q", p.LastPage, defaultLastPage)
			}
			if tt.name == "invalid toml" && len(reported) == 0 {
				t.Fatal("decode failure should be reported")
			}
		})
	}
}

type failingStorage struct{ kv.Storage }

func (failingStorage) Set(string, string) error { return errors.New("disk full") }

func TestSetters_IgnoreInvalidInputAndReportWriteFailures(t *testing.T) {
	var reported []error
	st := Load(failingStorage{kv.NewMemoryStorage()}, func(err error) { reported = append(reported, err) })
	if len(reported) != 1 {
		t.Fatalf("reported = %v, want the device id save failure", reported)
	}

	st.SetTheme("  ")
	st.SetLastPage("relative")
	if len(reported) != 1 {
		t.Fatalf("invalid input should not write, reported = %v", reported)
	}

	st.SetTheme("Nord")
	if st.Get().Theme != "Nord" {
		t.Fatalf("Theme = %q, want in-memory update despite write failure", st.Get().Theme)
	}
	if len(reported) != 2 {
		t.Fatalf("reported = %d errors, want 2", len(reported))
	}
}
