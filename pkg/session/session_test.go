package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marici/proofbench/pkg/align"
	"github.com/marici/proofbench/pkg/editor"
	"github.com/marici/proofbench/pkg/markup"
)

const testContent = "<page>\n<p>dharma kshetre</p>\n</page>"

const testBoxes = "10\t100\t100\t130\tdharma\n110\t102\t200\t130\tkshetre\n"

type fakeServer struct {
	mux               *http.ServeMux
	saveFunc          func(w http.ResponseWriter, r *http.Request)
	historyFunc       func(w http.ResponseWriter, r *http.Request)
	autoStructureFunc func(w http.ResponseWriter, r *http.Request)
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{mux: http.NewServeMux()}
	fs.mux.HandleFunc("GET /api/proofing/test/1/page-data", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PageData{
			ProjectSlug:      "test",
			PageSlug:         "1",
			NextSlug:         "2",
			NumPages:         2,
			Status:           StatusR0,
			Version:          3,
			Content:          testContent,
			OCRBoundingBoxes: testBoxes,
		})
	})
	fs.mux.HandleFunc("GET /api/proofing/test/2/page-data", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PageData{ProjectSlug: "test", PageSlug: "2", Version: 1})
	})
	fs.mux.HandleFunc("GET /api/ocr/test/1/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("new text"))
	})
	fs.mux.HandleFunc("GET /api/proofing/test/1/history", func(w http.ResponseWriter, r *http.Request) {
		if fs.historyFunc != nil {
			fs.historyFunc(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string][]Revision{
			"revisions": {
				{ID: 2, Author: "akprasad", Summary: "fixed typos", Status: "reviewed-1"},
				{ID: 1, Author: "akprasad", Summary: "initial", Status: "reviewed-0"},
			},
		})
	})
	fs.mux.HandleFunc("POST /api/proofing/auto-structure", func(w http.ResponseWriter, r *http.Request) {
		if fs.autoStructureFunc != nil {
			fs.autoStructureFunc(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"content": testContent})
	})
	fs.mux.HandleFunc("POST /api/proofing/test/1/save", func(w http.ResponseWriter, r *http.Request) {
		if fs.saveFunc != nil {
			fs.saveFunc(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "message": "Saved.", "new_version": 4, "new_status": "reviewed-1"})
	})
	srv := httptest.NewServer(fs.mux)
	t.Cleanup(srv.Close)
	return fs, srv
}

func newTestController(t *testing.T, srv *httptest.Server) *Controller {
	t.Helper()
	schema := markup.DefaultSchema()
	client := NewClient(srv.URL, nil)
	c := NewController(schema, client, nil, nil)
	if err := c.LoadPage(context.Background(), "test", "1"); err != nil {
		t.Fatalf("LoadPage: %v", err)
	}
	return c
}

func TestLoadPage(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestController(t, srv)

	if c.Mode() != ModeVisual {
		t.Errorf("mode = %q, want visual", c.Mode())
	}
	if c.Dirty() {
		t.Error("freshly loaded page should not be dirty")
	}
	if got := c.Content(); got != testContent {
		t.Errorf("Content() = %q, want %q", got, testContent)
	}
	if c.Status() != StatusR0 {
		t.Errorf("status = %q", c.Status())
	}
}

func TestRunOCRReplacesContentExactly(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestController(t, srv)

	if err := c.RunOCR(context.Background()); err != nil {
		t.Fatalf("RunOCR: %v", err)
	}
	// OCR output is plain text, not markup, so the session falls back to
	// raw editing rather than losing or altering the text.
	if got := c.Content(); got != "new text" {
		t.Errorf("Content() = %q, want %q", got, "new text")
	}
	if c.Mode() != ModeXML {
		t.Errorf("mode = %q, want xml fallback for unparseable content", c.Mode())
	}
	if !c.Dirty() {
		t.Error("replacing content should mark the page dirty")
	}
}

func TestSaveSuccess(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestController(t, srv)
	c.Editor().InsertText("x")

	if err := c.Save(context.Background(), "fixed typos", ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if c.Dirty() {
		t.Error("save should clear the dirty flag")
	}
	if c.Page().Version != 4 {
		t.Errorf("version = %d, want 4", c.Page().Version)
	}
	if c.Status() != StatusR1 {
		t.Errorf("status = %q, want reviewed-1", c.Status())
	}
}

func TestSaveConflictKeepsContent(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.saveFunc = func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":               false,
			"message":          "Someone else edited this page.",
			"conflict_content": "<page>\n<p>their text</p>\n</page>",
			"new_version":      7,
		})
	}
	c := newTestController(t, srv)
	var banners []string
	c.OnBanner = func(msg string) { banners = append(banners, msg) }
	c.Editor().InsertText("mine ")
	before := c.Content()

	err := c.Save(context.Background(), "", "")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Save error = %v, want *ConflictError", err)
	}
	if conflict.NewVersion != 7 {
		t.Errorf("NewVersion = %d, want 7", conflict.NewVersion)
	}
	if !strings.Contains(conflict.ConflictContent, "their text") {
		t.Errorf("ConflictContent = %q", conflict.ConflictContent)
	}
	if got := c.Content(); got != before {
		t.Errorf("conflict must not change local content: %q != %q", got, before)
	}
	if !c.Dirty() {
		t.Error("failed save should leave the page dirty")
	}
	if len(banners) == 0 || !strings.Contains(banners[0], "Someone else") {
		t.Errorf("banners = %v", banners)
	}
}

func TestSaveSessionExpired(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.saveFunc = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}
	c := newTestController(t, srv)
	c.Editor().InsertText("x")
	before := c.Content()

	err := c.Save(context.Background(), "", "")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Save error = %v, want ErrSessionExpired", err)
	}
	if got := c.Content(); got != before {
		t.Error("expiry must not change local content")
	}
}

func TestSwitchViewModeRoundTrip(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestController(t, srv)

	if err := c.SwitchViewMode(ModeXML); err != nil {
		t.Fatalf("to xml: %v", err)
	}
	if c.RawView() == nil || c.RawView().Text() != testContent {
		t.Fatal("raw view should hold the serialized markup")
	}
	if err := c.SwitchViewMode(ModeVisual); err != nil {
		t.Fatalf("to visual: %v", err)
	}
	if c.Editor() == nil {
		t.Fatal("visual editor missing after switch back")
	}
	if got := c.Content(); got != testContent {
		t.Errorf("round-trip changed content: %q", got)
	}
}

func TestSwitchViewModeParseFailure(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestController(t, srv)
	var banners []string
	c.OnBanner = func(msg string) { banners = append(banners, msg) }

	if err := c.SwitchViewMode(ModeXML); err != nil {
		t.Fatal(err)
	}
	broken := "<page>\n<p>unclosed\n</page>"
	c.RawView().SetText(broken)

	err := c.SwitchViewMode(ModeVisual)
	var perr *markup.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *markup.ParseError", err)
	}
	if c.Mode() != ModeXML {
		t.Error("failed switch must stay in xml mode")
	}
	if got := c.RawView().Text(); got != broken {
		t.Errorf("raw text changed: %q", got)
	}
	if len(banners) == 0 || !strings.Contains(banners[0], "Invalid XML") {
		t.Errorf("banners = %v", banners)
	}
}

func TestNavigateDirtyRequiresConfirmation(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestController(t, srv)
	c.Editor().InsertText("x")

	if err := c.Navigate(context.Background(), "2"); !errors.Is(err, ErrNavigationCancelled) {
		t.Fatalf("Navigate = %v, want ErrNavigationCancelled", err)
	}
	if c.Page().PageSlug != "1" {
		t.Error("cancelled navigation must not change pages")
	}

	c.ConfirmDiscard = func() bool { return true }
	if err := c.Navigate(context.Background(), "2"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if c.Page().PageSlug != "2" {
		t.Errorf("page = %q, want 2", c.Page().PageSlug)
	}
	if c.Dirty() {
		t.Error("new page should start clean")
	}
}

func TestHistory(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestController(t, srv)

	revisions, err := c.History(context.Background())
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(revisions) != 2 || revisions[0].Summary != "fixed typos" {
		t.Errorf("revisions = %+v", revisions)
	}
}

func TestUndoRedoReplacement(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestController(t, srv)

	replacement := "<page>\n<p>structured</p>\n</page>"
	c.SetContent(replacement)
	if got := c.Content(); got != replacement {
		t.Fatalf("Content() = %q", got)
	}

	c.Undo()
	if got := c.Content(); got != testContent {
		t.Errorf("undo: Content() = %q, want original", got)
	}
	c.Redo()
	if got := c.Content(); got != replacement {
		t.Errorf("redo: Content() = %q, want replacement", got)
	}
}

func TestSelectionChangedHighlightsAndPans(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestController(t, srv)
	c.SetImageSize(1000)
	c.SetViewport(align.Viewport{X: 0.5, Y: 0.5, W: 0.4, H: 0.4})

	c.Editor().SetCursor(editor.Cursor{Block: 0, Offset: 2})
	c.SelectionChanged()

	box := c.Overlay().Box
	if box == nil {
		t.Fatal("expected an overlay highlight")
	}
	if box.X1 != 0.01 || box.Y1 != 0.1 {
		t.Errorf("overlay box = %+v", box)
	}
	v := c.Viewport()
	if v.X != 0.01 || v.Y != 0.1 {
		t.Errorf("viewport should pan to the highlight, got %+v", v)
	}
}

func TestSelectionChangedTrackingOff(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestController(t, srv)
	c.SetImageSize(1000)
	s := c.Settings()
	s.Tracking = false
	if err := c.UpdateSettings(s); err != nil {
		t.Fatal(err)
	}
	before := align.Viewport{X: 0.5, Y: 0.5, W: 0.4, H: 0.4}
	c.SetViewport(before)

	c.Editor().SetCursor(editor.Cursor{Block: 0, Offset: 2})
	c.SelectionChanged()
	if c.Overlay().Box == nil {
		t.Fatal("expected a highlight")
	}
	if c.Viewport() != before {
		t.Errorf("tracking off must not pan, got %+v", c.Viewport())
	}
}

func TestSelectionChangedWithoutBoxes(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestController(t, srv)
	c.SetImageSize(1000)
	c.installBoxes("")

	c.Editor().SetCursor(editor.Cursor{Block: 0, Offset: 0})
	c.SelectionChanged()
	if c.Overlay().Box != nil {
		t.Error("no boxes, no highlight")
	}
}

func TestAutoStructureRefusesDuplicateTrigger(t *testing.T) {
	fs, srv := newFakeServer(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	fs.autoStructureFunc = func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		json.NewEncoder(w).Encode(map[string]string{"content": testContent})
	}
	c := newTestController(t, srv)

	done := make(chan error, 1)
	go func() { done <- c.AutoStructure(context.Background(), false, false, false) }()
	<-entered

	if err := c.AutoStructure(context.Background(), false, false, false); !errors.Is(err, ErrBusy) {
		t.Errorf("duplicate trigger = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first trigger: %v", err)
	}
}

func TestHistoryRefusesDuplicateTrigger(t *testing.T) {
	fs, srv := newFakeServer(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	fs.historyFunc = func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		json.NewEncoder(w).Encode(map[string][]Revision{"revisions": {}})
	}
	c := newTestController(t, srv)

	done := make(chan error, 1)
	go func() {
		_, err := c.History(context.Background())
		done <- err
	}()
	<-entered

	if _, err := c.History(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("duplicate trigger = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first trigger: %v", err)
	}
}

func TestSettingsStoreDefaults(t *testing.T) {
	store := &SettingsStore{Path: filepath.Join(t.TempDir(), "missing.json")}
	got := store.Load()
	if got != DefaultSettings() {
		t.Errorf("missing file: %+v", got)
	}
}

func TestSettingsStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := &SettingsStore{Path: path}
	if got := store.Load(); got != DefaultSettings() {
		t.Errorf("corrupt file: %+v", got)
	}
}

func TestSettingsStoreRoundTripPreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"other-tool": {"keep": true}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	store := &SettingsStore{Path: path}

	s := DefaultSettings()
	s.TextZoom = 1.5
	s.ViewMode = ModeXML
	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := store.Load()
	if got.TextZoom != 1.5 || got.ViewMode != ModeXML {
		t.Errorf("reloaded = %+v", got)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "other-tool") {
		t.Error("save dropped unrelated keys")
	}
}
