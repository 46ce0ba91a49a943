// Package session coordinates one proofing session: it loads page data from
// the server, owns the active editor (visual or raw XML), tracks unsaved
// changes, pushes cursor context to the bounding-box aligner, and persists
// editor preferences. All server failures surface as typed errors; editor
// content is never discarded on failure.
package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/marici/proofbench/pkg/align"
	"github.com/marici/proofbench/pkg/editor"
	"github.com/marici/proofbench/pkg/markup"
	"github.com/marici/proofbench/pkg/ocr"
)

// ViewMode selects how page content is edited.
type ViewMode string

const (
	// ModeVisual edits the parsed block structure.
	ModeVisual ViewMode = "visual"
	// ModeXML edits the markup source directly.
	ModeXML ViewMode = "xml"
)

// Controller drives a proofing session for one page at a time.
type Controller struct {
	schema   *markup.Schema
	client   *Client
	store    *SettingsStore
	settings Settings
	logger   *slog.Logger

	project string
	page    *PageData
	status  Status

	mode ViewMode
	ed   *editor.Editor
	raw  *editor.RawView

	dirty bool
	// inFlight disables duplicate triggers of the same server operation.
	inFlight map[string]bool

	// fetchToken invalidates responses from superseded page fetches.
	fetchToken uuid.UUID

	aligner    *align.Aligner
	overlay    align.Overlay
	viewport   align.Viewport
	imageWidth float64

	undo []string
	redo []string

	// OnBanner receives user-facing notices (warnings, conflict messages).
	OnBanner func(string)
	// ConfirmDiscard is consulted before navigating away with unsaved
	// changes. A nil hook refuses navigation.
	ConfirmDiscard func() bool
	// Transliterate, when set, converts display text between scripts using
	// the session's fromScript/toScript settings. Stored content is always
	// the source script; this is a view-only transform.
	Transliterate func(text, from, to string) string
}

// NewController builds a session controller. The settings store may be nil,
// in which case defaults are used and preference changes are not persisted.
func NewController(schema *markup.Schema, client *Client, store *SettingsStore, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	settings := DefaultSettings()
	if store != nil {
		settings = store.Load()
	}
	mode := settings.ViewMode
	if mode != ModeXML {
		mode = ModeVisual
	}
	return &Controller{
		schema:   schema,
		client:   client,
		store:    store,
		settings: settings,
		logger:   logger,
		mode:     mode,
		inFlight: make(map[string]bool),
		viewport: align.Viewport{W: 1, H: 1},
	}
}

// Settings returns the active editor preferences.
func (c *Controller) Settings() Settings { return c.settings }

// UpdateSettings applies and persists new preferences.
func (c *Controller) UpdateSettings(s Settings) error {
	c.settings = s
	if c.ed != nil {
		c.ed.NormalizeNFC = s.NormalizeNFC
	}
	if c.store == nil {
		return nil
	}
	return c.store.Save(s)
}

// Mode returns the active view mode.
func (c *Controller) Mode() ViewMode { return c.mode }

// Page returns the loaded page data, or nil before the first load.
func (c *Controller) Page() *PageData { return c.page }

// Dirty reports whether there are unsaved changes.
func (c *Controller) Dirty() bool { return c.dirty }

// Status returns the page's pending review status.
func (c *Controller) Status() Status { return c.status }

// SetStatus stages a new review status for the next save.
func (c *Controller) SetStatus(s Status) {
	if s == c.status {
		return
	}
	c.status = s
	c.dirty = true
}

// Editor returns the structural editor, valid only in visual mode.
func (c *Controller) Editor() *editor.Editor { return c.ed }

// RawView returns the raw markup view, valid only in xml mode.
func (c *Controller) RawView() *editor.RawView { return c.raw }

// Overlay returns the current image highlight.
func (c *Controller) Overlay() *align.Overlay { return &c.overlay }

// Viewport returns the visible image window.
func (c *Controller) Viewport() align.Viewport { return c.viewport }

// SetViewport records the visible image window after user scrolling.
func (c *Controller) SetViewport(v align.Viewport) { c.viewport = v }

// SetImageSize records the page image's pixel width, the divisor for
// normalized overlay coordinates.
func (c *Controller) SetImageSize(width float64) { c.imageWidth = width }

func (c *Controller) banner(msg string) {
	if c.OnBanner != nil {
		c.OnBanner(msg)
	}
}

// begin marks a server operation as in flight. It reports false when the
// same operation is already running.
func (c *Controller) begin(op string) bool {
	if c.inFlight[op] {
		return false
	}
	c.inFlight[op] = true
	return true
}

func (c *Controller) end(op string) { delete(c.inFlight, op) }

// LoadPage fetches and installs a page. A load superseded by a newer one is
// discarded silently.
func (c *Controller) LoadPage(ctx context.Context, project, page string) error {
	token := uuid.New()
	c.fetchToken = token

	data, err := c.client.PageData(ctx, project, page)
	if err != nil {
		c.logger.Error("page load failed", "project", project, "page", page, "error", err)
		return err
	}
	if c.fetchToken != token {
		c.logger.Debug("discarding stale page fetch", "page", page)
		return nil
	}

	c.project = project
	c.page = data
	c.status = data.Status
	c.dirty = false
	c.undo = nil
	c.redo = nil
	c.overlay.Clear()
	c.installContent(data.Content)
	c.installBoxes(data.OCRBoundingBoxes)
	c.logger.Info("page loaded", "project", project, "page", page, "version", data.Version)
	return nil
}

// Navigate moves to another page of the same project. Unsaved changes
// require confirmation; a refusal returns ErrNavigationCancelled with the
// current page untouched.
func (c *Controller) Navigate(ctx context.Context, page string) error {
	if c.dirty {
		if c.ConfirmDiscard == nil || !c.ConfirmDiscard() {
			return ErrNavigationCancelled
		}
	}
	return c.LoadPage(ctx, c.project, page)
}

// installContent sets up the editor for the given markup in the current
// mode. Markup the parser rejects forces xml mode so no text is lost.
func (c *Controller) installContent(content string) {
	if c.mode == ModeVisual {
		ed, err := editor.New(c.schema, content)
		if err == nil {
			c.installEditor(ed)
			return
		}
		c.mode = ModeXML
		c.banner(err.Error())
		c.logger.Warn("content is not valid markup; editing as raw XML", "error", err)
	}
	c.ed = nil
	c.raw = editor.NewRawView(content)
	c.raw.OnChange(c.markDirty)
}

func (c *Controller) installEditor(ed *editor.Editor) {
	ed.NormalizeNFC = c.settings.NormalizeNFC
	ed.OnChange(c.markDirty)
	ed.OnWarn(c.banner)
	c.ed = ed
	c.raw = nil
}

func (c *Controller) installBoxes(tsv string) {
	boxes := ocr.ParseTSV(tsv)
	if len(boxes) == 0 {
		c.aligner = nil
		return
	}
	c.aligner = align.New(boxes, align.DefaultConfig())
}

func (c *Controller) markDirty() { c.dirty = true }

// Content returns the page markup as currently edited, whichever mode is
// active.
func (c *Controller) Content() string {
	switch {
	case c.mode == ModeXML && c.raw != nil:
		return c.raw.Text()
	case c.ed != nil:
		return c.ed.Markup()
	case c.page != nil:
		return c.page.Content
	}
	return ""
}

// SetContent replaces the page content wholesale (OCR results, structuring
// output, conflict resolution). The previous content goes on the undo stack.
// Replacement text that does not parse switches the session to xml mode so
// the text survives verbatim.
func (c *Controller) SetContent(text string) {
	c.pushUndo()
	c.installContent(text)
	c.dirty = true
}

func (c *Controller) pushUndo() {
	c.undo = append(c.undo, c.Content())
	c.redo = nil
}

// Undo reverts the most recent wholesale replacement. In xml mode the raw
// view's own character-level undo takes precedence.
func (c *Controller) Undo() {
	if c.mode == ModeXML && c.raw != nil && c.raw.Undo() {
		c.dirty = true
		return
	}
	if len(c.undo) == 0 {
		return
	}
	current := c.Content()
	last := c.undo[len(c.undo)-1]
	c.undo = c.undo[:len(c.undo)-1]
	c.redo = append(c.redo, current)
	c.installContent(last)
	c.dirty = true
}

// Redo re-applies a reverted replacement.
func (c *Controller) Redo() {
	if c.mode == ModeXML && c.raw != nil && c.raw.Redo() {
		c.dirty = true
		return
	}
	if len(c.redo) == 0 {
		return
	}
	current := c.Content()
	next := c.redo[len(c.redo)-1]
	c.redo = c.redo[:len(c.redo)-1]
	c.undo = append(c.undo, current)
	c.installContent(next)
	c.dirty = true
}

// SwitchViewMode changes between visual and xml editing. Switching to visual
// parses the raw text; markup the parser rejects keeps the session in xml
// mode, shows the parse error, and returns it. The raw text is untouched.
func (c *Controller) SwitchViewMode(mode ViewMode) error {
	if mode == c.mode {
		return nil
	}
	switch mode {
	case ModeXML:
		c.raw = editor.NewRawView(c.Content())
		c.raw.OnChange(c.markDirty)
		c.ed = nil
		c.mode = ModeXML
	case ModeVisual:
		text := ""
		if c.raw != nil {
			text = c.raw.Text()
		}
		ed, err := editor.New(c.schema, text)
		if err != nil {
			c.banner(err.Error())
			return err
		}
		c.installEditor(ed)
		c.mode = ModeVisual
	}
	c.settings.ViewMode = c.mode
	if c.store != nil {
		if err := c.store.Save(c.settings); err != nil {
			c.logger.Warn("failed to persist settings", "error", err)
		}
	}
	return nil
}

// Save submits the current content under the loaded version. A second save
// while one is in flight returns ErrBusy. A version conflict returns the
// *ConflictError with local content untouched; session expiry returns
// ErrSessionExpired, also keeping local content.
func (c *Controller) Save(ctx context.Context, summary, explanation string) error {
	if c.page == nil {
		return errors.New("no page loaded")
	}
	if !c.begin("save") {
		return ErrBusy
	}
	defer c.end("save")

	result, err := c.client.Save(ctx, c.project, c.page.PageSlug, SaveRequest{
		Content:     c.Content(),
		Version:     c.page.Version,
		Status:      c.status,
		Summary:     summary,
		Explanation: explanation,
	})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			c.banner(conflict.Message)
			c.logger.Warn("save conflict", "page", c.page.PageSlug, "new_version", conflict.NewVersion)
		} else {
			c.logger.Error("save failed", "page", c.page.PageSlug, "error", err)
		}
		return err
	}
	if !result.OK {
		c.banner(result.Message)
		return errors.New(result.Message)
	}
	c.page.Version = result.NewVersion
	if result.NewStatus != "" {
		c.status = result.NewStatus
		c.page.Status = result.NewStatus
	}
	c.dirty = false
	c.logger.Info("page saved", "page", c.page.PageSlug, "version", c.page.Version)
	return nil
}

// RunOCR replaces the page content with the server's OCR output.
func (c *Controller) RunOCR(ctx context.Context) error {
	if c.page == nil {
		return errors.New("no page loaded")
	}
	if !c.begin("ocr") {
		return ErrBusy
	}
	defer c.end("ocr")
	text, err := c.client.OCR(ctx, c.project, c.page.PageSlug)
	if err != nil {
		c.logger.Error("ocr failed", "page", c.page.PageSlug, "error", err)
		return err
	}
	c.SetContent(text)
	return nil
}

// RunLLMStructuring replaces the page content with the LLM-structured form.
func (c *Controller) RunLLMStructuring(ctx context.Context) error {
	if c.page == nil {
		return errors.New("no page loaded")
	}
	if !c.begin("structuring") {
		return ErrBusy
	}
	defer c.end("structuring")
	text, err := c.client.LLMStructure(ctx, c.project, c.page.PageSlug, c.Content())
	if err != nil {
		return err
	}
	c.SetContent(text)
	return nil
}

// RunStructuring replaces the page content with the rule-structured form.
func (c *Controller) RunStructuring(ctx context.Context) error {
	if c.page == nil {
		return errors.New("no page loaded")
	}
	if !c.begin("structuring") {
		return ErrBusy
	}
	defer c.end("structuring")
	text, err := c.client.Structure(ctx, c.project, c.page.PageSlug, c.Content())
	if err != nil {
		return err
	}
	c.SetContent(text)
	return nil
}

// AutoStructure replaces the page content with the heuristic-structured
// form, optionally matching drama annotations.
func (c *Controller) AutoStructure(ctx context.Context, stage, speaker, chaya bool) error {
	if !c.begin("auto-structure") {
		return ErrBusy
	}
	defer c.end("auto-structure")
	text, err := c.client.AutoStructure(ctx, AutoStructureRequest{
		Content:      c.Content(),
		MatchStage:   stage,
		MatchSpeaker: speaker,
		MatchChaya:   chaya,
	})
	if err != nil {
		return err
	}
	c.SetContent(text)
	return nil
}

// History fetches the loaded page's revision history.
func (c *Controller) History(ctx context.Context) ([]Revision, error) {
	if c.page == nil {
		return nil, errors.New("no page loaded")
	}
	if !c.begin("history") {
		return nil, ErrBusy
	}
	defer c.end("history")
	return c.client.History(ctx, c.project, c.page.PageSlug)
}

// SelectionChanged reacts to a cursor move in the visual editor: it asks the
// aligner for the word box under the cursor and updates the image overlay,
// panning the viewport when tracking is enabled. Without a match the
// highlight is cleared.
func (c *Controller) SelectionChanged() {
	if c.mode != ModeVisual || c.ed == nil || c.aligner == nil || c.imageWidth <= 0 {
		c.overlay.Clear()
		return
	}
	cc := c.ed.CursorContext()
	if cc == nil {
		c.overlay.Clear()
		return
	}
	box, ok := c.aligner.Match(cc.Word, cc.Line, cc.WordIndex)
	if !ok {
		c.overlay.Clear()
		return
	}
	rect := align.NormalizeRect(box, c.imageWidth)
	c.overlay.Set(rect)
	if c.settings.Tracking {
		c.viewport = c.viewport.Pan(rect)
	}
}

// DisplayText returns the given text in the session's display script when a
// transliterator is configured. Stored content is unaffected.
func (c *Controller) DisplayText(text string) string {
	if c.Transliterate == nil || c.settings.FromScript == "" || c.settings.ToScript == "" ||
		c.settings.FromScript == c.settings.ToScript {
		return text
	}
	return c.Transliterate(text, c.settings.FromScript, c.settings.ToScript)
}
