/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"epaperadmin/internal/domain"
	"epaperadmin/internal/undo"
)

// Mode selects what happens when a drag commits.
type Mode int

const (
	// ModeQuick stores a bare region immediately and saves in the
	// background. The fast path for bulk mapping sessions.
	ModeQuick Mode = iota
	// ModeForm opens a metadata form; the region is only created once
	// the operator submits a title and content.
	ModeForm
)

// Level classifies operator notifications.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notifier receives operator-facing messages (toasts in the UI, plain
// lines on the CLI).
type Notifier interface {
	Notify(level Level, msg string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(level Level, msg string)

func (f NotifierFunc) Notify(level Level, msg string) { f(level, msg) }

// Persister pushes a full issue snapshot to the backend and returns the
// server's echoed representation.
type Persister interface {
	Persist(ctx context.Context, issue domain.Epaper) (domain.Epaper, error)
}

// DraftSaver keeps issue snapshots locally so unsynced mapping work
// survives a crash or an offline stretch. *storage.DraftStore
// implements it.
type DraftSaver interface {
	SaveDraft(ctx context.Context, issue domain.Epaper) error
}

// Operator-facing messages. The deployment serves Marathi newsrooms;
// these strings are rendered verbatim.
const (
	MsgRegionAdded    = "क्षेत्र जोडले गेले!"
	MsgRegionRemoved  = "क्षेत्र हटवले गेले!"
	MsgRegionUpdated  = "बातमी अपडेट केली!"
	MsgAllSaved       = "सर्व मॅपिंग सेव्ह केले!"
	MsgSaveFailed     = "ई-मॅपिंग सेव्ह करताना त्रुटी"
	MsgFormIncomplete = "कृपया शीर्षक आणि सामग्री भरा"
	MsgPageNotFound   = "पृष्ठ सापडले नाही"
)

// Workflow drives the editing session: it turns committed drags into
// stored regions, runs the metadata form in form mode, and keeps the
// store reconciled with the backend through full-snapshot saves.
type Workflow struct {
	mode    Mode
	store   *Store
	persist Persister
	notify  Notifier
	history *undo.Manager
	drafts  DraftSaver
	log     *slog.Logger

	pendingRect *domain.Rect
	editingID   int64
}

// Options configures a Workflow. Zero values select quick mode, a
// no-op notifier and the default logger.
type Options struct {
	Mode     Mode
	Notifier Notifier
	History  *undo.Manager
	// Drafts, when set, receives every committed snapshot so unsynced
	// work can be recovered and re-pushed later.
	Drafts DraftSaver
	Logger *slog.Logger
}

// NewWorkflow wires a workflow over the store and persistence bridge.
func NewWorkflow(store *Store, persist Persister, opts Options) *Workflow {
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(Level, string) {})
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.History == nil {
		opts.History = undo.NewManager(undo.Config{})
	}
	return &Workflow{
		mode:    opts.Mode,
		store:   store,
		persist: persist,
		notify:  opts.Notifier,
		history: opts.History,
		drafts:  opts.Drafts,
		log:     opts.Logger,
	}
}

// Mode returns the configured commit mode.
func (w *Workflow) Mode() Mode { return w.mode }

// Store exposes the underlying store for read paths (rendering).
func (w *Workflow) Store() *Store { return w.store }

// FormPending reports whether a committed drag is waiting on the
// metadata form (form mode only).
func (w *Workflow) FormPending() bool { return w.pendingRect != nil }

// EditingID returns the id of the region currently open in the form,
// or 0 when the form targets a fresh drag.
func (w *Workflow) EditingID() int64 { return w.editingID }

// HandleCommit consumes a committed drag rectangle. In quick mode the
// region is created and saved immediately; in form mode the rectangle
// is parked until SubmitForm or CancelForm. Returns true when the
// caller should open the metadata form.
func (w *Workflow) HandleCommit(ctx context.Context, rc domain.Rect) bool {
	pg, ok := w.store.ActivePage()
	if !ok {
		w.notify.Notify(LevelError, MsgPageNotFound)
		return false
	}
	if w.mode == ModeForm {
		w.pendingRect = &rc
		w.editingID = 0
		return true
	}
	w.snapshotPage(pg)
	r := domain.Region{Kind: domain.RegionBare}
	r.SetRect(roundRect(rc))
	stored, err := w.store.AddRegion(w.store.ActiveIndex(), r)
	if err != nil {
		w.log.Warn("drag commit rejected", "page", pg.PageNo, "err", err)
		return false
	}
	w.log.Info("region added", "page", pg.PageNo, "region", stored.ID)
	w.notify.Notify(LevelInfo, MsgRegionAdded)
	w.persistAndReconcile(ctx)
	return false
}

// SubmitForm completes the metadata form. Empty or whitespace-only
// title or content keeps the form open and the drag pending; articleID
// is optional and an empty string leaves the region unlinked. On
// success the region is created (fresh drag) or updated (BeginEdit)
// and the issue saved.
func (w *Workflow) SubmitForm(ctx context.Context, title, content, articleID string) bool {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	articleID = strings.TrimSpace(articleID)
	if title == "" || content == "" {
		w.notify.Notify(LevelError, MsgFormIncomplete)
		return false
	}
	pg, ok := w.store.ActivePage()
	if !ok {
		w.notify.Notify(LevelError, MsgPageNotFound)
		return false
	}
	w.snapshotPage(pg)
	switch {
	case w.editingID != 0:
		patch := RegionPatch{Title: &title, Content: &content}
		if articleID != "" {
			patch.ArticleID = &articleID
		} else {
			patch.ClearArticleID = true
		}
		if !w.store.UpdateRegion(w.store.ActiveIndex(), w.editingID, patch) {
			w.resetForm()
			return false
		}
		w.log.Info("region updated", "page", pg.PageNo, "region", w.editingID)
		w.notify.Notify(LevelInfo, MsgRegionUpdated)
	case w.pendingRect != nil:
		r := domain.Region{Title: title, Content: content, Kind: domain.RegionAnnotated}
		if articleID != "" {
			r.ArticleID = &articleID
		}
		r.SetRect(*w.pendingRect)
		stored, err := w.store.AddRegion(w.store.ActiveIndex(), r)
		if err != nil {
			w.log.Warn("form commit rejected", "page", pg.PageNo, "err", err)
			w.resetForm()
			return false
		}
		w.log.Info("region added", "page", pg.PageNo, "region", stored.ID)
		w.notify.Notify(LevelInfo, MsgRegionAdded)
	default:
		return false
	}
	w.resetForm()
	w.persistAndReconcile(ctx)
	return true
}

// CancelForm dismisses the metadata form; a pending drag is discarded.
func (w *Workflow) CancelForm() {
	w.resetForm()
}

// BeginEdit opens the form pre-targeted at an existing region. Returns
// false when the region is not on the active page.
func (w *Workflow) BeginEdit(id int64) (domain.Region, bool) {
	if _, ok := w.store.ActivePage(); !ok {
		return domain.Region{}, false
	}
	i := w.store.findRegion(w.store.ActiveIndex(), id)
	if i < 0 {
		return domain.Region{}, false
	}
	w.editingID = id
	w.pendingRect = nil
	return w.store.issue.Pages[w.store.ActiveIndex()].News[i], true
}

// DeleteRegion removes a region from the active page and saves.
func (w *Workflow) DeleteRegion(ctx context.Context, id int64) bool {
	pg, ok := w.store.ActivePage()
	if !ok {
		w.notify.Notify(LevelError, MsgPageNotFound)
		return false
	}
	w.snapshotPage(pg)
	if !w.store.RemoveRegion(w.store.ActiveIndex(), id) {
		return false
	}
	if w.editingID == id {
		w.resetForm()
	}
	w.log.Info("region removed", "page", pg.PageNo, "region", id)
	w.notify.Notify(LevelInfo, MsgRegionRemoved)
	w.persistAndReconcile(ctx)
	return true
}

// SaveAll pushes the current snapshot regardless of per-mutation saves.
// Safe to call when nothing changed; the server treats the full
// document as authoritative either way.
func (w *Workflow) SaveAll(ctx context.Context) bool {
	if w.persistAndReconcile(ctx) {
		w.notify.Notify(LevelInfo, MsgAllSaved)
		return true
	}
	return false
}

// Undo restores the previous region list of the active page and saves.
func (w *Workflow) Undo(ctx context.Context) bool {
	pg, ok := w.store.ActivePage()
	if !ok {
		return false
	}
	s, ok := w.history.Undo(pg.PageNo, pg.News)
	if !ok {
		return false
	}
	w.store.ReplaceRegions(w.store.ActiveIndex(), s.Regions)
	w.persistAndReconcile(ctx)
	return true
}

// Redo re-applies the most recently undone region list and saves.
func (w *Workflow) Redo(ctx context.Context) bool {
	pg, ok := w.store.ActivePage()
	if !ok {
		return false
	}
	s, ok := w.history.Redo(pg.PageNo, pg.News)
	if !ok {
		return false
	}
	w.store.ReplaceRegions(w.store.ActiveIndex(), s.Regions)
	w.persistAndReconcile(ctx)
	return true
}

// persistAndReconcile pushes the full issue and, on success, replaces
// the store with the server's echo. Failure keeps the optimistic local
// state: nothing is rolled back, the dirty flag stays set, and the
// operator is told so a later SaveAll can retry. The snapshot is
// autosaved as a local draft before the push and again (clean) after
// the echo lands, so a crash or a dead backend never loses work.
func (w *Workflow) persistAndReconcile(ctx context.Context) bool {
	snap := w.store.Snapshot()
	w.saveDraft(ctx, snap)
	if w.persist == nil {
		return false
	}
	echo, err := w.persist.Persist(ctx, snap)
	if err != nil {
		w.log.Error("issue save failed", "epaper", snap.ID, "err", err)
		w.notify.Notify(LevelError, MsgSaveFailed)
		return false
	}
	echo.Dirty = false
	w.store.SetIssue(echo)
	w.saveDraft(ctx, echo)
	w.log.Info("issue saved", "epaper", echo.ID, "pages", len(echo.Pages))
	return true
}

func (w *Workflow) saveDraft(ctx context.Context, issue domain.Epaper) {
	if w.drafts == nil {
		return
	}
	if err := w.drafts.SaveDraft(ctx, issue); err != nil {
		w.log.Warn("draft autosave failed", "epaper", issue.ID, "err", err)
	}
}

func (w *Workflow) snapshotPage(pg domain.Page) {
	regions := make([]domain.Region, len(pg.News))
	copy(regions, pg.News)
	w.history.Push(undo.Snapshot{PageNo: pg.PageNo, Regions: regions})
}

func (w *Workflow) resetForm() {
	w.pendingRect = nil
	w.editingID = 0
}

// roundRect snaps quick-mode geometry to whole natural pixels, matching
// what the backend stores for bulk-mapped regions.
func roundRect(rc domain.Rect) domain.Rect {
	return domain.Rect{
		X:      math.Round(rc.X),
		Y:      math.Round(rc.Y),
		Width:  math.Round(rc.Width),
		Height: math.Round(rc.Height),
	}
}
