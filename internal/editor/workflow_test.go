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
	"errors"
	"testing"

	"epaperadmin/internal/domain"
)

// fakePersister records saves and can be toggled to fail.
type fakePersister struct {
	calls []domain.Epaper
	fail  bool
}

func (f *fakePersister) Persist(_ context.Context, issue domain.Epaper) (domain.Epaper, error) {
	f.calls = append(f.calls, issue)
	if f.fail {
		return domain.Epaper{}, errors.New("gateway timeout")
	}
	echo := issue.Clone()
	echo.Dirty = false
	return echo, nil
}

// fakeDrafts records every autosaved snapshot.
type fakeDrafts struct{ saved []domain.Epaper }

func (f *fakeDrafts) SaveDraft(_ context.Context, issue domain.Epaper) error {
	f.saved = append(f.saved, issue)
	return nil
}

type recordedNote struct {
	level Level
	msg   string
}

type fakeNotifier struct{ notes []recordedNote }

func (f *fakeNotifier) Notify(level Level, msg string) {
	f.notes = append(f.notes, recordedNote{level, msg})
}

func (f *fakeNotifier) last() recordedNote {
	if len(f.notes) == 0 {
		return recordedNote{}
	}
	return f.notes[len(f.notes)-1]
}

func quickWorkflow(t *testing.T) (*Workflow, *fakePersister, *fakeNotifier) {
	t.Helper()
	p := &fakePersister{}
	n := &fakeNotifier{}
	w := NewWorkflow(NewStore(twoPageIssue()), p, Options{Mode: ModeQuick, Notifier: n})
	return w, p, n
}

func formWorkflow(t *testing.T) (*Workflow, *fakePersister, *fakeNotifier) {
	t.Helper()
	p := &fakePersister{}
	n := &fakeNotifier{}
	w := NewWorkflow(NewStore(twoPageIssue()), p, Options{Mode: ModeForm, Notifier: n})
	return w, p, n
}

func TestQuickCommitStoresAndSaves(t *testing.T) {
	w, p, n := quickWorkflow(t)

	needsForm := w.HandleCommit(context.Background(), domain.Rect{X: 100.4, Y: 99.6, Width: 200.2, Height: 299.8})
	if needsForm {
		t.Fatalf("quick mode must not request the form")
	}
	pg, _ := w.Store().ActivePage()
	if len(pg.News) != 1 {
		t.Fatalf("region count = %d, want 1", len(pg.News))
	}
	got := pg.News[0]
	if got.X != 100 || got.Y != 100 || got.Width != 200 || got.Height != 300 {
		t.Fatalf("quick-mode geometry not rounded: %+v", got)
	}
	if got.Kind != domain.RegionBare {
		t.Fatalf("quick-mode region should be bare, got %q", got.Kind)
	}
	if len(p.calls) != 1 {
		t.Fatalf("persist calls = %d, want 1", len(p.calls))
	}
	if w.Store().Dirty() {
		t.Fatalf("echo should have cleared the dirty flag")
	}
	if n.notes[0].msg != MsgRegionAdded {
		t.Fatalf("missing added notification, got %+v", n.notes)
	}
}

func TestFormCommitWaitsForSubmit(t *testing.T) {
	w, p, n := formWorkflow(t)
	ctx := context.Background()

	if !w.HandleCommit(ctx, domain.Rect{X: 100, Y: 100, Width: 200, Height: 300}) {
		t.Fatalf("form mode must request the form")
	}
	if len(p.calls) != 0 {
		t.Fatalf("nothing may be saved before the form is submitted")
	}
	if !w.FormPending() {
		t.Fatalf("drag should be parked behind the form")
	}

	if w.SubmitForm(ctx, "  ", "तपशील...", "") {
		t.Fatalf("blank title must be rejected")
	}
	if n.last().msg != MsgFormIncomplete || n.last().level != LevelError {
		t.Fatalf("missing incomplete-form notification: %+v", n.last())
	}
	if !w.FormPending() {
		t.Fatalf("rejected submit must keep the drag pending")
	}

	if !w.SubmitForm(ctx, "भूकंप बातमी", "तपशील...", "art-42") {
		t.Fatalf("valid submit failed")
	}
	pg, _ := w.Store().ActivePage()
	if len(pg.News) != 1 {
		t.Fatalf("region count = %d, want 1", len(pg.News))
	}
	got := pg.News[0]
	if got.Title != "भूकंप बातमी" || got.Kind != domain.RegionAnnotated {
		t.Fatalf("annotated region malformed: %+v", got)
	}
	if got.ArticleID == nil || *got.ArticleID != "art-42" {
		t.Fatalf("article link not stored: %+v", got.ArticleID)
	}
	if len(p.calls) != 1 {
		t.Fatalf("persist calls = %d, want 1", len(p.calls))
	}
	if w.FormPending() {
		t.Fatalf("form state must reset after submit")
	}
}

func TestCancelFormDiscardsPendingDrag(t *testing.T) {
	w, p, _ := formWorkflow(t)
	ctx := context.Background()

	w.HandleCommit(ctx, domain.Rect{X: 100, Y: 100, Width: 200, Height: 300})
	w.CancelForm()
	if w.FormPending() {
		t.Fatalf("cancel must drop the pending drag")
	}
	if w.SubmitForm(ctx, "शीर्षक", "सामग्री", "") {
		t.Fatalf("submit after cancel must be a no-op")
	}
	pg, _ := w.Store().ActivePage()
	if len(pg.News) != 0 || len(p.calls) != 0 {
		t.Fatalf("cancelled drag leaked into store or backend")
	}
}

func TestBeginEditUpdatesExistingRegion(t *testing.T) {
	w, p, n := formWorkflow(t)
	ctx := context.Background()

	w.HandleCommit(ctx, domain.Rect{X: 100, Y: 100, Width: 200, Height: 300})
	w.SubmitForm(ctx, "जुने शीर्षक", "जुनी सामग्री", "")
	pg, _ := w.Store().ActivePage()
	id := pg.News[0].ID

	r, ok := w.BeginEdit(id)
	if !ok || r.Title != "जुने शीर्षक" {
		t.Fatalf("begin edit: ok=%v region=%+v", ok, r)
	}
	if !w.SubmitForm(ctx, "नवे शीर्षक", "नवी सामग्री", "art-7") {
		t.Fatalf("edit submit failed")
	}
	pg, _ = w.Store().ActivePage()
	if pg.News[0].Title != "नवे शीर्षक" || pg.News[0].ID != id {
		t.Fatalf("edit did not patch in place: %+v", pg.News[0])
	}
	if pg.News[0].ArticleID == nil || *pg.News[0].ArticleID != "art-7" {
		t.Fatalf("edit did not relink article: %+v", pg.News[0].ArticleID)
	}
	if n.last().msg != MsgRegionUpdated {
		t.Fatalf("missing updated notification: %+v", n.last())
	}
	if len(p.calls) != 2 {
		t.Fatalf("persist calls = %d, want 2", len(p.calls))
	}
}

func TestDeleteRegionNotifiesAndSaves(t *testing.T) {
	w, p, n := quickWorkflow(t)
	ctx := context.Background()

	w.HandleCommit(ctx, domain.Rect{X: 100, Y: 100, Width: 200, Height: 300})
	pg, _ := w.Store().ActivePage()
	id := pg.News[0].ID

	if !w.DeleteRegion(ctx, id) {
		t.Fatalf("delete failed")
	}
	pg, _ = w.Store().ActivePage()
	if len(pg.News) != 0 {
		t.Fatalf("region still present after delete")
	}
	if n.last().msg != MsgRegionRemoved {
		t.Fatalf("missing removed notification: %+v", n.last())
	}
	if len(p.calls) != 2 {
		t.Fatalf("persist calls = %d, want 2", len(p.calls))
	}
	if w.DeleteRegion(ctx, id) {
		t.Fatalf("deleting an unknown region must fail")
	}
}

func TestPersistFailureKeepsOptimisticState(t *testing.T) {
	w, p, n := quickWorkflow(t)
	p.fail = true
	ctx := context.Background()

	w.HandleCommit(ctx, domain.Rect{X: 100, Y: 100, Width: 200, Height: 300})
	pg, _ := w.Store().ActivePage()
	if len(pg.News) != 1 {
		t.Fatalf("failed save must not roll back the region")
	}
	if !w.Store().Dirty() {
		t.Fatalf("dirty flag must survive a failed save")
	}
	if n.last().msg != MsgSaveFailed || n.last().level != LevelError {
		t.Fatalf("missing save-failed notification: %+v", n.last())
	}

	// Recover the backend; SaveAll resends the retained state.
	p.fail = false
	if !w.SaveAll(ctx) {
		t.Fatalf("save all failed")
	}
	if w.Store().Dirty() {
		t.Fatalf("successful save all must clear the dirty flag")
	}
	last := p.calls[len(p.calls)-1]
	if len(last.Pages[0].News) != 1 {
		t.Fatalf("save all did not resend the retained region")
	}
	if n.last().msg != MsgAllSaved {
		t.Fatalf("missing all-saved notification: %+v", n.last())
	}
}

func TestSaveAllIdempotentWhenClean(t *testing.T) {
	w, p, _ := quickWorkflow(t)
	ctx := context.Background()

	if !w.SaveAll(ctx) {
		t.Fatalf("save all on a clean issue should still succeed")
	}
	if len(p.calls) != 1 {
		t.Fatalf("persist calls = %d, want 1", len(p.calls))
	}
}

func TestCommitOnEmptyIssueReportsPageNotFound(t *testing.T) {
	p := &fakePersister{}
	n := &fakeNotifier{}
	w := NewWorkflow(NewStore(domain.Epaper{ID: "empty"}), p, Options{Notifier: n})

	if w.HandleCommit(context.Background(), domain.Rect{X: 0, Y: 0, Width: 100, Height: 100}) {
		t.Fatalf("commit on empty issue must not request a form")
	}
	if n.last().msg != MsgPageNotFound {
		t.Fatalf("missing page-not-found notification: %+v", n.last())
	}
	if len(p.calls) != 0 {
		t.Fatalf("nothing may be saved for an empty issue")
	}
}

func TestUndoRestoresPreviousRegions(t *testing.T) {
	w, p, _ := quickWorkflow(t)
	ctx := context.Background()

	w.HandleCommit(ctx, domain.Rect{X: 100, Y: 100, Width: 200, Height: 300})
	w.HandleCommit(ctx, domain.Rect{X: 400, Y: 100, Width: 100, Height: 100})
	pg, _ := w.Store().ActivePage()
	if len(pg.News) != 2 {
		t.Fatalf("precondition: want 2 regions, got %d", len(pg.News))
	}

	if !w.Undo(ctx) {
		t.Fatalf("undo failed")
	}
	pg, _ = w.Store().ActivePage()
	if len(pg.News) != 1 {
		t.Fatalf("undo should restore the single-region snapshot, got %d", len(pg.News))
	}
	if p.calls[len(p.calls)-1].Pages[0].News[0].ID != pg.News[0].ID {
		t.Fatalf("undo result was not persisted")
	}
}

func TestCommitAutosavesDraft(t *testing.T) {
	p := &fakePersister{}
	d := &fakeDrafts{}
	w := NewWorkflow(NewStore(twoPageIssue()), p, Options{Mode: ModeQuick, Drafts: d})
	ctx := context.Background()

	w.HandleCommit(ctx, domain.Rect{X: 100, Y: 100, Width: 200, Height: 300})
	if len(d.saved) != 2 {
		t.Fatalf("draft saves = %d, want dirty snapshot plus clean echo", len(d.saved))
	}
	if !d.saved[0].Dirty {
		t.Fatalf("pre-push draft must carry the dirty flag")
	}
	if d.saved[1].Dirty {
		t.Fatalf("post-echo draft must be clean")
	}
}

func TestFailedSaveLeavesDirtyDraft(t *testing.T) {
	p := &fakePersister{fail: true}
	d := &fakeDrafts{}
	w := NewWorkflow(NewStore(twoPageIssue()), p, Options{Mode: ModeQuick, Drafts: d})
	ctx := context.Background()

	w.HandleCommit(ctx, domain.Rect{X: 100, Y: 100, Width: 200, Height: 300})
	if len(d.saved) != 1 {
		t.Fatalf("draft saves = %d, want exactly the dirty snapshot", len(d.saved))
	}
	if !d.saved[0].Dirty || len(d.saved[0].Pages[0].News) != 1 {
		t.Fatalf("dirty draft must hold the unsynced region: %+v", d.saved[0])
	}
}

func TestRedoReappliesUndoneRegions(t *testing.T) {
	w, p, _ := quickWorkflow(t)
	ctx := context.Background()

	w.HandleCommit(ctx, domain.Rect{X: 100, Y: 100, Width: 200, Height: 300})
	w.HandleCommit(ctx, domain.Rect{X: 400, Y: 100, Width: 100, Height: 100})
	pg, _ := w.Store().ActivePage()
	want := len(pg.News)

	if !w.Undo(ctx) {
		t.Fatalf("undo failed")
	}
	if !w.Redo(ctx) {
		t.Fatalf("redo failed")
	}
	pg, _ = w.Store().ActivePage()
	if len(pg.News) != want {
		t.Fatalf("redo should restore %d regions, got %d", want, len(pg.News))
	}
	if p.calls[len(p.calls)-1].Pages[0].News[1].X != 400 {
		t.Fatalf("redo result was not persisted: %+v", p.calls[len(p.calls)-1].Pages[0].News)
	}
	if w.Redo(ctx) {
		t.Fatalf("redo past the newest state must be a no-op")
	}
}
