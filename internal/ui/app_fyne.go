//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"epaperadmin/internal/backend"
	"epaperadmin/internal/config"
	"epaperadmin/internal/crash"
	"epaperadmin/internal/domain"
	"epaperadmin/internal/editor"
	"epaperadmin/internal/geometry"
	applog "epaperadmin/internal/log"
	"epaperadmin/internal/storage"
	"epaperadmin/internal/undo"
)

const (
	viewW = float32(620)
	viewH = float32(840)
)

// Run starts the desktop mapping editor. epaperID may preselect an
// issue; empty shows the picker.
func Run(epaperID string) error {
	l := applog.WithComponent("ui")

	cfg, token, err := config.Load()
	if err != nil {
		return err
	}
	client := backend.NewClient(cfg.Backend.BaseURL, token)
	if cfg.Backend.TLSInsecure {
		client.AllowInsecureTLS()
	}

	var drafts *storage.DraftStore
	if root := draftRoot(cfg); root != "" {
		if ds, err := storage.Open(root); err != nil {
			l.Warn("draft store unavailable", "err", err)
		} else {
			drafts = ds
			defer drafts.Close()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	issues, err := client.ListEpapers(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("list epapers: %w", err)
	}
	if len(issues) == 0 {
		return fmt.Errorf("no epapers available")
	}

	selected := issues[0]
	if epaperID != "" {
		found := false
		for _, is := range issues {
			if is.ID == epaperID {
				selected, found = is, true
				break
			}
		}
		if !found {
			return fmt.Errorf("epaper %q not found", epaperID)
		}
	}

	if t := cfg.General.Theme; t == "light" || t == "dark" {
		os.Setenv("FYNE_THEME", t)
	}
	a := app.NewWithID("com.epaperadmin.mapper")
	w := a.NewWindow("E-Paper Mapping — " + selected.Title)

	ed := newEditorView(w, client, cfg, drafts, selected, l)
	defer crash.Recover(drafts, func() (domain.Epaper, bool) {
		snap := ed.wf.Store().Snapshot()
		return snap, snap.Dirty
	})
	w.SetContent(ed.build())
	w.Resize(fyne.NewSize(viewW+280, viewH+80))
	w.ShowAndRun()
	return nil
}

// draftRoot resolves where the local draft database lives.
func draftRoot(cfg config.AppConfig) string {
	if cfg.General.DraftDir != "" {
		return cfg.General.DraftDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// editorView owns the widgets for one open issue.
type editorView struct {
	win    fyne.Window
	wf     *editor.Workflow
	tr     *editor.Tracker
	log    *slog.Logger
	status *widget.Label

	pageBox   *fyne.Container
	pageLabel *widget.Label
	candidate *canvas.Rectangle
}

func newEditorView(win fyne.Window, client *backend.Client, cfg config.AppConfig, drafts *storage.DraftStore, issue domain.Epaper, l *slog.Logger) *editorView {
	mode := editor.ModeQuick
	if cfg.Editor.Mode == "form" {
		mode = editor.ModeForm
	}
	v := &editorView{
		win:       win,
		tr:        editor.NewTracker(),
		log:       l,
		status:    widget.NewLabel(""),
		pageLabel: widget.NewLabel(""),
	}
	opts := editor.Options{
		Mode:     mode,
		Logger:   l,
		Notifier: editor.NotifierFunc(v.notify),
		History:  undo.NewManager(undo.Config{MaxPerPage: cfg.Editor.UndoDepth}),
	}
	if drafts != nil {
		opts.Drafts = drafts
	}
	v.wf = editor.NewWorkflow(editor.NewStore(issue), client, opts)
	return v
}

func (v *editorView) notify(level editor.Level, msg string) {
	v.status.SetText(msg)
	if level == editor.LevelError {
		v.log.Warn("operator notified", "msg", msg)
	}
}

func (v *editorView) build() fyne.CanvasObject {
	prev := widget.NewButton("◀", func() { v.wf.Store().Prev(); v.refresh() })
	next := widget.NewButton("▶", func() { v.wf.Store().Next(); v.refresh() })
	saveAll := widget.NewButton("Save all", func() {
		ctx, cancel := v.ctx()
		defer cancel()
		v.wf.SaveAll(ctx)
		v.refresh()
	})
	undoBtn := widget.NewButton("Undo", func() {
		ctx, cancel := v.ctx()
		defer cancel()
		v.wf.Undo(ctx)
		v.refresh()
	})
	redoBtn := widget.NewButton("Redo", func() {
		ctx, cancel := v.ctx()
		defer cancel()
		v.wf.Redo(ctx)
		v.refresh()
	})
	top := container.NewHBox(prev, next, v.pageLabel, widget.NewSeparator(), undoBtn, redoBtn, saveAll)

	v.pageBox = container.NewWithoutLayout()
	v.refresh()

	return container.NewBorder(top, v.status, nil, nil, v.pageBox)
}

func (v *editorView) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// displayRect returns the viewport the current page renders into,
// preserving its aspect ratio inside the fixed editor area.
func (v *editorView) displayRect(pg domain.Page) geometry.DisplayRect {
	scale := float64(viewW) / pg.Width
	if s := float64(viewH) / pg.Height; s < scale {
		scale = s
	}
	return geometry.DisplayRect{Left: 0, Top: 0, Width: pg.Width * scale, Height: pg.Height * scale}
}

func (v *editorView) refresh() {
	v.pageBox.Objects = nil
	pg, ok := v.wf.Store().ActivePage()
	if !ok {
		v.pageBox.Add(widget.NewLabel(editor.MsgPageNotFound))
		v.pageBox.Refresh()
		return
	}
	disp := v.displayRect(pg)
	sz := fyne.NewSize(float32(disp.Width), float32(disp.Height))

	v.pageLabel.SetText(fmt.Sprintf("पृष्ठ %d / %d", v.wf.Store().ActiveIndex()+1, v.wf.Store().PageCount()))

	if uri, err := fstorage.ParseURI(pg.Image); err == nil {
		img := canvas.NewImageFromURI(uri)
		img.FillMode = canvas.ImageFillStretch
		img.Resize(sz)
		v.pageBox.Add(img)
	} else {
		bg := canvas.NewRectangle(color.NRGBA{R: 235, G: 235, B: 235, A: 255})
		bg.Resize(sz)
		v.pageBox.Add(bg)
	}

	v.candidate = canvas.NewRectangle(color.Transparent)
	v.candidate.StrokeWidth = 2
	v.candidate.StrokeColor = color.NRGBA{R: 30, G: 90, B: 200, A: 255}
	v.candidate.Hide()
	v.pageBox.Add(v.candidate)

	layer := newDragLayer(v, disp, pg)
	layer.Resize(sz)
	v.pageBox.Add(layer)

	// Region handles sit above the drag layer: a tap on a drawn region
	// opens its menu instead of starting a new drag.
	for _, r := range pg.News {
		if dr, ok := geometry.ToDisplay(r.Rect(), disp, pg); ok {
			h := newRegionHandle(v, r)
			h.Move(fyne.NewPos(float32(dr.X), float32(dr.Y)))
			h.Resize(fyne.NewSize(float32(dr.Width), float32(dr.Height)))
			v.pageBox.Add(h)
		}
	}
	v.pageBox.Refresh()
}

// regionHandle outlines a stored region and answers taps with the
// edit/delete menu.
type regionHandle struct {
	widget.BaseWidget
	view   *editorView
	region domain.Region
}

func newRegionHandle(v *editorView, r domain.Region) *regionHandle {
	h := &regionHandle{view: v, region: r}
	h.ExtendBaseWidget(h)
	return h
}

func (h *regionHandle) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(color.Transparent)
	rect.StrokeWidth = 2
	if h.region.EffectiveKind() == domain.RegionAnnotated {
		rect.StrokeColor = color.NRGBA{G: 140, A: 255}
	} else {
		rect.StrokeColor = color.NRGBA{R: 210, G: 90, A: 255}
	}
	return widget.NewSimpleRenderer(rect)
}

func (h *regionHandle) Tapped(e *fyne.PointEvent) {
	v := h.view
	items := []*fyne.MenuItem{}
	if v.wf.Mode() == editor.ModeForm {
		items = append(items, fyne.NewMenuItem("संपादित करा", func() {
			if cur, ok := v.wf.BeginEdit(h.region.ID); ok {
				v.openForm(cur)
			}
		}))
	}
	items = append(items, fyne.NewMenuItem("हटवा", func() {
		ctx, cancel := v.ctx()
		defer cancel()
		v.wf.DeleteRegion(ctx, h.region.ID)
		v.refresh()
	}))
	widget.ShowPopUpMenuAtPosition(fyne.NewMenu("", items...), v.win.Canvas(), e.AbsolutePosition)
}

// Swallow raw mouse events so a press inside a region never starts a
// new drag; drawing only begins on the bare page image.
func (h *regionHandle) MouseDown(*desktop.MouseEvent) {}
func (h *regionHandle) MouseUp(*desktop.MouseEvent)   {}

func (v *editorView) showCandidate(rc domain.Rect, disp geometry.DisplayRect, pg domain.Page) {
	dr, ok := geometry.ToDisplay(rc, disp, pg)
	if !ok {
		return
	}
	v.candidate.Move(fyne.NewPos(float32(dr.X), float32(dr.Y)))
	v.candidate.Resize(fyne.NewSize(float32(dr.Width), float32(dr.Height)))
	v.candidate.Show()
	v.candidate.Refresh()
}

func (v *editorView) finishDrag() {
	rc, ok := v.tr.PointerUp()
	v.candidate.Hide()
	ctx, cancel := v.ctx()
	defer cancel()
	if !ok {
		return
	}
	if v.wf.HandleCommit(ctx, rc) {
		v.openForm(domain.Region{})
		return
	}
	v.refresh()
}

// openForm shows the metadata dialog, prefilled when editing an
// existing region.
func (v *editorView) openForm(initial domain.Region) {
	title := widget.NewEntry()
	title.SetText(initial.Title)
	content := widget.NewMultiLineEntry()
	content.SetText(initial.Content)
	article := widget.NewEntry()
	article.SetPlaceHolder("(ऐच्छिक)")
	if initial.ArticleID != nil {
		article.SetText(*initial.ArticleID)
	}
	items := []*widget.FormItem{
		widget.NewFormItem("शीर्षक", title),
		widget.NewFormItem("सामग्री", content),
		widget.NewFormItem("बातमी आयडी", article),
	}
	dialog.ShowForm("बातमी तपशील", "जतन करा", "रद्द करा", items, func(ok bool) {
		if !ok {
			v.wf.CancelForm()
			return
		}
		ctx, cancel := v.ctx()
		defer cancel()
		if !v.wf.SubmitForm(ctx, title.Text, content.Text, article.Text) {
			// validation failed; reopen so nothing is lost
			again := domain.Region{Title: title.Text, Content: content.Text}
			if a := article.Text; a != "" {
				again.ArticleID = &a
			}
			v.openForm(again)
			return
		}
		v.refresh()
	}, v.win)
}

// dragLayer sits on top of the page and feeds pointer events into the
// drag tracker in viewport coordinates.
type dragLayer struct {
	widget.BaseWidget
	view *editorView
	disp geometry.DisplayRect
	pg   domain.Page
}

func newDragLayer(v *editorView, disp geometry.DisplayRect, pg domain.Page) *dragLayer {
	d := &dragLayer{view: v, disp: disp, pg: pg}
	d.ExtendBaseWidget(d)
	return d
}

func (d *dragLayer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(color.Transparent))
}

func (d *dragLayer) MouseDown(e *desktop.MouseEvent) {
	p := geometry.Pt{X: float64(e.Position.X), Y: float64(e.Position.Y)}
	d.view.tr.PointerDown(p, true, d.disp, d.pg)
}

func (d *dragLayer) MouseUp(_ *desktop.MouseEvent) {
	d.view.finishDrag()
}

func (d *dragLayer) Dragged(e *fyne.DragEvent) {
	p := geometry.Pt{X: float64(e.Position.X), Y: float64(e.Position.Y)}
	if rc, ok := d.view.tr.PointerMove(p, d.disp, d.pg); ok {
		d.view.showCandidate(rc, d.disp, d.pg)
	}
}

func (d *dragLayer) DragEnd() {
	d.view.finishDrag()
}
