/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor implements the region mapping core: the drag-to-
// rectangle interaction, the in-memory issue store, and the workflow
// that turns committed drags into persisted regions.
package editor

import (
	"epaperadmin/internal/domain"
	"epaperadmin/internal/geometry"
)

// DragState is the interaction state of the drawing surface.
type DragState int

const (
	// DragIdle: no candidate rectangle, waiting for pointer-down on the
	// base image.
	DragIdle DragState = iota
	// Dragging: a down-position is held and each move recomputes the
	// candidate. Single interaction at a time; overlays swallow their
	// own pointer-downs so a second drag cannot start.
	Dragging
)

// Tracker is the drag-to-rectangle state machine. All candidate
// geometry is kept in natural pixels; the pointer positions arrive in
// viewport coordinates and are converted on entry.
type Tracker struct {
	state     DragState
	start     geometry.Pt
	candidate domain.Rect
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker { return &Tracker{} }

// State returns the current interaction state.
func (t *Tracker) State() DragState { return t.state }

// Candidate returns the live candidate rectangle while dragging.
func (t *Tracker) Candidate() (domain.Rect, bool) {
	if t.state != Dragging {
		return domain.Rect{}, false
	}
	return t.candidate, true
}

// PointerDown starts a drag. onImage must be true only when the event
// target is the base page image itself, never an overlay or control.
// Returns false (and stays idle) when the event is ignored.
func (t *Tracker) PointerDown(pointer geometry.Pt, onImage bool, disp geometry.DisplayRect, pg domain.Page) bool {
	if t.state != DragIdle || !onImage {
		return false
	}
	p, ok := geometry.ToNatural(pointer, disp, pg)
	if !ok {
		return false
	}
	t.state = Dragging
	t.start = p
	t.candidate = domain.Rect{X: p.X, Y: p.Y}
	return true
}

// PointerMove recomputes the candidate from the stored down-position
// and the current pointer. Pure arithmetic; runs on every move event.
func (t *Tracker) PointerMove(pointer geometry.Pt, disp geometry.DisplayRect, pg domain.Page) (domain.Rect, bool) {
	if t.state != Dragging {
		return domain.Rect{}, false
	}
	p, ok := geometry.ToNatural(pointer, disp, pg)
	if !ok {
		return t.candidate, true
	}
	t.candidate = geometry.Normalized(t.start, p)
	return t.candidate, true
}

// PointerUp ends the drag. Committed when the candidate meets the
// minimum drawable size; otherwise the gesture is treated as an
// accidental click and discarded with no error. Pointer-leave while
// pressed is handled identically.
func (t *Tracker) PointerUp() (domain.Rect, bool) {
	if t.state != Dragging {
		return domain.Rect{}, false
	}
	rc := t.candidate
	t.reset()
	if rc.Width < domain.MinRegionSize || rc.Height < domain.MinRegionSize {
		return domain.Rect{}, false
	}
	return rc, true
}

// Cancel drops any in-progress drag.
func (t *Tracker) Cancel() { t.reset() }

func (t *Tracker) reset() {
	t.state = DragIdle
	t.start = geometry.Pt{}
	t.candidate = domain.Rect{}
}
