/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geometry converts between the two coordinate spaces of the
// mapping editor: natural pixels (the full-resolution page image, the
// space all stored Region geometry lives in) and display pixels (the
// on-screen size of the rendered image element, which changes with
// every layout/resize and must never be cached).
package geometry

import "epaperadmin/internal/domain"

// Pt is a 2D point. The space it lives in depends on context.
type Pt struct{ X, Y float64 }

// DisplayRect is the rendered image element's on-screen bounding box:
// viewport offsets of its top-left corner plus rendered size.
type DisplayRect struct {
	Left, Top     float64
	Width, Height float64
}

// ToNatural converts a pointer's viewport position into natural-pixel
// page coordinates. Returns ok=false when the rendered rect is
// degenerate (image not mounted yet, zero-size layout pass) — callers
// drop the event silently.
func ToNatural(pointer Pt, disp DisplayRect, pg domain.Page) (Pt, bool) {
	if disp.Width <= 0 || disp.Height <= 0 {
		return Pt{}, false
	}
	sx := pg.Width / disp.Width
	sy := pg.Height / disp.Height
	return Pt{
		X: (pointer.X - disp.Left) * sx,
		Y: (pointer.Y - disp.Top) * sy,
	}, true
}

// ToDisplay converts a natural-pixel rectangle into display-pixel
// offsets/size for overlay placement, relative to the rendered image's
// top-left corner. Recompute on every render; the display rect changes
// with viewport width.
func ToDisplay(rc domain.Rect, disp DisplayRect, pg domain.Page) (domain.Rect, bool) {
	if pg.Width <= 0 || pg.Height <= 0 || disp.Width <= 0 || disp.Height <= 0 {
		return domain.Rect{}, false
	}
	sx := disp.Width / pg.Width
	sy := disp.Height / pg.Height
	return domain.Rect{
		X:      rc.X * sx,
		Y:      rc.Y * sy,
		Width:  rc.Width * sx,
		Height: rc.Height * sy,
	}, true
}

// Normalized builds the canonical rectangle spanned by two corner
// points: min corner plus absolute size.
func Normalized(a, b Pt) domain.Rect {
	return domain.Rect{
		X:      min(a.X, b.X),
		Y:      min(a.Y, b.Y),
		Width:  abs(b.X - a.X),
		Height: abs(b.Y - a.Y),
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
