/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for the e-paper admin core.
// Field names and JSON tags mirror the server's epaper document so a
// decoded issue can be PUT back verbatim (full-document replacement).

import "sort"

// MinRegionSize is the smallest width/height (in natural pixels) a drawn
// rectangle may have and still become a Region. Smaller gestures are
// treated as accidental clicks and dropped silently.
const MinRegionSize = 10

// RegionKind discriminates the two generations of the mapping tool.
type RegionKind string

const (
	// RegionAnnotated carries title/content and optionally an article link
	// (form-gated editor).
	RegionAnnotated RegionKind = "annotated"
	// RegionBare carries geometry only (quick auto-save editor).
	RegionBare RegionKind = "bare"
)

// Epaper is one newspaper edition: an ordered sequence of scanned pages.
type Epaper struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"` // ISO date, e.g. 2025-12-28
	Pages []Page `json:"pages"`

	// Dirty marks the snapshot as not yet acknowledged by the server.
	// Local only; "save all" retries while it is set.
	Dirty bool `json:"-"`
}

// Page is one raster page image plus its mapped regions. Width/Height are
// the natural (full-resolution) pixel dimensions of Image, never the
// on-screen rendered size; all Region geometry is stored in these units.
type Page struct {
	PageNo    int      `json:"pageNo"` // 1-based
	SortOrder int      `json:"sortOrder,omitempty"`
	Width     float64  `json:"width"`
	Height    float64  `json:"height"`
	Image     string   `json:"image"` // URL or data URI
	News      []Region `json:"news"`
}

// Region is a rectangular, optionally article-linked annotation on a
// page, in natural pixel coordinates.
type Region struct {
	ID        int64      `json:"id"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	ArticleID *string    `json:"articleId"`
	Kind      RegionKind `json:"kind,omitempty"`
}

// Rect is an axis-aligned rectangle in natural pixel coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect returns the region's geometry.
func (r Region) Rect() Rect { return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height} }

// SetRect replaces the region's geometry.
func (r *Region) SetRect(rc Rect) {
	r.X, r.Y, r.Width, r.Height = rc.X, rc.Y, rc.Width, rc.Height
}

// EffectiveKind derives the kind for documents written before the kind
// tag existed: anything with metadata is annotated, the rest is bare.
func (r Region) EffectiveKind() RegionKind {
	if r.Kind != "" {
		return r.Kind
	}
	if r.Title != "" || r.Content != "" || r.ArticleID != nil {
		return RegionAnnotated
	}
	return RegionBare
}

// Order returns the page's sort key: the explicit SortOrder when set,
// falling back to the page number.
func (p Page) Order() int {
	if p.SortOrder != 0 {
		return p.SortOrder
	}
	return p.PageNo
}

// SortPages orders pages in place by Order ascending, PageNo breaking
// ties, so page navigation is deterministic regardless of input order.
func SortPages(pages []Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		oi, oj := pages[i].Order(), pages[j].Order()
		if oi != oj {
			return oi < oj
		}
		return pages[i].PageNo < pages[j].PageNo
	})
}

// Normalize sorts pages, backfills region kinds, and ensures every page
// has a non-nil region slice. Called whenever an issue enters the
// process boundary (server response, draft load, ingestion).
func (e *Epaper) Normalize() {
	SortPages(e.Pages)
	for i := range e.Pages {
		pg := &e.Pages[i]
		if pg.News == nil {
			pg.News = []Region{}
		}
		for j := range pg.News {
			pg.News[j].Kind = pg.News[j].EffectiveKind()
		}
	}
}

// Clone returns a deep copy of the issue. Store mutations operate on
// clones so every committed snapshot is independent.
func (e Epaper) Clone() Epaper {
	out := e
	out.Pages = make([]Page, len(e.Pages))
	for i, pg := range e.Pages {
		cp := pg
		cp.News = make([]Region, len(pg.News))
		copy(cp.News, pg.News)
		out.Pages[i] = cp
	}
	return out
}
