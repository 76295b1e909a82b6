/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"time"

	"epaperadmin/internal/domain"
)

// Store owns the in-memory issue graph for the open editor session.
// There is exactly one mutator (the UI event loop), so the store is not
// synchronized. Every mutation marks the issue dirty; SetIssue with a
// server-acknowledged snapshot clears the flag.
type Store struct {
	issue     domain.Epaper
	pageIndex int
	lastID    int64
}

// NewStore builds a store around the given issue. The issue is
// normalized (page order, region kinds) and deep-copied; the caller's
// value is never aliased.
func NewStore(issue domain.Epaper) *Store {
	s := &Store{}
	s.SetIssue(issue)
	return s
}

// SetIssue replaces the whole issue, e.g. with the server's echoed
// representation after a round-trip. Page order is normalized by
// sortOrder (falling back to page number) and the active page index is
// clamped into the new page range.
func (s *Store) SetIssue(issue domain.Epaper) {
	cp := issue.Clone()
	cp.Normalize()
	s.issue = cp
	s.pageIndex = clampIndex(s.pageIndex, len(cp.Pages))
}

// Snapshot returns a deep copy of the current issue, safe to hand to
// the persistence bridge or a draft store.
func (s *Store) Snapshot() domain.Epaper { return s.issue.Clone() }

// Dirty reports whether the snapshot has mutations not yet acknowledged
// by the server.
func (s *Store) Dirty() bool { return s.issue.Dirty }

// PageCount returns the number of pages.
func (s *Store) PageCount() int { return len(s.issue.Pages) }

// ActiveIndex returns the current page index.
func (s *Store) ActiveIndex() int { return s.pageIndex }

// ActivePage returns the page at the active index. ok is false only
// when the issue has zero pages; the editor then renders its
// page-not-found fallback instead of crashing.
func (s *Store) ActivePage() (domain.Page, bool) {
	if len(s.issue.Pages) == 0 {
		return domain.Page{}, false
	}
	return s.issue.Pages[s.pageIndex], true
}

// GoTo activates the page at index, clamped to [0, pageCount-1].
// Navigating past either end is a no-op; the returned index is the one
// actually activated.
func (s *Store) GoTo(index int) int {
	s.pageIndex = clampIndex(index, len(s.issue.Pages))
	return s.pageIndex
}

// Next activates the following page (clamped).
func (s *Store) Next() int { return s.GoTo(s.pageIndex + 1) }

// Prev activates the preceding page (clamped).
func (s *Store) Prev() int { return s.GoTo(s.pageIndex - 1) }

// AddRegion appends a region to the page at pageIndex. A zero ID is
// replaced with a locally-unique timestamp-derived one. The rectangle
// is clamped into page bounds and must still meet the minimum drawable
// size afterwards. Returns the stored region.
func (s *Store) AddRegion(pageIndex int, r domain.Region) (domain.Region, error) {
	if pageIndex < 0 || pageIndex >= len(s.issue.Pages) {
		return domain.Region{}, fmt.Errorf("page index %d out of range [0,%d)", pageIndex, len(s.issue.Pages))
	}
	pg := &s.issue.Pages[pageIndex]
	r.SetRect(domain.ClampRect(r.Rect(), *pg))
	if r.ID == 0 {
		r.ID = s.nextRegionID()
	} else if s.findRegion(pageIndex, r.ID) >= 0 {
		return domain.Region{}, fmt.Errorf("region id %d already exists on page %d", r.ID, pg.PageNo)
	}
	r.Kind = r.EffectiveKind()
	if err := domain.ValidateRegion(r, *pg); err != nil {
		return domain.Region{}, err
	}
	pg.News = append(pg.News, r)
	s.issue.Dirty = true
	return r, nil
}

// RegionPatch carries the fields UpdateRegion merges into an existing
// region. Nil fields are left untouched.
type RegionPatch struct {
	Rect           *domain.Rect
	Title          *string
	Content        *string
	ArticleID      *string
	ClearArticleID bool
}

// UpdateRegion merges patch into the region matching id on the given
// page. No-op (returns false) when the page or region is not found, or
// when a patched rectangle ends up below the minimum drawable size
// after clamping.
func (s *Store) UpdateRegion(pageIndex int, id int64, patch RegionPatch) bool {
	if pageIndex < 0 || pageIndex >= len(s.issue.Pages) {
		return false
	}
	i := s.findRegion(pageIndex, id)
	if i < 0 {
		return false
	}
	pg := &s.issue.Pages[pageIndex]
	r := &pg.News[i]
	if patch.Rect != nil {
		rc := domain.ClampRect(*patch.Rect, *pg)
		if !domain.ValidRect(rc) {
			return false
		}
		r.SetRect(rc)
	}
	if patch.Title != nil {
		r.Title = *patch.Title
	}
	if patch.Content != nil {
		r.Content = *patch.Content
	}
	if patch.ClearArticleID {
		r.ArticleID = nil
	} else if patch.ArticleID != nil {
		r.ArticleID = patch.ArticleID
	}
	r.Kind = ""
	r.Kind = r.EffectiveKind()
	s.issue.Dirty = true
	return true
}

// RemoveRegion deletes the region matching id from the given page.
// No-op (returns false) when not found; sibling regions keep their
// order and identity.
func (s *Store) RemoveRegion(pageIndex int, id int64) bool {
	if pageIndex < 0 || pageIndex >= len(s.issue.Pages) {
		return false
	}
	i := s.findRegion(pageIndex, id)
	if i < 0 {
		return false
	}
	pg := &s.issue.Pages[pageIndex]
	pg.News = append(pg.News[:i], pg.News[i+1:]...)
	s.issue.Dirty = true
	return true
}

// ReplaceRegions swaps the full region list of one page (undo/redo
// restore path). The page keeps everything else.
func (s *Store) ReplaceRegions(pageIndex int, regions []domain.Region) bool {
	if pageIndex < 0 || pageIndex >= len(s.issue.Pages) {
		return false
	}
	cp := make([]domain.Region, len(regions))
	copy(cp, regions)
	s.issue.Pages[pageIndex].News = cp
	s.issue.Dirty = true
	return true
}

// SetTitle renames the issue (inline title editing on the issue list).
func (s *Store) SetTitle(title string) {
	if title == s.issue.Title {
		return
	}
	s.issue.Title = title
	s.issue.Dirty = true
}

func (s *Store) findRegion(pageIndex int, id int64) int {
	for i, r := range s.issue.Pages[pageIndex].News {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// nextRegionID yields millisecond timestamps, bumped monotonically so
// two regions drawn within the same millisecond stay distinct.
func (s *Store) nextRegionID() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func clampIndex(i, n int) int {
	if n == 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
