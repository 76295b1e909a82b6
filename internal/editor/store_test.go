/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"testing"

	"epaperadmin/internal/domain"
)

func twoPageIssue() domain.Epaper {
	return domain.Epaper{
		ID:    "ep-1",
		Title: "दैनिक अंक",
		Date:  "2025-06-01",
		Pages: []domain.Page{
			{PageNo: 2, SortOrder: 2, Width: 800, Height: 1200, Image: "p2.png"},
			{PageNo: 1, SortOrder: 1, Width: 800, Height: 1200, Image: "p1.png"},
		},
	}
}

func TestSetIssueNormalizesPageOrder(t *testing.T) {
	s := NewStore(twoPageIssue())
	pg, ok := s.ActivePage()
	if !ok {
		t.Fatalf("active page missing")
	}
	if pg.PageNo != 1 {
		t.Fatalf("pages not sorted by sortOrder: first page is %d", pg.PageNo)
	}
	if s.Dirty() {
		t.Fatalf("fresh issue must not be dirty")
	}
}

func TestNavigationClamps(t *testing.T) {
	s := NewStore(twoPageIssue())
	if got := s.Prev(); got != 0 {
		t.Fatalf("prev from first page = %d, want 0", got)
	}
	if got := s.Next(); got != 1 {
		t.Fatalf("next = %d, want 1", got)
	}
	if got := s.Next(); got != 1 {
		t.Fatalf("next past last page = %d, want 1", got)
	}
	if got := s.GoTo(99); got != 1 {
		t.Fatalf("goto out of range = %d, want 1", got)
	}
	if got := s.GoTo(-5); got != 0 {
		t.Fatalf("goto negative = %d, want 0", got)
	}
}

func TestActivePageOnEmptyIssue(t *testing.T) {
	s := NewStore(domain.Epaper{ID: "empty"})
	if _, ok := s.ActivePage(); ok {
		t.Fatalf("issue without pages must report no active page")
	}
	if got := s.GoTo(3); got != 0 {
		t.Fatalf("goto on empty issue = %d, want 0", got)
	}
}

func TestAddRegionAssignsIDAndMarksDirty(t *testing.T) {
	s := NewStore(twoPageIssue())
	r := domain.Region{X: 100, Y: 100, Width: 200, Height: 300}
	stored, err := s.AddRegion(0, r)
	if err != nil {
		t.Fatalf("add region: %v", err)
	}
	if stored.ID == 0 {
		t.Fatalf("zero region id not replaced")
	}
	if stored.Kind != domain.RegionBare {
		t.Fatalf("untitled region should be bare, got %q", stored.Kind)
	}
	if !s.Dirty() {
		t.Fatalf("mutation must mark issue dirty")
	}
	// IDs drawn in the same millisecond still differ.
	second, err := s.AddRegion(0, domain.Region{X: 400, Y: 100, Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("add second region: %v", err)
	}
	if second.ID == stored.ID {
		t.Fatalf("region ids must be unique")
	}
}

func TestAddRegionClampsIntoBounds(t *testing.T) {
	s := NewStore(twoPageIssue())
	stored, err := s.AddRegion(0, domain.Region{X: 700, Y: 1100, Width: 300, Height: 300})
	if err != nil {
		t.Fatalf("add region: %v", err)
	}
	if stored.X+stored.Width > 800 || stored.Y+stored.Height > 1200 {
		t.Fatalf("region not clamped: %+v", stored)
	}
}

func TestAddRegionRejectsDuplicateID(t *testing.T) {
	s := NewStore(twoPageIssue())
	if _, err := s.AddRegion(0, domain.Region{ID: 42, X: 0, Y: 0, Width: 50, Height: 50}); err != nil {
		t.Fatalf("add region: %v", err)
	}
	if _, err := s.AddRegion(0, domain.Region{ID: 42, X: 100, Y: 100, Width: 50, Height: 50}); err == nil {
		t.Fatalf("duplicate id must be rejected")
	}
}

func TestUpdateRegionPatchesFields(t *testing.T) {
	s := NewStore(twoPageIssue())
	stored, _ := s.AddRegion(0, domain.Region{X: 10, Y: 10, Width: 100, Height: 100})

	title, content := "भूकंप बातमी", "तपशील..."
	if !s.UpdateRegion(0, stored.ID, RegionPatch{Title: &title, Content: &content}) {
		t.Fatalf("update failed")
	}
	pg, _ := s.ActivePage()
	got := pg.News[0]
	if got.Title != title || got.Content != content {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.Kind != domain.RegionAnnotated {
		t.Fatalf("titled region should become annotated, got %q", got.Kind)
	}
	if got.X != 10 || got.Width != 100 {
		t.Fatalf("geometry must be untouched by a metadata patch: %+v", got)
	}
}

func TestUpdateRegionRejectsUndersizedRect(t *testing.T) {
	s := NewStore(twoPageIssue())
	stored, _ := s.AddRegion(0, domain.Region{X: 10, Y: 10, Width: 100, Height: 100})

	small := domain.Rect{X: 10, Y: 10, Width: 5, Height: 3}
	if s.UpdateRegion(0, stored.ID, RegionPatch{Rect: &small}) {
		t.Fatalf("rect below the minimum size must be rejected")
	}
	edge := domain.Rect{X: 795, Y: 10, Width: 100, Height: 100} // clamps to 5px wide
	if s.UpdateRegion(0, stored.ID, RegionPatch{Rect: &edge}) {
		t.Fatalf("rect clamped below the minimum size must be rejected")
	}
	pg, _ := s.ActivePage()
	if got := pg.News[0]; got.Width != 100 || got.Height != 100 || got.X != 10 {
		t.Fatalf("rejected patch must leave geometry untouched: %+v", got)
	}
}

func TestUpdateRegionUnknownIDIsNoop(t *testing.T) {
	s := NewStore(twoPageIssue())
	title := "x"
	if s.UpdateRegion(0, 9999, RegionPatch{Title: &title}) {
		t.Fatalf("unknown region id must be a no-op")
	}
}

func TestRemoveRegionKeepsSiblings(t *testing.T) {
	s := NewStore(twoPageIssue())
	a, _ := s.AddRegion(0, domain.Region{X: 0, Y: 0, Width: 50, Height: 50})
	b, _ := s.AddRegion(0, domain.Region{X: 100, Y: 0, Width: 50, Height: 50})

	if !s.RemoveRegion(0, a.ID) {
		t.Fatalf("remove failed")
	}
	pg, _ := s.ActivePage()
	if len(pg.News) != 1 || pg.News[0].ID != b.ID {
		t.Fatalf("sibling lost identity after removal: %+v", pg.News)
	}
	if s.RemoveRegion(0, a.ID) {
		t.Fatalf("removing twice must fail the second time")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := NewStore(twoPageIssue())
	stored, _ := s.AddRegion(0, domain.Region{X: 0, Y: 0, Width: 50, Height: 50})

	snap := s.Snapshot()
	snap.Pages[0].News[0].Title = "mutated"
	pg, _ := s.ActivePage()
	if pg.News[0].Title != "" {
		t.Fatalf("snapshot aliases store memory")
	}
	_ = stored
}

func TestSetIssueWithServerEchoClearsDirty(t *testing.T) {
	s := NewStore(twoPageIssue())
	s.AddRegion(0, domain.Region{X: 0, Y: 0, Width: 50, Height: 50})
	if !s.Dirty() {
		t.Fatalf("precondition: store should be dirty")
	}
	echo := s.Snapshot()
	echo.Dirty = false
	s.SetIssue(echo)
	if s.Dirty() {
		t.Fatalf("server echo must clear the dirty flag")
	}
}

func TestSetIssueClampsActiveIndex(t *testing.T) {
	s := NewStore(twoPageIssue())
	s.Next()
	single := twoPageIssue()
	single.Pages = single.Pages[:1]
	s.SetIssue(single)
	if s.ActiveIndex() != 0 {
		t.Fatalf("active index not clamped after page count shrank: %d", s.ActiveIndex())
	}
}

func TestSetTitleMarksDirty(t *testing.T) {
	s := NewStore(twoPageIssue())
	s.SetTitle("नवीन शीर्षक")
	if !s.Dirty() {
		t.Fatalf("title change must mark issue dirty")
	}
	s2 := NewStore(twoPageIssue())
	s2.SetTitle("दैनिक अंक")
	if s2.Dirty() {
		t.Fatalf("setting the same title must not dirty the issue")
	}
}
