/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"testing"
)

func TestSortPagesBySortOrderWithPageNoFallback(t *testing.T) {
	pages := []Page{
		{PageNo: 3, Width: 800, Height: 1200},
		{PageNo: 1, SortOrder: 2, Width: 800, Height: 1200},
		{PageNo: 2, SortOrder: 1, Width: 800, Height: 1200},
	}
	SortPages(pages)
	// sortOrder 1, 2, then bare pageNo 3
	got := []int{pages[0].PageNo, pages[1].PageNo, pages[2].PageNo}
	want := []int{2, 1, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected page order: %v", got)
		}
	}
}

func TestNormalizeBackfillsKindsAndNewsSlices(t *testing.T) {
	art := "a-42"
	ep := Epaper{
		ID:    "ep-1",
		Title: "नव मंच - 28 डिसेंबर 2025",
		Pages: []Page{
			{PageNo: 2, Width: 800, Height: 1200},
			{PageNo: 1, Width: 800, Height: 1200, News: []Region{
				{ID: 10, X: 5, Y: 5, Width: 50, Height: 50},
				{ID: 11, X: 5, Y: 5, Width: 50, Height: 50, Title: "भूकंप बातमी", Content: "तपशील...", ArticleID: &art},
			}},
		},
	}
	ep.Normalize()
	if ep.Pages[0].PageNo != 1 || ep.Pages[1].PageNo != 2 {
		t.Fatalf("pages not sorted: %+v", ep.Pages)
	}
	if ep.Pages[1].News == nil {
		t.Fatalf("nil news slice survived Normalize")
	}
	if k := ep.Pages[0].News[0].Kind; k != RegionBare {
		t.Fatalf("metadata-free region got kind %q", k)
	}
	if k := ep.Pages[0].News[1].Kind; k != RegionAnnotated {
		t.Fatalf("annotated region got kind %q", k)
	}
}

func TestCloneIsDeep(t *testing.T) {
	ep := Epaper{Pages: []Page{{PageNo: 1, Width: 100, Height: 100, News: []Region{{ID: 1, X: 1}}}}}
	cp := ep.Clone()
	cp.Pages[0].News[0].X = 99
	cp.Pages[0].News = append(cp.Pages[0].News, Region{ID: 2})
	if ep.Pages[0].News[0].X != 1 || len(ep.Pages[0].News) != 1 {
		t.Fatalf("clone shares region storage with original")
	}
}

func TestClampRect(t *testing.T) {
	pg := Page{PageNo: 1, Width: 800, Height: 1200}
	cases := []struct {
		name string
		in   Rect
		want Rect
	}{
		{"inside", Rect{100, 100, 200, 300}, Rect{100, 100, 200, 300}},
		{"negative origin", Rect{-20, -10, 100, 100}, Rect{0, 0, 80, 90}},
		{"overflow right/bottom", Rect{700, 1100, 200, 300}, Rect{700, 1100, 100, 100}},
		{"fully outside", Rect{900, 1300, 50, 50}, Rect{800, 1200, 0, 0}},
	}
	for _, c := range cases {
		if got := ClampRect(c.in, pg); got != c.want {
			t.Fatalf("%s: ClampRect = %+v, want %+v", c.name, got, c.want)
		}
	}
}

func TestValidatePages(t *testing.T) {
	ok := []Page{{PageNo: 1, Width: 10, Height: 10}, {PageNo: 2, Width: 10, Height: 10}}
	if err := ValidatePages(ok); err != nil {
		t.Fatalf("valid pages rejected: %v", err)
	}
	dup := []Page{{PageNo: 1, Width: 10, Height: 10}, {PageNo: 1, Width: 10, Height: 10}}
	if err := ValidatePages(dup); err == nil {
		t.Fatalf("duplicate page numbers accepted")
	}
	gap := []Page{{PageNo: 1, Width: 10, Height: 10}, {PageNo: 3, Width: 10, Height: 10}}
	if err := ValidatePages(gap); err == nil {
		t.Fatalf("non-contiguous page numbers accepted")
	}
}

func TestValidateRegion(t *testing.T) {
	pg := Page{PageNo: 1, Width: 800, Height: 1200}
	small := Region{ID: 1, X: 50, Y: 50, Width: 5, Height: 3}
	if err := ValidateRegion(small, pg); err == nil {
		t.Fatalf("sub-minimum region accepted")
	}
	out := Region{ID: 2, X: 790, Y: 0, Width: 50, Height: 50}
	if err := ValidateRegion(out, pg); err == nil {
		t.Fatalf("out-of-bounds region accepted")
	}
	annot := Region{ID: 3, X: 0, Y: 0, Width: 50, Height: 50, Kind: RegionAnnotated}
	if err := ValidateRegion(annot, pg); err == nil {
		t.Fatalf("annotated region without metadata accepted")
	}
	bare := Region{ID: 4, X: 0, Y: 0, Width: 50, Height: 50, Kind: RegionBare}
	if err := ValidateRegion(bare, pg); err != nil {
		t.Fatalf("bare region rejected: %v", err)
	}
}

func TestRegionWireShape(t *testing.T) {
	// articleId must round-trip as explicit null for bare regions; the
	// server treats the field as always present.
	r := Region{ID: 7, X: 1, Y: 2, Width: 30, Height: 40, Kind: RegionBare}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, present := m["articleId"]; !present || v != nil {
		t.Fatalf("articleId not serialized as null: %v", m)
	}
}
