/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "fmt"

// ValidRect reports whether rc meets the minimum drawable size and has
// non-negative origin.
func ValidRect(rc Rect) bool {
	return rc.X >= 0 && rc.Y >= 0 && rc.Width >= MinRegionSize && rc.Height >= MinRegionSize
}

// ClampRect clamps rc into the page's natural bounds. The origin is
// pulled inside the page first, then the size is trimmed so the far
// edge stays within width/height. Size may drop below MinRegionSize for
// rectangles drawn mostly outside the page; callers re-validate.
func ClampRect(rc Rect, pg Page) Rect {
	if rc.X < 0 {
		rc.Width += rc.X
		rc.X = 0
	}
	if rc.Y < 0 {
		rc.Height += rc.Y
		rc.Y = 0
	}
	if rc.X > pg.Width {
		rc.X = pg.Width
	}
	if rc.Y > pg.Height {
		rc.Y = pg.Height
	}
	if rc.X+rc.Width > pg.Width {
		rc.Width = pg.Width - rc.X
	}
	if rc.Y+rc.Height > pg.Height {
		rc.Height = pg.Height - rc.Y
	}
	if rc.Width < 0 {
		rc.Width = 0
	}
	if rc.Height < 0 {
		rc.Height = 0
	}
	return rc
}

// ValidatePages checks the page-number invariant: numbers are 1-based,
// unique and contiguous within the issue.
func ValidatePages(pages []Page) error {
	seen := make(map[int]bool, len(pages))
	for _, pg := range pages {
		if pg.PageNo < 1 {
			return fmt.Errorf("page number %d is not 1-based", pg.PageNo)
		}
		if pg.Width <= 0 || pg.Height <= 0 {
			return fmt.Errorf("page %d has invalid natural size %gx%g", pg.PageNo, pg.Width, pg.Height)
		}
		if seen[pg.PageNo] {
			return fmt.Errorf("duplicate page number %d", pg.PageNo)
		}
		seen[pg.PageNo] = true
	}
	for n := 1; n <= len(pages); n++ {
		if !seen[n] {
			return fmt.Errorf("page numbers not contiguous: missing %d", n)
		}
	}
	return nil
}

// ValidateRegion checks a region against its page bounds and the
// annotated-mode field requirements.
func ValidateRegion(r Region, pg Page) error {
	rc := r.Rect()
	if !ValidRect(rc) {
		return fmt.Errorf("region %d: rectangle %gx%g below %dpx minimum", r.ID, rc.Width, rc.Height, MinRegionSize)
	}
	if rc.X+rc.Width > pg.Width || rc.Y+rc.Height > pg.Height {
		return fmt.Errorf("region %d: rectangle exceeds page %d bounds", r.ID, pg.PageNo)
	}
	if r.EffectiveKind() == RegionAnnotated && (r.Title == "" || r.Content == "") {
		return fmt.Errorf("region %d: annotated region requires title and content", r.ID)
	}
	return nil
}
