/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-page histories of region edits so an operator
// can step back through mapping mistakes without re-drawing.
package undo

import (
	"sync"
	"time"

	"epaperadmin/internal/domain"
)

// Snapshot captures one page's full region list at a point in time.
type Snapshot struct {
	PageNo  int
	Regions []domain.Region
	TS      time.Time
}

// Config controls depth caps and coalescing behavior.
type Config struct {
	// MaxPerPage limits snapshots kept per page (0 means unlimited).
	MaxPerPage int
	// MaxRegionsTotal is a soft cap on region entries held across all
	// stacks; oldest snapshots are pruned when exceeded.
	MaxRegionsTotal int
	// MinInterval coalesces snapshots captured within the interval for
	// the same page, replacing the previous one instead of pushing.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack per page. Safe for
// concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex

	undo map[int][]Snapshot
	redo map[int][]Snapshot

	totalRegions int
}

// NewManager applies conservative defaults for unset config values.
func NewManager(cfg Config) *Manager {
	if cfg.MaxRegionsTotal <= 0 {
		cfg.MaxRegionsTotal = 4096
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[int][]Snapshot), redo: make(map[int][]Snapshot)}
}

// Push records a snapshot for a page. If within MinInterval from the
// last snapshot on the same page, it replaces the last one. Any push
// clears the redo stack for that page.
func (m *Manager) Push(s Snapshot) {
	s.Regions = cloneRegions(s.Regions)
	if s.TS.IsZero() {
		s.TS = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.PageNo]
	if n := len(stack); n > 0 && s.TS.Sub(stack[n-1].TS) < m.cfg.MinInterval {
		m.totalRegions += len(s.Regions) - len(stack[n-1].Regions)
		stack[n-1] = s
		m.undo[s.PageNo] = stack
		m.redo[s.PageNo] = nil
		m.enforceCapsLocked(s.PageNo)
		return
	}
	m.undo[s.PageNo] = append(stack, s)
	m.totalRegions += len(s.Regions)
	m.redo[s.PageNo] = nil
	m.enforceCapsLocked(s.PageNo)
}

// Undo pops the page's undo stack and returns the snapshot to restore.
// current is the page's region list before the undo; it is parked on
// the redo stack so Redo can bring it back.
func (m *Manager) Undo(pageNo int, current []domain.Region) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[pageNo]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[pageNo] = stack[:len(stack)-1]
	m.totalRegions -= len(s.Regions)
	m.redo[pageNo] = append(m.redo[pageNo], Snapshot{PageNo: pageNo, Regions: cloneRegions(current), TS: time.Now()})
	return s, true
}

// Redo pops the page's redo stack and returns the snapshot to restore,
// parking current back on the undo stack.
func (m *Manager) Redo(pageNo int, current []domain.Region) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[pageNo]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[pageNo] = r[:len(r)-1]
	m.undo[pageNo] = append(m.undo[pageNo], Snapshot{PageNo: pageNo, Regions: cloneRegions(current), TS: time.Now()})
	m.totalRegions += len(current)
	m.enforceCapsLocked(pageNo)
	return s, true
}

// ClearPage drops both stacks for a page (e.g. after switching issues).
func (m *Manager) ClearPage(pageNo int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[pageNo] {
		m.totalRegions -= len(s.Regions)
	}
	delete(m.undo, pageNo)
	delete(m.redo, pageNo)
	if m.totalRegions < 0 {
		m.totalRegions = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalRegions, pages, snapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages = len(m.undo)
	for _, v := range m.undo {
		snapshots += len(v)
	}
	return m.totalRegions, pages, snapshots
}

func (m *Manager) enforceCapsLocked(pageNo int) {
	if m.cfg.MaxPerPage > 0 {
		stack := m.undo[pageNo]
		if extra := len(stack) - m.cfg.MaxPerPage; extra > 0 {
			for i := 0; i < extra; i++ {
				m.totalRegions -= len(stack[i].Regions)
			}
			m.undo[pageNo] = append([]Snapshot{}, stack[extra:]...)
		}
	}
	// Global cap: prune the oldest snapshot across all pages.
	for m.cfg.MaxRegionsTotal > 0 && m.totalRegions > m.cfg.MaxRegionsTotal {
		oldestPage := 0
		found := false
		var oldestTS time.Time
		for page, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestPage = page
				oldestTS = stack[0].TS
				found = true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestPage]
		m.totalRegions -= len(stack[0].Regions)
		m.undo[oldestPage] = stack[1:]
		if len(m.undo[oldestPage]) == 0 {
			delete(m.undo, oldestPage)
		}
	}
}

func cloneRegions(in []domain.Region) []domain.Region {
	out := make([]domain.Region, len(in))
	copy(out, in)
	return out
}
