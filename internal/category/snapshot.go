// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package category

import (
	"fmt"
	"strings"

	"csdoc/internal/apperr"
	"csdoc/internal/models"
)

// snapshot is an in-memory copy of the whole tree. Validation runs against
// it and mutations are applied to it before being persisted.
type snapshot struct {
	byID  map[int64]*models.Category
	order []int64
}

func newSnapshot(items []models.Category) *snapshot {
	s := &snapshot{byID: make(map[int64]*models.Category, len(items))}
	for i := range items {
		c := items[i]
		s.byID[c.ID] = &c
		s.order = append(s.order, c.ID)
	}
	return s
}

func (s *snapshot) labels() map[int64]string {
	out := make(map[int64]string, len(s.byID))
	for id, c := range s.byID {
		out[id] = c.Label
	}
	return out
}

// children returns the direct children of id in display order.
func (s *snapshot) children(id int64) []*models.Category {
	var out []*models.Category
	for _, cid := range s.order {
		c := s.byID[cid]
		if c.ParentID != nil && *c.ParentID == id {
			out = append(out, c)
		}
	}
	return out
}

// descendants returns id and everything below it, breadth first. A visited
// set keeps corrupt (cyclic) data from looping forever.
func (s *snapshot) descendants(id int64) []int64 {
	out := []int64{id}
	visited := map[int64]bool{id: true}
	for i := 0; i < len(out); i++ {
		for _, c := range s.children(out[i]) {
			if !visited[c.ID] {
				visited[c.ID] = true
				out = append(out, c.ID)
			}
		}
	}
	return out
}

// hasAncestor reports whether ancestorID is start or appears on start's
// parent chain.
func (s *snapshot) hasAncestor(start, ancestorID int64) bool {
	seen := map[int64]bool{}
	for cur := start; ; {
		if cur == ancestorID {
			return true
		}
		if seen[cur] {
			// Already cyclic; treat as reaching the node so nothing is
			// attached to the loop.
			return true
		}
		seen[cur] = true
		c, ok := s.byID[cur]
		if !ok || c.ParentID == nil {
			return false
		}
		cur = *c.ParentID
	}
}

// apply validates and applies a label and parent change to c, which must
// belong to the snapshot. It reports whether the parent changed.
func (s *snapshot) apply(c *models.Category, label *string, parent models.OptionalID) (bool, error) {
	if label != nil && strings.TrimSpace(*label) != "" {
		l, err := validLabel(*label)
		if err != nil {
			return false, err
		}
		c.Label = l
	}

	if !parent.Set {
		return false, nil
	}

	if parent.Value == nil {
		moved := c.ParentID != nil
		c.ParentID = nil
		c.Depth = 0
		return moved, nil
	}

	pid := *parent.Value
	if pid == c.ID {
		return false, apperr.InvalidCode(apperr.CodeSelfParent,
			fmt.Sprintf("category %d cannot be its own parent", c.ID))
	}
	np, ok := s.byID[pid]
	if !ok {
		return false, apperr.NotFound(fmt.Sprintf("parent category %d not found", pid))
	}
	if s.hasAncestor(pid, c.ID) {
		return false, apperr.InvalidCode(apperr.CodeCircular,
			fmt.Sprintf("category %d cannot move under its descendant %d", c.ID, pid))
	}

	moved := c.ParentID == nil || *c.ParentID != pid
	c.ParentID = &pid
	c.Depth = np.Depth + 1
	return moved, nil
}

// relevel recomputes the depth of every category below root from root's
// depth and returns the ones that changed.
func (s *snapshot) relevel(root *models.Category) []*models.Category {
	var changed []*models.Category
	queue := []*models.Category{root}
	visited := map[int64]bool{root.ID: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range s.children(cur.ID) {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			if child.Depth != cur.Depth+1 {
				child.Depth = cur.Depth + 1
				changed = append(changed, child)
			}
			queue = append(queue, child)
		}
	}
	return changed
}
