package service

import (
	"errors"
	"fmt"
	"sort"
)

// Sibling 同一父节点（课程或章节）下的一行及其当前位置
type Sibling struct {
	ID       string
	Position int
}

// PositionUpdate 对某一行写入新位置
type PositionUpdate struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

var (
	ErrEmptyReorder      = errors.New("no items provided for reordering")
	ErrIncompleteReorder = errors.New("reorder must include every sibling")
	ErrUnknownSibling    = errors.New("item does not belong to this parent")
	ErrDuplicateSibling  = errors.New("item listed more than once")
	ErrInvalidPosition   = errors.New("positions must form the sequence 1..n")
)

// NextPosition 追加时的新位置：max+1，空集合为 1
func NextPosition(positions []int) int {
	max := 0
	for _, p := range positions {
		if p > max {
			max = p
		}
	}
	return max + 1
}

// Renumber 按当前位置升序（相同位置保持输入顺序）重新分配 1..n，只返回位置发生变化的行
func Renumber(siblings []Sibling) []PositionUpdate {
	ordered := make([]Sibling, len(siblings))
	copy(ordered, siblings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	var updates []PositionUpdate
	for i, s := range ordered {
		if s.Position != i+1 {
			updates = append(updates, PositionUpdate{ID: s.ID, Position: i + 1})
		}
	}
	return updates
}

// ValidatePermutation 提交的排序必须覆盖全部现有行，且位置恰好为 1..n
func ValidatePermutation(current []Sibling, proposed []PositionUpdate) error {
	if len(proposed) == 0 {
		return ErrEmptyReorder
	}

	known := make(map[string]struct{}, len(current))
	for _, s := range current {
		known[s.ID] = struct{}{}
	}

	seenIDs := make(map[string]struct{}, len(proposed))
	seenPositions := make(map[int]struct{}, len(proposed))
	for _, p := range proposed {
		if _, ok := known[p.ID]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSibling, p.ID)
		}
		if _, dup := seenIDs[p.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateSibling, p.ID)
		}
		seenIDs[p.ID] = struct{}{}

		if p.Position < 1 || p.Position > len(current) {
			return fmt.Errorf("%w: %d out of range", ErrInvalidPosition, p.Position)
		}
		if _, dup := seenPositions[p.Position]; dup {
			return fmt.Errorf("%w: %d used twice", ErrInvalidPosition, p.Position)
		}
		seenPositions[p.Position] = struct{}{}
	}

	if len(seenIDs) != len(current) {
		return fmt.Errorf("%w: got %d of %d", ErrIncompleteReorder, len(seenIDs), len(current))
	}
	return nil
}

// ChangedPositions 过滤掉位置未变化的更新
func ChangedPositions(current []Sibling, proposed []PositionUpdate) []PositionUpdate {
	existing := make(map[string]int, len(current))
	for _, s := range current {
		existing[s.ID] = s.Position
	}
	var changed []PositionUpdate
	for _, p := range proposed {
		if existing[p.ID] != p.Position {
			changed = append(changed, p)
		}
	}
	return changed
}

// IsContiguous 位置集合是否恰好为 1..n
func IsContiguous(siblings []Sibling) bool {
	seen := make([]bool, len(siblings)+1)
	for _, s := range siblings {
		if s.Position < 1 || s.Position > len(siblings) || seen[s.Position] {
			return false
		}
		seen[s.Position] = true
	}
	return true
}
