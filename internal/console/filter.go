package console

import (
	"cmp"
	"slices"
	"strings"
)

// DefaultViewport is the list capacity used when none is configured.
const DefaultViewport = 11

// listChrome is the number of viewport rows taken by the list header and
// divider.
const listChrome = 2

// FilterToolchains returns the records whose identifier or channel contains
// query, ignoring case. A blank query returns list itself.
func FilterToolchains(list []ToolchainRecord, query string) []ToolchainRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list
	}
	var out []ToolchainRecord
	for _, r := range list {
		if strings.Contains(strings.ToLower(r.ID), q) || strings.Contains(strings.ToLower(string(r.Channel)), q) {
			out = append(out, r)
		}
	}
	return out
}

// SortToolchains returns a copy of list ordered active first, then by
// identifier.
func SortToolchains(list []ToolchainRecord) []ToolchainRecord {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b ToolchainRecord) int {
		if a.Active != b.Active {
			if a.Active {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// VisibleRows returns how many list rows fit in a viewport.
func VisibleRows(viewport int) int {
	return max(1, viewport-listChrome)
}

// AdjustListOffset returns the scroll offset that keeps focused visible
// while moving as little as possible from current. A negative focused
// index only clamps current.
func AdjustListOffset(focused, total, viewport, current int) int {
	visible := VisibleRows(viewport)
	if total <= visible {
		return 0
	}
	maxOffset := total - visible
	offset := min(max(current, 0), maxOffset)
	if focused >= 0 {
		if focused < offset {
			offset = focused
		}
		if focused >= offset+visible {
			offset = focused - visible + 1
		}
	}
	return min(max(offset, 0), maxOffset)
}
