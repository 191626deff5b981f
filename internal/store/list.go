package store

import "slices"

// The helpers below never modify their input slice; reducers rely on that to
// keep earlier state snapshots intact.

func indexOf[T any](list []T, id int64, key func(*T) int64) int {
	for i := range list {
		if key(&list[i]) == id {
			return i
		}
	}
	return -1
}

// upsert replaces the entry with item's key in place, or appends item.
func upsert[T any](list []T, item T, key func(*T) int64) []T {
	out := slices.Clone(list)
	if i := indexOf(out, key(&item), key); i >= 0 {
		out[i] = item
		return out
	}
	return append(out, item)
}

// replace swaps the entry with item's key for item. The second result is the
// previous entry, or nil when no entry had that key (list is then returned
// unchanged).
func replace[T any](list []T, item T, key func(*T) int64) ([]T, *T) {
	i := indexOf(list, key(&item), key)
	if i < 0 {
		return list, nil
	}
	prev := list[i]
	out := slices.Clone(list)
	out[i] = item
	return out, &prev
}

// without drops every entry with the given key.
func without[T any](list []T, id int64, key func(*T) int64) []T {
	if indexOf(list, id, key) < 0 {
		return list
	}
	out := make([]T, 0, len(list))
	for i := range list {
		if key(&list[i]) != id {
			out = append(out, list[i])
		}
	}
	return out
}

// appended returns a copy of list with item at the end.
func appended[T any](list []T, item T) []T {
	out := make([]T, len(list), len(list)+1)
	copy(out, list)
	return append(out, item)
}

// cloneList copies list, turning nil into an empty slice.
func cloneList[T any](list []T) []T {
	out := make([]T, len(list))
	copy(out, list)
	return out
}
