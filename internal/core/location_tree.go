package core

import "sort"

// LeafDescendants walks the location tree breadth-first from every id in
// parentIDs and returns the leaf locations found underneath them. A leaf
// is a location no other location references as parent. Overlapping or
// nested parent sets are handled with a visited set, so the walk always
// terminates and never yields duplicates.
func LeafDescendants(all []Location, parentIDs []int) []Location {
	byID := make(map[int]Location, len(all))
	children := make(map[int][]int, len(all))
	for _, loc := range all {
		byID[loc.ID] = loc
		if loc.ParentID != nil {
			children[*loc.ParentID] = append(children[*loc.ParentID], loc.ID)
		}
	}

	visited := make(map[int]bool)
	queue := make([]int, 0, len(parentIDs))
	for _, id := range parentIDs {
		if _, ok := byID[id]; !ok || visited[id] {
			continue
		}
		visited[id] = true
		queue = append(queue, id)
	}

	var leaves []Location
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		kids := children[id]
		if len(kids) == 0 {
			// A starting parent with no children is itself a leaf.
			leaves = append(leaves, byID[id])
			continue
		}
		for _, kid := range kids {
			if visited[kid] {
				continue
			}
			visited[kid] = true
			queue = append(queue, kid)
		}
	}
	return leaves
}

// SortLocationsByCode orders locations by code using natural comparison,
// so "A2" sorts before "A10". The sort is stable, which together with the
// unique code column makes the leaf ordering deterministic across calls.
func SortLocationsByCode(locs []Location) {
	sort.SliceStable(locs, func(i, j int) bool {
		return naturalLess(locs[i].Code, locs[j].Code)
	})
}

// naturalLess compares two strings treating runs of digits as numbers.
func naturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			// Compare the full digit runs numerically. Leading zeros are
			// skipped so "007" == "7"; the shorter significant run wins.
			si, sj := i, j
			for si < len(a) && a[si] == '0' {
				si++
			}
			for sj < len(b) && b[sj] == '0' {
				sj++
			}
			ei, ej := si, sj
			for ei < len(a) && isDigit(a[ei]) {
				ei++
			}
			for ej < len(b) && isDigit(b[ej]) {
				ej++
			}
			if ei-si != ej-sj {
				return ei-si < ej-sj
			}
			if na, nb := a[si:ei], b[sj:ej]; na != nb {
				return na < nb
			}
			i, j = ei, ej
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
