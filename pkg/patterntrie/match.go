package patterntrie

import "sort"

// binsearchThreshold is the remaining-children count above which the
// matcher switches from a linear scan to a binary search over the
// lexicographically sorted run of Exact children.
const binsearchThreshold = 10

// matchByNodes recursively matches value against a child list, assuming the
// list is in matching order (class-covering nodes first, then Exact nodes
// sorted lexicographically).
func matchByNodes(value string, children []*Node) bool {
	if value == "" {
		return len(children) == 0
	}
	if len(children) == 0 {
		return false
	}

	head := HeadingToken(value)
	tail := value[len(head):]

	i := 0
	for ; i < len(children); i++ {
		kid := children[i]
		if _, hasStr := kid.Token.GetString(); hasStr && len(children)-i > binsearchThreshold {
			break
		}
		if kid.Token.Match(head) && matchByNodes(tail, kid.Children) {
			return true
		}
	}

	if i >= len(children) {
		return false
	}

	lo := i
	pos := lo + sort.Search(len(children)-lo, func(k int) bool {
		s, _ := children[lo+k].Token.GetString()
		return s > head
	})
	for k := pos - 1; k >= lo; k-- {
		s, _ := children[k].Token.GetString()
		if s != head {
			break
		}
		if matchByNodes(tail, children[k].Children) {
			return true
		}
	}
	return false
}
