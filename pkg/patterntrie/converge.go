package patterntrie

import (
	"math"
	"sort"
	"strings"
)

const defaultConvergeThreshold = 2

// estimatedMinMaxLenExpand widens a merged node's observed length range to
// tolerate values slightly outside what was actually sampled: the minimum
// is halved (when it was more than one) and the maximum is doubled.
func estimatedMinMaxLenExpand(minLen, maxLen int) (int, int) {
	if minLen > 1 {
		minLen /= 2
	}
	maxLen *= 2
	return minLen, maxLen
}

// sortNodes orders a child list either for converging (group leaves apart
// from internal nodes, then by class, then by has-string, then by string)
// or for matching (class-covering nodes first, then lexicographic by
// string, then by class, falling back to minimum length).
func sortNodes(children []*Node, forConverging bool) {
	sort.SliceStable(children, func(i, j int) bool {
		return lessNodes(children[i], children[j], forConverging)
	})
}

func lessNodes(a, b *Node, forConverging bool) bool {
	aStr, aHasStr := a.Token.GetString()
	bStr, bHasStr := b.Token.GetString()
	acls := tokenClass(a.Token)
	bcls := tokenClass(b.Token)

	if forConverging {
		aLeaf, bLeaf := len(a.Children) == 0, len(b.Children) == 0
		if aLeaf != bLeaf {
			return !aLeaf && bLeaf
		}
		if acls != bcls {
			return acls < bcls
		}
		if aHasStr != bHasStr {
			return !aHasStr && bHasStr
		}
		if aHasStr && aStr != bStr {
			return aStr < bStr
		}
	} else {
		if aHasStr != bHasStr {
			return !aHasStr && bHasStr
		}
		if aHasStr && aStr != bStr {
			return aStr < bStr
		}
		if acls != bcls {
			return acls < bcls
		}
	}
	return a.Token.LengthMin() < b.Token.LengthMin()
}

// convergeClassFor classifies a node for the purposes of
// convergeNodesWithSimilarTokens: spaces, weekday/month names, and any
// alphanumeric class beyond plain alphadec are convergeable by class; every
// other node is grouped only by an identical string or number-hole
// skeleton.
func convergeClassFor(t Token) (sc StringClass, convergeable bool) {
	sc = tokenClass(t)
	switch {
	case sc == ClassSpaces:
		return sc, true
	case sc&(ClassWeekday|ClassMonth) != 0:
		return sc, true
	case (sc&ClassMaskAlnum) != ClassNoAlnum && (sc&ClassMaskAlnum) != ClassAlphaDec:
		return sc, true
	default:
		return ClassInvalid, false
	}
}

// convergeNodesWithSimilarTokens merges consecutive siblings (children must
// already be sorted in converging order) that share a convergeable class,
// or that share a number-hole skeleton, or that are all the identical
// string, into a single generalized node.
func convergeNodesWithSimilarTokens(children *[]*Node, threshold int) {
	kidz := *children
	out := make([]*Node, 0, len(kidz))

	for i := 0; i < len(kidz); {
		node := kidz[i]
		useClass, convergeable := convergeClassFor(node.Token)
		iLeaf := len(node.Children) == 0

		istr, iHasStr := node.Token.GetString()
		var skeleton string
		if iHasStr {
			skeleton = numberHolesSkeleton(istr)
		}

		minLen, maxLen := node.Token.LengthMin(), node.Token.LengthMax()
		allSameStrings := true

		j := i + 1
		for j < len(kidz) {
			other := kidz[j]
			if iLeaf != (len(other.Children) == 0) {
				break
			}
			jstr, jHasStr := other.Token.GetString()

			if convergeable {
				if tokenClass(other.Token) != useClass {
					break
				}
				if !iHasStr || !jHasStr || istr != jstr {
					allSameStrings = false
				}
			} else {
				if !iHasStr || !jHasStr || !numberHolesMatchSkeleton(jstr, skeleton) {
					break
				}
				if istr != jstr {
					allSameStrings = false
				}
			}

			if m := other.Token.LengthMin(); m < minLen {
				minLen = m
			}
			if m := other.Token.LengthMax(); m > maxLen {
				maxLen = m
			}
			j++
		}

		runLen := j - i
		if runLen > threshold || (runLen >= 2 && (allSameStrings || useClass == ClassSpaces)) {
			expMin, expMax := estimatedMinMaxLenExpand(minLen, maxLen)
			merged := &Node{}
			switch {
			case allSameStrings:
				merged.Token = NewExactToken(istr)
			case !convergeable:
				merged.Token = &NumberHolesToken{MaxLen: expMax, Skeleton: skeleton}
			default:
				merged.Token = &ClassRangeToken{Class: useClass, MinLen: expMin, MaxLen: expMax}
			}
			for k := i; k < j; k++ {
				merged.Children = append(merged.Children, kidz[k].Children...)
			}
			out = append(out, merged)
		} else {
			out = append(out, kidz[i:j]...)
		}
		i = j
	}

	*children = out
}

// convergeNodesWithRandomTokensAndMatchingSubnodes groups siblings whose
// token looks like a random alphanumeric string and whose subtrees are
// structurally identical, collapsing each such group into one
// ClassRangeToken with the random bit set.
func convergeNodesWithRandomTokensAndMatchingSubnodes(children *[]*Node, threshold int) {
	kidz := *children
	signature := make([]string, len(kidz))
	isCandidate := make([]bool, len(kidz))

	for i, n := range kidz {
		s, hasStr := n.Token.GetString()
		if hasStr && (ClassifyString(s)&ClassMaskAlnum) != ClassNoAlnum && IsRandomAlphaNums(s) {
			isCandidate[i] = true
			signature[i] = signatureOf(n.Children)
		}
	}

	removed := make([]bool, len(kidz))
	for i := 0; i+1 < len(kidz); i++ {
		if !isCandidate[i] || removed[i] {
			continue
		}
		var group []int
		for j := i + 1; j < len(kidz); j++ {
			if isCandidate[j] && !removed[j] && signature[j] == signature[i] {
				group = append(group, j)
			}
		}
		if len(group) < threshold {
			continue
		}

		var merged strings.Builder
		minLen, maxLen := math.MaxInt, 0
		mergeAll := append(group, i)
		for _, idx := range mergeAll {
			s, _ := kidz[idx].Token.GetString()
			merged.WriteString(s)
			if m := kidz[idx].Token.LengthMin(); m < minLen {
				minLen = m
			}
			if m := kidz[idx].Token.LengthMax(); m > maxLen {
				maxLen = m
			}
		}
		if !IsRandomAlphaNums(merged.String()) {
			continue
		}

		minLen, maxLen = estimatedMinMaxLenExpand(minLen, maxLen)
		sc := ClassifyString(merged.String()) & ClassMaskAlnum
		kidz[i].Token = &ClassRangeToken{Class: sc | ClassRandom, MinLen: minLen, MaxLen: maxLen}
		for _, idx := range group {
			removed[idx] = true
		}
	}

	any := false
	for _, r := range removed {
		if r {
			any = true
			break
		}
	}
	if !any {
		return
	}
	out := make([]*Node, 0, len(kidz))
	for idx, n := range kidz {
		if !removed[idx] {
			out = append(out, n)
		}
	}
	*children = out
}

// convergeNodesWithMatchingTokens merges siblings whose serialized token is
// byte-identical and whose leaf-ness matches, folding their children
// together.
func convergeNodesWithMatchingTokens(children *[]*Node) {
	kidz := *children
	signature := make([]string, len(kidz))
	for i, n := range kidz {
		signature[i] = serializeToString(n.Token)
	}

	removed := make([]bool, len(kidz))
	for i := 0; i+1 < len(kidz); i++ {
		if removed[i] {
			continue
		}
		iLeaf := len(kidz[i].Children) == 0
		for j := i + 1; j < len(kidz); j++ {
			if removed[j] {
				continue
			}
			if signature[j] == signature[i] && (len(kidz[j].Children) == 0) == iLeaf {
				kidz[i].Children = append(kidz[i].Children, kidz[j].Children...)
				removed[j] = true
			}
		}
	}

	any := false
	for _, r := range removed {
		if r {
			any = true
			break
		}
	}
	if !any {
		return
	}
	out := make([]*Node, 0, len(kidz))
	for idx, n := range kidz {
		if !removed[idx] {
			out = append(out, n)
		}
	}
	*children = out
}

// convergeSimilarNodes runs the three convergence sub-passes to a fixed
// point, recursing into children between passes, then leaves the child
// list sorted in matching order for the fast matcher.
func convergeSimilarNodes(children *[]*Node, threshold int) {
	for {
		initialLen := len(*children)

		if len(*children) > 1 {
			sortNodes(*children, true)
			convergeNodesWithSimilarTokens(children, threshold)
		}

		for _, kid := range *children {
			convergeSimilarNodes(&kid.Children, threshold)
		}

		if len(*children) > 1 {
			convergeNodesWithRandomTokensAndMatchingSubnodes(children, threshold)
			if len(*children) > 1 {
				convergeNodesWithMatchingTokens(children)
			}
		}

		if len(*children) == initialLen {
			if len(*children) > 1 {
				sortNodes(*children, false)
			}
			return
		}
	}
}
