package patterntrie

// toStorageRepresentation coalesces linear chains of single-child Exact
// nodes into one node carrying the concatenated string, depth-first so each
// node merges with an already-fully-coalesced child. The result is
// unsuitable for Match, which relies on one node per tokenizer token.
func toStorageRepresentation(children *[]*Node) {
	for _, kid := range *children {
		toStorageRepresentation(&kid.Children)
		if len(kid.Children) == 1 {
			kidStr, kidHas := kid.Token.GetString()
			childStr, childHas := kid.Children[0].Token.GetString()
			if kidHas && childHas {
				kid.Token = NewExactToken(kidStr + childStr)
				kid.Children = kid.Children[0].Children
			}
		}
	}
	sortNodes(*children, false)
}

// toMemoryRepresentation explodes a coalesced Exact node back into one node
// per tokenizer token, peeling off the leading run at each level and
// recursing into the new tail node.
func toMemoryRepresentation(children *[]*Node) {
	for _, kid := range *children {
		if str, hasStr := kid.Token.GetString(); hasStr && len(str) > 1 {
			head := HeadingToken(str)
			if len(head) < len(str) {
				tail := &Node{Token: NewExactToken(str[len(head):]), Children: kid.Children}
				kid.Children = []*Node{tail}
				kid.Token = NewExactToken(head)
			}
		}
		toMemoryRepresentation(&kid.Children)
	}
	sortNodes(*children, false)
}
