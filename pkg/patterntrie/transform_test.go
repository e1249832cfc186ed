package patterntrie

import "testing"

func TestToStorageRepresentationCoalescesChain(t *testing.T) {
	root := []*Node{
		{Token: NewExactToken("a"), Children: []*Node{
			{Token: NewExactToken("b"), Children: []*Node{
				{Token: NewExactToken("c")},
			}},
		}},
	}
	toStorageRepresentation(&root)

	if len(root) != 1 {
		t.Fatalf("got %d root nodes, want 1", len(root))
	}
	s, ok := root[0].Token.GetString()
	if !ok || s != "abc" {
		t.Fatalf("coalesced token = (%q, %v), want (abc, true)", s, ok)
	}
	if len(root[0].Children) != 0 {
		t.Errorf("coalesced node should be a leaf, has %d children", len(root[0].Children))
	}
}

func TestToMemoryRepresentationExplodesChain(t *testing.T) {
	root := []*Node{
		{Token: NewExactToken("req-0001")},
	}
	toMemoryRepresentation(&root)

	var got []string
	n := root
	for len(n) == 1 {
		s, _ := n[0].Token.GetString()
		got = append(got, s)
		n = n[0].Children
	}
	want := []string{"req", "-", "0001"}
	if len(got) != len(want) {
		t.Fatalf("exploded chain = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("exploded chain[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStorageAndMemoryRoundTrip(t *testing.T) {
	var root []*Node
	buildRecurse(&root, []string{"GET /x", "GET /y", "POST /x"})
	convergeSimilarNodes(&root, defaultConvergeThreshold)

	before := signatureOf(root)
	toStorageRepresentation(&root)
	toMemoryRepresentation(&root)
	after := signatureOf(root)

	if before != after {
		t.Errorf("storage/memory round trip changed the tree:\nbefore=%q\nafter=%q", before, after)
	}
}
