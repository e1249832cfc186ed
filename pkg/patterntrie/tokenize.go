package patterntrie

// HeadingToken returns the longest prefix of s that is a single tokenizer
// run: either all alphanumeric bytes or all non-alphanumeric bytes. Bytes
// with the high bit set count as alphabetic.
func HeadingToken(s string) string {
	if s == "" {
		return ""
	}
	alnum := isAlphaNumeric(s[0])
	for i := 1; i < len(s); i++ {
		if isAlphaNumeric(s[i]) != alnum {
			return s[:i]
		}
	}
	return s
}

// Tokenize splits s into its full sequence of alternating alphanumeric and
// non-alphanumeric runs.
func Tokenize(s string) []string {
	var out []string
	for s != "" {
		h := HeadingToken(s)
		out = append(out, h)
		s = s[len(h):]
	}
	return out
}
