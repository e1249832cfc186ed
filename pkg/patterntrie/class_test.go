package patterntrie

import "testing"

func TestClassifyStringBaseClass(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  StringClass
	}{
		{"decimal", "12345", ClassDecimal},
		{"hex lowercase", "deadbeef", ClassHex},
		{"hex with prefix", "0xFF", ClassHex},
		{"alpha", "hello", ClassAlphaDec},
		{"mixed alnum not hex", "abc123xyz", ClassAlphaDec},
		{"spaces", "   ", ClassSpaces},
		{"punctuation", "---", ClassPunctuation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyString(tt.input)
			if got&ClassMaskAlnum != tt.want&ClassMaskAlnum && tt.want&ClassMaskAlnum != 0 {
				t.Errorf("ClassifyString(%q) alnum = %v, want %v", tt.input, got&ClassMaskAlnum, tt.want&ClassMaskAlnum)
			}
			if tt.want&(ClassSpaces|ClassPunctuation) != 0 && got&tt.want == 0 {
				t.Errorf("ClassifyString(%q) = %v, want bit %v set", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassifyStringCalendarWords(t *testing.T) {
	tests := []struct {
		input    string
		wantBits StringClass
	}{
		{"Monday", ClassWeekday},
		{"mon", ClassWeekday},
		{"January", ClassMonth},
		{"dec", ClassMonth},
		{"notaday", 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ClassifyString(tt.input)
			if tt.wantBits != 0 && got&tt.wantBits == 0 {
				t.Errorf("ClassifyString(%q) = %v, want bit %v set", tt.input, got, tt.wantBits)
			}
			if tt.wantBits == 0 && got&(ClassWeekday|ClassMonth) != 0 {
				t.Errorf("ClassifyString(%q) = %v, wanted no calendar bits", tt.input, got)
			}
		})
	}
}

func TestClassifyStringWeekdayAndMonthAreDistinctBits(t *testing.T) {
	if ClassWeekday == ClassMonth {
		t.Fatal("ClassWeekday and ClassMonth must be distinct bits")
	}
	if ClassWeekday&ClassMonth != 0 {
		t.Fatal("ClassWeekday and ClassMonth must not overlap")
	}
}

func TestFitsClass(t *testing.T) {
	tests := []struct {
		name  string
		value string
		class StringClass
		want  bool
	}{
		{"decimal fits decimal", "123", ClassDecimal, true},
		{"hex does not fit decimal-requiring class", "1a2b", ClassDecimal, false},
		{"decimal fits hex class", "123", ClassHex, true},
		{"alpha does not fit decimal", "abc", ClassDecimal, false},
		{"spaces rejected unless allowed", "a b", ClassAlphaDec, false},
		{"spaces allowed", "a b", ClassAlphaDec | ClassSpaces, true},
		{"weekday class only matches weekday", "Monday", ClassAlphaDec | ClassWeekday, true},
		{"weekday class rejects month", "January", ClassAlphaDec | ClassWeekday, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FitsClass(tt.value, tt.class); got != tt.want {
				t.Errorf("FitsClass(%q, %v) = %v, want %v", tt.value, tt.class, got, tt.want)
			}
		})
	}
}

func TestIsRandomAlphaNums(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"too short", "abc", false},
		{"repetitive", "aaaaaaaaaa", false},
		{"balanced random looking", "aB3dE9fK2m", true},
		{"all lowercase low entropy", "aaaabbbbcccc", false},
		{"heavily skewed case", "ABCDEFGHIJ1k", false},
		{"lowercase-only hex digest, length 32", "3f2504e04f8911d39a0c0305e82c3301", true},
		{"lowercase-only hex digest, length 16", "deadbeefcafebabe", true},
		{"lowercase alnum session token, length 20", "ujzde8gxd6ncf10epf91", true},
		{"natural word repeated, not random", "sessionsessionsession", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRandomAlphaNums(tt.input); got != tt.want {
				t.Errorf("IsRandomAlphaNums(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassifyStringMonotonicWithFitsClass(t *testing.T) {
	samples := []string{"123", "abc", "deadBEEF", "Mon", "January", "---", "   "}
	for _, s := range samples {
		sc := ClassifyString(s)
		if !FitsClass(s, sc) {
			t.Errorf("FitsClass(%q, ClassifyString(%q)=%v) = false, want true", s, s, sc)
		}
	}
}
