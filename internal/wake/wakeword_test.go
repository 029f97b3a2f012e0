package wake

import "testing"

var testWakeWords = []string{"hey mira", "mira"}

func TestCleanText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hey Mira, what's the weather?", "hey mira what's the weather"},
		{"  multiple   spaces ", "multiple spaces"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := CleanText(tc.in); got != tc.want {
			t.Fatalf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestContainsWakeWord(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"hey mira what time is it", true},
		{"so mira can you help", true},
		{"the miracle continued", false},
		{"admiral on deck", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ContainsWakeWord(CleanText(tc.in), testWakeWords); got != tc.want {
			t.Fatalf("ContainsWakeWord(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestEndsWithWakeWord(t *testing.T) {
	if !EndsWithWakeWord("hey mira", testWakeWords) {
		t.Fatalf("bare wake word should match")
	}
	if !EndsWithWakeWord("umm hey mira", testWakeWords) {
		t.Fatalf("trailing wake word should match")
	}
	if EndsWithWakeWord("hey mira what's up", testWakeWords) {
		t.Fatalf("wake word with trailing content should not match")
	}
}

func TestStripWakeWord(t *testing.T) {
	cases := []struct{ in, want string }{
		{"hey mira what's the weather", "what's the weather"},
		{"Hey Mira, what's the weather?", "what's the weather"},
		{"umm hey mira set a timer", "set a timer"},
		{"hey mira", ""},
		{"no trigger here", "no trigger here"},
	}
	for _, tc := range cases {
		if got := StripWakeWord(tc.in, testWakeWords); got != tc.want {
			t.Fatalf("StripWakeWord(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
