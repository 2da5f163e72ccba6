package textutil

import "testing"

func TestSanitizeTag(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"garden", "garden"},
		{"  Camera Tuin  ", "Camera_Tuin"},
		{"Café Entrée", "Cafe_Entree"},
		{"front/back:door", "front-back-door"},
		{"a   b", "a_b"},
		{"what?", "what"},
		{"..", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeTag(tc.in); got != tc.want {
			t.Fatalf("SanitizeTag(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(` a<b>|c"d `); got != "abcd" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}
