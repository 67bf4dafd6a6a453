package services

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Aladdin", "aladdin"},
		{"The Desert Prince", "the-desert-prince"},
		{"  Night  Market!  ", "night-market"},
		{"Act 2: The Cave", "act-2-the-cave"},
		{"---", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
