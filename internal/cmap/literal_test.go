package cmap

import "testing"

func TestIsLiteralToken(t *testing.T) {
	cases := []struct {
		token string
		want  bool
	}{
		{"42", true},
		{"0", true},
		{"0x2A", true},
		{"0b1010", true},
		{"42u", true},
		{"42UL", true},
		{"42ull", true},
		{"3.14", true},
		{"3.14f", true},
		{"1e9", true},
		{"6.022e23", true},
		{`"hello"`, true},
		{"", false},
		{"a", false},
		{"MAX", false},
		{"a+b", false},
		{"1+2", false},
		{"3.1.4", false},
		{"0x", false},
		{"1e", false},
		{"--1", false},
	}
	for _, tc := range cases {
		if got := isLiteralToken(tc.token); got != tc.want {
			t.Errorf("isLiteralToken(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}
