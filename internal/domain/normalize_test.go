package domain

import "testing"

func TestDisplayTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "underscores", input: "New_York_City", want: "New York City"},
		{name: "no underscores", input: "Bratislava", want: "Bratislava"},
		{name: "trailing underscore", input: "Foo_", want: "Foo"},
		{name: "namespace kept", input: "Kategória:Mestá_na_Slovensku", want: "Kategória:Mestá na Slovensku"},
		{name: "empty", input: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DisplayTitle(tt.input); got != tt.want {
				t.Errorf("DisplayTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestColonCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  int
	}{
		{"Bratislava", 0},
		{"Category:Cities", 1},
		{"Star Wars: Episode I", 1},
		{"Kategorie:Star Wars: Epizoda I", 2},
	}
	for _, tt := range tests {
		if got := ColonCount(tt.input); got != tt.want {
			t.Errorf("ColonCount(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
