package cache

import "testing"

func TestKeyCanonicalForm(t *testing.T) {
	type params struct {
		Name  string `json:"name"`
		Major string `json:"major"`
	}

	tests := []struct {
		name  string
		a, b  Key
		equal bool
	}{
		{"same strings", Key{"groups"}, Key{"groups"}, true},
		{"map key order", Key{"users-search", map[string]any{"a": 1, "b": 2}}, Key{"users-search", map[string]any{"b": 2, "a": 1}}, true},
		{"struct and map", Key{"users-search", params{Name: "an", Major: "SE"}}, Key{"users-search", map[string]any{"major": "SE", "name": "an"}}, true},
		{"int and string id differ", Key{"group", 42}, Key{"group", "42"}, false},
		{"sibling families differ", Key{"group"}, Key{"groups"}, false},
		{"nil segment", Key{"user", nil}, Key{"user", nil}, true},
		{"length differs", Key{"group", "42"}, Key{"group", "42", "posts"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("%s.Equal(%s) = %v, want %v", tt.a, tt.b, got, tt.equal)
			}
		})
	}
}

func TestKeyHasPrefix(t *testing.T) {
	k := Key{"group", "42", map[string]any{"page": 1}}

	tests := []struct {
		prefix Key
		want   bool
	}{
		{Key{}, true},
		{Key{"group"}, true},
		{Key{"group", "42"}, true},
		{Key{"group", "43"}, false},
		{Key{"groups"}, false},
		{Key{"gro"}, false},
		{Key{"group", "42", map[string]any{"page": 1}}, true},
		{Key{"group", "42", map[string]any{"page": 1}, "extra"}, false},
	}
	for _, tt := range tests {
		if got := k.HasPrefix(tt.prefix); got != tt.want {
			t.Errorf("HasPrefix(%s) = %v, want %v", tt.prefix, got, tt.want)
		}
	}
}

func TestKeyString(t *testing.T) {
	got := Key{"posts", map[string]any{"page": 2, "limit": 10}}.String()
	want := `["posts",{"limit":10,"page":2}]`
	if got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}
