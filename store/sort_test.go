package store

import "testing"

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"page_1.png", "page_2.png", true},
		{"page_2.png", "page_10.png", true},
		{"page_10.png", "page_2.png", false},
		{"a.png", "b.png", true},
		{"img1.jpg", "img1.jpg", false},
		{"file_001.png", "file_002.png", true},
		{"IMG_5.png", "img_40.png", true},
		{"a", "ab", true},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			if got := NaturalLess(tt.a, tt.b); got != tt.want {
				t.Errorf("NaturalLess(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSorted(t *testing.T) {
	items := []Item{{Name: "b10.png"}, {Name: "a.png"}, {Name: "b2.png"}}

	names := func(in []Item) []string {
		out := make([]string, len(in))
		for i, it := range in {
			out[i] = it.Name
		}
		return out
	}

	tests := []struct {
		order SortOrder
		want  []string
	}{
		{SortNone, []string{"b10.png", "a.png", "b2.png"}},
		{SortAsc, []string{"a.png", "b2.png", "b10.png"}},
		{SortDesc, []string{"b10.png", "b2.png", "a.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.order.String(), func(t *testing.T) {
			got := names(Sorted(items, tt.order))
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("Sorted(%v) = %v, want %v", tt.order, got, tt.want)
				}
			}
		})
	}

	if SortDesc.Next() != SortNone {
		t.Error("SortDesc.Next() should wrap to SortNone")
	}
}
