package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{10, 10},
		{MaxLimit, MaxLimit},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tc := range cases {
		if got := NormalizeLimit(tc.in); got != tc.want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestOffset(t *testing.T) {
	cases := []struct {
		params Params
		want   int
	}{
		{Params{Page: 1, Limit: 25}, 0},
		{Params{Page: 3, Limit: 10}, 20},
		{Params{Page: 0, Limit: 0}, 0},
	}
	for _, tc := range cases {
		if got := tc.params.Offset(); got != tc.want {
			t.Fatalf("Offset(%+v) = %d, want %d", tc.params, got, tc.want)
		}
	}
}

func TestMeta(t *testing.T) {
	meta := Meta(Params{Page: 2, Limit: 10}, 35)
	if meta.TotalPages != 4 {
		t.Fatalf("expected 4 pages, got %d", meta.TotalPages)
	}
	if !meta.HasNextPage || !meta.HasPrevPage {
		t.Fatalf("expected middle page flags, got %+v", meta)
	}

	empty := Meta(Params{Page: 1, Limit: 10}, 0)
	if empty.TotalPages != 1 || empty.HasNextPage || empty.HasPrevPage {
		t.Fatalf("expected single empty page, got %+v", empty)
	}
}
