package utils

import "testing"

type fakeRow struct {
	name    string
	comment string
}

func (r fakeRow) SearchText() []string {
	return []string{r.name, r.comment}
}

func TestSearchFilter_EmptyTermReturnsEverything(t *testing.T) {
	rows := []fakeRow{{name: "claims"}, {name: "members"}}

	got := SearchFilter(rows, "")
	if len(got) != 2 {
		t.Fatalf("empty term: expected 2 rows, got %d", len(got))
	}
	got = SearchFilter(rows, "   ")
	if len(got) != 2 {
		t.Fatalf("whitespace term: expected 2 rows, got %d", len(got))
	}
}

func TestSearchFilter_CaseInsensitiveAcrossFields(t *testing.T) {
	rows := []fakeRow{
		{name: "member_id", comment: "primary key"},
		{name: "dob", comment: "Member birth date"},
		{name: "claim_no", comment: "claim number"},
	}

	got := SearchFilter(rows, "MEMBER")
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	// input order is preserved
	if got[0].name != "member_id" || got[1].name != "dob" {
		t.Fatalf("unexpected order: %q, %q", got[0].name, got[1].name)
	}
}

func TestNormalizePageSize(t *testing.T) {
	for _, size := range []int{5, 10, 20, 50} {
		if got := NormalizePageSize(size); got != size {
			t.Fatalf("NormalizePageSize(%d) = %d", size, got)
		}
	}
	for _, size := range []int{0, -1, 7, 100} {
		if got := NormalizePageSize(size); got != DefaultPageSize {
			t.Fatalf("NormalizePageSize(%d) = %d, want %d", size, got, DefaultPageSize)
		}
	}
}

func TestPaginate(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}

	page1 := Paginate(items, 1, 10)
	if len(page1) != 10 || page1[0] != 0 {
		t.Fatalf("page 1: len=%d first=%d", len(page1), page1[0])
	}
	page3 := Paginate(items, 3, 10)
	if len(page3) != 3 || page3[0] != 20 {
		t.Fatalf("page 3: len=%d first=%d", len(page3), page3[0])
	}
	if got := Paginate(items, 9, 10); len(got) != 0 {
		t.Fatalf("page past end should be empty, got %d items", len(got))
	}
	// page < 1 is treated as page 1
	if got := Paginate(items, 0, 5); len(got) != 5 || got[0] != 0 {
		t.Fatalf("page 0: len=%d", len(got))
	}
	// disallowed page size falls back to the default
	if got := Paginate(items, 1, 7); len(got) != DefaultPageSize {
		t.Fatalf("page size 7: len=%d, want %d", len(got), DefaultPageSize)
	}
}
