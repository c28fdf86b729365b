package textutil

import "testing"

func TestNormalizeComposesAndCollapses(t *testing.T) {
	got := Normalize("  Café\n\tmenu   links ")
	if got != "Café menu links" {
		t.Fatalf("unexpected normalize result %q", got)
	}
}

func TestNormalizeBlockKeepsParagraphs(t *testing.T) {
	got := NormalizeBlock("first   line\r\n\r\n\r\n  second\nthird  ")
	want := "first line\n\nsecond\nthird"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"needs to be cut here", 10, "needs t..."},
		{"ééééé", 4, "é..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tc := range cases {
		if got := Truncate(tc.in, tc.limit); got != tc.want {
			t.Fatalf("Truncate(%q, %d) = %q want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestSnippetEmpty(t *testing.T) {
	if got := Snippet(" \n ", 20); got != "<empty>" {
		t.Fatalf("unexpected snippet %q", got)
	}
}

func TestTernary(t *testing.T) {
	if Ternary(true, "a", "b") != "a" || Ternary(false, 1, 2) != 2 {
		t.Fatal("ternary returned wrong branch")
	}
}

func TestCount(t *testing.T) {
	if got := Count(1, "stage", "stages"); got != "1 stage" {
		t.Fatalf("Count(1) = %q", got)
	}
	if got := Count(3, "stage", "stages"); got != "3 stages" {
		t.Fatalf("Count(3) = %q", got)
	}
}
