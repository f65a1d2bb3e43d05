package nodenames

import (
	"testing"
)

func TestSplitNodeList(t *testing.T) {
	xs, err := SplitNodeList("yes.no,ml[1-3].hi,ml[1,2],zappa")
	if err != nil {
		t.Fatalf("Nodenames #1: %s", err.Error())
	}
	if len(xs) != 4 || xs[0] != "yes.no" || xs[1] != "ml[1-3].hi" || xs[2] != "ml[1,2]" || xs[3] != "zappa" {
		t.Fatalf("Nodenames #2: %v", xs)
	}
	// Empty input is allowed
	xs, err = SplitNodeList("")
	if err != nil {
		t.Fatalf("Nodenames #3: %s", err.Error())
	}
	if len(xs) != 0 {
		t.Fatalf("Nodenames #4: %v", xs)
	}
	// No closing bracket
	xs, err = SplitNodeList("yes[hi")
	if err == nil {
		t.Fatalf("Should fail #1: %v", xs)
	}
	// Nested opening bracket
	xs, err = SplitNodeList("yes[hi[]")
	if err == nil {
		t.Fatalf("Should fail #2: %v", xs)
	}
	// No opening bracket
	xs, err = SplitNodeList("yes]")
	if err == nil {
		t.Fatalf("Should fail #3: %v", xs)
	}
	// Empty at beginning
	xs, err = SplitNodeList(",yes")
	if err == nil {
		t.Fatalf("Should fail #4: %v", xs)
	}
	// Empty at end
	xs, err = SplitNodeList("yes,")
	if err == nil {
		t.Fatalf("Should fail #5: %v", xs)
	}
	// Empty in the middle
	xs, err = SplitNodeList("yes,,no")
	if err == nil {
		t.Fatalf("Should fail #6: %v", xs)
	}
}

func TestExpandPattern(t *testing.T) {
	x, err := ExpandPattern("ab[1-2,4].cd[3]")
	if err != nil {
		t.Fatal(err)
	}
	if len(x) != 3 || x[0] != "ab1.cd3" || x[1] != "ab2.cd3" || x[2] != "ab4.cd3" {
		t.Fatalf("Pattern: %v", x)
	}
	x, err = ExpandPattern("ab[1-2]cd")
	if err != nil {
		t.Fatal(err)
	}
	if len(x) != 2 || x[0] != "ab1cd" || x[1] != "ab2cd" {
		t.Fatalf("Embedded range: %v", x)
	}
	// Zero padding is preserved
	x, err = ExpandPattern("c[001-003]")
	if err != nil {
		t.Fatal(err)
	}
	if len(x) != 3 || x[0] != "c001" || x[1] != "c002" || x[2] != "c003" {
		t.Fatalf("Padded range: %v", x)
	}
	x, err = ExpandPattern("ab[].cd")
	if err == nil {
		t.Fatalf("Should fail #1: %v", x)
	}
	x, err = ExpandPattern("ab[3-1].cd")
	if err == nil {
		t.Fatalf("Should fail #2: %v", x)
	}
}

func TestExpandNodeList(t *testing.T) {
	x, err := ExpandNodeList("gpu-[4-6].fox,int1")
	if err != nil {
		t.Fatal(err)
	}
	if len(x) != 4 || x[0] != "gpu-4.fox" || x[1] != "gpu-5.fox" || x[2] != "gpu-6.fox" || x[3] != "int1" {
		t.Fatalf("Nodelist: %v", x)
	}
	// A plain name passes through
	x, err = ExpandNodeList("cesium")
	if err != nil {
		t.Fatal(err)
	}
	if len(x) != 1 || x[0] != "cesium" {
		t.Fatalf("Nodelist: %v", x)
	}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"c2", "c10", -1},
		{"c10", "c2", 1},
		{"c2", "c2", 0},
		{"c2-1", "c2-2", -1},
		{"c2.fox", "c10.fox", -1},
		{"a1", "b1", -1},
		{"c1", "cesium", -1},
		{"c01", "c1", -1}, // equal numerically, padding breaks the tie
		{"c1", "c1a", -1},
	}
	for _, c := range cases {
		got := Compare(c.a, c.b)
		if sign(got) != c.want {
			t.Fatalf("Compare(%q, %q) = %d, want sign %d", c.a, c.b, got, c.want)
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
