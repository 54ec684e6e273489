package topology

import (
	"strings"
	"testing"
)

func testPatterns(t *testing.T) Patterns {
	t.Helper()
	p, err := CompilePatterns(PatternSource{
		MaskName:  `[A-Z]{3}[0-9]{3}$`,
		Revision:  `REV[0-9]{2}$`,
		Dataprep:  `dataprep$`,
		FinalMask: `[A-Z]{3}[0-9]{3}_MSW?_`,
	})
	if err != nil {
		t.Fatalf("CompilePatterns: %v", err)
	}
	return p
}

func TestClassifyFirstMatchingRoleWins(t *testing.T) {
	patterns := testPatterns(t)
	cases := []struct {
		name   string
		want   Role
		wantOK bool
	}{
		{name: "ABC123", want: RoleMaskName, wantOK: true},
		{name: "REV02", want: RoleRevision, wantOK: true},
		{name: "dataprep", want: RoleDataprep, wantOK: true},
		{name: "ABC123_MS_05Mar26", want: RoleFinalMask, wantOK: true},
		{name: "ABC123_MSW_05Mar26", want: RoleFinalMask, wantOK: true},
		{name: "docs", wantOK: false},
		{name: "xREV02", wantOK: false},
		{name: "", wantOK: false},
	}
	for _, tc := range cases {
		got, ok := Classify(tc.name, patterns)
		if ok != tc.wantOK {
			t.Fatalf("Classify(%q) ok=%v want %v", tc.name, ok, tc.wantOK)
		}
		if ok && got != tc.want {
			t.Fatalf("Classify(%q) = %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestClassifyIsPrefixMatch(t *testing.T) {
	patterns := MustCompilePatterns(PatternSource{
		MaskName:  `MASK[0-9]+`,
		Revision:  `R[0-9]+`,
		Dataprep:  `dataprep`,
		FinalMask: `FINAL`,
	})
	role, ok := Classify("MASK123_extra", patterns)
	if !ok || role != RoleMaskName {
		t.Fatalf("expected MASK123_extra to classify as mask name, got %s ok=%v", role, ok)
	}
	if _, ok := Classify("my_MASK123", patterns); ok {
		t.Fatal("expected match anchored at the start of the name")
	}
}

func TestClassifyHonoursTableOrder(t *testing.T) {
	// Every pattern matches; the first in order must win.
	patterns := MustCompilePatterns(PatternSource{
		MaskName:  `zzz`,
		Revision:  `AB`,
		Dataprep:  `A`,
		FinalMask: `.`,
	})
	role, ok := Classify("ABC", patterns)
	if !ok || role != RoleRevision {
		t.Fatalf("expected revision, got %s ok=%v", role, ok)
	}
	role, ok = Classify("AXY", patterns)
	if !ok || role != RoleDataprep {
		t.Fatalf("expected dataprep, got %s ok=%v", role, ok)
	}
	role, ok = Classify("q", patterns)
	if !ok || role != RoleFinalMask {
		t.Fatalf("expected final mask, got %s ok=%v", role, ok)
	}
}

func TestCompilePatternsRejectsEmptyAndInvalid(t *testing.T) {
	_, err := CompilePatterns(PatternSource{MaskName: "A", Revision: "B", Dataprep: "", FinalMask: "D"})
	if err == nil || !strings.Contains(err.Error(), "dataprep") {
		t.Fatalf("expected empty dataprep pattern error, got %v", err)
	}
	_, err = CompilePatterns(PatternSource{MaskName: "A", Revision: "(", Dataprep: "C", FinalMask: "D"})
	if err == nil || !strings.Contains(err.Error(), "revision") {
		t.Fatalf("expected invalid revision pattern error, got %v", err)
	}
}

func TestAlternationStaysAnchored(t *testing.T) {
	patterns := MustCompilePatterns(PatternSource{
		MaskName:  `AAA|BBB`,
		Revision:  `R`,
		Dataprep:  `D`,
		FinalMask: `F`,
	})
	if patterns.Match(RoleMaskName, "xBBB") {
		t.Fatal("alternation must not escape the start anchor")
	}
	if !patterns.Match(RoleMaskName, "BBB1") {
		t.Fatal("expected BBB1 to match")
	}
}
