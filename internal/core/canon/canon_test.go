package canon

import (
	"strings"
	"testing"
)

// Test table covers each stage and combined pipelines.
func TestText_Table(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{
			name: "identity ascii",
			in:   "Fire Suppression Maintenance",
			out:  "Fire Suppression Maintenance",
		},
		{
			name: "utf8 repair drops invalid bytes",
			in:   string([]byte{0xff, 'D', 'L', 'A', 0x80, ' ', 'L', 'a', 'n', 'd'}),
			out:  "DLA Land",
		},
		{
			name: "case preserved",
			in:   "NAVSEA Warfare Centers",
			out:  "NAVSEA Warfare Centers",
		},
		{
			name: "remove zero-widths",
			in:   "Sol​icit‍ation",
			out:  "Solicitation",
		},
		{
			name: "nfkc ligature",
			in:   "oﬃce supplies",
			out:  "office supplies",
		},
		{
			name: "collapse whitespace",
			in:   "a\t\tb\nc   d",
			out:  "a b c d",
		},
		{
			name: "trim edges",
			in:   "  \tDept of Energy \n",
			out:  "Dept of Energy",
		},
		{
			name: "combined",
			in:   "  ZW​ N‌ B\ufeff S  \t\n",
			out:  "ZW N B S",
		},
		{
			name: "idempotent",
			in:   Text("Ｆull‍  Width  "),
			out:  Text(Text("Ｆull‍  Width  ")),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Text(tc.in); got != tc.out {
				t.Fatalf("Text(%q) = %q, want %q", tc.in, got, tc.out)
			}
		})
	}
}

func TestFold_CaseAndWidth(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{name: "case fold", in: "JANITORIAL Services", out: "janitorial services"},
		{name: "width fold fullwidth", in: "ＳＡＭ notice", out: "sam notice"},
		{name: "zero width inside term", in: "IT​ support", out: "it support"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Fold(tc.in); got != tc.out {
				t.Fatalf("Fold(%q) = %q, want %q", tc.in, got, tc.out)
			}
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{name: "clean passthrough", in: "plain text stays plain", out: "plain text stays plain"},
		{name: "nul dropped", in: "a\x00b", out: "ab"},
		{name: "del and c1 dropped", in: "a\x7fbc", out: "abc"},
		{name: "newline tab kept", in: "a\n\tb", out: "a\n\tb"},
		{name: "invalid utf8 dropped", in: string([]byte{'o', 'k', 0xc3}), out: "ok"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clean(tc.in); got != tc.out {
				t.Fatalf("Clean(%q) = %q, want %q", tc.in, got, tc.out)
			}
		})
	}
}

func TestHash_CosmeticDriftStable(t *testing.T) {
	a := Hash("Fire Suppression", "DEPT OF DEFENSE", "2025-01-02")
	b := Hash("Fire​ Suppression ", "DEPT  OF  DEFENSE", "2025-01-02")
	if a != b {
		t.Fatalf("cosmetic drift flipped the hash: %s vs %s", a, b)
	}
}

func TestHash_RealChangesFlip(t *testing.T) {
	base := Hash("Fire Suppression", "DOD", "2025-01-02")
	if got := Hash("Fire Suppression", "DOD", "2025-01-03"); got == base {
		t.Fatal("date change did not flip the hash")
	}
	if got := Hash("fire suppression", "DOD", "2025-01-02"); got == base {
		t.Fatal("case change did not flip the hash")
	}
}

func TestHash_FieldBoundaries(t *testing.T) {
	if Hash("ab", "c") == Hash("a", "bc") {
		t.Fatal("field boundary collision")
	}
	if Hash("a", "") == Hash("a") {
		t.Fatal("trailing empty field collided with its absence")
	}
}

func TestHash_HexShape(t *testing.T) {
	h := Hash("anything")
	if len(h) != 64 {
		t.Fatalf("hash length = %d, want 64", len(h))
	}
	if strings.ToLower(h) != h {
		t.Fatal("hash is not lowercase hex")
	}
}
