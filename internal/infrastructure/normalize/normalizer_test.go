package normalize

import "testing"

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	n := New()
	got := n.Normalize("  rm   -rf\t /tmp/scratch  ")
	if got != "rm -rf /tmp/scratch" {
		t.Fatalf("Normalize() = %q", got)
	}
}

func TestNormalizeLowercasesVerbOnly(t *testing.T) {
	n := New()
	got := n.Normalize("RM /Tmp/CaseSensitive")
	if got != "rm /Tmp/CaseSensitive" {
		t.Fatalf("Normalize() = %q, arguments must keep their case", got)
	}
}

func TestNormalizeFoldsVerbBehindPrivilegeWrapper(t *testing.T) {
	n := New()
	cases := map[string]string{
		"sudo RM -rf /etc":          "sudo rm -rf /etc",
		"sudo -u root DEL /etc":     "sudo -u root rm /etc",
		"doas RM /etc/passwd":       "doas rm /etc/passwd",
		"sudo rm /Tmp/KeepCase":     "sudo rm /Tmp/KeepCase",
		"echo SUDO is not a fold":   "echo SUDO is not a fold",
		"grep sudo /Var/Log/Syslog": "grep sudo /Var/Log/Syslog",
	}
	for in, want := range cases {
		if got := n.Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeResolvesAliases(t *testing.T) {
	n := New()
	cases := map[string]string{
		"del /tmp/file":   "rm /tmp/file",
		"erase /tmp/file": "rm /tmp/file",
		"rd /tmp/dir":     "rmdir /tmp/dir",
	}
	for in, want := range cases {
		if got := n.Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeFoldsFullwidthAndZeroWidth(t *testing.T) {
	n := New()
	// Fullwidth letters plus a zero-width space in the middle of the verb.
	got := n.Normalize("ｒ​ｍ　－ｒｆ　／")
	if got != "rm -rf /" {
		t.Fatalf("Normalize() = %q, want %q", got, "rm -rf /")
	}
}

func TestNormalizeDecodesPercentEncoding(t *testing.T) {
	n := New()
	got := n.Normalize("rm%20-rf%20/")
	if got != "rm -rf /" {
		t.Fatalf("Normalize() = %q, want %q", got, "rm -rf /")
	}
}

func TestNormalizeDecodesBase64Token(t *testing.T) {
	n := New()
	// "rm -rf /" encoded.
	got := n.Normalize("cm0gLXJmIC8=")
	if got != "rm -rf /" {
		t.Fatalf("Normalize() = %q, want %q", got, "rm -rf /")
	}
}

func TestNormalizeKeepsAmbiguousBase64Literal(t *testing.T) {
	n := New()
	// Valid base64, but the decode has no space or path separator so it is
	// almost certainly an identifier, not an embedded command.
	in := "deadbeef1234"
	if got := n.Normalize(in); got != in {
		t.Fatalf("Normalize(%q) = %q, want the literal kept", in, got)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	n := New()
	if got := n.Normalize("   \t  "); got != "" {
		t.Fatalf("Normalize(whitespace) = %q, want empty", got)
	}
	if got := n.Normalize(""); got != "" {
		t.Fatalf("Normalize(empty) = %q, want empty", got)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	n := New()
	in := "ｄｅｌ%20/tmp/ｘ"
	first := n.Normalize(in)
	for i := 0; i < 10; i++ {
		if got := n.Normalize(in); got != first {
			t.Fatalf("Normalize not deterministic: %q then %q", first, got)
		}
	}
	// Normalizing an already normalized string is a fixed point.
	if again := n.Normalize(first); again != first {
		t.Fatalf("Normalize not idempotent: %q then %q", first, again)
	}
}
