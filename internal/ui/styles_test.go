package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/samsaffron/tale-llm/internal/testutil"
)

func TestFormatResult(t *testing.T) {
	styles := NewStyles(&bytes.Buffer{})

	ok := testutil.StripANSI(styles.FormatResult(true, "done"))
	if ok != SuccessIcon+" done" {
		t.Fatalf("success=%q", ok)
	}
	fail := testutil.StripANSI(styles.FormatResult(false, "quota exceeded"))
	if fail != FailIcon+" quota exceeded" {
		t.Fatalf("fail=%q", fail)
	}
	warn := testutil.StripANSI(styles.FormatWarning("two.pdf: unsupported"))
	if !strings.HasPrefix(warn, WarnIcon+" ") {
		t.Fatalf("warning=%q", warn)
	}
}
