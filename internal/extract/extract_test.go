package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPlainTextEncodings(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"utf8", []byte("Раз лиса и заяц жили.")},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("Раз лиса и заяц жили.")...)},
		{"utf16le bom", utf16LE("Раз лиса и заяц жили.")},
		{"crlf and padding", []byte("\r\nРаз лиса\r\nи заяц жили.\r\n")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PlainText{}.Extract("story.txt", strings.NewReader(string(tc.data)))
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			want := "Раз лиса и заяц жили."
			if tc.name == "crlf and padding" {
				want = "\nРаз лиса\nи заяц жили.\n"
			}
			if got != want {
				t.Fatalf("Extract=%q, want %q", got, want)
			}
		})
	}
}

func utf16LE(s string) []byte {
	out := []byte{0xFF, 0xFE}
	for _, r := range s {
		// Every rune used here is in the BMP.
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}

func TestPlainTextRejects(t *testing.T) {
	if _, err := (PlainText{}).Extract("story.docx", strings.NewReader("x")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err=%v, want ErrUnsupportedFormat", err)
	}
	if _, err := (PlainText{}).Extract("story.txt", strings.NewReader("ok \xc3\x28")); err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
}

func TestFilesReportsPerFileErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}

	first := write("one.txt", "Жили-были дед да баба.")
	unsupported := write("two.pdf", "%PDF-1.4")
	blank := write("three.md", "   \n")
	second := write("four.md", "И была у них курочка Ряба.")
	missing := filepath.Join(dir, "missing.txt")

	texts, errs := Files(PlainText{}, []string{first, unsupported, blank, missing, second})
	if len(texts) != 2 || texts[0] != "Жили-были дед да баба." || texts[1] != "И была у них курочка Ряба." {
		t.Fatalf("texts=%q", texts)
	}
	if len(errs) != 3 {
		t.Fatalf("errs=%v, want 3", errs)
	}
	if errs[0].Path != unsupported || !errors.Is(errs[0], ErrUnsupportedFormat) {
		t.Fatalf("errs[0]=%v", errs[0])
	}
	if errs[1].Path != blank || errs[2].Path != missing {
		t.Fatalf("errs=%v", errs)
	}
	if !errors.Is(errs[2], os.ErrNotExist) {
		t.Fatalf("errs[2]=%v, want not exist", errs[2])
	}

	if got := Join(texts); got != "Жили-были дед да баба.\n\nИ была у них курочка Ряба." {
		t.Fatalf("Join=%q", got)
	}
}

func TestPlainTextKeepsLayout(t *testing.T) {
	verse := "  Я от дедушки ушёл,\n    Я от бабушки ушёл.\n"
	got, err := PlainText{}.Extract("kolobok.md", strings.NewReader(verse))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != verse {
		t.Fatalf("Extract=%q, want %q", got, verse)
	}

	joined := Join([]string{got, "  Колобок покатился.\n\n"})
	want := "  Я от дедушки ушёл,\n    Я от бабушки ушёл.\n\n  Колобок покатился."
	if joined != want {
		t.Fatalf("Join=%q, want %q", joined, want)
	}
}
