package story

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
		field   string
	}{
		{
			name:    "empty text",
			req:     Request{Replacements: []ReplacementPair{{ID: "1", Original: "лиса", Replacement: "волк"}}},
			wantErr: true,
			field:   "text",
		},
		{
			name:    "no pairs and no context",
			req:     Request{Text: "Раз лиса и заяц жили."},
			wantErr: true,
			field:   "replacements",
		},
		{
			name:    "blank context only",
			req:     Request{Text: "Раз лиса и заяц жили.", AdditionalContext: "   \n"},
			wantErr: true,
			field:   "replacements",
		},
		{
			name: "half filled pair only",
			req: Request{
				Text:         "Раз лиса и заяц жили.",
				Replacements: []ReplacementPair{{ID: "1", Original: "лиса"}},
			},
			wantErr: true,
			field:   "replacements",
		},
		{
			name: "complete pair",
			req: Request{
				Text:         "Раз лиса и заяц жили.",
				Replacements: []ReplacementPair{{ID: "1", Original: "лиса", Replacement: "волк"}},
			},
		},
		{
			name: "context only",
			req:  Request{Text: "Раз лиса и заяц жили.", AdditionalContext: "all animals become robots"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("field=%q, want %q", ve.Field, tc.field)
			}
			if !IsValidationError(err) {
				t.Fatalf("IsValidationError(%v) = false", err)
			}
		})
	}
}

func TestCompletePairsKeepsOrderAndDuplicates(t *testing.T) {
	req := Request{Replacements: []ReplacementPair{
		{ID: "a", Original: "лиса", Replacement: "волк"},
		{ID: "b", Original: "", Replacement: "медведь"},
		{ID: "c", Original: "лиса", Replacement: "кот"},
	}}
	got := req.CompletePairs()
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("ids=%q,%q, want a,c", got[0].ID, got[1].ID)
	}
}

func TestTableLifecycle(t *testing.T) {
	tbl := NewTable()
	if tbl.Ready() {
		t.Fatal("empty table should not be ready")
	}

	first := tbl.Add()
	second := tbl.Add()
	if first == second {
		t.Fatal("Add returned duplicate ids")
	}
	if tbl.Ready() {
		t.Fatal("table with blank rows should not be ready")
	}

	if err := tbl.Update(first, "лиса", "волк"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := tbl.Update(second, "лиса", "кот"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !tbl.Ready() {
		t.Fatal("table should be ready once every row is filled")
	}

	pairs := tbl.Pairs()
	if pairs[0].ID != first || pairs[1].ID != second {
		t.Fatalf("insertion order not preserved: %+v", pairs)
	}
	pairs[0].Original = "mutated"
	if tbl.Pairs()[0].Original != "лиса" {
		t.Fatal("Pairs must return a copy")
	}

	if err := tbl.Remove(first); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if tbl.Len() != 1 || tbl.Pairs()[0].ID != second {
		t.Fatalf("unexpected pairs after remove: %+v", tbl.Pairs())
	}

	if err := tbl.Remove(first); !errors.Is(err, ErrUnknownPair) {
		t.Fatalf("Remove(unknown) = %v, want ErrUnknownPair", err)
	}
	if err := tbl.Update("missing", "a", "b"); !errors.Is(err, ErrUnknownPair) {
		t.Fatalf("Update(unknown) = %v, want ErrUnknownPair", err)
	}

	tbl.Reset()
	if tbl.Len() != 0 {
		t.Fatalf("len=%d after reset, want 0", tbl.Len())
	}
}

func TestNewTableAssignsIDs(t *testing.T) {
	tbl := NewTable(ReplacementPair{Original: "лиса", Replacement: "волк"}, ReplacementPair{ID: "keep", Original: "заяц", Replacement: "ёж"})
	pairs := tbl.Pairs()
	if pairs[0].ID == "" {
		t.Fatal("expected generated id")
	}
	if pairs[1].ID != "keep" {
		t.Fatalf("id=%q, want keep", pairs[1].ID)
	}
}
