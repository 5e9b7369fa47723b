package csvfeed

import (
	"reflect"
	"strings"
	"testing"
)

var experienceOpts = Options{
	NumericColumns: []string{"id"},
	ListColumns:    []string{"skills", "description"},
}

func TestParse_QuotedComma(t *testing.T) {
	in := "id,role,company,skills\n" +
		`1,"Engineer, Senior",Acme,"Go; SQL ;; ""Docker"""` + "\n"

	rows, err := Parse(strings.NewReader(in), experienceOpts)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Parse() rows = %d, want 1", len(rows))
	}
	r := rows[0]
	if r.Int("id") != 1 {
		t.Errorf("id = %v, want 1", r["id"])
	}
	if r.String("role") != "Engineer, Senior" {
		t.Errorf("role = %q", r.String("role"))
	}
	if got, want := r.List("skills"), []string{"Go", "SQL", "Docker"}; !reflect.DeepEqual(got, want) {
		t.Errorf("skills = %v, want %v", got, want)
	}
}

func TestParse_CompanyWithComma(t *testing.T) {
	rows, err := Parse(strings.NewReader("id,role,company\n1,Engineer,\"Acme, Inc.\""), experienceOpts)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Parse() rows = %d, want 1", len(rows))
	}
	if got := rows[0].String("company"); got != "Acme, Inc." {
		t.Errorf("company = %q, want %q", got, "Acme, Inc.")
	}
}

func TestParse_Coercion(t *testing.T) {
	in := "\ufeff Id ,Role,Description\n" +
		"x,Dev,\n" +
		"7,Lead,one;two\n"

	rows, err := Parse(strings.NewReader(in), Options{
		LowercaseHeaders: true,
		NumericColumns:   []string{"id"},
		ListColumns:      []string{"description"},
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Int("id") != 0 {
		t.Errorf("unparsable id = %v, want 0", rows[0]["id"])
	}
	if l := rows[0].List("description"); l == nil || len(l) != 0 {
		t.Errorf("empty list = %#v, want empty non-nil", l)
	}
	if rows[1].Int("id") != 7 || len(rows[1].List("description")) != 2 {
		t.Errorf("row 2 = %v", rows[1])
	}
}

func TestParse_RaggedAndBlankRows(t *testing.T) {
	in := "quote,author,source\n" +
		"Stay hungry,Jobs\n" +
		",,\n" +
		"\n" +
		"Be brief,Anon,Book,extra\n"

	rows, err := Parse(strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (blank row dropped)", len(rows))
	}
	if _, present := rows[0]["source"]; present {
		t.Error("missing trailing cell should be absent from the row")
	}
	if rows[1].String("source") != "Book" {
		t.Errorf("source = %q, want Book", rows[1].String("source"))
	}
}

func TestParse_TooShort(t *testing.T) {
	for _, in := range []string{"", "only,headers\n", "\n\n"} {
		rows, err := Parse(strings.NewReader(in), Options{})
		if err != nil {
			t.Errorf("Parse(%q) error = %v", in, err)
		}
		if rows == nil || len(rows) != 0 {
			t.Errorf("Parse(%q) = %v, want empty", in, rows)
		}
	}
}

func TestRowAccessors(t *testing.T) {
	r := Row{"s": "x", "n": 3, "l": []string{"a"}}
	if r.String("n") != "" || r.Int("s") != 0 || len(r.List("s")) != 0 {
		t.Error("accessors should return zero values on type mismatch")
	}
	if r.String("missing") != "" || r.Int("missing") != 0 || r.List("missing") == nil {
		t.Error("accessors should handle missing keys")
	}
}
