package db

import "testing"

func TestOperationOf(t *testing.T) {
	cases := map[string]string{
		"\n\t\tSELECT id FROM clients":         "select",
		"INSERT INTO tasks (name) VALUES ($1)": "insert",
		"with x as (select 1) select * from x": "select",
		"   ":                                  "unknown",
	}
	for sql, want := range cases {
		if got := operationOf(sql); got != want {
			t.Errorf("operationOf(%q) = %q, want %q", sql, got, want)
		}
	}
}

func TestCompactSQL(t *testing.T) {
	got := compactSQL("SELECT id,\n       name\n  FROM users")
	if got != "SELECT id, name FROM users" {
		t.Fatalf("got %q", got)
	}
}
