package qualification

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

var staffingRows = [][]string{
	{"Name", "ID", "Primary Role", "Vinyl", "Alignment", "Tint", "Status"},
	{"John Doe", "user-1", "Technician", "1", "0", "2", "Active"},
	{"Jane Roe", "user-2", "Technician", "2", "1", "", "Active"},
	{"Old Timer", "user-3", "Technician", "1", "1", "1", "Inactive"},
	{"No Ident", "", "Technician", "1", "1", "1", "Active"},
	{"Legacy Bool", "user-4", "Technician", "X", "NO", "TRUE", "Active"},
	{"Short Row", "user-5"},
}

func TestParseTechRows(t *testing.T) {
	techs := parseTechRows(staffingRows)

	ids := make([]string, 0, len(techs))
	for _, tech := range techs {
		ids = append(ids, tech.ID)
	}
	want := []string{"user-1", "user-2", "user-4", "user-5"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}

	byID := make(map[string]Tech, len(techs))
	for _, tech := range techs {
		byID[tech.ID] = tech
	}

	if byID["user-1"].Departments["Vinyl"] != 1 || byID["user-1"].Departments["Tint"] != 2 {
		t.Errorf("user-1 departments = %v", byID["user-1"].Departments)
	}
	if byID["user-4"].Departments["Vinyl"] != 1 {
		t.Errorf("X marker must qualify at priority 1, got %v", byID["user-4"].Departments)
	}
	if byID["user-4"].Departments["Alignment"] != 0 {
		t.Errorf("NO marker must not qualify, got %v", byID["user-4"].Departments)
	}
	if byID["user-4"].Departments["Tint"] != 1 {
		t.Errorf("TRUE marker must qualify at priority 1, got %v", byID["user-4"].Departments)
	}
	// Short rows default missing department cells to not qualified, and a
	// missing status column means active.
	for dept, priority := range byID["user-5"].Departments {
		if priority != 0 {
			t.Errorf("short row %s = %d, want 0", dept, priority)
		}
	}
}

func TestParseTechRowsEmpty(t *testing.T) {
	if got := parseTechRows(nil); got != nil {
		t.Errorf("nil rows = %v", got)
	}
	if got := parseTechRows([][]string{{"Name", "ID"}}); got != nil {
		t.Errorf("header-only rows = %v", got)
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		cell string
		want int
	}{
		{"TRUE", 1}, {"yes", 1}, {"x", 1},
		{"FALSE", 0}, {"no", 0}, {"", 0}, {"  ", 0},
		{"1", 1}, {"3", 3}, {" 2 ", 2},
		{"maybe", 0},
	}
	for _, tt := range tests {
		if got := parsePriority(tt.cell); got != tt.want {
			t.Errorf("parsePriority(%q) = %d, want %d", tt.cell, got, tt.want)
		}
	}
}

func TestQualifiedForDepartmentOrdering(t *testing.T) {
	techs := parseTechRows(staffingRows)

	vinyl := qualifiedForDepartment(techs, "Vinyl")
	var got []string
	for _, q := range vinyl {
		got = append(got, q.TechID)
	}
	// Priority 1 before 2; same priority keeps sheet row order.
	want := []string{"user-1", "user-4", "user-2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("vinyl order = %v, want %v", got, want)
	}

	if alignment := qualifiedForDepartment(techs, "Alignment"); len(alignment) != 1 || alignment[0].TechID != "user-2" {
		t.Errorf("alignment = %v", alignment)
	}
	if unknown := qualifiedForDepartment(techs, "Bedliner"); len(unknown) != 0 {
		t.Errorf("unknown department = %v", unknown)
	}
}

func TestNormalizeDepartment(t *testing.T) {
	mapping := map[string]string{"Alignment/Tech": "Alignment"}
	if got := NormalizeDepartment("Alignment/Tech", mapping); got != "Alignment" {
		t.Errorf("mapped = %s", got)
	}
	if got := NormalizeDepartment("Tint", mapping); got != "Tint" {
		t.Errorf("unmapped = %s", got)
	}
}

type fakeReader struct {
	rows [][]string
	err  error
}

func (f *fakeReader) read(ctx context.Context, readRange string) ([][]string, error) {
	return f.rows, f.err
}

func TestSheetsSourceDepartments(t *testing.T) {
	src := &SheetsSource{
		spreadsheetID: "sheet-1",
		values:        &fakeReader{rows: [][]string{{"Name", "ID", "Primary Role", "Vinyl", "Alignment", "", "Tint", "Status", "Notes"}}},
	}
	departments, err := src.Departments(context.Background())
	if err != nil {
		t.Fatalf("Departments: %v", err)
	}
	want := []string{"Vinyl", "Alignment", "Tint"}
	if !reflect.DeepEqual(departments, want) {
		t.Errorf("departments = %v, want %v", departments, want)
	}
}

func TestSheetsSourceTechsForDepartment(t *testing.T) {
	src := &SheetsSource{spreadsheetID: "sheet-1", values: &fakeReader{rows: staffingRows}}
	techs, err := src.TechsForDepartment(context.Background(), "Tint")
	if err != nil {
		t.Fatalf("TechsForDepartment: %v", err)
	}
	var got []string
	for _, q := range techs {
		got = append(got, q.TechID)
	}
	if !reflect.DeepEqual(got, []string{"user-4", "user-1"}) {
		t.Errorf("tint order = %v", got)
	}
}

func TestSheetsSourceHealthCheck(t *testing.T) {
	src := &SheetsSource{spreadsheetID: "sheet-1", values: &fakeReader{err: errors.New("boom")}}
	if err := src.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check failure")
	}
}
