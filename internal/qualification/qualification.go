// Package qualification resolves which technicians are qualified for a
// department, from the shop's staffing spreadsheet.
package qualification

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

// Tech is one technician row from the staffing sheet. Departments maps a
// department name to a priority: 0 means not qualified, 1 is the highest
// priority, larger numbers rank lower.
type Tech struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Role        string         `json:"role"`
	Departments map[string]int `json:"departments"`
	Status      string         `json:"status"`
}

// QualifiedTech is a technician qualified for a specific department.
type QualifiedTech struct {
	TechID   string `json:"techId"`
	TechName string `json:"techName"`
	Priority int    `json:"priority"`
}

// Source answers qualification queries. Implementations are the sheets
// reader and its redis cache wrapper.
type Source interface {
	TechsForDepartment(ctx context.Context, department string) ([]QualifiedTech, error)
	Departments(ctx context.Context) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// NormalizeDepartment maps a service label to the staffing sheet's column
// name. Labels without a mapping entry are used as-is.
func NormalizeDepartment(label string, mapping map[string]string) string {
	if mapped, ok := mapping[label]; ok {
		return mapped
	}
	return label
}

// The staffing sheet layout: Name, ID, Primary Role, then one column per
// department, then Status. Department columns sit between Primary Role and
// the first header containing "status".
const deptStartColumn = 3

// parseTechRows converts raw sheet rows into technician records in sheet
// row order. Inactive rows and rows without an ID are dropped. Cell values
// accept the legacy boolean markers (TRUE/YES/X qualify at priority 1,
// FALSE/NO/blank do not) and plain integer priorities; anything
// unparseable means not qualified.
func parseTechRows(rows [][]string) []Tech {
	if len(rows) < 2 {
		return nil
	}
	header := rows[0]

	statusCol := 0
	for i, name := range header {
		if strings.Contains(strings.ToLower(name), "status") {
			statusCol = i
			break
		}
	}
	deptEnd := len(header)
	if statusCol > 0 {
		deptEnd = statusCol
	}
	var departments []string
	for i := deptStartColumn; i < deptEnd && i < len(header); i++ {
		if name := strings.TrimSpace(header[i]); name != "" {
			departments = append(departments, name)
		}
	}

	var techs []Tech
	for _, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		name := strings.TrimSpace(row[0])
		id := strings.TrimSpace(row[1])
		if id == "" {
			continue
		}
		role := ""
		if len(row) > 2 {
			role = strings.TrimSpace(row[2])
		}
		status := "Active"
		if statusCol > 0 && len(row) > statusCol {
			status = strings.TrimSpace(row[statusCol])
		}
		if !strings.EqualFold(status, "Active") {
			continue
		}

		priorities := make(map[string]int, len(departments))
		for i, dept := range departments {
			col := deptStartColumn + i
			if col >= len(row) {
				priorities[dept] = 0
				continue
			}
			priorities[dept] = parsePriority(row[col])
		}

		techs = append(techs, Tech{
			ID:          id,
			Name:        name,
			Role:        role,
			Departments: priorities,
			Status:      status,
		})
	}
	return techs
}

func parsePriority(cell string) int {
	switch strings.ToUpper(strings.TrimSpace(cell)) {
	case "TRUE", "YES", "X":
		return 1
	case "FALSE", "NO", "":
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(cell))
	if err != nil {
		return 0
	}
	return n
}

// qualifiedForDepartment filters and orders technicians for a department.
// The sort is stable so same-priority technicians keep sheet row order,
// which the round-robin assignment downstream relies on.
func qualifiedForDepartment(techs []Tech, department string) []QualifiedTech {
	var qualified []QualifiedTech
	for _, tech := range techs {
		priority := tech.Departments[department]
		if priority <= 0 {
			continue
		}
		qualified = append(qualified, QualifiedTech{
			TechID:   tech.ID,
			TechName: tech.Name,
			Priority: priority,
		})
	}
	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].Priority < qualified[j].Priority
	})
	return qualified
}
