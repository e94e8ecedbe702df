package qualification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// Tab and range names in the staffing spreadsheet.
const (
	techDepartmentsTab = "Tech/Dept"
	techSheetRange     = "'" + techDepartmentsTab + "'!A:Z"
	techHeaderRange    = "'" + techDepartmentsTab + "'!A1:Z1"
	healthCheckRange   = "'" + techDepartmentsTab + "'!A1:A1"
)

// SheetsConfig configures the Google Sheets qualification source.
type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsPath string
}

// SheetsSource reads technician qualification from the staffing
// spreadsheet. It performs a read per call; wrap it in a Cache for
// request-path use.
type SheetsSource struct {
	spreadsheetID string
	values        valuesReader
}

// valuesReader is the slice of the Sheets API the source needs. The
// indirection keeps row-parsing testable without Google credentials.
type valuesReader interface {
	read(ctx context.Context, readRange string) ([][]string, error)
}

// NewSheetsSource builds a source backed by the Google Sheets API. With an
// empty credentials path the client falls back to Application Default
// Credentials, which is how it runs on Cloud Run.
func NewSheetsSource(ctx context.Context, cfg SheetsConfig) (*SheetsSource, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("qualification: spreadsheet id is required")
	}
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("qualification: init sheets client: %w", err)
	}
	return &SheetsSource{
		spreadsheetID: cfg.SpreadsheetID,
		values:        &sheetsValuesReader{svc: svc, spreadsheetID: cfg.SpreadsheetID},
	}, nil
}

// TechsForDepartment returns active technicians qualified for a
// department, ordered by priority.
func (s *SheetsSource) TechsForDepartment(ctx context.Context, department string) ([]QualifiedTech, error) {
	rows, err := s.values.read(ctx, techSheetRange)
	if err != nil {
		return nil, fmt.Errorf("qualification: read staffing sheet: %w", err)
	}
	return qualifiedForDepartment(parseTechRows(rows), department), nil
}

// Departments lists the department columns configured on the sheet.
func (s *SheetsSource) Departments(ctx context.Context) ([]string, error) {
	rows, err := s.values.read(ctx, techHeaderRange)
	if err != nil {
		return nil, fmt.Errorf("qualification: read staffing header: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	deptEnd := len(header)
	for i, name := range header {
		if strings.Contains(strings.ToLower(name), "status") {
			deptEnd = i
			break
		}
	}
	var departments []string
	for i := deptStartColumn; i < deptEnd; i++ {
		if name := strings.TrimSpace(header[i]); name != "" {
			departments = append(departments, name)
		}
	}
	return departments, nil
}

// HealthCheck reads a single header cell to verify sheet access.
func (s *SheetsSource) HealthCheck(ctx context.Context) error {
	if _, err := s.values.read(ctx, healthCheckRange); err != nil {
		return fmt.Errorf("qualification: sheet unreachable: %w", err)
	}
	return nil
}

type sheetsValuesReader struct {
	svc           *sheets.Service
	spreadsheetID string
}

func (r *sheetsValuesReader) read(ctx context.Context, readRange string) ([][]string, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(r.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
