package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/labstack/gommon/log"
	"smallcrm/cmd/internal/domain/database/repository"
	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/utils"
	"smallcrm/cmd/internal/utils/apierror"
)

// MaxImportSize is the largest CSV upload accepted by ImportCSV.
const MaxImportSize = 5 << 20

var exportHeader = []string{"Name", "Email", "Phone", "Company", "Segment", "Status", "Total Revenue", "Created At"}

var importHeader = []string{"first_name", "last_name", "email", "phone", "company", "status"}

type ImportSkip struct {
	Row    int    `json:"row"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

type ImportReport struct {
	Imported int          `json:"imported"`
	Skipped  []ImportSkip `json:"skipped"`
}

// ExportCSV writes every customer, newest first.
func (s *DefaultCustomerService) ExportCSV(ctx context.Context, w io.Writer) apierror.ErrorResponse {
	customers, _, err := s.CustomerRepo.Search(ctx, repository.CustomerQuery{})
	if err != nil {
		log.Errorf("failed to load customers for export: %v", err)
		return apierror.InternalServerError
	}

	out := csv.NewWriter(w)
	if err := out.Write(exportHeader); err != nil {
		log.Errorf("failed to write export header: %v", err)
		return apierror.InternalServerError
	}
	for _, customer := range customers {
		segment := ""
		if customer.Segment != nil {
			segment = customer.Segment.Name
		}
		record := []string{
			customer.FullName(),
			customer.Email,
			customer.Phone,
			customer.Company,
			segment,
			string(customer.Status),
			customer.TotalRevenue.StringFixed(2),
			epochIn(customer.CreatedAt, s.Location).Format("02/01/2006"),
		}
		if err := out.Write(record); err != nil {
			log.Errorf("failed to write export row: %v", err)
			return apierror.InternalServerError
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		log.Errorf("failed to flush export: %v", err)
		return apierror.InternalServerError
	}
	return nil
}

// ImportCSV creates one customer per data row. Rows whose email already exists
// or that fail validation are skipped and reported; the rest are kept.
func (s *DefaultCustomerService) ImportCSV(ctx context.Context, r io.Reader, callerSub string) (*ImportReport, apierror.ErrorResponse) {
	caller, apierr := resolveCaller(ctx, s.UserRepo, callerSub)
	if apierr != nil {
		return nil, apierr
	}

	in := csv.NewReader(r)
	in.FieldsPerRecord = -1
	in.TrimLeadingSpace = true

	header, err := in.Read()
	if err != nil {
		return nil, apierror.InvalidImportFileError
	}
	columns, err := indexColumns(header)
	if err != nil {
		return nil, apierror.NewInvalidParamError("file", err.Error())
	}

	report := &ImportReport{Skipped: []ImportSkip{}}
	for row := 2; ; row++ {
		record, err := in.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.Skipped = append(report.Skipped, ImportSkip{Row: row, Reason: "unreadable row"})
			continue
		}

		req := &CustomerRequest{
			FirstName: columnValue(record, columns, "first_name"),
			LastName:  columnValue(record, columns, "last_name"),
			Email:     columnValue(record, columns, "email"),
			Phone:     columnValue(record, columns, "phone"),
			Company:   columnValue(record, columns, "company"),
			Status:    strings.ToLower(columnValue(record, columns, "status")),
		}
		if req.Status == "" {
			req.Status = string(entity.CustomerProspect)
		}
		utils.Sanitize(req)

		if err := s.Validate.Struct(req); err != nil {
			report.Skipped = append(report.Skipped, ImportSkip{Row: row, Email: req.Email, Reason: "invalid data"})
			continue
		}
		taken, err := s.CustomerRepo.ExistsByEmail(ctx, req.Email, nil)
		if err != nil {
			log.Errorf("failed to check customer email during import: %v", err)
			return nil, apierror.InternalServerError
		}
		if taken {
			report.Skipped = append(report.Skipped, ImportSkip{Row: row, Email: req.Email, Reason: "email already exists"})
			continue
		}

		customer := &entity.Customer{CreatedByID: &caller.ID}
		applyCustomerRequest(customer, req)
		if err := s.CustomerRepo.Create(ctx, customer); err != nil {
			if repository.IsDuplicate(err) {
				report.Skipped = append(report.Skipped, ImportSkip{Row: row, Email: req.Email, Reason: "email already exists"})
				continue
			}
			log.Errorf("failed to import customer at row %d: %v", row, err)
			return nil, apierror.InternalServerError
		}
		report.Imported++
	}

	log.Infof("customer import: %d imported, %d skipped", report.Imported, len(report.Skipped))
	return report, nil
}

func indexColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{"first_name", "last_name", "email"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing column %q, expected header %s", required, strings.Join(importHeader, ","))
		}
	}
	return columns, nil
}

func columnValue(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}
