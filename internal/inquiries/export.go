package inquiries

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tutorgoat/tutorgoat-backend/pkg/db/models"
	pkgerrors "github.com/tutorgoat/tutorgoat-backend/pkg/errors"
)

const (
	exportSheet = "Inquiries"
	// ExportContentType is the MIME type of the XLSX workbook.
	ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeaders = []interface{}{
	"Reference", "Created", "Status", "Status Since", "Course", "Service Type", "Urgency",
	"Name", "Email", "Phone", "Client Type", "Quote", "Quote Emailed", "Paid",
	"Assigned Tutor", "Attachments", "Internal Notes",
}

// ExportFilename names the workbook after the export time.
func ExportFilename(at time.Time) string {
	return fmt.Sprintf("inquiries-%s.xlsx", at.UTC().Format("20060102-150405"))
}

// Export writes the filtered inquiries as an XLSX workbook and returns the
// number of data rows.
func (s *Service) Export(ctx context.Context, filters ListFilters, w io.Writer) (int, error) {
	rows, err := s.repo.ExportInquiries(ctx, filters, maxExportRows)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePersistenceFailure, err, "load inquiries for export")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "prepare workbook")
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write header")
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(exportSheet, 1, 1, bold)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "address row")
		}
		values := exportRow(&rows[i])
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write row")
		}
	}

	if err := f.Write(w); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write workbook")
	}
	return len(rows), nil
}

func exportRow(m *models.Inquiry) []interface{} {
	quote := ""
	if m.QuoteAmount != nil {
		quote = m.QuoteAmount.StringFixed(2)
	}
	return []interface{}{
		m.Reference,
		m.CreatedAt.UTC().Format(time.RFC3339),
		string(m.Status),
		m.StatusChangedAt.UTC().Format(time.RFC3339),
		m.CourseName,
		string(m.ServiceType),
		string(m.Urgency),
		deref(m.Name),
		m.ContactEmail,
		m.PhoneNumber,
		string(m.ClientType),
		quote,
		yesNo(m.QuoteEmailSent),
		yesNo(m.PaymentReceived),
		deref(m.AssignedTutor),
		len(m.Attachments),
		deref(m.InternalNotes),
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
