package enums

import "fmt"

// AuditAction maps to the audit_action enum in Postgres.
type AuditAction string

const (
	AuditActionLogin               AuditAction = "login"
	AuditActionLogout              AuditAction = "logout"
	AuditActionFailedLogin         AuditAction = "failed_login"
	AuditActionAccountLocked       AuditAction = "account_locked"
	AuditActionPermissionDenied    AuditAction = "permission_denied"
	AuditActionViewInquiries       AuditAction = "view_inquiries"
	AuditActionViewInquiry         AuditAction = "view_inquiry"
	AuditActionUpdateInquiryStatus AuditAction = "update_inquiry_status"
	AuditActionBulkUpdateStatus    AuditAction = "bulk_update_status"
	AuditActionUpdateQuote         AuditAction = "update_quote"
	AuditActionUpdateInquiry       AuditAction = "update_inquiry"
	AuditActionDeleteInquiry       AuditAction = "delete_inquiry"
	AuditActionDownloadFile        AuditAction = "download_file"
	AuditActionExportInquiries     AuditAction = "export_inquiries"
	AuditActionViewDashboard       AuditAction = "view_dashboard"
	AuditActionViewMetrics         AuditAction = "view_metrics"
	AuditActionCreateAdmin         AuditAction = "create_admin"
	AuditActionChangePassword      AuditAction = "change_password"
)

var validAuditActions = []AuditAction{
	AuditActionLogin,
	AuditActionLogout,
	AuditActionFailedLogin,
	AuditActionAccountLocked,
	AuditActionPermissionDenied,
	AuditActionViewInquiries,
	AuditActionViewInquiry,
	AuditActionUpdateInquiryStatus,
	AuditActionBulkUpdateStatus,
	AuditActionUpdateQuote,
	AuditActionUpdateInquiry,
	AuditActionDeleteInquiry,
	AuditActionDownloadFile,
	AuditActionExportInquiries,
	AuditActionViewDashboard,
	AuditActionViewMetrics,
	AuditActionCreateAdmin,
	AuditActionChangePassword,
}

func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
