package enums

import "fmt"

// ReportStatus tracks moderation of a reported listing.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

var validReportStatuses = []ReportStatus{
	ReportStatusPending,
	ReportStatusResolved,
	ReportStatusDismissed,
}

func (s ReportStatus) String() string {
	return string(s)
}

func (s ReportStatus) IsValid() bool {
	for _, candidate := range validReportStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the report has been handled by a moderator.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusResolved || s == ReportStatusDismissed
}

func ParseReportStatus(value string) (ReportStatus, error) {
	for _, candidate := range validReportStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report status %q", value)
}
