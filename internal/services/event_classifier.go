package services

import "github.com/autoattend/autoattend-backend/internal/models"

// ClassifyEvent maps a scanner action hint to an attendance status.
// Only "checkout" yields a checkout; anything else, including no hint, is a check-in.
func ClassifyEvent(action string) models.AttendanceStatus {
	if action == string(models.StatusCheckout) {
		return models.StatusCheckout
	}
	return models.StatusCheckin
}
