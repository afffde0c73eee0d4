package jobs

import (
	"log"
	"time"

	"github.com/coatcard/coatcard-ai/database"
	"github.com/coatcard/coatcard-ai/models"
)

// Unverified accounts older than this are abandoned registrations.
const staleAccountAge = 7 * 24 * time.Hour

// CleanupExpiredCredentials removes expired sessions, clears lapsed OTP and
// reset-token fields so a fresh one can always be issued cleanly, and purges
// abandoned unverified accounts.
func CleanupExpiredCredentials() {
	now := time.Now()

	sessions := database.DB.Where("expires_at < ?", now).Delete(&models.Session{})

	otps := database.DB.Model(&models.User{}).
		Where("otp IS NOT NULL AND otp_expires_at < ?", now).
		Updates(map[string]interface{}{"otp": nil, "otp_expires_at": nil})

	resets := database.DB.Model(&models.User{}).
		Where("reset_password_token IS NOT NULL AND reset_password_expires_at < ?", now).
		Updates(map[string]interface{}{"reset_password_token": nil, "reset_password_expires_at": nil})

	stale := database.DB.Where("is_verified = ? AND created_at < ?", false, now.Add(-staleAccountAge)).
		Delete(&models.User{})

	if sessions.RowsAffected > 0 || otps.RowsAffected > 0 || resets.RowsAffected > 0 || stale.RowsAffected > 0 {
		log.Printf("Janitor: cleaned %d sessions, %d expired OTPs, %d expired reset tokens, %d stale accounts",
			sessions.RowsAffected, otps.RowsAffected, resets.RowsAffected, stale.RowsAffected)
	}
}
