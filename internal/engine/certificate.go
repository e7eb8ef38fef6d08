package engine

import "fmt"

// CertificateNumber formats a registration certificate number from the
// configured prefix, the issue year and the application ID. IDs are
// zero padded to six digits and widen past that without truncation.
func CertificateNumber(prefix string, year int, applicationID int64) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, year, applicationID)
}
