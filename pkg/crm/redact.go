package crm

import "regexp"

const redacted = "[REDACTED]"

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)((?:authtoken|access_token|refresh_token|client_secret)=)[^&\s"]+`),
	regexp.MustCompile(`(?i)("(?:authtoken|access_token|refresh_token|client_secret)"\s*:\s*")[^"]*`),
	regexp.MustCompile(`(?i)((?:Zoho-oauthtoken|Bearer)\s+)[^\s"&]+`),
}

// RedactSecrets masks credentials embedded in URLs, headers and JSON bodies.
func RedactSecrets(s string) string {
	for _, pattern := range secretPatterns {
		s = pattern.ReplaceAllString(s, "${1}"+redacted)
	}

	return s
}
