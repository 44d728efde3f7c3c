package relocate

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// TargetPath derives the deterministic destination path for a source
// URL: category prefix plus a sanitized filename. The same source URL
// always maps to the same path, so re-runs overwrite in place.
func TargetPath(category string, sourceURL string) string {
	name := sourceFilename(sourceURL)
	return strings.Trim(category, "/") + "/" + name
}

func sourceFilename(sourceURL string) string {
	base := sourceURL
	if parsed, err := url.Parse(sourceURL); err == nil && parsed.Path != "" {
		base = parsed.Path
	}

	name := SanitizeFilename(path.Base(base))
	if name == "" || name == "." || name == "/" {
		// No usable filename; fall back to a stable digest of the URL
		sum := sha256.Sum256([]byte(sourceURL))
		name = hex.EncodeToString(sum[:6]) + ".bin"
	}
	return name
}

// SanitizeFilename collapses anything outside [a-zA-Z0-9._-] to a
// single dash.
func SanitizeFilename(name string) string {
	cleaned := unsafeChars.ReplaceAllString(name, "-")
	return strings.Trim(cleaned, "-")
}
