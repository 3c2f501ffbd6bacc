package constants

import "strings"

// Document formats understood by the rasterizer.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// FileTypes holds the document formats the service accepts.
var FileTypes = []string{PDF, IMAGE}

// AllowedExtensions holds the upload extensions accepted by /extract and the batch tool.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat returns PDF or IMAGE for a supported extension and "" otherwise.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png":
		return IMAGE
	default:
		return ""
	}
}

// AllowedExtensionList returns the accepted extensions with a leading dot, in display order.
func AllowedExtensionList() []string {
	return []string{".pdf", ".jpg", ".jpeg", ".png"}
}
