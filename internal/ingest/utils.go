package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/ocr-service/constants"
	"github.com/joseph-ayodele/ocr-service/internal/common"
)

// AllowedExt checks if a file extension is in the allowed set (pdf/jpg/jpeg/png).
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// StatusOf maps a processing error to the status written in the summary.
func StatusOf(err error) constants.ExtractStatus {
	if err == nil {
		return constants.ExtractStatusOK
	}
	switch common.KindOf(err) {
	case common.KindValidation:
		return constants.ExtractStatusInvalid
	case common.KindTimeout:
		return constants.ExtractStatusTimeout
	default:
		return constants.ExtractStatusFailed
	}
}
