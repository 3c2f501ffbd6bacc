package ocr

import "log/slog"

// Language selectors accepted from callers.
const (
	SelectorKhmer   = "kh"
	SelectorEnglish = "en"
	SelectorBoth    = "both"

	// DefaultSelector is used when a request does not name a language.
	DefaultSelector = SelectorBoth
	// FallbackLanguage is the engine code used for unknown selectors.
	FallbackLanguage = "eng"
)

var languageCodes = map[string]string{
	SelectorKhmer:   "khm",
	SelectorEnglish: "eng",
	SelectorBoth:    "khm+eng",
}

// Selectors returns the accepted selectors in display order.
func Selectors() []string {
	return []string{SelectorKhmer, SelectorEnglish, SelectorBoth}
}

// LanguageCode maps a selector to its tesseract language code. ok is false
// for unknown selectors, in which case code is FallbackLanguage.
func LanguageCode(selector string) (code string, ok bool) {
	if code, ok := languageCodes[selector]; ok {
		return code, true
	}
	return FallbackLanguage, false
}

// ResolveLanguage is LanguageCode with a warning for unknown selectors.
// It never fails.
func ResolveLanguage(selector string, logger *slog.Logger) string {
	code, ok := LanguageCode(selector)
	if !ok {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("unsupported language selector, defaulting", "language", selector, "fallback", FallbackLanguage)
	}
	return code
}
