package constants

// ExtractStatus is the outcome recorded for one document in a batch run.
type ExtractStatus string

// Stable values (written verbatim into the batch summary).
const (
	ExtractStatusOK      ExtractStatus = "OK"
	ExtractStatusInvalid ExtractStatus = "INVALID" // rejected as caller input
	ExtractStatusFailed  ExtractStatus = "FAILED"  // engine or internal failure
	ExtractStatusTimeout ExtractStatus = "TIMEOUT"
)
