package ingest

import "fmt"

// FormatError indicates content that is not decodable or not parseable
// as delimited text. The message is safe to surface to the uploader.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return e.Reason }

// EmptyDatasetError indicates a file that parsed but contains no data rows.
type EmptyDatasetError struct{}

func (e *EmptyDatasetError) Error() string {
	return "dataset contains headers but no data rows"
}

// SizeLimitError indicates raw content above the configured byte ceiling.
type SizeLimitError struct {
	Size  int
	Limit int
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("file too large: %d bytes exceeds the %d byte limit", e.Size, e.Limit)
}
