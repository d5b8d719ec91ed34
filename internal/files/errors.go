package files

import "errors"

var (
	// ErrNoFile is returned when the multipart upload carries no file part.
	ErrNoFile = errors.New("no file uploaded")

	// ErrNotPDF is returned when the uploaded file is not a PDF.
	ErrNotPDF = errors.New("only PDF files are allowed")

	// ErrTooLarge is returned when the upload exceeds the size limit.
	ErrTooLarge = errors.New("file exceeds the maximum allowed size")

	// ErrFileNotFound is returned when a file lookup misses.
	ErrFileNotFound = errors.New("file not found")
)
