package domain

import (
	"fmt"
	"strings"
)

// FileType enumerates the document formats accepted for upload.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypePNG  FileType = "png"
	FileTypeJPG  FileType = "jpg"
	FileTypeJPEG FileType = "jpeg"
	FileTypeWEBP FileType = "webp"
)

var fileTypeMIME = map[FileType]string{
	FileTypePDF:  "application/pdf",
	FileTypePNG:  "image/png",
	FileTypeJPG:  "image/jpeg",
	FileTypeJPEG: "image/jpeg",
	FileTypeWEBP: "image/webp",
}

// ParseFileType resolves a file extension or MIME subtype to a FileType.
func ParseFileType(s string) (FileType, error) {
	ft := FileType(strings.ToLower(strings.TrimPrefix(s, ".")))
	if _, ok := fileTypeMIME[ft]; !ok {
		return "", fmt.Errorf("%q: %w", s, Permanent(ErrUnsupportedType))
	}
	return ft, nil
}

func (t FileType) Valid() bool {
	_, ok := fileTypeMIME[t]
	return ok
}

// Extension returns the canonical extension without the leading dot.
func (t FileType) Extension() string { return string(t) }

// DotExtension returns the canonical extension including the leading dot.
func (t FileType) DotExtension() string { return "." + string(t) }

// MIMEType returns the content type used for storage and HTTP responses.
func (t FileType) MIMEType() string { return fileTypeMIME[t] }

func (t FileType) IsPDF() bool { return t == FileTypePDF }

func (t FileType) IsImage() bool {
	return strings.HasPrefix(fileTypeMIME[t], "image/")
}
