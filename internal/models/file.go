package models

import (
	"math"
	"time"
)

// UploadRequest is one local file staged for transfer. It exists only for
// the duration of an upload.
type UploadRequest struct {
	FileName string
	Payload  []byte
}

// UploadResult is what the server reports after storing an upload.
// StoredName may differ from the submitted name (the server deduplicates
// collisions with a numeric suffix).
type UploadResult struct {
	StoredName string
	Path       string
	Size       int64
}

// FileListEntry represents one file known to the server-side store
type FileListEntry struct {
	Name     string
	Size     int64
	Modified time.Time
}

// UploadResponse is the 2xx body of POST /loadfile/upload
type UploadResponse struct {
	Success  *bool  `json:"success,omitempty"`
	Filename string `json:"filename"`
	Path     string `json:"path,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// ErrorResponse is the JSON form of a non-2xx body
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSONUploadBody is the alternate JSON+base64 upload encoding
type JSONUploadBody struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

// FileListResponse is the body of GET /loadfile/files
type FileListResponse struct {
	Files []FileInfo `json:"files"`
}

// FileInfo is one wire entry of FileListResponse.
// Modified is unix seconds, possibly fractional.
type FileInfo struct {
	Name     string  `json:"name"`
	Size     int64   `json:"size,omitempty"`
	Modified float64 `json:"modified,omitempty"`
}

// Entry converts the wire form to a FileListEntry
func (f FileInfo) Entry() FileListEntry {
	e := FileListEntry{Name: f.Name, Size: f.Size}
	if f.Modified > 0 {
		sec, frac := math.Modf(f.Modified)
		e.Modified = time.Unix(int64(sec), int64(frac*1e9))
	}
	return e
}

// Names returns the entry names in server order
func Names(entries []FileListEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}
