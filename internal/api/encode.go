package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/loadfile/loadfile/internal/constants"
	"github.com/loadfile/loadfile/internal/filetype"
	"github.com/loadfile/loadfile/internal/models"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeUpload serializes req in the given wire encoding. The whole body is
// built before any request is issued.
func encodeUpload(encoding string, req models.UploadRequest) ([]byte, string, error) {
	switch encoding {
	case constants.EncodingMultipart, "":
		return encodeMultipart(req)
	case constants.EncodingJSON:
		return encodeJSON(req)
	default:
		return nil, "", fmt.Errorf("unsupported upload encoding: %s", encoding)
	}
}

// encodeMultipart builds a multipart/form-data body with a single "file"
// field carrying the original file name.
func encodeMultipart(req models.UploadRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		constants.UploadFormField, quoteEscaper.Replace(req.FileName)))
	h.Set("Content-Type", filetype.ContentType(req.FileName))

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(req.Payload); err != nil {
		return nil, "", fmt.Errorf("failed to write form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// encodeJSON builds {"filename": ..., "data": <base64>}.
func encodeJSON(req models.UploadRequest) ([]byte, string, error) {
	body, err := json.Marshal(models.JSONUploadBody{
		Filename: req.FileName,
		Data:     base64.StdEncoding.EncodeToString(req.Payload),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal upload body: %w", err)
	}
	return body, "application/json", nil
}
