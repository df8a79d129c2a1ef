package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/mmhlko/post-feed/internal/model"
)

const maxUploadSize = 5 << 20

func readUpload(fh *multipart.FileHeader) (model.Upload, error) {
	if fh.Size > maxUploadSize {
		return model.Upload{}, fmt.Errorf("file %q exceeds %d bytes", fh.Filename, maxUploadSize)
	}
	f, err := fh.Open()
	if err != nil {
		return model.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil {
		return model.Upload{}, err
	}
	if len(data) > maxUploadSize {
		return model.Upload{}, fmt.Errorf("file %q exceeds %d bytes", fh.Filename, maxUploadSize)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return model.Upload{Filename: fh.Filename, ContentType: contentType, Data: data}, nil
}

func readUploads(files []*multipart.FileHeader) ([]model.Upload, error) {
	uploads := make([]model.Upload, 0, len(files))
	for _, fh := range files {
		upload, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

// parseIDList accepts repeated form values or a single JSON array.
func parseIDList(values []string) []string {
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var ids []string
		if err := json.Unmarshal([]byte(values[0]), &ids); err == nil {
			return ids
		}
	}
	var ids []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if id := strings.TrimSpace(part); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
