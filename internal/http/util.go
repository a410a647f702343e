package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"

	"github.com/Fadhlan-athha/manajemen-warga/internal/service"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 10 << 20 // 10MB
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mt, "multipart/")
}

// readSubmission accepts either a JSON body or a multipart form carrying the JSON in a
// "payload" field next to an optional file. The file is buffered so the form can be
// released before the handler returns.
func readSubmission(w http.ResponseWriter, r *http.Request, out any, fileField string) (*service.Upload, error) {
	if !isMultipart(r) {
		if err := readBodyJSON(r, maxJSONBody, out); err != nil {
			return nil, &service.ValidationError{Message: "invalid body"}
		}
		return nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		return nil, &service.ValidationError{Message: "invalid multipart form"}
	}
	defer r.MultipartForm.RemoveAll()

	if payload := r.FormValue("payload"); payload != "" {
		if err := json.Unmarshal([]byte(payload), out); err != nil {
			return nil, &service.ValidationError{Field: "payload", Message: "invalid JSON"}
		}
	}

	file, header, err := r.FormFile(fileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, &service.ValidationError{Field: fileField, Message: "unreadable file"}
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileField, err)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &service.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Body:        bytes.NewReader(data),
	}, nil
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
