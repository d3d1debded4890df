package server

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"
)

func (s *Server) auditLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The upgrader needs the raw ResponseWriter to hijack the
		// connection; websocket traffic is not audited.
		if strings.HasPrefix(r.URL.Path, "/ws/") {
			next.ServeHTTP(w, r)
			return
		}

		contentType := r.Header.Get("Content-Type")
		skipRequestBody := strings.Contains(contentType, "multipart/form-data")

		entry := AuditLogEntry{
			Timestamp: time.Now(),
			Method:    r.Method,
			Path:      r.URL.Path,
			Handler:   handlerName(r.URL.Path, r.Method),
			ListingID: listingIDFromPath(r.URL.Path),
		}

		if email, _, ok := r.BasicAuth(); ok {
			entry.UserEmail = email
		}

		if !skipRequestBody && r.Body != nil {
			requestBody, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(requestBody))
			entry.Request = string(requestBody)
		}

		wrw := newResponseWriterWrapper(w)

		next.ServeHTTP(wrw, r)

		entry.StatusCode = wrw.statusCode
		entry.Response = wrw.buffer.String()

		s.AuditManager.LogEntry(r.Context(), entry)
	})
}

func listingIDFromPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "listings" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

func handlerName(path string, method string) string {
	switch {
	case strings.HasPrefix(path, "/listings"):
		switch {
		case strings.HasSuffix(path, "/quote"):
			return "handleQuote"
		case strings.HasSuffix(path, "/response"):
			return "handleRespond"
		case strings.HasSuffix(path, "/paid"):
			return "handleMarkPaid"
		case method == http.MethodPost:
			return "handleSubmitListing"
		case method == http.MethodDelete:
			return "handleDeleteListing"
		case path == "/listings":
			return "handleListListings"
		default:
			return "handleGetListing"
		}
	case strings.HasPrefix(path, "/users") && strings.HasSuffix(path, "/listings"):
		return "handleOwnerListings"
	case strings.HasPrefix(path, "/users") && strings.HasSuffix(path, "/portfolio"):
		return "handlePortfolio"
	case path == "/photos":
		return "handleUploadPhoto"
	case strings.HasPrefix(path, "/ws/"):
		return "handleListingsFeed"
	}
	return "unknown"
}

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
	buffer     bytes.Buffer
}

func newResponseWriterWrapper(w http.ResponseWriter) *responseWriterWrapper {
	return &responseWriterWrapper{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(b []byte) (int, error) {
	w.buffer.Write(b)
	return w.ResponseWriter.Write(b)
}
