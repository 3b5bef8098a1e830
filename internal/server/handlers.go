package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ironsheep/rrn-masker/internal/apperr"
	"github.com/ironsheep/rrn-masker/internal/imaging"
)

// Error codes that do not come from the pipeline.
const (
	codeBadRequest    = "BAD_REQUEST"
	codeTooLarge      = "PAYLOAD_TOO_LARGE"
	codeTimeout       = "TIMEOUT"
	codeInternal      = "INTERNAL_ERROR"
	codeNotConfigured = "NOT_CONFIGURED"
)

// MaskedRegionsHeader reports how many regions were masked.
const MaskedRegionsHeader = "X-Masked-Regions"

// indexHandler serves the upload page.
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "ok",
		Service: ServiceName,
		Version: s.version,
	}
	if s.info != nil {
		response.OCR = s.info()
	}
	s.writeJSON(w, r, http.StatusOK, response)
}

// maskHandler accepts a multipart upload in field "file" and answers with the
// masked image as PNG.
//
// The part's content type must start with "image/". Decoding, OCR and
// masking failures are answered with an ErrorResponse; see statusFor.
func (s *Server) maskHandler(w http.ResponseWriter, r *http.Request) {
	logger := s.loggerFrom(r.Context())

	if s.masker == nil {
		s.fail(w, r, http.StatusServiceUnavailable, codeNotConfigured, "masking pipeline not initialized")
		return
	}

	limit := s.maxUploadBytes()
	if r.ContentLength > limit {
		s.fail(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, fmt.Sprintf("upload exceeds %d MB", s.maxUploadMB))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, fmt.Sprintf("upload exceeds %d MB", s.maxUploadMB))
			return
		}
		s.fail(w, r, http.StatusBadRequest, codeBadRequest, "failed to parse form data")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, codeBadRequest, "no image file provided in field \"file\"")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		s.fail(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, fmt.Sprintf("upload exceeds %d MB", s.maxUploadMB))
		return
	}
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		s.fail(w, r, http.StatusBadRequest, string(apperr.CodeInvalidImage), "only image uploads are accepted")
		return
	}
	uploadSizeBytes.Observe(float64(header.Size))

	decoded, err := imaging.Decode(file, s.maxPixels)
	if err != nil {
		s.failErr(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.masker.Process(ctx, decoded.Image)
	maskProcessingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.failErr(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, res.Image, "png"); err != nil {
		s.fail(w, r, http.StatusInternalServerError, codeInternal, "failed to encode masked image")
		return
	}

	maskRequestsTotal.WithLabelValues("ok").Inc()
	matchesDetected.Observe(float64(len(res.Regions)))
	logger.Info("image masked",
		"format", decoded.Format,
		"width", res.Image.Bounds().Dx(),
		"height", res.Image.Bounds().Dy(),
		"regions", len(res.Regions),
	)

	w.Header().Set("Content-Type", imaging.ContentType("png"))
	w.Header().Set("Content-Disposition", "attachment; filename=masked_image.png")
	w.Header().Set(MaskedRegionsHeader, strconv.Itoa(len(res.Regions)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// statusFor maps a pipeline error to an HTTP status and error code.
func statusFor(err error) (int, string, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, codeTimeout, "masking timed out"
	}

	var e *apperr.Error
	if errors.As(err, &e) {
		switch e.Code {
		case apperr.CodeInvalidImage:
			return http.StatusBadRequest, string(e.Code), e.Message
		default:
			return http.StatusInternalServerError, string(e.Code), e.Message
		}
	}
	return http.StatusInternalServerError, codeInternal, err.Error()
}

func (s *Server) failErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code, detail := statusFor(err)
	level := s.loggerFrom(r.Context()).Warn
	if status >= http.StatusInternalServerError {
		level = s.loggerFrom(r.Context()).Error
	}
	level("masking failed", "code", code, "error", err)
	s.fail(w, r, status, code, detail)
}

// fail writes a JSON error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	if r.URL.Path == "/mask" {
		maskRequestsTotal.WithLabelValues(code).Inc()
	}
	s.writeJSON(w, r, status, ErrorResponse{Error: code, Detail: detail})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Can't send another response
		s.loggerFrom(r.Context()).Error("failed to encode response", "error", err)
	}
}
