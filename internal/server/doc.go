// Package server exposes the masking pipeline over HTTP.
//
// # Endpoints
//
//   - GET /: upload page (embedded HTML)
//   - POST /mask: multipart upload in field "file", answered with the masked
//     image as PNG (Content-Disposition attachment, X-Masked-Regions header)
//   - GET /health: {"status":"ok","service":"rrn-masker","ocr":{...}}
//   - GET /metrics: Prometheus exposition
//
// # Error Handling
//
// Failures are answered with {"error": code, "detail": message}:
//
//   - 400: missing file, non-image content type, undecodable image
//   - 413: upload larger than the configured limit
//   - 500: OCR engine, region or internal failure
//   - 504: the masking call exceeded the request timeout
//
// Every response carries an X-Request-ID header; request logs carry the same
// id as request_id. Detected numbers are never logged.
package server
