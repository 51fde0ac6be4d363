package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/orderimport/internal/core"
	"github.com/JonMunkholm/orderimport/internal/logging"
)

// multipartMemory is the part of a multipart form kept in memory; larger
// files spill to temporary files until they are read.
const multipartMemory = 32 << 20

// healthTimeout bounds the storage ping of the health check.
const healthTimeout = 2 * time.Second

// ImportResponse is returned by a successful import.
type ImportResponse struct {
	Message   string `json:"message"`
	ImportID  string `json:"import_id"`
	Customers int    `json:"customers"`
	Orders    int    `json:"orders"`
	LineItems int    `json:"line_items"`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status   string                   `json:"status"`
	Database string                   `json:"database"`
	Imports  core.ImportLimiterStatus `json:"imports"`
}

// handleImport accepts one order file in the multipart field "file".
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("no file provided: %w", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("no file provided: %w", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := core.CheckFileExtension(header.Filename); err != nil {
		s.respondError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusInternalServerError)
		return
	}

	result, err := s.service.ImportBatch(r.Context(), header.Filename, data)
	if err != nil {
		s.respondError(w, r, err, importStatus(err))
		return
	}

	logging.FromContext(r.Context()).Info("file imported",
		"import_id", result.ImportID,
		"filename", result.Filename,
	)
	writeJSON(w, r, http.StatusCreated, ImportResponse{
		Message:   "Import completed successfully",
		ImportID:  result.ImportID,
		Customers: result.Customers,
		Orders:    result.Orders,
		LineItems: result.LineItems,
	})
}

// importStatus maps an ImportBatch error to its HTTP status.
func importStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrAlreadyImported):
		return http.StatusConflict
	case errors.Is(err, core.ErrMalformedRecord), errors.Is(err, core.ErrImportFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleListOrders serves GET /orders?order_id=&min_date=&max_date=.
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := core.ParseOrderFilter(q.Get("order_id"), q.Get("min_date"), q.Get("max_date"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	views, err := s.service.ListOrders(r.Context(), filter)
	switch {
	case errors.Is(err, core.ErrNotFound):
		s.respondError(w, r, err, http.StatusNotFound)
		return
	case err != nil:
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, views)
}

// handleHealth reports storage reachability and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:   "ok",
		Database: "ok",
		Imports:  s.service.Limiter().Status(),
	}
	status := http.StatusOK

	if err := s.store.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).Error("health check: storage unreachable", "error", err)
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, r, status, resp)
}
