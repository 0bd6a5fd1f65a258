package controllers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"

	"github.com/workforcehq/workforce-sdk/modules/workforce/infrastructure/workbook"
	"github.com/workforcehq/workforce-sdk/modules/workforce/services"
	"github.com/workforcehq/workforce-sdk/pkg/configuration"
	"github.com/workforcehq/workforce-sdk/pkg/httpapi"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExchangeController exposes the bulk import/export HTTP surface under
// /exchange.
type ExchangeController struct {
	importer *services.ImportService
	exporter *services.ExportService
	opts     configuration.ExchangeOptions
}

func NewExchangeController(
	importer *services.ImportService,
	exporter *services.ExportService,
	opts configuration.ExchangeOptions,
) *ExchangeController {
	return &ExchangeController{importer: importer, exporter: exporter, opts: opts}
}

func (c *ExchangeController) Key() string {
	return "/exchange"
}

func (c *ExchangeController) Register(r *mux.Router) {
	router := r.PathPrefix("/exchange").Subrouter()
	router.HandleFunc("/import", c.importWorkbook).Methods(http.MethodPost)
	router.HandleFunc("/validate", c.validateWorkbook).Methods(http.MethodPost)
	router.HandleFunc("/export", c.exportWorkbook).Methods(http.MethodGet)
}

func (c *ExchangeController) importWorkbook(w http.ResponseWriter, r *http.Request) {
	wb, ok := c.readWorkbook(w, r)
	if !ok {
		return
	}

	structure := services.ValidateStructure(wb.FoundSheets)
	if !structure.Valid {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "MISSING_SHEETS",
			"workbook is missing required sheets: "+strings.Join(structure.MissingSheets, ", "), nil)
		return
	}

	dryRun := false
	switch strings.ToLower(r.FormValue("dryRun")) {
	case "true", "1":
		dryRun = true
	}

	result, err := c.importer.Import(r.Context(), wb, dryRun)
	if err != nil {
		_ = httpapi.WriteJSON(w, importErrorStatus(r, err), result)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, result)
}

// importErrorStatus distinguishes a run that outlived its transaction
// deadline from other storage failures. The unit of work wraps the deadline
// error, so matching goes through the chain.
func importErrorStatus(r *http.Request, err error) int {
	if errors.Is(err, context.DeadlineExceeded) || r.Context().Err() != nil {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (c *ExchangeController) validateWorkbook(w http.ResponseWriter, r *http.Request) {
	wb, ok := c.readWorkbook(w, r)
	if !ok {
		return
	}
	structure := services.ValidateStructure(wb.FoundSheets)
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"valid":         structure.Valid,
		"missingSheets": structure.MissingSheets,
		"foundSheets":   wb.FoundSheets,
		"rowCounts":     wb.RowCounts(),
	})
}

func (c *ExchangeController) exportWorkbook(w http.ResponseWriter, r *http.Request) {
	companyCode := strings.TrimSpace(r.URL.Query().Get("company"))
	processesParam := strings.TrimSpace(r.URL.Query().Get("processes"))

	sel := services.ExportSelector{CompanyCode: companyCode}
	if processesParam != "" {
		for _, code := range strings.Split(processesParam, ",") {
			if code = strings.TrimSpace(code); code != "" {
				sel.ProcessCodes = append(sel.ProcessCodes, code)
			}
		}
	}
	if err := sel.Validate(); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_SELECTOR", err.Error(), nil)
		return
	}

	sheets, err := c.exporter.BuildSheets(r.Context(), sel)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, "EXPORT_SCOPE_EMPTY", err.Error(), nil)
		return
	}
	payload, err := workbook.Write(sheets)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusInternalServerError, "EXPORT_ENCODE_FAILED", err.Error(), nil)
		return
	}

	base := companyCode
	if base == "" {
		base = "processes"
	}
	fileName := fmt.Sprintf("%s_export_%s.xlsx", base, time.Now().Format("2006-01-02"))
	_ = httpapi.WriteAttachment(w, fileName, xlsxContentType, payload)
}

// readWorkbook extracts and parses the uploaded file, writing the HTTP error
// itself when the upload is unusable.
func (c *ExchangeController) readWorkbook(w http.ResponseWriter, r *http.Request) (*services.ParsedWorkbook, bool) {
	if err := r.ParseMultipartForm(c.opts.MaxUploadSize); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_UPLOAD", "could not parse multipart upload", nil)
		return nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "FILE_REQUIRED", "form field \"file\" is required", nil)
		return nil, false
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".xlsx" {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "only .xlsx uploads are supported", nil)
		return nil, false
	}
	if header.Size > c.opts.MaxUploadSize {
		_ = httpapi.WriteError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("upload exceeds the %d byte limit", c.opts.MaxUploadSize), nil)
		return nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, c.opts.MaxUploadSize+1))
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "UNREADABLE_UPLOAD", "could not read uploaded file", nil)
		return nil, false
	}
	if int64(len(data)) > c.opts.MaxUploadSize {
		_ = httpapi.WriteError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("upload exceeds the %d byte limit", c.opts.MaxUploadSize), nil)
		return nil, false
	}

	reader, err := workbook.Open(data)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_WORKBOOK", "uploaded file is not a readable workbook", nil)
		return nil, false
	}
	defer reader.Close()

	wb, err := services.ParseWorkbook(reader)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "SHEET_CONTRACT_VIOLATION", err.Error(), nil)
		return nil, false
	}
	return wb, true
}
