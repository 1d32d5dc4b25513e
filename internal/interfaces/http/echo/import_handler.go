package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	app "github.com/mohammadpnp/theme-setup/internal/application/importjob"
)

// ImportHandler serves the queued WXR imports under /api/v1/imports.
type ImportHandler struct {
	startImport  app.StartImport
	getImportJob app.GetImportJob
}

type startImportRequest struct {
	SourcePath string `json:"source_path" form:"source_path" validate:"required"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var importJobErrors = []errorMapping{
	{app.ErrInvalidImportSource, http.StatusBadRequest, "invalid_source", "source_path must be a .xml file"},
	{app.ErrInvalidJobID, http.StatusBadRequest, "invalid_job_id", "id must be a valid UUID"},
	{app.ErrJobNotFound, http.StatusNotFound, "not_found", "import job not found"},
}

func NewImportHandler(startImport app.StartImport, getImportJob app.GetImportJob) *ImportHandler {
	return &ImportHandler{startImport: startImport, getImportJob: getImportJob}
}

func (h *ImportHandler) StartImport(c echo.Context) error {
	var req startImportRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_source", "source_path is required")
	}

	out, err := h.startImport.Execute(c.Request().Context(), app.StartImportInput{SourcePath: req.SourcePath})
	if err != nil {
		return writeJobError(c, err, "failed to enqueue import job")
	}

	c.Response().Header().Set(echo.HeaderLocation, c.Echo().Reverse("import-job", out.JobID))
	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}

func (h *ImportHandler) GetImportJob(c echo.Context) error {
	out, err := h.getImportJob.Execute(c.Request().Context(), app.GetImportJobInput{ID: c.Param("id")})
	if err != nil {
		return writeJobError(c, err, "failed to get import job")
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

// writeJobError maps a use-case error onto the envelope. Unknown errors are
// a 500 carrying fallback, never the internal error text.
func writeJobError(c echo.Context, err error, fallback string) error {
	for _, m := range importJobErrors {
		if errors.Is(err, m.target) {
			return writeError(c, m.status, m.code, m.message)
		}
	}
	c.Logger().Errorf("%s: %v", fallback, err)
	return writeError(c, http.StatusInternalServerError, "internal_error", fallback)
}

func writeError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, apiResponse{Error: &errorBody{Code: code, Message: message}})
}
