package echo

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mohammadpnp/theme-setup/internal/application/onboarding"
	"go.uber.org/zap"
)

const (
	licenseFailedMessage  = "Yikes! The theme activation failed. Please try again or contact support."
	licenseMissingMessage = "Please add your license key before attempting to activate one."
)

// SetupWizard is what the AJAX actions call into.
type SetupWizard interface {
	ContentStep(ctx context.Context, req onboarding.StepRequest) onboarding.Response
	TotalItems(ctx context.Context, index int) (int, error)
	PluginStep(ctx context.Context, slug string) (onboarding.Response, error)
	ActivateLicense(ctx context.Context, key string) (onboarding.LicenseResult, error)
	ImportInfo(index int) ([]onboarding.KindInfo, error)
	ImportFinished(ctx context.Context) error
	Ignore(ctx context.Context) error
	Ready(ctx context.Context) error
	Status(ctx context.Context) (onboarding.Status, error)
	Demos() []onboarding.Demo
}

// wpResponse mirrors wp_send_json_success and wp_send_json_error.
type wpResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type licenseResponse struct {
	Done    int    `json:"done"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type selectedIndexRequest struct {
	SelectedIndex int `form:"selected_index" json:"selected_index" validate:"min=0"`
}

type pluginRequest struct {
	Slug string `form:"slug" json:"slug" validate:"required"`
}

type licenseRequest struct {
	LicenseKey string `form:"license_key" json:"license_key" validate:"required"`
}

type WizardHandler struct {
	wizard  SetupWizard
	actions map[string]echo.HandlerFunc
	logger  *zap.Logger
}

func NewWizardHandler(wizard SetupWizard, logger *zap.Logger) *WizardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &WizardHandler{wizard: wizard, logger: logger}
	h.actions = map[string]echo.HandlerFunc{
		"merlin_content":                          h.Content,
		"merlin_get_total_content_import_items":   h.TotalItems,
		"merlin_plugins":                          h.Plugins,
		"merlin_activate_license":                 h.License,
		"merlin_update_selected_import_data_info": h.SelectedDemo,
		"merlin_import_finished":                  h.ImportFinished,
		"merlin_ignore":                           h.Ignore,
		"merlin_ready":                            h.Ready,
	}
	return h
}

// Dispatch routes an admin-ajax request by its action field. Unknown
// actions get WordPress' bare "0".
func (h *WizardHandler) Dispatch(c echo.Context) error {
	action := c.FormValue("action")
	if action == "" {
		action = c.QueryParam("action")
	}
	handler, ok := h.actions[action]
	if !ok {
		return c.String(http.StatusBadRequest, "0")
	}
	return handler(c)
}

func (h *WizardHandler) Content(c echo.Context) error {
	var req onboarding.StepRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, onboarding.Response{Error: 1, Message: onboarding.MessageInvalid})
	}
	return c.JSON(http.StatusOK, h.wizard.ContentStep(c.Request().Context(), req))
}

func (h *WizardHandler) TotalItems(c echo.Context) error {
	var req selectedIndexRequest
	if err := h.bind(c, &req); err != nil {
		return c.JSON(http.StatusOK, wpResponse{})
	}
	n, err := h.wizard.TotalItems(c.Request().Context(), req.SelectedIndex)
	if err != nil {
		h.logger.Warn("total content items unavailable", zap.Int("selected_index", req.SelectedIndex), zap.Error(err))
		return c.JSON(http.StatusOK, wpResponse{})
	}
	return c.JSON(http.StatusOK, wpResponse{Success: true, Data: n})
}

func (h *WizardHandler) Plugins(c echo.Context) error {
	var req pluginRequest
	if err := h.bind(c, &req); err != nil {
		return c.String(http.StatusOK, "0")
	}
	resp, err := h.wizard.PluginStep(c.Request().Context(), req.Slug)
	if err != nil {
		if errors.Is(err, onboarding.ErrMissingSlug) {
			return c.String(http.StatusOK, "0")
		}
		h.logger.Error("plugin step failed", zap.String("slug", req.Slug), zap.Error(err))
		return c.JSON(http.StatusOK, onboarding.Response{Error: 1, Message: onboarding.MessageError, Errors: err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *WizardHandler) License(c echo.Context) error {
	var req licenseRequest
	if err := h.bind(c, &req); err != nil {
		return c.JSON(http.StatusOK, licenseResponse{Message: licenseMissingMessage})
	}
	res, err := h.wizard.ActivateLicense(c.Request().Context(), req.LicenseKey)
	if err != nil {
		if errors.Is(err, onboarding.ErrMissingLicense) {
			return c.JSON(http.StatusOK, licenseResponse{Message: licenseMissingMessage})
		}
		h.logger.Error("license activation failed", zap.Error(err))
		return c.JSON(http.StatusOK, licenseResponse{Done: 1, Message: licenseFailedMessage})
	}
	h.logger.Debug("license activation performed", zap.Bool("success", res.Success), zap.String("message", res.Message))
	return c.JSON(http.StatusOK, licenseResponse{Done: 1, Success: res.Success, Message: res.Message})
}

func (h *WizardHandler) SelectedDemo(c echo.Context) error {
	var req selectedIndexRequest
	if err := h.bind(c, &req); err != nil {
		return c.JSON(http.StatusOK, wpResponse{})
	}
	info, err := h.wizard.ImportInfo(req.SelectedIndex)
	if err != nil {
		return c.JSON(http.StatusOK, wpResponse{})
	}
	return c.JSON(http.StatusOK, wpResponse{Success: true, Data: info})
}

func (h *WizardHandler) ImportFinished(c echo.Context) error {
	if err := h.wizard.ImportFinished(c.Request().Context()); err != nil {
		h.logger.Warn("import cleanup incomplete", zap.Error(err))
	}
	return c.JSON(http.StatusOK, wpResponse{Success: true})
}

func (h *WizardHandler) Ignore(c echo.Context) error {
	if err := h.wizard.Ignore(c.Request().Context()); err != nil {
		h.logger.Error("setup state not stored", zap.Error(err))
		return c.JSON(http.StatusOK, wpResponse{})
	}
	return c.JSON(http.StatusOK, wpResponse{Success: true})
}

func (h *WizardHandler) Ready(c echo.Context) error {
	if err := h.wizard.Ready(c.Request().Context()); err != nil {
		h.logger.Error("setup state not stored", zap.Error(err))
		return c.JSON(http.StatusOK, wpResponse{})
	}
	return c.JSON(http.StatusOK, wpResponse{Success: true})
}

func (h *WizardHandler) Status(c echo.Context) error {
	st, err := h.wizard.Status(c.Request().Context())
	if err != nil {
		h.logger.Error("setup state not read", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to read setup state",
		}})
	}
	return c.JSON(http.StatusOK, apiResponse{Data: st})
}

func (h *WizardHandler) Demos(c echo.Context) error {
	return c.JSON(http.StatusOK, apiResponse{Data: h.wizard.Demos()})
}

func (h *WizardHandler) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}
