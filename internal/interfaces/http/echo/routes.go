package echo

import (
	e "github.com/labstack/echo/v4"
	"github.com/mohammadpnp/theme-setup/internal/application/onboarding"
)

// RegisterRoutes mounts the wizard and import job endpoints behind the
// nonce check.
func RegisterRoutes(server *e.Echo, nonces NonceVerifier, wizardHandler *WizardHandler, importHandler *ImportHandler) {
	if server.Validator == nil {
		server.Validator = NewRequestValidator()
	}

	auth := NonceAuth(nonces)

	server.POST(onboarding.DefaultAjaxURL, wizardHandler.Dispatch, auth)

	setup := server.Group("/api/v1/setup", auth)
	setup.POST("/content", wizardHandler.Content)
	setup.POST("/total-items", wizardHandler.TotalItems)
	setup.POST("/plugins", wizardHandler.Plugins)
	setup.POST("/license", wizardHandler.License)
	setup.POST("/selected-demo", wizardHandler.SelectedDemo)
	setup.POST("/import-finished", wizardHandler.ImportFinished)
	setup.POST("/ignore", wizardHandler.Ignore)
	setup.POST("/ready", wizardHandler.Ready)
	setup.GET("/status", wizardHandler.Status)
	setup.GET("/demos", wizardHandler.Demos)

	if importHandler != nil {
		imports := server.Group("/api/v1/imports", auth)
		imports.POST("", importHandler.StartImport)
		imports.GET("/:id", importHandler.GetImportJob).Name = "import-job"
	}
}
