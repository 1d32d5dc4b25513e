package echo

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NonceAction is the action every wizard request is signed for.
const NonceAction = "merlin_nonce"

type NonceVerifier interface {
	Verify(action, token string) bool
}

// NonceAuth accepts the nonce from the wpnonce or _wpnonce form fields or
// the X-WP-Nonce header.
func NonceAuth(verifier NonceVerifier) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup: "form:wpnonce,form:_wpnonce,header:X-WP-Nonce",
		Validator: func(key string, c echo.Context) (bool, error) {
			return verifier.Verify(NonceAction, key), nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return c.JSON(http.StatusForbidden, wpResponse{Data: "invalid nonce"})
		},
	})
}

// RequestValidator adapts go-playground/validator to echo.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

func (v *RequestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}
