package onboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"go.uber.org/zap"
)

const (
	licenseTimeout        = 15 * time.Second
	licenseSuccessMessage = "Your theme is activated! Remote updates and theme support are enabled."
	licenseGenericError   = "An error occurred, please try again."
)

type LicenseConfig struct {
	APIURL    string
	ItemName  string
	ThemeSlug string
	HomeURL   string
	Timeout   time.Duration
}

type LicenseResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LicenseActivator activates a theme license against an EDD store.
type LicenseActivator struct {
	client  *http.Client
	options content.OptionStore
	cfg     LicenseConfig
	logger  *zap.Logger
}

func NewLicenseActivator(client *http.Client, options content.OptionStore, cfg LicenseConfig, logger *zap.Logger) *LicenseActivator {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = licenseTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LicenseActivator{client: client, options: options, cfg: cfg, logger: logger}
}

type eddResponse struct {
	Success bool   `json:"success"`
	License string `json:"license"`
	Error   string `json:"error"`
	Expires string `json:"expires"`
}

// Activate calls the store API. Remote refusals are a result, not an error;
// the error return is reserved for a failure to record a valid license.
func (a *LicenseActivator) Activate(ctx context.Context, key string) (LicenseResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return LicenseResult{}, ErrMissingLicense
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	form := url.Values{
		"edd_action": {"activate_license"},
		"license":    {key},
		"item_name":  {a.cfg.ItemName},
		"url":        {a.cfg.HomeURL},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return LicenseResult{Message: licenseGenericError}, nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("license api unreachable", zap.Error(err))
		return LicenseResult{Message: fmt.Sprintf("%v: %v", ErrLicenseRequest, err)}, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return LicenseResult{Message: licenseGenericError}, nil
	}

	var data eddResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return LicenseResult{Message: licenseGenericError}, nil
	}

	if !data.Success {
		return LicenseResult{Message: a.refusal(data)}, nil
	}
	if data.License != "valid" {
		return LicenseResult{}, nil
	}

	if err := a.options.SetOption(ctx, a.cfg.ThemeSlug+"_license_key_status", data.License); err != nil {
		return LicenseResult{}, fmt.Errorf("%w: %v", ErrStoreState, err)
	}
	if err := a.options.SetOption(ctx, a.cfg.ThemeSlug+"_license_key", key); err != nil {
		return LicenseResult{}, fmt.Errorf("%w: %v", ErrStoreState, err)
	}
	a.logger.Debug("license activated", zap.String("theme", a.cfg.ThemeSlug))
	return LicenseResult{Success: true, Message: licenseSuccessMessage}, nil
}

func (a *LicenseActivator) refusal(data eddResponse) string {
	switch data.Error {
	case "expired":
		expires := data.Expires
		if t, err := time.Parse(time.DateTime, data.Expires); err == nil {
			expires = t.Format("January 2, 2006")
		}
		return fmt.Sprintf("Your license key expired on %s.", expires)
	case "revoked":
		return "Your license key has been disabled."
	case "missing":
		return "This appears to be an invalid license key. Please try again or contact support."
	case "invalid", "site_inactive":
		return "Your license is not active for this URL."
	case "item_name_mismatch":
		return fmt.Sprintf("This appears to be an invalid license key for %s.", a.cfg.ItemName)
	case "no_activations_left":
		return "Your license key has reached its activation limit."
	default:
		return licenseGenericError
	}
}

// Registered reports whether a valid license was recorded before.
func (a *LicenseActivator) Registered(ctx context.Context) (bool, error) {
	status, _, err := a.options.GetOption(ctx, a.cfg.ThemeSlug+"_license_key_status")
	if err != nil {
		return false, err
	}
	return status == "valid", nil
}
