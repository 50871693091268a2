package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/waabox/autolog/internal/domain"
)

const googleDefaultBaseURL = "https://oauth2.googleapis.com"

// googleScopes asks for an ID token carrying the user's email and profile.
const googleScopes = "openid email profile"

// GoogleDeviceFlow implements the OAuth 2.0 Device Authorization Flow for Google.
// See https://developers.google.com/identity/protocols/oauth2/limited-input-device
type GoogleDeviceFlow struct {
	clientID     string
	clientSecret string
	baseURL      string
	client       *http.Client
}

// NewGoogleDeviceFlow creates a GoogleDeviceFlow.
// Pass an empty baseURL to use the real Google endpoints. Pass a test server URL in tests.
// Google issues a client secret for "TVs and Limited Input devices" clients; it is
// not confidential for installed apps.
func NewGoogleDeviceFlow(clientID string, clientSecret string, baseURL string) *GoogleDeviceFlow {
	if baseURL == "" {
		baseURL = googleDefaultBaseURL
	}
	return &GoogleDeviceFlow{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

// RequestCode requests a device code and user code from Google.
// The returned DeviceCodeResponse.UserCode must be shown to the user along with VerificationURI.
// ctx is used to cancel the request (e.g. when the user quits the TUI).
func (f *GoogleDeviceFlow) RequestCode(ctx context.Context) (DeviceCodeResponse, error) {
	data := url.Values{}
	data.Set("client_id", f.clientID)
	data.Set("scope", googleScopes)

	endpoint, err := url.JoinPath(f.baseURL, "/device/code")
	if err != nil {
		return DeviceCodeResponse{}, fmt.Errorf("building URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return DeviceCodeResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return DeviceCodeResponse{}, fmt.Errorf("requesting device code: %w", err)
	}
	defer resp.Body.Close()

	// Google answers with verification_url; RFC 8628 servers use verification_uri.
	var raw struct {
		DeviceCode      string `json:"device_code"`
		UserCode        string `json:"user_code"`
		VerificationURL string `json:"verification_url"`
		VerificationURI string `json:"verification_uri"`
		ExpiresIn       int    `json:"expires_in"`
		Interval        int    `json:"interval"`
		Error           string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return DeviceCodeResponse{}, fmt.Errorf("decoding device code response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return DeviceCodeResponse{}, fmt.Errorf("device code request rejected (HTTP %d): %s", resp.StatusCode, clip(raw.Error))
	}
	verification := raw.VerificationURL
	if verification == "" {
		verification = raw.VerificationURI
	}
	return DeviceCodeResponse{
		DeviceCode:      raw.DeviceCode,
		UserCode:        raw.UserCode,
		VerificationURI: verification,
		ExpiresIn:       raw.ExpiresIn,
		Interval:        raw.Interval,
	}, nil
}

// PollToken polls the Google token endpoint until tokens are granted or an error occurs.
// interval is the polling interval in seconds; pass 0 to skip the sleep delay (useful in tests).
// ctx is used to cancel the polling loop (e.g. when the popup is closed).
// Handles authorization_pending, slow_down, expired_token, and access_denied error codes.
func (f *GoogleDeviceFlow) PollToken(ctx context.Context, deviceCode string, interval int) (TokenResponse, error) {
	if interval <= 0 {
		// interval=0 means no sleep (test mode); negative is treated as no-sleep too
		interval = 0
	}

	tokenEndpoint, err := url.JoinPath(f.baseURL, "/token")
	if err != nil {
		return TokenResponse{}, fmt.Errorf("building URL: %w", err)
	}

	for {
		if interval > 0 {
			select {
			case <-time.After(time.Duration(interval) * time.Second):
			case <-ctx.Done():
				return TokenResponse{}, ctx.Err()
			}
		} else {
			select {
			case <-ctx.Done():
				return TokenResponse{}, ctx.Err()
			default:
			}
		}

		data := url.Values{}
		data.Set("client_id", f.clientID)
		if f.clientSecret != "" {
			data.Set("client_secret", f.clientSecret)
		}
		data.Set("device_code", deviceCode)
		data.Set("grant_type", "urn:ietf:params:oauth:grant-type:device_code")

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(data.Encode()))
		if err != nil {
			return TokenResponse{}, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := f.client.Do(req)
		if err != nil {
			return TokenResponse{}, fmt.Errorf("polling token: %w", err)
		}

		// Google reports pending/slow_down with 4xx statuses, so the body decides.
		var raw struct {
			AccessToken string `json:"access_token"`
			IDToken     string `json:"id_token"`
			Error       string `json:"error"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&raw)
		resp.Body.Close()
		if decodeErr != nil {
			return TokenResponse{}, fmt.Errorf("decoding token response: %w", decodeErr)
		}

		switch raw.Error {
		case "":
			if raw.IDToken != "" {
				return TokenResponse{AccessToken: raw.AccessToken, IDToken: raw.IDToken}, nil
			}
			if raw.AccessToken != "" {
				return TokenResponse{}, fmt.Errorf("token response carried no id_token (is the openid scope enabled?)")
			}
			// server returned neither token nor error; check context and retry
			select {
			case <-ctx.Done():
				return TokenResponse{}, ctx.Err()
			default:
			}
		case "authorization_pending":
			// keep polling
		case "slow_down":
			interval += 5
		case "expired_token":
			return TokenResponse{}, domain.ErrPopupExpired
		case "access_denied":
			return TokenResponse{}, domain.ErrAccessDenied
		default:
			return TokenResponse{}, fmt.Errorf("unexpected error from Google: %s", clip(raw.Error))
		}
	}
}

func clip(msg string) string {
	if len(msg) > 100 {
		return msg[:100]
	}
	return msg
}
