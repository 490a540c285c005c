package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"facilitymonitor/internal/models"
	"github.com/go-resty/resty/v2"
)

// Category is one latest-reading endpoint.
type Category string

const (
	Sensor1     Category = "sensor1"
	Sensor2     Category = "sensor2"
	FireSmoke   Category = "fire-smoke"
	Electricity Category = "electricity"
)

// Reading is the decoded answer of one category endpoint. Exactly one of the
// sample pointers is set.
type Reading struct {
	Category    Category
	Climate     *models.ClimateSample
	FireSmoke   *models.FireSmokeSample
	Electricity *models.ElectricitySample
}

func (r Reading) CapturedAt() time.Time {
	switch {
	case r.Climate != nil:
		return r.Climate.Timestamp
	case r.FireSmoke != nil:
		return r.FireSmoke.Timestamp
	case r.Electricity != nil:
		return r.Electricity.Timestamp
	}
	return time.Time{}
}

func (r Reading) Availability() models.Availability {
	switch {
	case r.Climate != nil:
		return r.Climate.Availability
	case r.FireSmoke != nil:
		return r.FireSmoke.Availability
	case r.Electricity != nil:
		return r.Electricity.Availability
	}
	return ""
}

var (
	// ErrUnauthorized is returned when the server rejects the session token.
	ErrUnauthorized = errors.New("session token rejected")
	// ErrInvalidLogin is returned by Login for bad credentials.
	ErrInvalidLogin = errors.New("invalid username or password")
)

// Client talks to the monitoring API.
type Client struct {
	http *resty.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for a token and keeps it for later requests.
func (c *Client) Login(ctx context.Context, username, password string) (models.LoginResponse, error) {
	var out models.LoginResponse
	var apiErr models.APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(models.LoginRequest{Username: username, Password: password}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/login")
	if err != nil {
		return out, fmt.Errorf("login request: %w", err)
	}
	if resp.IsError() {
		if resp.StatusCode() == http.StatusUnauthorized {
			return out, ErrInvalidLogin
		}
		return out, responseError(resp, apiErr)
	}
	c.SetToken(out.Token)
	return out, nil
}

// ForgotPassword asks the server to mail a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.postMessage(ctx, "/api/forgot-password", models.ForgotPasswordRequest{Email: email})
}

// ResetPassword completes a reset with the token from the email.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	return c.postMessage(ctx, "/api/reset-password", models.ResetPasswordRequest{Token: token, NewPassword: newPassword})
}

func (c *Client) postMessage(ctx context.Context, path string, body any) (string, error) {
	var out models.MessageResponse
	var apiErr models.APIError
	resp, err := c.http.R().SetContext(ctx).SetBody(body).SetResult(&out).SetError(&apiErr).Post(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if resp.IsError() {
		return "", responseError(resp, apiErr)
	}
	return out.Message, nil
}

// Latest fetches the newest reading of category.
func (c *Client) Latest(ctx context.Context, category Category) (Reading, error) {
	body, err := c.get(ctx, "/api/"+string(category))
	if err != nil {
		return Reading{}, err
	}

	r := Reading{Category: category}
	switch category {
	case Sensor1, Sensor2:
		r.Climate = &models.ClimateSample{}
		err = json.Unmarshal(body, r.Climate)
	case FireSmoke:
		r.FireSmoke = &models.FireSmokeSample{}
		err = json.Unmarshal(body, r.FireSmoke)
	case Electricity:
		r.Electricity = &models.ElectricitySample{}
		err = json.Unmarshal(body, r.Electricity)
	default:
		return Reading{}, fmt.Errorf("unknown category %q", category)
	}
	if err != nil {
		return Reading{}, fmt.Errorf("decode %s: %w", category, err)
	}
	return r, nil
}

// Export downloads the full history of kind.
func (c *Client) Export(ctx context.Context, kind models.ExportKind) (models.ExportData, error) {
	body, err := c.get(ctx, "/api/export/"+exportSegment(kind))
	if err != nil {
		return models.ExportData{}, err
	}

	data := models.ExportData{Kind: kind}
	switch kind {
	case models.ExportSensor:
		err = json.Unmarshal(body, &data.Climate)
	case models.ExportFireSmoke:
		err = json.Unmarshal(body, &data.FireSmoke)
	case models.ExportElectricity:
		err = json.Unmarshal(body, &data.Electricity)
	default:
		return data, fmt.Errorf("unknown export kind %q", kind)
	}
	if err != nil {
		return models.ExportData{}, fmt.Errorf("decode %s export: %w", kind, err)
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	var apiErr models.APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.Token()).
		SetError(&apiErr).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, responseError(resp, apiErr)
	}
	return resp.Body(), nil
}

func responseError(resp *resty.Response, apiErr models.APIError) error {
	apiErr.StatusCode = resp.StatusCode()
	if apiErr.Message == "" {
		apiErr.Message = resp.Status()
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	}
	return apiErr
}

func exportSegment(kind models.ExportKind) string {
	if kind == models.ExportSensor {
		return "sensor"
	}
	return string(kind)
}
