package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"facilitymonitor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			switch r.Header.Get("Authorization") {
			case "Bearer good":
				next(w, r)
			case "":
				writeJSON(w, http.StatusUnauthorized, models.AuthRequiredError())
			default:
				writeJSON(w, http.StatusForbidden, models.ForbiddenError())
			}
		}
	}

	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "hunter22" {
			writeJSON(w, http.StatusUnauthorized, models.InvalidCredentialsError())
			return
		}
		writeJSON(w, http.StatusOK, models.LoginResponse{Token: "good", User: models.PublicUser{Username: req.Username}})
	})
	mux.HandleFunc("GET /api/sensor2", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.ClimateSample{
			ClimateReading: models.ClimateReading{Temperature: 25.2, Humidity: 53.5, Timestamp: time.Unix(1700000000, 0).UTC()},
			Availability:   models.AvailabilitySynthetic,
		})
	}))
	mux.HandleFunc("GET /api/electricity", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, models.ServerFaultError("Failed to fetch electricity data", nil))
	}))
	mux.HandleFunc("GET /api/export/sensor", authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.ClimateReading{{ID: 2}, {ID: 1}})
	}))
	mux.HandleFunc("POST /api/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.MessageResponse{Message: "sent"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientLoginAndLatest(t *testing.T) {
	srv := newTestAPI(t)
	c := NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	_, err := c.Latest(ctx, Sensor2)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Login(ctx, "operator", "wrong")
	assert.ErrorIs(t, err, ErrInvalidLogin)

	resp, err := c.Login(ctx, "operator", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "good", resp.Token)
	assert.Equal(t, "good", c.Token())

	r, err := c.Latest(ctx, Sensor2)
	require.NoError(t, err)
	require.NotNil(t, r.Climate)
	assert.Equal(t, 25.2, r.Climate.Temperature)
	assert.Equal(t, models.AvailabilitySynthetic, r.Availability())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), r.CapturedAt())
}

func TestClientErrors(t *testing.T) {
	srv := newTestAPI(t)
	c := NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	c.SetToken("stale")
	_, err := c.Latest(ctx, Sensor2)
	assert.ErrorIs(t, err, ErrUnauthorized)

	c.SetToken("good")
	_, err = c.Latest(ctx, Electricity)
	var apiErr models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "Failed to fetch electricity data", apiErr.Message)
}

func TestClientExportAndForgotPassword(t *testing.T) {
	srv := newTestAPI(t)
	c := NewClient(srv.URL, 5*time.Second)
	c.SetToken("good")

	data, err := c.Export(context.Background(), models.ExportSensor)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Len())

	msg, err := c.ForgotPassword(context.Background(), "op@noc.test")
	require.NoError(t, err)
	assert.Equal(t, "sent", msg)
}
