package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaichover/internal/config"
	"vaichover/internal/types"
)

func TestDirectoryClient_RegisterAndUnregister(t *testing.T) {
	type call struct {
		method string
		token  string
	}
	var calls []call
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body directoryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		calls = append(calls, call{r.Method, body.Token})
		if r.Method == http.MethodDelete {
			w.Write([]byte(`{"ok":true,"removed":true}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := NewDirectoryClientWithBase(newTestBase(fastPolicy(0)), server.URL, nil)
	require.NoError(t, c.Register(context.Background(), "tok-1"))
	require.NoError(t, c.Unregister(context.Background(), "tok-1"))

	assert.Equal(t, []call{{http.MethodPost, "tok-1"}, {http.MethodDelete, "tok-1"}}, calls)
}

func TestDirectoryClient_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Falha ao registrar token","details":"db down"}`))
	}))
	defer server.Close()

	c := NewDirectoryClientWithBase(newTestBase(fastPolicy(0)), server.URL, nil)
	err := c.Register(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamUnavailable, types.CodeOf(err))
}

func TestDirectoryClient_BadRequestCarriesDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Token ausente"}`))
	}))
	defer server.Close()

	c := NewDirectoryClientWithBase(newTestBase(fastPolicy(0)), server.URL, nil)
	err := c.Register(context.Background(), "")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Token ausente", appErr.Details["error"])
}

func TestNewClientRegistry_StubsInLocalMode(t *testing.T) {
	cfg := &config.Config{Environment: "local"}
	reg := NewClientRegistry(cfg, nil)

	assert.IsType(t, &StubPushSender{}, reg.Push)
	assert.IsType(t, &OpenMeteoClient{}, reg.Forecast)
	assert.IsType(t, &BigDataCloudClient{}, reg.Reverse)
	assert.IsType(t, &StubTokenDirectory{}, reg.Directory)
}

func TestNewClientRegistry_RealClientsWhenConfigured(t *testing.T) {
	cfg := &config.Config{Environment: "prod"}
	cfg.Push.FirebaseProjectID = "proj"
	cfg.Push.AccessToken = types.SecretString("token")
	cfg.Client.DirectoryURL = "https://vaichover.vercel.app/api/register-token"
	reg := NewClientRegistry(cfg, nil)

	assert.IsType(t, &FCMClient{}, reg.Push)
	assert.IsType(t, &DirectoryClient{}, reg.Directory)
}
