package policy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/service/policyconfig"
	"github.com/jwalitptl/password-policy/pkg/logger"
)

type fakeTenantConfig struct {
	props map[string]map[string]string
}

func (f *fakeTenantConfig) GetModuleProperties(_ context.Context, tenant, _ string) (map[string]string, error) {
	return f.props[tenant], nil
}

func (f *fakeTenantConfig) UpsertProperty(_ context.Context, tenant, _, name, value string) error {
	if f.props == nil {
		f.props = make(map[string]map[string]string)
	}
	if f.props[tenant] == nil {
		f.props[tenant] = make(map[string]string)
	}
	f.props[tenant][name] = value
	return nil
}

func (f *fakeTenantConfig) DeleteProperty(_ context.Context, tenant, _, name string) error {
	delete(f.props[tenant], name)
	return nil
}

func setupRouter(repo *fakeTenantConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)

	lg := logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
	h := NewHandler(policyconfig.NewResolver(repo, lg), repo)

	engine := gin.New()
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func doRequest(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestGetPolicyReturnsDefaults(t *testing.T) {
	engine := setupRouter(&fakeTenantConfig{})

	w := doRequest(t, engine, http.MethodGet, "/api/v1/tenants/T/password-policy", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Settings   model.PolicySettings `json:"settings"`
			Properties []propertyView       `json:"properties"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, model.PolicySettings{
		MinLifetimeInDays:   0,
		ExpiryInDays:        30,
		EnableNotifications: true,
		ReminderLeadDays:    2,
	}, resp.Data.Settings)
	require.Len(t, resp.Data.Properties, 4)
	assert.Equal(t, model.SettingMinLifetimeInDays, resp.Data.Properties[0].Name)
	assert.NotEmpty(t, resp.Data.Properties[0].DisplayName)
	assert.Equal(t, "0", resp.Data.Properties[0].Value)
}

func TestPutOverride(t *testing.T) {
	repo := &fakeTenantConfig{}
	engine := setupRouter(repo)

	w := doRequest(t, engine, http.MethodPut,
		"/api/v1/tenants/T/password-policy/"+model.SettingMinLifetimeInDays,
		`{"value":"7"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", repo.props["T"][model.SettingMinLifetimeInDays])

	get := doRequest(t, engine, http.MethodGet, "/api/v1/tenants/T/password-policy", "")
	assert.Contains(t, get.Body.String(), `"min_lifetime_in_days":7`)
}

func TestPutOverrideValidation(t *testing.T) {
	tests := []struct {
		name    string
		setting string
		body    string
		want    int
	}{
		{"negative days rejected", model.SettingExpiryInDays, `{"value":"-5"}`, http.StatusBadRequest},
		{"fractional days rejected", model.SettingExpiryInDays, `{"value":"2.5"}`, http.StatusBadRequest},
		{"non numeric rejected", model.SettingReminderLeadDays, `{"value":"soon"}`, http.StatusBadRequest},
		{"missing value rejected", model.SettingExpiryInDays, `{}`, http.StatusBadRequest},
		{"boolean accepted", model.SettingEnableNotifications, `{"value":"false"}`, http.StatusOK},
		{"non boolean rejected", model.SettingEnableNotifications, `{"value":"maybe"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := setupRouter(&fakeTenantConfig{})
			w := doRequest(t, engine, http.MethodPut,
				"/api/v1/tenants/T/password-policy/"+tt.setting, tt.body)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestPutUnknownSetting(t *testing.T) {
	engine := setupRouter(&fakeTenantConfig{})

	w := doRequest(t, engine, http.MethodPut,
		"/api/v1/tenants/T/password-policy/password.policy.unknown", `{"value":"1"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteOverrideRestoresDefault(t *testing.T) {
	repo := &fakeTenantConfig{props: map[string]map[string]string{
		"T": {model.SettingExpiryInDays: "90"},
	}}
	engine := setupRouter(repo)

	w := doRequest(t, engine, http.MethodDelete,
		"/api/v1/tenants/T/password-policy/"+model.SettingExpiryInDays, "")

	require.Equal(t, http.StatusOK, w.Code)

	get := doRequest(t, engine, http.MethodGet, "/api/v1/tenants/T/password-policy", "")
	assert.Contains(t, get.Body.String(), `"expiry_in_days":30`)
}
