package policy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/service/policyconfig"
	apperrors "github.com/jwalitptl/password-policy/pkg/errors"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/metrics"
)

type fakeClaimStore struct {
	values map[string]string
	getErr error
	setErr error
	writes []map[string]string
}

func (f *fakeClaimStore) GetClaimValues(_ context.Context, _ string, claimURIs []string, _ string) (map[string]string, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	result := make(map[string]string)
	for _, uri := range claimURIs {
		if v, ok := f.values[uri]; ok {
			result[uri] = v
		}
	}
	return result, nil
}

func (f *fakeClaimStore) SetClaimValues(_ context.Context, _ string, claims map[string]string, _ string) error {
	if f.setErr != nil {
		return f.setErr
	}
	written := make(map[string]string, len(claims))
	for k, v := range claims {
		written[k] = v
		if f.values == nil {
			f.values = make(map[string]string)
		}
		f.values[k] = v
	}
	f.writes = append(f.writes, written)
	return nil
}

type fakeTenantConfig struct {
	props map[string]map[string]string
	err   error
}

func (f *fakeTenantConfig) GetModuleProperties(_ context.Context, tenant, _ string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
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

type fakeBroker struct {
	published []interface{}
	err       error
}

func (f *fakeBroker) Publish(_ context.Context, _ string, message interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, message)
	return nil
}

func (f *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

func (f *fakeBroker) Close() error { return nil }

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

func newTestService(t *testing.T, cfg *fakeTenantConfig, broker *fakeBroker, now time.Time) *Service {
	t.Helper()
	lg := testLogger()
	resolver := policyconfig.NewResolver(cfg, lg)
	m := metrics.NewMetrics(prometheus.NewRegistry(), "test", "policy")

	var svc *Service
	if broker != nil {
		svc = NewService(resolver, broker, lg, m)
	} else {
		svc = NewService(resolver, nil, lg, m)
	}
	svc.now = func() time.Time { return now }
	return svc
}

func minLifetimeConfig(tenant string, days int) *fakeTenantConfig {
	return &fakeTenantConfig{props: map[string]map[string]string{
		tenant: {model.SettingMinLifetimeInDays: strconv.Itoa(days)},
	}}
}

func daysAgoMillis(now time.Time, days int) string {
	return strconv.FormatInt(now.Add(-time.Duration(days)*24*time.Hour).UnixMilli(), 10)
}

func TestHandleIgnoresUnknownKind(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, &fakeTenantConfig{}, nil, now)
	store := &fakeClaimStore{getErr: errors.New("store should not be touched")}

	err := svc.Handle(context.Background(), &model.LifecycleEvent{
		Kind:         model.KindUnknown,
		Username:     "alice",
		TenantDomain: "T",
		Claims:       store,
	})

	assert.NoError(t, err)
	assert.Empty(t, store.writes)
}

func TestPreChangeAllowsAccountWithNoClaim(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, minLifetimeConfig("T", 365), nil, now)
	store := &fakeClaimStore{}

	err := svc.Handle(context.Background(), &model.LifecycleEvent{
		Kind:         model.KindPreUpdateCredential,
		Username:     "alice",
		TenantDomain: "T",
		Claims:       store,
	})

	assert.NoError(t, err)
	assert.Empty(t, store.writes, "pre-change must not mutate state")
}

func TestPreChangeMinimumLifetime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		minLifetime int
		wantErr     bool
	}{
		{"rejected below minimum", 2, true},
		{"allowed at minimum", 1, false},
		{"zero always allows", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, minLifetimeConfig("T", tt.minLifetime), nil, now)
			store := &fakeClaimStore{values: map[string]string{
				model.LastPasswordChangeClaimURI: daysAgoMillis(now, 1),
			}}

			err := svc.Handle(context.Background(), &model.LifecycleEvent{
				Kind:         model.KindPreUpdateCredential,
				Username:     "alice",
				TenantDomain: "T",
				Claims:       store,
			})

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsPolicyViolation(err))
			} else {
				assert.NoError(t, err)
			}
			assert.Empty(t, store.writes)
		})
	}
}

func TestPreChangeFailsClosedOnReadError(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, minLifetimeConfig("T", 0), nil, now)
	store := &fakeClaimStore{getErr: errors.New("connection refused")}

	err := svc.Handle(context.Background(), &model.LifecycleEvent{
		Kind:         model.KindPreUpdateCredential,
		Username:     "alice",
		TenantDomain: "T",
		Claims:       store,
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsStoreAccess(err))
	assert.False(t, apperrors.IsPolicyViolation(err))
}

func TestPreChangeFailsClosedOnMalformedClaim(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, minLifetimeConfig("T", 1), nil, now)
	store := &fakeClaimStore{values: map[string]string{
		model.LastPasswordChangeClaimURI: "not-a-timestamp",
	}}

	err := svc.Handle(context.Background(), &model.LifecycleEvent{
		Kind:         model.KindPreUpdateCredential,
		Username:     "alice",
		TenantDomain: "T",
		Claims:       store,
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsStoreAccess(err))
}

func TestPostChangeStampsSingleClaim(t *testing.T) {
	now := time.Now()

	for _, kind := range []model.EventKind{
		model.KindPostUpdateCredential,
		model.KindPostUpdateCredentialByAdmin,
	} {
		t.Run(kind.String(), func(t *testing.T) {
			svc := newTestService(t, &fakeTenantConfig{}, nil, now)
			store := &fakeClaimStore{}

			err := svc.Handle(context.Background(), &model.LifecycleEvent{
				Kind:         kind,
				Username:     "alice",
				TenantDomain: "T",
				Claims:       store,
			})

			require.NoError(t, err)
			require.Len(t, store.writes, 1)
			require.Len(t, store.writes[0], 1, "exactly one claim key must be written")

			raw, ok := store.writes[0][model.LastPasswordChangeClaimURI]
			require.True(t, ok)
			millis, err := strconv.ParseInt(raw, 10, 64)
			require.NoError(t, err)
			assert.Equal(t, now.UnixMilli(), millis)
		})
	}
}

func TestPostChangeWriteFailure(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, &fakeTenantConfig{}, nil, now)
	store := &fakeClaimStore{setErr: errors.New("disk full")}

	err := svc.Handle(context.Background(), &model.LifecycleEvent{
		Kind:         model.KindPostUpdateCredential,
		Username:     "alice",
		TenantDomain: "T",
		Claims:       store,
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsStoreAccess(err))
	assert.Empty(t, store.writes, "failed write must leave no partial state")
}

func TestPostChangeRedeliveryOverwrites(t *testing.T) {
	first := time.Now()
	second := first.Add(5 * time.Second)

	svc := newTestService(t, &fakeTenantConfig{}, nil, first)
	store := &fakeClaimStore{}
	event := &model.LifecycleEvent{
		Kind:         model.KindPostUpdateCredential,
		Username:     "alice",
		TenantDomain: "T",
		Claims:       store,
	}

	require.NoError(t, svc.Handle(context.Background(), event))
	svc.now = func() time.Time { return second }
	require.NoError(t, svc.Handle(context.Background(), event))

	require.Len(t, store.writes, 2)
	assert.Len(t, store.values, 1, "re-delivery must not accumulate claim entries")
	assert.Equal(t, strconv.FormatInt(second.UnixMilli(), 10),
		store.values[model.LastPasswordChangeClaimURI])
}

func TestPostChangePublishesToBroker(t *testing.T) {
	now := time.Now()
	broker := &fakeBroker{}
	svc := newTestService(t, &fakeTenantConfig{}, broker, now)
	store := &fakeClaimStore{}

	err := svc.Handle(context.Background(), &model.LifecycleEvent{
		Kind:         model.KindPostUpdateCredential,
		Username:     "alice",
		TenantDomain: "T",
		Claims:       store,
	})

	require.NoError(t, err)
	require.Len(t, broker.published, 1)
	message, ok := broker.published[0].(*model.PasswordChangedMessage)
	require.True(t, ok)
	assert.Equal(t, "T", message.Tenant)
	assert.Equal(t, "alice", message.Username)
	assert.Equal(t, now.UnixMilli(), message.ChangedAtMillis)
}

func TestPostChangeBrokerFailureIsBestEffort(t *testing.T) {
	now := time.Now()
	broker := &fakeBroker{err: fmt.Errorf("redis down")}
	svc := newTestService(t, &fakeTenantConfig{}, broker, now)
	store := &fakeClaimStore{}

	err := svc.Handle(context.Background(), &model.LifecycleEvent{
		Kind:         model.KindPostUpdateCredential,
		Username:     "alice",
		TenantDomain: "T",
		Claims:       store,
	})

	assert.NoError(t, err, "broker failure must not fail the lifecycle event")
	assert.Len(t, store.writes, 1)
}

func TestChangeFlowEndToEnd(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, minLifetimeConfig("T", 1), nil, now)
	store := &fakeClaimStore{values: map[string]string{
		model.LastPasswordChangeClaimURI: daysAgoMillis(now, 2),
	}}
	ctx := context.Background()

	pre := &model.LifecycleEvent{
		Kind:         model.KindPreUpdateCredential,
		Username:     "alice",
		TenantDomain: "T",
		Claims:       store,
	}
	post := &model.LifecycleEvent{
		Kind:         model.KindPostUpdateCredential,
		Username:     "alice",
		TenantDomain: "T",
		Claims:       store,
	}

	// Two days since the last change, one day minimum: allowed.
	require.NoError(t, svc.Handle(ctx, pre))

	// The external credential change succeeds, the post event stamps now.
	require.NoError(t, svc.Handle(ctx, post))
	assert.Equal(t, strconv.FormatInt(now.UnixMilli(), 10),
		store.values[model.LastPasswordChangeClaimURI])

	// An immediate retry now violates the one day minimum.
	err := svc.Handle(ctx, pre)
	require.Error(t, err)
	assert.True(t, apperrors.IsPolicyViolation(err))
}
