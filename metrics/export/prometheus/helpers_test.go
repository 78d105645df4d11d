package prometheus

import (
	"context"
	"time"

	"github.com/MrEthical07/opsauth"
	"github.com/MrEthical07/opsauth/gateway"
)

type fakeSource struct {
	snapshot opsauth.MetricsSnapshot
	dropped  uint64
	session  *opsauth.Session
	inFlight bool
}

func (f fakeSource) MetricsSnapshot() opsauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }
func (f fakeSource) LoginInFlight() bool                      { return f.inFlight }

func (f fakeSource) Current() (opsauth.Session, bool) {
	if f.session == nil {
		return opsauth.Session{}, false
	}
	return *f.session, true
}

func emptySnapshot() opsauth.MetricsSnapshot {
	return opsauth.MetricsSnapshot{
		Counters:   map[opsauth.MetricID]uint64{},
		Histograms: map[opsauth.MetricID][]uint64{},
	}
}

// operatorGateway accepts any credentials as an active operator.
type operatorGateway struct{}

func (operatorGateway) Login(_ context.Context, creds gateway.Credentials) (gateway.LoginResult, error) {
	return gateway.LoginResult{
		Token:     "opaque-ops-token",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      opsauth.User{ID: "u-ops", Email: creds.Email, Role: opsauth.RoleOperator, Active: true},
	}, nil
}

func (operatorGateway) Register(context.Context, gateway.NewUser) error { return nil }

func (operatorGateway) Logout(context.Context, string) error { return nil }

func (operatorGateway) CurrentUser(context.Context, string) (opsauth.User, error) {
	return opsauth.User{}, &gateway.Error{Kind: gateway.KindRejected, Op: "me"}
}

func testConfig() opsauth.Config {
	cfg := opsauth.DefaultConfig()
	cfg.Storage.Backend = opsauth.StorageMemory
	return cfg
}
