package internaldefs

import (
	"github.com/MrEthical07/opsauth"
	"github.com/MrEthical07/opsauth/permission"
)

// Source is what every exporter reads on each scrape or collection.
// *opsauth.Manager implements it.
type Source interface {
	MetricsSnapshot() opsauth.MetricsSnapshot
	AuditDropped() uint64
	Current() (opsauth.Session, bool)
	LoginInFlight() bool
}

// Kind is the exposition type of a family.
type Kind uint8

const (
	Counter Kind = iota + 1
	Gauge
	Histogram
)

func (k Kind) String() string {
	switch k {
	case Counter:
		return "counter"
	case Gauge:
		return "gauge"
	case Histogram:
		return "histogram"
	default:
		return "untyped"
	}
}

// Descriptor names one metric family.
type Descriptor struct {
	Name string
	Help string
	Kind Kind
}

// Series returns the full series names a family can produce. Histograms
// expand to _bucket, _count and _sum.
func (d Descriptor) Series() []string {
	if d.Kind != Histogram {
		return []string{d.Name}
	}
	return []string{d.Name + "_bucket", d.Name + "_count", d.Name + "_sum"}
}

// Label is one name/value pair on a sample.
type Label struct {
	Name  string
	Value string
}

// Sample is one value of a family. Suffix is appended to the family name
// ("" for counters and gauges).
type Sample struct {
	Suffix string
	Labels []Label
	Value  uint64
}

// Family is a described metric with its current samples.
type Family struct {
	Descriptor
	Samples []Sample
}

var (
	sessionAuthenticated = Descriptor{"opsauth_session_authenticated", "1 while a session is active.", Gauge}
	sessionRole          = Descriptor{"opsauth_session_role", "1 for the role of the active session, 0 for every other role.", Gauge}
	sessionExpiry        = Descriptor{"opsauth_session_expiry_timestamp_seconds", "Server-declared expiry of the active session as a Unix time, 0 when none.", Gauge}
	loginInFlight        = Descriptor{"opsauth_login_in_flight", "1 while a login is waiting on the server.", Gauge}
	auditDropped         = Descriptor{"opsauth_audit_dropped_total", "Audit events dropped by the dispatcher.", Counter}
)

type counterDef struct {
	id opsauth.MetricID
	Descriptor
}

var counterDefs = []counterDef{
	{opsauth.MetricLoginSuccess, Descriptor{"opsauth_login_success_total", "Successful logins.", Counter}},
	{opsauth.MetricLoginFailure, Descriptor{"opsauth_login_failure_total", "Logins rejected by the server or with malformed responses.", Counter}},
	{opsauth.MetricLoginNetworkError, Descriptor{"opsauth_login_network_error_total", "Logins that could not reach the server.", Counter}},
	{opsauth.MetricLogout, Descriptor{"opsauth_logout_total", "Local logouts.", Counter}},
	{opsauth.MetricLogoutRemoteFailure, Descriptor{"opsauth_logout_remote_failure_total", "Token revocations whose server call failed.", Counter}},
	{opsauth.MetricRegisterSuccess, Descriptor{"opsauth_register_success_total", "Successful self-registrations.", Counter}},
	{opsauth.MetricRegisterFailure, Descriptor{"opsauth_register_failure_total", "Failed self-registrations.", Counter}},
	{opsauth.MetricRehydrateSuccess, Descriptor{"opsauth_rehydrate_success_total", "Persisted sessions confirmed by the server at startup.", Counter}},
	{opsauth.MetricRehydrateEmpty, Descriptor{"opsauth_rehydrate_empty_total", "Startups with no persisted session.", Counter}},
	{opsauth.MetricRehydrateRejected, Descriptor{"opsauth_rehydrate_rejected_total", "Persisted sessions discarded at startup.", Counter}},
	{opsauth.MetricRehydrateDeferred, Descriptor{"opsauth_rehydrate_deferred_total", "Startups that could not reach the server to confirm a session.", Counter}},
	{opsauth.MetricStorageFailure, Descriptor{"opsauth_storage_failure_total", "Session storage read or write failures.", Counter}},
	{opsauth.MetricAccessDenied, Descriptor{"opsauth_access_denied_total", "Requests refused by a guard.", Counter}},
}

var gatewayLatency = Descriptor{"opsauth_gateway_latency_seconds", "Authentication API request latency.", Histogram}

// bucketBounds are the le labels of the eight latency buckets.
var bucketBounds = [8]string{"0.025", "0.05", "0.1", "0.25", "0.5", "1", "2.5", "+Inf"}

// Descriptors lists every family Collect can return, in output order.
func Descriptors() []Descriptor {
	out := []Descriptor{sessionAuthenticated, sessionRole, sessionExpiry, loginInFlight}
	for _, def := range counterDefs {
		out = append(out, def.Descriptor)
	}
	return append(out, gatewayLatency, auditDropped)
}

// Collect reads source once. Session state and audit drops are always
// present; counters appear only while metrics are enabled and the latency
// histogram only while it is recorded.
func Collect(source Source) []Family {
	current, authenticated := source.Current()
	snapshot := source.MetricsSnapshot()

	families := make([]Family, 0, len(counterDefs)+6)
	families = append(families,
		gauge(sessionAuthenticated, authenticated),
		roleFamily(current, authenticated),
		expiryFamily(current, authenticated),
		gauge(loginInFlight, source.LoginInFlight()),
	)

	if len(snapshot.Counters) > 0 {
		for _, def := range counterDefs {
			families = append(families, Family{
				Descriptor: def.Descriptor,
				Samples:    []Sample{{Value: snapshot.Counters[def.id]}},
			})
		}
	}
	if raw, ok := snapshot.Histograms[opsauth.MetricGatewayLatency]; ok {
		families = append(families, histogramFamily(gatewayLatency, raw))
	}

	return append(families, Family{
		Descriptor: auditDropped,
		Samples:    []Sample{{Value: source.AuditDropped()}},
	})
}

func gauge(d Descriptor, on bool) Family {
	return Family{Descriptor: d, Samples: []Sample{{Value: boolValue(on)}}}
}

func roleFamily(s opsauth.Session, authenticated bool) Family {
	f := Family{Descriptor: sessionRole}
	matched := false
	for _, role := range permission.Roles() {
		active := authenticated && s.User.Role == role
		matched = matched || active
		f.Samples = append(f.Samples, roleSample(role, active))
	}
	if authenticated && !matched {
		f.Samples = append(f.Samples, roleSample(s.User.Role, true))
	}
	return f
}

func roleSample(role permission.Role, active bool) Sample {
	return Sample{Labels: []Label{{Name: "role", Value: string(role)}}, Value: boolValue(active)}
}

func expiryFamily(s opsauth.Session, authenticated bool) Family {
	var v uint64
	if authenticated && !s.ExpiresAt.IsZero() && s.ExpiresAt.Unix() > 0 {
		v = uint64(s.ExpiresAt.Unix())
	}
	return Family{Descriptor: sessionExpiry, Samples: []Sample{{Value: v}}}
}

// histogramFamily turns per-bucket counts into cumulative le samples followed
// by _count and _sum. Snapshots carry bucket counts only, so _sum is 0.
func histogramFamily(d Descriptor, raw []uint64) Family {
	f := Family{Descriptor: d, Samples: make([]Sample, 0, len(bucketBounds)+2)}
	var running uint64
	for i, le := range bucketBounds {
		if i < len(raw) {
			running += raw[i]
		}
		f.Samples = append(f.Samples, Sample{
			Suffix: "_bucket",
			Labels: []Label{{Name: "le", Value: le}},
			Value:  running,
		})
	}
	f.Samples = append(f.Samples,
		Sample{Suffix: "_count", Value: running},
		Sample{Suffix: "_sum"},
	)
	return f
}

func boolValue(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
