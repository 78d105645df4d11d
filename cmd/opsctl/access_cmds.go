package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/opsauth"
	otelexport "github.com/MrEthical07/opsauth/metrics/export/otel"
	promexport "github.com/MrEthical07/opsauth/metrics/export/prometheus"
)

var errDenied = errors.New("access denied")

func canCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "can <route>",
		Short: "Check whether the logged-in user may open a console route",
		Long:  "Check a console route such as /admin/users against the route table. Exits non-zero when access is denied.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer m.Teardown()

			route := args[0]
			user, ok := m.User()
			if !ok {
				return errNotLoggedIn
			}
			if !m.CanAccessRoute(route) {
				m.RecordAccessDenied(cmd.Context(), user, route)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: denied for %s\n", route, user.Role)
				return errDenied
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: allowed for %s\n", route, user.Role)
			return nil
		},
	}
}

func statusCmd(opts *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session state and client metrics",
		Long:  "Restore the saved session and print its state followed by the client counters for this run.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer m.Teardown()

			out := cmd.OutOrStdout()
			switch format {
			case "text":
				writeStatus(out, m)
				return nil
			case "prometheus":
				_, err := io.WriteString(out, promexport.NewExporter(m).Render())
				return err
			case "otel":
				return writeOTel(cmd.Context(), out, m)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, prometheus, or otel")
	return cmd
}

func writeStatus(out io.Writer, m *opsauth.Manager) {
	if user, ok := m.User(); ok {
		fmt.Fprintf(out, "session: %s (%s)\n", user.Email, user.Role)
	} else {
		fmt.Fprintln(out, "session: none")
	}
	fmt.Fprintf(out, "default route policy: %s\n", m.Routes().Policy())

	snapshot := m.MetricsSnapshot()
	ids := make([]opsauth.MetricID, 0, len(snapshot.Counters))
	for id := range snapshot.Counters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if v := snapshot.Counters[id]; v > 0 {
			fmt.Fprintf(out, "  %s %d\n", metricLabel(id), v)
		}
	}
}

var metricLabels = map[opsauth.MetricID]string{
	opsauth.MetricLoginSuccess:        "login_success",
	opsauth.MetricLoginFailure:        "login_failure",
	opsauth.MetricLoginNetworkError:   "login_network_error",
	opsauth.MetricLogout:              "logout",
	opsauth.MetricLogoutRemoteFailure: "logout_remote_failure",
	opsauth.MetricRegisterSuccess:     "register_success",
	opsauth.MetricRegisterFailure:     "register_failure",
	opsauth.MetricRehydrateSuccess:    "rehydrate_success",
	opsauth.MetricRehydrateEmpty:      "rehydrate_empty",
	opsauth.MetricRehydrateRejected:   "rehydrate_rejected",
	opsauth.MetricRehydrateDeferred:   "rehydrate_deferred",
	opsauth.MetricStorageFailure:      "storage_failure",
	opsauth.MetricAccessDenied:        "access_denied",
}

func metricLabel(id opsauth.MetricID) string {
	if label, ok := metricLabels[id]; ok {
		return label
	}
	return fmt.Sprintf("metric_%d", id)
}

// writeOTel collects once through an OpenTelemetry manual reader and prints
// every integer data point.
func writeOTel(ctx context.Context, out io.Writer, m *opsauth.Manager) error {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	exp, err := otelexport.NewExporter(provider.Meter("opsctl"), m)
	if err != nil {
		return err
	}
	defer func() { _ = exp.Close() }()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			switch data := metric.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					writePoint(out, metric.Name, dp.Attributes, dp.Value)
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					writePoint(out, metric.Name, dp.Attributes, dp.Value)
				}
			}
		}
	}
	return nil
}

func writePoint(out io.Writer, name string, attrs attribute.Set, v int64) {
	if enc := attrs.Encoded(attribute.DefaultEncoder()); enc != "" {
		fmt.Fprintf(out, "%s{%s} %d\n", name, enc, v)
		return
	}
	fmt.Fprintf(out, "%s %d\n", name, v)
}
