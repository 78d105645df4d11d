package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/opsauth"
	"github.com/MrEthical07/opsauth/metrics/export/internaldefs"
)

var (
	// ErrNilMeter is returned when no Meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the callback reads on every collection.
type Source = internaldefs.Source

// Exporter owns one observable instrument per series and the callback that
// feeds them.
type Exporter struct {
	source       Source
	registration metric.Registration
	counters     map[string]metric.Int64ObservableCounter
	gauges       map[string]metric.Int64ObservableGauge
}

// NewExporter registers instruments on meter that read from manager.
func NewExporter(meter metric.Meter, manager *opsauth.Manager) (*Exporter, error) {
	if manager == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, manager)
}

// NewExporterFromSource registers instruments on meter that read from source.
// Counters become observable counters; gauges and histogram series become
// observable gauges, with labels carried as attributes.
func NewExporterFromSource(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   source,
		counters: make(map[string]metric.Int64ObservableCounter),
		gauges:   make(map[string]metric.Int64ObservableGauge),
	}

	var observables []metric.Observable
	for _, d := range internaldefs.Descriptors() {
		for _, name := range d.Series() {
			if d.Kind == internaldefs.Counter {
				ins, err := meter.Int64ObservableCounter(name, metric.WithDescription(d.Help))
				if err != nil {
					return nil, fmt.Errorf("create observable counter %s: %w", name, err)
				}
				e.counters[name] = ins
				observables = append(observables, ins)
				continue
			}
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription(d.Help))
			if err != nil {
				return nil, fmt.Errorf("create observable gauge %s: %w", name, err)
			}
			e.gauges[name] = ins
			observables = append(observables, ins)
		}
	}

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	for _, f := range internaldefs.Collect(e.source) {
		for _, s := range f.Samples {
			name := f.Name + s.Suffix
			opts := attributes(s.Labels)
			if c, ok := e.counters[name]; ok {
				observer.ObserveInt64(c, int64(s.Value), opts...)
			} else if g, ok := e.gauges[name]; ok {
				observer.ObserveInt64(g, int64(s.Value), opts...)
			}
		}
	}
	return nil
}

func attributes(labels []internaldefs.Label) []metric.ObserveOption {
	if len(labels) == 0 {
		return nil
	}
	kvs := make([]attribute.KeyValue, len(labels))
	for i, l := range labels {
		kvs[i] = attribute.String(l.Name, l.Value)
	}
	return []metric.ObserveOption{metric.WithAttributes(kvs...)}
}

// Close unregisters the callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
