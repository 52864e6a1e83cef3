// Package promtest reads metrics back out of registries and /metrics
// responses in tests.
package promtest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// FromHTTPResponse decodes a /metrics response and closes its body.
func FromHTTPResponse(r *http.Response) ([]*dto.MetricFamily, error) {
	defer r.Body.Close()

	var mfs []*dto.MetricFamily
	dec := expfmt.NewDecoder(r.Body, expfmt.ResponseFormat(r.Header))
	for {
		mf := &dto.MetricFamily{}
		err := dec.Decode(mf)
		if errors.Is(err, io.EOF) {
			return mfs, nil
		}
		if err != nil {
			return nil, err
		}
		mfs = append(mfs, mf)
	}
}

// MustGather gathers g or fails the test.
func MustGather(tb testing.TB, g prometheus.Gatherer) []*dto.MetricFamily {
	tb.Helper()
	mfs, err := g.Gather()
	if err != nil {
		tb.Fatalf("gather metrics: %v", err)
	}
	return mfs
}

// FindMetric returns the metric in family name carrying exactly labels, or nil.
func FindMetric(mfs []*dto.MetricFamily, name string, labels map[string]string) *dto.Metric {
	fam := family(mfs, name)
	if fam == nil {
		return nil
	}
	for _, m := range fam.GetMetric() {
		if labelsEqual(m.GetLabel(), labels) {
			return m
		}
	}
	return nil
}

// MustFindMetric is FindMetric that fails the test with what was there instead.
func MustFindMetric(tb testing.TB, mfs []*dto.MetricFamily, name string, labels map[string]string) *dto.Metric {
	tb.Helper()
	if m := FindMetric(mfs, name, labels); m != nil {
		return m
	}

	fam := family(mfs, name)
	if fam == nil {
		names := make([]string, 0, len(mfs))
		for _, mf := range mfs {
			names = append(names, mf.GetName())
		}
		sort.Strings(names)
		tb.Fatalf("no metric family %q; have:\n\t%s", name, strings.Join(names, "\n\t"))
		return nil
	}

	sets := make([]string, 0, len(fam.GetMetric()))
	for _, m := range fam.GetMetric() {
		sets = append(sets, formatLabels(m.GetLabel()))
	}
	tb.Fatalf("family %q has no metric with labels %v; have:\n\t%s", name, labels, strings.Join(sets, "\n\t"))
	return nil
}

// CounterValue returns the value of a counter or gauge.
func CounterValue(tb testing.TB, mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	tb.Helper()
	m := MustFindMetric(tb, mfs, name, labels)
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	}
	tb.Fatalf("metric %q is neither a counter nor a gauge", name)
	return 0
}

func family(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelsEqual(have []*dto.LabelPair, want map[string]string) bool {
	if len(have) != len(want) {
		return false
	}
	for _, l := range have {
		if v, ok := want[l.GetName()]; !ok || v != l.GetValue() {
			return false
		}
	}
	return true
}

func formatLabels(ls []*dto.LabelPair) string {
	parts := make([]string, 0, len(ls))
	for _, l := range ls {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
