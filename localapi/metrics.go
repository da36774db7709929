// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package localapi

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rhsm_localapi_requests_total",
			Help: "Total number of management API requests served",
		},
		[]string{"route", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rhsm_localapi_request_duration_seconds",
			Help:    "Duration of management API requests in seconds",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 30, 120},
		},
		[]string{"route"},
	)
)

// recordRequest counts one served request. route is the matched mux
// pattern, so wildcard segments stay one label value.
func recordRequest(route string, code int, elapsed time.Duration) {
	requestTotal.With(prometheus.Labels{
		"route": route,
		"code":  strconv.Itoa(code),
	}).Inc()
	requestDuration.With(prometheus.Labels{
		"route": route,
	}).Observe(elapsed.Seconds())
}
