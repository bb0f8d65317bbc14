/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package metrics registers the prometheus counters of the record store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricClaim = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recordstore_claim_total",
			Help: "Atomic identity and uniqueness claims and their result.",
		},
		[]string{
			"script", // primary_key_claim, uniqueness_claim, uniqueness_release
			"result", // ok, conflict, error
		},
	)
	metricBatchCommit = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recordstore_batch_commit_total",
			Help: "Outermost batch scopes closed, by result.",
		},
		[]string{
			"result", // ok, error, discarded
		},
	)
	metricUnsupported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recordstore_container_unsupported_total",
			Help: "Rejected synchronized container operations without a remote equivalent.",
		},
		[]string{
			"container", // set, list, int, string
			"op",
		},
	)
)

func ClaimInc(script, result string) {
	metricClaim.WithLabelValues(script, result).Inc()
}

func BatchCommitInc(result string) {
	metricBatchCommit.WithLabelValues(result).Inc()
}

func UnsupportedInc(container, op string) {
	metricUnsupported.WithLabelValues(container, op).Inc()
}
