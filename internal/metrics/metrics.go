// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	LoopState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pluck_loop_state",
		Help: "Simulation loop state (0=idle, 1=running, 2=stopped)",
	})
	TriggerQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pluck_trigger_queue_depth",
		Help: "Pending pluck events observed at the start of the last drain",
	})
	OutputBufferFill = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pluck_output_buffer_fill",
		Help: "Samples waiting in the output ring for the audio backend",
	})
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pluck_websocket_clients",
		Help: "Connected visualization clients",
	})
)

// Counters
var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pluck_cycles_total",
		Help: "Simulation cycles (emitted samples)",
	})
	PlucksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pluck_triggers_total",
		Help: "Trigger events applied by the simulation loop, by outcome",
	}, []string{"outcome"})
	TriggersDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pluck_triggers_dropped_total",
		Help: "Trigger events dropped because the queue was full",
	})
	LoopLagSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pluck_loop_lag_skipped_samples_total",
		Help: "Samples skipped because the simulation loop fell behind the sample clock",
	})
	UnderrunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pluck_output_underruns_total",
		Help: "Output samples filled with silence because the loop had not produced them",
	})
	OverflowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pluck_output_overflows_total",
		Help: "Samples dropped because the output ring was full",
	})
	FramesPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pluck_frames_published_total",
		Help: "Visualization frames handed to transports, by transport",
	}, []string{"transport"})
)

// Pre-resolved label values so the loop never hashes labels per event.
var (
	PlucksApplied = PlucksTotal.WithLabelValues("applied")
	PlucksIgnored = PlucksTotal.WithLabelValues("ignored")
)
