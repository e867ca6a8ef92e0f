// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_metrics

import (
	"net/http"
	"strconv"
	"time"

	internal_transcriber "github.com/callsightai/api/callsight-api/internal/transcriber"
	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	reg *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	jobs         *prometheus.CounterVec
	jobPolls     *prometheus.HistogramVec
	jobDuration  *prometheus.HistogramVec
	recordings   *prometheus.CounterVec
	recordedSecs prometheus.Counter
	analyses     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())
	return &Metrics{
		reg: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "callsight_http_requests_total",
			Help: "Proxy requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callsight_http_request_duration_seconds",
			Help:    "Proxy request latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"route"}),
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "callsight_transcription_jobs_total",
			Help: "Transcription jobs by mode and final state",
		}, []string{"mode", "state"}),
		jobPolls: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callsight_transcription_job_polls",
			Help:    "Status polls needed before a job settled",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 30, 45, 60},
		}, []string{"mode"}),
		jobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callsight_transcription_job_duration_seconds",
			Help:    "Upload to settle time of transcription jobs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}, []string{"mode"}),
		recordings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "callsight_recordings_total",
			Help: "Finished recordings by mode",
		}, []string{"mode"}),
		recordedSecs: f.NewCounter(prometheus.CounterOpts{
			Name: "callsight_recorded_seconds_total",
			Help: "Seconds of audio recorded",
		}),
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "callsight_analyses_total",
			Help: "Analysis requests by feature and outcome",
		}, []string{"feature", "outcome"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.InstrumentMetricHandler(m.reg, promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
}

// ObserveJob implements internal_transcriber.JobObserver.
func (m *Metrics) ObserveJob(mode internal_type.TranscriptionMode, job *internal_transcriber.Job) {
	if m == nil || job == nil {
		return
	}
	m.jobs.WithLabelValues(string(mode), string(job.State)).Inc()
	if job.Attempts > 0 {
		m.jobPolls.WithLabelValues(string(mode)).Observe(float64(job.Attempts))
	}
	if !job.Finished.IsZero() {
		m.jobDuration.WithLabelValues(string(mode)).Observe(job.Finished.Sub(job.Started).Seconds())
	}
}

func (m *Metrics) ObserveRecording(mode internal_type.TranscriptionMode, d time.Duration) {
	if m == nil {
		return
	}
	m.recordings.WithLabelValues(string(mode)).Inc()
	m.recordedSecs.Add(d.Seconds())
}

func (m *Metrics) ObserveAnalysis(featureID string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.analyses.WithLabelValues(featureID, outcome).Inc()
}

// Middleware counts requests by route template so path parameters do not
// explode the label set.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

var _ internal_transcriber.JobObserver = (*Metrics)(nil)
