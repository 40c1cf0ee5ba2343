// Package observability holds the Prometheus collectors exported on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ServiceName = "pdfbot"
)

var (
	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "convert", "documents_total"),
		Help: "Documents produced by the conversion engine, by outcome",
	}, []string{"outcome"})
	ConvertedImagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "convert", "images_total"),
		Help: "Images placed into produced documents",
	})
	ConvertDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prometheus.BuildFQName(ServiceName, "convert", "duration_seconds"),
		Help:    "Duration of document encoding in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{})
	StatsFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "stats", "failures_total"),
		Help: "Statistics store failures by error code",
	}, []string{"code"})
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "telegram", "updates_total"),
		Help: "Telegram updates handled, by status",
	}, []string{"status"})
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "telegram", "messages_sent_total"),
		Help: "Messages sent in reply to updates, by keyboard presence",
	}, []string{"keyboard"})
	SendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "telegram", "send_failures_total"),
		Help: "Outbound Telegram calls that failed after retries, by action and error kind",
	}, []string{"action", "kind"})
)
