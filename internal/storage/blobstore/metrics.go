package blobstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// blobWritesTotal — количество вызовов Put по результату: stored, deduplicated, error.
	blobWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odie_blob_writes_total",
		Help: "Количество записей в content-addressed хранилище",
	}, []string{"backend", "result"})

	// blobBytesTotal — объём фактически записанных данных.
	blobBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odie_blob_bytes_written_total",
		Help: "Объём записанных в хранилище данных в байтах",
	}, []string{"backend"})
)
