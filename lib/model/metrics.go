package model

import "github.com/VictoriaMetrics/metrics"

var (
	cacheHits    = metrics.GetOrCreateCounter("kvmodel_field_cache_hits_total")
	cacheMisses  = metrics.GetOrCreateCounter("kvmodel_field_cache_misses_total")
	decodeErrors = metrics.GetOrCreateCounter("kvmodel_field_decode_errors_total")
)
