// Package prometheus exposes engine metrics through prometheus/client_golang.
//
// [Collector] reads a snapshot from the engine at scrape time. It keeps no
// state of its own, so registering it has no effect on the hot path.
package prometheus
