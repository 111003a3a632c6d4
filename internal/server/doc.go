// Package server exposes a pulse client over HTTP for operators: probes,
// prometheus metrics, resource fetch and peek, and manual realtime control.
package server
