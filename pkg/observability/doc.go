/*
Package observability provides ready-made hook sets for watching the
dialog engine and schedule gateway.

It includes debug logging hooks for tracing a conversation and a
combinator for fanning signals out to several consumers, typically
Prometheus collectors plus a logger.
*/
package observability
