package telemetry

// InitTracerWriter exposes initTracer so tests can capture exported spans.
var InitTracerWriter = initTracer
