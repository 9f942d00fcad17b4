package observability

type Counter interface {
	Incr(name string, tags map[string]string)
	Add(name string, value float64, tags map[string]string)
}

type Gauge interface {
	Set(name string, value float64, tags map[string]string)
}

type Histogram interface {
	Observe(name string, value float64, tags map[string]string)
}

// Recorder is what the HTTP layer records dispatch metrics through; the
// concrete sink is chosen at wiring time.
type Recorder interface {
	Counter
	Gauge
	Histogram
}
