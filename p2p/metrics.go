package p2p

import "github.com/remyroy/parity/metrics"

// Transport metrics, registered in the process-wide default registry.
var (
	ingressTrafficMeter  = metrics.DefaultRegistry.Meter("p2p/ingress")
	egressTrafficMeter   = metrics.DefaultRegistry.Meter("p2p/egress")
	framesInCounter      = metrics.DefaultRegistry.Counter("p2p/frames_in")
	framesOutCounter     = metrics.DefaultRegistry.Counter("p2p/frames_out")
	macFailureCounter    = metrics.DefaultRegistry.Counter("p2p/mac_failures")
	sendQueueGauge       = metrics.DefaultRegistry.Gauge("p2p/send_queue")
	payloadSizeHistogram = metrics.DefaultRegistry.Histogram("p2p/payload_bytes")
)
