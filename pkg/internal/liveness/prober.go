package liveness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/attendance/pkg/internal/scheduler"
	"github.com/valyala/fasthttp"
)

// ErrTransport marks heartbeat or probe delivery failures. They are
// recoverable and never leave the manager.
var ErrTransport = errors.New("transport failure")

type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// Fixed classification policy, shared by every session so payloads stay
// comparable.
const (
	ExcellentBelow = 50 * time.Millisecond
	GoodBelow      = 150 * time.Millisecond
	FairBelow      = 300 * time.Millisecond
)

const DefaultProbeTimeout = 2 * time.Second

// Classify maps a round-trip time to a quality tier.
func Classify(rtt time.Duration) Quality {
	switch {
	case rtt < 0:
		return QualityPoor
	case rtt < ExcellentBelow:
		return QualityExcellent
	case rtt < GoodBelow:
		return QualityGood
	case rtt < FairBelow:
		return QualityFair
	default:
		return QualityPoor
	}
}

// Prober measures the connection quality. Implementations must not block
// past their own timeout and must report QualityPoor instead of failing.
type Prober interface {
	Probe(ctx context.Context) Quality
}

// RoundTripFunc performs one tiny request/response exchange.
type RoundTripFunc func(ctx context.Context) error

type RoundTripProber struct {
	roundTrip RoundTripFunc
	timeout   time.Duration
	sched     scheduler.Scheduler
}

func NewRoundTripProber(rt RoundTripFunc, timeout time.Duration, sched scheduler.Scheduler) *RoundTripProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if sched == nil {
		sched = scheduler.New(nil)
	}
	return &RoundTripProber{roundTrip: rt, timeout: timeout, sched: sched}
}

func (p *RoundTripProber) Probe(ctx context.Context) Quality {
	if p.roundTrip == nil {
		return QualityPoor
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := p.sched.Now()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: probe panicked: %v", ErrTransport, r)
			}
		}()
		done <- p.roundTrip(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return QualityPoor
		}
		return Classify(p.sched.Now().Sub(start))
	case <-ctx.Done():
		return QualityPoor
	}
}

// HTTPRoundTrip returns a RoundTripFunc issuing a GET to the given URL. Any
// status of 400 and above counts as a failure.
func HTTPRoundTrip(url string) RoundTripFunc {
	client := &fasthttp.Client{NoDefaultUserAgentHeader: true}

	return func(ctx context.Context) error {
		req := fasthttp.AcquireRequest()
		defer fasthttp.ReleaseRequest(req)
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(url)
		req.Header.SetMethod(fasthttp.MethodGet)

		timeout := DefaultProbeTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if timeout <= 0 {
			return fmt.Errorf("%w: %v", ErrTransport, context.DeadlineExceeded)
		}

		if err := client.DoTimeout(req, resp, timeout); err != nil {
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		if code := resp.StatusCode(); code >= fasthttp.StatusBadRequest {
			return fmt.Errorf("%w: unexpected status %d", ErrTransport, code)
		}
		return nil
	}
}

// staticProber always reports the same quality. Used when no prober is
// configured.
type staticProber Quality

func (p staticProber) Probe(context.Context) Quality {
	return Quality(p)
}
