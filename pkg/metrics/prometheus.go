package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Prometheus instruments a gin engine with request count/latency/size metrics
// and serves /metrics on a dedicated listen address.
type Prometheus struct {
	reqCnt  *prometheus.CounterVec
	reqDur  *prometheus.HistogramVec
	reqSize prometheus.Summary
	resSize prometheus.Summary

	listenAddress string
	urlLabelFn    func(c *gin.Context) string
	log           *zap.SugaredLogger
}

type NewPrometheusOptions struct {
	Subsystem string
	// ReqCntURLLabelMappingFn maps a request to its url label; defaults to
	// the matched route template to keep cardinality bounded.
	ReqCntURLLabelMappingFn func(c *gin.Context) string
	Logger                  *zap.SugaredLogger
}

func NewPrometheus(opts NewPrometheusOptions) *Prometheus {
	subsystem := opts.Subsystem
	if subsystem == "" {
		subsystem = "gin"
	}
	urlFn := opts.ReqCntURLLabelMappingFn
	if urlFn == nil {
		urlFn = func(c *gin.Context) string {
			if fp := c.FullPath(); fp != "" {
				return fp
			}
			return c.Request.URL.Path
		}
	}

	p := &Prometheus{
		urlLabelFn: urlFn,
		log:        opts.Logger,
		reqCnt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "How many HTTP requests processed, partitioned by status code, method and url.",
		}, []string{"code", "method", "url"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "request_duration_ms",
			Help:      "The HTTP request latency in milliseconds.",
			Buckets:   HistogramBuckets,
		}, []string{"code", "method", "url"}),
		reqSize: prometheus.NewSummary(prometheus.SummaryOpts{
			Subsystem: subsystem,
			Name:      "request_size_bytes",
			Help:      "The HTTP request size in bytes.",
		}),
		resSize: prometheus.NewSummary(prometheus.SummaryOpts{
			Subsystem: subsystem,
			Name:      "response_size_bytes",
			Help:      "The HTTP response size in bytes.",
		}),
	}
	prometheus.MustRegister(p.reqCnt, p.reqDur, p.reqSize, p.resSize)
	return p
}

// SetListenAddress configures the dedicated metrics listener address.
func (p *Prometheus) SetListenAddress(addr string) {
	p.listenAddress = addr
}

// Use attaches the middleware to the engine and starts the metrics listener.
func (p *Prometheus) Use(e *gin.Engine) {
	e.Use(p.handlerFunc())
	p.runListener()
}

func (p *Prometheus) runListener() {
	if p.listenAddress == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(p.listenAddress, mux); err != nil {
			if p.log != nil {
				p.log.Errorf("metrics listener error: %v", err)
			}
		}
	}()
}

func (p *Prometheus) handlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		reqSize := computeApproximateRequestSize(c.Request)

		c.Next()

		status := http.StatusText(c.Writer.Status())
		elapsed := float64(time.Since(start)) / float64(time.Millisecond)
		url := p.urlLabelFn(c)

		p.reqDur.WithLabelValues(status, c.Request.Method, url).Observe(elapsed)
		p.reqCnt.WithLabelValues(status, c.Request.Method, url).Inc()
		p.reqSize.Observe(float64(reqSize))
		p.resSize.Observe(float64(c.Writer.Size()))
	}
}

func computeApproximateRequestSize(r *http.Request) int {
	s := 0
	if r.URL != nil {
		s = len(r.URL.Path)
	}
	s += len(r.Method)
	s += len(r.Proto)
	for name, values := range r.Header {
		s += len(name)
		for _, value := range values {
			s += len(value)
		}
	}
	s += len(r.Host)
	if r.ContentLength != -1 {
		s += int(r.ContentLength)
	}
	return s
}
