package main

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	"os"
	"runtime/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/23skdu/longbow-vane/dense"
	"github.com/23skdu/longbow-vane/expr"
	"github.com/23skdu/longbow-vane/kernel"
)

var (
	size        = flag.Int("size", 512, "Matrix dimension for the workload")
	iters       = flag.Int("iters", 10, "Workload iterations")
	precision   = flag.String("precision", "fp64", "Precision (fp32, fp64)")
	backendName = flag.String("backend", "blas", "Kernel backend (blas, reference)")
	seed        = flag.Int64("seed", 1, "RNG seed for workload data")
	cpuProfile  = flag.String("cpuprofile", "", "Write cpu profile to file")
	listenAddr  = flag.String("listen", "", "Address to serve /metrics on (e.g. :8080)")
	enableOTel  = flag.Bool("otel", false, "Enable OpenTelemetry tracing (stdout)")
	verbose     = flag.Bool("v", false, "Log fusion decisions at debug level")
)

func main() {
	// Initialize logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	flag.Parse()

	if *enableOTel {
		shutdown, err := initTracer()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer shutdown(context.Background())
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create CPU profile file")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("Could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	if *listenAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			log.Info().Str("addr", *listenAddr).Msg("Serving metrics")
			if err := http.ListenAndServe(*listenAddr, nil); err != nil {
				log.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	switch *precision {
	case "fp32":
		run[float32]()
	case "fp64":
		run[float64]()
	default:
		log.Fatal().Str("precision", *precision).Msg("Unknown precision")
	}
}

func run[T dense.Float]() {
	var b kernel.Backend[T]
	switch *backendName {
	case "blas":
		b = kernel.BLAS[T]()
	case "reference":
		b = kernel.Reference[T]()
	default:
		log.Fatal().Str("backend", *backendName).Msg("Unknown backend")
	}

	opts := []expr.Option{}
	if *verbose {
		opts = append(opts, expr.WithLogger(log.Logger))
	}
	eng := expr.New(b, opts...)
	log.Info().
		Str("backend", eng.Backend()).
		Str("precision", dense.PrecisionOf[T]().String()).
		Int("size", *size).
		Msg("Starting workload")

	rng := rand.New(rand.NewSource(*seed))
	n := *size
	a := dense.Random[T](n, n, 1, rng)
	c := dense.Random[T](n, n, 1, rng)
	x := dense.RandomVector[T](n, 1, rng)

	ctx := context.Background()

	// alpha*A*B + C in one call vs product, scale and add dispatched
	// separately.
	e := expr.Add(expr.Scale[T](2, expr.MatMul(expr.Leaf(a), expr.Leaf(a.T()))), expr.Leaf(c))

	start := time.Now()
	var fusedCalls int
	for i := 0; i < *iters; i++ {
		res, err := eng.Eval(ctx, e)
		if err != nil {
			log.Fatal().Err(err).Msg("Evaluation failed")
		}
		fusedCalls = res.KernelCalls
	}
	fusedDur := time.Since(start) / time.Duration(*iters)

	start = time.Now()
	var unfusedCalls int
	for i := 0; i < *iters; i++ {
		prod, err := eng.EvalMatrix(ctx, expr.MatMul(expr.Leaf(a), expr.Leaf(a.T())))
		if err != nil {
			log.Fatal().Err(err).Msg("Evaluation failed")
		}
		scaled, err := eng.EvalMatrix(ctx, expr.Scale[T](2, expr.Leaf(prod)))
		if err != nil {
			log.Fatal().Err(err).Msg("Evaluation failed")
		}
		res, err := eng.Eval(ctx, expr.Add(expr.Leaf(scaled), expr.Leaf(c)))
		if err != nil {
			log.Fatal().Err(err).Msg("Evaluation failed")
		}
		unfusedCalls = 2 + res.KernelCalls
	}
	unfusedDur := time.Since(start) / time.Duration(*iters)

	log.Info().
		Int("fused_calls", fusedCalls).
		Int("unfused_calls", unfusedCalls).
		Dur("fused", fusedDur).
		Dur("unfused", unfusedDur).
		Msg("GEMM accumulate workload")

	start = time.Now()
	var gemvCalls int
	ev := expr.Add(expr.MatVec(expr.Leaf(a.T()), expr.Vec(x)), expr.Scale[T](3, expr.Vec(x)))
	for i := 0; i < *iters; i++ {
		res, err := eng.Eval(ctx, ev)
		if err != nil {
			log.Fatal().Err(err).Msg("Evaluation failed")
		}
		gemvCalls = res.KernelCalls
	}
	log.Info().
		Int("kernel_calls", gemvCalls).
		Dur("per_iter", time.Since(start)/time.Duration(*iters)).
		Msg("Transposed GEMV workload")
}

func initTracer() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("vane"),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}
