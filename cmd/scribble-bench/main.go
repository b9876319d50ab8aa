// Command scribble-bench drives many simulated participants against an
// in-process scribble server and reports draw-to-render latency, throughput
// and GC cost as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"net"
	"os"
	"os/exec"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/scribble/pkg/app"
	"github.com/vango-go/scribble/pkg/canvas"
	"github.com/vango-go/scribble/pkg/protocol"
	"github.com/vango-go/scribble/pkg/server"
)

const (
	gib = int64(1024 * 1024 * 1024)
)

type profile struct {
	Name          string
	Clients       int
	Duration      time.Duration
	RPS           float64
	StrokeLen     int
	TickRate      float64
	MaxProcs      int
	MemLimitBytes int64
}

var profiles = map[string]profile{
	"fast": {
		Name:      "fast",
		Clients:   20,
		Duration:  10 * time.Second,
		RPS:       10,
		StrokeLen: 20,
		TickRate:  90,
	},
	"standard": {
		Name:      "standard",
		Clients:   100,
		Duration:  30 * time.Second,
		RPS:       20,
		StrokeLen: 40,
		TickRate:  90,
	},
	"stress": {
		Name:          "stress",
		Clients:       300,
		Duration:      60 * time.Second,
		RPS:           30,
		StrokeLen:     60,
		TickRate:      90,
		MaxProcs:      4,
		MemLimitBytes: 2 * gib,
	},
}

type benchConfig struct {
	Profile       string
	Clients       int
	Duration      time.Duration
	RPS           float64
	StrokeLen     int
	TickRate      float64
	Sequential    bool
	MaxProcs      int
	MemLimitBytes int64
	JSONOutput    string
	PointTimeout  time.Duration
}

type benchCounters struct {
	pointsSent     atomic.Uint64
	pointsComplete atomic.Uint64
	strokesDone    atomic.Uint64
	inputBytes     atomic.Uint64
	renderBytes    atomic.Uint64
	renderFrames   atomic.Uint64
	primitives     atomic.Uint64
}

type benchErrors struct {
	handshakeFailures    atomic.Uint64
	inputWriteFailures   atomic.Uint64
	frameDecodeFailures  atomic.Uint64
	renderDecodeFailures atomic.Uint64
	serverErrorFrames    atomic.Uint64
	pointMissing         atomic.Uint64
	totalErrors          atomic.Uint64
}

type primitiveCounts struct {
	counts [256]atomic.Uint64
}

func (p *primitiveCounts) add(k canvas.PrimitiveKind) {
	p.counts[uint8(k)].Add(1)
}

func (p *primitiveCounts) snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	for i := range p.counts {
		count := p.counts[i].Load()
		if count == 0 {
			continue
		}
		out[canvas.PrimitiveKind(uint8(i)).String()] = count
	}
	return out
}

func main() {
	log.SetFlags(0)

	cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
	if cfg.MemLimitBytes > 0 {
		debug.SetMemoryLimit(cfg.MemLimitBytes)
	}

	debug.SetGCPercent(100)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	canvasApp := app.New(app.Options{Logger: quiet})
	defer canvasApp.Close()

	scfg := server.DefaultServerConfig()
	scfg.TickRate = cfg.TickRate
	scfg.Fanout = !cfg.Sequential
	scfg.Logger = quiet
	srv := server.New(canvasApp, scfg)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	serveCtx, stopServer := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(serveCtx, ln)
	}()
	defer func() {
		stopServer()
		<-serveDone
	}()

	wsURL := "ws://" + ln.Addr().String() + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	samplesCh := make(chan time.Duration, sampleBuffer(cfg.Clients))
	var samples []time.Duration
	var samplesMu sync.Mutex
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for rtt := range samplesCh {
			samplesMu.Lock()
			samples = append(samples, rtt)
			samplesMu.Unlock()
		}
	}()

	var counters benchCounters
	var errCounts benchErrors
	var kinds primitiveCounts

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Clients)
	for i := 0; i < cfg.Clients; i++ {
		clientID := i
		go func() {
			defer wg.Done()
			if err := runClient(ctx, wsURL, clientID, cfg, &counters, &errCounts, &kinds, samplesCh); err != nil {
				errCounts.totalErrors.Add(1)
			}
		}()
	}

	wg.Wait()
	close(samplesCh)
	<-collectorDone

	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	samplesMu.Lock()
	latencies := append([]time.Duration(nil), samples...)
	samplesMu.Unlock()
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	report := buildReport(cfg, elapsed, latencies, &counters, &errCounts, &kinds, before, after, beforeMetrics, afterMetrics)
	stats := srv.Stats()
	report.Server = serverInfo{
		Ticks:     stats.Ticks,
		Overruns:  stats.Overruns,
		Drawings:  canvasApp.Drawings(),
		BoardSlot: canvasApp.Board().Slots(),
	}

	writeSummary(os.Stderr, report)
	if err := writeJSON(cfg.JSONOutput, report); err != nil {
		log.Fatalf("write json: %v", err)
	}
}

func sampleBuffer(clients int) int {
	if clients < 1 {
		return 1024
	}
	buf := clients * 4
	if buf < 1024 {
		buf = 1024
	}
	return buf
}

func parseConfig(fs *flag.FlagSet, args []string) (benchConfig, error) {
	profileFlag := fs.String("profile", "standard", "profile: fast|standard|stress")
	clientsFlag := fs.Int("clients", -1, "number of concurrent participants")
	durationFlag := fs.String("duration", "", "benchmark duration, e.g. 30s")
	rpsFlag := fs.Float64("rps", -1, "target points/sec per participant")
	strokeFlag := fs.Int("stroke", -1, "points per stroke before release")
	tickFlag := fs.Float64("tick-rate", -1, "server tick rate in Hz")
	sequentialFlag := fs.Bool("sequential", false, "render sessions one at a time")
	maxProcsFlag := fs.Int("max-procs", -1, "GOMAXPROCS cap (0 to leave unchanged)")
	memLimitFlag := fs.String("mem-limit", "", "GOMEMLIMIT (e.g. 2GiB)")
	jsonFlag := fs.String("json", "-", "JSON output path ('-' for stdout)")
	if err := fs.Parse(args); err != nil {
		return benchConfig{}, err
	}

	name := strings.ToLower(strings.TrimSpace(*profileFlag))
	if name == "" {
		name = "standard"
	}

	base, ok := profiles[name]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", name)
	}

	cfg := benchConfig{
		Profile:       base.Name,
		Clients:       base.Clients,
		Duration:      base.Duration,
		RPS:           base.RPS,
		StrokeLen:     base.StrokeLen,
		TickRate:      base.TickRate,
		Sequential:    *sequentialFlag,
		MaxProcs:      base.MaxProcs,
		MemLimitBytes: base.MemLimitBytes,
		JSONOutput:    strings.TrimSpace(*jsonFlag),
	}

	if *clientsFlag != -1 {
		cfg.Clients = *clientsFlag
	}
	if *durationFlag != "" {
		d, err := time.ParseDuration(*durationFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -duration: %w", err)
		}
		cfg.Duration = d
	}
	if *rpsFlag != -1 {
		cfg.RPS = *rpsFlag
	}
	if *strokeFlag != -1 {
		cfg.StrokeLen = *strokeFlag
	}
	if *tickFlag != -1 {
		cfg.TickRate = *tickFlag
	}
	if *maxProcsFlag != -1 {
		cfg.MaxProcs = *maxProcsFlag
	}
	if *memLimitFlag != "" {
		limit, err := parseBytes(*memLimitFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -mem-limit: %w", err)
		}
		cfg.MemLimitBytes = limit
	}
	if cfg.JSONOutput == "" {
		cfg.JSONOutput = "-"
	}

	if cfg.Clients <= 0 {
		return benchConfig{}, errors.New("-clients must be > 0")
	}
	if cfg.Duration <= 0 {
		return benchConfig{}, errors.New("-duration must be > 0")
	}
	if cfg.RPS <= 0 {
		return benchConfig{}, errors.New("-rps must be > 0")
	}
	if cfg.StrokeLen <= 0 {
		return benchConfig{}, errors.New("-stroke must be > 0")
	}
	if cfg.TickRate <= 0 {
		return benchConfig{}, errors.New("-tick-rate must be > 0")
	}
	if cfg.MaxProcs < 0 {
		return benchConfig{}, errors.New("-max-procs must be >= 0")
	}
	if cfg.MemLimitBytes < 0 {
		return benchConfig{}, errors.New("-mem-limit must be >= 0")
	}

	cfg.PointTimeout = pointTimeout(cfg.RPS, cfg.TickRate)
	return cfg, nil
}

// pointTimeout allows ten send periods or ten ticks, whichever is longer,
// with a two second floor.
func pointTimeout(rps, tickRate float64) time.Duration {
	if rps <= 0 {
		return 0
	}
	period := time.Duration(float64(time.Second) / rps)
	if tickRate > 0 {
		if tp := time.Duration(float64(time.Second) / tickRate); tp > period {
			period = tp
		}
	}
	timeout := period * 10
	if timeout < 2*time.Second {
		timeout = 2 * time.Second
	}
	return timeout
}

func parseBytes(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, errors.New("empty size")
	}

	var i int
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			i++
			continue
		}
		break
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	numPart := strings.TrimSpace(s[:i])
	suffix := strings.ToLower(strings.TrimSpace(s[i:]))

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, err
	}

	multiplier := float64(1)
	switch suffix {
	case "", "b":
		multiplier = 1
	case "kb":
		multiplier = 1e3
	case "mb":
		multiplier = 1e6
	case "gb":
		multiplier = 1e9
	case "kib":
		multiplier = 1024
	case "mib":
		multiplier = 1024 * 1024
	case "gib":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix %q", suffix)
	}

	return int64(value*multiplier + 0.5), nil
}

func runClient(
	ctx context.Context,
	wsURL string,
	clientID int,
	cfg benchConfig,
	counters *benchCounters,
	errCounts *benchErrors,
	kinds *primitiveCounts,
	samples chan<- time.Duration,
) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := readHello(conn); err != nil {
		errCounts.handshakeFailures.Add(1)
		return err
	}
	tabFrame := protocol.NewFrame(protocol.FrameTab, protocol.EncodeTab(protocol.TabCanvas))
	if err := conn.WriteMessage(websocket.BinaryMessage, tabFrame.Encode()); err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("tab write: %w", err)
	}

	period := time.Duration(float64(time.Second) / cfg.RPS)
	var seq uint64

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		seq++
		pt := makePoint(clientID, seq)
		in := &canvas.Input{Pointer: canvas.PointerInput{Dragging: true, Pos: &pt}}

		start := time.Now()
		if err := sendInput(conn, in, counters); err != nil {
			errCounts.inputWriteFailures.Add(1)
			return fmt.Errorf("input write: %w", err)
		}
		counters.pointsSent.Add(1)

		if cfg.PointTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(cfg.PointTimeout))
		}
		pointCtx, cancel := context.WithTimeout(ctx, cfg.PointTimeout)
		found, err := waitForPoint(pointCtx, conn, pt, counters, errCounts, kinds)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || isTimeout(err) {
				errCounts.pointMissing.Add(1)
				return fmt.Errorf("point not observed in renders")
			}
			return fmt.Errorf("wait for point: %w", err)
		}
		if !found {
			errCounts.pointMissing.Add(1)
			return fmt.Errorf("point not observed in renders")
		}

		rtt := time.Since(start)
		counters.pointsComplete.Add(1)
		samples <- rtt

		if seq%uint64(cfg.StrokeLen) == 0 {
			release := &canvas.Input{Pointer: canvas.PointerInput{Stopped: true}}
			if err := sendInput(conn, release, counters); err != nil {
				errCounts.inputWriteFailures.Add(1)
				return fmt.Errorf("release write: %w", err)
			}
			counters.strokesDone.Add(1)
		}

		elapsed := time.Since(start)
		if sleep := period - elapsed; sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

func readHello(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer conn.SetReadDeadline(time.Time{})

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("hello read: %w", err)
	}
	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		return fmt.Errorf("hello frame decode: %w", err)
	}
	switch frame.Type {
	case protocol.FrameHello:
	case protocol.FrameError:
		em, err := protocol.DecodeErrorMessage(frame.Payload)
		if err != nil {
			return fmt.Errorf("hello: server error frame: %w", err)
		}
		return fmt.Errorf("hello: server refused: %s", em.Message)
	default:
		return fmt.Errorf("hello: expected FrameHello, got %v", frame.Type)
	}
	if _, err := protocol.DecodeHello(frame.Payload); err != nil {
		return fmt.Errorf("hello decode: %w", err)
	}
	return nil
}

func sendInput(conn *websocket.Conn, in *canvas.Input, counters *benchCounters) error {
	data := protocol.NewFrame(protocol.FrameInput, protocol.EncodeInput(in)).Encode()
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	counters.inputBytes.Add(uint64(len(data)))
	return nil
}

// waitForPoint reads render frames until one contains pt.
func waitForPoint(
	ctx context.Context,
	conn *websocket.Conn,
	pt canvas.Point,
	counters *benchCounters,
	errCounts *benchErrors,
	kinds *primitiveCounts,
) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return false, err
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			errCounts.frameDecodeFailures.Add(1)
			return false, err
		}

		switch frame.Type {
		case protocol.FrameRender:
			counters.renderFrames.Add(1)
			counters.renderBytes.Add(uint64(len(msg)))
			r, err := protocol.DecodeRender(frame.Payload)
			if err != nil {
				errCounts.renderDecodeFailures.Add(1)
				return false, err
			}
			if containsPoint(r.Primitives, pt, kinds, counters) {
				return true, nil
			}

		case protocol.FrameError:
			errCounts.serverErrorFrames.Add(1)
			return false, fmt.Errorf("server error frame")

		default:
			// Ignore control frames.
		}
	}
}

func containsPoint(prims []canvas.Primitive, pt canvas.Point, kinds *primitiveCounts, counters *benchCounters) bool {
	found := false
	for i := range prims {
		kinds.add(prims[i].Kind)
		counters.primitives.Add(1)
		if found || prims[i].Kind != canvas.KindPolyline {
			continue
		}
		for _, p := range prims[i].Points {
			if p == pt {
				found = true
				break
			}
		}
	}
	return found
}

// makePoint returns a point unique to (clientID, seq). Both coordinates stay
// well inside float32's exact integer range.
func makePoint(clientID int, seq uint64) canvas.Point {
	return canvas.Pt(float32(clientID), float32(seq%(1<<24)))
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:bytes":
			out.heapAllocsBytes = s.Value.Uint64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyMS  latencyInfo    `json:"latency_ms"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
	Protocol   protocolInfo   `json:"protocol"`
	Server     serverInfo     `json:"server"`
	Errors     errorInfo      `json:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
	GitCommit string `json:"git_commit,omitempty"`
}

type workloadInfo struct {
	Profile        string  `json:"profile"`
	Clients        int     `json:"clients"`
	DurationMS     int64   `json:"duration_ms"`
	RPSPerClient   float64 `json:"rps_per_client"`
	StrokeLen      int     `json:"stroke_len"`
	TickRate       float64 `json:"tick_rate"`
	Sequential     bool    `json:"sequential"`
	MaxProcs       int     `json:"max_procs"`
	MemLimitBytes  int64   `json:"mem_limit_bytes"`
	PointTimeoutMS int64   `json:"point_timeout_ms"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	PointsTotal        uint64  `json:"points_total"`
	StrokesTotal       uint64  `json:"strokes_total"`
	PointsPerSec       float64 `json:"points_per_sec"`
	PointsPerSecClient float64 `json:"points_per_sec_per_client"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

type protocolInfo struct {
	InputBytesTotal  uint64            `json:"input_bytes_total"`
	RenderBytesTotal uint64            `json:"render_bytes_total"`
	RenderFrames     uint64            `json:"render_frames_total"`
	PrimitivesTotal  uint64            `json:"primitives_total"`
	AvgRenderBytes   float64           `json:"avg_render_bytes"`
	PrimitivesPerFrm float64           `json:"primitives_per_frame"`
	PrimitiveKinds   map[string]uint64 `json:"primitive_kinds"`
}

type serverInfo struct {
	Ticks     uint64 `json:"ticks"`
	Overruns  uint64 `json:"overruns"`
	Drawings  int    `json:"drawings"`
	BoardSlot int    `json:"board_slots"`
}

type errorInfo struct {
	TotalErrors          uint64 `json:"total_errors"`
	HandshakeFailures    uint64 `json:"handshake_failures"`
	InputWriteFailures   uint64 `json:"input_write_failures"`
	FrameDecodeFailures  uint64 `json:"frame_decode_failures"`
	RenderDecodeFailures uint64 `json:"render_decode_failures"`
	ServerErrorFrames    uint64 `json:"server_error_frames"`
	PointMissing         uint64 `json:"point_missing"`
}

func buildReport(
	cfg benchConfig,
	elapsed time.Duration,
	latencies []time.Duration,
	counters *benchCounters,
	errors *benchErrors,
	kinds *primitiveCounts,
	before runtime.MemStats,
	after runtime.MemStats,
	beforeMetrics runtimeMetricsSnapshot,
	afterMetrics runtimeMetricsSnapshot,
) benchReport {
	pointsTotal := counters.pointsComplete.Load()
	renderFrames := counters.renderFrames.Load()
	renderBytes := counters.renderBytes.Load()
	primitives := counters.primitives.Load()

	elapsedSeconds := math.Max(0.001, elapsed.Seconds())
	pointsPerSec := float64(pointsTotal) / elapsedSeconds
	pointsPerSecClient := pointsPerSec / float64(cfg.Clients)

	latency := latencyInfo{}
	if len(latencies) > 0 {
		latency = latencyInfo{
			Min: ms(latencies[0]),
			P50: ms(percentile(latencies, 0.50)),
			P95: ms(percentile(latencies, 0.95)),
			P99: ms(percentile(latencies, 0.99)),
			Max: ms(latencies[len(latencies)-1]),
		}
	}

	avgRenderBytes := 0.0
	primsPerFrame := 0.0
	if renderFrames > 0 {
		avgRenderBytes = float64(renderBytes) / float64(renderFrames)
		primsPerFrame = float64(primitives) / float64(renderFrames)
	}

	pauseTotal := time.Duration(after.PauseTotalNs - before.PauseTotalNs)
	pauseAvg := avgPause(after, before)

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			GitCommit: gitCommit(),
		},
		Workload: workloadInfo{
			Profile:        cfg.Profile,
			Clients:        cfg.Clients,
			DurationMS:     cfg.Duration.Milliseconds(),
			RPSPerClient:   cfg.RPS,
			StrokeLen:      cfg.StrokeLen,
			TickRate:       cfg.TickRate,
			Sequential:     cfg.Sequential,
			MaxProcs:       cfg.MaxProcs,
			MemLimitBytes:  cfg.MemLimitBytes,
			PointTimeoutMS: cfg.PointTimeout.Milliseconds(),
		},
		LatencyMS: latency,
		Throughput: throughputInfo{
			PointsTotal:        pointsTotal,
			StrokesTotal:       counters.strokesDone.Load(),
			PointsPerSec:       pointsPerSec,
			PointsPerSecClient: pointsPerSecClient,
		},
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(pauseTotal),
			PauseAvgMS:    ms(pauseAvg),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.heapAllocsObjects - beforeMetrics.heapAllocsObjects,
		},
		Protocol: protocolInfo{
			InputBytesTotal:  counters.inputBytes.Load(),
			RenderBytesTotal: renderBytes,
			RenderFrames:     renderFrames,
			PrimitivesTotal:  primitives,
			AvgRenderBytes:   avgRenderBytes,
			PrimitivesPerFrm: primsPerFrame,
			PrimitiveKinds:   kinds.snapshot(),
		},
		Errors: errorInfo{
			TotalErrors:          errors.totalErrors.Load(),
			HandshakeFailures:    errors.handshakeFailures.Load(),
			InputWriteFailures:   errors.inputWriteFailures.Load(),
			FrameDecodeFailures:  errors.frameDecodeFailures.Load(),
			RenderDecodeFailures: errors.renderDecodeFailures.Load(),
			ServerErrorFrames:    errors.serverErrorFrames.Load(),
			PointMissing:         errors.pointMissing.Load(),
		},
	}
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Scribble Canvas Benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "Clients: %d\n", report.Workload.Clients)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Target per-client rate: %.2f points/s\n", report.Workload.RPSPerClient)
	fmt.Fprintf(w, "Stroke length: %d\n", report.Workload.StrokeLen)
	fmt.Fprintf(w, "Tick rate: %.0f Hz (sequential=%v)\n", report.Workload.TickRate, report.Workload.Sequential)
	if report.Workload.MaxProcs > 0 {
		fmt.Fprintf(w, "GOMAXPROCS cap: %d\n", report.Workload.MaxProcs)
	}
	if report.Workload.MemLimitBytes > 0 {
		fmt.Fprintf(w, "GOMEMLIMIT cap: %.2f GiB\n", float64(report.Workload.MemLimitBytes)/float64(gib))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total points: %d (%d strokes)\n", report.Throughput.PointsTotal, report.Throughput.StrokesTotal)
	fmt.Fprintf(w, "Throughput: %.1f points/s (%.2f per client)\n", report.Throughput.PointsPerSec, report.Throughput.PointsPerSecClient)
	fmt.Fprintf(w, "Errors: %d\n", report.Errors.TotalErrors)
	fmt.Fprintln(w)

	if report.LatencyMS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "Draw latency (client send -> tick -> render received+decoded):")
		fmt.Fprintf(w, "  min: %.2f ms\n", report.LatencyMS.Min)
		fmt.Fprintf(w, "  p50: %.2f ms\n", report.LatencyMS.P50)
		fmt.Fprintf(w, "  p95: %.2f ms\n", report.LatencyMS.P95)
		fmt.Fprintf(w, "  p99: %.2f ms\n", report.LatencyMS.P99)
		fmt.Fprintf(w, "  max: %.2f ms\n", report.LatencyMS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Protocol (avg per render frame):")
	fmt.Fprintf(w, "  render bytes: %.1f\n", report.Protocol.AvgRenderBytes)
	fmt.Fprintf(w, "  primitives:   %.2f\n", report.Protocol.PrimitivesPerFrm)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Server:")
	fmt.Fprintf(w, "  ticks:    %d (%d overruns)\n", report.Server.Ticks, report.Server.Overruns)
	fmt.Fprintf(w, "  drawings: %d\n", report.Server.Drawings)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", report.GC.PauseAvgMS)
	fmt.Fprintf(w, "  gc_cpu:    %.2f%%\n", report.GC.GCCPUFraction*100)
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func gitCommit() string {
	if val := strings.TrimSpace(os.Getenv("SCRIBBLE_GIT_COMMIT")); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv("GIT_COMMIT")); val != "" {
		return val
	}
	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
