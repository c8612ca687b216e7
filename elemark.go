// elemark places element markers over the world: every sampled camera frame
// is scanned for candidate objects, each candidate is classified into one of
// five element categories by an on-device multimodal model, and successful
// classifications become 3D anchors rendered through the draw tree.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"elemark/anchor"
	"elemark/camera"
	"elemark/category"
	"elemark/classify"
	"elemark/detection"
	"elemark/inference"
	"elemark/render"
	"elemark/transform"
)

var (
	// Command-line flags
	source   = flag.String("source", "0", "Camera device ID or video file/stream URL")
	rotation = flag.Int("rotation", 0, "Clockwise rotation making the sensor image upright (0/90/180/270)")

	detectorKind = flag.String("detector", "dnn", "Fast detector backend: dnn (OpenCV) or onnx (onnxruntime)")
	weightsPath  = flag.String("weights", "models/detector.weights", "DNN detector weights path")
	configPath   = flag.String("config", "models/detector.cfg", "DNN detector network config path")
	namesPath    = flag.String("names", "models/detector.names", "Detector class-names file")
	onnxModel    = flag.String("onnx-model", "models/detector.onnx", "ONNX detector model path (with -detector=onnx)")

	ollamaHost = flag.String("ollama-host", "", "Ollama daemon address (empty = environment default)")
	vlmModel   = flag.String("vlm-model", "moondream", "Multimodal model name served by the local daemon")

	classifyInterval = flag.Int("classify-interval", 30, "Run classification every Nth frame")
	tokenCutoff      = flag.Int("token-cutoff", 5, "Max tokens read per classification before cancelling the stream")
	minArea          = flag.Float64("min-area", 0.01, "Minimum candidate area as a fraction of frame area")
	maxArea          = flag.Float64("max-area", 0.80, "Maximum candidate area as a fraction of frame area")
	maxDetections    = flag.Int("max-detections", 3, "Maximum simultaneous detections per sampled frame")
	minConfidence    = flag.Float64("min-confidence", 0.35, "Minimum detector confidence")

	anchorCapacity = flag.Int("anchor-capacity", 20, "Maximum live anchors; overflow evicts oldest first")
	gracePeriod    = flag.Duration("grace-period", 3*time.Second, "How long an anchor may stay untracked before eviction")

	debugMode = flag.Bool("debug", false, "Enable component-tagged debug logging")
	display   = flag.Bool("display", true, "Show the rendered output in a window")
)

func main() {
	flag.Parse()

	logger := NewDebugLogger(*debugMode)
	detection.SetDebugFunction(logger.debugMsg)
	classify.SetDebugFunction(logger.debugMsg)
	render.SetDebugFunction(logger.debugMsg)

	rot := transform.Rotation(*rotation)
	if !rot.Valid() {
		notice("invalid -rotation %d (want 0/90/180/270)", *rotation)
		os.Exit(1)
	}

	// Fast detector.
	provider, err := buildProvider()
	if err != nil {
		notice("detector init failed: %v", err)
		os.Exit(1)
	}
	det := detection.New(provider, detection.Config{
		MinAreaPct:    *minArea,
		MaxAreaPct:    *maxArea,
		MaxResults:    *maxDetections,
		MinConfidence: *minConfidence,
	})
	defer det.Close()
	logger.debugMsg("MAIN", fmt.Sprintf("detector ready: %+v", det.Info()))

	// Inference engine. Load failure is fatal for the classification path
	// only: detection and rendering continue in detector-only mode.
	engine := buildEngine(logger)
	defer engine.Unload()

	classifier := classify.New(engine, category.NewMapper(), classify.Config{
		TokenCutoff: *tokenCutoff,
		CropSize:    256,
		Slot:        0,
		Timeout:     30 * time.Second,
	})

	// Capture.
	capture, err := gocv.OpenVideoCapture(*source)
	if err != nil {
		notice("cannot open capture source %q: %v", *source, err)
		os.Exit(1)
	}
	defer capture.Close()

	mat := gocv.NewMat()
	defer mat.Close()
	if ok := capture.Read(&mat); !ok || mat.Empty() {
		notice("no frames from source %q", *source)
		os.Exit(1)
	}

	// The view is the upright frame: full-screen video with no letterbox.
	viewW, viewH := transform.UprightSize(mat.Cols(), mat.Rows(), rot)

	world := newFlatWorld(viewW, viewH)
	anchors := anchor.NewManager(world, world, anchor.Config{
		GracePeriod: *gracePeriod,
		Capacity:    *anchorCapacity,
	})

	// Render tree: draw order is list order, background first.
	tree := render.NewComposite(
		&render.BackgroundLayer{},
		render.NewPointCloudLayer(),
		&render.ObjectLayer{},
	)
	surface := newMatSurface(viewW, viewH)
	if err := tree.Init(surface); err != nil {
		notice("render init failed: %v", err)
		os.Exit(1)
	}
	defer tree.Release()

	var window *gocv.Window
	if *display {
		window = gocv.NewWindow("elemark")
		defer window.Close()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	runLoop(loopDeps{
		capture:    capture,
		mat:        &mat,
		rot:        rot,
		det:        det,
		classifier: classifier,
		anchors:    anchors,
		world:      world,
		tree:       tree,
		surface:    surface,
		window:     window,
		logger:     logger,
		viewW:      viewW,
		viewH:      viewH,
		stop:       stop,
	})
}

func buildProvider() (detection.Provider, error) {
	switch *detectorKind {
	case "onnx":
		return detection.NewONNXProvider(*onnxModel, *namesPath, *minConfidence)
	case "dnn":
		return detection.NewDNNProvider(*weightsPath, *configPath, *namesPath, *minConfidence)
	default:
		return nil, fmt.Errorf("unknown detector backend %q", *detectorKind)
	}
}

// buildEngine constructs and initializes the inference engine. On load
// failure the user sees a one-time notice and the engine stays unloaded; the
// classifier then degrades to heuristic label mapping silently.
func buildEngine(logger *DebugLogger) *inference.Engine {
	backend, err := inference.NewOllamaBackend(*ollamaHost, *vlmModel)
	if err != nil {
		notice("model unavailable (%v); continuing with detector-only classification", err)
		return inference.New(nil, inference.DefaultConfig())
	}
	engine := inference.New(backend, inference.DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := engine.Initialize(ctx); err != nil {
		notice("model load failed (%v); continuing with detector-only classification", err)
	} else {
		logger.debugMsg("MAIN", fmt.Sprintf("model %q ready", *vlmModel))
	}
	return engine
}

type loopDeps struct {
	capture    *gocv.VideoCapture
	mat        *gocv.Mat
	rot        transform.Rotation
	det        *detection.Detector
	classifier *classify.Classifier
	anchors    *anchor.Manager
	world      *flatWorld
	tree       *render.Composite
	surface    *matSurface
	window     *gocv.Window
	logger     *DebugLogger
	viewW      int
	viewH      int
	stop       chan os.Signal
}

// runLoop drives the two cadences: the render/tracking loop every frame and
// the classification path every Nth frame. The render loop never blocks on
// classification; it draws whatever anchor snapshot exists at frame start.
func runLoop(d loopDeps) {
	sampler := camera.NewSampler(*classifyInterval)
	var classifying atomic.Bool
	view := anchor.View{Width: d.viewW, Height: d.viewH}

	for {
		select {
		case <-d.stop:
			d.logger.debugMsg("MAIN", "shutdown requested")
			return
		default:
		}

		if ok := d.capture.Read(d.mat); !ok || d.mat.Empty() {
			d.logger.debugMsg("MAIN", "stream ended")
			return
		}
		now := time.Now()

		if sampler.Tick() && classifying.CompareAndSwap(false, true) {
			img, err := d.mat.ToImage()
			if err != nil {
				d.logger.debugMsg("MAIN", fmt.Sprintf("frame convert failed: %v", err))
				classifying.Store(false)
			} else {
				frame, _ := camera.New(img, d.rot, now)
				go func() {
					defer classifying.Store(false)
					classifyFrame(d, frame, view)
				}()
			}
		}

		// Render cadence: refresh tracking, snapshot, draw.
		d.anchors.Refresh(now)
		fc := &render.FrameContext{
			View:       render.Identity4(),
			Projection: d.world.Projection(),
			Anchors:    d.anchors.Snapshot(),
			PointCloud: d.world.PointCloud(),
			FrameTime:  now,
		}
		d.surface.SetFrame(d.mat)
		d.tree.Draw(d.surface, fc)

		if d.window != nil {
			d.window.IMShow(*d.mat)
			if d.window.WaitKey(1) == 27 {
				return
			}
		}
	}
}

// classifyFrame runs the slow path for one sampled frame: detect, crop,
// classify, place anchors. Errors are transient; log, skip, continue.
func classifyFrame(d loopDeps, frame *camera.Frame, view anchor.View) {
	dets, err := d.det.Analyze(frame)
	if err != nil {
		d.logger.debugMsg("MAIN", fmt.Sprintf("detection skipped: %v", err))
		return
	}

	uprightW, uprightH := transform.UprightSize(frame.Bounds().Dx(), frame.Bounds().Dy(), frame.Rotation)
	for _, det := range dets {
		crop, err := classify.CropDetection(frame, det, 256)
		if err != nil {
			d.logger.debugMsg("MAIN", fmt.Sprintf("crop skipped: %v", err))
			continue
		}
		res := d.classifier.Classify(context.Background(), crop, det.Label)
		a, ok := d.anchors.OnClassified(det.DetectedObject, res, uprightW, uprightH, view)
		if !ok {
			continue
		}
		d.world.Track(a.ID, a.Pose)
		d.logger.debugMsg("MAIN", fmt.Sprintf("anchor %s %s at %.1fm (heuristic=%v)",
			a.ID, a.Category, a.DistanceFromCamera, res.Heuristic))
	}
}
