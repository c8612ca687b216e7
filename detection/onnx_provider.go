package detection

import (
	"fmt"
	"image"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	onnxInputWidth  = 320
	onnxInputHeight = 320
)

// ONNXProvider runs a small single-shot detector through onnxruntime. The
// exported model emits [N,6] rows of x1,y1,x2,y2,score,class in input-pixel
// coordinates.
type ONNXProvider struct {
	session    *ort.AdvancedSession
	input      *ort.Tensor[float32]
	output     *ort.Tensor[float32]
	classNames []string
	minConf    float64
	maxRows    int
	mu         sync.Mutex
	initTime   time.Duration
}

// NewONNXProvider initializes the onnxruntime environment once per process
// and builds a session with pre-allocated input/output tensors.
func NewONNXProvider(modelPath, namesPath string, minConf float64) (*ONNXProvider, error) {
	start := time.Now()

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	namesBytes, err := os.ReadFile(namesPath)
	if err != nil {
		return nil, fmt.Errorf("could not read class names: %w", err)
	}
	var names []string
	for _, n := range strings.Split(string(namesBytes), "\n") {
		names = append(names, strings.TrimSpace(n))
	}

	const maxRows = 100

	inputShape := ort.NewShape(1, 3, onnxInputHeight, onnxInputWidth)
	input, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, maxRows, 6)
	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"images"}, []string{"output"},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	p := &ONNXProvider{
		session:    session,
		input:      input,
		output:     output,
		classNames: names,
		minConf:    minConf,
		maxRows:    maxRows,
		initTime:   time.Since(start),
	}
	debugMsg("DETECT", fmt.Sprintf("ONNX provider loaded %s in %v", modelPath, p.initTime))
	return p, nil
}

// Detect implements Provider.
func (p *ONNXProvider) Detect(img image.Image) ([]RawBox, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	resized := imaging.Resize(img, onnxInputWidth, onnxInputHeight, imaging.Lanczos)
	p.prepareInput(resized)

	if err := p.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	return p.decode(img.Bounds().Dx(), img.Bounds().Dy()), nil
}

// prepareInput fills the input tensor in CHW order, normalized to [0,1].
func (p *ONNXProvider) prepareInput(pic *image.NRGBA) {
	data := p.input.GetData()
	channelSize := onnxInputWidth * onnxInputHeight
	for y := 0; y < onnxInputHeight; y++ {
		for x := 0; x < onnxInputWidth; x++ {
			idx := y*onnxInputWidth + x
			base := y*pic.Stride + x*4
			data[idx] = float32(pic.Pix[base]) / 255.0
			data[channelSize+idx] = float32(pic.Pix[base+1]) / 255.0
			data[2*channelSize+idx] = float32(pic.Pix[base+2]) / 255.0
		}
	}
}

func (p *ONNXProvider) decode(imgW, imgH int) []RawBox {
	out := p.output.GetData()
	scaleX := float64(imgW) / float64(onnxInputWidth)
	scaleY := float64(imgH) / float64(onnxInputHeight)

	var boxes []RawBox
	for i := 0; i < p.maxRows; i++ {
		row := out[i*6 : i*6+6]
		score := float64(row[4])
		classID := int(row[5])
		if score < p.minConf || classID < 0 || classID >= len(p.classNames) {
			continue
		}
		boxes = append(boxes, RawBox{
			Rect: image.Rect(
				int(float64(row[0])*scaleX), int(float64(row[1])*scaleY),
				int(float64(row[2])*scaleX), int(float64(row[3])*scaleY)),
			Label:      p.classNames[classID],
			Confidence: score,
		})
	}
	return boxes
}

// Close destroys the session and its tensors.
func (p *ONNXProvider) Close() error {
	p.session.Destroy()
	p.input.Destroy()
	p.output.Destroy()
	return nil
}

// Info implements Provider.
func (p *ONNXProvider) Info() ProviderInfo {
	return ProviderInfo{Name: "onnx", Backend: "onnxruntime CPU", InitTime: p.initTime}
}
