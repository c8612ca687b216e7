package detection

import (
	"fmt"
	"image"
	"os"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const dnnInputSize = 416

// DNNProvider runs a YOLO-tiny style network through the OpenCV DNN module
// on CPU. It is the default backend: slower than a dedicated runtime but has
// no extra deployment surface.
type DNNProvider struct {
	net        gocv.Net
	classNames []string
	minConf    float64
	mu         sync.Mutex
	initTime   time.Duration
}

// NewDNNProvider loads the network and class-name list. minConf is the raw
// score floor applied while decoding network output.
func NewDNNProvider(weightsPath, configPath, namesPath string, minConf float64) (*DNNProvider, error) {
	start := time.Now()

	net := gocv.ReadNet(weightsPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load detector network from %s and %s", weightsPath, configPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	namesBytes, err := os.ReadFile(namesPath)
	if err != nil {
		net.Close()
		return nil, fmt.Errorf("could not read class names: %w", err)
	}
	var names []string
	for _, n := range strings.Split(string(namesBytes), "\n") {
		names = append(names, strings.TrimSpace(n))
	}

	p := &DNNProvider{
		net:        net,
		classNames: names,
		minConf:    minConf,
		initTime:   time.Since(start),
	}
	debugMsg("DETECT", fmt.Sprintf("DNN provider loaded %d classes in %v", len(names), p.initTime))
	return p, nil
}

// Detect runs one forward pass and decodes boxes back into img coordinates.
// The network input is a plain square resize, so decoding is a uniform scale
// per axis with no letterbox offset.
func (p *DNNProvider) Detect(img image.Image) ([]RawBox, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frame, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer frame.Close()

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(dnnInputSize, dnnInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	p.net.SetInput(blob, "")
	output := p.net.Forward("")
	defer output.Close()

	imgW := float32(img.Bounds().Dx())
	imgH := float32(img.Bounds().Dy())

	var boxes []RawBox
	for i := 0; i < output.Rows(); i++ {
		row := output.RowRange(i, i+1)
		data := row.Clone()
		scores := data.ColRange(5, data.Cols())
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(scores)
		classID := maxLoc.X
		confidence := float64(maxVal)

		if confidence >= p.minConf && classID < len(p.classNames) {
			cx := data.GetFloatAt(0, 0) * imgW
			cy := data.GetFloatAt(0, 1) * imgH
			w := data.GetFloatAt(0, 2) * imgW
			h := data.GetFloatAt(0, 3) * imgH

			left := int(cx - w/2)
			top := int(cy - h/2)
			boxes = append(boxes, RawBox{
				Rect:       image.Rect(left, top, left+int(w), top+int(h)),
				Label:      p.classNames[classID],
				Confidence: confidence,
			})
		}

		scores.Close()
		data.Close()
		row.Close()
	}

	return boxes, nil
}

// Close releases the network.
func (p *DNNProvider) Close() error {
	return p.net.Close()
}

// Info implements Provider.
func (p *DNNProvider) Info() ProviderInfo {
	return ProviderInfo{Name: "dnn", Backend: "OpenCV CPU", InitTime: p.initTime}
}
