//go:build !noopencv

package classifier

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/formcoach/internal/features"
)

// ONNXModel implements Model using OpenCV's DNN module.
// The network is loaded once and shared by every session; calls are serialized
// because a cv::dnn::Net holds its input blobs between SetInput and Forward.
type ONNXModel struct {
	config ModelConfig
	net    gocv.Net
	mu     sync.Mutex
	closed bool
}

// NewONNXModel loads the network from config.Path.
func NewONNXModel(config ModelConfig) (*ONNXModel, error) {
	if err := checkONNX(config.Path); err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(config.Path)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("load onnx model %s: empty network", config.Path)
	}

	if config.KeypointsInput == "" {
		config.KeypointsInput = DefaultModelConfig().KeypointsInput
	}
	if config.AnglesInput == "" {
		config.AnglesInput = DefaultModelConfig().AnglesInput
	}

	return &ONNXModel{
		config: config,
		net:    net,
	}, nil
}

func loadONNX(config ModelConfig) (Model, error) {
	m, err := NewONNXModel(config)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// checkONNX rejects files that are not a serialized ModelProto before they
// reach OpenCV, which aborts on malformed input. Exporters write ir_version
// (field 1, varint) first, so the file starts with tag byte 0x08.
func checkONNX(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open onnx model: %w", err)
	}
	defer f.Close()

	tag, err := bufio.NewReader(f).ReadByte()
	if err != nil {
		return fmt.Errorf("read onnx model %s: %w", path, err)
	}
	if tag != 0x08 {
		return fmt.Errorf("load onnx model %s: not an onnx file", path)
	}
	return nil
}

// Predict runs the network on one window.
func (m *ONNXModel) Predict(ctx context.Context, keypoints, angles [][]float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kpBlob, err := blob(keypoints, features.NumKeypoints)
	if err != nil {
		return nil, fmt.Errorf("keypoints: %w", err)
	}
	defer kpBlob.Close()

	angBlob, err := blob(angles, features.NumAngles)
	if err != nil {
		return nil, fmt.Errorf("angles: %w", err)
	}
	defer angBlob.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.New("model is closed")
	}

	m.net.SetInput(kpBlob, m.config.KeypointsInput)
	m.net.SetInput(angBlob, m.config.AnglesInput)

	out := m.net.Forward(m.config.Output)
	defer out.Close()

	if out.Empty() {
		return nil, errors.New("forward pass returned no output")
	}

	n := out.Total()
	probs := make([]float64, n)
	for i := 0; i < n; i++ {
		probs[i] = float64(out.GetFloatAt(0, i))
	}

	return probs, nil
}

// Close releases the network.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.net.Close()
}

// blob packs an N x width matrix into a (1, N, width) CV_32F tensor.
func blob(rows [][]float64, width int) (gocv.Mat, error) {
	if len(rows) == 0 {
		return gocv.Mat{}, fmt.Errorf("%w: empty window", ErrShape)
	}
	for i, r := range rows {
		if len(r) != width {
			return gocv.Mat{}, fmt.Errorf("%w: row %d has %d values, want %d", ErrShape, i, len(r), width)
		}
	}

	mat := gocv.NewMatWithSizes([]int{1, len(rows), width}, gocv.MatTypeCV32F)
	for i, r := range rows {
		for j, v := range r {
			mat.SetFloatAt3(0, i, j, float32(v))
		}
	}

	return mat, nil
}
