//go:build onnx && cgo

package rembg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXRemover runs a U²-Net style saliency model through ONNX Runtime.
type ONNXRemover struct {
	mu         sync.Mutex
	modelPath  string
	inputSize  int
	inputName  string
	outputName string
}

func NewONNXRemover(cfg Config) (Remover, error) {
	modelPath := strings.TrimSpace(cfg.ModelPath)
	if modelPath == "" {
		return nil, errors.New("onnx background removal requires a model path")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("stat model %s: %w", modelPath, err)
	}

	if lib := strings.TrimSpace(cfg.SharedLibraryPath); lib != "" {
		ort.SetSharedLibraryPath(lib)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		_ = ort.DestroyEnvironment()
		return nil, fmt.Errorf("inspect model %s: %w", modelPath, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		_ = ort.DestroyEnvironment()
		return nil, fmt.Errorf("model %s has no inputs or outputs", modelPath)
	}

	size := cfg.InputSize
	if size <= 0 {
		size = defaultInputSize
	}

	return &ONNXRemover{
		modelPath:  modelPath,
		inputSize:  size,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
	}, nil
}

func (r *ONNXRemover) Remove(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, errors.New("source image has no pixels")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	size := int64(r.inputSize)
	input, err := ort.NewTensor(ort.NewShape(1, 3, size, size), normalizeInput(img, r.inputSize))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, size, size))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer output.Destroy()

	session, err := ort.NewAdvancedSession(
		r.modelPath,
		[]string{r.inputName},
		[]string{r.outputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer session.Destroy()

	if err := session.Run(); err != nil {
		return nil, fmt.Errorf("run model: %w", err)
	}

	mask, err := maskFromPrediction(output.GetData(), r.inputSize, bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}
	return encodePNG(naiveCutout(img, mask))
}

func (r *ONNXRemover) Close() error {
	if !ort.IsInitialized() {
		return nil
	}
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("destroy onnxruntime environment: %w", err)
	}
	return nil
}
