//go:build !onnx || !cgo

package rembg

func NewONNXRemover(Config) (Remover, error) {
	return nil, ErrONNXUnavailable
}
