//go:build !govips || !cgo

package pipeline

func Startup() error {
	return nil
}

func Shutdown() {}

func newResampler() (Resampler, error) {
	return lanczosResampler{}, nil
}
