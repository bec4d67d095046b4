package pipeline

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"
)

const pngContentType = "image/png"

type objectWriter interface {
	WriteObject(ctx context.Context, objectKey string, data []byte, contentType string, metadata map[string]string) error
}

// ObjectStoreEmitter publishes the finished PNG under Prefix, keyed by the
// output file's base name.
type ObjectStoreEmitter struct {
	Storage objectWriter
	Prefix  string
}

func (e ObjectStoreEmitter) Emit(ctx context.Context, req Request, data []byte, width, height int) (Output, error) {
	if e.Storage == nil {
		return Output{}, errors.New("storage client is required")
	}

	objectKey := ObjectKey(e.Prefix, req.Job.OutputPath)
	metadata := map[string]string{}
	if req.RunID != "" {
		metadata["run-id"] = req.RunID
	}
	if err := e.Storage.WriteObject(ctx, objectKey, data, pngContentType, metadata); err != nil {
		return Output{}, err
	}

	return Output{
		Destination: objectKey,
		Format:      "png",
		Bytes:       len(data),
		Width:       width,
		Height:      height,
	}, nil
}

// ObjectKey maps an output path to <prefix>/<sanitized base name>.png.
func ObjectKey(prefix, outputPath string) string {
	base := filepath.Base(strings.TrimSpace(outputPath))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return path.Join(defaultOutputPrefix(prefix), sanitizePathToken(base)+".png")
}

func defaultOutputPrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "logos"
	}
	return prefix
}

func sanitizePathToken(in string) string {
	in = strings.TrimSpace(in)
	if in == "" || in == "." {
		return "logo"
	}

	var b strings.Builder
	b.Grow(len(in))
	for _, r := range in {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
