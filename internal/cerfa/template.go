package cerfa

import (
	"context"
	"os"
)

// TemplateSource yields the blank fillable template. It is read on every
// generation; implementations must not cache.
type TemplateSource interface {
	Load(ctx context.Context) ([]byte, error)
	String() string
}

// FileTemplate reads the template from disk.
type FileTemplate struct {
	Path string
}

func (f FileTemplate) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, &TemplateLoadError{Kind: KindTemplateRead, Source: f.String(), Err: err}
	}
	return data, nil
}

func (f FileTemplate) String() string { return "file:" + f.Path }

// StaticTemplate serves template bytes already in memory.
type StaticTemplate []byte

func (s StaticTemplate) Load(context.Context) ([]byte, error) {
	out := make([]byte, len(s))
	copy(out, s)
	return out, nil
}

func (s StaticTemplate) String() string { return "memory" }
