package storage

import (
	"context"

	"github.com/a3tai/mcp-cerfa/internal/cerfa"
)

// ObjectTemplate reads the blank CERFA template from the bucket on every
// call.
type ObjectTemplate struct {
	Store *MinioStore
	Key   string
}

func (t ObjectTemplate) Load(ctx context.Context) ([]byte, error) {
	data, err := t.Store.Get(ctx, t.Key)
	if err != nil {
		return nil, &cerfa.TemplateLoadError{Kind: cerfa.KindTemplateRead, Source: t.String(), Err: err}
	}
	return data, nil
}

func (t ObjectTemplate) String() string {
	return "object:" + t.Store.String() + "/" + t.Key
}
