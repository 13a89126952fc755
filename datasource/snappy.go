package datasource

import (
	"context"

	"github.com/golang/snappy"

	tberrors "github.com/spektr-org/tabula/errors"
)

// Snappy compresses text on the way into Inner and decompresses it on the
// way out. It uses the snappy block format, not the framed stream format.
type Snappy struct {
	Inner Store
}

// Read decodes the compressed text held by Inner.
func (s Snappy) Read(ctx context.Context) (string, error) {
	raw, err := s.Inner.Read(ctx)
	if err != nil {
		return "", err
	}
	decoded, err := snappy.Decode(nil, []byte(raw))
	if err != nil {
		return "", tberrors.IOFailure("snappy decode", err)
	}
	return string(decoded), nil
}

// Write encodes text and hands it to Inner.
func (s Snappy) Write(ctx context.Context, text string) error {
	return s.Inner.Write(ctx, string(snappy.Encode(nil, []byte(text))))
}
