package datasource

import (
	"context"
	"io"
	"os"

	tberrors "github.com/spektr-org/tabula/errors"
)

// File reads and writes one local file as a whole.
type File struct {
	Path string
}

// Read returns the file contents.
func (f File) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", tberrors.IOFailure("read "+f.Path, err)
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", tberrors.IOFailure("read "+f.Path, err)
	}
	return string(data), nil
}

// Write replaces the file contents, creating the file with mode 0644.
func (f File) Write(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return tberrors.IOFailure("write "+f.Path, err)
	}
	if err := os.WriteFile(f.Path, []byte(text), 0o644); err != nil {
		return tberrors.IOFailure("write "+f.Path, err)
	}
	return nil
}

// Stream adapts an io.Reader / io.Writer pair. Either side may be nil.
type Stream struct {
	In  io.Reader
	Out io.Writer
}

// Stdio is a Stream over stdin and stdout.
func Stdio() Stream { return Stream{In: os.Stdin, Out: os.Stdout} }

// Read drains In.
func (s Stream) Read(ctx context.Context) (string, error) {
	if s.In == nil {
		return "", tberrors.IOFailure("read stream", io.ErrClosedPipe)
	}
	if err := ctx.Err(); err != nil {
		return "", tberrors.IOFailure("read stream", err)
	}
	data, err := io.ReadAll(s.In)
	if err != nil {
		return "", tberrors.IOFailure("read stream", err)
	}
	return string(data), nil
}

// Write copies text to Out.
func (s Stream) Write(ctx context.Context, text string) error {
	if s.Out == nil {
		return tberrors.IOFailure("write stream", io.ErrClosedPipe)
	}
	if err := ctx.Err(); err != nil {
		return tberrors.IOFailure("write stream", err)
	}
	if _, err := io.WriteString(s.Out, text); err != nil {
		return tberrors.IOFailure("write stream", err)
	}
	return nil
}
