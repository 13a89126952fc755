package dataframe

import (
	"context"
)

// ============================================================================
// PLUGIN CHAINING — Formats and text adapters
// ============================================================================
// The core never touches storage. A Formatter/Parser converts between a
// frame and text; a TextWriter/TextReader moves that text.
//
//	err := df.As(format.JSON{}).To(ctx, datasource.File{Path: "out.json"})
//	df, err := dataframe.Load(ctx, datasource.File{Path: "in.csv"}, format.CSV{})
// ============================================================================

// Formatter renders a frame as text.
type Formatter interface {
	Format(df DataFrame) (string, error)
}

// Parser builds a frame from text.
type Parser interface {
	Parse(text string) (DataFrame, error)
}

// TextReader supplies raw text.
type TextReader interface {
	Read(ctx context.Context) (string, error)
}

// TextWriter stores raw text.
type TextWriter interface {
	Write(ctx context.Context, text string) error
}

// Output is a frame bound to a formatter, waiting for a destination.
type Output struct {
	df DataFrame
	f  Formatter
}

// As binds the frame to a formatter.
func (o ops) As(f Formatter) Output {
	return Output{df: o.self, f: f}
}

// Text renders the frame without writing it anywhere.
func (out Output) Text() (string, error) {
	return out.f.Format(out.df)
}

// To renders the frame and hands the text to w.
func (out Output) To(ctx context.Context, w TextWriter) error {
	text, err := out.f.Format(out.df)
	if err != nil {
		return err
	}
	return w.Write(ctx, text)
}

// Load reads text from r and parses it into a frame.
func Load(ctx context.Context, r TextReader, p Parser) (DataFrame, error) {
	text, err := r.Read(ctx)
	if err != nil {
		return nil, err
	}
	return p.Parse(text)
}
