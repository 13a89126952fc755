// Package datasource holds the text adapters that move rendered frames in
// and out of storage (local files, stdio, S3 objects, snappy-compressed
// wrappers) plus a SQL row source and sink.
//
// Every failure talking to a backing store is reported as IO_FAILURE.
package datasource

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/spektr-org/tabula/dataframe"
	"github.com/spektr-org/tabula/logger"
)

// Store reads and writes whole texts.
type Store interface {
	dataframe.TextReader
	dataframe.TextWriter
}

// ============================================================================
// OPTIONS
// ============================================================================

// Option configures the adapters built by this package.
type Option func(*options)

type options struct {
	log zerolog.Logger
}

// WithLogger routes adapter logging to l.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = logger.Component(l, "datasource")
	}
}

func applyOptions(opts []Option) options {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ============================================================================
// LOCATION RESOLUTION
// ============================================================================

// Open resolves a location to a Store:
//
//	"-"               stdin / stdout
//	"s3://bucket/key" S3 object (s3cfg supplies region and credentials)
//	anything else     local file
//
// A ".sz" suffix wraps the store in Snappy.
func Open(ctx context.Context, location string, s3cfg S3Config, opts ...Option) (Store, error) {
	var store Store
	switch {
	case location == "-":
		store = Stdio()
	case strings.HasPrefix(location, "s3://"):
		bucket, key, err := ParseS3URL(location)
		if err != nil {
			return nil, err
		}
		s3cfg.Bucket, s3cfg.Key = bucket, key
		obj, err := NewS3Object(ctx, s3cfg, opts...)
		if err != nil {
			return nil, err
		}
		store = obj
	default:
		store = File{Path: location}
	}
	if strings.HasSuffix(location, ".sz") {
		store = Snappy{Inner: store}
	}
	return store, nil
}
