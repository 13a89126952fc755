package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/logger"
)

// DefaultRegion is used when S3Config.Region is empty.
const DefaultRegion = "us-east-1"

// S3API is the subset of the S3 client used by S3Object.
type S3API interface {
	GetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

// S3Config holds the connection settings for one object.
type S3Config struct {
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
	Key    string `yaml:"key" mapstructure:"key"`

	Region string `yaml:"region" mapstructure:"region"`
	// Endpoint is a custom S3-compatible endpoint (e.g. MinIO).
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
	ContentType    string `yaml:"content_type" mapstructure:"content_type"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *S3Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

// Validate checks that bucket and key are set.
func (c *S3Config) Validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("s3: bucket is required"))
	}
	if c.Key == "" {
		errs = append(errs, errors.New("s3: key is required"))
	}
	if len(errs) > 0 {
		return tberrors.InvalidArgument("s3", errors.Join(errs...).Error())
	}
	return nil
}

// ParseS3URL splits "s3://bucket/some/key" into bucket and key.
func ParseS3URL(u string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(u, "s3://")
	if !ok {
		return "", "", tberrors.InvalidArgument("s3", "location must start with s3://")
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", tberrors.InvalidArgument("s3", fmt.Sprintf("location %q needs a bucket and a key", u))
	}
	return bucket, key, nil
}

// ============================================================================
// S3 OBJECT
// ============================================================================

// S3Object reads and writes one object as a whole.
type S3Object struct {
	Client      S3API
	Bucket      string
	Key         string
	ContentType string

	log *zerolog.Logger
}

// NewS3Object builds a client from cfg using the default AWS credential
// chain, or static keys when both are set.
func NewS3Object(ctx context.Context, cfg S3Config, opts ...Option) (*S3Object, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, tberrors.IOFailure("load aws config", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	obj := &S3Object{
		Client:      awss3.NewFromConfig(awsCfg, s3Opts...),
		Bucket:      cfg.Bucket,
		Key:         cfg.Key,
		ContentType: cfg.ContentType,
	}
	log := applyOptions(opts).log
	obj.log = &log
	return obj, nil
}

// WithLogger returns a copy of o that logs to l.
func (o *S3Object) WithLogger(l zerolog.Logger) *S3Object {
	cp := *o
	log := logger.Component(l, "datasource")
	cp.log = &log
	return &cp
}

func (o *S3Object) logger() *zerolog.Logger {
	if o.log == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return o.log
}

// Read downloads the object body.
func (o *S3Object) Read(ctx context.Context) (string, error) {
	start := time.Now()
	out, err := o.Client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(o.Bucket),
		Key:    aws.String(o.Key),
	})
	if err != nil {
		return "", tberrors.IOFailure("s3 get "+o.location(), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", tberrors.IOFailure("s3 get "+o.location(), err)
	}
	o.logger().Debug().
		Str(logger.FieldOperation, "s3_get").
		Str("location", o.location()).
		Int("bytes", len(data)).
		Int64(logger.FieldDuration, time.Since(start).Milliseconds()).
		Msg("object read")
	return string(data), nil
}

// Write uploads text as the object body.
func (o *S3Object) Write(ctx context.Context, text string) error {
	start := time.Now()
	in := &awss3.PutObjectInput{
		Bucket: aws.String(o.Bucket),
		Key:    aws.String(o.Key),
		Body:   strings.NewReader(text),
	}
	if o.ContentType != "" {
		in.ContentType = aws.String(o.ContentType)
	}
	if _, err := o.Client.PutObject(ctx, in); err != nil {
		return tberrors.IOFailure("s3 put "+o.location(), err)
	}
	o.logger().Debug().
		Str(logger.FieldOperation, "s3_put").
		Str("location", o.location()).
		Int("bytes", len(text)).
		Int64(logger.FieldDuration, time.Since(start).Milliseconds()).
		Msg("object written")
	return nil
}

func (o *S3Object) location() string {
	return "s3://" + o.Bucket + "/" + o.Key
}
