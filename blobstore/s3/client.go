package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client is the subset of the S3 API the store uses. *s3.Client satisfies
// it; tests substitute a mock.
type Client interface {
	manager.UploadAPIClient
	s3.HeadObjectAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ Client = (*s3.Client)(nil)

// Option configures New.
type Option func(*options)

type options struct {
	prefix  string
	region  string
	upload  UploadConfig
	s3Opts  []func(*s3.Options)
	cfgOpts []func(*config.LoadOptions) error
}

// WithPrefix prepends prefix to every key.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithRegion overrides the region from the environment.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithUploadConfig overrides the multipart upload settings.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(o *options) { o.upload = cfg }
}

// WithEndpoint points the client at an S3-compatible endpoint using
// path-style addressing.
func WithEndpoint(url string) Option {
	return func(o *options) {
		o.s3Opts = append(o.s3Opts, func(so *s3.Options) {
			so.BaseEndpoint = aws.String(url)
			so.UsePathStyle = true
		})
	}
}

// WithConfigOptions passes extra options to config.LoadDefaultConfig.
func WithConfigOptions(fns ...func(*config.LoadOptions) error) Option {
	return func(o *options) { o.cfgOpts = append(o.cfgOpts, fns...) }
}

// New loads the default AWS configuration (environment, shared files, IAM
// role) and returns a store for bucket.
func New(ctx context.Context, bucket string, optFns ...Option) (*Store, error) {
	o := options{upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&o)
	}

	cfgOpts := o.cfgOpts
	if o.region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(o.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, err
	}

	store := NewStore(s3.NewFromConfig(cfg, o.s3Opts...), bucket, o.prefix)
	store.upload = o.upload
	return store, nil
}
