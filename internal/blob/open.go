package blob

import (
	"context"
	"fmt"
)

// Options selects and configures a backend for Open.
type Options struct {
	Driver Driver
	Root   string // fs driver
	S3     S3Config
}

// Open returns the Store named by opts.Driver. An empty driver means fs.
func Open(ctx context.Context, opts Options) (Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(opts.Root)
	case DriverS3:
		return NewS3(ctx, opts.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}
