package hdf5

// DatasetOption configures dataset creation.
type DatasetOption func(*datasetOptions)

type datasetOptions struct {
	chunks    []uint64
	gzipLevel int
}

func defaultDatasetOptions() *datasetOptions {
	return &datasetOptions{}
}

// WithChunks stores the dataset in chunks of the given extent instead of
// one contiguous block. Required for compression.
func WithChunks(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.chunks = dims
	}
}

// WithGzip compresses chunks with deflate at the given level (1-9).
func WithGzip(level int) DatasetOption {
	return func(o *datasetOptions) {
		if level >= 1 && level <= 9 {
			o.gzipLevel = level
		}
	}
}
