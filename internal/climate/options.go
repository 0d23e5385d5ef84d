package climate

// Option adjusts how strictly raw payloads are checked.
type Option func(*options)

type options struct {
	strictFields  bool
	uniqueIndices bool
}

// WithStrictFields rejects keys in leaf records that are not part of the
// record's field list. By default such keys are ignored.
func WithStrictFields() Option {
	return func(o *options) { o.strictFields = true }
}

// WithUniqueIndices makes NewSystem fail with ErrDuplicateIndex when two
// zones, circuits or hot water units share an index.
func WithUniqueIndices() Option {
	return func(o *options) { o.uniqueIndices = true }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
