package asset

// DirStoreBuilderOption is a functional option for configuring a directory Store.
type DirStoreBuilderOption func(*dirStoreImpl)

// WithRetries sets how many times a failed read is retried before the error is returned.
// Missing files and permission failures are never retried.
//
// Parameters:
//   - n: the retry count
//
// Returns:
//   - DirStoreBuilderOption: a function that applies the retry count
func WithRetries(n uint64) DirStoreBuilderOption {
	return func(s *dirStoreImpl) {
		s.retries = n
	}
}

// WithWatch enables or disables fsnotify watching. Without watching, changes are only observed through Invalidate.
//
// Parameters:
//   - watch: whether to watch directories for changes
//
// Returns:
//   - DirStoreBuilderOption: a function that applies the setting
func WithWatch(watch bool) DirStoreBuilderOption {
	return func(s *dirStoreImpl) {
		s.watch = watch
	}
}
