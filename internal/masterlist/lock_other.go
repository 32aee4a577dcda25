//go:build !unix

package masterlist

// lockFile is a no-op where flock is unavailable; Save still renames atomically.
func lockFile(string) (func() error, error) {
	return func() error { return nil }, nil
}
