//go:build !linux

package fileno

// statfs is only wired up on linux
func datasetSpace(string) (free, size uint64, ok bool) { return 0, 0, false }
