//go:build linux

package fileno

import "golang.org/x/sys/unix"

// datasetSpace reports the free bytes usable by non-root processes and the
// size of the filesystem holding dataset
func datasetSpace(dataset string) (free, size uint64, ok bool) {
	var st unix.Statfs_t
	if unix.Statfs(dataset, &st) != nil {
		return 0, 0, false
	}
	return uint64(st.Bsize) * st.Bavail, uint64(st.Bsize) * st.Blocks, true
}
