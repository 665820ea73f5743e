package fileno

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/sdb/lib/db"
)

// buildPath returns the path of the file that stores key inside dataset.
//
// The key is validated first (see db.ValidateKey), so the result always names
// a direct child of dataset. The combined length is bounded by db.PathMax.
func buildPath(dataset, key string) (string, error) {
	if err := db.ValidateKey(key); err != nil {
		return "", err
	}
	if len(dataset)+1+len(key) > db.PathMax {
		return "", fmt.Errorf("%w: %d bytes (max %d)", db.ErrPathTooLong, len(dataset)+1+len(key), db.PathMax)
	}
	return dataset + string(os.PathSeparator) + key, nil
}
