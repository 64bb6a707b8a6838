package analytics

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ProjectionKey identifies a PCA projection by the wafer set and feature
// resolution. Names are sorted before hashing so the key is independent of
// upload order: the same cohort always maps to the same projection.
// Contamination deliberately does not participate, which is what lets a
// contamination sweep reuse the projection.
func ProjectionKey(names []string, resolution int) string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	h := md5.Sum([]byte(strings.Join(sorted, "\x00") + fmt.Sprintf("|%d", resolution)))
	return hex.EncodeToString(h[:])[:16]
}

// DetectionKey extends a projection key with the contamination rate.
// Changing contamination invalidates only the detection tier.
func DetectionKey(projectionKey string, contamination float64) string {
	return fmt.Sprintf("%s|%g", projectionKey, contamination)
}
