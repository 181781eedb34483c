package route

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// Fingerprint returns a size-invariant digest of the geometry built from
// five evenly spaced sample points formatted to 4 decimal places. Two
// geometries passing through the same sampled locations collapse to the
// same fingerprint regardless of the path between them; that aliasing is
// an accepted trade-off for cheap deduplication, not identity.
// Returns ("", false) for geometries with fewer than 2 points.
func Fingerprint(g Geometry) (string, bool) {
	n := len(g)
	if n < 2 {
		return "", false
	}

	indices := []int{0, n / 4, n / 2, 3 * n / 4, n - 1}

	var b strings.Builder
	last := -1
	for _, i := range indices {
		if i == last {
			// Short routes alias neighboring sample indices.
			continue
		}
		last = i
		fmt.Fprintf(&b, "%.4f,%.4f", g[i].Lat, g[i].Lon)
	}

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:]), true
}
