package audiocd

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"
)

var discIDEncoding = base64.StdEncoding.WithPadding('-')

// DiscID computes the MusicBrainz disc ID: the SHA-1 of the first and
// last track numbers and 100 track offsets (lead-out first) as
// upper-case hex, base64 encoded with '.', '_' and '-' in place of '+',
// '/' and '='.
//
// MusicBrainz offsets include the two second pregap, so PregapSectors is
// added to every LBA.
func DiscID(toc *TOC) string {
	var offsets [MaxTracks + 1]uint32
	offsets[0] = toc.LeadOut + PregapSectors
	for _, t := range toc.Tracks {
		offsets[t.TrackNum] = t.StartSector + PregapSectors
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%02X%02X", toc.FirstTrack, toc.LastTrack)
	for _, o := range offsets {
		fmt.Fprintf(&sb, "%08X", o)
	}

	sum := sha1.Sum([]byte(sb.String()))
	id := discIDEncoding.EncodeToString(sum[:])
	return strings.NewReplacer("+", ".", "/", "_").Replace(id)
}
