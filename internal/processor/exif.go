package processor

import (
	"io"

	exif "github.com/dsoprea/go-exif/v3"
)

// countMetadataTags reports how many flat EXIF entries the source carries.
// Used for the summary's stripped-entries count; a file without EXIF (or
// with EXIF the parser cannot read) counts as zero.
func countMetadataTags(rs io.ReadSeeker) int {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0
	}

	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(rs, nil, true)
	if err != nil {
		return 0
	}
	return len(tags)
}

// hasExifData reports whether the source carries any readable EXIF block.
func hasExifData(rs io.ReadSeeker) bool {
	return countMetadataTags(rs) > 0
}
