package processor

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"imscale/pkg/imgutil"
)

var (
	jpegExifHeader = []byte("Exif\x00\x00")
	jpegICCHeader  = []byte("ICC_PROFILE\x00")
	pngSignature   = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
)

// PNG chunk types carried over to the re-encoded output.
var pngMetadataChunks = map[string]bool{
	"tEXt": true,
	"zTXt": true,
	"iTXt": true,
	"tIME": true,
	"iCCP": true,
	"eXIf": true,
}

// carryMetadata copies the metadata blocks of src into the re-encoded
// output when both are the same container. Best-effort: any parse failure
// returns the encoded bytes untouched.
func carryMetadata(src, encoded []byte, kind imgutil.Kind) []byte {
	switch kind {
	case imgutil.KindJPEG:
		out, err := carryJPEGMetadata(src, encoded)
		if err != nil {
			return encoded
		}
		return out
	case imgutil.KindPNG:
		out, err := carryPNGMetadata(src, encoded)
		if err != nil {
			return encoded
		}
		return out
	default:
		return encoded
	}
}

// carryJPEGMetadata extracts the EXIF APP1 and ICC APP2 segments from src
// and inserts them into encoded directly after the SOI marker.
func carryJPEGMetadata(src, encoded []byte) ([]byte, error) {
	segments, err := extractJPEGSegments(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return encoded, nil
	}
	if len(encoded) < 2 || encoded[0] != 0xff || encoded[1] != 0xd8 {
		return nil, fmt.Errorf("invalid JPEG SOI in encoded output")
	}

	out := make([]byte, 0, len(encoded)+totalLen(segments))
	out = append(out, encoded[:2]...)
	for _, seg := range segments {
		out = append(out, seg...)
	}
	out = append(out, encoded[2:]...)
	return out, nil
}

// extractJPEGSegments walks the marker stream and returns the raw bytes
// (marker, length, payload) of every EXIF and ICC segment before the scan
// data starts.
func extractJPEGSegments(r io.Reader) ([][]byte, error) {
	br := bufio.NewReader(r)

	soi := make([]byte, 2)
	if _, err := io.ReadFull(br, soi); err != nil {
		return nil, err
	}
	if soi[0] != 0xff || soi[1] != 0xd8 {
		return nil, fmt.Errorf("invalid JPEG SOI")
	}

	var segments [][]byte
	for {
		markerPrefix, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		for markerPrefix != 0xff {
			markerPrefix, err = br.ReadByte()
			if err != nil {
				return nil, err
			}
		}

		marker, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		for marker == 0xff {
			marker, err = br.ReadByte()
			if err != nil {
				return nil, err
			}
		}

		// EOI or start of scan: no more metadata segments ahead.
		if marker == 0xd9 || marker == 0xda {
			return segments, nil
		}

		if marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7) {
			continue
		}

		lenBuf := make([]byte, 2)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			return nil, err
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf))
		if segLen < 2 {
			return nil, fmt.Errorf("invalid JPEG segment length")
		}
		payload := make([]byte, segLen-2)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, err
		}

		if isJPEGMetadataSegment(marker, payload) {
			seg := make([]byte, 0, 4+len(payload))
			seg = append(seg, 0xff, marker)
			seg = append(seg, lenBuf...)
			seg = append(seg, payload...)
			segments = append(segments, seg)
		}
	}
}

func isJPEGMetadataSegment(marker byte, payload []byte) bool {
	switch marker {
	case 0xe1:
		return bytes.HasPrefix(payload, jpegExifHeader)
	case 0xe2:
		return bytes.HasPrefix(payload, jpegICCHeader)
	}
	return false
}

// carryPNGMetadata extracts the ancillary metadata chunks of src and
// inserts them into encoded just before the IEND chunk.
func carryPNGMetadata(src, encoded []byte) ([]byte, error) {
	chunks, err := extractPNGChunks(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return encoded, nil
	}

	iendOffset, err := findPNGIEND(encoded)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(encoded)+totalLen(chunks))
	out = append(out, encoded[:iendOffset]...)
	for _, chunk := range chunks {
		out = append(out, chunk...)
	}
	out = append(out, encoded[iendOffset:]...)
	return out, nil
}

// extractPNGChunks returns the raw bytes (length, type, data, CRC) of every
// metadata chunk in the stream.
func extractPNGChunks(r io.Reader) ([][]byte, error) {
	br := bufio.NewReader(r)

	sig := make([]byte, 8)
	if _, err := io.ReadFull(br, sig); err != nil {
		return nil, err
	}
	if !bytes.Equal(sig, pngSignature) {
		return nil, fmt.Errorf("invalid PNG signature")
	}

	var chunks [][]byte
	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			if err == io.EOF {
				return chunks, nil
			}
			return nil, err
		}
		length := binary.BigEndian.Uint32(lenBuf)

		typeBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, typeBuf); err != nil {
			return nil, err
		}
		chunkName := string(typeBuf)

		if pngMetadataChunks[chunkName] {
			body := make([]byte, int64(length)+4)
			if _, err := io.ReadFull(br, body); err != nil {
				return nil, err
			}
			chunk := make([]byte, 0, 12+int(length))
			chunk = append(chunk, lenBuf...)
			chunk = append(chunk, typeBuf...)
			chunk = append(chunk, body...)
			chunks = append(chunks, chunk)
		} else {
			if _, err := io.CopyN(io.Discard, br, int64(length)+4); err != nil {
				return nil, err
			}
		}

		if chunkName == "IEND" {
			return chunks, nil
		}
	}
}

// findPNGIEND returns the byte offset where the IEND chunk begins.
func findPNGIEND(data []byte) (int, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], pngSignature) {
		return 0, fmt.Errorf("invalid PNG signature")
	}

	offset := 8
	for offset+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		chunkName := string(data[offset+4 : offset+8])
		if chunkName == "IEND" {
			return offset, nil
		}
		offset += 12 + length
	}
	return 0, fmt.Errorf("IEND chunk not found")
}

func totalLen(blocks [][]byte) int {
	n := 0
	for _, b := range blocks {
		n += len(b)
	}
	return n
}
