package serialport

import "fmt"

// COBS byte-stuffing for the serial transport. The UDP wire frame has no
// sync marker, so over a byte stream each frame is COBS-encoded and
// terminated with a 0x00 delimiter; a reader that joins mid-stream
// resynchronises at the next delimiter.

// CobsEncode stuffs data so it contains no zero bytes. The trailing 0x00
// delimiter is not appended here.
func CobsEncode(data []byte) []byte {
	out := make([]byte, 0, len(data)+1+len(data)/254)

	codeIdx := 0
	out = append(out, 0)
	code := byte(1)

	for _, b := range data {
		if b == 0 {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
			continue
		}
		out = append(out, b)
		code++
		if code == 0xFF {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
		}
	}
	out[codeIdx] = code
	return out
}

// CobsDecode decodes a COBS frame without the trailing 0x00 delimiter.
func CobsDecode(encoded []byte) ([]byte, error) {
	if len(encoded) == 0 {
		return nil, nil
	}

	out := make([]byte, 0, len(encoded))
	for i := 0; i < len(encoded); {
		code := encoded[i]
		if code == 0 {
			return nil, fmt.Errorf("invalid COBS code 0x00")
		}
		i++

		count := int(code) - 1
		if i+count > len(encoded) {
			return nil, fmt.Errorf("cobs frame truncated")
		}

		out = append(out, encoded[i:i+count]...)
		i += count

		if code != 0xFF && i < len(encoded) {
			out = append(out, 0x00)
		}
	}

	return out, nil
}
