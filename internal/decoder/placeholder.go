package decoder

// PlaceholderPixel is the opaque-red RGBA value used for synthesized
// frames, per the SingleFrameError policy: a frame that genuinely could
// not be decoded is still visually distinguishable from a decode bug.
var PlaceholderPixel = [4]byte{255, 0, 0, 255}

// SynthesizeFrame fills a width x height RGBA buffer with PlaceholderPixel.
func SynthesizeFrame(width, height uint32) []byte {
	buf := make([]byte, int(width)*int(height)*4)
	for i := 0; i < len(buf); i += 4 {
		buf[i] = PlaceholderPixel[0]
		buf[i+1] = PlaceholderPixel[1]
		buf[i+2] = PlaceholderPixel[2]
		buf[i+3] = PlaceholderPixel[3]
	}
	return buf
}
