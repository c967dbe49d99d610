// SPDX-License-Identifier: MIT
package audio

// Downmix averages each frame of an interleaved buffer into dst and returns
// the number of frames written. Trailing samples that do not form a whole
// frame are ignored, as are frames that do not fit in dst.
func Downmix(dst, interleaved []float32, channels int) int {
	if channels <= 1 {
		return copy(dst, interleaved)
	}

	frames := min(len(interleaved)/channels, len(dst))
	switch channels {
	case 2:
		for f := range frames {
			idx := f << 1
			dst[f] = (interleaved[idx] + interleaved[idx+1]) * 0.5
		}
	default:
		inv := 1 / float32(channels)
		for f := range frames {
			var sum float32
			for _, s := range interleaved[f*channels : (f+1)*channels] {
				sum += s
			}
			dst[f] = sum * inv
		}
	}
	return frames
}
