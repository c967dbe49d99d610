// SPDX-License-Identifier: MIT
package broadcast

import (
	"fmt"
	"strconv"
	"strings"

	"audiomon/internal/analysis"
)

// DefaultPrecision is the number of decimals written per field.
const DefaultPrecision = 1

/*
Record format, one line per analysis cycle:

	rms,<band_0>,<band_1>,...,<band_{K-1}>\n

Every field is a fixed-precision decimal in [0,1]. The band count and meaning
are fixed per deployment; Header returns the matching column names.
*/

// AppendRecord appends the wire form of res to dst and returns the extended
// buffer.
func AppendRecord(dst []byte, res analysis.Result, precision int) []byte {
	dst = appendField(dst, res.RMS, precision)
	for _, v := range res.Bands {
		dst = append(dst, ',')
		dst = appendField(dst, v, precision)
	}
	return append(dst, '\n')
}

func appendField(dst []byte, v float64, precision int) []byte {
	if v == 0 {
		v = 0 // -0 prints as "-0.0"
	}
	return strconv.AppendFloat(dst, v, 'f', precision, 64)
}

// ParseRecord decodes one record line. The trailing newline is optional.
func ParseRecord(line string) (analysis.Result, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return analysis.Result{}, fmt.Errorf("%w: empty line", ErrRecordFormat)
	}

	fields := strings.Split(line, ",")
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return analysis.Result{}, fmt.Errorf("%w: field %d: %v", ErrRecordFormat, i, err)
		}
		values[i] = v
	}
	return analysis.Result{RMS: values[0], Bands: values[1:]}, nil
}

// Header returns the column names of a record carrying the given bands, e.g.
// "rms,bass,low_mids,mids,high_mids,highs". Unnamed bands are numbered.
func Header(names []string, bands int) string {
	var b strings.Builder
	b.WriteString("rms")
	for i := range bands {
		b.WriteByte(',')
		if i < len(names) && names[i] != "" {
			b.WriteString(names[i])
		} else {
			b.WriteString("band_" + strconv.Itoa(i))
		}
	}
	return b.String()
}
