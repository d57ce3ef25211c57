package parser

import "strconv"

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func itoa(i int64) string {
	return strconv.FormatInt(i, 10)
}
