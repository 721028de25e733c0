package commands

import (
	"strconv"
	"time"
)

// helper functions for formatting floats and integers
func f(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
func i(i int64) string {
	return strconv.FormatInt(i, 10)
}

// ts renders fractional unix seconds as a UTC timestamp
func ts(seconds float64) string {
	nanos := int64(seconds * float64(time.Second))
	return time.Unix(0, nanos).UTC().Format("2006-01-02 15:04:05.000000")
}
