package util

import (
	"os"
	"strings"
)

//TimeFormat stores a correctly formatted timestamp
const TimeFormat string = "2006-01-02-T15:04:05-0700"

// IsDir returns true if argument is a directory
func IsDir(path string) bool {
	file, err := os.Stat(path)
	if err != nil {
		return false
	}
	return file.IsDir()
}

// IsRegularFile returns true if the path resolves to a regular file.
// Symlinks are followed.
func IsRegularFile(path string) bool {
	file, err := os.Stat(path)
	if err != nil {
		return false
	}
	return file.Mode().IsRegular()
}

// ContainsFold reports whether substr is within s, ignoring case
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

//Min returns the smaller of two integers
func Min(a int, b int) int {
	if a < b {
		return a
	}
	return b
}

//MinFloat64 returns the smaller of two float64s
func MinFloat64(a float64, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

//MaxFloat64 returns the larger of two float64s
func MaxFloat64(a float64, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

//StringInSlice returns true if the string is an element of the array
func StringInSlice(value string, list []string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}
