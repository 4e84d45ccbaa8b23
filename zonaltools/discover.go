package zonaltools

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var (
	flightFolderRe = regexp.MustCompile(`(?i)^F(\d+)$`)
	dateTokenRe    = regexp.MustCompile(`F\d+_(\d{2}_\d{2}_\d{2})`)
	nonWordRe      = regexp.MustCompile(`\W+`)
)

// ListFlightFolders returns flight number -> folder path for every child
// directory of root matching F<integer> (case-insensitive).
func ListFlightFolders(root string) (map[int]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	out := make(map[int]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := flightFolderRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out[n] = filepath.Join(root, e.Name())
	}
	return out, nil
}

// FlightNumbers returns the keys of a ListFlightFolders result in
// ascending order.
func FlightNumbers(flights map[int]string) []int {
	nums := make([]int, 0, len(flights))
	for n := range flights {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// FindRasters returns the rasters named rasterName inside the date
// subfolders of flightDir, ordered by date-folder name. Lexical folder
// order only approximates chronological order; it is exact for the
// zero-padded F<n>_YY_MM_DD convention and wrong otherwise.
func FindRasters(flightDir, rasterName string) ([]string, error) {
	entries, err := os.ReadDir(flightDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(flightDir, e.Name(), rasterName)
		if _, err := os.Stat(candidate); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	rasters := make([]string, len(names))
	for i, n := range names {
		rasters[i] = filepath.Join(flightDir, n, rasterName)
	}
	return rasters, nil
}

// DateToken extracts the acquisition-date token from a date-folder name.
// Folders matching F<n>_YY_MM_DD yield the YY_MM_DD part with parsed
// true; anything else falls back to the folder name with non-word runs
// collapsed to "_" and parsed false.
func DateToken(folder string) (token string, parsed bool) {
	if m := dateTokenRe.FindStringSubmatch(folder); m != nil {
		return m[1], true
	}
	return nonWordRe.ReplaceAllString(folder, "_"), false
}
