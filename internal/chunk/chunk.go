// Package chunk models the fixed-size part files the splitter produces for
// one archive and scans them back from disk.
package chunk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Part is a single chunk file. Number is 1-based and always equals the
// numeric file suffix; it doubles as the remote part number.
type Part struct {
	Number int32
	Path   string
	Size   int64
}

// Set is the ordered chunk set for one archive. Parts are sorted by Number
// and numbering is contiguous starting at 1.
type Set struct {
	// Base is the path prefix chunk files are named after, e.g.
	// "/media/Wedding.fcpbundle" has base "/media/Wedding.fcpbundle.zip"
	// and chunk files "/media/Wedding.fcpbundle.zip.001", ".002", ...
	Base  string
	Parts []Part
}

// PartPath returns the chunk file path for a part number.
func PartPath(base string, number int32) string {
	return fmt.Sprintf("%s.%03d", base, number)
}

// Count returns the number of parts in the set.
func (s *Set) Count() int {
	return len(s.Parts)
}

// TotalSize returns the sum of all chunk file sizes in bytes.
func (s *Set) TotalSize() int64 {
	var total int64
	for _, p := range s.Parts {
		total += p.Size
	}
	return total
}

// Scan finds the chunk files for a base path and validates their numbering.
// Returns (nil, nil) when no chunk files exist. A gap in the numbering or a
// first part other than 001 is an error: such a set was never completely
// written and must not be trusted.
func Scan(base string) (*Set, error) {
	matches, err := filepath.Glob(base + ".[0-9][0-9][0-9]")
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunks for %s: %w", base, err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	// A four-digit neighbor means some other tool wrote past part 999. The
	// three-digit set would look complete while missing the tail, so refuse
	// the whole base.
	wide, err := filepath.Glob(base + ".[0-9][0-9][0-9][0-9]")
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunks for %s: %w", base, err)
	}
	if len(wide) > 0 {
		return nil, fmt.Errorf("chunk set for %s has parts beyond 999 (found %s); remove them before retrying", base, filepath.Base(wide[0]))
	}
	sort.Strings(matches)

	set := &Set{Base: base}
	for i, path := range matches {
		suffix := strings.TrimPrefix(path, base+".")
		number, err := strconv.ParseInt(suffix, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("chunk %s has malformed suffix %q: %w", path, suffix, err)
		}
		if int(number) != i+1 {
			return nil, fmt.Errorf("chunk numbering for %s is not contiguous: expected part %03d, found %s", base, i+1, path)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat chunk %s: %w", path, err)
		}
		set.Parts = append(set.Parts, Part{
			Number: int32(number),
			Path:   path,
			Size:   info.Size(),
		})
	}

	return set, nil
}
