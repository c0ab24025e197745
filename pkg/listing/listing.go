// Package listing renders object metadata into the wire-format
// directory listing. The rendered lines are display text for humans;
// clients rely on the line count sent ahead of them, never on parsing
// these lines back.
package listing

import (
	"fmt"
	"sort"

	"github.com/marcomacias410/ferry/pkg/store"
)

// NoFiles is the sentinel a client renders when the listing holds zero
// lines. It never travels on the wire; the zero count does.
const NoFiles = "No files"

// timeLayout renders timestamps with a 12-hour clock and AM/PM marker.
const timeLayout = "2006-01-02 03:04:05 PM"

// sizeWidth right-aligns sizes so names line up in a column.
const sizeWidth = 12

// Format renders entries into listing lines, sorted by name in
// case-sensitive lexicographic order. Names render last on each line
// so names containing spaces stay readable. An empty input yields an
// empty slice.
func Format(entries []store.ObjectInfo) []string {
	sorted := make([]store.ObjectInfo, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	lines := make([]string, len(sorted))
	for i, e := range sorted {
		lines[i] = FormatEntry(e)
	}
	return lines
}

// FormatEntry renders one listing line: right-aligned size, local
// modification time, then the name.
func FormatEntry(e store.ObjectInfo) string {
	return fmt.Sprintf("%*d %s %s", sizeWidth, e.Size, e.ModifiedAt.Local().Format(timeLayout), e.Name)
}
