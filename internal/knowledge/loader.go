// Package knowledge loads the static reference text injected into every
// prompt. The files are produced by an offline scraping job; this package
// only reads them, once, at startup.
package knowledge

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Load concatenates the named files from dir into a single snippet string.
// A file that cannot be read is represented inline by a bracketed marker
// instead of failing the whole load; the assistant then simply answers
// without that slice of reference data.
func Load(dir string, files []string) string {
	var b strings.Builder
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("WARN [Knowledge] Could not read %s: %v", name, err)
			fmt.Fprintf(&b, "[%s not found]\n", name)
			continue
		}
		b.Write(data)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
