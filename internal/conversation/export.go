package conversation

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrExport marks failures to write a transcript export.
var ErrExport = errors.New("export transcript")

const (
	exportPrefix      = "conversation_"
	exportSuffix      = ".txt"
	exportStampLayout = "20060102_150405"
	turnStampLayout   = "15:04:05"
	headerStampLayout = "02/01/2006 15:04:05"
	closingMarker     = "=== End of conversation ==="
)

// lineEscaper keeps each turn on a single line of the export.
var lineEscaper = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\r`)

// Exporter writes transcripts to timestamped text files.
type Exporter struct {
	Dir      string
	Provider string
	Now      func() time.Time
}

// NewExporter creates an exporter writing into dir.
func NewExporter(dir, provider string) *Exporter {
	return &Exporter{Dir: dir, Provider: provider, Now: time.Now}
}

// Path returns the export file path for the given instant.
func (x *Exporter) Path(at time.Time) string {
	return filepath.Join(x.Dir, exportPrefix+at.Format(exportStampLayout)+exportSuffix)
}

// Export writes the full transcript to a new file and returns its path.
// An existing file is never overwritten.
func (x *Exporter) Export(t Transcript, modelID string) (path string, err error) {
	now := time.Now
	if x.Now != nil {
		now = x.Now
	}
	at := now()

	if err := os.MkdirAll(x.Dir, 0755); err != nil {
		return "", fmt.Errorf("%w: create directory %s: %w", ErrExport, x.Dir, err)
	}

	path = x.Path(at)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", ErrExport, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %w", ErrExport, path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	writeTranscript(w, t, modelID, x.Provider, at)
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("%w: write %s: %w", ErrExport, path, err)
	}
	return path, nil
}

func writeTranscript(w *bufio.Writer, t Transcript, modelID, provider string, at time.Time) {
	fmt.Fprintf(w, "=== Conversation of %s ===\n", at.Format(headerStampLayout))
	fmt.Fprintf(w, "Model: %s\n", modelID)
	fmt.Fprintf(w, "Provider: %s\n", provider)
	w.WriteString("\n")
	for _, turn := range t.turns {
		fmt.Fprintf(w, "[%s] %s: %s\n", turn.Timestamp.Format(turnStampLayout), strings.ToUpper(string(turn.Role)), lineEscaper.Replace(turn.Content))
	}
	w.WriteString(closingMarker + "\n")
}
