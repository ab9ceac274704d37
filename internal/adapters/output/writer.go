// Package output provides adapters for writing application output.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/MyCarrier-DevOps/release-tagger/internal/domain"
)

// LocalOnlyMessage is printed when images were built but not pushed.
const LocalOnlyMessage = "local build complete; push skipped (not running in CI)"

// Writer writes release progress lines to the configured output destination.
// By default, it writes to stdout.
type Writer struct {
	out io.Writer
}

// NewWriter creates a new Writer that writes to stdout.
func NewWriter() *Writer {
	return &Writer{out: os.Stdout}
}

// NewWriterWithOutput creates a new Writer with a custom output destination.
// This is useful for testing.
func NewWriterWithOutput(out io.Writer) *Writer {
	return &Writer{out: out}
}

// WritePlan prints the image name, channel, push decision and one line per reference.
func (w *Writer) WritePlan(plan *domain.ReleasePlan) error {
	channel := plan.Channel.String()
	if channel == "" {
		channel = "none"
	}

	if _, err := fmt.Fprintf(w.out, "image %s\nchannel %s\npush %t\n", plan.ImageName, channel, plan.Push); err != nil {
		return err
	}
	for _, ref := range plan.References {
		if _, err := fmt.Fprintf(w.out, "tag %s\n", ref); err != nil {
			return err
		}
	}
	return nil
}

// WriteBuilt reports a successfully built reference.
func (w *Writer) WriteBuilt(reference string) error {
	_, err := fmt.Fprintf(w.out, "built %s\n", reference)
	return err
}

// WritePushed reports a successfully pushed reference.
func (w *Writer) WritePushed(reference string) error {
	_, err := fmt.Fprintf(w.out, "pushed %s\n", reference)
	return err
}

// WriteLocalOnly reports that the run finished without pushing.
func (w *Writer) WriteLocalOnly() error {
	_, err := fmt.Fprintln(w.out, LocalOnlyMessage)
	return err
}
