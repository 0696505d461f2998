package assemble

import (
	"fmt"
	"io"

	"bespoke/internal/fileutil"
	"bespoke/internal/services"
)

// WriteDocument writes text to path, or to stdout followed by a newline when
// path is empty.
func WriteDocument(path, text string, stdout io.Writer) error {
	if path == "" {
		if _, err := fmt.Fprintln(stdout, text); err != nil {
			return services.Wrap(services.ErrValidation, "assemble", "write document", "stdout", err)
		}
		return nil
	}
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0o644); err != nil {
		return services.Wrap(services.ErrValidation, "assemble", "write document", path, err)
	}
	return nil
}
