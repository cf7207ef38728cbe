package catalog

import (
	"fmt"

	"github.com/alpacahq/chunkstore/utils/io"
)

type NotFoundError string

func (msg NotFoundError) Error() string {
	return errReport("%s: Path not found", string(msg))
}

func errReport(base string, msg string) string {
	base = io.GetCallerFileContext(2) + ":" + base
	return fmt.Sprintf(base, msg)
}
