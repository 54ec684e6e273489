package prompt

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ErrCancelled is returned when the engineer aborts a selection.
var ErrCancelled = errors.New("selection cancelled")

// Chooser asks for one of several candidate paths.
type Chooser interface {
	Choose(ctx context.Context, title string, candidates []string) (string, error)
}

// New returns the interactive picker when in and out are both terminals and a
// numbered line prompt otherwise.
func New(in io.Reader, out io.Writer) Chooser {
	inFile, inOK := in.(*os.File)
	outFile, outOK := out.(*os.File)
	if inOK && outOK && isTerminal(inFile) && isTerminal(outFile) {
		return &Picker{in: inFile, out: outFile}
	}
	return NewLinePrompt(in, out)
}

// First always selects the first candidate. It backs non-interactive runs.
type First struct{}

// Choose returns candidates[0].
func (First) Choose(_ context.Context, _ string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrCancelled
	}
	return candidates[0], nil
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
