package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LinePrompt prints a numbered list and reads the answer from a line reader.
// Invalid answers are reported and asked again.
type LinePrompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompt builds a prompt over in and out.
func NewLinePrompt(in io.Reader, out io.Writer) *LinePrompt {
	return &LinePrompt{in: bufio.NewReader(in), out: out}
}

// Choose implements Chooser. "q" or end of input cancels.
func (p *LinePrompt) Choose(ctx context.Context, title string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrCancelled
	}
	fmt.Fprintln(p.out, title)
	for i, candidate := range candidates {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, candidate)
	}
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprintf(p.out, "Selection [1-%d]: ", len(candidates))
		line, err := p.in.ReadString('\n')
		answer := strings.TrimSpace(line)
		if err != nil && answer == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(p.out)
				return "", ErrCancelled
			}
			return "", fmt.Errorf("read selection: %w", err)
		}
		if strings.EqualFold(answer, "q") {
			return "", ErrCancelled
		}
		n, convErr := strconv.Atoi(answer)
		if convErr != nil || n < 1 || n > len(candidates) {
			fmt.Fprintf(p.out, "Invalid selection %q.\n", answer)
			continue
		}
		return candidates[n-1], nil
	}
}
