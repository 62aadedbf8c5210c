package wallet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// PromptSigner asks on the terminal before delegating to another Signer.
// Anything but "y"/"yes" is a rejection.
type PromptSigner struct {
	Signer

	// Describe, if set, supplies the summary shown above the prompt.
	Describe func() string

	out io.Writer
	mu  sync.Mutex
	in  *bufio.Reader
}

func NewPromptSigner(inner Signer, in io.Reader, out io.Writer) *PromptSigner {
	return &PromptSigner{Signer: inner, in: bufio.NewReader(in), out: out}
}

func (p *PromptSigner) SignTransaction(ctx context.Context, raw []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Describe != nil {
		fmt.Fprintln(p.out, p.Describe())
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.out, "Sign swap transaction with %s? [y/N]: ", p.Address())

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: read confirmation: %v", ErrSigningFailed, err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return p.Signer.SignTransaction(ctx, raw)
	default:
		return nil, ErrSigningRejected
	}
}
