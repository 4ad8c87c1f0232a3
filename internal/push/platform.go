package push

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"vaichover/internal/types"
)

// PermissionLedger keeps the user's permission answer between runs.
type PermissionLedger interface {
	Permission() types.NotificationPermission
	SetPermission(ctx context.Context, p types.NotificationPermission)
}

// TokenLedger keeps the token this device holds between runs. An empty
// token means the device is not subscribed.
type TokenLedger interface {
	Token() string
	SetToken(ctx context.Context, token string)
}

type promptAnswer struct {
	line string
	err  error
}

// TerminalPermission asks for notification permission on a terminal. The
// answer is written to the ledger, when there is one, so later runs start
// from it.
type TerminalPermission struct {
	in     *bufio.Reader
	out    io.Writer
	ledger PermissionLedger

	// ask serializes prompts. pending is a read left over from a prompt
	// whose context ended; the next prompt waits on it instead of starting
	// a second reader.
	ask     sync.Mutex
	pending chan promptAnswer

	mu     sync.Mutex
	answer types.NotificationPermission
}

// NewTerminalPermission creates a prompt reading from in and writing to out.
// A granted or denied initial overrides the ledger for this process only
// (e.g. granted from a flag); otherwise the recorded answer is used. ledger
// may be nil.
func NewTerminalPermission(in io.Reader, out io.Writer, initial types.NotificationPermission, ledger PermissionLedger) *TerminalPermission {
	if (initial == "" || initial == types.PermissionDefault) && ledger != nil {
		initial = ledger.Permission()
	}
	if initial == "" {
		initial = types.PermissionDefault
	}
	return &TerminalPermission{in: bufio.NewReader(in), out: out, ledger: ledger, answer: initial}
}

func (p *TerminalPermission) Permission() types.NotificationPermission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.answer
}

// RequestPermission prompts only while the answer is still default, like a
// browser does. Permission stays readable while the prompt waits.
func (p *TerminalPermission) RequestPermission(ctx context.Context) (types.NotificationPermission, error) {
	p.ask.Lock()
	defer p.ask.Unlock()

	if answer := p.Permission(); answer != types.PermissionDefault {
		p.remember(ctx, answer)
		return answer, nil
	}

	if p.pending == nil {
		fmt.Fprint(p.out, "Permitir notificações de chuva? [s/N] ")
		ch := make(chan promptAnswer, 1)
		go func() {
			line, err := p.in.ReadString('\n')
			ch <- promptAnswer{line, err}
		}()
		p.pending = ch
	}

	select {
	case <-ctx.Done():
		return types.PermissionDefault, ctx.Err()
	case r := <-p.pending:
		p.pending = nil
		if r.err != nil && r.line == "" {
			return types.PermissionDefault, r.err
		}
		answer := parseAnswer(r.line)
		p.mu.Lock()
		p.answer = answer
		p.mu.Unlock()
		p.remember(ctx, answer)
		return answer, nil
	}
}

func (p *TerminalPermission) remember(ctx context.Context, answer types.NotificationPermission) {
	if p.ledger != nil && p.ledger.Permission() != answer {
		p.ledger.SetPermission(ctx, answer)
	}
}

func parseAnswer(line string) types.NotificationPermission {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "sim", "y", "yes":
		return types.PermissionGranted
	default:
		return types.PermissionDenied
	}
}

// ImmediateWorker is a WorkerRegistry for hosts where the process itself
// receives deliveries, so there is nothing to wait for.
type ImmediateWorker struct {
	Scope string
}

func (w ImmediateWorker) Ready(context.Context) (WorkerRegistration, error) {
	return WorkerRegistration{Scope: w.Scope}, nil
}

// StaticTokenProvider hands out a token issued to this device out of band.
// GetToken puts it on record in the ledger and DeleteToken takes it off, so
// an unsubscribe outlives the process. Without a ledger the record lasts
// for the life of the process.
type StaticTokenProvider struct {
	token  string
	ledger TokenLedger

	mu      sync.Mutex
	deleted bool
}

// NewStaticTokenProvider creates a provider for token, which may be empty.
// ledger may be nil.
func NewStaticTokenProvider(token string, ledger TokenLedger) *StaticTokenProvider {
	return &StaticTokenProvider{token: strings.TrimSpace(token), ledger: ledger}
}

func (p *StaticTokenProvider) GetToken(ctx context.Context, _ TokenRequest) (string, error) {
	if p.token == "" {
		return "", nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = false
	if p.ledger != nil {
		p.ledger.SetToken(ctx, p.token)
	}
	return p.token, nil
}

// ExistingToken returns the token only while it is on record. A ledger
// holding a different token, left from an earlier configuration, does not
// count.
func (p *StaticTokenProvider) ExistingToken(context.Context, TokenRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == "" || p.deleted {
		return "", nil
	}
	if p.ledger != nil && p.ledger.Token() != p.token {
		return "", nil
	}
	return p.token, nil
}

func (p *StaticTokenProvider) DeleteToken(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = true
	if p.ledger != nil {
		p.ledger.SetToken(ctx, "")
	}
	return nil
}

var (
	_ PermissionRequester = (*TerminalPermission)(nil)
	_ WorkerRegistry      = ImmediateWorker{}
	_ TokenProvider       = (*StaticTokenProvider)(nil)
)
