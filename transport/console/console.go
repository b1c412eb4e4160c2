package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-online/internal/usecase"
)

type gameSession interface {
	Enter(ctx context.Context, sessionID string) error
	SubmitName(ctx context.Context, name string) error
	MakeMove(ctx context.Context, cell int) error
	ResetSession(ctx context.Context) error
	StartNewSession(ctx context.Context) error
	Snapshot() usecase.Snapshot
	OnChange(fn func(usecase.Snapshot))
}

// Console is a line based front end for one session.
type Console struct {
	logger  *slog.Logger
	session gameSession

	in  io.Reader
	out io.Writer
	mu  sync.Mutex
}

func New(logger *slog.Logger, session gameSession, in io.Reader, out io.Writer) *Console {
	return &Console{
		logger:  logger.With("component", "console"),
		session: session,
		in:      in,
		out:     out,
	}
}

// Run enters the session and handles commands until quit, end of input or ctx is done.
func (that *Console) Run(ctx context.Context, sessionID string) error {
	log := that.logger.With("method", "Run")

	that.session.OnChange(that.draw)

	if err := that.session.Enter(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to enter session: %w", err)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(that.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	that.print(hintStyle.Render(helpText) + "\n")

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}

			quit, err := that.handle(ctx, strings.TrimSpace(line))
			if err != nil {
				log.Error("command failed", "command", line, "error", err)
				that.print(errorStyle.Render(err.Error()) + "\n")
			}
			if quit {
				return nil
			}
		}
	}
}

func (that *Console) handle(ctx context.Context, line string) (bool, error) {
	if line == "" {
		return false, nil
	}

	command, argument, _ := strings.Cut(line, " ")
	argument = strings.TrimSpace(argument)

	switch strings.ToLower(command) {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		that.print(helpText + "\n")
		return false, nil
	case "name":
		return false, that.session.SubmitName(ctx, argument)
	case "move":
		return false, that.move(ctx, argument)
	case "reset":
		return false, that.session.ResetSession(ctx)
	case "new":
		return false, that.session.StartNewSession(ctx)
	}

	if that.session.Snapshot().NameRequired {
		return false, that.session.SubmitName(ctx, line)
	}

	if _, err := strconv.Atoi(line); err == nil {
		return false, that.move(ctx, line)
	}

	that.print(helpText + "\n")

	return false, nil
}

func (that *Console) move(ctx context.Context, argument string) error {
	position, err := strconv.Atoi(argument)
	if err != nil || position < 1 || position > 9 {
		return fmt.Errorf("pick a cell between 1 and 9, got %q", argument)
	}

	return that.session.MakeMove(ctx, position-1)
}

func (that *Console) draw(snapshot usecase.Snapshot) {
	that.print(Render(snapshot))
}

func (that *Console) print(text string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	_, _ = io.WriteString(that.out, text)
}

// ParseSessionID accepts a bare session id or an invite link carrying it in gameId.
func ParseSessionID(input string) string {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "?") && !strings.Contains(input, "://") {
		return input
	}

	link, err := url.Parse(input)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(link.Query().Get("gameId"))
}
