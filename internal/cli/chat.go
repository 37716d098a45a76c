// Package cli implements the interactive terminal chat and the offline
// evaluation run behind the educhat command.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/capitalize-ai/educhat/internal/model"
	"github.com/capitalize-ai/educhat/internal/service"
)

// DefaultSession is used when the student enters no session id.
const DefaultSession = "default"

// Asker answers one turn of a session.
type Asker interface {
	Ask(ctx context.Context, sessionID, message string) (*model.ConversationState, error)
}

// IsExit reports whether line ends the chat.
func IsExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit", "salir":
		return true
	}
	return false
}

// RunChat reads a session id and then questions from in until an exit word
// or end of input. A failed turn is reported and the loop continues.
func RunChat(ctx context.Context, in io.Reader, out io.Writer, asker Asker) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprint(out, "Session id (e.g. andres): ")
	sessionID := DefaultSession
	if scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			sessionID = s
		}
	}

	fmt.Fprintln(out, "\nType your questions about the DATABASES course.")
	fmt.Fprintln(out, "Type 'exit' to quit.")

	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nBye!")
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if IsExit(line) {
			fmt.Fprintln(out, "Bye!")
			return nil
		}
		if line == "" {
			continue
		}

		state, err := asker.Ask(ctx, sessionID, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "\n[error] %v\n", err)
			continue
		}

		fmt.Fprintf(out, "\nEduChat:\n%s\n", service.Answer(state))
	}
}
