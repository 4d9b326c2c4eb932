package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/anmitsu/go-shlex"
	"github.com/spf13/cobra"

	"github.com/kevinchung58/Paper2Poster/internal/domain/dispatch"
	"github.com/kevinchung58/Paper2Poster/internal/domain/editor"
	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/kevinchung58/Paper2Poster/internal/domain/session"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/server"
)

const replHelp = `Commands:
  /new [topic]                      create a poster
  /target <ref>|none                element prompts apply to
  /theme <key>                      switch theme
  /themes                           list themes
  /style <target> <prop> <value>    buffer a style edit (slide_background <color>)
  /flush                            push buffered style edits now
  /edit <ref> [text]                replace an element's text; without text, the next line is the new text
  /cancel                           abandon an /edit
  /images <section> <url>...        set a section's image URLs
  /upload <section> <path>          upload an image into a section
  /export                           build the slide deck
  /show                             print the current poster
  /quit                             leave
Anything else is sent as a prompt.`

var errQuit = errors.New("quit")

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Edit a poster from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if level, _ := cmd.Flags().GetString("log-level"); level == "" {
				cfg.Logging.Level = "warn"
			}
			logger, err := server.NewLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer logger.Sync()

			studio, err := server.NewStudio(cfg, logger)
			if err != nil {
				return err
			}
			r := newREPL(studio, cmd.OutOrStdout())
			defer r.close()
			return r.run(cmd.Context(), cmd.InOrStdin())
		},
	}
}

// repl drives a Studio from text commands. Chat messages are printed as
// the session records them.
type repl struct {
	studio *server.Studio
	text   *editor.TextEdit

	mu          sync.Mutex
	out         io.Writer
	unsubscribe func()
}

func newREPL(studio *server.Studio, out io.Writer) *repl {
	r := &repl{
		studio: studio,
		text:   editor.NewTextEdit(studio.Dispatcher),
		out:    out,
	}
	r.unsubscribe = studio.Store.Subscribe(r.observe)
	return r
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// observe prints what a transition added to the chat log.
func (r *repl) observe(prev, next session.State) {
	seen := make(map[string]bool, len(prev.ChatLog))
	for _, m := range prev.ChatLog {
		seen[m.ID] = true
	}
	for _, m := range next.ChatLog {
		if !seen[m.ID] {
			r.printf("[%s] %s\n", m.Sender, m.Text)
		}
	}
	if next.HasPoster() && prev.PreviewStatus() != next.PreviewStatus() {
		r.printf("[preview] %s\n", next.PreviewStatus())
	}
}

func (r *repl) close() {
	r.unsubscribe()
	if err := r.studio.Close(context.Background()); err != nil {
		r.printf("error: %v\n", err)
	}
}

// run reads lines from in until /quit, end of input or ctx is cancelled.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	r.printf("Poster studio %s. Type /help for commands.\n", version)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := r.handle(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				r.printf("error: %v\n", err)
			}
		}
	}
}

// handle runs one input line. Failures of poster operations are already in
// the chat log, so only local errors are returned.
func (r *repl) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		if _, editing := r.text.Editing(); editing {
			_, err := r.text.Commit(ctx, line)
			return quiet(err)
		}
		_, err := r.studio.Dispatcher.SendPrompt(ctx, line, "")
		return quiet(err)
	}

	args, err := shlex.Split(line, true)
	if err != nil {
		return fmt.Errorf("cannot parse command: %w", err)
	}
	d := r.studio.Dispatcher
	cmd, args := args[0], args[1:]

	switch cmd {
	case "/help":
		r.printf("%s\n", replHelp)
		return nil
	case "/quit", "/exit":
		return errQuit

	case "/new":
		_, err := d.CreatePoster(ctx, strings.Join(args, " "))
		return quiet(err)

	case "/target":
		if len(args) != 1 {
			return errors.New("usage: /target <ref>|none")
		}
		ref := args[0]
		if ref == "none" {
			ref = ""
		}
		_, err := d.SelectTarget(ctx, ref)
		return err

	case "/theme":
		if len(args) != 1 {
			return errors.New("usage: /theme <key>")
		}
		_, err := d.SetTheme(ctx, args[0])
		return quiet(err)

	case "/themes":
		for _, t := range r.studio.Themes.List() {
			r.printf("  %-20s %s\n", t.Key, t.Name)
		}
		return nil

	case "/style":
		if len(args) == 2 && args[0] == poster.BackgroundTarget {
			return r.studio.Styles.SetBackground(args[1])
		}
		if len(args) != 3 {
			return errors.New("usage: /style <target> <prop> <value>")
		}
		target, err := poster.ParseStyleTarget(args[0])
		if err != nil {
			return err
		}
		prop, err := poster.ParseStyleProperty(args[1])
		if err != nil {
			return err
		}
		return r.studio.Styles.Set(target, prop, args[2])

	case "/flush":
		return quiet(r.studio.Styles.Flush(ctx))

	case "/edit":
		if len(args) == 0 {
			return errors.New("usage: /edit <ref> [text]")
		}
		s := r.studio.Store.Snapshot()
		if len(args) == 1 {
			current, ok := s.Content.Value(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", dispatch.ErrSectionNotFound, args[0])
			}
			r.text.Begin(args[0], current)
			r.printf("Editing %s. Current text:\n%s\n", args[0], current)
			return nil
		}
		changed, err := editor.CommitElement(ctx, d, s, args[0], strings.Join(args[1:], " "))
		if err == nil && !changed {
			r.printf("unchanged\n")
		}
		return quiet(err)

	case "/cancel":
		r.text.Cancel()
		return nil

	case "/images":
		if len(args) < 1 {
			return errors.New("usage: /images <section> <url>...")
		}
		_, err := d.SetSectionImageURLs(ctx, args[0], args[1:])
		return quiet(err)

	case "/upload":
		if len(args) != 2 {
			return errors.New("usage: /upload <section> <path>")
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		_, err = d.UploadSectionImage(ctx, args[0], filepath.Base(args[1]), data)
		return quiet(err)

	case "/export":
		_, err := d.RequestExport(ctx)
		return quiet(err)

	case "/show":
		r.show(r.studio.Store.Snapshot())
		return nil
	}
	return fmt.Errorf("unknown command %s, try /help", cmd)
}

// quiet drops errors the session already reported in the chat log.
func quiet(err error) error {
	if errors.Is(err, session.ErrStopped) {
		return err
	}
	return nil
}

func (r *repl) show(s session.State) {
	if !s.HasPoster() {
		r.printf("No poster loaded. Use /new [topic].\n")
		return
	}
	doc := s.Content
	var b strings.Builder
	fmt.Fprintf(&b, "%s  (%s)\n", doc.Title, s.PosterID)
	fmt.Fprintf(&b, "  theme: %s  preview: %s\n", doc.SelectedTheme, s.PreviewStatus())
	if s.PreviewRef != "" {
		fmt.Fprintf(&b, "  preview url: %s\n", r.studio.Renderer.Render(s).PreviewURL)
	}
	if s.ActiveTarget != "" {
		fmt.Fprintf(&b, "  target: %s\n", s.ActiveTarget)
	}
	if doc.Abstract != nil {
		fmt.Fprintf(&b, "  abstract: %s\n", *doc.Abstract)
	}
	for _, sec := range doc.Sections {
		fmt.Fprintf(&b, "  [%s] %s\n", sec.SectionID, sec.Title)
		if sec.Content != "" {
			fmt.Fprintf(&b, "      %s\n", sec.Content)
		}
		for _, u := range sec.ImageURLs {
			fmt.Fprintf(&b, "      image: %s\n", u)
		}
	}
	if doc.Conclusion != nil {
		fmt.Fprintf(&b, "  conclusion: %s\n", *doc.Conclusion)
	}
	if s.Pending {
		b.WriteString("  (request in progress)\n")
	}
	r.printf("%s", b.String())
}
