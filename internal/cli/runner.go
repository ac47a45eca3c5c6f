// Package cli implements the studyctl subcommands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"studybuddy/internal/cache"
	"studybuddy/internal/client"
	"studybuddy/internal/flashcard"
)

const (
	exitOK    = 0
	exitErr   = 1
	exitUsage = 2
)

type Runner struct {
	Cards     *cache.Cache
	Assistant Assistant
	Out       io.Writer
	Err       io.Writer
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func (r *Runner) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		r.PrintHelp()
		return exitUsage
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		r.PrintHelp()
		return exitOK

	case "ls":
		return r.list(ctx)

	case "add":
		if len(a) != 2 {
			return r.usage("studyctl add <question> <answer>")
		}
		return r.add(ctx, a[0], a[1])

	case "edit":
		if len(a) != 3 {
			return r.usage("studyctl edit <id> <question> <answer>")
		}
		return r.edit(ctx, a[0], a[1], a[2])

	case "rm":
		if len(a) != 1 {
			return r.usage("studyctl rm <id>")
		}
		return r.remove(ctx, a[0])

	case "review":
		if len(a) != 1 {
			return r.usage("studyctl review <id>")
		}
		return r.review(ctx, a[0])

	case "ask":
		return r.ask(ctx, a)

	case "summarize":
		if len(a) != 1 {
			return r.usage("studyctl summarize <file.pdf>")
		}
		return r.summarize(ctx, a[0])

	case "export":
		if len(a) > 1 {
			return r.usage("studyctl export [file]")
		}
		path := ""
		if len(a) == 1 {
			path = a[0]
		}
		return r.export(ctx, path)

	case "import":
		if len(a) != 1 {
			return r.usage("studyctl import <file>")
		}
		return r.importFile(ctx, a[0])
	}

	fail(r.Err, "unknown subcommand: "+cmd)
	fmt.Fprintln(r.Err)
	r.PrintHelp()
	return exitUsage
}

func (r *Runner) PrintHelp() {
	fmt.Fprint(r.Out, `studyctl - flashcards and a study assistant

Usage:
  studyctl [-server URL | -local FILE] <subcommand> [args]

Subcommands:
  ls                           List flashcards
  add <question> <answer>      Add a flashcard
  edit <id> <question> <answer>
                               Replace a flashcard's question and answer
  rm <id>                      Delete a flashcard
  review <id>                  Mark a flashcard as reviewed now
  ask [-save] <question...>    Ask the study assistant; -save keeps the answer as a card
  summarize <file.pdf>         Summarize a PDF in a few key points
  export [file]                Write all flashcards as JSON (stdout by default)
  import <file>                Replace all flashcards with an export file

Examples:
  studyctl add "What is the powerhouse of the cell?" "Mitochondria"
  studyctl ask -save "Explain osmosis in one sentence"
  studyctl -local cards.json export backup.json
`)
}

func (r *Runner) usage(line string) int {
	fail(r.Err, "usage: "+line)
	return exitUsage
}

// report prints err under an action-specific heading. Server errors already
// carry one.
func (r *Runner) report(action string, err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		fail(r.Err, apiErr.Message)
	} else {
		fail(r.Err, action+": "+err.Error())
	}
	return exitErr
}

func (r *Runner) list(ctx context.Context) int {
	if err := r.Cards.Load(ctx); err != nil {
		return r.report("failed to load flashcards", err)
	}
	cards := r.Cards.Cards()

	reviewed := 0
	for _, c := range cards {
		if c.LastReviewed != nil {
			reviewed++
		}
	}

	lines := []string{
		fmt.Sprintf("%s  %s %d", titleStyle.Render("Flashcards"), accentStyle.Render("Total"), len(cards)),
		mutedStyle.Render(reviewBar(reviewed, len(cards), 28)),
		"",
	}
	if len(cards) == 0 {
		lines = append(lines, mutedStyle.Render("No flashcards yet."))
	}
	for i, c := range cards {
		lines = append(lines,
			fmt.Sprintf("%2d. %s", i+1, titleStyle.Render(c.Question)),
			"    "+c.Answer,
			"    "+mutedStyle.Render(c.ID),
		)
	}
	lines = append(lines, "", mutedStyle.Render(`Tip: add with studyctl add "question" "answer"`))
	panel(r.Out, lines)
	return exitOK
}

func (r *Runner) add(ctx context.Context, q, a string) int {
	c, err := r.Cards.Add(ctx, q, a)
	if err != nil {
		return r.report("failed to add flashcard", err)
	}
	ok(r.Out, "added "+c.ID)
	return exitOK
}

func (r *Runner) edit(ctx context.Context, id, q, a string) int {
	c, err := r.Cards.Update(ctx, id, q, a)
	if err != nil {
		return r.report("failed to update flashcard", err)
	}
	ok(r.Out, "updated "+c.ID)
	return exitOK
}

func (r *Runner) remove(ctx context.Context, id string) int {
	if err := r.Cards.Delete(ctx, id); err != nil {
		return r.report("failed to delete flashcard", err)
	}
	ok(r.Out, "deleted "+id)
	return exitOK
}

func (r *Runner) review(ctx context.Context, id string) int {
	c, err := r.Cards.MarkReviewed(ctx, id)
	if err != nil {
		return r.report("failed to mark flashcard reviewed", err)
	}
	ok(r.Out, "reviewed "+c.ID)
	return exitOK
}

func (r *Runner) ask(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	save := fs.Bool("save", false, "save the answer as a flashcard")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		return r.usage("studyctl ask [-save] <question...>")
	}
	question := strings.Join(fs.Args(), " ")

	answer, err := r.Assistant.Ask(ctx, question)
	if err != nil {
		return r.report("failed to answer question", err)
	}
	panel(r.Out, []string{titleStyle.Render(question), "", answer})

	if *save {
		c, err := r.Cards.Add(ctx, question, answer)
		if err != nil {
			return r.report("failed to add flashcard", err)
		}
		ok(r.Out, "saved as "+c.ID)
	}
	return exitOK
}

func (r *Runner) summarize(ctx context.Context, path string) int {
	const action = "failed to summarize PDF"

	f, err := os.Open(path)
	if err != nil {
		return r.report(action, err)
	}
	defer f.Close()

	res, err := r.Assistant.Summarize(ctx, path, f)
	if err != nil {
		return r.report(action, err)
	}

	meta := fmt.Sprintf("%d characters", res.TextLength)
	if res.Pages > 0 {
		meta = fmt.Sprintf("%d pages, %s", res.Pages, meta)
	}
	if res.Truncated {
		meta += ", truncated"
	}
	panel(r.Out, []string{
		titleStyle.Render(res.Filename),
		mutedStyle.Render(meta),
		"",
		res.Summary,
	})
	return exitOK
}

func (r *Runner) export(ctx context.Context, path string) int {
	const action = "failed to export flashcards"

	doc, err := r.Cards.Export(ctx)
	if err != nil {
		return r.report(action, err)
	}
	if path == "" {
		if err := flashcard.EncodeExport(r.Out, doc); err != nil {
			return r.report(action, err)
		}
		return exitOK
	}

	f, err := os.Create(path)
	if err != nil {
		return r.report(action, err)
	}
	if err := flashcard.EncodeExport(f, doc); err != nil {
		f.Close()
		return r.report(action, err)
	}
	if err := f.Close(); err != nil {
		return r.report(action, err)
	}
	ok(r.Out, fmt.Sprintf("exported %d flashcards to %s", len(doc.Flashcards), path))
	return exitOK
}

func (r *Runner) importFile(ctx context.Context, path string) int {
	const action = "failed to import flashcards"

	f, err := os.Open(path)
	if err != nil {
		return r.report(action, err)
	}
	doc, err := flashcard.DecodeExport(f)
	f.Close()
	if err != nil {
		return r.report(action, err)
	}

	n, err := r.Cards.Import(ctx, doc)
	if err != nil {
		return r.report(action, err)
	}
	ok(r.Out, fmt.Sprintf("imported %d flashcards", n))
	return exitOK
}
