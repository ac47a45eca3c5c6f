package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"studybuddy/internal/apperr"
	"studybuddy/internal/cache"
	"studybuddy/internal/client"
	"studybuddy/internal/config"
	"studybuddy/internal/flashcard"
	httpx "studybuddy/internal/http"
	"studybuddy/internal/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAssistant struct {
	answer  string
	summary ingest.Result
	err     error
	asked   []string
}

func (f *fakeAssistant) Ask(_ context.Context, q string) (string, error) {
	f.asked = append(f.asked, q)
	return f.answer, f.err
}

func (f *fakeAssistant) Summarize(_ context.Context, filename string, r io.Reader) (ingest.Result, error) {
	if _, err := io.ReadAll(r); err != nil {
		return ingest.Result{}, err
	}
	res := f.summary
	res.Filename = filename
	return res, f.err
}

type harness struct {
	runner *Runner
	out    *bytes.Buffer
	errOut *bytes.Buffer
	asst   *fakeAssistant
}

func newLocal(t *testing.T, path string) *harness {
	t.Helper()
	c, err := cache.NewLocal(path)
	require.NoError(t, err)
	h := &harness{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}, asst: &fakeAssistant{answer: "Water moves toward higher solute concentration."}}
	h.runner = &Runner{Cards: c, Assistant: h.asst, Out: h.out, Err: h.errOut}
	return h
}

func (h *harness) run(args ...string) int {
	h.out.Reset()
	h.errOut.Reset()
	return h.runner.Run(context.Background(), args)
}

func TestHelpAndUsage(t *testing.T) {
	h := newLocal(t, filepath.Join(t.TempDir(), "cards.json"))

	assert.Equal(t, 0, h.run("help"))
	assert.Contains(t, h.out.String(), "Subcommands:")

	assert.Equal(t, 2, h.run())
	assert.Equal(t, 2, h.run("frobnicate"))
	assert.Contains(t, h.errOut.String(), "unknown subcommand: frobnicate")

	assert.Equal(t, 2, h.run("add", "only question"))
	assert.Equal(t, 2, h.run("rm"))
	assert.Equal(t, 2, h.run("ask"))
	assert.Equal(t, 2, h.run("export", "a", "b"))
}

func TestAddListEditRemove(t *testing.T) {
	h := newLocal(t, filepath.Join(t.TempDir(), "cards.json"))

	require.Equal(t, 0, h.run("add", "Capital of Japan?", "Tokyo"))
	assert.Contains(t, h.out.String(), "added ")

	require.Equal(t, 0, h.run("ls"))
	assert.Contains(t, h.out.String(), "Capital of Japan?")
	assert.Contains(t, h.out.String(), "Tokyo")

	id := h.runner.Cards.Cards()[0].ID
	require.Equal(t, 0, h.run("edit", id, "Capital of Japan?", "Tokyo (since 1868)"))
	c, ok := h.runner.Cards.Find(id)
	require.True(t, ok)
	assert.Equal(t, "Tokyo (since 1868)", c.Answer)

	require.Equal(t, 0, h.run("review", id))
	c, _ = h.runner.Cards.Find(id)
	assert.NotNil(t, c.LastReviewed)

	require.Equal(t, 0, h.run("rm", id))
	assert.Empty(t, h.runner.Cards.Cards())
}

func TestErrorsNameTheAction(t *testing.T) {
	h := newLocal(t, filepath.Join(t.TempDir(), "cards.json"))

	assert.Equal(t, 1, h.run("add", "  ", "A"))
	assert.Contains(t, h.errOut.String(), "failed to add flashcard")

	assert.Equal(t, 1, h.run("edit", "missing", "Q", "A"))
	assert.Contains(t, h.errOut.String(), "failed to update flashcard")

	assert.Equal(t, 1, h.run("rm", "missing"))
	assert.Contains(t, h.errOut.String(), "failed to delete flashcard")

	h.asst.err = apperr.ErrProviderUnavailable
	assert.Equal(t, 1, h.run("ask", "why?"))
	assert.Contains(t, h.errOut.String(), "failed to answer question")

	assert.Equal(t, 1, h.run("summarize", filepath.Join(t.TempDir(), "nope.pdf")))
	assert.Contains(t, h.errOut.String(), "failed to summarize PDF")
}

func TestAskSave(t *testing.T) {
	h := newLocal(t, filepath.Join(t.TempDir(), "cards.json"))

	require.Equal(t, 0, h.run("ask", "-save", "What", "is", "osmosis?"))
	assert.Equal(t, []string{"What is osmosis?"}, h.asst.asked)
	assert.Contains(t, h.out.String(), "Water moves toward higher solute concentration.")
	assert.Contains(t, h.out.String(), "saved as ")

	cards := h.runner.Cards.Cards()
	require.Len(t, cards, 1)
	assert.Equal(t, "What is osmosis?", cards[0].Question)
	assert.Equal(t, "Water moves toward higher solute concentration.", cards[0].Answer)

	require.Equal(t, 0, h.run("ask", "Another question"))
	assert.Len(t, h.runner.Cards.Cards(), 1)
}

func TestSummarize(t *testing.T) {
	h := newLocal(t, filepath.Join(t.TempDir(), "cards.json"))
	h.asst.summary = ingest.Result{Summary: "- point one\n- point two", Pages: 3, TextLength: 1200}

	pdf := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4 stub"), 0o644))

	require.Equal(t, 0, h.run("summarize", pdf))
	assert.Contains(t, h.out.String(), "- point one")
	assert.Contains(t, h.out.String(), "3 pages")
}

func TestExportImportFiles(t *testing.T) {
	dir := t.TempDir()
	src := newLocal(t, filepath.Join(dir, "a.json"))
	require.Equal(t, 0, src.run("add", "Q1", "A1"))
	require.Equal(t, 0, src.run("add", "Q2", "A2"))

	backup := filepath.Join(dir, "backup.json")
	require.Equal(t, 0, src.run("export", backup))

	require.Equal(t, 0, src.run("export"))
	doc, err := flashcard.DecodeExport(src.out)
	require.NoError(t, err)
	assert.Len(t, doc.Flashcards, 2)

	dst := newLocal(t, filepath.Join(dir, "b.json"))
	require.Equal(t, 0, dst.run("import", backup))
	assert.Contains(t, dst.out.String(), "imported 2 flashcards")
	assert.Equal(t, src.runner.Cards.Cards(), dst.runner.Cards.Cards())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	assert.Equal(t, 1, dst.run("import", bad))
	assert.Contains(t, dst.errOut.String(), "failed to import flashcards")
}

type echoAI struct{}

func (echoAI) Ask(_ context.Context, q string) (string, error) { return "answer to " + q, nil }
func (echoAI) Model() string                                   { return "echo" }
func (echoAI) Configured() bool                                { return true }

func TestRemoteMode(t *testing.T) {
	cfg := config.Config{StoreDriver: "memory", MaxUploadBytes: 1 << 20}
	svc := flashcard.NewService(flashcard.NewMemoryStore())
	srv := httptest.NewServer(httpx.NewRouter(cfg, zap.NewNop(), svc, echoAI{}, &ingest.Pipeline{MaxBytes: cfg.MaxUploadBytes}))
	defer srv.Close()

	cl := client.New(srv.URL)
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	r := &Runner{Cards: cache.New(cl), Assistant: RemoteAssistant{Client: cl}, Out: out, Err: errOut}
	ctx := context.Background()

	require.Equal(t, 0, r.Run(ctx, []string{"ask", "-save", "2+2?"}))
	cards, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "answer to 2+2?", cards[0].Answer)

	assert.Equal(t, 1, r.Run(ctx, []string{"rm", "missing"}))
	assert.Contains(t, errOut.String(), "failed to delete flashcard: not found")
}

func TestLocalAssistantRejectsOversize(t *testing.T) {
	a := LocalAssistant{Pipeline: &ingest.Pipeline{MaxBytes: 16}}
	_, err := a.Summarize(context.Background(), "big.pdf", bytes.NewReader(bytes.Repeat([]byte("x"), 64)))
	assert.True(t, errors.Is(err, apperr.ErrPayloadTooLarge))
}
