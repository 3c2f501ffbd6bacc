package pipeline

import (
	"context"
	"errors"
	"image"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/ocr-service/internal/common"
	"github.com/joseph-ayodele/ocr-service/internal/ocr"
	"github.com/joseph-ayodele/ocr-service/internal/tempfile"
)

// fakeRasterizer returns pages whose width identifies them (10, 20, ...).
type fakeRasterizer struct {
	pages      int
	err        error
	cleanupErr error
	calls      int
	cleanups   int
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _ string) ([]ocr.Page, func() error, error) {
	f.calls++
	cleanup := func() error { f.cleanups++; return f.cleanupErr }
	if f.err != nil {
		return nil, cleanup, f.err
	}
	pages := make([]ocr.Page, f.pages)
	for i := range pages {
		img := image.NewGray(image.Rect(0, 0, (i+1)*10, 8))
		for j := range img.Pix {
			img.Pix[j] = 255
		}
		pages[i] = ocr.Page{Index: i, Image: img}
	}
	return pages, cleanup, nil
}

type pageOutput struct {
	text string
	conf float64
	err  error
}

// fakeRecognizer answers by page width and records the order it was called in.
type fakeRecognizer struct {
	mu      sync.Mutex
	byWidth map[int]pageOutput
	seen    []int
	block   bool
}

func (f *fakeRecognizer) Recognize(ctx context.Context, img image.Image, _ string) (ocr.Recognition, error) {
	f.mu.Lock()
	w := img.Bounds().Dx()
	f.seen = append(f.seen, w)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return ocr.Recognition{}, ctx.Err()
	}
	out := f.byWidth[w]
	if out.err != nil {
		return ocr.Recognition{}, out.err
	}
	return ocr.Recognition{Text: out.text, Confidence: out.conf}, nil
}

func newDoc(t *testing.T, name string) (string, *tempfile.Store) {
	t.Helper()
	store := tempfile.NewStore(t.TempDir(), 0, nil)
	path := filepath.Join(store.Dir(), name)
	if err := os.WriteFile(path, []byte("doc"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path, store
}

func assertDeleted(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("%s should have been deleted", path)
	}
}

func TestSinglePageIdentity(t *testing.T) {
	path, store := newDoc(t, "scan.png")
	rec := &fakeRecognizer{byWidth: map[int]pageOutput{10: {text: "  HELLO\n", conf: 0.91}}}
	p := New(nil, &fakeRasterizer{pages: 1}, rec, store, Config{})

	res, err := p.ProcessDocument(context.Background(), path, "en")
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if res.Text != "HELLO" || res.Confidence != 0.91 || res.Pages != 1 || res.Language != "eng" {
		t.Fatalf("result = %+v", res)
	}
	assertDeleted(t, path)
}

func TestMultiPageOrderAndMean(t *testing.T) {
	path, store := newDoc(t, "doc.pdf")
	rz := &fakeRasterizer{pages: 3}
	rec := &fakeRecognizer{byWidth: map[int]pageOutput{
		10: {text: "one", conf: 0.9},
		20: {text: "two", conf: 0.6},
		30: {text: "three\n", conf: 0.3},
	}}
	p := New(nil, rz, rec, store, Config{MaxConcurrent: 1})

	res, err := p.ProcessDocument(context.Background(), path, "both")
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if res.Text != "one\ntwo\nthree" {
		t.Fatalf("text = %q", res.Text)
	}
	if math.Abs(res.Confidence-0.6) > 1e-9 || res.Pages != 3 || res.Language != "khm+eng" {
		t.Fatalf("result = %+v", res)
	}
	if len(rec.seen) != 3 || rec.seen[0] != 10 || rec.seen[1] != 20 || rec.seen[2] != 30 {
		t.Fatalf("pages recognized out of order: %v", rec.seen)
	}
	if rz.cleanups != 1 {
		t.Fatalf("rasterizer cleanup ran %d times", rz.cleanups)
	}
	assertDeleted(t, path)
}

func TestZeroPages(t *testing.T) {
	path, store := newDoc(t, "empty.pdf")
	p := New(nil, &fakeRasterizer{pages: 0}, &fakeRecognizer{}, store, Config{})
	res, err := p.ProcessDocument(context.Background(), path, "en")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "" || res.Confidence != 0 || res.Pages != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestFailureOnSecondPageAborts(t *testing.T) {
	path, store := newDoc(t, "doc.pdf")
	rz := &fakeRasterizer{pages: 3}
	rec := &fakeRecognizer{byWidth: map[int]pageOutput{
		10: {text: "one", conf: 0.9},
		20: {err: common.NewEngineError("tesseract failed", common.ErrRecognition)},
		30: {text: "three", conf: 0.3},
	}}
	p := New(nil, rz, rec, store, Config{})

	res, err := p.ProcessDocument(context.Background(), path, "en")
	if err == nil {
		t.Fatal("expected an error")
	}
	if res != (DocumentResult{}) {
		t.Fatalf("partial result returned: %+v", res)
	}
	if got := common.HTTPStatus(common.KindOf(err)); got != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", got)
	}
	if len(rec.seen) != 2 {
		t.Fatalf("recognizer called %d times, want 2", len(rec.seen))
	}
	if rz.cleanups != 1 {
		t.Fatal("rasterizer cleanup did not run")
	}
	assertDeleted(t, path)
}

func TestUnsupportedTypeSkipsEngine(t *testing.T) {
	path, store := newDoc(t, "notes.txt")
	rz := &fakeRasterizer{pages: 1}
	rec := &fakeRecognizer{}
	p := New(nil, rz, rec, store, Config{})

	_, err := p.ProcessDocument(context.Background(), path, "en")
	if !common.IsValidation(err) || !errors.Is(err, common.ErrUnsupportedDocumentType) {
		t.Fatalf("error = %v, want unsupported type", err)
	}
	if rz.calls != 0 || len(rec.seen) != 0 {
		t.Fatalf("engine work done for unsupported type: rasterize=%d recognize=%d", rz.calls, len(rec.seen))
	}
	assertDeleted(t, path)
}

func TestRasterizeValidationErrorKeepsKind(t *testing.T) {
	path, store := newDoc(t, "bad.pdf")
	rz := &fakeRasterizer{err: common.NewValidationError("The uploaded PDF could not be read.", common.ErrCorruptDocument)}
	p := New(nil, rz, &fakeRecognizer{}, store, Config{})

	_, err := p.ProcessDocument(context.Background(), path, "en")
	if !common.IsValidation(err) {
		t.Fatalf("error = %v, want validation", err)
	}
	if common.PublicMessage(err) != "The uploaded PDF could not be read." {
		t.Fatalf("message = %q", common.PublicMessage(err))
	}
	if rz.cleanups != 1 {
		t.Fatal("cleanup must run on rasterize failure")
	}
	assertDeleted(t, path)
}

func TestRequestTimeout(t *testing.T) {
	path, store := newDoc(t, "slow.png")
	p := New(nil, &fakeRasterizer{pages: 2}, &fakeRecognizer{block: true}, store, Config{RequestTimeout: 20 * time.Millisecond})

	_, err := p.ProcessDocument(context.Background(), path, "kh")
	if common.KindOf(err) != common.KindTimeout {
		t.Fatalf("error = %v, want timeout", err)
	}
	if common.HTTPStatus(common.KindOf(err)) != http.StatusGatewayTimeout {
		t.Fatal("timeout should map to 504")
	}
	assertDeleted(t, path)
}

func TestPreprocessFailureIsInternal(t *testing.T) {
	path, store := newDoc(t, "scan.jpg")
	p := New(nil, &fakeRasterizer{pages: 1}, &fakeRecognizer{}, store, Config{})
	p.preprocess = func(image.Image) (*image.Gray, error) { return nil, common.ErrProcessing }

	_, err := p.ProcessDocument(context.Background(), path, "en")
	if common.KindOf(err) != common.KindInternal || !errors.Is(err, common.ErrProcessing) {
		t.Fatalf("error = %v, want internal processing error", err)
	}
}

// sequenceEngine returns its outputs in call order.
type sequenceEngine struct {
	texts []string
	calls int
}

func (*sequenceEngine) Name() string { return "sequence" }

func (e *sequenceEngine) Recognize(_ context.Context, _ []byte, _ string) (ocr.EngineOutput, error) {
	text := e.texts[e.calls]
	e.calls++
	return ocr.EngineOutput{Text: text, TokenConfidences: []float64{90}}, nil
}

func TestPageTerminatorsAreTrimmed(t *testing.T) {
	path, store := newDoc(t, "doc.pdf")
	eng := &sequenceEngine{texts: []string{"PAGE ONE\n\f", "PAGE TWO\n\f", "PAGE THREE\n\f"}}
	p := New(nil, &fakeRasterizer{pages: 3}, ocr.NewRecognizer(eng, nil), store, Config{})

	res, err := p.ProcessDocument(context.Background(), path, "en")
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if res.Text != "PAGE ONE\nPAGE TWO\nPAGE THREE" {
		t.Fatalf("text = %q", res.Text)
	}
	if eng.calls != 3 {
		t.Fatalf("engine called %d times, want 3", eng.calls)
	}
}

type failingDeleter struct{ calls int }

func (d *failingDeleter) Delete(string) error {
	d.calls++
	return errors.New("permission denied")
}

func TestCleanupFailuresAreOnlyLogged(t *testing.T) {
	tests := []struct {
		name     string
		outputs  map[int]pageOutput
		wantText string
		wantErr  error
	}{
		{
			name: "success",
			outputs: map[int]pageOutput{
				10: {text: "one", conf: 0.8},
				20: {text: "two", conf: 0.6},
			},
			wantText: "one\ntwo",
		},
		{
			name: "recognition failure on page 2",
			outputs: map[int]pageOutput{
				10: {text: "one", conf: 0.8},
				20: {err: common.NewEngineError("tesseract failed", common.ErrRecognition)},
			},
			wantErr: common.ErrRecognition,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rz := &fakeRasterizer{pages: 2, cleanupErr: errors.New("scratch dir busy")}
			files := &failingDeleter{}
			p := New(nil, rz, &fakeRecognizer{byWidth: tt.outputs}, files, Config{})

			res, err := p.ProcessDocument(context.Background(), "/uploads/doc.pdf", "en")
			if rz.cleanups != 1 || files.calls != 1 {
				t.Fatalf("cleanups = %d, deletes = %d, want 1 each", rz.cleanups, files.calls)
			}
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ProcessDocument() error = %v, want nil", err)
				}
				if res.Text != tt.wantText || math.Abs(res.Confidence-0.7) > 1e-9 || res.Pages != 2 {
					t.Fatalf("result = %+v", res)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got := common.HTTPStatus(common.KindOf(err)); got != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", got)
			}
		})
	}
}
