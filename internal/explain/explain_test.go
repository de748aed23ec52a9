package explain

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"fakenews/internal/credential"
	"fakenews/internal/llm"
	"fakenews/internal/secrets"
)

type countingResolver struct {
	key   string
	ok    bool
	calls int32
}

func (r *countingResolver) Resolve() (string, bool) {
	atomic.AddInt32(&r.calls, 1)
	return r.key, r.ok
}

// fakeModel records prompts and answers with a fixed reply or error.
type fakeModel struct {
	mu      sync.Mutex
	prompts []string
	reply   llm.Reply
	err     error
}

func (m *fakeModel) Invoke(_ context.Context, prompt string) (llm.Reply, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	return m.reply, m.err
}

func serviceWith(resolver CredentialResolver, model llm.ChatModel, builds *int32) *Service {
	return NewService(resolver, func(apiKey, name string) llm.ChatModel {
		if builds != nil {
			atomic.AddInt32(builds, 1)
		}
		return model
	}, "")
}

func TestExplain_MissingCredential(t *testing.T) {
	resolver := &countingResolver{}
	svc := serviceWith(resolver, &fakeModel{}, nil)

	if got := svc.Explain(context.Background(), "x"); got != "API key missing — explanation unavailable." {
		t.Errorf("unexpected fallback: %q", got)
	}
	if svc.Model() != nil {
		t.Errorf("no handle should be built without a credential")
	}
}

func TestExplain_MissingCredentialFromRealResolver(t *testing.T) {
	t.Setenv(CredentialKey, "")
	os.Unsetenv(CredentialKey)
	store := secrets.NewFileStore(filepath.Join(t.TempDir(), "absent.toml"))
	var builds int32
	svc := serviceWith(credential.NewResolver(CredentialKey, store), &fakeModel{}, &builds)

	if got := svc.Explain(context.Background(), "x"); got != MissingCredentialMessage {
		t.Errorf("unexpected fallback: %q", got)
	}
	if builds != 0 {
		t.Errorf("factory should not run without a credential, ran %d times", builds)
	}
}

func TestModel_MissingCredentialIsRemembered(t *testing.T) {
	resolver := &countingResolver{}
	svc := serviceWith(resolver, &fakeModel{}, nil)

	svc.Model()
	resolver.key, resolver.ok = "late-key", true
	if svc.Model() != nil {
		t.Errorf("a credential added after the first call must not be picked up")
	}
	if resolver.calls != 1 {
		t.Errorf("resolver should run once, ran %d times", resolver.calls)
	}
}

func TestModel_Memoized(t *testing.T) {
	resolver := &countingResolver{key: "gsk", ok: true}
	var builds int32
	svc := NewService(resolver, func(apiKey, name string) llm.ChatModel {
		atomic.AddInt32(&builds, 1)
		return &fakeModel{}
	}, "")

	first := svc.Model()
	second := svc.Model()
	if first == nil || first != second {
		t.Fatalf("expected the identical handle on both calls")
	}
	if resolver.calls != 1 {
		t.Errorf("resolver should not run on the second call, ran %d times", resolver.calls)
	}
	if builds != 1 {
		t.Errorf("factory should run once, ran %d times", builds)
	}
}

func TestModel_ConcurrentFirstUseBuildsOnce(t *testing.T) {
	resolver := &countingResolver{key: "gsk", ok: true}
	var builds int32
	svc := NewService(resolver, func(apiKey, name string) llm.ChatModel {
		atomic.AddInt32(&builds, 1)
		return &fakeModel{reply: llm.MessageReply("ok")}
	}, "")

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Explain(context.Background(), "x")
		}()
	}
	wg.Wait()
	if builds != 1 || resolver.calls != 1 {
		t.Errorf("expected one build and one resolve, got builds=%d resolves=%d", builds, resolver.calls)
	}
}

func TestModel_FactoryGetsCredentialAndModel(t *testing.T) {
	var gotKey, gotModel string
	svc := NewService(&countingResolver{key: "gsk_abc", ok: true}, func(apiKey, name string) llm.ChatModel {
		gotKey, gotModel = apiKey, name
		return &fakeModel{}
	}, "")
	svc.Model()
	if gotKey != "gsk_abc" {
		t.Errorf("factory got credential %q", gotKey)
	}
	if gotModel != "meta-llama/llama-4-scout-17b-16e-instruct" {
		t.Errorf("factory got model %q", gotModel)
	}
	if svc.ModelName() != gotModel {
		t.Errorf("ModelName mismatch: %q", svc.ModelName())
	}
}

func TestExplain_ReturnsTrimmedReply(t *testing.T) {
	model := &fakeModel{reply: llm.MessageReply("\n  This is likely fabricated.  \n")}
	svc := serviceWith(&countingResolver{key: "gsk", ok: true}, model, nil)

	got := svc.Explain(context.Background(), "Cats can fly.")
	if got != "This is likely fabricated." {
		t.Errorf("expected trimmed reply, got %q", got)
	}
	if len(model.prompts) != 1 {
		t.Fatalf("expected one invocation, got %d", len(model.prompts))
	}
	prompt := model.prompts[0]
	head := "Explain in a few sentences why this might be fake news:\n\n"
	tail := "\n\nExplanation:"
	if !strings.Contains(prompt, head+"Cats can fly."+tail) {
		t.Errorf("text not placed between the template markers: %q", prompt)
	}
	if !strings.HasPrefix(prompt, "The following news article has been classified as FAKE.\n") {
		t.Errorf("unexpected prompt header: %q", prompt)
	}
}

func TestExplain_PlainReply(t *testing.T) {
	model := &fakeModel{reply: llm.RawReply("  plain answer \n")}
	svc := serviceWith(&countingResolver{key: "gsk", ok: true}, model, nil)

	if got := svc.Explain(context.Background(), "x"); got != "plain answer" {
		t.Errorf("expected plain reply decoded and trimmed, got %q", got)
	}
}

func TestExplain_InvocationFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("timeout")}
	svc := serviceWith(&countingResolver{key: "gsk", ok: true}, model, nil)

	got := svc.Explain(context.Background(), "any text")
	if !strings.Contains(got, "Error generating explanation:") || !strings.Contains(got, "timeout") {
		t.Errorf("unexpected error string: %q", got)
	}
	if got != "Error generating explanation: timeout" {
		t.Errorf("unexpected error format: %q", got)
	}
	if len(model.prompts) != 1 {
		t.Errorf("failures must not be retried, got %d invocations", len(model.prompts))
	}
}

func TestGenerate_TypedErrors(t *testing.T) {
	svc := serviceWith(&countingResolver{}, &fakeModel{}, nil)
	if _, err := svc.Generate(context.Background(), "x"); !errors.Is(err, ErrCredentialMissing) {
		t.Errorf("expected ErrCredentialMissing, got %v", err)
	}

	boom := errors.New("boom")
	svc = serviceWith(&countingResolver{key: "k", ok: true}, &fakeModel{err: boom}, nil)
	if _, err := svc.Generate(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("expected invocation error unchanged, got %v", err)
	}
}

func TestPrompt_Verbatim(t *testing.T) {
	text := "quotes \" and {braces} and %s verbs\nnewline"
	want := "The following news article has been classified as FAKE.\n" +
		"Explain in a few sentences why this might be fake news:\n\n" + text + "\n\nExplanation:"
	if got := Prompt(text); got != want {
		t.Errorf("prompt mismatch:\n got %q\nwant %q", got, want)
	}
}

// Groq end to end against a stub endpoint.
func TestGroqService_EndToEnd(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPrompt = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" This is likely fabricated. "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	svc := NewGroqService(&countingResolver{key: "gsk", ok: true}, "", llm.Options{BaseURL: srv.URL})
	got := svc.Explain(context.Background(), "Cats can fly.")
	if got != "This is likely fabricated." {
		t.Errorf("unexpected explanation %q", got)
	}
	if !strings.Contains(gotPrompt, "Cats can fly.") {
		t.Errorf("request did not carry the text: %s", gotPrompt)
	}
}

func TestGroqService_EndpointFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = w.Write([]byte(`{"error":{"message":"timeout","type":"server_error"}}`))
	}))
	defer srv.Close()

	svc := NewGroqService(&countingResolver{key: "gsk", ok: true}, "", llm.Options{BaseURL: srv.URL})
	got := svc.Explain(context.Background(), "any text")
	if !strings.HasPrefix(got, "Error generating explanation:") || !strings.Contains(got, "timeout") {
		t.Errorf("unexpected result %q", got)
	}
}
