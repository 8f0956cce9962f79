package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mediaBot/config"
)

// fakeGateway считает исходящие вызовы, чтобы проверять "ровно один исход"
type fakeGateway struct {
	mu         sync.Mutex
	texts      []string
	edits      []string
	videoFiles int
	audioFiles int
	videoByID  int
	audioByID  int
	sendErr    error
}

func (g *fakeGateway) SendText(chatID int64, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.texts = append(g.texts, text)
	return nil
}

func (g *fakeGateway) SendMenu(chatID int64, text string, buttons []MenuButton) (int, error) {
	return 1, nil
}

func (g *fakeGateway) EditMessage(chatID int64, messageID int, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edits = append(g.edits, text)
	return nil
}

func (g *fakeGateway) SendVideoFile(chatID int64, path, caption string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.videoFiles++
	if g.sendErr != nil {
		return "", g.sendErr
	}
	return "video-file-id", nil
}

func (g *fakeGateway) SendAudioFile(chatID int64, path, caption string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.audioFiles++
	if g.sendErr != nil {
		return "", g.sendErr
	}
	return "audio-file-id", nil
}

func (g *fakeGateway) SendVideoByID(chatID int64, fileID, caption string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.videoByID++
	return nil
}

func (g *fakeGateway) SendAudioByID(chatID int64, fileID, caption string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.audioByID++
	return nil
}

func (g *fakeGateway) AnswerCallback(callbackID string) error { return nil }

func (g *fakeGateway) lastEdit() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.edits) == 0 {
		return ""
	}
	return g.edits[len(g.edits)-1]
}

func (g *fakeGateway) editCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.edits)
}

// fakeExtractor пишет артефакт заданного размера; onFetch дергается
// перед записью, чтобы имитировать события во время загрузки
type fakeExtractor struct {
	mu         sync.Mutex
	listCalls  int
	fetchCalls int
	formats    []RawFormat
	listErr    error
	fetchErr   error
	fileSize   int64
	onFetch    func()
}

func (e *fakeExtractor) ListFormats(ctx context.Context, url string) ([]RawFormat, error) {
	e.mu.Lock()
	e.listCalls++
	e.mu.Unlock()
	return e.formats, e.listErr
}

func (e *fakeExtractor) Fetch(ctx context.Context, url string, spec FetchSpec) (string, error) {
	e.mu.Lock()
	e.fetchCalls++
	hook := e.onFetch
	e.mu.Unlock()

	if hook != nil {
		hook()
	}
	if e.fetchErr != nil {
		return "", e.fetchErr
	}

	name := "artifact.mp4"
	if spec.BestAudio {
		name = "artifact." + spec.AudioTarget
	}
	path := filepath.Join(spec.OutDir, name)
	if err := os.WriteFile(path, make([]byte, e.fileSize), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (e *fakeExtractor) fetches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fetchCalls
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DownloadDir:     t.TempDir(),
		MaxFileSize:     50 * 1024 * 1024,
		CleanupDelay:    time.Hour,
		MaxWorkers:      1,
		DownloadTimeout: time.Minute,
		ExtractTimeout:  time.Minute,
	}
}

type dispatchFixture struct {
	store     *PendingStore
	gateway   *fakeGateway
	extractor *fakeExtractor
	cleaner   *Cleaner
	disp      *Dispatcher
}

func newFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	f := &dispatchFixture{
		store:     NewPendingStore(),
		gateway:   &fakeGateway{},
		extractor: &fakeExtractor{fileSize: 1024},
		cleaner:   NewCleaner(time.Hour),
	}
	f.disp = NewDispatcher(testConfig(t), f.store, f.extractor, f.gateway, f.cleaner, nil)
	t.Cleanup(f.cleaner.Stop)
	return f
}

func (f *dispatchFixture) consumedJob(t *testing.T, action Action) job {
	t.Helper()
	token := f.store.Create("https://youtu.be/abcdefghijk", 42, nil)
	action.Token = token
	req, err := f.store.Consume(token)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	return job{req: req, action: action, messageID: 7, videoKey: "youtube:abcdefghijk"}
}

func TestProcessDeliversVideo(t *testing.T) {
	f := newFixture(t)
	j := f.consumedJob(t, Action{Kind: ActionDownload, FormatID: "137"})

	f.disp.process(0, j)

	if f.gateway.videoFiles != 1 {
		t.Errorf("expected 1 video send, got %d", f.gateway.videoFiles)
	}
	if f.gateway.editCount() != 1 {
		t.Errorf("expected exactly one outcome message, got %d: %v", f.gateway.editCount(), f.gateway.edits)
	}
	if !strings.Contains(f.gateway.lastEdit(), "Готово") {
		t.Errorf("expected success outcome, got %q", f.gateway.lastEdit())
	}
	if f.store.Contains(j.req.Token) {
		t.Error("token must be removed after delivery")
	}
	if got := f.cleaner.Outstanding(); got != 1 {
		t.Errorf("expected exactly one scheduled cleanup, got %d", got)
	}
}

func TestProcessDeliversAudio(t *testing.T) {
	f := newFixture(t)
	j := f.consumedJob(t, Action{Kind: ActionAudio, AudioFormat: "mp3"})

	f.disp.process(0, j)

	if f.gateway.audioFiles != 1 {
		t.Errorf("expected 1 audio send, got %d", f.gateway.audioFiles)
	}
	if f.gateway.videoFiles != 0 {
		t.Errorf("audio action must not send video, got %d", f.gateway.videoFiles)
	}
}

// Ошибка извлечения: ровно одно сообщение об исходе, очистка все равно
// запланирована, внутренний текст ошибки пользователю не уходит.
func TestProcessExtractorFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.fetchErr = errors.New("yt-dlp: ERROR: fragment 3 not found")
	j := f.consumedJob(t, Action{Kind: ActionDownload, FormatID: "137"})

	f.disp.process(0, j)

	if f.gateway.videoFiles != 0 || f.gateway.audioFiles != 0 {
		t.Error("failed job must not send media")
	}
	if f.gateway.editCount() != 1 {
		t.Errorf("expected exactly one outcome message, got %d", f.gateway.editCount())
	}
	if strings.Contains(f.gateway.lastEdit(), "fragment") {
		t.Errorf("internal error text leaked to the user: %q", f.gateway.lastEdit())
	}
	if got := f.cleaner.Outstanding(); got != 1 {
		t.Errorf("cleanup must be scheduled on failure too, got %d", got)
	}
	if f.store.Contains(j.req.Token) {
		t.Error("token must be removed after failure")
	}
}

// Файл ровно на байт больше потолка: доставки нет, в ответе размер и
// лимит, очистка запланирована.
func TestProcessOversizeFile(t *testing.T) {
	f := newFixture(t)
	f.disp.cfg.MaxFileSize = 1024
	f.extractor.fileSize = 1025
	j := f.consumedJob(t, Action{Kind: ActionDownload, FormatID: "137"})

	f.disp.process(0, j)

	if f.gateway.videoFiles != 0 {
		t.Errorf("oversize file must never be sent, got %d sends", f.gateway.videoFiles)
	}
	last := f.gateway.lastEdit()
	if !strings.Contains(last, "лимите") || !strings.Contains(last, "МБ") {
		t.Errorf("expected size and limit in outcome, got %q", last)
	}
	if got := f.cleaner.Outstanding(); got != 1 {
		t.Errorf("expected exactly one scheduled cleanup, got %d", got)
	}
}

// Отмена во время загрузки: файл скачан, но доставка не происходит.
func TestProcessCancelledMidFlight(t *testing.T) {
	f := newFixture(t)
	j := f.consumedJob(t, Action{Kind: ActionDownload, FormatID: "137"})
	f.extractor.onFetch = func() { f.store.Remove(j.req.Token) }

	f.disp.process(0, j)

	if f.gateway.videoFiles != 0 {
		t.Error("delivery must be skipped when the request is gone")
	}
	if got := f.cleaner.Outstanding(); got != 1 {
		t.Errorf("cleanup still required, got %d", got)
	}
}

// Паника в движке локализуется в задаче и завершается общим ответом.
func TestProcessRecoversFromPanic(t *testing.T) {
	f := newFixture(t)
	j := f.consumedJob(t, Action{Kind: ActionDownload, FormatID: "137"})
	f.extractor.onFetch = func() { panic("boom") }

	f.disp.process(0, j)

	if f.gateway.editCount() != 1 {
		t.Errorf("expected exactly one outcome message, got %d", f.gateway.editCount())
	}
	if f.store.Contains(j.req.Token) {
		t.Error("token must be removed after panic")
	}
	if got := f.cleaner.Outstanding(); got != 1 {
		t.Errorf("work dir was created, cleanup must be scheduled, got %d", got)
	}
}

// Отмена до постановки в очередь: движок не вызывается, директорий нет.
func TestDispatchCancel(t *testing.T) {
	f := newFixture(t)
	token := f.store.Create("url", 42, nil)
	req, _ := f.store.Get(token)

	err := f.disp.Dispatch(req, Action{Kind: ActionCancel, Token: token}, 7, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.extractor.fetches() != 0 {
		t.Errorf("cancel must not touch the extractor, got %d calls", f.extractor.fetches())
	}
	if got := f.cleaner.Outstanding(); got != 0 {
		t.Errorf("cancel must not schedule cleanup, got %d", got)
	}
	if f.store.Contains(token) {
		t.Error("token must be removed on cancel")
	}
	if !strings.Contains(f.gateway.lastEdit(), "Отменено") {
		t.Errorf("expected cancel outcome, got %q", f.gateway.lastEdit())
	}
}

// Переполненная очередь: задача отклоняется сразу, токен снова доступен.
func TestDispatchQueueFull(t *testing.T) {
	f := newFixture(t)

	// Забиваем буфер канала без запущенных воркеров
	for i := 0; i < cap(f.disp.jobs); i++ {
		f.disp.jobs <- job{}
	}

	token := f.store.Create("url", 42, nil)
	req, err := f.store.Consume(token)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	err = f.disp.Dispatch(req, Action{Kind: ActionDownload, Token: token, FormatID: "137"}, 7, "")
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	// Токен освобожден — нажатие можно повторить
	if _, err := f.store.Consume(token); err != nil {
		t.Errorf("expected token released after queue-full, got %v", err)
	}
}

// Попадание в кэш доставленных файлов: пересылка по file_id, без
// скачивания и без рабочей директории.
func TestProcessCacheHit(t *testing.T) {
	f := newFixture(t)

	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("cache init failed: %v", err)
	}
	defer cache.Close()
	f.disp.cache = cache

	j := f.consumedJob(t, Action{Kind: ActionDownload, FormatID: "137"})
	if err := cache.Store(j.videoKey, "137", "cached-id", MediaVideo, 2048); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	f.disp.process(0, j)

	if f.extractor.fetches() != 0 {
		t.Errorf("cache hit must skip the extractor, got %d calls", f.extractor.fetches())
	}
	if f.gateway.videoByID != 1 {
		t.Errorf("expected 1 re-send by file_id, got %d", f.gateway.videoByID)
	}
	if got := f.cleaner.Outstanding(); got != 0 {
		t.Errorf("cache hit touches no disk, no cleanup expected, got %d", got)
	}
	if f.store.Contains(j.req.Token) {
		t.Error("token must be removed after cached delivery")
	}
}

// Сквозной путь через воркеров: Start/Dispatch/Stop.
func TestDispatcherEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.disp.Start()

	j := f.consumedJob(t, Action{Kind: ActionDownload, FormatID: "137"})
	if err := f.disp.Dispatch(j.req, j.action, j.messageID, j.videoKey); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.gateway.editCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	f.disp.Stop()

	if f.gateway.videoFiles != 1 {
		t.Errorf("expected 1 delivery, got %d", f.gateway.videoFiles)
	}
}
