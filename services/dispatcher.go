package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"mediaBot/config"
	"mediaBot/utils"

	"github.com/google/uuid"
)

// ErrQueueFull — очередь загрузок переполнена, задача не принята
var ErrQueueFull = errors.New("очередь загрузок переполнена")

// job — одна принятая в работу загрузка
type job struct {
	req       PendingRequest
	action    Action
	messageID int    // сообщение с меню, редактируется по ходу
	videoKey  string // ключ для кэша доставленных файлов
}

// Dispatcher выполняет загрузки на ограниченном пуле воркеров.
// Ошибки одной задачи полностью локализованы в ней: они не трогают
// другие запросы и не роняют процесс.
type Dispatcher struct {
	jobs    chan job
	workers int

	store     *PendingStore
	extractor Extractor
	gateway   Gateway
	cleaner   *Cleaner
	cache     *FileCache // nil = кэш отключен
	cfg       *config.Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher собирает диспетчер из коллабораторов
func NewDispatcher(cfg *config.Config, store *PendingStore, extractor Extractor, gateway Gateway, cleaner *Cleaner, cache *FileCache) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		jobs:      make(chan job, 100),
		workers:   cfg.MaxWorkers,
		store:     store,
		extractor: extractor,
		gateway:   gateway,
		cleaner:   cleaner,
		cache:     cache,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start запускает воркеры
func (d *Dispatcher) Start() {
	log.Printf("🚀 Запуск диспетчера с %d воркерами", d.workers)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop останавливает воркеры и дожидается текущих задач
func (d *Dispatcher) Stop() {
	log.Printf("🛑 Остановка диспетчера...")
	d.cancel()
	d.wg.Wait()
	log.Printf("✅ Диспетчер остановлен")
}

// Dispatch принимает действие по уже потребленному токену.
//
// Отмена выполняется синхронно: запрос удаляется, сообщение переводится
// в терминальное состояние, рабочая директория не создается вовсе.
// Загрузка ставится в очередь без блокировки; при переполнении токен
// освобождается и возвращается ErrQueueFull.
func (d *Dispatcher) Dispatch(req PendingRequest, action Action, messageID int, videoKey string) error {
	if action.Kind == ActionCancel {
		d.store.Remove(req.Token)
		if err := d.gateway.EditMessage(req.ChatID, messageID, "❌ Отменено."); err != nil {
			log.Printf("⚠️ Не удалось отредактировать сообщение: %v", err)
		}
		return nil
	}

	select {
	case d.jobs <- job{req: req, action: action, messageID: messageID, videoKey: videoKey}:
		return nil
	default:
		d.store.release(req.Token)
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker(workerID int) {
	defer d.wg.Done()

	log.Printf("👷 Воркер %d запущен", workerID)

	for {
		select {
		case j := <-d.jobs:
			d.process(workerID, j)
		case <-d.ctx.Done():
			log.Printf("👷 Воркер %d остановлен", workerID)
			return
		}
	}
}

// process доводит задачу ровно до одного исхода: доставка, отказ по
// размеру или сообщение об ошибке — и ровно одной очистки, если на
// диске что-то появилось.
func (d *Dispatcher) process(workerID int, j job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("💥 Паника в задаче %s: %v", j.req.Token, r)
			d.store.Remove(j.req.Token)
			d.reply(j, "⚠️ Что-то пошло не так. Инцидент записан.")
		}
	}()

	log.Printf("🔄 Воркер %d обрабатывает токен %s: %s", workerID, j.req.Token, j.req.URL)

	selector := j.action.FormatID
	if j.action.Kind == ActionAudio {
		selector = AudioSelector(j.action.AudioFormat)
	}

	// Кэш доставленных файлов: пересылаем по file_id без скачивания
	if d.cache != nil && d.sendFromCache(j, selector) {
		return
	}

	workDir := filepath.Join(d.cfg.DownloadDir, "job_"+uuid.New().String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		log.Printf("❌ Токен %s: не удалось создать рабочую директорию: %v", j.req.Token, err)
		d.store.Remove(j.req.Token)
		d.reply(j, "⚠️ Что-то пошло не так. Попробуйте позже.")
		return
	}

	// С этого момента — ровно одна очистка, каким бы ни был исход
	defer d.cleaner.Schedule(workDir)
	defer d.store.Remove(j.req.Token)

	ctx, cancel := context.WithTimeout(d.ctx, d.cfg.DownloadTimeout)
	defer cancel()

	spec := FetchSpec{OutDir: workDir}
	if j.action.Kind == ActionAudio {
		spec.BestAudio = true
		spec.AudioTarget = j.action.AudioFormat
	} else {
		spec.FormatID = j.action.FormatID
	}

	path, err := d.extractor.Fetch(ctx, j.req.URL, spec)
	if err != nil {
		// Детали — только в лог; пользователю общий текст
		log.Printf("❌ Токен %s (%s, действие %s): ошибка загрузки: %v",
			j.req.Token, j.req.URL, j.action.Kind, err)
		d.reply(j, "❌ Не удалось скачать медиа. Попробуйте другую ссылку.")
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		log.Printf("❌ Токен %s: артефакт пропал: %v", j.req.Token, err)
		d.reply(j, "❌ Не удалось скачать медиа. Попробуйте другую ссылку.")
		return
	}

	if info.Size() > d.cfg.MaxFileSize {
		log.Printf("📏 Токен %s: файл %s превышает лимит", j.req.Token, utils.FormatSizeMiB(info.Size()))
		d.reply(j, fmt.Sprintf("📏 Файл занимает %s при лимите %s. Выберите качество пониже.",
			utils.FormatSizeMiB(info.Size()), utils.FormatSizeMiB(d.cfg.MaxFileSize)))
		return
	}

	// Запрос могли отменить, пока шла загрузка — тогда не доставляем
	if !d.store.Contains(j.req.Token) {
		log.Printf("🚫 Токен %s удален во время загрузки, доставка отменена", j.req.Token)
		return
	}

	caption := fmt.Sprintf("Размер: %s", utils.FormatSizeMiB(info.Size()))
	var fileID string
	var kind MediaKind
	if j.action.Kind == ActionAudio {
		kind = MediaAudio
		fileID, err = d.gateway.SendAudioFile(j.req.ChatID, path, caption)
	} else {
		kind = MediaVideo
		fileID, err = d.gateway.SendVideoFile(j.req.ChatID, path, caption)
	}
	if err != nil {
		log.Printf("❌ Токен %s: ошибка отправки файла: %v", j.req.Token, err)
		d.reply(j, "⚠️ Не удалось отправить файл. Попробуйте позже.")
		return
	}

	if d.cache != nil && fileID != "" {
		if err := d.cache.Store(j.videoKey, selector, fileID, kind, info.Size()); err != nil {
			log.Printf("⚠️ Токен %s: %v", j.req.Token, err)
		}
	}

	d.reply(j, "✅ Готово!")
	log.Printf("✅ Токен %s: доставлено (%s)", j.req.Token, utils.FormatSizeMiB(info.Size()))
}

// sendFromCache пытается доставить из кэша; true = исход уже состоялся
func (d *Dispatcher) sendFromCache(j job, selector string) bool {
	entry, ok := d.cache.Lookup(j.videoKey, selector)
	if !ok {
		return false
	}

	if !d.store.Contains(j.req.Token) {
		log.Printf("🚫 Токен %s удален, отправка из кэша отменена", j.req.Token)
		return true
	}

	caption := fmt.Sprintf("Размер: %s", utils.FormatSizeMiB(entry.FileSize))
	var err error
	if entry.Kind == MediaAudio {
		err = d.gateway.SendAudioByID(j.req.ChatID, entry.FileID, caption)
	} else {
		err = d.gateway.SendVideoByID(j.req.ChatID, entry.FileID, caption)
	}
	if err != nil {
		// file_id мог протухнуть — идем обычным путем загрузки
		log.Printf("⚠️ Токен %s: отправка из кэша не удалась: %v", j.req.Token, err)
		return false
	}

	d.cache.MarkSent(j.videoKey, selector)
	d.store.Remove(j.req.Token)
	d.reply(j, "✅ Готово (из кэша)!")
	log.Printf("⚡ Токен %s: доставлено из кэша без скачивания", j.req.Token)
	return true
}

// reply переводит сообщение с меню в терминальный текст
func (d *Dispatcher) reply(j job, text string) {
	if err := d.gateway.EditMessage(j.req.ChatID, j.messageID, text); err != nil {
		log.Printf("⚠️ Не удалось отредактировать сообщение: %v", err)
	}
}
