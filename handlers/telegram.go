package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"mediaBot/config"
	"mediaBot/services"
	"mediaBot/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler связывает входящие события Telegram с жизненным циклом
// запроса: текст с URL превращается в меню и ожидающий запрос, нажатие
// кнопки — в действие для диспетчера.
type TelegramHandler struct {
	gateway    services.Gateway
	store      *services.PendingStore
	dispatcher *services.Dispatcher
	extractor  services.Extractor
	detector   *services.PlatformDetector
	cfg        *config.Config
}

// NewTelegramHandler создает обработчик событий Telegram
func NewTelegramHandler(gateway services.Gateway, store *services.PendingStore, dispatcher *services.Dispatcher, extractor services.Extractor, detector *services.PlatformDetector, cfg *config.Config) *TelegramHandler {
	return &TelegramHandler{
		gateway:    gateway,
		store:      store,
		dispatcher: dispatcher,
		extractor:  extractor,
		detector:   detector,
		cfg:        cfg,
	}
}

// HandleUpdate маршрутизирует одно обновление Telegram. Неожиданные сбои
// гасятся на этой границе: пользователь получает общий ответ, детали
// остаются в логе, процесс и остальные запросы продолжают жить.
func (h *TelegramHandler) HandleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("💥 Паника при обработке обновления: %v", r)
			if chatID := chatIDOf(update); chatID != 0 {
				h.sendText(chatID, "⚠️ Произошла непредвиденная ошибка. Инцидент записан.")
			}
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		h.HandleCallback(update.CallbackQuery)
	case update.Message != nil:
		h.HandleMessage(update.Message)
	}
}

// HandleMessage обрабатывает входящие сообщения
func (h *TelegramHandler) HandleMessage(message *tgbotapi.Message) {
	if message.IsCommand() {
		switch message.Command() {
		case "start":
			h.sendWelcomeMessage(message.Chat.ID)
		case "help":
			h.sendHelpMessage(message.Chat.ID)
		default:
			h.sendText(message.Chat.ID, "Неизвестная команда. Используйте /help для получения справки.")
		}
		return
	}

	url := strings.TrimSpace(message.Text)
	if url == "" {
		return
	}

	h.handleURL(message.Chat.ID, url)
}

// handleURL проверяет ссылку по allow-листу и строит меню качества.
// Для неподдерживаемого источника движок извлечения не вызывается вовсе.
func (h *TelegramHandler) handleURL(chatID int64, url string) {
	info := h.detector.DetectPlatform(url)
	h.detector.LogPlatformInfo(info, url)

	if !info.Supported {
		h.sendText(chatID, "🚫 Источник не поддерживается. Пришлите ссылку на YouTube, TikTok, Instagram, Twitter/X или Reddit.")
		return
	}

	// Сразу подтверждаем прием: получение форматов может быть долгим
	h.sendText(chatID, "🔍 Получаю доступные форматы, подождите...")

	var raw []services.RawFormat
	err := utils.RetryWithBackoff(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.ExtractTimeout)
		defer cancel()

		var listErr error
		raw, listErr = h.extractor.ListFormats(ctx, url)
		return listErr
	}, 2, 2*time.Second)
	if err != nil {
		log.Printf("❌ Не удалось получить форматы для %s: %v", url, err)
		h.sendText(chatID, "❌ Не удалось получить информацию о видео. Попробуйте другую ссылку.")
		return
	}

	formats := services.Normalize(raw)
	if len(formats) == 0 {
		h.sendText(chatID, "❌ У этой ссылки нет скачиваемого содержимого.")
		return
	}

	token := h.store.Create(url, chatID, formats)
	buttons := services.BuildMenu(formats, token)
	if services.MenuIsEmpty(buttons) {
		h.store.Remove(token)
		h.sendText(chatID, "❌ Нет подходящих форматов для отправки в Telegram.")
		return
	}

	if _, err := h.gateway.SendMenu(chatID, "🎬 Выберите качество или аудио:", buttons); err != nil {
		log.Printf("❌ Не удалось отправить меню: %v", err)
		h.store.Remove(token)
	}
}

// HandleCallback обрабатывает нажатия на кнопки
func (h *TelegramHandler) HandleCallback(callback *tgbotapi.CallbackQuery) {
	if err := h.gateway.AnswerCallback(callback.ID); err != nil {
		log.Printf("⚠️ Не удалось подтвердить callback: %v", err)
	}
	if callback.Message == nil {
		return
	}

	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	action, err := services.ParseAction(callback.Data)
	if err != nil {
		// Невалидная нагрузка отклоняется на границе, до диспетчера
		log.Printf("🚫 %v", err)
		h.sendText(chatID, "🚫 Некорректное действие кнопки.")
		return
	}

	// Отмена не потребляет токен: запрос просто снимается
	if action.Kind == services.ActionCancel {
		req, err := h.store.Get(action.Token)
		if err != nil {
			h.editMessage(chatID, messageID, "⌛ Запрос устарел. Пришлите ссылку заново.")
			return
		}
		if err := h.dispatcher.Dispatch(req, action, messageID, ""); err != nil {
			log.Printf("⚠️ Ошибка отмены %s: %v", action.Token, err)
		}
		return
	}

	req, err := h.store.Consume(action.Token)
	switch {
	case errors.Is(err, services.ErrTokenInFlight):
		h.sendText(chatID, "⏳ Этот запрос уже обрабатывается. Дождитесь результата.")
		return
	case err != nil:
		h.editMessage(chatID, messageID, "⌛ Запрос устарел. Пришлите ссылку заново.")
		return
	}

	h.editMessage(chatID, messageID, fmt.Sprintf("⏳ Скачиваю, подождите... (%s)", actionLabel(action)))

	videoKey := h.detector.DetectPlatform(req.URL).VideoKey(req.URL)
	if err := h.dispatcher.Dispatch(req, action, messageID, videoKey); err != nil {
		log.Printf("⚠️ Задача по токену %s не принята: %v", action.Token, err)
		h.editMessage(chatID, messageID, "⏳ Сервер занят, попробуйте чуть позже.")
	}
}

// sendWelcomeMessage отправляет приветственное сообщение
func (h *TelegramHandler) sendWelcomeMessage(chatID int64) {
	text := fmt.Sprintf(`🎉 Привет! Я скачиваю видео и аудио по ссылке.

Поддерживаются YouTube, TikTok, Instagram, Twitter/X и Reddit.

📋 Как пользоваться:
1. Пришлите ссылку на видео.
2. Выберите качество или аудио в меню.
3. Я пришлю файл, если он не больше %s.

Файлы удаляются с сервера автоматически.`, utils.FormatSizeMiB(h.cfg.MaxFileSize))

	h.sendText(chatID, text)
}

// sendHelpMessage отправляет справку
func (h *TelegramHandler) sendHelpMessage(chatID int64) {
	text := fmt.Sprintf(`📚 Справка:

🔗 Пришлите ссылку на видео — появится меню качества.
🎵 Кнопка «Аудио» скачивает только звук в MP3.
📏 Лимит размера файла: %s.
⌛ Меню живет %d минут, затем запрос надо повторить.`,
		utils.FormatSizeMiB(h.cfg.MaxFileSize),
		int(h.cfg.PendingTTL.Minutes()))

	h.sendText(chatID, text)
}

func (h *TelegramHandler) sendText(chatID int64, text string) {
	if err := h.gateway.SendText(chatID, text); err != nil {
		log.Printf("⚠️ Не удалось отправить сообщение: %v", err)
	}
}

func (h *TelegramHandler) editMessage(chatID int64, messageID int, text string) {
	if err := h.gateway.EditMessage(chatID, messageID, text); err != nil {
		log.Printf("⚠️ Не удалось отредактировать сообщение: %v", err)
	}
}

func actionLabel(action services.Action) string {
	if action.Kind == services.ActionAudio {
		return "аудио " + strings.ToUpper(action.AudioFormat)
	}
	return "формат " + action.FormatID
}

func chatIDOf(update tgbotapi.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}
