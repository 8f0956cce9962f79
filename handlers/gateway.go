package handlers

import (
	"mediaBot/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotGateway реализует services.Gateway поверх Telegram Bot API
type BotGateway struct {
	api *tgbotapi.BotAPI
}

// NewBotGateway оборачивает клиент Telegram в шлюз сообщений
func NewBotGateway(api *tgbotapi.BotAPI) *BotGateway {
	return &BotGateway{api: api}
}

// SendText отправляет текстовое сообщение
func (g *BotGateway) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := g.api.Send(msg)
	return err
}

// SendMenu отправляет сообщение с inline-кнопками, по одной в строке
func (g *BotGateway) SendMenu(chatID int64, text string, buttons []services.MenuButton) (int, error) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, b := range buttons {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data),
		})
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	sent, err := g.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessage заменяет текст сообщения и убирает кнопки
func (g *BotGateway) EditMessage(chatID int64, messageID int, text string) error {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	_, err := g.api.Send(msg)
	return err
}

// SendVideoFile отправляет видеофайл и возвращает file_id
func (g *BotGateway) SendVideoFile(chatID int64, path, caption string) (string, error) {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	video.Caption = caption

	sent, err := g.api.Send(video)
	if err != nil {
		return "", err
	}
	if sent.Video != nil {
		return sent.Video.FileID, nil
	}
	return "", nil
}

// SendAudioFile отправляет аудиофайл и возвращает file_id
func (g *BotGateway) SendAudioFile(chatID int64, path, caption string) (string, error) {
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(path))
	audio.Caption = caption

	sent, err := g.api.Send(audio)
	if err != nil {
		return "", err
	}
	if sent.Audio != nil {
		return sent.Audio.FileID, nil
	}
	return "", nil
}

// SendVideoByID пересылает видео по сохраненному file_id
func (g *BotGateway) SendVideoByID(chatID int64, fileID, caption string) error {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FileID(fileID))
	video.Caption = caption
	_, err := g.api.Send(video)
	return err
}

// SendAudioByID пересылает аудио по сохраненному file_id
func (g *BotGateway) SendAudioByID(chatID int64, fileID, caption string) error {
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FileID(fileID))
	audio.Caption = caption
	_, err := g.api.Send(audio)
	return err
}

// AnswerCallback подтверждает нажатие кнопки (убирает "часики")
func (g *BotGateway) AnswerCallback(callbackID string) error {
	_, err := g.api.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}
