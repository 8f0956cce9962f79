package services

// Gateway — шлюз сообщений: все исходящие операции бота.
// Реализация поверх Telegram живет в пакете handlers; здесь только
// контракт, чтобы диспетчер и оркестратор не зависели от транспорта.
type Gateway interface {
	// SendText отправляет простое текстовое сообщение
	SendText(chatID int64, text string) error
	// SendMenu отправляет сообщение с кнопками и возвращает его ID
	SendMenu(chatID int64, text string, buttons []MenuButton) (int, error)
	// EditMessage заменяет текст отправленного сообщения (и снимает кнопки)
	EditMessage(chatID int64, messageID int, text string) error
	// SendVideoFile отправляет видеофайл и возвращает file_id Telegram
	SendVideoFile(chatID int64, path, caption string) (string, error)
	// SendAudioFile отправляет аудиофайл и возвращает file_id Telegram
	SendAudioFile(chatID int64, path, caption string) (string, error)
	// SendVideoByID повторно отправляет видео по file_id без файла на диске
	SendVideoByID(chatID int64, fileID, caption string) error
	// SendAudioByID повторно отправляет аудио по file_id без файла на диске
	SendAudioByID(chatID int64, fileID, caption string) error
	// AnswerCallback подтверждает получение нажатия кнопки
	AnswerCallback(callbackID string) error
}
