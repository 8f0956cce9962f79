package services

import (
	"fmt"
	"sort"

	"mediaBot/utils"
)

// QualityTiers — фиксированная таблица целевых разрешений для меню
var QualityTiers = []int{1080, 720, 480, 360, 240}

// allowedExtensions — контейнеры, пригодные для отправки в Telegram
var allowedExtensions = map[string]bool{
	"mp4":  true,
	"mkv":  true,
	"webm": true,
}

// MenuButton — одна кнопка меню: подпись и закодированное действие
type MenuButton struct {
	Label string
	Data  string
}

// BuildMenu собирает меню выбора качества для токена запроса.
//
// Видеоформаты ранжируются по (разрешение, битрейт) по убыванию. Для
// каждого уровня берется первый формат с разрешением не ниже порога и
// допустимым контейнером; уровень без кандидата опускается — кнопка
// никогда не обещает разрешение выше реального. Один формат не
// привязывается к двум уровням. В конце добавляются аудио-кнопки (если
// есть аудиопоток) и ровно одна кнопка отмены.
//
// Пустой результат (только отмена не в счет) означает "нет подходящих
// форматов" — вызывающий код должен сообщить об этом, а не слать меню.
func BuildMenu(formats []VideoFormat, token string) []MenuButton {
	ranked := make([]VideoFormat, 0, len(formats))
	for _, f := range formats {
		if f.Kind == MediaVideo {
			ranked = append(ranked, f)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Height != ranked[j].Height {
			return ranked[i].Height > ranked[j].Height
		}
		return ranked[i].Bitrate > ranked[j].Bitrate
	})

	var buttons []MenuButton
	used := make(map[string]bool)

	for _, tier := range QualityTiers {
		for _, f := range ranked {
			if f.Height < tier || !allowedExtensions[f.Extension] || used[f.ID] {
				continue
			}

			label := fmt.Sprintf("%dp", tier)
			if f.FileSize > 0 {
				label += fmt.Sprintf(" (%s)", utils.FormatSizeMiB(f.FileSize))
			}

			buttons = append(buttons, MenuButton{
				Label: label,
				Data:  Action{Kind: ActionDownload, Token: token, FormatID: f.ID}.Encode(),
			})
			used[f.ID] = true
			break
		}
	}

	// Ровно одна аудио-кнопка, если источник вообще содержит звук
	if HasAudioStream(formats) {
		buttons = append(buttons, MenuButton{
			Label: "🎵 Аудио (MP3)",
			Data:  Action{Kind: ActionAudio, Token: token, AudioFormat: "mp3"}.Encode(),
		})
	}

	buttons = append(buttons, MenuButton{
		Label: "❌ Отмена",
		Data:  Action{Kind: ActionCancel, Token: token}.Encode(),
	})

	return buttons
}

// MenuIsEmpty сообщает, что в меню нет ничего кроме кнопки отмены
func MenuIsEmpty(buttons []MenuButton) bool {
	return len(buttons) <= 1
}
