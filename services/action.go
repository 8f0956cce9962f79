package services

import (
	"fmt"
	"strings"
)

// ActionKind — закрытое множество действий, привязываемых к кнопкам
type ActionKind string

const (
	ActionDownload ActionKind = "DL"
	ActionAudio    ActionKind = "AUDIO"
	ActionCancel   ActionKind = "CANCEL"
)

// Action — разобранное действие кнопки с типизированной нагрузкой
type Action struct {
	Kind        ActionKind
	Token       string
	FormatID    string // только для ActionDownload
	AudioFormat string // только для ActionAudio: mp3 или m4a
}

// Encode упаковывает действие в callback data вида "DL|token|formatID"
func (a Action) Encode() string {
	switch a.Kind {
	case ActionDownload:
		return fmt.Sprintf("%s|%s|%s", ActionDownload, a.Token, a.FormatID)
	case ActionAudio:
		return fmt.Sprintf("%s|%s|%s", ActionAudio, a.Token, a.AudioFormat)
	default:
		return fmt.Sprintf("%s|%s", ActionCancel, a.Token)
	}
}

// ParseAction валидирует callback data на границе, до диспетчера.
// Некорректная нагрузка отклоняется ошибкой, а не доходит до обработки.
func ParseAction(data string) (Action, error) {
	parts := strings.Split(data, "|")
	if len(parts) < 2 || parts[1] == "" {
		return Action{}, fmt.Errorf("некорректная нагрузка кнопки: %q", data)
	}

	action := Action{Token: parts[1]}

	switch ActionKind(parts[0]) {
	case ActionCancel:
		if len(parts) != 2 {
			return Action{}, fmt.Errorf("лишние поля в действии отмены: %q", data)
		}
		action.Kind = ActionCancel
	case ActionDownload:
		if len(parts) != 3 || parts[2] == "" {
			return Action{}, fmt.Errorf("действие загрузки без формата: %q", data)
		}
		action.Kind = ActionDownload
		action.FormatID = parts[2]
	case ActionAudio:
		if len(parts) != 3 || (parts[2] != "mp3" && parts[2] != "m4a") {
			return Action{}, fmt.Errorf("неизвестный аудиоформат: %q", data)
		}
		action.Kind = ActionAudio
		action.AudioFormat = parts[2]
	default:
		return Action{}, fmt.Errorf("неизвестное действие: %q", data)
	}

	return action, nil
}
