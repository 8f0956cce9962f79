package services

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTokenNotFound — токен неизвестен, просрочен или уже удален
	ErrTokenNotFound = errors.New("запрос не найден")
	// ErrTokenInFlight — по токену уже выполняется загрузка
	ErrTokenInFlight = errors.New("запрос уже обрабатывается")
)

// PendingRequest — ожидающий запрос: меню отправлено, кнопка еще не нажата
type PendingRequest struct {
	Token     string
	URL       string
	ChatID    int64
	Formats   []VideoFormat
	CreatedAt time.Time
}

type pendingEntry struct {
	req      PendingRequest
	inFlight bool
}

// PendingStore — единственное разделяемое состояние процесса: таблица
// ожидающих запросов под мьютексом. Блокировка держится только на время
// операций с картой и никогда — через внешний вызов.
type PendingStore struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry

	stopSweeper chan struct{}
	sweeperOnce sync.Once
}

// NewPendingStore создает пустое хранилище запросов
func NewPendingStore() *PendingStore {
	return &PendingStore{
		entries:     make(map[string]*pendingEntry),
		stopSweeper: make(chan struct{}),
	}
}

// Create регистрирует запрос и возвращает его токен
func (s *PendingStore) Create(url string, chatID int64, formats []VideoFormat) string {
	token := uuid.New().String()

	s.mu.Lock()
	s.entries[token] = &pendingEntry{
		req: PendingRequest{
			Token:     token,
			URL:       url,
			ChatID:    chatID,
			Formats:   formats,
			CreatedAt: time.Now(),
		},
	}
	s.mu.Unlock()

	return token
}

// Get возвращает запрос по токену, не продлевая его жизнь
func (s *PendingStore) Get(token string) (PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return PendingRequest{}, ErrTokenNotFound
	}
	return entry.req, nil
}

// Consume атомарно помечает запрос выполняющимся. Токен одноразовый:
// повторный Consume возвращает ErrTokenInFlight, и второй задачи не будет.
func (s *PendingStore) Consume(token string) (PendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return PendingRequest{}, ErrTokenNotFound
	}
	if entry.inFlight {
		return PendingRequest{}, ErrTokenInFlight
	}
	entry.inFlight = true
	return entry.req, nil
}

// release снимает пометку "в работе", если задачу не удалось поставить
// в очередь — токен снова доступен для нажатия
func (s *PendingStore) release(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[token]; ok {
		entry.inFlight = false
	}
}

// Contains проверяет, что токен все еще жив (для проверки перед доставкой)
func (s *PendingStore) Contains(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[token]
	return ok
}

// Remove удаляет запрос. Удаление несуществующего токена — не ошибка.
func (s *PendingStore) Remove(token string) {
	s.mu.Lock()
	delete(s.entries, token)
	s.mu.Unlock()
}

// Len возвращает число живых запросов
func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep удаляет запросы старше ttl и возвращает число удаленных.
// Выполняющиеся запросы не трогаем: их снимет диспетчер по завершении.
func (s *PendingStore) Sweep(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, entry := range s.entries {
		if entry.inFlight {
			continue
		}
		if now.Sub(entry.req.CreatedAt) > ttl {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}

// StartSweeper запускает периодическую чистку брошенных меню
func (s *PendingStore) StartSweeper(interval, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := s.Sweep(time.Now(), ttl); removed > 0 {
					log.Printf("🧹 Удалено просроченных запросов: %d", removed)
				}
			case <-s.stopSweeper:
				return
			}
		}
	}()
}

// StopSweeper останавливает чистку
func (s *PendingStore) StopSweeper() {
	s.sweeperOnce.Do(func() {
		close(s.stopSweeper)
	})
}
