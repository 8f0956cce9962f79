package services

import (
	"log"
	"os"
	"sync"
	"time"
)

// Cleaner гарантированно удаляет рабочие директории задач после
// фиксированной задержки, независимо от исхода загрузки. Отложенные
// удаления отслеживаются в реестре: их видно в диагностике и они не
// теряются при множестве одновременных задач.
type Cleaner struct {
	delay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewCleaner создает планировщик с фиксированной задержкой удаления
func NewCleaner(delay time.Duration) *Cleaner {
	return &Cleaner{
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule ставит директорию в очередь на удаление. Не блокирует
// вызывающего. Повторный Schedule той же директории — no-op.
func (c *Cleaner) Schedule(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.timers[dir]; ok {
		return
	}

	c.timers[dir] = time.AfterFunc(c.delay, func() {
		c.remove(dir)

		c.mu.Lock()
		delete(c.timers, dir)
		c.mu.Unlock()
	})

	log.Printf("🗑️ Очистка %s запланирована через %v", dir, c.delay)
}

// Outstanding возвращает число еще не выполненных удалений
func (c *Cleaner) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Stop снимает таймеры и удаляет все ожидающие директории немедленно,
// чтобы завершение процесса не оставило мусор на диске
func (c *Cleaner) Stop() {
	c.mu.Lock()
	dirs := make([]string, 0, len(c.timers))
	for dir, timer := range c.timers {
		timer.Stop()
		dirs = append(dirs, dir)
	}
	c.timers = make(map[string]*time.Timer)
	c.mu.Unlock()

	for _, dir := range dirs {
		c.remove(dir)
	}
}

// remove удаляет директорию с содержимым; неудача — только предупреждение
func (c *Cleaner) remove(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.Printf("⚠️ Не удалось удалить %s: %v", dir, err)
		return
	}
	log.Printf("🧹 Рабочая директория удалена: %s", dir)
}
