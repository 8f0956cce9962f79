package services

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DeliveredFile — запись о ранее доставленном файле
type DeliveredFile struct {
	VideoKey  string // платформа:ID видео
	Selector  string // ID формата или audio:mp3 / audio:m4a
	FileID    string // file_id Telegram
	Kind      MediaKind
	FileSize  int64
	SendCount int
	CreatedAt time.Time
	LastSent  time.Time
}

// FileCache хранит file_id уже загруженных в Telegram артефактов:
// повторный запрос того же видео и формата пересылается без скачивания
// и без файлов на диске. Сами артефакты на сервере не живут дольше
// задержки очистки.
type FileCache struct {
	db *sql.DB
}

// NewFileCache открывает (или создает) базу кэша в указанной директории
func NewFileCache(cacheDir string) (*FileCache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории кэша: %v", err)
	}

	dbPath := filepath.Join(cacheDir, "delivered_files.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия БД: %v", err)
	}

	if err := createDeliveredTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания таблицы: %v", err)
	}

	return &FileCache{db: db}, nil
}

func createDeliveredTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS delivered_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		video_key TEXT NOT NULL,
		selector TEXT NOT NULL,
		file_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		send_count INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_sent DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(video_key, selector)
	);
	`
	_, err := db.Exec(query)
	return err
}

// AudioSelector — селектор кэша для аудиозагрузок
func AudioSelector(audioFormat string) string {
	return "audio:" + audioFormat
}

// Lookup ищет file_id для пары (видео, селектор формата)
func (c *FileCache) Lookup(videoKey, selector string) (*DeliveredFile, bool) {
	row := c.db.QueryRow(
		`SELECT file_id, kind, file_size, send_count FROM delivered_files
		 WHERE video_key = ? AND selector = ?`,
		videoKey, selector,
	)

	entry := DeliveredFile{VideoKey: videoKey, Selector: selector}
	var kind string
	if err := row.Scan(&entry.FileID, &kind, &entry.FileSize, &entry.SendCount); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("⚠️ Ошибка чтения кэша: %v", err)
		}
		return nil, false
	}
	entry.Kind = MediaKind(kind)
	return &entry, true
}

// Store запоминает file_id после успешной доставки
func (c *FileCache) Store(videoKey, selector, fileID string, kind MediaKind, size int64) error {
	_, err := c.db.Exec(
		`INSERT INTO delivered_files (video_key, selector, file_id, kind, file_size)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(video_key, selector) DO UPDATE SET
			file_id = excluded.file_id,
			file_size = excluded.file_size,
			last_sent = CURRENT_TIMESTAMP`,
		videoKey, selector, fileID, string(kind), size,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи в кэш: %v", err)
	}
	return nil
}

// MarkSent увеличивает счетчик повторных отправок
func (c *FileCache) MarkSent(videoKey, selector string) {
	_, err := c.db.Exec(
		`UPDATE delivered_files SET send_count = send_count + 1, last_sent = CURRENT_TIMESTAMP
		 WHERE video_key = ? AND selector = ?`,
		videoKey, selector,
	)
	if err != nil {
		log.Printf("⚠️ Не удалось обновить счетчик кэша: %v", err)
	}
}

// Close закрывает базу кэша
func (c *FileCache) Close() error {
	return c.db.Close()
}
