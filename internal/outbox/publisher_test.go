package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/repository"
)

type fakeWriter struct {
	msgs   []kafka.Message
	failAt int // 1-based call number that fails, 0 never
	calls  int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.failAt == w.calls {
		return errors.New("broker unavailable")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedEvents(t *testing.T, repo repository.OutboxRepository, n int) uuid.UUID {
	t.Helper()
	aggregate := uuid.New()
	for i := 0; i < n; i++ {
		if err := repo.Add(context.Background(), model.EventAppointmentTransitioned, aggregate, map[string]int{"seq": i + 1}); err != nil {
			t.Fatalf("add event: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	return aggregate
}

func TestPublisher_PublishBatch(t *testing.T) {
	repo := repository.NewGormOutboxRepository(newTestDB(t))
	aggregate := seedEvents(t, repo, 3)
	w := &fakeWriter{}
	p := NewPublisher(repo, w, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, Config{Topic: "appointments"})

	n, err := p.PublishBatch(context.Background())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if n != 3 || len(w.msgs) != 3 {
		t.Fatalf("published %d, written %d, want 3", n, len(w.msgs))
	}
	for _, m := range w.msgs {
		if m.Topic != "appointments" {
			t.Fatalf("topic = %q", m.Topic)
		}
		if string(m.Key) != aggregate.String() {
			t.Fatalf("key = %q, want aggregate id", m.Key)
		}
		if header(m, "event_type") != string(model.EventAppointmentTransitioned) {
			t.Fatalf("missing event_type header: %+v", m.Headers)
		}
	}

	left, _ := repo.FetchUnpublished(context.Background(), 10)
	if len(left) != 0 {
		t.Fatalf("expected empty outbox, got %d", len(left))
	}

	n, err = p.PublishBatch(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second batch: n=%d err=%v", n, err)
	}
}

func TestPublisher_StopsAtFirstFailure(t *testing.T) {
	repo := repository.NewGormOutboxRepository(newTestDB(t))
	seedEvents(t, repo, 3)
	w := &fakeWriter{failAt: 2}
	p := NewPublisher(repo, w, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, Config{})

	n, err := p.PublishBatch(context.Background())
	if err == nil {
		t.Fatal("expected write error")
	}
	if n != 1 {
		t.Fatalf("published %d, want 1", n)
	}
	if w.msgs[0].Topic != string(model.EventAppointmentTransitioned) {
		t.Fatalf("topic should default to event type, got %q", w.msgs[0].Topic)
	}

	left, _ := repo.FetchUnpublished(context.Background(), 10)
	if len(left) != 2 {
		t.Fatalf("unpublished = %d, want 2", len(left))
	}
	if left[0].Attempts != 1 || left[0].LastError == "" {
		t.Fatalf("failed event not recorded: %+v", left[0])
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("SplitBrokers = %v", got)
	}
	if NewKafkaWriter("") != nil {
		t.Fatal("expected nil writer without brokers")
	}
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
