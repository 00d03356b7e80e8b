package audit

import (
	"context"
	"log"
	"time"

	"serwer-dokumentow/internal/models"
)

// WriteFunc zapisuje pojedynczy wpis dziennika w trwałym magazynie.
type WriteFunc func(ctx context.Context, entry models.AuditEntry) error

// Sink przyjmuje wpisy dziennika bez blokowania wywołującego i zapisuje je
// w tle. Przy pełnym buforze wpis jest porzucany z ostrzeżeniem w logu.
type Sink struct {
	entries chan models.AuditEntry
	write   WriteFunc
	done    chan struct{}
}

const defaultBufferSize = 256

func NewSink(write WriteFunc) *Sink {
	return &Sink{
		entries: make(chan models.AuditEntry, defaultBufferSize),
		write:   write,
		done:    make(chan struct{}),
	}
}

// Run konsumuje wpisy aż do zamknięcia kanału przez Close.
func (s *Sink) Run() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.write(ctx, entry); err != nil {
			log.Printf("ERROR: nie można zapisać wpisu dziennika (%s %s): %v", entry.Action, entry.TargetID, err)
		}
		cancel()
	}
}

func (s *Sink) Record(entry models.AuditEntry) {
	select {
	case s.entries <- entry:
	default:
		log.Printf("WARN: bufor dziennika pełny, porzucono wpis %s", entry.Action)
	}
}

// Close zamyka kanał i czeka na zapis zaległych wpisów.
func (s *Sink) Close() {
	close(s.entries)
	<-s.done
}
