package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/streamvault/upload-gateway/internal/domain/port"
	"github.com/streamvault/upload-gateway/internal/domain/vobj"
)

// PublishedMessage is one message captured by FakePublisher.
type PublishedMessage struct {
	Destination string
	Data        []byte
	Attributes  map[string]string
}

// FakePublisher records every publish. FailOn, when set, decides per call
// (zero-based) whether the publish fails.
type FakePublisher struct {
	mu       sync.Mutex
	calls    int
	messages []PublishedMessage
	FailOn   func(call int, destination string) error
}

func (p *FakePublisher) Publish(ctx context.Context, destination string, data []byte, attributes map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	call := p.calls
	p.calls++
	if p.FailOn != nil {
		if err := p.FailOn(call, destination); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	attrs := make(map[string]string, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}
	p.messages = append(p.messages, PublishedMessage{
		Destination: destination,
		Data:        append([]byte(nil), data...),
		Attributes:  attrs,
	})
	return nil
}

func (p *FakePublisher) Close() error { return nil }

func (p *FakePublisher) Messages() []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedMessage(nil), p.messages...)
}

func (p *FakePublisher) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// RequestCall is one request captured by FakeRequester.
type RequestCall struct {
	Destination   string
	CorrelationID string
	Data          []byte
}

// FakeRequester answers requests with Reply. Reply receives the destination
// and the serialized request.
type FakeRequester struct {
	mu    sync.Mutex
	calls []RequestCall
	Reply func(ctx context.Context, destination string, data []byte) ([]byte, error)
}

func (r *FakeRequester) Request(ctx context.Context, destination, correlationID string, data []byte, attributes map[string]string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, RequestCall{Destination: destination, CorrelationID: correlationID, Data: append([]byte(nil), data...)})
	r.mu.Unlock()

	if r.Reply == nil {
		return nil, fmt.Errorf("no reply configured for %s", destination)
	}
	return r.Reply(ctx, destination, data)
}

func (r *FakeRequester) Close() error { return nil }

func (r *FakeRequester) Calls() []RequestCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RequestCall(nil), r.calls...)
}

// ExistsReply builds a FakeRequester reply that answers every existence check
// with exists, wrapped in a message envelope.
func ExistsReply(exists bool) func(context.Context, string, []byte) ([]byte, error) {
	return func(context.Context, string, []byte) ([]byte, error) {
		return []byte(fmt.Sprintf(`{"message":{"isExists":%t}}`, exists)), nil
	}
}

// StoredPut is one object written to FakeStorage.
type StoredPut struct {
	Key         string
	Body        []byte
	Size        int64
	ContentType string
}

// FakeStorage keeps objects in memory.
type FakeStorage struct {
	mu         sync.Mutex
	puts       []StoredPut
	presigns   []string
	PutErr     error
	PresignErr error
	BucketName string
	// BeforePut runs before the payload is read; used to hold a put in flight.
	BeforePut func(ctx context.Context) error
}

func (s *FakeStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if s.BeforePut != nil {
		if err := s.BeforePut(ctx); err != nil {
			return err
		}
	}
	if s.PutErr != nil {
		return s.PutErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, StoredPut{Key: key, Body: buf.Bytes(), Size: size, ContentType: contentType})
	return nil
}

func (s *FakeStorage) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.PresignErr != nil {
		return "", s.PresignErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presigns = append(s.presigns, key)
	return fmt.Sprintf("https://objects.test/%s/%s?expires=%d", s.Bucket(), url.PathEscape(key), int64(ttl.Seconds())), nil
}

func (s *FakeStorage) Bucket() string {
	if s.BucketName == "" {
		return "content"
	}
	return s.BucketName
}

func (s *FakeStorage) Puts() []StoredPut {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StoredPut(nil), s.puts...)
}

func (s *FakeStorage) Presigns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.presigns...)
}

// LedgerEntry is one write captured by FakeLedger.
type LedgerEntry struct {
	ObjectKey string
	Status    vobj.UploadStatus
	Fields    map[string]interface{}
	CtxErr    error
}

type FakeLedger struct {
	mu      sync.Mutex
	entries []LedgerEntry
	Err     error
}

func (l *FakeLedger) Record(ctx context.Context, record port.UploadRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LedgerEntry{ObjectKey: record.ObjectKey, Status: record.Status, CtxErr: ctx.Err()})
	return l.Err
}

func (l *FakeLedger) UpdateStatus(ctx context.Context, record port.UploadRecord, status vobj.UploadStatus, fields map[string]interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LedgerEntry{ObjectKey: record.ObjectKey, Status: status, Fields: fields, CtxErr: ctx.Err()})
	return l.Err
}

func (l *FakeLedger) Close() error { return nil }

func (l *FakeLedger) Entries() []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LedgerEntry(nil), l.entries...)
}
