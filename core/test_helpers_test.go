package core

import (
	"context"
	"strings"
	"sync"
	"time"
)

type note struct {
	ID   string
	Body string
}

func (n note) GetID() string { return n.ID }

type ownedNote struct {
	ID      string
	OwnerID string
	Body    string
}

func (n ownedNote) GetID() string      { return n.ID }
func (n ownedNote) GetOwnerID() string { return n.OwnerID }

type stubTx struct {
	state     TxState
	commitErr error
	abortErr  error
	commits   int
	aborts    int
	releases  int
}

func (t *stubTx) Commit(context.Context) error {
	if t.state != TxOpen {
		return TransactionResolvedError()
	}
	t.commits++
	if t.commitErr != nil {
		t.state = TxAborted
		return t.commitErr
	}
	t.state = TxCommitted
	return nil
}

func (t *stubTx) Abort(context.Context) error {
	if t.state != TxOpen {
		return TransactionResolvedError()
	}
	t.aborts++
	t.state = TxAborted
	return t.abortErr
}

func (t *stubTx) Release(context.Context) {
	t.releases++
	if t.state == TxOpen {
		t.state = TxAborted
	}
}

func (t *stubTx) State() TxState { return t.state }

type stubCoordinator struct {
	beginErr  error
	commitErr error
	abortErr  error
	begun     []*stubTx
}

func (c *stubCoordinator) Begin(context.Context) (Transaction, error) {
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	tx := &stubTx{state: TxOpen, commitErr: c.commitErr, abortErr: c.abortErr}
	c.begun = append(c.begun, tx)
	return tx, nil
}

func (c *stubCoordinator) last() *stubTx {
	if len(c.begun) == 0 {
		return nil
	}
	return c.begun[len(c.begun)-1]
}

// noteProvider writes straight through; tests here exercise coordination,
// not isolation.
type noteProvider struct {
	mu    sync.Mutex
	notes map[string]note
	order []string
	err   error
}

func newNoteProvider() *noteProvider {
	return &noteProvider{notes: map[string]note{}}
}

func (p *noteProvider) Create(_ context.Context, _ Transaction, entry note) (note, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return note{}, p.err
	}
	key := strings.ToLower(entry.ID)
	if _, exists := p.notes[key]; exists {
		return note{}, ConflictError("note already exists")
	}
	p.notes[key] = entry
	p.order = append(p.order, key)
	return entry, nil
}

func (p *noteProvider) ReadByID(_ context.Context, _ Transaction, id string) (note, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.notes[strings.ToLower(id)]
	if !ok {
		return note{}, NotFoundError("note not found")
	}
	return entry, nil
}

func (p *noteProvider) ReadAll(context.Context, Transaction) ([]note, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]note, 0, len(p.order))
	for _, key := range p.order {
		if entry, ok := p.notes[key]; ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (p *noteProvider) Update(_ context.Context, _ Transaction, entry note) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := strings.ToLower(entry.ID)
	if _, ok := p.notes[key]; !ok {
		return NotFoundError("note not found")
	}
	p.notes[key] = entry
	return nil
}

func (p *noteProvider) Delete(_ context.Context, _ Transaction, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := strings.ToLower(id)
	if _, ok := p.notes[key]; !ok {
		return NotFoundError("note not found")
	}
	delete(p.notes, key)
	return nil
}

type ownedNoteProvider struct {
	notes map[string]ownedNote
}

func newOwnedNoteProvider() *ownedNoteProvider {
	return &ownedNoteProvider{notes: map[string]ownedNote{}}
}

func ownedKey(ownerID, id string) string {
	return strings.ToLower(ownerID) + "/" + strings.ToLower(id)
}

func (p *ownedNoteProvider) Create(_ context.Context, _ Transaction, entry ownedNote) (ownedNote, error) {
	key := ownedKey(entry.OwnerID, entry.ID)
	if _, exists := p.notes[key]; exists {
		return ownedNote{}, ConflictError("note already exists")
	}
	p.notes[key] = entry
	return entry, nil
}

func (p *ownedNoteProvider) ReadByID(_ context.Context, _ Transaction, ownerID, id string) (ownedNote, error) {
	entry, ok := p.notes[ownedKey(ownerID, id)]
	if !ok {
		return ownedNote{}, NotFoundError("note not found")
	}
	return entry, nil
}

func (p *ownedNoteProvider) ReadAll(_ context.Context, _ Transaction, ownerID string) ([]ownedNote, error) {
	out := []ownedNote{}
	for _, entry := range p.notes {
		if strings.EqualFold(entry.OwnerID, ownerID) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (p *ownedNoteProvider) Update(_ context.Context, _ Transaction, entry ownedNote) error {
	key := ownedKey(entry.OwnerID, entry.ID)
	if _, ok := p.notes[key]; !ok {
		return NotFoundError("note not found")
	}
	p.notes[key] = entry
	return nil
}

func (p *ownedNoteProvider) Delete(_ context.Context, _ Transaction, ownerID, id string) error {
	key := ownedKey(ownerID, id)
	if _, ok := p.notes[key]; !ok {
		return NotFoundError("note not found")
	}
	delete(p.notes, key)
	return nil
}

type noteInput struct {
	ID   string
	Body string
}

func noteTransform() TransformFuncs[noteInput, note, string] {
	return TransformFuncs[noteInput, note, string]{
		Create: func(input noteInput) (note, error) {
			return note{ID: strings.TrimSpace(input.ID), Body: input.Body}, nil
		},
		Update: func(id string, body string) (note, error) {
			return note{ID: id, Body: body}, nil
		},
	}
}

func ownedNoteTransform() OwnedTransformFuncs[noteInput, ownedNote, string] {
	return OwnedTransformFuncs[noteInput, ownedNote, string]{
		Create: func(ownerID string, input noteInput) (ownedNote, error) {
			return ownedNote{ID: input.ID, OwnerID: ownerID, Body: input.Body}, nil
		},
		Update: func(ownerID, id string, body string) (ownedNote, error) {
			return ownedNote{ID: id, OwnerID: ownerID, Body: body}, nil
		},
	}
}

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]capturedLog, len(*l.records))
	copy(out, *l.records)
	return out
}

func hasCounter(counters []capturedCounter, name, status string) bool {
	for _, counter := range counters {
		if counter.name == name && counter.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasLog(records []capturedLog, level, msg string) bool {
	for _, record := range records {
		if record.level == level && record.msg == msg {
			return true
		}
	}
	return false
}

func timeZero() time.Time { return time.Time{} }
