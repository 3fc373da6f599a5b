package core

import (
	"context"
	"testing"
)

func TestDomainServiceObservability_Success(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc := newNoteService(&stubCoordinator{}, newNoteProvider(), NewObserver(logger, metrics))

	if _, err := svc.Create(context.Background(), noteInput{ID: "n1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !hasCounter(metrics.counters, "resources.notes.create.total", "success") {
		t.Fatalf("expected success counter, got %#v", metrics.counters)
	}
	if len(metrics.histograms) != 1 || metrics.histograms[0].name != "resources.notes.create.duration_ms" {
		t.Fatalf("expected duration histogram, got %#v", metrics.histograms)
	}
	if !hasLog(logger.snapshot(), "info", "notes.create succeeded") {
		t.Fatalf("expected success log")
	}
}

func TestDomainServiceObservability_FailureCarriesKind(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc := newNoteService(&stubCoordinator{}, newNoteProvider(), NewObserver(logger, metrics))

	if _, err := svc.ReadByID(context.Background(), "missing"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !hasCounter(metrics.counters, "resources.notes.read.total", "failure") {
		t.Fatalf("expected failure counter")
	}
	if metrics.counters[0].tags["error_kind"] != string(KindNotFound) {
		t.Fatalf("expected error_kind tag, got %#v", metrics.counters[0].tags)
	}
	records := logger.snapshot()
	if !hasLog(records, "error", "notes.read failed") {
		t.Fatalf("expected failure log")
	}
	for _, record := range records {
		if record.msg == "notes.read failed" && record.fields["id"] != "missing" {
			t.Fatalf("expected id field on failure log, got %#v", record.fields)
		}
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var observer *Observer
	observer.Observe(context.Background(), timeZero(), "noop", nil, nil)
	observer.Warn(context.Background(), "noop", nil)
	if observer.Logger() == nil {
		t.Fatalf("expected nop logger from nil observer")
	}
}
