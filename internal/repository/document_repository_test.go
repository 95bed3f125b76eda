package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"auto-repeat/internal/model"
)

func TestDocumentInsertAndGet(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t), nil)
	ctx := context.Background()

	start := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
	doc := &model.Document{
		Doctype:   "Task",
		Subject:   "Test Task for Auto Repeat",
		StartDate: &start,
		Fields:    datatypes.JSONMap{"project": "PROJ-1"},
	}
	if err := repo.Insert(ctx, doc); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if doc.Name == "" {
		t.Fatalf("expected insert to name the document")
	}

	got, err := repo.Get(ctx, "Task", doc.Name)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Subject != doc.Subject || got.Fields["project"] != "PROJ-1" {
		t.Fatalf("unexpected document %+v", got)
	}
	if got.StartDate == nil || !got.StartDate.Equal(start) {
		t.Fatalf("expected start date %s, got %v", start, got.StartDate)
	}

	if _, err := repo.Get(ctx, "Task", "missing"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestDocumentCopySkipsNoCopyFields(t *testing.T) {
	repo := NewDocumentRepository(nil, []string{"status", " progress "})

	start := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
	ref := "AR-1"
	src := &model.Document{
		ID:         7,
		Name:       "TASK-1",
		Doctype:    "Task",
		Subject:    "Weekly sync",
		StartDate:  &start,
		DocStatus:  model.DocStatusSubmitted,
		AutoRepeat: &ref,
		Fields:     datatypes.JSONMap{"status": "Completed", "progress": 100, "project": "PROJ-1"},
	}

	dup := repo.Copy(src)
	if dup.ID != 0 || dup.Name != "" || dup.AutoRepeat != nil {
		t.Fatalf("copy must not carry identity, got %+v", dup)
	}
	if dup.DocStatus != model.DocStatusDraft {
		t.Fatalf("expected draft copy, got docstatus %d", dup.DocStatus)
	}
	if _, ok := dup.Fields["status"]; ok {
		t.Fatalf("status is a no-copy field")
	}
	if _, ok := dup.Fields["progress"]; ok {
		t.Fatalf("progress is a no-copy field")
	}
	if dup.Fields["project"] != "PROJ-1" {
		t.Fatalf("expected project to be copied, got %v", dup.Fields)
	}

	*dup.StartDate = start.AddDate(0, 0, 1)
	if !src.StartDate.Equal(start) {
		t.Fatalf("copy must not share date pointers with the source")
	}
}

func TestDocumentSubmit(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t), nil)
	ctx := context.Background()

	doc := &model.Document{Doctype: "Task", Subject: "Ship it"}
	if err := repo.Insert(ctx, doc); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.Submit(ctx, doc); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, err := repo.Get(ctx, "Task", doc.Name)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsSubmitted() {
		t.Fatalf("expected submitted document, got docstatus %d", got.DocStatus)
	}
	if err := repo.Submit(ctx, got); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}

	blank := &model.Document{Doctype: "Task"}
	if err := repo.Insert(ctx, blank); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.Submit(ctx, blank); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}
}
