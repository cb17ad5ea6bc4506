package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
	"github.com/kirillkom/legal-sla-monitor/internal/core/ports"
)

func uploads() (ports.UploadedFile, ports.UploadedFile) {
	return ports.UploadedFile{Filename: "inventario marzo.xlsx", Body: bytes.NewBufferString("inv")},
		ports.UploadedFile{Filename: "../tiempos.xlsx", Body: bytes.NewBufferString("ref")}
}

func TestSubmitSuccess(t *testing.T) {
	repo := &runRepoFake{}
	storage := newStorageFake()
	queue := &queueFake{}
	uc := NewSubmitRunUseCase(repo, storage, queue)

	inv, ref := uploads()
	run, err := uc.Submit(context.Background(), inv, ref)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if run.ID == "" || run.Status != domain.RunStatusUploaded {
		t.Fatalf("unexpected run: %+v", run)
	}
	if repo.created == nil || queue.runID != run.ID {
		t.Fatalf("expected create and publish for run %s", run.ID)
	}
	if !strings.HasSuffix(run.InventoryKey, "_inventory_inventario_marzo.xlsx") {
		t.Fatalf("expected sanitized inventory key, got %s", run.InventoryKey)
	}
	if !strings.HasSuffix(run.ReferenceKey, "_reference_tiempos.xlsx") {
		t.Fatalf("expected base name only in reference key, got %s", run.ReferenceKey)
	}
	if storage.objects[run.InventoryKey] != "inv" || storage.objects[run.ReferenceKey] != "ref" {
		t.Fatalf("unexpected stored objects: %v", storage.objects)
	}
}

func TestSubmitRequiresBothFiles(t *testing.T) {
	uc := NewSubmitRunUseCase(&runRepoFake{}, newStorageFake(), &queueFake{})
	inv, _ := uploads()
	_, err := uc.Submit(context.Background(), inv, ports.UploadedFile{Filename: "ref.xlsx"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubmitQueueErrorMarksRunFailed(t *testing.T) {
	repo := &runRepoFake{}
	uc := NewSubmitRunUseCase(repo, newStorageFake(), &queueFake{err: errors.New("queue down")})
	inv, ref := uploads()
	_, err := uc.Submit(context.Background(), inv, ref)
	if err == nil || !strings.Contains(err.Error(), "publish run event") {
		t.Fatalf("expected publish error, got %v", err)
	}
	if len(repo.statusCalls) != 1 || repo.statusCalls[0].status != domain.RunStatusFailed {
		t.Fatalf("expected run marked failed, got %+v", repo.statusCalls)
	}
	if !strings.Contains(repo.statusCalls[0].errMsg, "queue down") {
		t.Fatalf("expected failure reason recorded, got %q", repo.statusCalls[0].errMsg)
	}
}
