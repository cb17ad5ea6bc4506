package usecase

import (
	"context"
	"io"
	"testing"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

func TestOpenArtifact(t *testing.T) {
	repo := &runRepoFake{run: &domain.Run{ID: "run-1", Status: domain.RunStatusReady, ReportKey: "r.xlsx"}}
	storage := newStorageFake()
	storage.objects["r.xlsx"] = "book"
	uc := NewReadRunUseCase(repo, storage)

	rc, err := uc.OpenArtifact(context.Background(), "run-1", domain.ArtifactReport)
	if err != nil {
		t.Fatalf("OpenArtifact() error = %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	if string(raw) != "book" {
		t.Fatalf("unexpected artifact body %q", raw)
	}

	if _, err := uc.OpenArtifact(context.Background(), "run-1", domain.ArtifactErrors); !domain.IsKind(err, domain.ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound for missing errors workbook, got %v", err)
	}
}

func TestOpenArtifactBeforeReady(t *testing.T) {
	repo := &runRepoFake{run: &domain.Run{ID: "run-1", Status: domain.RunStatusProcessing}}
	uc := NewReadRunUseCase(repo, newStorageFake())

	if _, err := uc.OpenArtifact(context.Background(), "run-1", domain.ArtifactReport); !domain.IsKind(err, domain.ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestOpenArtifactUnknownRun(t *testing.T) {
	uc := NewReadRunUseCase(&runRepoFake{}, newStorageFake())
	if _, err := uc.OpenArtifact(context.Background(), "nope", domain.ArtifactReport); !domain.IsKind(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRecentClampsLimit(t *testing.T) {
	repo := &runRepoFake{run: &domain.Run{ID: "run-1"}}
	uc := NewReadRunUseCase(repo, newStorageFake())

	runs, err := uc.ListRecent(context.Background(), 5000)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(runs) != 1 || repo.listLimit != maxListLimit {
		t.Fatalf("expected clamped limit %d, got %d", maxListLimit, repo.listLimit)
	}
}

func TestListRecentDefaultsMissingLimit(t *testing.T) {
	for _, limit := range []int{0, -3} {
		repo := &runRepoFake{run: &domain.Run{ID: "run-1"}}
		uc := NewReadRunUseCase(repo, newStorageFake())

		if _, err := uc.ListRecent(context.Background(), limit); err != nil {
			t.Fatalf("ListRecent() error = %v", err)
		}
		if repo.listLimit != defaultListLimit {
			t.Fatalf("ListRecent(%d) used limit %d, want %d", limit, repo.listLimit, defaultListLimit)
		}
	}
}
