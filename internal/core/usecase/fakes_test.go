package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
)

type statusCall struct {
	status domain.RunStatus
	errMsg string
}

type runRepoFake struct {
	run           *domain.Run
	created       *domain.Run
	createErr     error
	getErr        error
	saveErr       error
	failStatusErr error
	statusCalls   []statusCall
	outcome       *domain.RunOutcome
	listLimit     int
}

func (f *runRepoFake) Create(_ context.Context, run *domain.Run) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyRun := *run
	f.created = &copyRun
	return nil
}

func (f *runRepoFake) GetByID(context.Context, string) (*domain.Run, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.run == nil {
		return nil, domain.ErrRunNotFound
	}
	copyRun := *f.run
	return &copyRun, nil
}

func (f *runRepoFake) ListRecent(_ context.Context, limit int) ([]domain.Run, error) {
	f.listLimit = limit
	if f.run == nil {
		return nil, nil
	}
	return []domain.Run{*f.run}, nil
}

func (f *runRepoFake) UpdateStatus(_ context.Context, _ string, status domain.RunStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.RunStatusFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	return nil
}

func (f *runRepoFake) SaveOutcome(_ context.Context, _ string, outcome domain.RunOutcome) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.outcome = &outcome
	return nil
}

type storageFake struct {
	objects map[string]string
	saveErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string]string{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.objects[key]
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	return io.NopCloser(bytes.NewBufferString(body)), nil
}

type queueFake struct {
	runID string
	err   error
}

func (f *queueFake) PublishRunSubmitted(_ context.Context, runID string) error {
	if f.err != nil {
		return f.err
	}
	f.runID = runID
	return nil
}

func (f *queueFake) SubscribeRunSubmitted(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}
