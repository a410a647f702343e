package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/notify"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingNotifier) Broadcast(_ context.Context, m notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *recordingNotifier) messages() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

type fakeUploader struct {
	keys []string
}

func (f *fakeUploader) Enabled() bool { return true }

func (f *fakeUploader) Store(_ context.Context, key, _ string, body io.Reader) (string, error) {
	_, _ = io.ReadAll(body)
	f.keys = append(f.keys, key)
	return "https://files.example.org/" + key, nil
}

type testEnv struct {
	people     *repository.MemoryPeopleRepo
	ledger     *repository.MemoryLedgerRepo
	admins     *repository.MemoryAdminRolesRepo
	access     AccessService
	notifier   *recordingNotifier
	dispatcher *notify.Dispatcher
	uploader   *fakeUploader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	env := &testEnv{
		people:   repository.NewMemoryPeopleRepo(),
		ledger:   repository.NewMemoryLedgerRepo(),
		admins:   repository.NewMemoryAdminRolesRepo(),
		notifier: &recordingNotifier{},
		uploader: &fakeUploader{},
	}
	env.access = NewAccessService(env.admins, access.DefaultMatrix(), nil, logger)
	env.dispatcher = notify.NewDispatcher(env.notifier, logger)
	return env
}

func principal(t *testing.T, role access.Role, subdivision string) *access.Principal {
	t.Helper()
	var code *string
	if subdivision != "" {
		code = &subdivision
	}
	p, err := access.NewPrincipal("user-"+string(role), string(role), role, code)
	require.NoError(t, err)
	return p
}
