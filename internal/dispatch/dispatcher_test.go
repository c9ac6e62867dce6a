package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paygit/paygit-cli/internal/provider"
)

type fakeAuth struct {
	token string
	err   error
	calls int
}

func (f *fakeAuth) EnsureAuthenticated(ctx context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakePayer struct {
	err      error
	calls    int
	lastNote string
}

func (f *fakePayer) Execute(ctx context.Context, amount float64, note, token string) (*provider.Receipt, error) {
	f.calls++
	f.lastNote = note
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Receipt{TransactionID: "tx-1"}, nil
}

type fakeRunner struct {
	exitCode int
	runErr   error
	calls    int
	lastArgs []string
	head     string
	headErr  error
}

func (f *fakeRunner) Run(args []string) (int, error) {
	f.calls++
	f.lastArgs = args
	return f.exitCode, f.runErr
}

func (f *fakeRunner) HeadCommit() (string, error) {
	return f.head, f.headErr
}

func newTestDispatcher(mode Mode, auth *fakeAuth, payer *fakePayer, runner *fakeRunner) *Dispatcher {
	return New(mode, auth, payer, runner, 0.01, nil)
}

func TestRun_UngatedOperationSkipsAuthAndPayment(t *testing.T) {
	auth := &fakeAuth{token: "tok"}
	payer := &fakePayer{}
	runner := &fakeRunner{exitCode: 0}
	d := newTestDispatcher(ModeMinimal, auth, payer, runner)

	code := d.Run(context.Background(), []string{"status"})
	assert.Equal(t, 0, code)
	assert.Equal(t, 0, auth.calls)
	assert.Equal(t, 0, payer.calls)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, []string{"status"}, runner.lastArgs)
}

func TestRun_UngatedPropagatesToolExitCode(t *testing.T) {
	runner := &fakeRunner{exitCode: 128}
	d := newTestDispatcher(ModeMinimal, &fakeAuth{}, &fakePayer{}, runner)

	code := d.Run(context.Background(), []string{"log"})
	assert.Equal(t, 128, code)
}

func TestRun_PublishBefore_PaymentFailureAbortsTool(t *testing.T) {
	auth := &fakeAuth{token: "tok"}
	payer := &fakePayer{err: errors.New("insufficient balance")}
	runner := &fakeRunner{}
	d := newTestDispatcher(ModeMinimal, auth, payer, runner)

	code := d.Run(context.Background(), []string{"push", "origin", "main"})
	assert.Equal(t, 1, code)
	assert.Equal(t, 1, payer.calls)
	assert.Equal(t, 0, runner.calls)
}

func TestRun_PublishBefore_SuccessReflectsToolExit(t *testing.T) {
	auth := &fakeAuth{token: "tok"}
	payer := &fakePayer{}
	runner := &fakeRunner{exitCode: 2}
	d := newTestDispatcher(ModeMinimal, auth, payer, runner)

	code := d.Run(context.Background(), []string{"push"})
	assert.Equal(t, 2, code)
	assert.Equal(t, 1, payer.calls)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, "paygit push", payer.lastNote)
}

func TestRun_PublishAfter_ToolFailureSkipsPayment(t *testing.T) {
	auth := &fakeAuth{token: "tok"}
	payer := &fakePayer{}
	runner := &fakeRunner{exitCode: 1}
	d := newTestDispatcher(ModeMinimal, auth, payer, runner)

	code := d.Run(context.Background(), []string{"commit", "-m", "msg"})
	assert.Equal(t, 1, code)
	assert.Equal(t, 0, payer.calls)
}

func TestRun_PublishAfter_PaymentFailureIsSoft(t *testing.T) {
	auth := &fakeAuth{token: "tok"}
	payer := &fakePayer{err: errors.New("provider down")}
	runner := &fakeRunner{exitCode: 0, head: "ab12cd3"}
	d := newTestDispatcher(ModeMinimal, auth, payer, runner)

	code := d.Run(context.Background(), []string{"commit", "-m", "msg"})
	assert.Equal(t, 0, code)
	assert.Equal(t, 1, payer.calls)
}

func TestRun_PublishAfter_NoteCarriesCommitHash(t *testing.T) {
	auth := &fakeAuth{token: "tok"}
	payer := &fakePayer{}
	runner := &fakeRunner{exitCode: 0, head: "ab12cd3"}
	d := newTestDispatcher(ModeMinimal, auth, payer, runner)

	code := d.Run(context.Background(), []string{"commit", "-m", "msg"})
	assert.Equal(t, 0, code)
	assert.Equal(t, "paygit commit ab12cd3", payer.lastNote)
}

func TestRun_PublishAfter_MissingHashStillPays(t *testing.T) {
	auth := &fakeAuth{token: "tok"}
	payer := &fakePayer{}
	runner := &fakeRunner{exitCode: 0, headErr: errors.New("no repo")}
	d := newTestDispatcher(ModeMinimal, auth, payer, runner)

	code := d.Run(context.Background(), []string{"commit"})
	assert.Equal(t, 0, code)
	assert.Equal(t, 1, payer.calls)
	assert.Equal(t, "paygit commit", payer.lastNote)
}

func TestRun_AuthFailure(t *testing.T) {
	auth := &fakeAuth{err: errors.New("timed out waiting for authorization")}
	payer := &fakePayer{}
	runner := &fakeRunner{}
	d := newTestDispatcher(ModeMinimal, auth, payer, runner)

	code := d.Run(context.Background(), []string{"push"})
	assert.Equal(t, 1, code)
	assert.Equal(t, 0, payer.calls)
	assert.Equal(t, 0, runner.calls)
}

func TestRun_UniversalModeGatesEverything(t *testing.T) {
	auth := &fakeAuth{token: "tok"}
	payer := &fakePayer{}
	runner := &fakeRunner{}
	d := newTestDispatcher(ModeUniversal, auth, payer, runner)

	code := d.Run(context.Background(), []string{"status"})
	assert.Equal(t, 0, code)
	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, 1, payer.calls)
	assert.Equal(t, 1, runner.calls)
}

func TestRun_SpawnFailureIsExitOne(t *testing.T) {
	runner := &fakeRunner{runErr: errors.New("failed to run git: executable not found")}
	d := newTestDispatcher(ModeMinimal, &fakeAuth{}, &fakePayer{}, runner)

	code := d.Run(context.Background(), []string{"status"})
	assert.Equal(t, 1, code)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("minimal")
	require.NoError(t, err)
	assert.Equal(t, ModeMinimal, mode)

	mode, err = ParseMode("universal")
	require.NoError(t, err)
	assert.Equal(t, ModeUniversal, mode)

	_, err = ParseMode("everything")
	require.Error(t, err)
}

func TestModeGates(t *testing.T) {
	assert.True(t, ModeMinimal.Gates("push"))
	assert.True(t, ModeMinimal.Gates("commit"))
	assert.False(t, ModeMinimal.Gates("status"))
	assert.True(t, ModeUniversal.Gates("status"))
}
