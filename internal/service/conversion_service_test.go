package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvjson/internal/etl"
	_ "csvjson/internal/etl/sources"
	"csvjson/internal/service"
)

type recorder struct {
	mu   sync.Mutex
	runs []*etl.RunLog
	err  error
}

func (r *recorder) CreateRun(log *etl.RunLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, log)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

// blockingDest holds every write until release is closed.
type blockingDest struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingDest() *blockingDest {
	return &blockingDest{entered: make(chan struct{}), release: make(chan struct{})}
}

func (d *blockingDest) Write(ctx context.Context, target string, records []etl.Record) (int, error) {
	d.once.Do(func() { close(d.entered) })
	<-d.release
	return (&etl.JSONFileWriter{Indent: etl.DefaultIndent}).Write(ctx, target, records)
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func waitIdle(t *testing.T, svc *service.ConversionService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svc.Wait(ctx)
	require.False(t, svc.Running(), "conversion did not finish")
}

func TestConversionService_StartValidation(t *testing.T) {
	emitter := &service.MockEmitter{}
	svc := service.NewConversionService(nil, nil, emitter, nil, nil)
	ctx := context.Background()

	_, err := svc.Start(ctx, etl.ConversionJob{OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, service.ErrNoInputFiles)

	_, err = svc.Start(ctx, etl.ConversionJob{Files: []string{"a.csv"}, OutputDir: "  "})
	assert.ErrorIs(t, err, service.ErrNoOutputDir)

	assert.Empty(t, emitter.Events, "validation failures must not start a run")
	assert.False(t, svc.Running())
}

func TestConversionService_StartEmitsProgressAndDone(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	a := writeCSV(t, in, "a.csv", "name,ssn,extra\nJo,1,x\n")
	b := writeCSV(t, in, "b.csv", "city\nParis\nLyon\n")

	emitter := &service.MockEmitter{}
	notifier := &service.MockNotifier{}
	runs := &recorder{}
	svc := service.NewConversionService(nil, runs, emitter, notifier, nil)

	id, err := svc.Start(context.Background(), etl.ConversionJob{Files: []string{a, b}, OutputDir: out})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	waitIdle(t, svc)

	assert.FileExists(t, filepath.Join(out, "a.json"))
	assert.FileExists(t, filepath.Join(out, "b.json"))

	running := emitter.Named(service.EventRunning)
	require.Len(t, running, 2)
	assert.Equal(t, true, running[0].Data)
	assert.Equal(t, false, running[1].Data)

	statuses := emitter.Named(service.EventStatus)
	require.Len(t, statuses, 3)
	first := statuses[0].Data.(service.StatusEvent)
	assert.Equal(t, "Processing file 1/2: a.csv", first.Message)
	assert.Equal(t, 0.0, first.Percent)
	second := statuses[1].Data.(service.StatusEvent)
	assert.Equal(t, 50.0, second.Percent)
	last := statuses[2].Data.(service.StatusEvent)
	assert.Equal(t, "Conversion complete", last.Message)
	assert.Equal(t, 100.0, last.Percent)

	done := emitter.Named(service.EventDone)
	require.Len(t, done, 1)
	result := done[0].Data.(*etl.ConversionResult)
	assert.Equal(t, id, result.JobID)
	assert.Equal(t, etl.StatusSuccess, result.Status)
	assert.Equal(t, 3, result.RowsWritten)

	info := notifier.Level("info")
	require.Len(t, info, 1)
	assert.Equal(t, "Converted 2 of 2 files", info[0].Message)
	assert.Empty(t, notifier.Level("error"))
	assert.Equal(t, 1, runs.count())
}

func TestConversionService_FileErrorShowsModalAndContinues(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	good := writeCSV(t, in, "good.csv", "name\nJo\n")
	missing := filepath.Join(in, "missing.csv")

	emitter := &service.MockEmitter{}
	notifier := &service.MockNotifier{}
	svc := service.NewConversionService(nil, nil, emitter, notifier, nil)

	_, err := svc.Start(context.Background(), etl.ConversionJob{Files: []string{missing, good}, OutputDir: out})
	require.NoError(t, err)
	waitIdle(t, svc)

	errs := notifier.Level("error")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "Error processing file missing.csv: ")
	assert.NotContains(t, errs[0].Message, "read missing.csv", "modal shows the cause, not the wrapped op")

	fileErrs := emitter.Named(service.EventFileError)
	require.Len(t, fileErrs, 1)
	ev := fileErrs[0].Data.(service.FileErrorEvent)
	assert.Equal(t, "missing.csv", ev.File)
	assert.Equal(t, "read", ev.Op)

	info := notifier.Level("info")
	require.Len(t, info, 1)
	assert.Equal(t, "Converted 1 of 2 files", info[0].Message)
	assert.FileExists(t, filepath.Join(out, "good.json"))
}

func TestConversionService_RejectsConcurrentStart(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	a := writeCSV(t, in, "a.csv", "name\nJo\n")

	dest := newBlockingDest()
	conv := &etl.Converter{Dest: dest, Fields: etl.RequiredFields}
	svc := service.NewConversionService(conv, nil, nil, nil, nil)
	job := etl.ConversionJob{Files: []string{a}, OutputDir: out}

	_, err := svc.Start(context.Background(), job)
	require.NoError(t, err)
	<-dest.entered
	assert.True(t, svc.Running())

	_, err = svc.Start(context.Background(), job)
	assert.ErrorIs(t, err, service.ErrConversionRunning)
	_, err = svc.RunSync(context.Background(), job)
	assert.ErrorIs(t, err, service.ErrConversionRunning)

	close(dest.release)
	waitIdle(t, svc)

	_, err = svc.Start(context.Background(), job)
	require.NoError(t, err, "guard must be released after the run")
	waitIdle(t, svc)
}

func TestConversionService_RunSyncMerge(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	a := writeCSV(t, in, "a.csv", "name\nJo\nAl\n")
	b := writeCSV(t, in, "b.csv", "city\nParis\n")

	notifier := &service.MockNotifier{}
	runs := &recorder{err: errors.New("disk full")}
	svc := service.NewConversionService(nil, runs, nil, notifier, nil)

	result, err := svc.RunSync(context.Background(), etl.ConversionJob{
		Files:     []string{a, b},
		OutputDir: out,
		Merge:     true,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, etl.StatusSuccess, result.Status)
	assert.Equal(t, 3, result.RowsWritten)
	assert.Equal(t, []string{filepath.Join(out, etl.DefaultMergedFileName)}, result.Outputs)
	assert.Empty(t, notifier.Messages, "RunSync never shows modals")
	assert.Equal(t, 1, runs.count(), "a failing recorder is logged, not fatal")
}

func TestConversionService_RunSyncIgnoresCancellation(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	a := writeCSV(t, in, "a.csv", "name\nJo\n")

	emitter := &service.MockEmitter{}
	svc := service.NewConversionService(nil, nil, emitter, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := svc.RunSync(ctx, etl.ConversionJob{Files: []string{a}, OutputDir: out})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, etl.StatusSuccess, result.Status)
	assert.FileExists(t, filepath.Join(out, "a.json"))
	assert.Len(t, emitter.Named(service.EventDone), 1)
	assert.False(t, svc.Running())
}

func TestConversionService_WaitImmediate(t *testing.T) {
	svc := service.NewConversionService(nil, nil, nil, nil, nil)

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		svc.Wait(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Wait hung with no running conversion")
	}
}

func TestConversionService_Stop_Idempotent(t *testing.T) {
	svc := service.NewConversionService(nil, nil, nil, nil, nil)
	svc.Stop()
	svc.Stop()
	assert.False(t, svc.Watching())
}

func TestConversionService_PreviewAndFields(t *testing.T) {
	in := t.TempDir()
	a := writeCSV(t, in, "a.csv", "name,zip\nJo,75001\n")

	svc := service.NewConversionService(nil, nil, nil, nil, nil)
	assert.Equal(t, etl.RequiredFields, svc.Fields())

	p, err := svc.Preview(context.Background(), a, 0)
	require.NoError(t, err)
	assert.Contains(t, p.MatchedFields, "name")
	require.Len(t, p.Records, 1)
}
