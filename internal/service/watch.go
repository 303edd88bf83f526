package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"csvjson/internal/etl"
)

// watchDebounce coalesces bursts of writes to the same inputs.
const watchDebounce = 500 * time.Millisecond

// Watch re-runs job whenever one of its input files is written or created.
// Triggers that arrive while a conversion is running are skipped.
// A previous watch is replaced.
func (s *ConversionService) Watch(ctx context.Context, job etl.ConversionJob) error {
	job, err := s.prepare(job)
	if err != nil {
		return err
	}
	s.StopWatch()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	paths := make(map[string]bool)
	watchedDirs := make(map[string]bool)
	for _, f := range job.Files {
		absPath, err := filepath.Abs(f)
		if err != nil {
			watcher.Close()
			return fmt.Errorf("bad path %q: %w", f, err)
		}
		paths[absPath] = true

		dir := filepath.Dir(absPath)
		if watchedDirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watch dir %q: %w", dir, err)
		}
		watchedDirs[dir] = true
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.watchMu.Lock()
	s.watcher = watcher
	s.watchCancel = cancel
	s.watchDone = done
	s.watchMu.Unlock()

	go s.watchLoop(ctx, watchCtx, watcher, paths, job, done)

	s.logger.Info("watching input files", zap.Int("files", len(paths)), zap.Int("dirs", len(watchedDirs)))
	return nil
}

// Watching reports whether a watch is active.
func (s *ConversionService) Watching() bool {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return s.watcher != nil
}

// StopWatch tears down the active watch, if any. Safe to call repeatedly.
func (s *ConversionService) StopWatch() {
	s.watchMu.Lock()
	cancel, watcher, done := s.watchCancel, s.watcher, s.watchDone
	s.watchCancel, s.watcher, s.watchDone = nil, nil, nil
	s.watchMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if watcher != nil {
		watcher.Close()
	}
	if done != nil {
		<-done
	}
}

func (s *ConversionService) watchLoop(
	ctx, watchCtx context.Context,
	watcher *fsnotify.Watcher,
	paths map[string]bool,
	job etl.ConversionJob,
	done chan struct{},
) {
	defer close(done)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-watchCtx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			if !paths[absPath] {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			s.logger.Debug("input changed", zap.String("path", absPath))
			timer = time.AfterFunc(watchDebounce, func() {
				// StopWatch may land after the timer fired but before this runs.
				if watchCtx.Err() != nil {
					return
				}
				s.rerun(ctx, job)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (s *ConversionService) rerun(ctx context.Context, job etl.ConversionJob) {
	job.ID = ""
	if _, err := s.Start(ctx, job); err != nil {
		if errors.Is(err, ErrConversionRunning) {
			s.logger.Debug("watch trigger skipped: conversion running")
			return
		}
		s.logger.Warn("watch trigger failed", zap.Error(err))
	}
}
