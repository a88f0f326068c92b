/*
Copyright 2025 ReCiSt Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package delivery implements the channel backends a Notification can
// be handed to (spec §6, SelfHealingPolicy.spec.notifications).
package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/recist-project/recist/pkg/notification"
)

// RetryableError marks a delivery failure as transient, so callers
// know to reschedule rather than drop the notification (NT-BUG-006:
// directory/file creation errors were previously surfaced as
// permanent failures).
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Service delivers a Notification over one channel.
type Service interface {
	Deliver(ctx context.Context, n *notification.Notification) error
}

// FileDeliveryService writes each notification to its own file under
// a directory, for local development and for audit trails where no
// external channel is configured.
type FileDeliveryService struct {
	dir string
}

func NewFileDeliveryService(dir string) *FileDeliveryService {
	return &FileDeliveryService{dir: dir}
}

func (s *FileDeliveryService) Deliver(ctx context.Context, n *notification.Notification) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return &RetryableError{Op: "failed to create output directory", Err: err}
	}

	name := fmt.Sprintf("%s-%s.txt", n.Name, uuid.NewString())
	path := filepath.Join(s.dir, name)
	tmpPath := path + ".tmp"

	content := fmt.Sprintf("Subject: %s\nTimestamp: %s\n\n%s\n", n.Subject, time.Now().UTC().Format(time.RFC3339), n.Body)
	if err := os.WriteFile(tmpPath, []byte(content), 0644); err != nil {
		return &RetryableError{Op: "failed to write temporary file", Err: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return &RetryableError{Op: "failed to write temporary file", Err: err}
	}
	return nil
}
