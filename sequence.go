/*
Copyright 2025 Vantage ERP Authors.

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

package vantage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vantage-erp/vantage/internal/apierror"
)

const (
	conflictRetryAttempts = 5
	conflictRetryBase     = 100 * time.Millisecond
)

// WithConflictRetry runs operation, retrying conflict-class failures up to 5
// attempts with exponential backoff (base 100ms, doubling, jitter up to one
// base interval). Any other failure is permanent and propagates immediately.
//
// Only whole composite operations may be wrapped: the operation must be safe
// to redo from scratch, which is why the datasource's guarded writes are
// all-or-nothing per transaction.
func WithConflictRetry(ctx context.Context, operation func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = conflictRetryBase
	policy.Multiplier = 2
	policy.RandomizationFactor = 0.5
	policy.MaxElapsedTime = 0

	attempts := backoff.WithMaxRetries(backoff.WithContext(policy, ctx), conflictRetryAttempts-1)
	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}
		if apierror.IsTransientConflict(err) {
			return err
		}
		return backoff.Permanent(err)
	}, attempts)
}

// NextSequenceNumber previews the next document number for an entity class,
// retrying transient conflicts. Writes never call this: the datasource issues
// their numbers inside the owning row's transaction, so a preview can be
// stale by the time a write commits.
func (v *Vantage) NextSequenceNumber(ctx context.Context, entityClass string) (string, error) {
	guard := v.guardConfig()

	var number string
	err := WithConflictRetry(ctx, func() error {
		var err error
		number, err = v.datasource.PeekNextSequenceNumber(ctx, entityClass, guard.LockTimeoutSec)
		return err
	})
	return number, err
}
