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

package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestLocker_Lock_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "test-key", "test-value")

	mock.ExpectSetNX("test-key", "test-value", 5*time.Second).SetVal(true)

	err := locker.Lock(context.Background(), 5*time.Second)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Lock_Failure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "test-key", "test-value")

	mock.ExpectSetNX("test-key", "test-value", 5*time.Second).SetVal(false)

	err := locker.Lock(context.Background(), 5*time.Second)
	assert.EqualError(t, err, "lock for key test-key is already held")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Unlock_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "test-key", "test-value")

	script := "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	mock.ExpectEval(script, []string{"test-key"}, "test-value").SetVal(int64(1))

	err := locker.Unlock(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Unlock_NotHolder(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "test-key", "test-value")

	script := "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	mock.ExpectEval(script, []string{"test-key"}, "test-value").SetVal(int64(0))

	err := locker.Unlock(context.Background())
	assert.EqualError(t, err, "unlock failed, either lock expired or you're not the lock holder for key test-key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_ExtendLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "test-key", "test-value")

	script := "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('pexpire', KEYS[1], ARGV[2]) else return 0 end"
	mock.ExpectEval(script, []string{"test-key"}, "test-value", "5000").SetVal(int64(1))

	err := locker.ExtendLock(context.Background(), 5*time.Second)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newMiniredisClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestForResource_SameResourceSerializes(t *testing.T) {
	client := newMiniredisClient(t)
	ctx := context.Background()

	first := ForResource(client, "filter_operation", "pur_1")
	second := ForResource(client, "filter_operation", "pur_1")

	assert.NoError(t, first.Lock(ctx, time.Minute))
	assert.Error(t, second.Lock(ctx, time.Minute))

	// Only the holder may release; the contender's unlock must not free it.
	assert.Error(t, second.Unlock(ctx))
	assert.NoError(t, first.Unlock(ctx))

	assert.NoError(t, second.Lock(ctx, time.Minute))
	assert.NoError(t, second.Unlock(ctx))
}

func TestForResource_DifferentResourcesRunInParallel(t *testing.T) {
	client := newMiniredisClient(t)
	ctx := context.Background()

	p1 := ForResource(client, "filter_operation", "pur_1")
	p2 := ForResource(client, "filter_operation", "pur_2")

	assert.NoError(t, p1.Lock(ctx, time.Minute))
	assert.NoError(t, p2.Lock(ctx, time.Minute))

	assert.NoError(t, p1.Unlock(ctx))
	assert.NoError(t, p2.Unlock(ctx))
}

func TestWaitLock_AcquiresAfterRelease(t *testing.T) {
	client := newMiniredisClient(t)
	ctx := context.Background()

	holder := ForResource(client, "filter_operation", "pur_1")
	assert.NoError(t, holder.Lock(ctx, time.Minute))

	released := make(chan struct{})
	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = holder.Unlock(ctx)
		close(released)
	}()

	waiter := ForResource(client, "filter_operation", "pur_1")
	err := waiter.WaitLock(ctx, time.Minute, 2*time.Second)
	assert.NoError(t, err)
	<-released
	assert.NoError(t, waiter.Unlock(ctx))
}

func TestWaitLock_TimesOut(t *testing.T) {
	client := newMiniredisClient(t)
	ctx := context.Background()

	holder := ForResource(client, "filter_operation", "pur_1")
	assert.NoError(t, holder.Lock(ctx, time.Minute))

	waiter := ForResource(client, "filter_operation", "pur_1")
	err := waiter.WaitLock(ctx, time.Minute, 300*time.Millisecond)
	assert.Error(t, err)
}
