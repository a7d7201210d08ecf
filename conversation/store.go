// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conversation

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/bits"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/poiesic/logsage/core"
	"github.com/poiesic/logsage/storage"
)

const (
	// DefaultShards is the number of shards used when none is configured.
	DefaultShards = 16
	// DefaultMaxTurns caps stored history per conversation.
	DefaultMaxTurns = 20
)

type shard struct {
	mu    sync.RWMutex
	convs map[string]*core.Conversation
}

// Store is a sharded in-memory conversation table.
type Store struct {
	shards   []*shard
	mask     uint32
	maxTurns int
	clock    clock.Clock
	persist  storage.ConversationStore
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithShards sets the shard count, rounded up to a power of two.
func WithShards(n int) Option {
	return func(s *Store) error {
		if n <= 0 {
			return fmt.Errorf("shard count must be positive, got %d", n)
		}
		s.shards = makeShards(nextPowerOfTwo(n))
		return nil
	}
}

// WithMaxTurns caps how many turns each conversation keeps.
func WithMaxTurns(n int) Option {
	return func(s *Store) error {
		if n <= 0 {
			return fmt.Errorf("max turns must be positive, got %d", n)
		}
		s.maxTurns = n
		return nil
	}
}

// WithClock replaces the wall clock. Tests pass clock.NewMock().
func WithClock(c clock.Clock) Option {
	return func(s *Store) error {
		if c != nil {
			s.clock = c
		}
		return nil
	}
}

// WithPersistence mirrors every change into store.
func WithPersistence(store storage.ConversationStore) Option {
	return func(s *Store) error {
		s.persist = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "conversation")
		return nil
	}
}

// New creates an empty store.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		shards:   makeShards(DefaultShards),
		maxTurns: DefaultMaxTurns,
		clock:    clock.New(),
		logger:   slog.Default().With("component", "conversation"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.mask = uint32(len(s.shards) - 1)
	return s, nil
}

func makeShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{convs: make(map[string]*core.Conversation)}
	}
	return shards
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func (s *Store) shardFor(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return s.shards[h.Sum32()&s.mask]
}

// ShardCount returns the number of shards.
func (s *Store) ShardCount() int {
	return len(s.shards)
}

// Ensure returns the id of an active conversation. An empty id starts a new
// conversation with a fresh UUID; an unknown id starts a new conversation
// under that id.
func (s *Store) Ensure(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	sh := s.shardFor(id)

	sh.mu.Lock()
	if _, ok := sh.convs[id]; ok {
		sh.mu.Unlock()
		return id, nil
	}
	now := s.clock.Now()
	conv := &core.Conversation{ID: id, CreatedAt: now, UpdatedAt: now}
	sh.convs[id] = conv
	snapshot := cloneConversation(conv)
	sh.mu.Unlock()

	s.logger.Debug("conversation started", "conversation_id", id)
	s.save(ctx, snapshot)
	return id, nil
}

// Get returns a copy of the conversation.
func (s *Store) Get(id string) (*core.Conversation, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	conv, ok := sh.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneConversation(conv), nil
}

// History returns up to the last window turns, oldest first.
// An unknown id has no history.
func (s *Store) History(id string, window int) []core.Turn {
	if id == "" || window <= 0 {
		return nil
	}
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	conv, ok := sh.convs[id]
	if !ok {
		return nil
	}
	turns := conv.Turns
	if len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	out := make([]core.Turn, len(turns))
	copy(out, turns)
	return out
}

// Append records a turn, dropping the oldest turns past the history cap.
func (s *Store) Append(ctx context.Context, id, question, answer string) error {
	if id == "" {
		return ErrInvalidID
	}
	sh := s.shardFor(id)

	sh.mu.Lock()
	conv, ok := sh.convs[id]
	if !ok {
		sh.mu.Unlock()
		return ErrNotFound
	}
	now := s.clock.Now()
	conv.Turns = append(conv.Turns, core.Turn{Question: question, Answer: answer, AskedAt: now})
	if excess := len(conv.Turns) - s.maxTurns; excess > 0 {
		conv.Turns = append([]core.Turn(nil), conv.Turns[excess:]...)
	}
	conv.UpdatedAt = now
	snapshot := cloneConversation(conv)
	sh.mu.Unlock()

	s.save(ctx, snapshot)
	return nil
}

// Reset forgets a conversation. It reports whether the id was known.
func (s *Store) Reset(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	sh := s.shardFor(id)
	sh.mu.Lock()
	_, ok := sh.convs[id]
	delete(sh.convs, id)
	sh.mu.Unlock()

	if ok {
		s.logger.Debug("conversation reset", "conversation_id", id)
		s.remove(ctx, id)
	}
	return ok
}

// Len returns the number of live conversations.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.convs)
		sh.mu.RUnlock()
	}
	return total
}

// Sweep evicts conversations idle for longer than ttl and returns how many
// were removed. A non-positive ttl disables eviction.
func (s *Store) Sweep(ctx context.Context, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := s.clock.Now().Add(-ttl)

	var evicted []string
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, conv := range sh.convs {
			if conv.UpdatedAt.Before(cutoff) {
				delete(sh.convs, id)
				evicted = append(evicted, id)
			}
		}
		sh.mu.Unlock()
	}

	for _, id := range evicted {
		s.remove(ctx, id)
	}
	if len(evicted) > 0 {
		s.logger.Info("evicted idle conversations", "count", len(evicted), "ttl", ttl)
	}
	return len(evicted)
}

// StartSweeper runs Sweep every interval until the returned stop function
// is called. stop waits for the sweeper goroutine to exit.
func (s *Store) StartSweeper(interval, ttl time.Duration) (stop func()) {
	ticker := s.clock.Ticker(interval)
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.Sweep(context.Background(), ttl)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

// Restore loads every persisted conversation into the table and returns how
// many were loaded. Histories longer than the cap are trimmed.
func (s *Store) Restore(ctx context.Context) (int, error) {
	if s.persist == nil {
		return 0, nil
	}
	convs, err := s.persist.LoadConversations(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore conversations: %w", err)
	}
	for _, conv := range convs {
		if conv == nil || conv.ID == "" {
			continue
		}
		if excess := len(conv.Turns) - s.maxTurns; excess > 0 {
			conv.Turns = conv.Turns[excess:]
		}
		sh := s.shardFor(conv.ID)
		sh.mu.Lock()
		sh.convs[conv.ID] = conv
		sh.mu.Unlock()
	}
	s.logger.Info("restored conversations", "count", len(convs))
	return len(convs), nil
}

// Persistence failures never fail a conversation operation.
func (s *Store) save(ctx context.Context, conv *core.Conversation) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SaveConversation(ctx, conv); err != nil {
		s.logger.Warn("failed to persist conversation", "conversation_id", conv.ID, "err", err)
	}
}

func (s *Store) remove(ctx context.Context, id string) {
	if s.persist == nil {
		return
	}
	if err := s.persist.DeleteConversation(ctx, id); err != nil {
		s.logger.Warn("failed to delete persisted conversation", "conversation_id", id, "err", err)
	}
}

func cloneConversation(c *core.Conversation) *core.Conversation {
	out := *c
	out.Turns = make([]core.Turn, len(c.Turns))
	copy(out.Turns, c.Turns)
	return &out
}
