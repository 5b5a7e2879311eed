package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"pollarena/protocol"
)

// idBytes 128 位随机数，十六进制编码后 32 个字符
const idBytes = 16

// Store 权威位置表：纯状态 + 变更，不含锁与 I/O。
// 并发安全由 Hub 的临界区保证。
type Store struct {
	positions map[protocol.PlayerID]protocol.Position
	random    io.Reader
}

// NewStore 创建空位置表；random 为 nil 时使用 crypto/rand
func NewStore(random io.Reader) *Store {
	if random == nil {
		random = rand.Reader
	}
	return &Store{
		positions: make(map[protocol.PlayerID]protocol.Position),
		random:    random,
	}
}

// IssueID 生成新的玩家标识；不读写位置表
func (s *Store) IssueID() (protocol.PlayerID, error) {
	var b [idBytes]byte
	if _, err := io.ReadFull(s.random, b[:]); err != nil {
		return "", fmt.Errorf("issue id: %w", err)
	}
	return protocol.PlayerID(hex.EncodeToString(b[:])), nil
}

// Move 写入玩家位置；字段缺失时不做任何事并返回 false
func (s *Store) Move(m protocol.MoveRequest) bool {
	if !m.Valid() {
		return false
	}
	// 首次出现的玩家先落在原点，保证总有“上一个位置”
	if _, ok := s.positions[m.ID]; !ok {
		s.positions[m.ID] = protocol.Position{ID: m.ID}
	}
	s.positions[m.ID] = protocol.Position{ID: m.ID, X: *m.X, Y: *m.Y}
	return true
}

// Snapshot 返回当前全部位置的副本（顺序不保证）
func (s *Store) Snapshot() []protocol.Position {
	out := make([]protocol.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out
}

// Len 当前玩家数
func (s *Store) Len() int { return len(s.positions) }
