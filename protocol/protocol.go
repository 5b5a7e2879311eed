package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// 路由（字符串即契约）
const (
	PathRegister      = "/register"
	PathPositions     = "/positions"
	PathMove          = "/positions/move"
	PathWaitPositions = "/wait/positions"
	PathWSPositions   = "/ws/positions"
)

// VersionHeader 快照版本号响应头；长轮询可用 ?since= 带回
const VersionHeader = "X-Positions-Version"

// SinceParam 长轮询查询参数名
const SinceParam = "since"

// PlayerID 服务端签发的玩家标识（不透明字符串）
type PlayerID string

// UnmarshalJSON 兼容字符串与数字两种写法（老客户端会发送 id: 1）
func (id *PlayerID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = PlayerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("player id: %w", err)
	}
	*id = PlayerID(n.String())
	return nil
}

// Position 某个玩家的二维坐标（像素）
type Position struct {
	ID PlayerID `json:"id"`
	X  float64  `json:"x"`
	Y  float64  `json:"y"`
}

// MoveRequest 移动请求体；X/Y 用指针区分“缺失”与“为 0”
// 示例：{"id":"9f2c...","x":120,"y":48}
type MoveRequest struct {
	ID PlayerID `json:"id"`
	X  *float64 `json:"x"`
	Y  *float64 `json:"y"`
}

// Valid 三个字段是否齐全
func (m MoveRequest) Valid() bool {
	return m.ID != "" && m.X != nil && m.Y != nil
}

// NewMove 便捷构造
func NewMove(id PlayerID, x, y float64) MoveRequest {
	return MoveRequest{ID: id, X: &x, Y: &y}
}
