package server

import (
	"go.uber.org/zap"

	"pollarena/logging"
)

// Log 是全局可用的 SugaredLogger；未初始化时为 no-op，测试无需设置
var Log = zap.NewNop().Sugar()

// InitLogger 初始化全局 Log
func InitLogger(filePath, level string) error {
	l, err := logging.New(filePath, level)
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// SyncLogger 清理和同步缓冲
func SyncLogger() {
	if Log != nil {
		_ = Log.Sync()
	}
}
