package game

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// RoomCodeLength 房间号长度
	RoomCodeLength = 6
	// RoomCodeChars 去掉易混淆字符 0/O、1/I/L
	RoomCodeChars = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// GenerateRoomCode 生成随机房间号
func GenerateRoomCode() (string, error) {
	code := make([]byte, RoomCodeLength)
	limit := big.NewInt(int64(len(RoomCodeChars)))
	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("生成房间号失败: %w", err)
		}
		code[i] = RoomCodeChars[n.Int64()]
	}
	return string(code), nil
}

// IsRoomCode 是否为合法格式的房间号
func IsRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(RoomCodeChars, code[i]) < 0 {
			return false
		}
	}
	return true
}
