package v1

import (
	"crypto/sha1"
	"encoding/base32"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const (
	// StatusReasonUnauthorized 未授权或授权已过期
	StatusReasonUnauthorized = "Unauthorized"
)

// NewUID 创建一个 UID
func NewUID() UID {
	return UID(uuid.New())
}

// UID 唯一 ID
type UID uuid.UUID

// MarshalJSON 序列化为 JSON
//
//goland:noinspection GoMixedReceiverTypes
func (uid UID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uid.String())
}

// UnmarshalJSON 从 JSON 反序列化
//
//goland:noinspection GoMixedReceiverTypes
func (uid *UID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	ret, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	copy(uid[:], ret[:])
	return nil
}

// IsNil 判断是否零值
//
//goland:noinspection GoMixedReceiverTypes
func (uid UID) IsNil() bool {
	return uuid.UUID(uid) == uuid.Nil
}

// String 返回字符串形式
//
//goland:noinspection GoMixedReceiverTypes
func (uid UID) String() string {
	return uuid.UUID(uid).String()
}

// Short 返回短字符串形式
//
//goland:noinspection GoMixedReceiverTypes
func (uid UID) Short() string {
	if uid.IsNil() {
		return ""
	}
	sum := sha1.Sum(uid[:])
	return base32.StdEncoding.EncodeToString(sum[:5])
}

// Status 服务端返回的状态
//
// 建立连接被拒绝时服务端以该结构描述原因
type Status struct {
	// HTTP 状态码
	Code int `json:"code,omitempty"`
	// 可枚举的原因
	Reason string `json:"reason,omitempty"`
	// 人类可读的描述
	Message string `json:"message,omitempty"`
}

// Error 返回字符串形式的错误描述
func (s *Status) Error() string {
	return fmt.Sprintf("%s(%d): %s", s.Reason, s.Code, s.Message)
}
