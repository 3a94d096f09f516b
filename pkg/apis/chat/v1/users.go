package v1

import metav1 "github.com/yhlooo/roomchat/pkg/apis/meta/v1"

// User 用户
type User struct {
	// 本地生成的唯一 ID ，在加入界面展示以区分同名会话
	UID metav1.UID `json:"uid,omitempty"`
	// 用户名，作为消息的 author
	Name string `json:"name"`
}

// DeepCopy 深拷贝
func (obj *User) DeepCopy() *User {
	if obj == nil {
		return nil
	}
	return &User{
		UID:  obj.UID,
		Name: obj.Name,
	}
}

// IsAuthorOf 判断消息是否由该用户发送
func (obj *User) IsAuthorOf(msg *ChatMessage) bool {
	if obj == nil || msg == nil {
		return false
	}
	return msg.Author == obj.Name
}
