package errors

var (
	// 业务层与存储层使用的领域错误
	ErrUnauthenticated        = Unauthorized("无效或已过期的 token")
	ErrInvalidCredentials     = Unauthorized("用户名或密码错误")
	ErrAccountDisabled        = Forbidden("账号尚未激活")
	ErrNoMessagingRole        = Forbidden("需要教师或学生角色")
	ErrNotConversationParty   = Forbidden("不是该会话的参与者")
	ErrRoleRequired           = Forbidden("权限不足")
	ErrReceiverNotFound       = NotFound("接收者不存在")
	ErrConversationNotFound   = NotFound("会话不存在")
	ErrUserNotFound           = NotFound("用户不存在")
	ErrInvalidMessageFlow     = InvalidFlow("消息只能在教师与学生之间发送")
	ErrEmptyMessage           = InvalidArg("消息内容不能为空")
	ErrEmptyQuery             = InvalidArg("查询内容不能为空")
	ErrSearchDisabled         = Unavailable("消息搜索未启用", nil)
	ErrAssistantUnavailable   = Unavailable("AI 服务不可用", nil)
	ErrIdentityProviderFailed = Unavailable("身份服务不可用", nil)
)
