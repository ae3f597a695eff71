package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"syscall"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrStoreUnavailable 存储后端不可达（与凭据错误区分，避免操作员误判为密码错误）
var ErrStoreUnavailable = errors.New("服务暂时不可用，请检查网络后重试")

// IsUnavailable 判断错误是否属于连接层故障（数据库/Redis 不可达、超时）
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
