package repository

import (
	"errors"

	"github.com/lib/pq"
)

// isUniqueViolation 判断是否为 PostgreSQL 唯一约束冲突（SQLSTATE 23505）
// 用于把部分唯一索引冲突映射为领域层 conflict 错误
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
