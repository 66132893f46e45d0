// Package models 定义数据模型
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON 自定义 JSON 类型
type JSON map[string]interface{}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Unmarshal 将 JSON 值反序列化到目标结构（便于业务层使用）
func (j JSON) Unmarshal(target interface{}) error {
	if j == nil {
		return nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, target)
}

// OperationLog 管理端操作日志
type OperationLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AdminID    int64     `gorm:"index;not null" json:"admin_id"`
	Module     string    `gorm:"type:varchar(50);not null" json:"module"`
	Action     string    `gorm:"type:varchar(50);not null" json:"action"`
	TargetType string    `gorm:"type:varchar(50)" json:"target_type,omitempty"`
	TargetID   *int64    `json:"target_id,omitempty"`
	AfterData  JSON      `gorm:"type:jsonb" json:"after_data,omitempty"`
	IP         string    `gorm:"type:varchar(45);not null" json:"ip"`
	UserAgent  *string   `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 表名
func (OperationLog) TableName() string {
	return "operation_logs"
}
