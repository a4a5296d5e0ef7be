package domain

import (
	"time"
)

type SysOpr struct {
	ID        int64     `json:"id,string" form:"id"`
	Realname  string    `json:"realname" form:"realname"`
	Email     string    `json:"email" form:"email"`
	Username  string    `gorm:"uniqueIndex;size:100" json:"username" form:"username"`
	Password  string    `json:"-" form:"password"`
	Level     string    `json:"level" form:"level"`
	Status    string    `json:"status" form:"status"`
	Remark    string    `json:"remark" form:"remark"`
	LastLogin time.Time `json:"last_login" form:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysOpr) TableName() string {
	return "sys_opr"
}

// SysOprLog records one admin change: who did what to which object.
type SysOprLog struct {
	ID         int64     `json:"id,string"`
	OprName    string    `gorm:"index" json:"opr_name"`
	OprIp      string    `json:"opr_ip"`
	OptAction  string    `gorm:"index" json:"opt_action"`
	ObjectType string    `json:"object_type"`
	ObjectId   string    `json:"object_id"`
	OptDesc    string    `json:"opt_desc"`
	OptTime    time.Time `gorm:"index" json:"opt_time"`
}

// TableName Specify table name
func (SysOprLog) TableName() string {
	return "sys_opr_log"
}
