package models

import "gorm.io/gorm"

// Device — управляемый шлюз (MikroTik-like) с реквизитами management API.
// DeviceID — строковый идентификатор ("gateway-01"), НЕ числовой PK: именно по
// нему связаны записи журнала WAN-статусов и список получателей уведомлений.
type Device struct {
	gorm.Model
	UUID           string     `gorm:"column:uuid;uniqueIndex" json:"uuid"`
	DeviceID       string     `gorm:"column:device_id;uniqueIndex" json:"deviceId"`
	DeviceName     string     `json:"deviceName"`
	SiteID         uint       `gorm:"index" json:"siteId"`
	DeviceType     string     `json:"deviceType"`
	DeviceIP       string     `gorm:"column:device_ip" json:"deviceIp"`
	DevicePort     string     `json:"devicePort"`
	PortCount      int        `json:"portCount"` // количество WAN-портов, 1..4
	EmailID        StringList `gorm:"column:email_id;type:text" json:"emailId"`
	DeviceUsername string     `json:"deviceUsername"`
	DevicePassword string     `json:"devicePassword"`
	AdminID        uint       `gorm:"index" json:"adminId"`
	ManagerID      uint       `gorm:"index" json:"managerId"`
}

// WanStatusRecord — одно наблюдённое состояние одного WAN-линка устройства.
// Журнал append-only: записи создаются только на переходах и никогда не
// изменяются; последняя по created_at запись для пары (identity, comment) —
// текущее состояние линка.
type WanStatusRecord struct {
	gorm.Model
	Identity string `gorm:"index:idx_wan_key,priority:1" json:"identity"`
	Comment  string `gorm:"index:idx_wan_key,priority:2" json:"comment"`
	Status   string `json:"status"`
	Since    string `json:"since"`
}
